package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/internal/coordinator"
	"github.com/DoyleJ11/sketch-party-backend/internal/gateway"
	"github.com/DoyleJ11/sketch-party-backend/internal/types"
	wire "github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	OriginPatterns []string
	MsgRate        float64 // frames per second; <= 0 disables the limit
	MsgBurst       int
	OutboxSize     int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 256
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.MsgBurst <= 0 {
		o.MsgBurst = 1
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.MsgRate <= 0 {
		return rate.NewLimiter(rate.Inf, o.MsgBurst)
	}
	return rate.NewLimiter(rate.Limit(o.MsgRate), o.MsgBurst)
}

// Handler upgrades to a websocket and runs one participant session: every
// connection is a fresh participant, identified by a generated id.
func Handler(coord *coordinator.Coordinator, sessions *gateway.Sessions, opts Options, logger *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	logger = logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		id := uuid.NewString()
		log := logger.With(zap.String("participant", id))
		out := sessions.Register(id, opts.OutboxSize)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if room, ok := coord.Disconnect(ctx, id); ok {
				log.Debug("left room on disconnect", zap.String("room", room))
			}
			sessions.Unregister(id)
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine
		go func() {
			for frame := range out {
				wctx, wcancel := context.WithTimeout(ctx, opts.WriteTimeout)
				err := conn.Write(wctx, websocket.MessageText, frame)
				wcancel()
				if err != nil {
					cancel()
					return
				}
			}
		}()

		go keepalive(ctx, cancel, conn, opts.PingInterval)

		sessions.ToParticipant(id, wire.EventWelcome, wire.Welcome{ParticipantID: id})
		log.Debug("connected")

		limiter := opts.limiter()
		room := ""

		// Reader loop
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("closed by client")
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("read failed", zap.Error(err))
					}
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			if !limiter.Allow() {
				log.Debug("rate limited")
				continue
			}

			msg, err := types.Decode(data)
			if err != nil {
				sessions.ToParticipant(id, wire.EventError, wire.Error{Message: err.Error()})
				continue
			}

			join, isJoin := msg.(types.JoinRoom)
			if isJoin && room != "" && room != join.RoomID {
				coord.Leave(ctx, id, room)
				room = ""
			}
			if err := coord.Dispatch(ctx, id, msg); err != nil {
				log.Warn("dispatch failed", zap.Error(err))
				sessions.ToParticipant(id, wire.EventError, wire.Error{Message: err.Error()})
				continue
			}
			if isJoin {
				room = join.RoomID
			}
		}
	}
}

func keepalive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, every)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}
