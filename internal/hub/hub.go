package hub

import (
	"context"

	"github.com/DoyleJ11/sketch-party-backend/internal/lobby"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// EnsureLobby returns the live lobby for Code, creating it if there is none
// or the registered one has already closed.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby unregisters Code only if it still maps to Lobby, so a closing
// room cannot evict its replacement.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []*lobby.Lobby
}

func (EnsureLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	deps    lobby.Deps
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, deps lobby.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		deps:    deps,
		logger:  deps.Logger.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil && !lb.Closed() {
					msg.Reply <- lb
					break
				}
				code := msg.Code
				lb := lobby.NewLobby(h.ctx, code, h.deps, func(l *lobby.Lobby) { h.Remove(code, l) })
				h.lobbies[code] = lb
				h.logger.Info("room created", zap.String("room", code))
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.logger.Info("room removed", zap.String("room", msg.Code))
				}

			case ListLobbies:
				out := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					out = append(out, lb)
				}
				msg.Reply <- out
			}
		}
	}
}

// request sends m and waits for its reply, giving up when either ctx or the
// hub is done.
func request[T any](ctx context.Context, h *Hub, m HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- m:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ctx.Done():
		return zero, h.ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ctx.Done():
		return zero, h.ctx.Err()
	}
}

func (h *Hub) Ensure(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return request(ctx, h, EnsureLobby{Code: code, Reply: reply}, reply)
}

// Get returns nil without error when no room is registered under code.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return request(ctx, h, GetLobby{Code: code, Reply: reply}, reply)
}

func (h *Hub) List(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	return request(ctx, h, ListLobbies{Reply: reply}, reply)
}

func (h *Hub) Remove(code string, lb *lobby.Lobby) {
	select {
	case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
	case <-h.ctx.Done():
	}
}

// Shutdown closes every room, waits for them to stop, then stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	defer h.cancel()

	lobbies, err := h.List(ctx)
	if err != nil {
		return err
	}
	for _, lb := range lobbies {
		lb.Send(lobby.Shutdown{})
	}
	for _, lb := range lobbies {
		select {
		case <-lb.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.logger.Info("hub stopped", zap.Int("rooms", len(lobbies)))
	return nil
}
