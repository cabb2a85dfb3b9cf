// Package coordinator is the entry point for inbound player actions. It
// resolves the room each action targets and hands the action to that room's
// lobby, which applies it in order with everything else happening there.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/sketch-party-backend/internal/hub"
	"github.com/DoyleJ11/sketch-party-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-party-backend/internal/types"
	"go.uber.org/zap"
)

var ErrJoinFailed = errors.New("join failed")

// maxJoinAttempts bounds retries when a room closes under a joining player.
const maxJoinAttempts = 3

type Coordinator struct {
	hub    *hub.Hub
	logger *zap.Logger
}

func New(h *hub.Hub, logger *zap.Logger) *Coordinator {
	return &Coordinator{hub: h, logger: logger.Named("coordinator")}
}

// Join seats participantID in roomID, creating the room if it does not
// exist.
func (c *Coordinator) Join(ctx context.Context, participantID, roomID, username string) error {
	for range maxJoinAttempts {
		lb, err := c.hub.Ensure(ctx, roomID)
		if err != nil {
			return err
		}

		ack := make(chan bool, 1)
		if !lb.Send(lobby.Join{PlayerID: participantID, Username: username, Reply: ack}) {
			continue
		}
		select {
		case <-ack:
			return nil
		case <-lb.Done():
			// Closed between lookup and join; the hub replaces it next time.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: room %s kept closing", ErrJoinFailed, roomID)
}

func (c *Coordinator) StartGame(ctx context.Context, participantID, roomID string, rounds int) {
	c.send(ctx, roomID, lobby.StartGame{PlayerID: participantID, Rounds: rounds})
}

func (c *Coordinator) ChooseWord(ctx context.Context, participantID, roomID, word string) {
	c.send(ctx, roomID, lobby.ChooseWord{PlayerID: participantID, Word: word})
}

func (c *Coordinator) Guess(ctx context.Context, participantID, roomID, text string) {
	c.send(ctx, roomID, lobby.Guess{PlayerID: participantID, Text: text})
}

func (c *Coordinator) Stroke(ctx context.Context, participantID, roomID string, data json.RawMessage) {
	c.send(ctx, roomID, lobby.Stroke{PlayerID: participantID, Data: data})
}

func (c *Coordinator) ClearCanvas(ctx context.Context, participantID, roomID string) {
	c.send(ctx, roomID, lobby.ClearCanvas{PlayerID: participantID})
}

// Leave removes participantID from one known room.
func (c *Coordinator) Leave(ctx context.Context, participantID, roomID string) bool {
	lb, err := c.hub.Get(ctx, roomID)
	if err != nil || lb == nil {
		return false
	}
	return leave(ctx, lb, participantID)
}

// Disconnect removes participantID from whichever room seats them. The
// transport does not say which room that is, so every room is asked.
func (c *Coordinator) Disconnect(ctx context.Context, participantID string) (string, bool) {
	lobbies, err := c.hub.List(ctx)
	if err != nil {
		return "", false
	}

	room, found := "", false
	for _, lb := range lobbies {
		if leave(ctx, lb, participantID) && !found {
			room, found = lb.ID(), true
		}
	}
	if found {
		c.logger.Debug("participant left", zap.String("participant", participantID), zap.String("room", room))
	}
	return room, found
}

// Dispatch routes a decoded inbound message to its entry point.
func (c *Coordinator) Dispatch(ctx context.Context, participantID string, msg types.Inbound) error {
	switch m := msg.(type) {
	case types.JoinRoom:
		return c.Join(ctx, participantID, m.RoomID, m.Username)
	case types.StartGame:
		c.StartGame(ctx, participantID, m.RoomID, m.TotalRounds)
	case types.ChooseWord:
		c.ChooseWord(ctx, participantID, m.RoomID, m.Word)
	case types.SubmitGuess:
		c.Guess(ctx, participantID, m.RoomID, m.Guess)
	case types.Stroke:
		c.Stroke(ctx, participantID, m.RoomID, m.Data)
	case types.ClearCanvas:
		c.ClearCanvas(ctx, participantID, m.RoomID)
	default:
		return fmt.Errorf("%w: %T", types.ErrUnknownType, msg)
	}
	return nil
}

// send delivers m to roomID's lobby. Unknown or closed rooms drop it.
func (c *Coordinator) send(ctx context.Context, roomID string, m lobby.Msg) {
	lb, err := c.hub.Get(ctx, roomID)
	if err != nil || lb == nil {
		c.logger.Debug("no such room", zap.String("room", roomID))
		return
	}
	lb.Send(m)
}

func leave(ctx context.Context, lb *lobby.Lobby, participantID string) bool {
	ack := make(chan bool, 1)
	if !lb.Send(lobby.Leave{PlayerID: participantID, Reply: ack}) {
		return false
	}
	select {
	case ok := <-ack:
		return ok
	case <-lb.Done():
		// The lobby may have answered and closed in the same step.
		select {
		case ok := <-ack:
			return ok
		default:
			return false
		}
	case <-ctx.Done():
		return false
	}
}
