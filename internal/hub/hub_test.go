package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/internal/engine"
	"github.com/DoyleJ11/sketch-party-backend/internal/gateway"
	"github.com/DoyleJ11/sketch-party-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-party-backend/internal/timer"
	"github.com/DoyleJ11/sketch-party-backend/internal/words"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHub(t *testing.T) (*Hub, *timer.Service) {
	t.Helper()
	timers := timer.NewService()
	deps := lobby.Deps{
		Rules:   engine.DefaultRules(),
		Env:     engine.DefaultEnv(words.Default()),
		Gateway: gateway.NewSessions(zap.NewNop()),
		Timers:  timers,
		Logger:  zap.NewNop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, deps), timers
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()

	lb1, err := h.Ensure(ctx, "ZED123")
	require.NoError(t, err)
	lb2, err := h.Ensure(ctx, "ZED123")
	require.NoError(t, err)
	lb3, err := h.Get(ctx, "ZED123")
	require.NoError(t, err)

	require.NotNil(t, lb1)
	assert.Same(t, lb1, lb2)
	assert.Same(t, lb1, lb3)
	assert.Equal(t, "ZED123", lb1.ID())

	missing, err := h.Get(ctx, "NOPE00")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHub_RemoveIsIdentityChecked(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()

	old, err := h.Ensure(ctx, "ROOM01")
	require.NoError(t, err)
	old.Send(lobby.Shutdown{})
	<-old.Done()

	replacement, err := h.Ensure(ctx, "ROOM01")
	require.NoError(t, err)
	assert.NotSame(t, old, replacement)

	h.Remove("ROOM01", old)
	got, err := h.Get(ctx, "ROOM01")
	require.NoError(t, err)
	assert.Same(t, replacement, got)
}

func TestHub_ClosedRoomUnregistersItself(t *testing.T) {
	h, timers := newHub(t)
	ctx := context.Background()

	lb, err := h.Ensure(ctx, "ROOM02")
	require.NoError(t, err)
	ack := make(chan bool, 1)
	lb.Send(lobby.Join{PlayerID: "a", Username: "ann", Reply: ack})
	<-ack
	lb.Send(lobby.Leave{PlayerID: "a"})

	assert.Eventually(t, func() bool {
		got, err := h.Get(ctx, "ROOM02")
		return err == nil && got == nil
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, timers.Len())
}

func TestHub_ShutdownClosesEveryRoom(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()

	var lobbies []*lobby.Lobby
	for _, code := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		lb, err := h.Ensure(ctx, code)
		require.NoError(t, err)
		lobbies = append(lobbies, lb)
	}

	list, err := h.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(sctx))
	for _, lb := range lobbies {
		assert.True(t, lb.Closed())
	}

	_, err = h.Ensure(ctx, "DDDDDD")
	assert.ErrorIs(t, err, context.Canceled)
}
