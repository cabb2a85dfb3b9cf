package coordinator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/internal/engine"
	"github.com/DoyleJ11/sketch-party-backend/internal/gateway"
	"github.com/DoyleJ11/sketch-party-backend/internal/hub"
	"github.com/DoyleJ11/sketch-party-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-party-backend/internal/timer"
	"github.com/DoyleJ11/sketch-party-backend/internal/types"
	wire "github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedWords []string

func (w fixedWords) Pick(n int) []string { return append([]string(nil), w[:n]...) }

type fixture struct {
	coord    *Coordinator
	hub      *hub.Hub
	sessions *gateway.Sessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := engine.DefaultRules()
	rules.TickInterval = time.Hour
	rules.ChoiceTimeout = time.Hour
	rules.TurnPause = time.Hour

	sessions := gateway.NewSessions(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, lobby.Deps{
		Rules:   rules,
		Env:     engine.Env{Words: fixedWords{"cat", "dog", "house"}, Intn: func(int) int { return 0 }},
		Gateway: sessions,
		Timers:  timer.NewService(),
		Logger:  zap.NewNop(),
	})
	return &fixture{coord: New(h, zap.NewNop()), hub: h, sessions: sessions}
}

func expect(t *testing.T, ch <-chan []byte, eventType string) wire.Envelope {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case b := <-ch:
			var env wire.Envelope
			require.NoError(t, json.Unmarshal(b, &env))
			if env.Type == eventType {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
			return wire.Envelope{}
		}
	}
}

func (f *fixture) roomView(t *testing.T, code string) (wire.RoomView, bool) {
	t.Helper()
	lb, err := f.hub.Get(context.Background(), code)
	require.NoError(t, err)
	if lb == nil {
		return wire.RoomView{}, false
	}
	reply := make(chan wire.RoomView, 1)
	if !lb.Send(lobby.GetState{Reply: reply}) {
		return wire.RoomView{}, false
	}
	return <-reply, true
}

func TestJoin_CreatesRoomLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.sessions.Register("a", 64)

	require.NoError(t, f.coord.Join(ctx, "a", "ROOM01", "ann"))
	update := expect(t, a, wire.EventRoomUpdate)
	assert.Contains(t, string(update.Data), `"hostId":"a"`)

	require.NoError(t, f.coord.Join(ctx, "b", "ROOM01", "bob"))
	v, ok := f.roomView(t, "ROOM01")
	require.True(t, ok)
	assert.Len(t, v.Players, 2)
}

func TestDispatch_PlaysARound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.sessions.Register("a", 64)
	b := f.sessions.Register("b", 64)

	steps := []struct {
		from string
		msg  types.Inbound
	}{
		{"a", types.JoinRoom{RoomID: "R", Username: "ann"}},
		{"b", types.JoinRoom{RoomID: "R", Username: "bob"}},
		{"a", types.StartGame{RoomID: "R", TotalRounds: 1}},
		{"a", types.ChooseWord{RoomID: "R", Word: "house"}},
		{"b", types.SubmitGuess{RoomID: "R", Guess: "House", Username: "not-bob"}},
	}
	for _, s := range steps {
		require.NoError(t, f.coord.Dispatch(ctx, s.from, s.msg))
	}

	guess := expect(t, a, wire.EventNewGuess)
	assert.JSONEq(t, `{"username":"bob","guess":"guessed the word correctly!","correct":true}`, string(guess.Data))
	over := expect(t, b, wire.EventRoundOver)
	assert.Contains(t, string(over.Data), `"word":"house"`)
}

func TestDispatch_RelaysStrokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sessions.Register("a", 64)
	b := f.sessions.Register("b", 64)
	require.NoError(t, f.coord.Join(ctx, "a", "R", "ann"))
	require.NoError(t, f.coord.Join(ctx, "b", "R", "bob"))

	seg := json.RawMessage(`{"roomId":"R","x0":0,"y0":0,"x1":5,"y1":5,"color":"#000","width":2}`)
	require.NoError(t, f.coord.Dispatch(ctx, "a", types.Stroke{RoomID: "R", Data: seg}))
	env := expect(t, b, wire.EventDraw)
	assert.JSONEq(t, string(seg), string(env.Data))

	require.NoError(t, f.coord.Dispatch(ctx, "a", types.ClearCanvas{RoomID: "R"}))
	expect(t, b, wire.EventClearCanvas)
}

func TestUnknownRoomIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.coord.StartGame(ctx, "a", "GHOST1", 2)
	f.coord.Guess(ctx, "a", "GHOST1", "cat")
	assert.False(t, f.coord.Leave(ctx, "a", "GHOST1"))

	_, ok := f.roomView(t, "GHOST1")
	assert.False(t, ok, "actions other than join must not create rooms")
}

func TestDisconnect_SearchesRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.coord.Join(ctx, "a", "ONE", "ann"))
	require.NoError(t, f.coord.Join(ctx, "b", "TWO", "bob"))
	require.NoError(t, f.coord.Join(ctx, "c", "TWO", "cid"))

	room, ok := f.coord.Disconnect(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "TWO", room)

	v, ok := f.roomView(t, "TWO")
	require.True(t, ok)
	assert.Equal(t, "c", v.HostID)

	_, ok = f.coord.Disconnect(ctx, "nobody")
	assert.False(t, ok)
}

func TestDisconnect_LastPlayerDestroysRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.coord.Join(ctx, "a", "SOLO", "ann"))

	room, ok := f.coord.Disconnect(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "SOLO", room)

	assert.Eventually(t, func() bool {
		_, ok := f.roomView(t, "SOLO")
		return !ok
	}, time.Second, 5*time.Millisecond)

	// Rejoining the same code gets a fresh room.
	require.NoError(t, f.coord.Join(ctx, "b", "SOLO", "bob"))
	v, ok := f.roomView(t, "SOLO")
	require.True(t, ok)
	assert.Equal(t, "b", v.HostID)
}
