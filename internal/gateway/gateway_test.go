package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recvFrame(t *testing.T, ch <-chan []byte) types.Envelope {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.True(t, ok, "outbox closed")
		var env types.Envelope
		require.NoError(t, json.Unmarshal(b, &env))
		return env
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for frame")
		return types.Envelope{}
	}
}

func recvNone(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case b, ok := <-ch:
		if ok {
			t.Fatalf("unexpected frame %s", b)
		}
	default:
	}
}

func TestToRoom_OnlyMembers(t *testing.T) {
	s := NewSessions(zap.NewNop())
	a := s.Register("a", 4)
	b := s.Register("b", 4)
	c := s.Register("c", 4)
	s.AddToRoom("R1", "a")
	s.AddToRoom("R1", "b")
	s.AddToRoom("R2", "c")

	s.ToRoom("R1", types.EventTimerUpdate, types.TimerUpdate{Time: 42, Hint: "_ _"})

	for _, ch := range []<-chan []byte{a, b} {
		env := recvFrame(t, ch)
		assert.Equal(t, types.EventTimerUpdate, env.Type)
		assert.JSONEq(t, `{"time":42,"hint":"_ _"}`, string(env.Data))
	}
	recvNone(t, c)
}

func TestToRoomExcept_SkipsSender(t *testing.T) {
	s := NewSessions(zap.NewNop())
	a := s.Register("a", 4)
	b := s.Register("b", 4)
	s.AddToRoom("R1", "a")
	s.AddToRoom("R1", "b")

	s.ToRoomExcept("R1", "a", types.EventDraw, json.RawMessage(`{"x0":1}`))

	recvNone(t, a)
	env := recvFrame(t, b)
	assert.Equal(t, types.EventDraw, env.Type)
	assert.JSONEq(t, `{"x0":1}`, string(env.Data))
}

func TestToParticipant_Private(t *testing.T) {
	s := NewSessions(zap.NewNop())
	a := s.Register("a", 4)
	b := s.Register("b", 4)

	s.ToParticipant("b", types.EventWordChoices, types.WordChoices{Words: []string{"cat"}})
	s.ToParticipant("ghost", types.EventWordChoices, nil)

	recvNone(t, a)
	assert.Equal(t, types.EventWordChoices, recvFrame(t, b).Type)
}

func TestFullOutboxDropsInsteadOfBlocking(t *testing.T) {
	s := NewSessions(zap.NewNop())
	a := s.Register("a", 1)
	s.AddToRoom("R1", "a")

	done := make(chan struct{})
	go func() {
		for range 10 {
			s.ToRoom("R1", types.EventClearCanvas, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a full outbox")
	}
	assert.Len(t, a, 1)
}

func TestUnregister_ClosesOutboxAndLeavesRooms(t *testing.T) {
	s := NewSessions(zap.NewNop())
	a := s.Register("a", 1)
	s.AddToRoom("R1", "a")

	s.Unregister("a")
	_, ok := <-a
	assert.False(t, ok)
	assert.Empty(t, s.Members("R1"))

	s.ToRoom("R1", types.EventClearCanvas, nil)
	s.Unregister("a")
}

func TestCloseRoom_DropsMembership(t *testing.T) {
	s := NewSessions(zap.NewNop())
	a := s.Register("a", 2)
	s.AddToRoom("R1", "a")
	s.RemoveFromRoom("R1", "nobody")
	assert.Equal(t, []string{"a"}, s.Members("R1"))

	s.CloseRoom("R1")
	s.ToRoom("R1", types.EventClearCanvas, nil)
	recvNone(t, a)
}

func TestEncode_EmptyPayloadOmitsData(t *testing.T) {
	b, err := Encode(types.EventClearCanvas, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"clearCanvas"}`, string(b))
}
