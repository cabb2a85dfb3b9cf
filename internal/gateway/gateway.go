package gateway

import (
	"encoding/json"
	"sync"

	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"go.uber.org/zap"
)

// Gateway delivers events to participants and tracks which room each
// participant's session is subscribed to.
type Gateway interface {
	AddToRoom(room, participantID string)
	RemoveFromRoom(room, participantID string)
	CloseRoom(room string)
	ToRoom(room, event string, payload any)
	ToRoomExcept(room, exceptID, event string, payload any)
	ToParticipant(participantID, event string, payload any)
}

// Sessions is the in-memory Gateway. Each registered participant owns a
// buffered outbox that its connection's writer drains. Sends never block:
// a full outbox drops the frame.
type Sessions struct {
	mu     sync.RWMutex
	outbox map[string]chan []byte
	rooms  map[string]map[string]struct{}
	logger *zap.Logger
}

func NewSessions(logger *zap.Logger) *Sessions {
	return &Sessions{
		outbox: make(map[string]chan []byte),
		rooms:  make(map[string]map[string]struct{}),
		logger: logger.Named("gateway"),
	}
}

// Register opens an outbox for participantID. The returned channel is closed
// by Unregister.
func (s *Sessions) Register(participantID string, buffer int) <-chan []byte {
	ch := make(chan []byte, buffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.outbox[participantID]; ok {
		close(old)
	}
	s.outbox[participantID] = ch
	return ch
}

func (s *Sessions) Unregister(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.outbox[participantID]; ok {
		close(ch)
		delete(s.outbox, participantID)
	}
	for room, members := range s.rooms {
		delete(members, participantID)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
}

func (s *Sessions) AddToRoom(room, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		s.rooms[room] = members
	}
	members[participantID] = struct{}{}
}

func (s *Sessions) RemoveFromRoom(room, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.rooms[room]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(s.rooms, room)
		}
	}
}

func (s *Sessions) CloseRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

// Members lists the participants subscribed to room, in no particular order.
func (s *Sessions) Members(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms[room]))
	for id := range s.rooms[room] {
		out = append(out, id)
	}
	return out
}

func (s *Sessions) ToRoom(room, event string, payload any) {
	s.ToRoomExcept(room, "", event, payload)
}

func (s *Sessions) ToRoomExcept(room, exceptID, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		s.logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.rooms[room] {
		if id == exceptID {
			continue
		}
		s.deliver(id, event, frame)
	}
}

func (s *Sessions) ToParticipant(participantID, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		s.logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	s.deliver(participantID, event, frame)
}

// deliver must be called with s.mu held.
func (s *Sessions) deliver(participantID, event string, frame []byte) {
	ch, ok := s.outbox[participantID]
	if !ok {
		return
	}
	select {
	case ch <- frame:
	default:
		s.logger.Warn("outbox full, dropping frame",
			zap.String("participant", participantID),
			zap.String("event", event))
	}
}

// Encode wraps payload in the {type, data} envelope.
func Encode(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(types.Envelope{Type: event, Data: data})
}
