// Package types decodes inbound client frames into a closed set of
// validated variants.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	wire "github.com/DoyleJ11/sketch-party-backend/pkg/types"
)

var ErrUnknownType = errors.New("unknown message type")
var ErrMissingField = errors.New("missing field")

const MaxUsernameRunes = 32

// Inbound is one decoded client message. The set of implementations is
// closed: JoinRoom, StartGame, ChooseWord, SubmitGuess, Stroke, ClearCanvas.
type Inbound interface {
	Room() string
	validate() error
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type StartGame struct {
	RoomID      string `json:"roomId"`
	TotalRounds int    `json:"totalRounds"`
}

type ChooseWord struct {
	RoomID string `json:"roomId"`
	Word   string `json:"word"`
}

// SubmitGuess carries the claimed username for compatibility; the server
// attributes guesses to the sending connection.
type SubmitGuess struct {
	RoomID   string `json:"roomId"`
	Guess    string `json:"guess"`
	Username string `json:"username"`
}

// Stroke keeps the raw payload so it can be relayed byte for byte.
type Stroke struct {
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"-"`
}

type ClearCanvas struct {
	RoomID string `json:"roomId"`
}

func (m JoinRoom) Room() string    { return m.RoomID }
func (m StartGame) Room() string   { return m.RoomID }
func (m ChooseWord) Room() string  { return m.RoomID }
func (m SubmitGuess) Room() string { return m.RoomID }
func (m Stroke) Room() string      { return m.RoomID }
func (m ClearCanvas) Room() string { return m.RoomID }

func (m JoinRoom) validate() error {
	if err := required("roomId", m.RoomID); err != nil {
		return err
	}
	return required("username", m.Username)
}

func (m StartGame) validate() error { return required("roomId", m.RoomID) }

func (m ChooseWord) validate() error {
	if err := required("roomId", m.RoomID); err != nil {
		return err
	}
	return required("word", m.Word)
}

func (m SubmitGuess) validate() error {
	if err := required("roomId", m.RoomID); err != nil {
		return err
	}
	if err := required("guess", m.Guess); err != nil {
		return err
	}
	return required("username", m.Username)
}

func (m Stroke) validate() error      { return required("roomId", m.RoomID) }
func (m ClearCanvas) validate() error { return required("roomId", m.RoomID) }

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}

// Decode parses one {type, data} frame.
func Decode(frame []byte) (Inbound, error) {
	var env wire.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("{}")
	}

	var (
		msg Inbound
		err error
	)
	switch env.Type {
	case wire.MsgJoinRoom:
		var m JoinRoom
		err = json.Unmarshal(env.Data, &m)
		m.Username = NormalizeUsername(m.Username)
		msg = m
	case wire.MsgStartGame:
		var m StartGame
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case wire.MsgChooseWord:
		var m ChooseWord
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case wire.MsgGuess:
		var m SubmitGuess
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case wire.MsgDraw:
		var m Stroke
		err = json.Unmarshal(env.Data, &m)
		m.Data = env.Data
		msg = m
	case wire.MsgClearCanvas:
		var m ClearCanvas
		err = json.Unmarshal(env.Data, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if err := msg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Type, err)
	}
	return msg, nil
}

// NormalizeUsername trims surrounding space and caps the length.
func NormalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxUsernameRunes {
		name = string([]rune(name)[:MaxUsernameRunes])
	}
	return name
}
