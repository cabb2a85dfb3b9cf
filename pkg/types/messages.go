// Package types holds the wire vocabulary shared by the server and its clients.
//
// Every frame, in both directions, is a JSON text message shaped as
//
//	{"type": "<name>", "data": {...}}
//
// Client -> Server
//
//	joinRoom:    roomId, username
//	startGame:   roomId, totalRounds (host only)
//	chooseWord:  roomId, word (drawer only, one of the offered words)
//	guess:       roomId, guess, username
//	draw:        roomId + segment geometry/style, relayed verbatim
//	clearCanvas: roomId
//
// Server -> Client
//
//	welcome, roomUpdate, gameStarted, choosingWord, wordChoices (private),
//	roundStarted, timerUpdate, newGuess, roundOver, gameOver,
//	chatMessage (private), draw, clearCanvas, error
package types

import "encoding/json"

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound frame types.
const (
	MsgJoinRoom    = "joinRoom"
	MsgStartGame   = "startGame"
	MsgChooseWord  = "chooseWord"
	MsgGuess       = "guess"
	MsgDraw        = "draw"
	MsgClearCanvas = "clearCanvas"
)

// Outbound frame types.
const (
	EventWelcome      = "welcome"
	EventRoomUpdate   = "roomUpdate"
	EventGameStarted  = "gameStarted"
	EventChoosingWord = "choosingWord"
	EventWordChoices  = "wordChoices"
	EventRoundStarted = "roundStarted"
	EventTimerUpdate  = "timerUpdate"
	EventNewGuess     = "newGuess"
	EventRoundOver    = "roundOver"
	EventGameOver     = "gameOver"
	EventChatMessage  = "chatMessage"
	EventDraw         = "draw"
	EventClearCanvas  = "clearCanvas"
	EventError        = "error"
)

// CorrectGuessMarker replaces the guess text of a correct guess so the
// word never travels to the room.
const CorrectGuessMarker = "guessed the word correctly!"

// SystemUsername is the sender of server-authored chat lines.
const SystemUsername = "SYSTEM"

type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type Score struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type Welcome struct {
	ParticipantID string `json:"participantId"`
}

type RoomUpdate struct {
	Players     []PlayerInfo `json:"players"`
	HostID      string       `json:"hostId"`
	GameStarted bool         `json:"gameStarted"`
}

type GameStarted struct {
	TotalRounds int `json:"totalRounds"`
}

type ChoosingWord struct {
	Drawer   string `json:"drawer"`
	DrawerID string `json:"drawerId"`
	Round    int    `json:"round"`
}

type WordChoices struct {
	Words []string `json:"words"`
}

type RoundStarted struct {
	Drawer   string `json:"drawer"`
	DrawerID string `json:"drawerId"`
	Hint     string `json:"hint"`
	Time     int    `json:"time"`
	Round    int    `json:"round"`
}

type TimerUpdate struct {
	Time int    `json:"time"`
	Hint string `json:"hint"`
}

type NewGuess struct {
	Username string `json:"username"`
	Guess    string `json:"guess"`
	Correct  bool   `json:"correct"`
}

type RoundOver struct {
	Word   string  `json:"word"`
	Scores []Score `json:"scores"`
}

type GameOver struct {
	Leaderboard []Score `json:"leaderboard"`
}

type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type Error struct {
	Message string `json:"message"`
}
