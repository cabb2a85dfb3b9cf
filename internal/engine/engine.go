package engine

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"golang.org/x/text/cases"
)

var ErrWrongPhase = errors.New("wrong phase")
var ErrNotHost = errors.New("not the host")
var ErrAlreadyStarted = errors.New("game already started")
var ErrInvalidRounds = errors.New("invalid round count")
var ErrNotDrawer = errors.New("not the drawer")
var ErrDrawerGuess = errors.New("drawer cannot guess")
var ErrNotOffered = errors.New("word was not offered")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrDuplicatePlayer = errors.New("player already in room")
var ErrAlreadyGuessed = errors.New("already guessed correctly")
var ErrNoActiveWord = errors.New("no active word")
var ErrStaleTimer = errors.New("stale timer")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrRoomClosed = errors.New("room closed")

type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseChoosingWord Phase = "choosing_word"
	PhaseDrawing      Phase = "drawing"
	PhaseRoundOver    Phase = "round_over"
	PhaseGameOver     Phase = "game_over"
)

type Player struct {
	ID       string
	Username string
	Score    int
}

type Rules struct {
	ChoiceCount    int
	ChoiceTimeout  time.Duration
	RoundSeconds   int
	TickInterval   time.Duration
	HintBelow      int // hints start once time left drops under this
	HintEvery      int
	MaxPoints      int
	MinPoints      int
	DecayPerSecond int
	TurnPause      time.Duration
}

type State struct {
	Phase           Phase
	Players         []Player // join order is turn order
	HostID          string
	Started         bool
	DrawerIndex     int
	CurrentWord     string
	WordChoices     []string
	CorrectGuessers map[string]bool
	Revealed        []int // rune indices of CurrentWord, in reveal order
	RoundStartedAt  time.Time
	TimeLeft        int
	TotalRounds     int
	CurrentRound    int
	Turn            int // bumped at every turn start; timer commands must match it
	Rules           Rules
}

// WordSource offers candidate words; Pick returns n distinct words.
type WordSource interface {
	Pick(n int) []string
}

// Env carries the nondeterministic inputs of Apply.
type Env struct {
	Words WordSource
	Intn  func(n int) int
}

type CommandType string

const (
	CmdJoin          CommandType = "Join"
	CmdLeave         CommandType = "Leave"
	CmdStartGame     CommandType = "StartGame"
	CmdChooseWord    CommandType = "ChooseWord"
	CmdGuess         CommandType = "Guess"
	CmdChoiceTimeout CommandType = "ChoiceTimeout"
	CmdTick          CommandType = "Tick"
	CmdBeginTurn     CommandType = "BeginTurn"
)

/*
	CmdJoin          -> EvtRoster (+ private catch-up if a turn is running)
	CmdLeave         -> EvtRoster, or EvtRoomClosed when the last player leaves;
	                    ends the turn when the drawer leaves
	CmdStartGame     -> EvtRoster, EvtGameStarted, then the first turn
	CmdChooseWord    -> EvtChoiceTimerStopped, EvtRoundStarted, EvtRoundTimerStarted
	CmdChoiceTimeout -> EvtAutoPicked, then as CmdChooseWord
	CmdTick          -> EvtTimerUpdate, EvtRoundOver when the clock runs out
	CmdGuess         -> EvtGuess, EvtRoundOver when everyone has guessed
	CmdBeginTurn     -> EvtChoosingWord, EvtWordChoices, EvtChoiceTimerStarted
*/

type Command struct {
	Type     CommandType
	PlayerID string
	Username string
	Text     string // chosen word or guess
	Rounds   int
	Turn     int // the turn a timer was armed for
	At       time.Time
}

type EventType string

const (
	EvtRoster       EventType = "Roster"
	EvtGameStarted  EventType = "GameStarted"
	EvtChoosingWord EventType = "ChoosingWord"
	EvtWordChoices  EventType = "WordChoices"
	EvtAutoPicked   EventType = "AutoPicked"
	EvtRoundStarted EventType = "RoundStarted"
	EvtTimerUpdate  EventType = "TimerUpdate"
	EvtGuess        EventType = "Guess"
	EvtRoundOver    EventType = "RoundOver"
	EvtGameOver     EventType = "GameOver"

	EvtChoiceTimerStarted EventType = "ChoiceTimerStarted"
	EvtChoiceTimerStopped EventType = "ChoiceTimerStopped"
	EvtRoundTimerStarted  EventType = "RoundTimerStarted"
	EvtRoundTimerStopped  EventType = "RoundTimerStopped"
	EvtTurnPauseStarted   EventType = "TurnPauseStarted"
	EvtRoomClosed         EventType = "RoomClosed"
)

type Event struct {
	Type    EventType
	To      string // participant id for private events, empty for the whole room
	Turn    int
	Delay   time.Duration
	Payload any
}

func Apply(env Env, s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseGameOver {
		return nil, s, ErrRoomClosed
	}

	switch cmd.Type {
	case CmdJoin:
		return join(s, cmd)
	case CmdLeave:
		return leave(s, cmd)
	case CmdStartGame:
		return startGame(env, s, cmd)
	case CmdBeginTurn:
		if s.Phase != PhaseRoundOver || cmd.Turn != s.Turn {
			return nil, s, ErrStaleTimer
		}
		events, next := beginTurn(env, s)
		return events, next, nil
	case CmdChooseWord:
		if s.Phase != PhaseChoosingWord {
			return nil, s, ErrWrongPhase
		}
		if s.drawerID() != cmd.PlayerID {
			return nil, s, ErrNotDrawer
		}
		if !slices.Contains(s.WordChoices, cmd.Text) {
			return nil, s, ErrNotOffered
		}
		events, next := beginDrawing(s, cmd.Text, cmd.At)
		return events, next, nil
	case CmdChoiceTimeout:
		if s.Phase != PhaseChoosingWord || cmd.Turn != s.Turn || len(s.WordChoices) == 0 {
			return nil, s, ErrStaleTimer
		}
		word := s.WordChoices[0]
		events := []Event{{
			Type:    EvtAutoPicked,
			To:      s.drawerID(),
			Payload: types.ChatMessage{Username: types.SystemUsername, Message: `Auto-picked "` + word + `".`},
		}}
		drawing, next := beginDrawing(s, word, cmd.At)
		return append(events, drawing...), next, nil
	case CmdTick:
		if s.Phase != PhaseDrawing || cmd.Turn != s.Turn {
			return nil, s, ErrStaleTimer
		}
		events, next := tick(env, s)
		return events, next, nil
	case CmdGuess:
		return guess(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func join(s State, cmd Command) ([]Event, State, error) {
	if cmd.PlayerID == "" {
		return nil, s, ErrUnknownPlayer
	}
	if s.indexOf(cmd.PlayerID) >= 0 {
		return nil, s, ErrDuplicatePlayer
	}

	s.Players = append(slices.Clone(s.Players), Player{ID: cmd.PlayerID, Username: cmd.Username})
	if s.HostID == "" {
		s.HostID = cmd.PlayerID
	}

	events := []Event{roster(s)}

	// Late joiners get the running turn privately; strokes are never replayed.
	switch s.Phase {
	case PhaseChoosingWord:
		events = append(events, Event{Type: EvtChoosingWord, To: cmd.PlayerID, Payload: choosingPayload(s)})
	case PhaseDrawing:
		events = append(events, Event{Type: EvtRoundStarted, To: cmd.PlayerID, Payload: roundStartedPayload(s)})
	}
	return events, s, nil
}

func leave(s State, cmd Command) ([]Event, State, error) {
	idx := s.indexOf(cmd.PlayerID)
	if idx < 0 {
		return nil, s, ErrUnknownPlayer
	}

	inTurn := s.Phase == PhaseChoosingWord || s.Phase == PhaseDrawing
	wasDrawer := inTurn && idx == s.DrawerIndex
	wasHost := s.HostID == cmd.PlayerID

	s = removePlayer(s, idx)
	s.CorrectGuessers = maps.Clone(s.CorrectGuessers)
	delete(s.CorrectGuessers, cmd.PlayerID)

	if len(s.Players) == 0 {
		s.HostID = ""
		s.Phase = PhaseGameOver
		return append(stopTimers(), Event{Type: EvtRoomClosed}), s, nil
	}
	if wasHost {
		s.HostID = s.Players[0].ID
	}

	events := []Event{roster(s)}

	if s.Started && len(s.Players) < 2 {
		events, s = gameOver(s, append(events, stopTimers()...))
		return events, s, nil
	}

	switch {
	case wasDrawer:
		// The next player already slid into the drawer slot.
		more, next := endRound(s, false)
		return append(events, more...), next, nil
	case s.Phase == PhaseDrawing && s.everyoneGuessed():
		more, next := endRound(s, true)
		return append(events, more...), next, nil
	}
	return events, s, nil
}

func startGame(env Env, s State, cmd Command) ([]Event, State, error) {
	if s.Started || s.Phase != PhaseLobby {
		return nil, s, ErrAlreadyStarted
	}
	if cmd.PlayerID != s.HostID {
		return nil, s, ErrNotHost
	}
	if cmd.Rounds < 1 {
		return nil, s, ErrInvalidRounds
	}

	s.Started = true
	s.TotalRounds = cmd.Rounds
	s.CurrentRound = 1
	s.DrawerIndex = 0

	events := []Event{
		roster(s),
		{Type: EvtGameStarted, Payload: types.GameStarted{TotalRounds: s.TotalRounds}},
	}
	more, next := beginTurn(env, s)
	return append(events, more...), next, nil
}

func beginTurn(env Env, s State) ([]Event, State) {
	if s.turnsCompleted() >= s.totalTurns() {
		return gameOver(s, nil)
	}

	s.Turn++
	s.Phase = PhaseChoosingWord
	s.CurrentWord = ""
	s.CorrectGuessers = map[string]bool{}
	s.Revealed = nil
	s.TimeLeft = 0
	s.WordChoices = env.Words.Pick(s.Rules.ChoiceCount)

	return []Event{
		{Type: EvtChoosingWord, Payload: choosingPayload(s)},
		{Type: EvtWordChoices, To: s.drawerID(), Payload: types.WordChoices{Words: slices.Clone(s.WordChoices)}},
		{Type: EvtChoiceTimerStarted, Turn: s.Turn, Delay: s.Rules.ChoiceTimeout},
	}, s
}

func beginDrawing(s State, word string, at time.Time) ([]Event, State) {
	s.Phase = PhaseDrawing
	s.CurrentWord = word
	s.RoundStartedAt = at
	s.TimeLeft = s.Rules.RoundSeconds

	return []Event{
		{Type: EvtChoiceTimerStopped},
		{Type: EvtRoundStarted, Payload: roundStartedPayload(s)},
		{Type: EvtRoundTimerStarted, Turn: s.Turn, Delay: s.Rules.TickInterval},
	}, s
}

func tick(env Env, s State) ([]Event, State) {
	s.TimeLeft--

	if s.TimeLeft < s.Rules.HintBelow && s.TimeLeft%s.Rules.HintEvery == 0 {
		s = revealOne(env, s)
	}

	events := []Event{{Type: EvtTimerUpdate, Payload: types.TimerUpdate{Time: s.TimeLeft, Hint: Hint(s)}}}
	if s.TimeLeft <= 0 {
		more, next := endRound(s, true)
		return append(events, more...), next
	}
	return events, s
}

func guess(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseDrawing {
		return nil, s, ErrWrongPhase
	}
	if s.CurrentWord == "" {
		return nil, s, ErrNoActiveWord
	}
	idx := s.indexOf(cmd.PlayerID)
	if idx < 0 {
		return nil, s, ErrUnknownPlayer
	}
	if idx == s.DrawerIndex {
		return nil, s, ErrDrawerGuess
	}
	if s.CorrectGuessers[cmd.PlayerID] {
		return nil, s, ErrAlreadyGuessed
	}

	username := s.Players[idx].Username
	if !sameWord(cmd.Text, s.CurrentWord) {
		return []Event{{
			Type:    EvtGuess,
			Payload: types.NewGuess{Username: username, Guess: cmd.Text, Correct: false},
		}}, s, nil
	}

	elapsed := int(cmd.At.Sub(s.RoundStartedAt) / time.Second)
	s.Players = slices.Clone(s.Players)
	s.CorrectGuessers = maps.Clone(s.CorrectGuessers)
	if s.CorrectGuessers == nil {
		s.CorrectGuessers = map[string]bool{}
	}
	s.Players[idx].Score += Points(s.Rules, elapsed)
	s.CorrectGuessers[cmd.PlayerID] = true

	events := []Event{{
		Type:    EvtGuess,
		Payload: types.NewGuess{Username: username, Guess: types.CorrectGuessMarker, Correct: true},
	}}
	if s.everyoneGuessed() {
		more, next := endRound(s, true)
		return append(events, more...), next, nil
	}
	return events, s, nil
}

// endRound closes the running turn. advance is false when the drawer left
// and removal already moved the next drawer into place.
func endRound(s State, advance bool) ([]Event, State) {
	events := append(stopTimers(), Event{
		Type:    EvtRoundOver,
		Payload: types.RoundOver{Word: s.CurrentWord, Scores: scores(s.Players)},
	})

	if advance {
		s = advanceDrawer(s)
	}
	s.CurrentWord = ""
	s.WordChoices = nil
	s.TimeLeft = 0

	if s.turnsCompleted() >= s.totalTurns() {
		return gameOver(s, events)
	}

	s.Phase = PhaseRoundOver
	return append(events, Event{Type: EvtTurnPauseStarted, Turn: s.Turn, Delay: s.Rules.TurnPause}), s
}

func gameOver(s State, events []Event) ([]Event, State) {
	s.Phase = PhaseGameOver
	return append(events,
		Event{Type: EvtGameOver, Payload: types.GameOver{Leaderboard: Leaderboard(s.Players)}},
		Event{Type: EvtRoomClosed},
	), s
}

func stopTimers() []Event {
	return []Event{{Type: EvtChoiceTimerStopped}, {Type: EvtRoundTimerStopped}}
}

func roster(s State) Event {
	players := make([]types.PlayerInfo, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, types.PlayerInfo{ID: p.ID, Username: p.Username, Score: p.Score})
	}
	return Event{Type: EvtRoster, Payload: types.RoomUpdate{Players: players, HostID: s.HostID, GameStarted: s.Started}}
}

func choosingPayload(s State) types.ChoosingWord {
	d := s.Players[s.DrawerIndex]
	return types.ChoosingWord{Drawer: d.Username, DrawerID: d.ID, Round: s.CurrentRound}
}

func roundStartedPayload(s State) types.RoundStarted {
	d := s.Players[s.DrawerIndex]
	return types.RoundStarted{Drawer: d.Username, DrawerID: d.ID, Hint: Hint(s), Time: s.TimeLeft, Round: s.CurrentRound}
}

func scores(players []Player) []types.Score {
	out := make([]types.Score, 0, len(players))
	for _, p := range players {
		out = append(out, types.Score{Username: p.Username, Score: p.Score})
	}
	return out
}

// Leaderboard sorts by score, highest first; ties keep join order.
func Leaderboard(players []Player) []types.Score {
	out := scores(players)
	slices.SortStableFunc(out, func(a, b types.Score) int { return b.Score - a.Score })
	return out
}

// Points is the reward for a correct guess elapsed whole seconds into the round.
func Points(r Rules, elapsed int) int {
	if elapsed < 0 {
		elapsed = 0
	}
	return max(r.MinPoints, r.MaxPoints-elapsed*r.DecayPerSecond)
}

func sameWord(guess, word string) bool {
	fold := cases.Fold()
	return fold.String(guess) == fold.String(word)
}
