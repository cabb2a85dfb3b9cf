package lobby

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/internal/engine"
	"github.com/DoyleJ11/sketch-party-backend/internal/gateway"
	"github.com/DoyleJ11/sketch-party-backend/internal/timer"
	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"go.uber.org/zap"
)

type Msg interface{ isLobbyMsg() }

// Join seats a participant. Reply (buffered) receives true once the join was
// processed by this lobby.
type Join struct {
	PlayerID string
	Username string
	Reply    chan bool
}

// Leave removes a participant. Reply (buffered, optional) reports whether
// the participant was seated here.
type Leave struct {
	PlayerID string
	Reply    chan bool
}

type StartGame struct {
	PlayerID string
	Rounds   int
}

type ChooseWord struct {
	PlayerID string
	Word     string
}

type Guess struct {
	PlayerID string
	Text     string
}

type Stroke struct {
	PlayerID string
	Data     json.RawMessage
}

type ClearCanvas struct{ PlayerID string }

type GetState struct {
	Reply chan types.RoomView
}

type Shutdown struct{}

type choiceExpired struct{ turn int }
type roundTick struct{ turn int }
type turnPauseOver struct{ turn int }

func (Join) isLobbyMsg()          {}
func (Leave) isLobbyMsg()         {}
func (StartGame) isLobbyMsg()     {}
func (ChooseWord) isLobbyMsg()    {}
func (Guess) isLobbyMsg()         {}
func (Stroke) isLobbyMsg()        {}
func (ClearCanvas) isLobbyMsg()   {}
func (GetState) isLobbyMsg()      {}
func (Shutdown) isLobbyMsg()      {}
func (choiceExpired) isLobbyMsg() {}
func (roundTick) isLobbyMsg()     {}
func (turnPauseOver) isLobbyMsg() {}

type Timers interface {
	ScheduleOnce(key timer.Key, delay time.Duration, fn func())
	ScheduleRepeating(key timer.Key, interval time.Duration, fn func())
	Cancel(key timer.Key)
	CancelRoom(room string)
}

// ResultSink receives the final leaderboard of every finished game.
type ResultSink interface {
	Submit(result types.GameResult)
}

type Deps struct {
	Rules   engine.Rules
	Env     engine.Env
	Gateway gateway.Gateway
	Timers  Timers
	Results ResultSink
	Logger  *zap.Logger
	Now     func() time.Time
}

// Lobby owns one room. All state changes happen on its own goroutine, so
// inbound events and timer expirations for a room are applied one at a time.
type Lobby struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	deps    Deps
	logger  *zap.Logger
	onClose func(*Lobby)
	closed  bool
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

var wireNames = map[engine.EventType]string{
	engine.EvtRoster:       types.EventRoomUpdate,
	engine.EvtGameStarted:  types.EventGameStarted,
	engine.EvtChoosingWord: types.EventChoosingWord,
	engine.EvtWordChoices:  types.EventWordChoices,
	engine.EvtAutoPicked:   types.EventChatMessage,
	engine.EvtRoundStarted: types.EventRoundStarted,
	engine.EvtTimerUpdate:  types.EventTimerUpdate,
	engine.EvtGuess:        types.EventNewGuess,
	engine.EvtRoundOver:    types.EventRoundOver,
	engine.EvtGameOver:     types.EventGameOver,
}

// NewLobby starts the room's goroutine. onClose runs once, on that
// goroutine, when the room is torn down.
func NewLobby(parent context.Context, id string, deps Deps, onClose func(*Lobby)) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	l := &Lobby{
		id:      id,
		inbox:   make(chan Msg, 64),
		state:   engine.NewState(deps.Rules),
		deps:    deps,
		logger:  deps.Logger.With(zap.String("room", id)),
		onClose: onClose,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() string { return l.id }

// Done is closed when the lobby has stopped processing messages.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Send enqueues m, reporting false if the lobby has already stopped.
func (l *Lobby) Send(m Msg) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.done:
		return false
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.teardown()
			return

		case m := <-l.inbox:
			if l.handle(m) {
				return
			}
		}
	}
}

// handle processes one message and reports whether the room closed.
func (l *Lobby) handle(m Msg) bool {
	switch msg := m.(type) {
	case Join:
		l.deps.Gateway.AddToRoom(l.id, msg.PlayerID)
		events, _ := l.apply(engine.Command{Type: engine.CmdJoin, PlayerID: msg.PlayerID, Username: msg.Username})
		reply(msg.Reply, true)
		return l.execute(events)

	case Leave:
		events, ok := l.apply(engine.Command{Type: engine.CmdLeave, PlayerID: msg.PlayerID})
		if ok {
			l.deps.Gateway.RemoveFromRoom(l.id, msg.PlayerID)
		}
		reply(msg.Reply, ok)
		return l.execute(events)

	case StartGame:
		events, _ := l.apply(engine.Command{Type: engine.CmdStartGame, PlayerID: msg.PlayerID, Rounds: msg.Rounds})
		return l.execute(events)

	case ChooseWord:
		events, _ := l.apply(engine.Command{Type: engine.CmdChooseWord, PlayerID: msg.PlayerID, Text: msg.Word})
		return l.execute(events)

	case Guess:
		events, _ := l.apply(engine.Command{Type: engine.CmdGuess, PlayerID: msg.PlayerID, Text: msg.Text})
		return l.execute(events)

	case choiceExpired:
		events, _ := l.apply(engine.Command{Type: engine.CmdChoiceTimeout, Turn: msg.turn})
		return l.execute(events)

	case roundTick:
		events, _ := l.apply(engine.Command{Type: engine.CmdTick, Turn: msg.turn})
		return l.execute(events)

	case turnPauseOver:
		events, _ := l.apply(engine.Command{Type: engine.CmdBeginTurn, Turn: msg.turn})
		return l.execute(events)

	case Stroke:
		if l.state.HasPlayer(msg.PlayerID) {
			l.deps.Gateway.ToRoomExcept(l.id, msg.PlayerID, types.EventDraw, msg.Data)
		}

	case ClearCanvas:
		if l.state.HasPlayer(msg.PlayerID) {
			l.deps.Gateway.ToRoomExcept(l.id, msg.PlayerID, types.EventClearCanvas, nil)
		}

	case GetState:
		msg.Reply <- l.view()

	case Shutdown:
		l.teardown()
		return true
	}
	return false
}

// apply runs cmd through the engine. Rejections are expected (stale timers,
// desynchronized clients) and leave the room untouched.
func (l *Lobby) apply(cmd engine.Command) ([]engine.Event, bool) {
	cmd.At = l.deps.Now()
	events, next, err := engine.Apply(l.deps.Env, l.state, cmd)
	if err != nil {
		l.logger.Debug("command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("player", cmd.PlayerID),
			zap.Error(err))
		return nil, false
	}
	l.state = next
	l.version++
	return events, true
}

// execute delivers broadcasts and carries out timer directives, in order.
// It reports whether the room closed.
func (l *Lobby) execute(events []engine.Event) bool {
	closed := false
	for _, e := range events {
		turn := e.Turn
		switch e.Type {
		case engine.EvtChoiceTimerStarted:
			l.deps.Timers.ScheduleOnce(l.key(timer.WordChoice), e.Delay, func() { l.post(choiceExpired{turn: turn}) })
		case engine.EvtChoiceTimerStopped:
			l.deps.Timers.Cancel(l.key(timer.WordChoice))
		case engine.EvtRoundTimerStarted:
			l.deps.Timers.ScheduleRepeating(l.key(timer.Round), e.Delay, func() { l.post(roundTick{turn: turn}) })
		case engine.EvtRoundTimerStopped:
			l.deps.Timers.Cancel(l.key(timer.Round))
		case engine.EvtTurnPauseStarted:
			l.deps.Timers.ScheduleOnce(l.key(timer.TurnPause), e.Delay, func() { l.post(turnPauseOver{turn: turn}) })
		case engine.EvtRoomClosed:
			closed = true
		case engine.EvtGameOver:
			l.record(e.Payload.(types.GameOver))
			l.deliver(e)
		default:
			l.deliver(e)
		}
	}
	if closed {
		l.teardown()
	}
	return closed
}

func (l *Lobby) deliver(e engine.Event) {
	name, ok := wireNames[e.Type]
	if !ok {
		l.logger.Warn("no wire name for event", zap.String("event", string(e.Type)))
		return
	}
	if e.To != "" {
		l.deps.Gateway.ToParticipant(e.To, name, e.Payload)
		return
	}
	l.deps.Gateway.ToRoom(l.id, name, e.Payload)
}

func (l *Lobby) record(over types.GameOver) {
	l.logger.Info("game over", zap.Int("rounds", l.state.TotalRounds), zap.Int("players", len(over.Leaderboard)))
	if l.deps.Results == nil {
		return
	}
	l.deps.Results.Submit(types.GameResult{
		Code:        l.id,
		TotalRounds: l.state.TotalRounds,
		FinishedAt:  l.deps.Now().UnixMilli(),
		Leaderboard: over.Leaderboard,
	})
}

// post is how timer callbacks reach the loop; after teardown it is a no-op.
func (l *Lobby) post(m Msg) {
	select {
	case l.inbox <- m:
	case <-l.done:
	}
}

func (l *Lobby) key(p timer.Purpose) timer.Key {
	return timer.Key{Room: l.id, Purpose: p}
}

func (l *Lobby) teardown() {
	if l.closed {
		return
	}
	l.closed = true
	l.deps.Timers.CancelRoom(l.id)
	l.deps.Gateway.CloseRoom(l.id)
	l.logger.Debug("room closed", zap.Int("version", l.version))
	if l.onClose != nil {
		l.onClose(l)
	}
	l.cancel()
}

func (l *Lobby) view() types.RoomView {
	players := make([]types.PlayerInfo, 0, len(l.state.Players))
	for _, p := range l.state.Players {
		players = append(players, types.PlayerInfo{ID: p.ID, Username: p.Username, Score: p.Score})
	}
	return types.RoomView{
		Code:        l.id,
		Version:     l.version,
		Phase:       string(l.state.Phase),
		HostID:      l.state.HostID,
		GameStarted: l.state.Started,
		Round:       l.state.CurrentRound,
		TotalRounds: l.state.TotalRounds,
		DrawerID:    l.state.DrawerID(),
		Players:     players,
	}
}

func reply(ch chan bool, v bool) {
	if ch == nil {
		return
	}
	select {
	case ch <- v:
	default:
	}
}
