package room

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/game"
	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
)

// Broadcaster pushes payloads to a room's connected clients. Implemented by
// the websocket gateway; sends are best-effort and must never block.
type Broadcaster interface {
	SendTo(roomCode, odID string, payload []byte)
	Broadcast(roomCode string, payload []byte)
	Disconnect(roomCode, odID string)
}

// ServerMessage is the outbound JSON envelope.
type ServerMessage struct {
	Type  string         `json:"type"`
	Event *game.Event    `json:"event,omitempty"`
	State *game.Snapshot `json:"state,omitempty"`
}

type envelope struct {
	from string
	cmd  Command
}

// Room is one live match: a single goroutine consuming commands from the
// inbox, mutating the machine, and broadcasting the result. No other
// goroutine touches the machine.
type Room struct {
	ID   uuid.UUID
	Code string

	machine *game.Machine
	timers  *TimerService
	bc      Broadcaster
	inbox   chan envelope
	logger  zerolog.Logger

	runCtx       context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	onClose      func(*Room)
	closeRequest bool
}

// NewRoom builds a room with its machine and timer service wired together.
func NewRoom(code string, cfg game.Settings, clock clockwork.Clock, questions question.Provider, res *resolver.Resolver, bc Broadcaster, onClose func(*Room)) *Room {
	r := &Room{
		ID:      uuid.New(),
		Code:    code,
		bc:      bc,
		inbox:   make(chan envelope, 256),
		done:    make(chan struct{}),
		onClose: onClose,
		logger:  log.With().Str("room_code", code).Logger(),
	}
	r.timers = NewTimerService(clock, r.deliverTimer)
	r.machine = game.NewMachine(cfg, clock, (*roomHooks)(r), questions, res)
	return r
}

// Machine exposes the state machine. Outside the room goroutine it may only
// be used after Done() is closed.
func (r *Room) Machine() *game.Machine { return r.machine }

// Done is closed when the room loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// Enqueue hands a command to the room loop. Commands are dropped when the
// room is gone or its inbox is saturated; the sender never blocks.
func (r *Room) Enqueue(from string, cmd Command) {
	select {
	case <-r.done:
	case r.inbox <- envelope{from: from, cmd: cmd}:
	default:
		r.logger.Warn().Str("from", from).Msg("room inbox full, dropping command")
	}
}

func (r *Room) deliverTimer(tf TimerFired) {
	r.Enqueue("", tf)
}

// Run is the room's single-writer loop. It exits when the context is
// cancelled, the host ends the game, or the roster empties out.
func (r *Room) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.runCtx = runCtx
	r.cancel = cancel

	defer func() {
		cancel()
		close(r.done)
		if r.onClose != nil {
			r.onClose(r)
		}
	}()

	r.logger.Info().Msg("room started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("room shutting down")
			return
		case env := <-r.inbox:
			r.process(runCtx, env)
			r.broadcastState()
			if r.closeRequest {
				r.logger.Info().Msg("room closed by host")
				return
			}
			if len(r.machine.PlayersInJoinOrder()) == 0 {
				r.logger.Info().Msg("room empty, disposing")
				return
			}
		}
	}
}

// process applies one command. Unauthorized and wrong-phase commands fall
// through as silent no-ops inside the machine; a panic is contained here so
// the room survives in its last consistent state.
func (r *Room) process(ctx context.Context, env envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic in room command processing")
		}
	}()

	m := r.machine
	if hostOnly(env.cmd) && !m.IsHost(env.from) {
		r.logger.Debug().Str("from", env.from).Msg("host-only command from non-host dropped")
		return
	}

	switch c := env.cmd.(type) {
	case Join:
		m.Join(env.from, c.Name, c.Spectator)
	case Leave:
		if c.Consented {
			m.Leave(env.from)
		} else {
			m.Disconnect(env.from)
		}
	case TimerFired:
		m.HandleTimerFired(ctx, c.Mode, c.Key, c.Gen)

	case Buzz:
		m.Buzz(env.from)
	case SubmitAnswer:
		m.SubmitAnswer(ctx, env.from, c.Answer)
	case Ready:
		m.Ready(env.from)
	case SwitchTeam:
		m.SwitchTeam(env.from)
	case ToggleSpectator:
		m.ToggleSpectator(env.from)
	case PlayOrPass:
		m.PlayOrPass(env.from, c.Choice)
	case FastMoneyAnswer:
		m.FastMoneyAnswer(ctx, env.from, c.Answer)

	case StartGame:
		m.StartGame(ctx)
	case NextRound:
		m.NextRound(ctx)
	case RevealAnswer:
		m.RevealAnswer(c.Index)
	case AddStrike:
		m.AddStrike()
	case PassControl:
		m.PassControl()
	case StartFaceoff:
		m.StartFaceoff(c.Player1ID, c.Player2ID)
	case EndRound:
		m.EndRound()
	case SetTeamName:
		m.SetTeamName(c.TeamID, c.Name)
	case StartFastMoney:
		m.StartFastMoney(ctx)
	case SelectFastMoneyPlayers:
		m.SelectFastMoneyPlayers(c.Player1ID, c.Player2ID)
	case StartFastMoneyTimer:
		m.StartFastMoneyTimer()
	case RevealFastMoneyAnswer:
		m.RevealFastMoneyAnswer(c.PlayerNum, c.QuestionIndex)
	case NextFastMoneyQuestion:
		m.NextFastMoneyQuestion()
	case EndFastMoney:
		m.EndFastMoney()
	case PlayAgain:
		m.PlayAgain()
	case EndGame:
		m.EndGame()
		r.closeRequest = true
	case KickPlayer:
		m.KickPlayer(c.SessionID)
	case ShuffleTeams:
		m.ShuffleTeams()

	default:
		r.logger.Warn().Str("from", env.from).Msg("unhandled command type")
	}
}

// broadcastState pushes a per-viewer snapshot to every connected player.
// Host and fast-money redaction make the payload viewer-specific.
func (r *Room) broadcastState() {
	for _, p := range r.machine.PlayersInJoinOrder() {
		if !p.IsConnected {
			continue
		}
		snap := r.machine.Snapshot(game.View{Host: p.IsHost, ViewerID: p.OdID})
		payload, err := json.Marshal(ServerMessage{Type: "state", State: &snap})
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to marshal state snapshot")
			return
		}
		r.bc.SendTo(r.Code, p.OdID, payload)
	}
}

// roomHooks adapts the room to the machine's effect surface. Methods run on
// the room goroutine only.
type roomHooks Room

func (h *roomHooks) Schedule(mode game.TimerMode, key string, d time.Duration) {
	r := (*Room)(h)
	ctx := r.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	r.timers.Schedule(ctx, mode, key, r.machine.Generation(), d)
}

func (h *roomHooks) Cancel(mode game.TimerMode, key string) {
	(*Room)(h).timers.Cancel(mode, key)
}

func (h *roomHooks) Emit(ev game.Event) {
	r := (*Room)(h)
	payload, err := json.Marshal(ServerMessage{Type: "event", Event: &ev})
	if err != nil {
		r.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to marshal event")
		return
	}
	if ev.TargetOdID != "" {
		r.bc.SendTo(r.Code, ev.TargetOdID, payload)
		if ev.Type == game.EventKicked {
			r.bc.Disconnect(r.Code, ev.TargetOdID)
		}
		return
	}
	r.bc.Broadcast(r.Code, payload)
}
