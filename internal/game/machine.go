package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
)

// Machine owns the canonical state of one match and applies every rule
// transition. It is not safe for concurrent use: the owning room goroutine
// is the only caller (see internal/room).
type Machine struct {
	cfg       Settings
	clock     clockwork.Clock
	hooks     Hooks
	questions question.Provider
	resolver  *resolver.Resolver
	rng       *rand.Rand

	phase      Phase
	generation uint64
	round      int
	message    string

	teams     map[TeamID]*Team
	players   map[string]*Player
	joinOrder []string
	hostID    string

	questionText   string
	answers        []*Answer
	pointsOnBoard  int
	strikes        int
	controlling    TeamID
	stealAttempted bool
	pendingReveal  []int

	faceoff   *Faceoff
	fastMoney *FastMoney

	timer  TimerState
	events EventLog
	played bool
}

// NewMachine creates a lobby-phase machine with two empty teams.
func NewMachine(cfg Settings, clock clockwork.Clock, hooks Hooks, questions question.Provider, res *resolver.Resolver) *Machine {
	return &Machine{
		cfg:       cfg,
		clock:     clock,
		hooks:     hooks,
		questions: questions,
		resolver:  res,
		rng:       rand.New(rand.NewSource(clock.Now().UnixNano())),
		phase:     PhaseLobby,
		teams: map[TeamID]*Team{
			Team1: {ID: Team1, Name: "Team 1", Players: []string{}},
			Team2: {ID: Team2, Name: "Team 2", Players: []string{}},
		},
		players: make(map[string]*Player),
		message: "Waiting for players",
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Generation returns the live timer generation. A timer scheduled under an
// older generation must be ignored when it fires.
func (m *Machine) Generation() uint64 { return m.generation }

// Round returns the current board round, 1-based (0 in the lobby).
func (m *Machine) Round() int { return m.round }

// Message returns the last human-readable status line.
func (m *Machine) Message() string { return m.message }

// HostID returns the odID of the current host, or "".
func (m *Machine) HostID() string { return m.hostID }

// IsHost reports whether odID is the room's host.
func (m *Machine) IsHost(odID string) bool { return odID != "" && odID == m.hostID }

// Played reports whether the room ever left the lobby. Guards stats
// persistence at disposal.
func (m *Machine) Played() bool { return m.played }

// Team returns the team with the given id.
func (m *Machine) Team(id TeamID) *Team { return m.teams[id] }

// Player returns the player with the given odID, or nil.
func (m *Machine) Player(odID string) *Player { return m.players[odID] }

// ConnectedCount returns the number of currently connected players,
// spectators included.
func (m *Machine) ConnectedCount() int {
	n := 0
	for _, p := range m.players {
		if p.IsConnected {
			n++
		}
	}
	return n
}

// WinningTeam returns the team id with the higher total score, or NoTeam on
// a tie.
func (m *Machine) WinningTeam() TeamID {
	t1, t2 := m.teams[Team1], m.teams[Team2]
	switch {
	case t1.TotalScore > t2.TotalScore:
		return Team1
	case t2.TotalScore > t1.TotalScore:
		return Team2
	}
	return NoTeam
}

// PlayersInJoinOrder returns all players, stable by join order.
func (m *Machine) PlayersInJoinOrder() []*Player {
	out := make([]*Player, 0, len(m.joinOrder))
	for _, id := range m.joinOrder {
		if p, ok := m.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// setPhase performs a phase transition: it bumps the timer generation so any
// outstanding phase timers become stale, and clears the visible timer.
func (m *Machine) setPhase(p Phase) {
	if m.phase != p {
		log.Debug().Str("from", string(m.phase)).Str("to", string(p)).Msg("phase transition")
	}
	m.phase = p
	m.generation++
	m.timer = TimerState{}
}

// schedule arms the room's phase timer with the live generation.
func (m *Machine) schedule(mode TimerMode, d time.Duration) {
	m.timer = TimerState{
		Active:     true,
		Mode:       mode,
		Deadline:   m.clock.Now().Add(d),
		Generation: m.generation,
	}
	m.hooks.Schedule(mode, "", d)
}

func (m *Machine) setMessage(format string, args ...any) {
	m.message = fmt.Sprintf(format, args...)
}

func (m *Machine) logTransition(format string, args ...any) {
	m.events = append(m.events, EventLogEntry{
		At:      m.clock.Now(),
		Phase:   m.phase,
		Round:   m.round,
		Message: fmt.Sprintf(format, args...),
	})
}

// teamName returns the display name for a team id.
func (m *Machine) teamName(id TeamID) string {
	if t, ok := m.teams[id]; ok {
		return t.Name
	}
	return string(id)
}

// smallerTeam returns the team with fewer rostered players, team1 on ties.
func (m *Machine) smallerTeam() *Team {
	if len(m.teams[Team2].Players) < len(m.teams[Team1].Players) {
		return m.teams[Team2]
	}
	return m.teams[Team1]
}

// Join creates a new player or rehydrates a disconnected one by stable
// identity. The first joiner becomes host; non-spectators land on the team
// with fewer players.
func (m *Machine) Join(odID, name string, spectator bool) {
	if p, ok := m.players[odID]; ok {
		p.IsConnected = true
		if name != "" {
			p.Name = name
		}
		m.hooks.Cancel(TimerReconnect, odID)
		m.setMessage("%s reconnected", p.Name)
		m.hooks.Emit(Event{Type: EventPlayerJoined, Data: map[string]any{"odId": p.OdID, "name": p.Name, "reconnected": true}})
		log.Info().Str("od_id", odID).Msg("player reconnected")
		return
	}

	p := &Player{
		OdID:        odID,
		Name:        name,
		IsConnected: true,
		IsSpectator: spectator,
	}
	if m.hostID == "" {
		// host cannot be a spectator
		p.IsHost = true
		p.IsSpectator = false
		m.hostID = odID
	}
	if !p.IsSpectator {
		t := m.smallerTeam()
		p.TeamID = t.ID
		t.Players = append(t.Players, odID)
	}
	m.players[odID] = p
	m.joinOrder = append(m.joinOrder, odID)
	m.setMessage("%s joined", p.Name)
	m.hooks.Emit(Event{Type: EventPlayerJoined, Data: map[string]any{"odId": p.OdID, "name": p.Name}})
	log.Info().Str("od_id", odID).Str("team", string(p.TeamID)).Bool("host", p.IsHost).Msg("player joined")
}

// Disconnect marks a player disconnected and opens the reconnection grace
// window. If the host drops, a new host is assigned immediately so host-only
// messages never hit a headless room.
func (m *Machine) Disconnect(odID string) {
	p, ok := m.players[odID]
	if !ok || !p.IsConnected {
		return
	}
	p.IsConnected = false
	m.hooks.Schedule(TimerReconnect, odID, m.cfg.ReconnectGrace)
	m.setMessage("%s disconnected", p.Name)
	if m.hostID == odID {
		m.reassignHost()
	}
	log.Info().Str("od_id", odID).Msg("player disconnected, grace window started")
}

// Leave removes a player immediately (consented departure).
func (m *Machine) Leave(odID string) {
	m.removePlayer(odID)
}

// removePlayer deletes a player from the roster and repairs anything that
// referenced them.
func (m *Machine) removePlayer(odID string) {
	p, ok := m.players[odID]
	if !ok {
		return
	}
	if p.TeamID != NoTeam {
		m.teams[p.TeamID].removePlayer(odID)
	}
	delete(m.players, odID)
	for i, id := range m.joinOrder {
		if id == odID {
			m.joinOrder = append(m.joinOrder[:i], m.joinOrder[i+1:]...)
			break
		}
	}
	if m.hostID == odID {
		m.hostID = ""
		m.reassignHost()
	}
	if m.faceoff != nil {
		m.repairFaceoff(odID)
	}
	m.setMessage("%s left", p.Name)
	log.Info().Str("od_id", odID).Msg("player removed")
}

// reassignHost hands the host role to the first remaining connected
// participant in join order. When only spectators are left, the first one is
// promoted onto the smaller team so the host always belongs to a team.
func (m *Machine) reassignHost() {
	if old, ok := m.players[m.hostID]; ok {
		old.IsHost = false
	}
	m.hostID = ""
	p := m.firstConnected(false)
	if p == nil {
		p = m.firstConnected(true)
	}
	if p == nil {
		return
	}
	if p.IsSpectator {
		p.IsSpectator = false
		t := m.smallerTeam()
		p.TeamID = t.ID
		t.Players = append(t.Players, p.OdID)
	}
	p.IsHost = true
	m.hostID = p.OdID
	m.setMessage("%s is now the host", p.Name)
	m.hooks.Emit(Event{Type: EventHostChanged, Data: map[string]any{"odId": p.OdID, "name": p.Name}})
	log.Info().Str("od_id", p.OdID).Msg("host reassigned")
}

func (m *Machine) firstConnected(spectator bool) *Player {
	for _, id := range m.joinOrder {
		if p, ok := m.players[id]; ok && p.IsConnected && p.IsSpectator == spectator {
			return p
		}
	}
	return nil
}

// Ready toggles a player's lobby ready flag.
func (m *Machine) Ready(odID string) {
	if m.phase != PhaseLobby {
		return
	}
	p, ok := m.players[odID]
	if !ok || p.IsSpectator {
		return
	}
	p.IsReady = !p.IsReady
}

// SwitchTeam moves a player to the opposing team. Lobby only; clears ready.
func (m *Machine) SwitchTeam(odID string) {
	if m.phase != PhaseLobby {
		return
	}
	p, ok := m.players[odID]
	if !ok || p.IsSpectator || p.TeamID == NoTeam {
		return
	}
	from := m.teams[p.TeamID]
	to := m.teams[p.TeamID.Other()]
	from.removePlayer(odID)
	to.Players = append(to.Players, odID)
	p.TeamID = to.ID
	p.IsReady = false
}

// ToggleSpectator flips a player between spectator and participant. Allowed
// in lobby and gameOver; the host cannot spectate.
func (m *Machine) ToggleSpectator(odID string) {
	if m.phase != PhaseLobby && m.phase != PhaseGameOver {
		return
	}
	p, ok := m.players[odID]
	if !ok || p.IsHost {
		return
	}
	if p.IsSpectator {
		p.IsSpectator = false
		t := m.smallerTeam()
		p.TeamID = t.ID
		t.Players = append(t.Players, odID)
	} else {
		if p.TeamID != NoTeam {
			m.teams[p.TeamID].removePlayer(odID)
		}
		p.TeamID = NoTeam
		p.IsSpectator = true
		p.IsReady = false
	}
}

// KickPlayer removes a player at the host's request. Lobby only.
func (m *Machine) KickPlayer(odID string) {
	if m.phase != PhaseLobby {
		return
	}
	p, ok := m.players[odID]
	if !ok || p.IsHost {
		return
	}
	name := p.Name
	m.hooks.Emit(Event{Type: EventKicked, TargetOdID: odID})
	m.removePlayer(odID)
	m.setMessage("%s was kicked", name)
	m.hooks.Emit(Event{Type: EventPlayerKicked, Data: map[string]any{"odId": odID, "name": name}})
}

// ShuffleTeams randomly rebalances all non-spectators. Lobby only; resets
// ready flags for everyone moved.
func (m *Machine) ShuffleTeams() {
	if m.phase != PhaseLobby {
		return
	}
	var pool []string
	for _, id := range m.joinOrder {
		p, ok := m.players[id]
		if !ok || p.IsSpectator {
			continue
		}
		pool = append(pool, id)
	}
	m.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for _, t := range m.teams {
		t.Players = t.Players[:0]
		t.faceoffIdx = 0
	}
	for i, id := range pool {
		t := m.teams[Team1]
		if i%2 == 1 {
			t = m.teams[Team2]
		}
		t.Players = append(t.Players, id)
		p := m.players[id]
		p.TeamID = t.ID
		p.IsReady = false
	}
	m.setMessage("Teams shuffled")
	m.hooks.Emit(Event{Type: EventTeamsShuffled})
}

// SetTeamName renames a team. Rejected once the game is over.
func (m *Machine) SetTeamName(id TeamID, name string) {
	if m.phase == PhaseGameOver {
		return
	}
	t, ok := m.teams[id]
	if !ok || name == "" {
		return
	}
	if len(name) > 30 {
		name = name[:30]
	}
	t.Name = name
}

// StartGame begins round 1. Requires at least one player on each team and
// every connected participant ready. A question-fetch failure leaves the
// room in the lobby with a host-visible message.
func (m *Machine) StartGame(ctx context.Context) {
	if m.phase != PhaseLobby {
		return
	}
	if len(m.teams[Team1].Players) == 0 || len(m.teams[Team2].Players) == 0 {
		m.setMessage("Both teams need at least one player")
		return
	}
	for _, p := range m.players {
		if p.IsConnected && !p.IsSpectator && !p.IsReady && !p.IsHost {
			m.setMessage("Waiting for everyone to be ready")
			return
		}
	}

	q, err := m.questions.GetRandom(ctx, RoundConstraints(1))
	if err != nil {
		log.Warn().Err(err).Msg("question fetch failed on startGame")
		m.setMessage("Couldn't load a question, try starting again")
		return
	}

	for _, t := range m.teams {
		t.TotalScore = 0
		t.RoundScore = 0
		t.faceoffIdx = 0
	}
	for _, p := range m.players {
		p.Score = 0
	}
	m.played = true
	m.round = 1
	m.beginRound(q)
}

// PlayAgain resets the match back to the lobby, keeping the roster.
func (m *Machine) PlayAgain() {
	if m.phase != PhaseGameOver {
		return
	}
	for _, t := range m.teams {
		t.TotalScore = 0
		t.RoundScore = 0
		t.HasControl = false
		t.faceoffIdx = 0
	}
	for _, p := range m.players {
		p.Score = 0
		p.IsReady = false
	}
	m.round = 0
	m.questionText = ""
	m.answers = nil
	m.pointsOnBoard = 0
	m.strikes = 0
	m.controlling = NoTeam
	m.stealAttempted = false
	m.pendingReveal = nil
	m.faceoff = nil
	m.fastMoney = nil
	m.setPhase(PhaseLobby)
	m.setMessage("Back to the lobby")
	m.logTransition("play again")
	m.hooks.Emit(Event{Type: EventPlayAgain})
}

// EndGame force-ends the match. The caller (room) disposes the room after
// the final broadcast.
func (m *Machine) EndGame() {
	if m.phase == PhaseGameOver {
		return
	}
	m.finishGame("Game ended by host")
}

// finishGame moves to gameOver and announces the result.
func (m *Machine) finishGame(reason string) {
	m.setControlling(NoTeam)
	m.setPhase(PhaseGameOver)
	winner := m.WinningTeam()
	if winner == NoTeam {
		m.setMessage("It's a tie!")
	} else {
		m.setMessage("%s wins with %d points!", m.teamName(winner), m.teams[winner].TotalScore)
	}
	m.logTransition("%s", reason)
	m.hooks.Emit(Event{Type: EventGameEnded, Data: map[string]any{
		"winningTeam": winner,
		"scores": map[TeamID]int{
			Team1: m.teams[Team1].TotalScore,
			Team2: m.teams[Team2].TotalScore,
		},
	}})
}

// HandleTimerFired processes a timer callback delivered through the room
// inbox. Phase timers carry the generation captured at scheduling time and
// are dropped silently when stale; reconnect timers are validated against
// the player's live connection state instead.
func (m *Machine) HandleTimerFired(ctx context.Context, mode TimerMode, key string, gen uint64) {
	if mode == TimerReconnect {
		p, ok := m.players[key]
		if ok && !p.IsConnected {
			m.removePlayer(key)
		}
		return
	}
	if gen != m.generation {
		log.Debug().Str("mode", string(mode)).Uint64("gen", gen).Uint64("live", m.generation).Msg("stale timer dropped")
		return
	}

	switch mode {
	case TimerPlayGuess:
		if m.phase == PhasePlay {
			m.applyStrike("Time's up")
		}
	case TimerSteal:
		if m.phase == PhaseSteal && !m.stealAttempted {
			m.stealAttempted = true
			m.setMessage("Time's up! %s keeps the board", m.teamName(m.controlling))
			m.awardRound(m.controlling)
		}
	case TimerRevealTick:
		m.revealTick()
	case TimerRoundAdvance:
		if m.phase == PhaseRoundEnd {
			m.advanceRound(ctx)
		}
	case TimerFastMoney:
		m.fastMoneyTimeUp()
	}
}
