package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/resolver"
)

// FaceoffStage tracks where the buzz-and-answer cycle stands.
type FaceoffStage string

const (
	StageBuzzing      FaceoffStage = "buzzing"
	StageFirstAnswer  FaceoffStage = "firstAnswer"
	StageSecondAnswer FaceoffStage = "secondAnswer"
	StageResolved     FaceoffStage = "resolved"
)

// Faceoff is the buzz-in contest deciding which team chooses to play or
// pass. One representative per team answers; on a double miss the rotation
// advances and the cycle restarts with first-answer rights swapped.
type Faceoff struct {
	Buzzer Buzzer            `json:"buzzer"`
	Stage  FaceoffStage      `json:"stage"`
	Reps   map[TeamID]string `json:"reps"`

	FirstTeam    TeamID `json:"firstTeam,omitempty"`
	FirstPlayer  string `json:"firstPlayer,omitempty"`
	SecondPlayer string `json:"secondPlayer,omitempty"`
	WinnerTeam   TeamID `json:"winnerTeam,omitempty"`
	Cycles       int    `json:"cycles"`

	firstMatch *resolver.Match
}

// Faceoff exposes the current face-off state, nil outside the phase.
func (m *Machine) Faceoff() *Faceoff { return m.faceoff }

// beginFaceoff arms the buzzer with the current rotation representatives.
func (m *Machine) beginFaceoff() {
	m.faceoff = &Faceoff{
		Buzzer: Buzzer{Active: true, Timestamps: make(map[string]time.Time)},
		Stage:  StageBuzzing,
		Reps: map[TeamID]string{
			Team1: m.teams[Team1].representative(m.players),
			Team2: m.teams[Team2].representative(m.players),
		},
	}
}

// representative picks the team's current face-off player: the rotation
// cursor position, skipping disconnected players.
func (t *Team) representative(players map[string]*Player) string {
	n := len(t.Players)
	if n == 0 {
		return ""
	}
	for i := 0; i < n; i++ {
		id := t.Players[(t.faceoffIdx+i)%n]
		if p, ok := players[id]; ok && p.IsConnected {
			return id
		}
	}
	return t.Players[t.faceoffIdx%n]
}

// StartFaceoff lets the host put two specific opposing players at the
// podium, rearming the buzzer.
func (m *Machine) StartFaceoff(player1ID, player2ID string) {
	if m.phase != PhaseFaceoff {
		return
	}
	p1, ok1 := m.players[player1ID]
	p2, ok2 := m.players[player2ID]
	if !ok1 || !ok2 || p1.IsSpectator || p2.IsSpectator || p1.TeamID == p2.TeamID {
		return
	}
	m.beginFaceoff()
	m.faceoff.Reps[p1.TeamID] = player1ID
	m.faceoff.Reps[p2.TeamID] = player2ID
	m.setMessage("%s vs %s — buzz in!", p1.Name, p2.Name)
}

// Buzz arbitrates the buzz-in. The first representative to buzz wins the
// right to answer first; every player's first buzz is timestamped for audit
// but never reorders the winner.
func (m *Machine) Buzz(odID string) {
	f := m.faceoff
	if m.phase != PhaseFaceoff || f == nil || f.Stage != StageBuzzing || !f.Buzzer.Active {
		return
	}
	if _, seen := f.Buzzer.Timestamps[odID]; !seen {
		f.Buzzer.Timestamps[odID] = m.clock.Now()
	}
	if f.Buzzer.Locked {
		return
	}
	p, ok := m.players[odID]
	if !ok || (f.Reps[Team1] != odID && f.Reps[Team2] != odID) {
		return
	}

	f.Buzzer.Active = false
	f.Buzzer.Locked = true
	f.Buzzer.WinnerID = odID
	f.FirstTeam = p.TeamID
	f.FirstPlayer = odID
	f.SecondPlayer = f.Reps[p.TeamID.Other()]
	f.Stage = StageFirstAnswer
	m.setMessage("%s buzzed in first!", p.Name)
	m.hooks.Emit(Event{Type: EventBuzzerWinner, Data: map[string]any{"odId": odID, "name": p.Name}})
}

// submitFaceoffAnswer runs one leg of the two-answer cycle. The same
// procedure serves the initial buzz pair and every alternation after a
// double miss; only who answers first changes.
func (m *Machine) submitFaceoffAnswer(ctx context.Context, odID, raw string) {
	f := m.faceoff
	if f == nil {
		return
	}
	switch f.Stage {
	case StageFirstAnswer:
		if odID != f.FirstPlayer {
			return
		}
		match := m.resolveGuess(ctx, raw)
		if match.Index == 0 {
			// top answer wins outright, no second chance
			m.reveal(match.Index)
			m.finishFaceoff(f.FirstPlayer, match)
			return
		}
		if match.Index > 0 {
			m.reveal(match.Index)
			f.firstMatch = &match
			m.setMessage("%s found %q — %s, can you beat it?",
				m.playerName(f.FirstPlayer), match.MatchedText, m.playerName(f.SecondPlayer))
		} else {
			f.firstMatch = nil
			m.setMessage("Not on the board — %s, your turn", m.playerName(f.SecondPlayer))
		}
		f.Stage = StageSecondAnswer

	case StageSecondAnswer:
		if odID != f.SecondPlayer {
			return
		}
		match := m.resolveGuess(ctx, raw)
		if match.Index >= 0 {
			m.reveal(match.Index)
		}
		switch {
		case match.Index >= 0 && (f.firstMatch == nil || match.Index < f.firstMatch.Index):
			// strictly better rank, or the only match at all
			m.finishFaceoff(f.SecondPlayer, match)
		case f.firstMatch != nil:
			m.finishFaceoff(f.FirstPlayer, *f.firstMatch)
		default:
			m.alternateFaceoff()
		}

	default:
		log.Debug().Str("od_id", odID).Str("stage", string(f.Stage)).Msg("faceoff answer dropped")
	}
}

// alternateFaceoff handles the both-miss case: each team's rotation cursor
// advances one, and the team that just answered second answers first in the
// next cycle.
func (m *Machine) alternateFaceoff() {
	f := m.faceoff
	m.teams[Team1].faceoffIdx++
	m.teams[Team2].faceoffIdx++
	f.Reps[Team1] = m.teams[Team1].representative(m.players)
	f.Reps[Team2] = m.teams[Team2].representative(m.players)

	f.FirstTeam = f.FirstTeam.Other()
	f.FirstPlayer = f.Reps[f.FirstTeam]
	f.SecondPlayer = f.Reps[f.FirstTeam.Other()]
	f.firstMatch = nil
	f.Stage = StageFirstAnswer
	f.Cycles++
	m.setMessage("Both missed! %s answers first now", m.playerName(f.FirstPlayer))
	m.logTransition("faceoff alternation %d", f.Cycles)
}

// finishFaceoff credits the winner's personal score for their matched
// answer and hands the play-or-pass choice to their team.
func (m *Machine) finishFaceoff(winnerID string, match resolver.Match) {
	f := m.faceoff
	p := m.players[winnerID]
	if p == nil {
		return
	}
	f.Stage = StageResolved
	f.WinnerTeam = p.TeamID
	if match.Index >= 0 {
		p.Score += match.Points * Multiplier(m.round)
	}
	m.setPhase(PhasePlayOrPass)
	m.setMessage("%s wins the face-off — play or pass?", m.teamName(p.TeamID))
	m.logTransition("faceoff won by %s", p.Name)
	m.hooks.Emit(Event{Type: EventAwaitingPlayOrPass, Data: map[string]any{"teamId": p.TeamID}})
}

// PlayOrPass is the winning team's choice after the face-off. Any member of
// the winning team may answer; everyone else is ignored.
func (m *Machine) PlayOrPass(odID, choice string) {
	if m.phase != PhasePlayOrPass || m.faceoff == nil || m.faceoff.WinnerTeam == NoTeam {
		return
	}
	p, ok := m.players[odID]
	if !ok || p.IsSpectator || p.TeamID != m.faceoff.WinnerTeam {
		return
	}
	var control TeamID
	switch choice {
	case "play":
		control = m.faceoff.WinnerTeam
	case "pass":
		control = m.faceoff.WinnerTeam.Other()
	default:
		return
	}
	m.setControlling(control)
	m.strikes = 0
	m.setPhase(PhasePlay)
	m.recomputeBoard()
	m.setMessage("%s has control of the board", m.teamName(control))
	m.logTransition("%s chose to %s", m.teamName(m.faceoff.WinnerTeam), choice)
	m.schedule(TimerPlayGuess, m.cfg.PlayGuessTimeout)
}

// repairFaceoff keeps the contest coherent when a participant is removed.
func (m *Machine) repairFaceoff(odID string) {
	f := m.faceoff
	if f == nil || m.phase != PhaseFaceoff {
		return
	}
	if f.Reps[Team1] == odID || f.Reps[Team2] == odID ||
		f.FirstPlayer == odID || f.SecondPlayer == odID {
		m.beginFaceoff()
		m.setMessage("Face-off restarted")
	}
}

func (m *Machine) playerName(odID string) string {
	if p, ok := m.players[odID]; ok {
		return p.Name
	}
	return odID
}
