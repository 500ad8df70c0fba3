package game

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
)

// beginRound installs a freshly fetched question and enters the face-off.
// Rotation cursors advance at the top of every round after the first.
func (m *Machine) beginRound(q *question.Question) {
	m.questionText = q.Text
	m.answers = make([]*Answer, len(q.Answers))
	for i, a := range q.Answers {
		m.answers[i] = &Answer{Index: i, Text: a.Text, Points: a.Points}
	}
	m.pointsOnBoard = 0
	m.strikes = 0
	m.stealAttempted = false
	m.pendingReveal = nil
	m.setControlling(NoTeam)
	for _, t := range m.teams {
		t.RoundScore = 0
	}
	if m.round > 1 {
		m.teams[Team1].faceoffIdx++
		m.teams[Team2].faceoffIdx++
	}
	m.setPhase(PhaseFaceoff)
	m.beginFaceoff()
	m.setMessage("Round %d (x%d) — buzz in!", m.round, Multiplier(m.round))
	m.logTransition("round %d started", m.round)
}

func (m *Machine) setControlling(t TeamID) {
	m.controlling = t
	for _, team := range m.teams {
		team.HasControl = team.ID == t && t != NoTeam
	}
}

// ControllingTeam returns the team currently holding control, or NoTeam.
func (m *Machine) ControllingTeam() TeamID { return m.controlling }

// Strikes returns the current strike count.
func (m *Machine) Strikes() int { return m.strikes }

// PointsOnBoard returns the multiplied sum of revealed answer points.
func (m *Machine) PointsOnBoard() int { return m.pointsOnBoard }

// Answers exposes the live board, used by snapshots and tests.
func (m *Machine) Answers() []*Answer { return m.answers }

// StealAttempted reports whether this round's single steal guess was used.
func (m *Machine) StealAttempted() bool { return m.stealAttempted }

// resolveGuess matches a raw guess against the live board. A match on an
// already-revealed answer counts as a miss so nothing scores twice.
func (m *Machine) resolveGuess(ctx context.Context, raw string) resolver.Match {
	board := make([]question.Answer, len(m.answers))
	for i, a := range m.answers {
		board[i] = question.Answer{Text: a.Text, Points: a.Points}
	}
	match := m.resolver.Resolve(ctx, m.questionText, board, raw)
	if match.Index >= 0 && m.answers[match.Index].Revealed {
		return resolver.NoMatch
	}
	return match
}

// reveal flips one answer and recomputes pointsOnBoard. Idempotent.
func (m *Machine) reveal(index int) {
	if index < 0 || index >= len(m.answers) {
		return
	}
	a := m.answers[index]
	if a.Revealed {
		return
	}
	a.Revealed = true
	m.recomputeBoard()
}

func (m *Machine) recomputeBoard() {
	sum := 0
	for _, a := range m.answers {
		if a.Revealed {
			sum += a.Points
		}
	}
	m.pointsOnBoard = sum * Multiplier(m.round)
	if m.controlling != NoTeam {
		m.teams[m.controlling].RoundScore = m.pointsOnBoard
	}
}

func (m *Machine) allRevealed() bool {
	for _, a := range m.answers {
		if !a.Revealed {
			return false
		}
	}
	return len(m.answers) > 0
}

// RevealAnswer is the host's manual reveal. No-op when already revealed.
// During play, revealing the last hidden answer scores the round.
func (m *Machine) RevealAnswer(index int) {
	switch m.phase {
	case PhaseLobby, PhaseFastMoney, PhaseGameOver:
		return
	}
	if index < 0 || index >= len(m.answers) || m.answers[index].Revealed {
		return
	}
	if m.phase == PhaseRoundEnd {
		// presentation only, scoring is locked in
		m.answers[index].Revealed = true
		m.dropPendingReveal(index)
		if len(m.pendingReveal) == 0 {
			m.schedule(TimerRoundAdvance, m.cfg.RoundAdvanceDelay)
		}
		return
	}
	m.reveal(index)
	if m.phase == PhasePlay && m.allRevealed() {
		m.setMessage("Board cleared! %s takes the round", m.teamName(m.controlling))
		m.awardRound(m.controlling)
	}
}

// SubmitAnswer routes a player's guess to the rule set of the current phase.
func (m *Machine) SubmitAnswer(ctx context.Context, odID, raw string) {
	switch m.phase {
	case PhaseFaceoff:
		m.submitFaceoffAnswer(ctx, odID, raw)
	case PhasePlay:
		m.submitPlayAnswer(ctx, odID, raw)
	case PhaseSteal:
		m.submitStealAnswer(ctx, odID, raw)
	default:
		log.Debug().Str("od_id", odID).Str("phase", string(m.phase)).Msg("submitAnswer dropped, wrong phase")
	}
}

func (m *Machine) submitPlayAnswer(ctx context.Context, odID, raw string) {
	p, ok := m.players[odID]
	if !ok || p.IsSpectator || p.TeamID != m.controlling {
		return
	}
	match := m.resolveGuess(ctx, raw)
	if match.Index < 0 {
		m.applyStrike("%q is not on the board", raw)
		return
	}
	m.reveal(match.Index)
	p.Score += match.Points * Multiplier(m.round)
	m.setMessage("%s got %q for %d!", p.Name, match.MatchedText, match.Points*Multiplier(m.round))
	if m.allRevealed() {
		m.awardRound(m.controlling)
		return
	}
	m.schedule(TimerPlayGuess, m.cfg.PlayGuessTimeout)
}

// applyStrike adds a strike; the third hands the board to the other team
// for the steal.
func (m *Machine) applyStrike(format string, args ...any) {
	if m.strikes >= 3 {
		return
	}
	m.strikes++
	m.setMessage(format, args...)
	m.logTransition("strike %d", m.strikes)
	if m.strikes >= 3 {
		m.enterSteal()
		return
	}
	if m.phase == PhasePlay {
		m.schedule(TimerPlayGuess, m.cfg.PlayGuessTimeout)
	}
}

// AddStrike is the host's manual strike during controlled play.
func (m *Machine) AddStrike() {
	if m.phase != PhasePlay {
		return
	}
	m.applyStrike("Strike!")
}

func (m *Machine) enterSteal() {
	stealer := m.controlling.Other()
	m.setPhase(PhaseSteal)
	m.setMessage("Three strikes! %s, one chance to steal", m.teamName(stealer))
	m.logTransition("steal opportunity for %s", stealer)
	m.schedule(TimerSteal, m.cfg.StealTimeout)
}

func (m *Machine) submitStealAnswer(ctx context.Context, odID, raw string) {
	p, ok := m.players[odID]
	if !ok || p.IsSpectator || p.TeamID != m.controlling.Other() {
		return
	}
	if m.stealAttempted {
		return
	}
	// Set before resolving so a near-simultaneous second guess cannot slip
	// in while this one is being matched.
	m.stealAttempted = true

	original := m.controlling
	match := m.resolveGuess(ctx, raw)
	if match.Index < 0 {
		m.setMessage("No steal! %s keeps %d points", m.teamName(original), m.pointsOnBoard)
		m.logTransition("steal failed")
		m.awardRound(original)
		return
	}
	m.reveal(match.Index)
	p.Score += match.Points * Multiplier(m.round)
	m.setControlling(p.TeamID)
	m.setMessage("%s steals the round with %q!", m.teamName(p.TeamID), match.MatchedText)
	m.logTransition("steal succeeded")
	m.awardRound(p.TeamID)
}

// awardRound banks pointsOnBoard for a team and enters roundEnd. Hidden
// answers are revealed on a staggered delay before the auto-advance.
func (m *Machine) awardRound(team TeamID) {
	t := m.teams[team]
	t.TotalScore += m.pointsOnBoard
	t.RoundScore = m.pointsOnBoard
	m.setControlling(team)
	m.setPhase(PhaseRoundEnd)
	m.logTransition("%s banked %d points", t.Name, m.pointsOnBoard)

	m.pendingReveal = m.pendingReveal[:0]
	for _, a := range m.answers {
		if !a.Revealed {
			m.pendingReveal = append(m.pendingReveal, a.Index)
		}
	}
	if len(m.pendingReveal) > 0 {
		m.schedule(TimerRevealTick, m.cfg.RevealStagger)
	} else {
		m.schedule(TimerRoundAdvance, m.cfg.RoundAdvanceDelay)
	}
}

// revealTick uncovers the next hidden answer during roundEnd pacing.
func (m *Machine) revealTick() {
	if m.phase != PhaseRoundEnd || len(m.pendingReveal) == 0 {
		return
	}
	idx := m.pendingReveal[0]
	m.pendingReveal = m.pendingReveal[1:]
	m.answers[idx].Revealed = true
	if len(m.pendingReveal) > 0 {
		m.schedule(TimerRevealTick, m.cfg.RevealStagger)
	} else {
		m.schedule(TimerRoundAdvance, m.cfg.RoundAdvanceDelay)
	}
}

func (m *Machine) dropPendingReveal(index int) {
	for i, v := range m.pendingReveal {
		if v == index {
			m.pendingReveal = append(m.pendingReveal[:i], m.pendingReveal[i+1:]...)
			return
		}
	}
}

// advanceRound moves from roundEnd to the next face-off, or to gameOver
// after the final round. A failed question fetch keeps the room in roundEnd
// so the host can retry.
func (m *Machine) advanceRound(ctx context.Context) {
	if m.phase != PhaseRoundEnd {
		return
	}
	if m.round >= m.cfg.Rounds {
		m.finishGame("final round complete")
		return
	}
	q, err := m.questions.GetRandom(ctx, RoundConstraints(m.round+1))
	if err != nil {
		log.Warn().Err(err).Int("round", m.round+1).Msg("question fetch failed on round advance")
		m.setMessage("Couldn't load the next question, host can retry")
		return
	}
	m.round++
	m.beginRound(q)
}

// NextRound is the host's manual advance out of roundEnd.
func (m *Machine) NextRound(ctx context.Context) {
	if m.phase != PhaseRoundEnd {
		return
	}
	m.advanceRound(ctx)
}

// EndRound is the host's early termination of the current round. Whoever
// holds control banks the board; with no control yet, nothing scores.
func (m *Machine) EndRound() {
	switch m.phase {
	case PhaseFaceoff, PhasePlayOrPass, PhasePlay, PhaseSteal:
	default:
		return
	}
	if m.controlling != NoTeam {
		m.setMessage("Round ended — %s banks %d", m.teamName(m.controlling), m.pointsOnBoard)
		m.awardRound(m.controlling)
		return
	}
	m.setPhase(PhaseRoundEnd)
	m.setMessage("Round ended")
	m.logTransition("round ended with no control")
	m.schedule(TimerRoundAdvance, m.cfg.RoundAdvanceDelay)
}

// PassControl is the host's override handing the board to the other team
// mid-play. Strikes reset for the new controlling team.
func (m *Machine) PassControl() {
	if m.phase != PhasePlay {
		return
	}
	m.setControlling(m.controlling.Other())
	m.strikes = 0
	m.setMessage("%s now has control", m.teamName(m.controlling))
	m.schedule(TimerPlayGuess, m.cfg.PlayGuessTimeout)
}
