package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/question"
)

// FastMoneyAnswer is one filled slot of a player's five answers.
type FastMoneyAnswer struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
	Points        int    `json:"points"`
	Revealed      bool   `json:"revealed"`

	// resolved rank within the question's answer list, -1 on a miss.
	// Used for the duplicate rule, never sent to clients.
	matchIndex int
}

// FastMoney is the bonus-round sub-state: two players, five timed questions
// each, a shared 200-point team threshold.
type FastMoney struct {
	Questions            []*question.Question
	CurrentPlayer        int // 1 or 2
	CurrentQuestionIndex int
	Player1ID            string
	Player2ID            string
	Answers              [2][]FastMoneyAnswer
	Totals               [2]int
	TimerSeconds         int
	TimerRunning         bool
	TriggerTeam          TeamID
}

// FastMoney exposes the bonus-round state, nil outside the phase.
func (m *Machine) FastMoney() *FastMoney { return m.fastMoney }

func (fm *FastMoney) currentPlayerID() string {
	if fm.CurrentPlayer == 2 {
		return fm.Player2ID
	}
	return fm.Player1ID
}

// StartFastMoney loads the five bonus questions and enters the bonus round.
// The team leading on total score entering the round is the one the bonus
// can pay out to.
func (m *Machine) StartFastMoney(ctx context.Context) {
	if m.phase != PhaseRoundEnd && m.phase != PhaseGameOver {
		return
	}
	qs := make([]*question.Question, 0, m.cfg.FastMoneyQuestions)
	for len(qs) < m.cfg.FastMoneyQuestions {
		q, err := m.questions.GetRandom(ctx, question.Constraints{})
		if err != nil {
			log.Warn().Err(err).Msg("question fetch failed on startFastMoney")
			m.setMessage("Couldn't load Fast Money questions, try again")
			return
		}
		qs = append(qs, q)
	}

	trigger := m.WinningTeam()
	if trigger == NoTeam {
		trigger = Team1
	}
	m.fastMoney = &FastMoney{
		Questions:     qs,
		CurrentPlayer: 1,
		TriggerTeam:   trigger,
	}
	m.setPhase(PhaseFastMoney)
	m.setMessage("Fast Money! Host, pick two players")
	m.logTransition("fast money started for %s", trigger)
}

// SelectFastMoneyPlayers picks the two contestants.
func (m *Machine) SelectFastMoneyPlayers(player1ID, player2ID string) {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil || fm.TimerRunning {
		return
	}
	p1, ok1 := m.players[player1ID]
	p2, ok2 := m.players[player2ID]
	if !ok1 || !ok2 || player1ID == player2ID || p1.IsSpectator || p2.IsSpectator {
		return
	}
	fm.Player1ID = player1ID
	fm.Player2ID = player2ID
	m.setMessage("%s goes first, %s steps away", p1.Name, p2.Name)
}

// StartFastMoneyTimer opens the current player's answer window: 20s for
// player 1, 25s for player 2.
func (m *Machine) StartFastMoneyTimer() {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil || fm.TimerRunning {
		return
	}
	if fm.Player1ID == "" || fm.Player2ID == "" {
		m.setMessage("Pick two players first")
		return
	}
	if len(fm.Answers[fm.CurrentPlayer-1]) >= len(fm.Questions) {
		return
	}
	d := m.cfg.FastMoneyPlayer1Time
	if fm.CurrentPlayer == 2 {
		d = m.cfg.FastMoneyPlayer2Time
	}
	fm.TimerSeconds = int(d / time.Second)
	fm.TimerRunning = true
	fm.CurrentQuestionIndex = len(fm.Answers[fm.CurrentPlayer-1])
	m.schedule(TimerFastMoney, d)
	m.setMessage("%s — go!", m.playerName(fm.currentPlayerID()))
}

// FastMoneyAnswer accepts the active player's answer to the current slot.
// It resolves against that question's own answer list, never the live
// board. A player-2 answer duplicating player 1's scores zero.
func (m *Machine) FastMoneyAnswer(ctx context.Context, odID, raw string) {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil || !fm.TimerRunning {
		return
	}
	if odID != fm.currentPlayerID() {
		return
	}
	qi := fm.CurrentQuestionIndex
	if qi >= len(fm.Questions) {
		return
	}
	q := fm.Questions[qi]
	match := m.resolver.Resolve(ctx, q.Text, q.Answers, raw)

	ans := FastMoneyAnswer{
		QuestionIndex: qi,
		Answer:        raw,
		Points:        0,
		matchIndex:    match.Index,
	}
	if match.Index >= 0 {
		ans.Answer = match.MatchedText
		ans.Points = match.Points
		if fm.CurrentPlayer == 2 && m.isFastMoneyDuplicate(qi, match.Index) {
			ans.Points = 0
		}
	}
	fm.Answers[fm.CurrentPlayer-1] = append(fm.Answers[fm.CurrentPlayer-1], ans)
	m.advanceFastMoneySlot()
}

func (m *Machine) isFastMoneyDuplicate(questionIndex, matchIndex int) bool {
	for _, a := range m.fastMoney.Answers[0] {
		if a.QuestionIndex == questionIndex && a.matchIndex == matchIndex && a.matchIndex >= 0 {
			return true
		}
	}
	return false
}

// NextFastMoneyQuestion lets the host skip the active player's current
// question; the slot is recorded as an empty zero-point answer.
func (m *Machine) NextFastMoneyQuestion() {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil || !fm.TimerRunning {
		return
	}
	if fm.CurrentQuestionIndex >= len(fm.Questions) {
		return
	}
	fm.Answers[fm.CurrentPlayer-1] = append(fm.Answers[fm.CurrentPlayer-1], FastMoneyAnswer{
		QuestionIndex: fm.CurrentQuestionIndex,
		matchIndex:    -1,
	})
	m.advanceFastMoneySlot()
}

func (m *Machine) advanceFastMoneySlot() {
	fm := m.fastMoney
	fm.CurrentQuestionIndex = len(fm.Answers[fm.CurrentPlayer-1])
	if fm.CurrentQuestionIndex >= len(fm.Questions) {
		m.endFastMoneyTurn()
	}
}

// fastMoneyTimeUp pads every unanswered slot with a zero-point placeholder
// so reveal and sum logic always see a complete set.
func (m *Machine) fastMoneyTimeUp() {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil || !fm.TimerRunning {
		return
	}
	cur := fm.CurrentPlayer - 1
	for len(fm.Answers[cur]) < len(fm.Questions) {
		fm.Answers[cur] = append(fm.Answers[cur], FastMoneyAnswer{
			QuestionIndex: len(fm.Answers[cur]),
			matchIndex:    -1,
		})
	}
	m.endFastMoneyTurn()
}

func (m *Machine) endFastMoneyTurn() {
	fm := m.fastMoney
	fm.TimerRunning = false
	m.hooks.Cancel(TimerFastMoney, "")
	m.timer = TimerState{}
	if fm.CurrentPlayer == 1 {
		fm.CurrentPlayer = 2
		fm.CurrentQuestionIndex = 0
		m.setMessage("%s is done — %s is up next", m.playerName(fm.Player1ID), m.playerName(fm.Player2ID))
	} else {
		m.setMessage("Answers are in — time to reveal")
	}
}

// RevealFastMoneyAnswer uncovers one slot and adds its points to that
// player's total. Idempotent per slot.
func (m *Machine) RevealFastMoneyAnswer(playerNum, questionIndex int) {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil || playerNum < 1 || playerNum > 2 {
		return
	}
	answers := fm.Answers[playerNum-1]
	for i := range answers {
		if answers[i].QuestionIndex == questionIndex {
			if answers[i].Revealed {
				return
			}
			answers[i].Revealed = true
			fm.Totals[playerNum-1] += answers[i].Points
			return
		}
	}
}

// EndFastMoney settles the bonus and unconditionally ends the game. The
// combined total meeting the threshold pays the bonus to the triggering
// team; short of it, nothing is added.
func (m *Machine) EndFastMoney() {
	fm := m.fastMoney
	if m.phase != PhaseFastMoney || fm == nil {
		return
	}
	combined := fm.Totals[0] + fm.Totals[1]
	if combined >= m.cfg.FastMoneyThreshold {
		m.teams[fm.TriggerTeam].TotalScore += m.cfg.FastMoneyBonus
		m.logTransition("fast money won: %d points, bonus to %s", combined, fm.TriggerTeam)
	} else {
		m.logTransition("fast money missed: %d points", combined)
	}
	m.finishGame("fast money complete")
}
