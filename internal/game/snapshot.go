package game

// View describes who a snapshot is built for. The host sees hidden answer
// text and the event log; fast-money contestants see only their own
// unrevealed answers.
type View struct {
	Host     bool
	ViewerID string
}

// Snapshot is the full room state pushed to a client after every processed
// command.
type Snapshot struct {
	Phase         Phase          `json:"phase"`
	Round         int            `json:"round"`
	Multiplier    int            `json:"multiplier"`
	Message       string         `json:"message"`
	Question      string         `json:"question,omitempty"`
	Answers       []AnswerView   `json:"answers,omitempty"`
	PointsOnBoard int            `json:"pointsOnBoard"`
	Strikes       int            `json:"strikes"`
	Controlling   TeamID         `json:"controllingTeam,omitempty"`
	Teams         []TeamView     `json:"teams"`
	Players       []Player       `json:"players"`
	Buzzer        *Buzzer        `json:"buzzer,omitempty"`
	FaceoffStage  FaceoffStage   `json:"faceoffStage,omitempty"`
	FaceoffWinner TeamID         `json:"faceoffWinner,omitempty"`
	Timer         TimerState     `json:"timer"`
	FastMoney     *FastMoneyView `json:"fastMoney,omitempty"`
	EventLog      EventLog       `json:"eventLog,omitempty"`
}

// AnswerView is a board slot as a given client may see it. Unrevealed slots
// keep their text and points only for the host.
type AnswerView struct {
	Index    int    `json:"index"`
	Text     string `json:"text,omitempty"`
	Points   int    `json:"points,omitempty"`
	Revealed bool   `json:"revealed"`
}

// TeamView is a team without its unexported rotation state.
type TeamView struct {
	ID         TeamID   `json:"id"`
	Name       string   `json:"name"`
	Players    []string `json:"players"`
	RoundScore int      `json:"roundScore"`
	TotalScore int      `json:"totalScore"`
	HasControl bool     `json:"hasControl"`
}

// FastMoneyView is the redacted bonus-round state.
type FastMoneyView struct {
	QuestionTexts        []string             `json:"questionTexts,omitempty"`
	CurrentQuestion      string               `json:"currentQuestion,omitempty"`
	CurrentPlayer        int                  `json:"currentPlayer"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	Player1ID            string               `json:"player1Id"`
	Player2ID            string               `json:"player2Id"`
	Answers              [2][]FastMoneyAnswer `json:"answers"`
	Totals               [2]int               `json:"totals"`
	TimerSeconds         int                  `json:"timerSeconds"`
	TimerRunning         bool                 `json:"timerRunning"`
	TriggerTeam          TeamID               `json:"triggerTeam"`
}

// Snapshot builds the state view for one client.
func (m *Machine) Snapshot(v View) Snapshot {
	s := Snapshot{
		Phase:         m.phase,
		Round:         m.round,
		Multiplier:    Multiplier(m.round),
		Message:       m.message,
		Question:      m.questionText,
		PointsOnBoard: m.pointsOnBoard,
		Strikes:       m.strikes,
		Controlling:   m.controlling,
		Timer:         m.timer,
	}

	for _, a := range m.answers {
		av := AnswerView{Index: a.Index, Revealed: a.Revealed}
		if a.Revealed || v.Host {
			av.Text = a.Text
			av.Points = a.Points
		}
		s.Answers = append(s.Answers, av)
	}

	for _, id := range []TeamID{Team1, Team2} {
		t := m.teams[id]
		tv := TeamView{
			ID:         t.ID,
			Name:       t.Name,
			Players:    append([]string(nil), t.Players...),
			RoundScore: t.RoundScore,
			TotalScore: t.TotalScore,
			HasControl: t.HasControl,
		}
		s.Teams = append(s.Teams, tv)
	}

	for _, p := range m.PlayersInJoinOrder() {
		s.Players = append(s.Players, *p)
	}

	if f := m.faceoff; f != nil && (m.phase == PhaseFaceoff || m.phase == PhasePlayOrPass) {
		buzzer := f.Buzzer
		s.Buzzer = &buzzer
		s.FaceoffStage = f.Stage
		s.FaceoffWinner = f.WinnerTeam
	}

	if fm := m.fastMoney; fm != nil && m.phase == PhaseFastMoney {
		s.FastMoney = m.fastMoneyView(fm, v)
	}

	if v.Host {
		s.EventLog = m.events
	}
	return s
}

func (m *Machine) fastMoneyView(fm *FastMoney, v View) *FastMoneyView {
	fv := &FastMoneyView{
		CurrentPlayer:        fm.CurrentPlayer,
		CurrentQuestionIndex: fm.CurrentQuestionIndex,
		Player1ID:            fm.Player1ID,
		Player2ID:            fm.Player2ID,
		Totals:               fm.Totals,
		TimerSeconds:         fm.TimerSeconds,
		TimerRunning:         fm.TimerRunning,
		TriggerTeam:          fm.TriggerTeam,
	}
	if v.Host {
		for _, q := range fm.Questions {
			fv.QuestionTexts = append(fv.QuestionTexts, q.Text)
		}
	} else if fm.TimerRunning && v.ViewerID == fm.currentPlayerID() && fm.CurrentQuestionIndex < len(fm.Questions) {
		fv.CurrentQuestion = fm.Questions[fm.CurrentQuestionIndex].Text
	}

	for pi := 0; pi < 2; pi++ {
		owner := fm.Player1ID
		if pi == 1 {
			owner = fm.Player2ID
		}
		for _, a := range fm.Answers[pi] {
			if !a.Revealed && !v.Host && v.ViewerID != owner {
				// hidden slots stay hidden for everyone else
				a.Answer = ""
				a.Points = 0
			}
			fv.Answers[pi] = append(fv.Answers[pi], a)
		}
	}
	return fv
}
