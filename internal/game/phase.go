package game

import (
	"time"

	"github.com/kdev89/feudline/internal/question"
)

// Phase is the room's current position in the match state machine.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseFaceoff    Phase = "faceoff"
	PhasePlayOrPass Phase = "awaitingPlayOrPass"
	PhasePlay       Phase = "play"
	PhaseSteal      Phase = "steal"
	PhaseRoundEnd   Phase = "roundEnd"
	PhaseFastMoney  Phase = "fastMoney"
	PhaseGameOver   Phase = "gameOver"
)

// TeamID identifies one of the room's two fixed teams.
type TeamID string

const (
	Team1  TeamID = "team1"
	Team2  TeamID = "team2"
	NoTeam TeamID = ""
)

// Other returns the opposing team id.
func (t TeamID) Other() TeamID {
	switch t {
	case Team1:
		return Team2
	case Team2:
		return Team1
	}
	return NoTeam
}

// TimerMode tags a scheduled countdown so a firing callback can be routed
// and checked for staleness.
type TimerMode string

const (
	TimerPlayGuess    TimerMode = "playGuess"
	TimerSteal        TimerMode = "steal"
	TimerRevealTick   TimerMode = "revealTick"
	TimerRoundAdvance TimerMode = "roundAdvance"
	TimerFastMoney    TimerMode = "fastMoney"
	TimerReconnect    TimerMode = "reconnect"
)

// Settings holds the tunable rule constants for a match.
type Settings struct {
	Rounds            int
	PlayGuessTimeout  time.Duration
	StealTimeout      time.Duration
	RevealStagger     time.Duration
	RoundAdvanceDelay time.Duration
	ReconnectGrace    time.Duration

	FastMoneyQuestions   int
	FastMoneyPlayer1Time time.Duration
	FastMoneyPlayer2Time time.Duration
	FastMoneyThreshold   int
	FastMoneyBonus       int
}

// DefaultSettings returns the standard rule set.
func DefaultSettings() Settings {
	return Settings{
		Rounds:               4,
		PlayGuessTimeout:     60 * time.Second,
		StealTimeout:         30 * time.Second,
		RevealStagger:        time.Second,
		RoundAdvanceDelay:    10 * time.Second,
		ReconnectGrace:       120 * time.Second,
		FastMoneyQuestions:   5,
		FastMoneyPlayer1Time: 20 * time.Second,
		FastMoneyPlayer2Time: 25 * time.Second,
		FastMoneyThreshold:   200,
		FastMoneyBonus:       200,
	}
}

// Multiplier returns the point multiplier for a board round.
func Multiplier(round int) int {
	switch {
	case round >= 4:
		return 3
	case round == 3:
		return 2
	default:
		return 1
	}
}

// RoundConstraints returns the answer-count range a round's question must
// satisfy. Later rounds use shorter boards.
func RoundConstraints(round int) question.Constraints {
	switch {
	case round >= 4:
		return question.Constraints{MinAnswers: 4, MaxAnswers: 6}
	case round == 3:
		return question.Constraints{MinAnswers: 5, MaxAnswers: 7}
	default:
		return question.Constraints{MinAnswers: 6, MaxAnswers: 8}
	}
}
