package game

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
)

func TestPlay_CorrectAnswerRevealsAndScores(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	// faceoff already revealed Clothes (40)
	require.Equal(t, 40, m.PointsOnBoard())

	m.SubmitAnswer(context.Background(), "cal", "toothbrush")

	assert.True(t, m.Answers()[1].Revealed)
	assert.Equal(t, 65, m.PointsOnBoard())
	assert.Equal(t, 65, m.Team(Team1).RoundScore)
	assert.Equal(t, 25, m.Player("cal").Score)
	assert.Equal(t, 0, m.Strikes())
}

func TestPlay_NonControllingTeamCannotAnswer(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	m.SubmitAnswer(context.Background(), "bea", "toothbrush")

	assert.False(t, m.Answers()[1].Revealed)
	assert.Equal(t, 0, m.Strikes())
}

func TestPlay_WrongAnswerStrikes(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	m.SubmitAnswer(context.Background(), "host", "kitchen sink")
	assert.Equal(t, 1, m.Strikes())
	assert.Equal(t, PhasePlay, m.Phase())
}

func TestPlay_ThreeStrikesOpenSteal(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.SubmitAnswer(ctx, "host", "wrong one")
	m.SubmitAnswer(ctx, "cal", "wrong two")
	m.SubmitAnswer(ctx, "host", "wrong three")

	assert.Equal(t, 3, m.Strikes())
	assert.Equal(t, PhaseSteal, m.Phase())
	assert.Equal(t, Team1, m.ControllingTeam())
}

func TestPlay_GuessTimeoutCountsAsStrike(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	m.HandleTimerFired(context.Background(), TimerPlayGuess, "", m.Generation())
	assert.Equal(t, 1, m.Strikes())
}

func TestPlay_ClearingBoardAwardsRound(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	for _, guess := range []string{"toothbrush", "phone charger", "sunscreen", "camera", "passport"} {
		m.SubmitAnswer(ctx, "host", guess)
	}

	assert.Equal(t, PhaseRoundEnd, m.Phase())
	assert.Equal(t, 100, m.Team(Team1).TotalScore)
}

func TestSteal_SuccessTransfersRound(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.SubmitAnswer(ctx, "host", "wrong one")
	m.SubmitAnswer(ctx, "host", "wrong two")
	m.SubmitAnswer(ctx, "host", "wrong three")
	require.Equal(t, PhaseSteal, m.Phase())

	m.SubmitAnswer(ctx, "bea", "sunscreen")

	assert.Equal(t, PhaseRoundEnd, m.Phase())
	// Clothes 40 + Sunscreen 10, stolen whole
	assert.Equal(t, 50, m.Team(Team2).TotalScore)
	assert.Equal(t, 0, m.Team(Team1).TotalScore)
	assert.Equal(t, 10, m.Player("bea").Score)
}

func TestSteal_FailureKeepsBoardWithOriginalTeam(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.SubmitAnswer(ctx, "host", "wrong one")
	m.SubmitAnswer(ctx, "host", "wrong two")
	m.SubmitAnswer(ctx, "host", "wrong three")
	require.Equal(t, PhaseSteal, m.Phase())

	m.SubmitAnswer(ctx, "dee", "submarine")

	assert.Equal(t, PhaseRoundEnd, m.Phase())
	assert.Equal(t, 40, m.Team(Team1).TotalScore)
	assert.Equal(t, 0, m.Team(Team2).TotalScore)
}

func TestSteal_OnlyOneGuessEverCounts(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.SubmitAnswer(ctx, "host", "wrong one")
	m.SubmitAnswer(ctx, "host", "wrong two")
	m.SubmitAnswer(ctx, "host", "wrong three")
	require.Equal(t, PhaseSteal, m.Phase())

	m.SubmitAnswer(ctx, "bea", "submarine")
	require.True(t, m.StealAttempted())
	before := m.Team(Team2).TotalScore

	// second teammate's guess arrives after the steal already resolved
	m.SubmitAnswer(ctx, "dee", "sunscreen")
	assert.Equal(t, before, m.Team(Team2).TotalScore)
}

func TestSteal_TimeoutAwardsOriginalTeam(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.SubmitAnswer(ctx, "host", "wrong one")
	m.SubmitAnswer(ctx, "host", "wrong two")
	m.SubmitAnswer(ctx, "host", "wrong three")
	require.Equal(t, PhaseSteal, m.Phase())

	m.HandleTimerFired(ctx, TimerSteal, "", m.Generation())

	assert.Equal(t, PhaseRoundEnd, m.Phase())
	assert.Equal(t, 40, m.Team(Team1).TotalScore)
}

func TestRoundEnd_StaggeredRevealDoesNotRescore(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.EndRound()
	require.Equal(t, PhaseRoundEnd, m.Phase())
	banked := m.Team(Team1).TotalScore
	require.Equal(t, 40, banked)

	// tick through all five hidden answers
	for i := 0; i < 5; i++ {
		m.HandleTimerFired(ctx, TimerRevealTick, "", m.Generation())
	}
	for _, a := range m.Answers() {
		assert.True(t, a.Revealed)
	}
	assert.Equal(t, banked, m.Team(Team1).TotalScore)
	assert.Equal(t, 40, m.PointsOnBoard())
}

func TestRoundEnd_HostRevealKeepsAdvanceArmed(t *testing.T) {
	m, hooks := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	m.EndRound()
	require.Equal(t, PhaseRoundEnd, m.Phase())

	// host flips every remaining answer by hand
	for i := 1; i < 6; i++ {
		m.RevealAnswer(i)
	}

	assert.Equal(t, TimerRoundAdvance, hooks.scheduled[len(hooks.scheduled)-1])
	assert.Equal(t, 40, m.Team(Team1).TotalScore)
}

func TestRoundEnd_AdvanceStartsNextFaceoff(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.EndRound()
	m.NextRound(ctx)

	assert.Equal(t, PhaseFaceoff, m.Phase())
	assert.Equal(t, 2, m.Round())
	assert.Equal(t, 0, m.Strikes())
	assert.Equal(t, NoTeam, m.ControllingTeam())
	// rotation moved on, so cal and dee are at the podium now
	assert.Equal(t, "cal", m.Faceoff().Reps[Team1])
	assert.Equal(t, "dee", m.Faceoff().Reps[Team2])
}

// winFaceoffAndPlay wins the current face-off for team1 with the top answer
// and takes control, whoever the rotation has at the podium.
func winFaceoffAndPlay(t *testing.T, m *Machine) {
	t.Helper()
	ctx := context.Background()
	rep := m.Faceoff().Reps[Team1]
	m.Buzz(rep)
	m.SubmitAnswer(ctx, rep, "Clothes")
	require.Equal(t, PhasePlayOrPass, m.Phase())
	m.PlayOrPass(rep, "play")
	require.Equal(t, PhasePlay, m.Phase())
}

func TestPlay_ThirdRoundDoublesEveryCredit(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	ctx := context.Background()

	for round := 1; round <= 2; round++ {
		winFaceoffAndPlay(t, m)
		m.EndRound()
		m.NextRound(ctx)
	}
	require.Equal(t, 3, m.Round())

	winFaceoffAndPlay(t, m)
	// Clothes (40) came off the board during the face-off, at double value
	require.Equal(t, 80, m.PointsOnBoard())

	before := m.Player("host").Score
	m.SubmitAnswer(ctx, "host", "toothbrush")

	assert.Equal(t, 130, m.PointsOnBoard())
	assert.Equal(t, 130, m.Team(Team1).RoundScore)
	assert.Equal(t, before+50, m.Player("host").Score)

	banked := m.Team(Team1).TotalScore
	m.EndRound()
	assert.Equal(t, banked+130, m.Team(Team1).TotalScore)
}

func TestGame_EndsAfterFinalRound(t *testing.T) {
	hooks := &recordingHooks{}
	cfg := DefaultSettings()
	cfg.Rounds = 1
	provider := &scriptedProvider{questions: []*question.Question{vacationQuestion()}}
	m := NewMachine(cfg, clockwork.NewFakeClock(), hooks, provider, resolver.New(nil))
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	ctx := context.Background()

	m.EndRound()
	require.Equal(t, PhaseRoundEnd, m.Phase())
	m.HandleTimerFired(ctx, TimerRoundAdvance, "", m.Generation())

	assert.Equal(t, PhaseGameOver, m.Phase())
	assert.Equal(t, Team1, m.WinningTeam())
}

func TestEndRound_WithoutControlScoresNothing(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	require.Equal(t, PhaseFaceoff, m.Phase())

	m.EndRound()

	assert.Equal(t, PhaseRoundEnd, m.Phase())
	assert.Equal(t, 0, m.Team(Team1).TotalScore)
	assert.Equal(t, 0, m.Team(Team2).TotalScore)
}

func TestPassControl_ResetsStrikes(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	m.AddStrike()
	m.AddStrike()
	require.Equal(t, 2, m.Strikes())

	m.PassControl()

	assert.Equal(t, Team2, m.ControllingTeam())
	assert.Equal(t, 0, m.Strikes())
	assert.Equal(t, PhasePlay, m.Phase())
}

func TestResolveGuess_RevealedAnswerNoLongerMatches(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	// Clothes was revealed during the face-off; repeating it is a miss.
	m.SubmitAnswer(context.Background(), "host", "clothes")
	assert.Equal(t, 1, m.Strikes())
}
