package game

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
)

// scriptedProvider serves its questions round-robin, ignoring constraints,
// so tests always know what lands on the board.
type scriptedProvider struct {
	questions []*question.Question
	next      int
}

func (p *scriptedProvider) GetRandom(context.Context, question.Constraints) (*question.Question, error) {
	if len(p.questions) == 0 {
		return nil, question.ErrNoQuestion
	}
	src := p.questions[p.next%len(p.questions)]
	p.next++
	cp := &question.Question{ID: src.ID, Text: src.Text, Answers: append([]question.Answer(nil), src.Answers...)}
	return cp, nil
}

type recordingHooks struct {
	scheduled []TimerMode
	cancelled []TimerMode
	events    []Event
}

func (h *recordingHooks) Schedule(mode TimerMode, _ string, _ time.Duration) {
	h.scheduled = append(h.scheduled, mode)
}
func (h *recordingHooks) Cancel(mode TimerMode, _ string) {
	h.cancelled = append(h.cancelled, mode)
}
func (h *recordingHooks) Emit(ev Event) { h.events = append(h.events, ev) }

func (h *recordingHooks) lastEvent() *Event {
	if len(h.events) == 0 {
		return nil
	}
	return &h.events[len(h.events)-1]
}

func vacationQuestion() *question.Question {
	return &question.Question{
		Text: "Name something you pack for a vacation",
		Answers: []question.Answer{
			{Text: "Clothes", Points: 40},
			{Text: "Toothbrush", Points: 25},
			{Text: "Phone charger", Points: 15},
			{Text: "Sunscreen", Points: 10},
			{Text: "Camera", Points: 6},
			{Text: "Passport", Points: 4},
		},
	}
}

func newTestMachine(t *testing.T) (*Machine, *recordingHooks) {
	t.Helper()
	hooks := &recordingHooks{}
	provider := &scriptedProvider{questions: []*question.Question{vacationQuestion()}}
	m := NewMachine(DefaultSettings(), clockwork.NewFakeClock(), hooks, provider, resolver.New(nil))
	return m, hooks
}

// joinFour fills the lobby: host and cal on team1, bea and dee on team2.
func joinFour(m *Machine) {
	m.Join("host", "Hana", false)
	m.Join("bea", "Bea", false)
	m.Join("cal", "Cal", false)
	m.Join("dee", "Dee", false)
}

func startGame(t *testing.T, m *Machine) {
	t.Helper()
	ctx := context.Background()
	m.Ready("bea")
	m.Ready("cal")
	m.Ready("dee")
	m.StartGame(ctx)
	require.Equal(t, PhaseFaceoff, m.Phase())
}

// driveToPlay wins the face-off with the top answer and takes control.
func driveToPlay(t *testing.T, m *Machine) {
	t.Helper()
	ctx := context.Background()
	m.Buzz("host")
	m.SubmitAnswer(ctx, "host", "Clothes")
	require.Equal(t, PhasePlayOrPass, m.Phase())
	m.PlayOrPass("host", "play")
	require.Equal(t, PhasePlay, m.Phase())
	require.Equal(t, Team1, m.ControllingTeam())
}

func TestMachine_JoinAssignsHostAndBalancesTeams(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)

	require.Equal(t, "host", m.HostID())
	assert.True(t, m.Player("host").IsHost)
	assert.Equal(t, []string{"host", "cal"}, m.Team(Team1).Players)
	assert.Equal(t, []string{"bea", "dee"}, m.Team(Team2).Players)
	assert.Equal(t, 4, m.ConnectedCount())
}

func TestMachine_FirstJoinerCannotSpectate(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Join("host", "Hana", true)

	p := m.Player("host")
	assert.True(t, p.IsHost)
	assert.False(t, p.IsSpectator)
	assert.Equal(t, Team1, p.TeamID)
}

func TestMachine_StartGameRequiresBothTeams(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Join("host", "Hana", false)
	m.StartGame(context.Background())

	assert.Equal(t, PhaseLobby, m.Phase())
	assert.False(t, m.Played())
}

func TestMachine_StartGameWaitsForReady(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	m.Ready("bea")
	// cal and dee never ready up
	m.StartGame(context.Background())

	assert.Equal(t, PhaseLobby, m.Phase())
	assert.Equal(t, "Waiting for everyone to be ready", m.Message())
}

func TestMachine_StartGameSurvivesQuestionFetchFailure(t *testing.T) {
	hooks := &recordingHooks{}
	m := NewMachine(DefaultSettings(), clockwork.NewFakeClock(), hooks, &scriptedProvider{}, resolver.New(nil))
	joinFour(m)
	m.Ready("bea")
	m.Ready("cal")
	m.Ready("dee")
	m.StartGame(context.Background())

	assert.Equal(t, PhaseLobby, m.Phase())
	assert.False(t, m.Played())
}

func TestMachine_DisconnectReassignsHost(t *testing.T) {
	m, hooks := newTestMachine(t)
	joinFour(m)

	m.Disconnect("host")

	assert.False(t, m.Player("host").IsConnected)
	assert.Equal(t, "bea", m.HostID())
	assert.True(t, m.Player("bea").IsHost)
	assert.Contains(t, hooks.scheduled, TimerReconnect)
}

func TestMachine_HostReassignmentPrefersParticipants(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Join("host", "Hana", false)
	m.Join("watcher", "Sol", true)
	m.Join("bea", "Bea", false)

	m.Disconnect("host")

	assert.Equal(t, "bea", m.HostID())
	assert.True(t, m.Player("watcher").IsSpectator)
}

func TestMachine_HostReassignmentPlacesPromotedSpectatorOnTeam(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Join("host", "Hana", false)
	m.Join("watcher", "Sol", true)

	m.Disconnect("host")

	p := m.Player("watcher")
	require.Equal(t, "watcher", m.HostID())
	assert.True(t, p.IsHost)
	assert.False(t, p.IsSpectator)
	assert.Equal(t, Team2, p.TeamID)
	assert.Contains(t, m.Team(Team2).Players, "watcher")
}

func TestMachine_ReconnectWithinGraceKeepsPlayer(t *testing.T) {
	m, hooks := newTestMachine(t)
	joinFour(m)

	m.Disconnect("cal")
	m.Join("cal", "Cal", false)
	require.True(t, m.Player("cal").IsConnected)
	assert.Contains(t, hooks.cancelled, TimerReconnect)

	// A grace timer firing after the reconnect must be a no-op.
	m.HandleTimerFired(context.Background(), TimerReconnect, "cal", 0)
	assert.NotNil(t, m.Player("cal"))
}

func TestMachine_GraceExpiryRemovesPlayer(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)

	m.Disconnect("dee")
	m.HandleTimerFired(context.Background(), TimerReconnect, "dee", 0)

	assert.Nil(t, m.Player("dee"))
	assert.NotContains(t, m.Team(Team2).Players, "dee")
}

func TestMachine_StaleTimerIsDropped(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)

	staleGen := m.Generation()
	m.EndRound()
	require.Equal(t, PhaseRoundEnd, m.Phase())

	// Timer armed during play fires after the phase already moved on.
	m.HandleTimerFired(context.Background(), TimerPlayGuess, "", staleGen)
	assert.Equal(t, PhaseRoundEnd, m.Phase())
	assert.Equal(t, 0, m.Strikes())
}

func TestMachine_SwitchTeamLobbyOnly(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)

	m.SwitchTeam("cal")
	assert.Equal(t, Team2, m.Player("cal").TeamID)
	assert.Contains(t, m.Team(Team2).Players, "cal")

	startGame(t, m)
	m.SwitchTeam("cal")
	assert.Equal(t, Team2, m.Player("cal").TeamID)
}

func TestMachine_KickPlayerTargetsVictim(t *testing.T) {
	m, hooks := newTestMachine(t)
	joinFour(m)

	m.KickPlayer("dee")

	assert.Nil(t, m.Player("dee"))
	var sawTargeted bool
	for _, ev := range hooks.events {
		if ev.Type == EventKicked && ev.TargetOdID == "dee" {
			sawTargeted = true
		}
	}
	assert.True(t, sawTargeted, "kicked event should target the removed player")
}

func TestMachine_KickCannotRemoveHost(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)

	m.KickPlayer("host")
	assert.NotNil(t, m.Player("host"))
	assert.Equal(t, "host", m.HostID())
}

func TestMachine_SetTeamNameTruncatesAndGates(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)

	m.SetTeamName(Team1, "The Unstoppable Quizmasters Of Doom")
	assert.Len(t, m.Team(Team1).Name, 30)

	m.SetTeamName(Team2, "")
	assert.Equal(t, "Team 2", m.Team(Team2).Name)

	startGame(t, m)
	m.EndGame()
	require.Equal(t, PhaseGameOver, m.Phase())
	m.SetTeamName(Team1, "Late Rename")
	assert.NotEqual(t, "Late Rename", m.Team(Team1).Name)
}

func TestMachine_ShuffleTeamsKeepsSpectatorsOut(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	m.Join("watcher", "Sol", true)

	m.ShuffleTeams()

	assert.Len(t, m.Team(Team1).Players, 2)
	assert.Len(t, m.Team(Team2).Players, 2)
	assert.Equal(t, NoTeam, m.Player("watcher").TeamID)
	for _, id := range []string{"host", "bea", "cal", "dee"} {
		assert.False(t, m.Player(id).IsReady, "shuffle resets ready for %s", id)
	}
}

func TestMachine_PlayAgainResetsMatchState(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)
	startGame(t, m)
	driveToPlay(t, m)
	m.EndRound()
	m.EndGame()
	require.Equal(t, PhaseGameOver, m.Phase())

	m.PlayAgain()

	assert.Equal(t, PhaseLobby, m.Phase())
	assert.Equal(t, 0, m.Round())
	assert.Equal(t, 0, m.Team(Team1).TotalScore)
	assert.Equal(t, 0, m.Team(Team2).TotalScore)
	assert.Equal(t, 0, m.Player("host").Score)
	assert.Nil(t, m.Faceoff())
	assert.Nil(t, m.FastMoney())
	// roster survives the reset
	assert.Equal(t, 4, m.ConnectedCount())
}

func TestMachine_WinningTeam(t *testing.T) {
	m, _ := newTestMachine(t)
	joinFour(m)

	m.Team(Team1).TotalScore = 120
	m.Team(Team2).TotalScore = 80
	assert.Equal(t, Team1, m.WinningTeam())

	m.Team(Team2).TotalScore = 120
	assert.Equal(t, NoTeam, m.WinningTeam())
}

func TestMultiplierPerRound(t *testing.T) {
	assert.Equal(t, 1, Multiplier(1))
	assert.Equal(t, 1, Multiplier(2))
	assert.Equal(t, 2, Multiplier(3))
	assert.Equal(t, 3, Multiplier(4))
}

func TestRoundConstraintsShrink(t *testing.T) {
	assert.Equal(t, question.Constraints{MinAnswers: 6, MaxAnswers: 8}, RoundConstraints(1))
	assert.Equal(t, question.Constraints{MinAnswers: 6, MaxAnswers: 8}, RoundConstraints(2))
	assert.Equal(t, question.Constraints{MinAnswers: 5, MaxAnswers: 7}, RoundConstraints(3))
	assert.Equal(t, question.Constraints{MinAnswers: 4, MaxAnswers: 6}, RoundConstraints(4))
}
