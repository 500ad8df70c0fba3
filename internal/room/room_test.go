package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdev89/feudline/internal/game"
	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
)

type fakeBroadcaster struct {
	mu           sync.Mutex
	sent         map[string][][]byte
	broadcasts   [][]byte
	disconnected []string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{sent: make(map[string][][]byte)}
}

func (b *fakeBroadcaster) SendTo(_, odID string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent[odID] = append(b.sent[odID], payload)
}

func (b *fakeBroadcaster) Broadcast(_ string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, payload)
}

func (b *fakeBroadcaster) Disconnect(_, odID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, odID)
}

func (b *fakeBroadcaster) sentTo(odID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent[odID])
}

func (b *fakeBroadcaster) lastSentTo(odID string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.sent[odID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (b *fakeBroadcaster) wasDisconnected(odID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.disconnected {
		if id == odID {
			return true
		}
	}
	return false
}

func startTestRoom(t *testing.T) (*Room, *fakeBroadcaster) {
	t.Helper()
	bc := newFakeBroadcaster()
	r := NewRoom("123456", game.DefaultSettings(), clockwork.NewRealClock(),
		question.NewStaticProvider(nil, 1), resolver.New(nil), bc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r, bc
}

func waitForDone(t *testing.T, r *Room) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room loop never exited")
	}
}

func TestRoom_JoinBroadcastsViewerState(t *testing.T) {
	r, bc := startTestRoom(t)

	r.Enqueue("p1", Join{Name: "Ada"})

	require.Eventually(t, func() bool { return bc.sentTo("p1") > 0 },
		time.Second, 10*time.Millisecond)

	var msg ServerMessage
	require.NoError(t, json.Unmarshal(bc.lastSentTo("p1"), &msg))
	assert.Equal(t, "state", msg.Type)
	require.NotNil(t, msg.State)
	assert.Equal(t, game.PhaseLobby, msg.State.Phase)
	require.Len(t, msg.State.Players, 1)
	assert.True(t, msg.State.Players[0].IsHost)
}

func TestRoom_EmptyRosterDisposesRoom(t *testing.T) {
	r, _ := startTestRoom(t)

	r.Enqueue("p1", Join{Name: "Ada"})
	r.Enqueue("p1", Leave{Consented: true})

	waitForDone(t, r)
}

func TestRoom_HostOnlyCommandFromGuestIgnored(t *testing.T) {
	r, _ := startTestRoom(t)

	r.Enqueue("p1", Join{Name: "Ada"})
	r.Enqueue("p2", Join{Name: "Ben"})
	r.Enqueue("p2", EndGame{})

	// room must survive the guest's endGame
	select {
	case <-r.Done():
		t.Fatal("non-host closed the room")
	case <-time.After(200 * time.Millisecond):
	}

	r.Enqueue("p1", EndGame{})
	waitForDone(t, r)
}

func TestRoom_KickDisconnectsTarget(t *testing.T) {
	r, bc := startTestRoom(t)

	r.Enqueue("p1", Join{Name: "Ada"})
	r.Enqueue("p2", Join{Name: "Ben"})
	r.Enqueue("p1", KickPlayer{SessionID: "p2"})

	require.Eventually(t, func() bool { return bc.wasDisconnected("p2") },
		time.Second, 10*time.Millisecond)
}

func TestRoom_OnCloseFiresAfterLoopExit(t *testing.T) {
	bc := newFakeBroadcaster()
	closed := make(chan struct{})
	r := NewRoom("654321", game.DefaultSettings(), clockwork.NewRealClock(),
		question.NewStaticProvider(nil, 1), resolver.New(nil), bc,
		func(*Room) { close(closed) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Enqueue("p1", Join{Name: "Ada"})
	r.Enqueue("p1", Leave{Consented: true})

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("onClose never ran")
	}
}

func TestHostOnlyClassification(t *testing.T) {
	hostCmds := []Command{
		StartGame{}, NextRound{}, RevealAnswer{}, AddStrike{}, PassControl{},
		StartFaceoff{}, EndRound{}, SetTeamName{}, StartFastMoney{},
		SelectFastMoneyPlayers{}, StartFastMoneyTimer{}, RevealFastMoneyAnswer{},
		NextFastMoneyQuestion{}, EndFastMoney{}, PlayAgain{}, EndGame{},
		KickPlayer{}, ShuffleTeams{},
	}
	for _, c := range hostCmds {
		assert.True(t, hostOnly(c), "%T should be host-only", c)
	}

	openCmds := []Command{
		Join{}, Leave{}, Buzz{}, SubmitAnswer{}, Ready{}, SwitchTeam{},
		ToggleSpectator{}, PlayOrPass{}, FastMoneyAnswer{}, TimerFired{},
	}
	for _, c := range openCmds {
		assert.False(t, hostOnly(c), "%T should not be host-only", c)
	}
}
