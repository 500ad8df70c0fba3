package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/game"
	"github.com/kdev89/feudline/internal/question"
	"github.com/kdev89/feudline/internal/resolver"
	"github.com/kdev89/feudline/internal/stats"
)

// ErrRoomNotFound is returned on a lookup for a code with no active room.
var ErrRoomNotFound = errors.New("room not found")

const codeAttempts = 50

// Supervisor owns the room registry: creation, code assignment, lookup, and
// disposal. The registry is the only state shared across rooms.
type Supervisor struct {
	clock     clockwork.Clock
	questions question.Provider
	resolver  *resolver.Resolver
	sink      stats.Sink
	settings  game.Settings
	bc        Broadcaster

	baseCtx context.Context
	wg      sync.WaitGroup

	mu      sync.RWMutex
	rooms   map[string]*Room
	cancels map[string]context.CancelFunc
	rng     *rand.Rand
	closed  bool
}

func NewSupervisor(ctx context.Context, clock clockwork.Clock, questions question.Provider, res *resolver.Resolver, sink stats.Sink, settings game.Settings, bc Broadcaster) *Supervisor {
	return &Supervisor{
		clock:     clock,
		questions: questions,
		resolver:  res,
		sink:      sink,
		settings:  settings,
		bc:        bc,
		baseCtx:   ctx,
		rooms:     make(map[string]*Room),
		cancels:   make(map[string]context.CancelFunc),
		rng:       rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// CreateRoom allocates a room under a fresh 6-digit code and starts its
// loop.
func (s *Supervisor) CreateRoom() (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("supervisor shutting down")
	}

	code, err := s.newCodeLocked()
	if err != nil {
		return nil, err
	}
	r := NewRoom(code, s.settings, s.clock, s.questions, s.resolver, s.bc, s.onRoomClosed)
	s.rooms[code] = r

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancels[code] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.Run(ctx)
	}()

	log.Info().Str("room_code", code).Str("room_id", r.ID.String()).Int("active_rooms", len(s.rooms)).Msg("room created")
	return r, nil
}

func (s *Supervisor) newCodeLocked() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := fmt.Sprintf("%06d", s.rng.Intn(1000000))
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a room code")
}

// Room looks up an active room by code.
func (s *Supervisor) Room(code string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// ActiveRooms returns the number of live rooms.
func (s *Supervisor) ActiveRooms() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// onRoomClosed removes a disposed room from the registry and persists its
// final result, but only when a game was actually played.
func (s *Supervisor) onRoomClosed(r *Room) {
	s.mu.Lock()
	delete(s.rooms, r.Code)
	if cancel, ok := s.cancels[r.Code]; ok {
		cancel()
		delete(s.cancels, r.Code)
	}
	remaining := len(s.rooms)
	s.mu.Unlock()

	log.Info().Str("room_code", r.Code).Int("active_rooms", remaining).Msg("room disposed")

	// The loop has exited: the machine is quiescent and safe to read.
	m := r.Machine()
	if !m.Played() {
		return
	}
	res := stats.Result{
		RoomID:     r.ID.String(),
		RoomCode:   r.Code,
		FinishedAt: s.clock.Now(),
		FinalScores: map[string]int{
			string(game.Team1): m.Team(game.Team1).TotalScore,
			string(game.Team2): m.Team(game.Team2).TotalScore,
		},
		WinningTeam: string(m.WinningTeam()),
	}
	for _, p := range m.PlayersInJoinOrder() {
		res.Players = append(res.Players, stats.PlayerResult{
			OdID:   p.OdID,
			Name:   p.Name,
			TeamID: string(p.TeamID),
			Score:  p.Score,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.RecordResult(ctx, res); err != nil {
		log.Error().Err(err).Str("room_code", r.Code).Msg("failed to record game result")
	}
}

// Shutdown stops every room and waits for their loops to drain.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
