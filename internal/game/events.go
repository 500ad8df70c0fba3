package game

import "time"

// EventType names a discrete outbound event, as opposed to the full state
// snapshot that follows every processed command.
type EventType string

const (
	EventPlayerJoined       EventType = "playerJoined"
	EventBuzzerWinner       EventType = "buzzerWinner"
	EventAwaitingPlayOrPass EventType = "awaitingPlayOrPass"
	EventHostChanged        EventType = "hostChanged"
	EventTeamsShuffled      EventType = "teamsShuffled"
	EventPlayerKicked       EventType = "playerKicked"
	EventKicked             EventType = "kicked"
	EventGameEnded          EventType = "gameEnded"
	EventPlayAgain          EventType = "playAgain"
)

// Event is a discrete notification pushed alongside state snapshots.
// TargetOdID, when set, restricts delivery to a single player.
type Event struct {
	Type       EventType `json:"type"`
	Data       any       `json:"data,omitempty"`
	TargetOdID string    `json:"-"`
}

// Hooks is the machine's outward effect surface, implemented by the room
// loop. Schedule and Cancel manipulate generation-tagged timers; Emit pushes
// a discrete event to clients. All calls happen on the room's single writer
// goroutine.
type Hooks interface {
	Schedule(mode TimerMode, key string, d time.Duration)
	Cancel(mode TimerMode, key string)
	Emit(ev Event)
}

// NopHooks discards all effects. Used by tests that only exercise state.
type NopHooks struct{}

func (NopHooks) Schedule(TimerMode, string, time.Duration) {}
func (NopHooks) Cancel(TimerMode, string)                  {}
func (NopHooks) Emit(Event)                                {}
