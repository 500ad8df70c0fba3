package game

import (
	"time"
)

// Player is a participant or spectator in a room. Identity is the stable
// odID, which survives socket churn; connection ids are mapped to odIDs at
// the gateway.
type Player struct {
	OdID        string `json:"odId"`
	Name        string `json:"name"`
	TeamID      TeamID `json:"teamId"`
	IsHost      bool   `json:"isHost"`
	IsConnected bool   `json:"isConnected"`
	IsReady     bool   `json:"isReady"`
	IsSpectator bool   `json:"isSpectator"`
	Score       int    `json:"score"`
}

// Team is one of the two fixed sides. Players holds odIDs in join order,
// which doubles as the face-off rotation order.
type Team struct {
	ID         TeamID   `json:"id"`
	Name       string   `json:"name"`
	Players    []string `json:"players"`
	RoundScore int      `json:"roundScore"`
	TotalScore int      `json:"totalScore"`
	HasControl bool     `json:"hasControl"`

	// rotation cursor for face-off representatives
	faceoffIdx int
}

func (t *Team) removePlayer(odID string) {
	for i, id := range t.Players {
		if id == odID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			if t.faceoffIdx > 0 && t.faceoffIdx >= len(t.Players) {
				t.faceoffIdx = 0
			}
			return
		}
	}
}

// Answer is one slot on the live board. Revealed only ever flips false→true
// within a round.
type Answer struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Points   int    `json:"points"`
	Revealed bool   `json:"revealed"`
}

// Buzzer models the face-off buzz-in state. Timestamps record each player's
// first buzz for auditing; winner selection is strictly first-write-wins.
type Buzzer struct {
	Active     bool                 `json:"active"`
	Locked     bool                 `json:"locked"`
	WinnerID   string               `json:"winnerId"`
	Timestamps map[string]time.Time `json:"timestamps"`
}

// TimerState is the client-visible view of the room's current phase timer.
type TimerState struct {
	Active     bool      `json:"active"`
	Mode       TimerMode `json:"mode,omitempty"`
	Deadline   time.Time `json:"deadline"`
	Generation uint64    `json:"generation"`
}

// EventLogEntry records one phase transition or notable rule outcome.
type EventLogEntry struct {
	At      time.Time `json:"at"`
	Phase   Phase     `json:"phase"`
	Round   int       `json:"round"`
	Message string    `json:"message"`
}

// EventLog is the room's append-only transition history.
type EventLog []EventLogEntry
