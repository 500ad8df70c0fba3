package stats

import (
	"context"
	"time"
)

// PlayerResult is one player's final line in a finished game.
type PlayerResult struct {
	OdID   string `json:"odId"`
	Name   string `json:"name"`
	TeamID string `json:"teamId"`
	Score  int    `json:"score"`
}

// Result is the final outcome of a room, recorded once at disposal.
// WinningTeam is empty on a tie.
type Result struct {
	RoomID      string         `json:"roomId"`
	RoomCode    string         `json:"roomCode"`
	Players     []PlayerResult `json:"players"`
	WinningTeam string         `json:"winningTeam,omitempty"`
	FinalScores map[string]int `json:"finalScores"`
	FinishedAt  time.Time      `json:"finishedAt"`
}

// Sink receives final game results.
type Sink interface {
	RecordResult(ctx context.Context, res Result) error
}

// NopSink discards results. Used when no stats backend is configured.
type NopSink struct{}

func (NopSink) RecordResult(context.Context, Result) error { return nil }

// MultiSink fans a result out to several sinks, returning the first error
// after attempting all of them.
type MultiSink []Sink

func (s MultiSink) RecordResult(ctx context.Context, res Result) error {
	var firstErr error
	for _, sink := range s {
		if err := sink.RecordResult(ctx, res); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
