package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder writes one game_results row per finished game.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) RecordResult(ctx context.Context, res Result) error {
	players, err := json.Marshal(res.Players)
	if err != nil {
		return fmt.Errorf("marshal player results: %w", err)
	}
	scores, err := json.Marshal(res.FinalScores)
	if err != nil {
		return fmt.Errorf("marshal final scores: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
        INSERT INTO game_results (id, room_id, room_code, winning_team, players, final_scores, finished_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
    `, uuid.New(), res.RoomID, res.RoomCode, res.WinningTeam, players, scores, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}
