package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoQuestion is returned when the bank has no question satisfying the
// requested constraints.
var ErrNoQuestion = errors.New("no question available for constraints")

// PostgresProvider serves random questions from the question bank tables.
// Schema: questions(id, text) and question_answers(question_id, rank, text, points),
// rank 0 being the top survey answer.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

func (p *PostgresProvider) GetRandom(ctx context.Context, c Constraints) (*Question, error) {
	q := &Question{}
	err := p.pool.QueryRow(ctx, `
        SELECT q.id, q.text
        FROM questions q
        JOIN question_answers a ON a.question_id = q.id
        GROUP BY q.id, q.text
        HAVING COUNT(*) >= $1 AND ($2 = 0 OR COUNT(*) <= $2)
        ORDER BY random()
        LIMIT 1
    `, c.MinAnswers, c.MaxAnswers).Scan(&q.ID, &q.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoQuestion
		}
		return nil, fmt.Errorf("fetch random question: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
        SELECT text, points
        FROM question_answers
        WHERE question_id = $1
        ORDER BY rank ASC
    `, q.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch answers for question %s: %w", q.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.Text, &a.Points); err != nil {
			return nil, fmt.Errorf("scan answer row: %w", err)
		}
		q.Answers = append(q.Answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer rows: %w", err)
	}
	if len(q.Answers) == 0 {
		return nil, ErrNoQuestion
	}
	return q, nil
}
