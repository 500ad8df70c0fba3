package question

import (
	"context"

	"github.com/google/uuid"
)

// Answer is one ranked survey answer as stored in the question bank.
type Answer struct {
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// Question is a survey question with its ranked answers, best answer first.
type Question struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Answers []Answer  `json:"answers"`
}

// Constraints restricts which questions qualify for a round. A zero value
// means no restriction on that bound.
type Constraints struct {
	MinAnswers int
	MaxAnswers int
}

// Provider hands out random questions from the bank.
type Provider interface {
	GetRandom(ctx context.Context, c Constraints) (*Question, error)
}
