package question

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_HonorsConstraints(t *testing.T) {
	p := NewStaticProvider(SampleQuestions(), 1)

	for i := 0; i < 20; i++ {
		q, err := p.GetRandom(context.Background(), Constraints{MinAnswers: 6, MaxAnswers: 8})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(q.Answers), 6)
		assert.LessOrEqual(t, len(q.Answers), 8)
	}
}

func TestStaticProvider_NoEligibleQuestion(t *testing.T) {
	p := NewStaticProvider(SampleQuestions(), 1)

	_, err := p.GetRandom(context.Background(), Constraints{MinAnswers: 20})
	assert.ErrorIs(t, err, ErrNoQuestion)
}

func TestStaticProvider_ReturnsACopy(t *testing.T) {
	p := NewStaticProvider(nil, 42)

	q1, err := p.GetRandom(context.Background(), Constraints{})
	require.NoError(t, err)
	q1.Answers[0].Points = -99
	q1.Text = "mutated"

	// Fetch until the same question comes around again.
	for i := 0; i < 100; i++ {
		q2, err := p.GetRandom(context.Background(), Constraints{})
		require.NoError(t, err)
		if q2.ID == q1.ID {
			assert.NotEqual(t, -99, q2.Answers[0].Points)
			assert.NotEqual(t, "mutated", q2.Text)
			return
		}
	}
	t.Fatal("never saw the first question again")
}

func TestStaticProvider_EmptySetFallsBackToSamples(t *testing.T) {
	p := NewStaticProvider(nil, 7)

	q, err := p.GetRandom(context.Background(), Constraints{})
	require.NoError(t, err)
	assert.NotEmpty(t, q.Text)
	assert.NotEmpty(t, q.Answers)
}
