package question

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// StaticProvider serves questions from an in-memory set. Used when no
// database is configured, and by tests.
type StaticProvider struct {
	mu        sync.Mutex
	questions []*Question
	rng       *rand.Rand
}

func NewStaticProvider(questions []*Question, seed int64) *StaticProvider {
	if len(questions) == 0 {
		questions = SampleQuestions()
	}
	return &StaticProvider{
		questions: questions,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (p *StaticProvider) GetRandom(_ context.Context, c Constraints) (*Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var eligible []*Question
	for _, q := range p.questions {
		n := len(q.Answers)
		if n < c.MinAnswers {
			continue
		}
		if c.MaxAnswers > 0 && n > c.MaxAnswers {
			continue
		}
		eligible = append(eligible, q)
	}
	if len(eligible) == 0 {
		return nil, ErrNoQuestion
	}
	src := eligible[p.rng.Intn(len(eligible))]

	// Copy so callers cannot mutate the shared set.
	cp := &Question{ID: src.ID, Text: src.Text, Answers: make([]Answer, len(src.Answers))}
	copy(cp.Answers, src.Answers)
	return cp, nil
}

// SampleQuestions is a small built-in bank for local play without Postgres.
func SampleQuestions() []*Question {
	mk := func(text string, answers ...Answer) *Question {
		return &Question{ID: uuid.New(), Text: text, Answers: answers}
	}
	return []*Question{
		mk("Name something people do right before going to bed",
			Answer{"Brush teeth", 38}, Answer{"Watch TV", 22}, Answer{"Read", 15},
			Answer{"Set alarm", 10}, Answer{"Check phone", 8}, Answer{"Lock doors", 7}),
		mk("Name a reason you might be late for work",
			Answer{"Traffic", 41}, Answer{"Overslept", 27}, Answer{"Car trouble", 12},
			Answer{"Bad weather", 9}, Answer{"Kids", 6}, Answer{"Missed bus", 5}),
		mk("Name something you would find in a kitchen",
			Answer{"Refrigerator", 33}, Answer{"Stove", 24}, Answer{"Sink", 17},
			Answer{"Microwave", 11}, Answer{"Dishes", 8}, Answer{"Toaster", 7}),
		mk("Name an animal you might see at a zoo",
			Answer{"Lion", 35}, Answer{"Elephant", 25}, Answer{"Monkey", 18},
			Answer{"Giraffe", 12}, Answer{"Zebra", 10}),
		mk("Name something people take on a camping trip",
			Answer{"Tent", 40}, Answer{"Sleeping bag", 26}, Answer{"Flashlight", 14},
			Answer{"Food", 11}, Answer{"Bug spray", 9}),
		mk("Name a sport played with a ball",
			Answer{"Soccer", 30}, Answer{"Basketball", 28}, Answer{"Baseball", 19},
			Answer{"Tennis", 13}, Answer{"Golf", 10}),
		mk("Name something that can ruin a picnic",
			Answer{"Rain", 44}, Answer{"Ants", 25}, Answer{"Wind", 13}, Answer{"Bees", 18}),
		mk("Name a place where you have to be quiet",
			Answer{"Library", 47}, Answer{"Church", 21}, Answer{"Hospital", 16},
			Answer{"Movie theater", 10}, Answer{"Classroom", 6}),
		mk("Name something people lose all the time",
			Answer{"Keys", 39}, Answer{"Phone", 23}, Answer{"Wallet", 16},
			Answer{"Glasses", 12}, Answer{"Remote", 10}),
		mk("Name a food people eat for breakfast",
			Answer{"Eggs", 32}, Answer{"Cereal", 26}, Answer{"Toast", 15},
			Answer{"Pancakes", 13}, Answer{"Bacon", 9}, Answer{"Oatmeal", 5}),
	}
}
