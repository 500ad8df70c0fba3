package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSink struct {
	err   error
	calls int
}

func (s *stubSink) RecordResult(context.Context, Result) error {
	s.calls++
	return s.err
}

func TestMultiSink_AttemptsAllSinks(t *testing.T) {
	broken := &stubSink{err: errors.New("publish failed")}
	healthy := &stubSink{}
	ms := MultiSink{broken, healthy}

	err := ms.RecordResult(context.Background(), Result{RoomCode: "123456"})

	assert.ErrorIs(t, err, broken.err)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, healthy.calls, "later sinks still run after a failure")
}

func TestMultiSink_FirstErrorWins(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	ms := MultiSink{&stubSink{err: errA}, &stubSink{err: errB}}

	assert.ErrorIs(t, ms.RecordResult(context.Background(), Result{}), errA)
}

func TestNopSink(t *testing.T) {
	assert.NoError(t, NopSink{}.RecordResult(context.Background(), Result{}))
}
