package congruence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner is a minimal Runner for coordinator tests.
type stubRunner struct {
	runnerState
	delay time.Duration
	fail  error
}

func (r *stubRunner) AddPair(u, v Word) error {
	if r.frozen() {
		return ErrStarted
	}
	return nil
}

func (r *stubRunner) Run(ctx context.Context) error {
	r.start()
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.fail != nil {
		return r.fail
	}
	r.finished.Store(true)
	return nil
}

func (r *stubRunner) NrClasses(ctx context.Context) (int, error) { return 1, nil }
func (r *stubRunner) WordToClassIndex(ctx context.Context, w Word) (int, error) {
	return 0, nil
}
func (r *stubRunner) ClassIndexToWord(ctx context.Context, i int) (Word, error) {
	return Word{0}, nil
}
func (r *stubRunner) Contains(ctx context.Context, u, v Word) (bool, error) {
	return u.Equal(v), nil
}
func (r *stubRunner) ConstContains(u, v Word) Ternary { return TernaryUnknown }
func (r *stubRunner) Less(ctx context.Context, u, v Word) (bool, error) {
	return false, nil
}
func (r *stubRunner) NonTrivialClasses(ctx context.Context) ([][]Word, error) {
	return nil, nil
}
func (r *stubRunner) IsQuotientObviouslyInfinite() bool { return false }
func (r *stubRunner) QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error) {
	return nil, ErrNotImplemented
}

func TestRace_FastestRunnerWins(t *testing.T) {
	race := NewRace()
	slow := &stubRunner{delay: time.Second}
	fast := &stubRunner{}
	require.NoError(t, race.AddRunner(slow))
	require.NoError(t, race.AddRunner(fast))

	start := time.Now()
	w, err := race.Winner(context.Background())
	require.NoError(t, err)
	assert.Same(t, Runner(fast), w)
	assert.Less(t, time.Since(start), time.Second, "loser must be cancelled, not awaited")

	// The winner is cached.
	w2, err := race.Winner(context.Background())
	require.NoError(t, err)
	assert.Same(t, w, w2)
}

func TestRace_AllFailed(t *testing.T) {
	race := NewRace()
	boom := errors.New("boom")
	require.NoError(t, race.AddRunner(&stubRunner{fail: boom}))
	require.NoError(t, race.AddRunner(&stubRunner{fail: boom}))

	_, err := race.Winner(context.Background())
	assert.ErrorIs(t, err, ErrAllFailed)
}

func TestRace_OneFailureDoesNotSpoilTheRace(t *testing.T) {
	race := NewRace()
	require.NoError(t, race.AddRunner(&stubRunner{fail: errors.New("boom")}))
	ok := &stubRunner{delay: 10 * time.Millisecond}
	require.NoError(t, race.AddRunner(ok))

	w, err := race.Winner(context.Background())
	require.NoError(t, err)
	assert.Same(t, Runner(ok), w)
}

func TestRace_EmptyRace(t *testing.T) {
	_, err := NewRace().Winner(context.Background())
	assert.ErrorIs(t, err, ErrNoMethods)
}

func TestRace_AddRunnerAfterStart(t *testing.T) {
	race := NewRace()
	require.NoError(t, race.AddRunner(&stubRunner{}))
	_, err := race.Winner(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, race.AddRunner(&stubRunner{}), ErrStarted)
}

func TestRace_CallerCancellation(t *testing.T) {
	race := NewRace()
	require.NoError(t, race.AddRunner(&stubRunner{delay: time.Minute}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := race.Winner(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRace_SolversRaceOnRealInput(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	kb, err := NewKnuthBendix(TwoSided, 2, smallFpRelations())
	require.NoError(t, err)

	race := NewRace()
	race.SetMaxThreads(2)
	require.NoError(t, race.AddRunner(tc))
	require.NoError(t, race.AddRunner(kb))

	w, err := race.Winner(context.Background())
	require.NoError(t, err)
	n, err := w.NrClasses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
