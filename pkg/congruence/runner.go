package congruence

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Kind distinguishes the three flavours of congruence. It is fixed at
// construction of a solver.
type Kind int

const (
	// Left congruences respect multiplication on the left only.
	Left Kind = iota
	// Right congruences respect multiplication on the right only.
	Right
	// TwoSided congruences respect multiplication on both sides.
	TwoSided
)

func (k Kind) String() string {
	switch k {
	case Left:
		return "left"
	case Right:
		return "right"
	case TwoSided:
		return "two-sided"
	}
	return "unknown"
}

// Ternary is the result of a conservative, non-running query: it may be
// undecided, but it is never wrong.
type Ternary int8

const (
	TernaryUnknown Ternary = iota
	TernaryFalse
	TernaryTrue
)

func (t Ternary) String() string {
	switch t {
	case TernaryTrue:
		return "true"
	case TernaryFalse:
		return "false"
	}
	return "unknown"
}

// Infinity is the class count reported for quotients with infinitely
// many classes.
const Infinity = int(^uint(0) >> 1)

// Runner is the contract shared by every congruence solver. Blocking
// queries (NrClasses, WordToClassIndex, Contains, ...) first run the
// solver to completion, which may never terminate for undecidable
// inputs; the supplied context is the caller's handle for cancellation
// and deadlines, checked cooperatively at each outer loop iteration.
type Runner interface {
	// Kind returns the congruence kind fixed at construction.
	Kind() Kind

	// AddPair registers an extra generating pair of the congruence.
	// It fails with ErrStarted once a run has begun.
	AddPair(u, v Word) error

	// Run advances the solver to completion or cancellation. It is
	// idempotent once finished. A cancelled run returns the context's
	// error and leaves the solver resumable.
	Run(ctx context.Context) error

	// Finished reports whether the solver has a complete answer.
	Finished() bool

	// NrClasses runs to completion and returns the number of
	// congruence classes, or Infinity.
	NrClasses(ctx context.Context) (int, error)

	// WordToClassIndex runs and returns the class index of w. The
	// assignment is a total surjection onto {0, ..., NrClasses-1} (or
	// onto the naturals for infinite quotients); it is stable within
	// a run but not across runs.
	WordToClassIndex(ctx context.Context, w Word) (int, error)

	// ClassIndexToWord returns a representative word of class i.
	// Solvers without representatives fail with ErrNotImplemented.
	ClassIndexToWord(ctx context.Context, i int) (Word, error)

	// Contains reports whether u and v lie in the same class.
	Contains(ctx context.Context, u, v Word) (bool, error)

	// ConstContains answers Contains from already-computed information
	// only, without running. It never returns a false positive.
	ConstContains(u, v Word) Ternary

	// Less reports whether the class of u precedes the class of v in a
	// total order consistent with the enumeration. The order is
	// unspecified across runs.
	Less(ctx context.Context, u, v Word) (bool, error)

	// NonTrivialClasses returns the classes with more than one element
	// of the parent, each as a slice of representative words.
	NonTrivialClasses(ctx context.Context) ([][]Word, error)

	// IsQuotientObviouslyInfinite is a cheap sufficient test for
	// non-termination; false means "don't know".
	IsQuotientObviouslyInfinite() bool

	// QuotientSemigroup materialises a concrete semigroup on the class
	// indices. It fails with ErrQuotientInfinite when the quotient is
	// not finite and with ErrNotImplemented on solvers without class
	// representatives.
	QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error)
}

// RunFor runs r with a wall-clock deadline. Hitting the deadline (or an
// enclosing cancellation) is not an error: the solver simply remains
// unfinished and resumable. ConstContains then answers from the partial
// state, and a later blocking query resumes the run; no query reports
// ErrNotFinished because of the deadline.
func RunFor(r Runner, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := r.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runnerState carries the status flags common to all solvers. Solvers
// embed it; the race coordinator reads it through the Runner interface.
type runnerState struct {
	kind     Kind
	started  atomic.Bool
	finished atomic.Bool
}

func (s *runnerState) Kind() Kind { return s.kind }
func (s *runnerState) Finished() bool { return s.finished.Load() }

// start marks the solver as running; mutation is frozen from here on.
func (s *runnerState) start() { s.started.Store(true) }

// frozen reports whether input mutation must be rejected.
func (s *runnerState) frozen() bool { return s.started.Load() || s.finished.Load() }
