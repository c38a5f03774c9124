package congruence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/gosemigroups/internal/report"
)

// errWon is the sentinel a winning worker returns to cancel the group
// context for the remaining runners.
var errWon = errors.New("congruence: winner found")

// Race owns a set of Runners attacking the same problem and runs them
// competitively in parallel goroutines: the first to finish cancels the
// rest and answers every subsequent query. Losers are never queried
// again; their partial state is simply discarded.
//
// A runner that stops with a fatal error is out of the race; if every
// runner does, Winner reports ErrAllFailed.
type Race struct {
	mu         sync.Mutex
	runners    []Runner
	maxThreads int
	winner     Runner
	started    atomic.Bool
	log        *report.Logger
}

// NewRace returns an empty coordinator. The race width defaults to
// GOMAXPROCS, clamped by the GOSEMIGROUPS_THREADS environment variable
// when set.
func NewRace() *Race {
	max := runtime.GOMAXPROCS(0)
	if s := os.Getenv("GOSEMIGROUPS_THREADS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n < max {
			max = n
		}
	}
	return &Race{maxThreads: max, log: report.New("Race")}
}

// AddRunner installs a competitor. It fails with ErrStarted once the
// race has begun.
func (r *Race) AddRunner(runner Runner) error {
	if r.started.Load() {
		return ErrStarted
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners = append(r.runners, runner)
	return nil
}

// SetMaxThreads bounds the number of runners executing at once.
func (r *Race) SetMaxThreads(n int) {
	if n > 0 {
		r.mu.Lock()
		r.maxThreads = n
		r.mu.Unlock()
	}
}

// Runners returns the installed competitors, mainly so facades can
// forward AddPair and consult ConstContains before the race starts.
func (r *Race) Runners() []Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Runner(nil), r.runners...)
}

// Started reports whether the race has begun; runner input is frozen
// from that point.
func (r *Race) Started() bool { return r.started.Load() }

// FindWinner returns the already-chosen winner without racing.
func (r *Race) FindWinner() (Runner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winner, r.winner != nil
}

// Winner runs the race (once) and returns the winning runner. Each
// worker observes the shared group context: when one finishes, the rest
// see the cancellation at their next progress check and exit. A runner
// that is already finished wins without any goroutine being spawned.
func (r *Race) Winner(ctx context.Context) (Runner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.winner != nil {
		return r.winner, nil
	}
	if len(r.runners) == 0 {
		return nil, ErrNoMethods
	}
	r.started.Store(true)
	for _, runner := range r.runners {
		if runner.Finished() {
			r.winner = runner
			return r.winner, nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxThreads)
	var won atomic.Pointer[Runner]
	fatal := make([]error, len(r.runners))
	for i, runner := range r.runners {
		i, runner := i, runner
		g.Go(func() error {
			err := runner.Run(gctx)
			switch {
			case err == nil && runner.Finished():
				if won.CompareAndSwap(nil, &runner) {
					r.log.Report("runner finished first", "index", i)
				}
				return errWon
			case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return nil
			default:
				r.log.Report("runner failed", "index", i, "err", err)
				fatal[i] = err
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errWon) {
		return nil, err
	}
	if p := won.Load(); p != nil {
		r.winner = *p
		return r.winner, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range fatal {
		if err != nil {
			return nil, fmt.Errorf("%w: first failure: %v", ErrAllFailed, err)
		}
	}
	return nil, ErrAllFailed
}
