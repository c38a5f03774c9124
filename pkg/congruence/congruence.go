package congruence

import (
	"context"
)

// Congruence is the user-facing facade over a race of solvers. Over a
// finite presentation it installs a Todd-Coxeter enumerator and a
// Knuth-Bendix-backed pair closure (plus plain Knuth-Bendix for
// two-sided congruences, where rewriting alone decides the word
// problem); over a concrete parent semigroup it installs a
// Cayley-graph-prefilled Todd-Coxeter and brute-force pair closure.
// The first solver to finish answers every query.
type Congruence struct {
	kind   Kind
	nrGens int
	race   *Race
}

// NewCongruence returns a congruence of the given kind on the semigroup
// presented by relations over nrGens generators, generated by the extra
// pairs.
func NewCongruence(kind Kind, nrGens int, relations, extras []Relation) (*Congruence, error) {
	c := &Congruence{kind: kind, nrGens: nrGens, race: NewRace()}

	tc, err := NewToddCoxeter(kind, nrGens, relations, extras)
	if err != nil {
		return nil, err
	}
	if err := c.race.AddRunner(tc); err != nil {
		return nil, err
	}

	kb, err := NewKnuthBendix(kind, nrGens, relations)
	if err != nil {
		return nil, err
	}
	if kind == TwoSided {
		// Extra pairs of a two-sided congruence are just further
		// relations, so plain rewriting competes too.
		for _, e := range extras {
			if err := kb.AddPair(e.LHS, e.RHS); err != nil {
				return nil, err
			}
		}
		if err := c.race.AddRunner(kb); err != nil {
			return nil, err
		}
	}

	// KBP owns a rewrite system of its own; sharing one with the plain
	// Knuth-Bendix runner would have two goroutines completing the
	// same rules.
	kbOwn, err := NewKnuthBendix(kind, nrGens, relations)
	if err != nil {
		return nil, err
	}
	kbp, err := NewKBP(kind, kbOwn)
	if err != nil {
		return nil, err
	}
	for _, e := range extras {
		if err := kbp.AddPair(e.LHS, e.RHS); err != nil {
			return nil, err
		}
	}
	if err := c.race.AddRunner(kbp); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCongruenceOverSemigroup returns a congruence of the given kind on
// a concrete parent semigroup, generated by pairs added later with
// AddPair. The parent is enumerated up front: once the race starts the
// solvers share it read-only across goroutines.
func NewCongruenceOverSemigroup(ctx context.Context, kind Kind, s *EnumeratedSemigroup) (*Congruence, error) {
	if err := s.Enumerate(ctx); err != nil {
		return nil, err
	}
	if kind == Left {
		if _, err := s.LeftCayley(ctx); err != nil {
			return nil, err
		}
	}
	c := &Congruence{kind: kind, nrGens: s.NrGenerators(), race: NewRace()}
	tc, err := NewToddCoxeterFromSemigroup(kind, s, PolicyUseCayleyGraph)
	if err != nil {
		return nil, err
	}
	if err := c.race.AddRunner(tc); err != nil {
		return nil, err
	}
	p, err := NewP(kind, s)
	if err != nil {
		return nil, err
	}
	if err := c.race.AddRunner(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Kind returns the congruence kind fixed at construction.
func (c *Congruence) Kind() Kind { return c.kind }

// NrGenerators returns the alphabet size.
func (c *Congruence) NrGenerators() int { return c.nrGens }

// Race exposes the underlying coordinator, e.g. to cap its width.
func (c *Congruence) Race() *Race { return c.race }

// AddPair registers an extra generating pair with every installed
// solver. It fails with ErrStarted once the race has begun.
func (c *Congruence) AddPair(u, v Word) error {
	if c.race.Started() {
		return ErrStarted
	}
	for _, r := range c.race.Runners() {
		if err := r.AddPair(u, v); err != nil {
			return err
		}
	}
	return nil
}

// Run races the solvers to completion.
func (c *Congruence) Run(ctx context.Context) error {
	_, err := c.race.Winner(ctx)
	return err
}

// Finished reports whether a winner exists.
func (c *Congruence) Finished() bool {
	_, ok := c.race.FindWinner()
	return ok
}

// NrClasses returns the number of congruence classes, or Infinity.
func (c *Congruence) NrClasses(ctx context.Context) (int, error) {
	w, err := c.race.Winner(ctx)
	if err != nil {
		return 0, err
	}
	return w.NrClasses(ctx)
}

// WordToClassIndex returns the class index of w under the winning
// solver's numbering.
func (c *Congruence) WordToClassIndex(ctx context.Context, w Word) (int, error) {
	r, err := c.race.Winner(ctx)
	if err != nil {
		return 0, err
	}
	return r.WordToClassIndex(ctx, w)
}

// ClassIndexToWord returns a representative word of class i.
func (c *Congruence) ClassIndexToWord(ctx context.Context, i int) (Word, error) {
	r, err := c.race.Winner(ctx)
	if err != nil {
		return nil, err
	}
	return r.ClassIndexToWord(ctx, i)
}

// Contains reports whether u and v lie in the same class.
func (c *Congruence) Contains(ctx context.Context, u, v Word) (bool, error) {
	if u.Equal(v) {
		return true, nil
	}
	r, err := c.race.Winner(ctx)
	if err != nil {
		return false, err
	}
	return r.Contains(ctx, u, v)
}

// ConstContains consults the solvers without running them. While the
// race is in flight runner state is off-limits, so only an
// already-chosen winner is asked.
func (c *Congruence) ConstContains(u, v Word) Ternary {
	if u.Equal(v) {
		return TernaryTrue
	}
	if w, ok := c.race.FindWinner(); ok {
		return w.ConstContains(u, v)
	}
	if c.race.Started() {
		return TernaryUnknown
	}
	for _, r := range c.race.Runners() {
		if t := r.ConstContains(u, v); t != TernaryUnknown {
			return t
		}
	}
	return TernaryUnknown
}

// Less reports whether the class of u precedes the class of v in the
// winner's ordering.
func (c *Congruence) Less(ctx context.Context, u, v Word) (bool, error) {
	r, err := c.race.Winner(ctx)
	if err != nil {
		return false, err
	}
	return r.Less(ctx, u, v)
}

// NonTrivialClasses returns the classes with more than one parent
// element as slices of representative words.
func (c *Congruence) NonTrivialClasses(ctx context.Context) ([][]Word, error) {
	r, err := c.race.Winner(ctx)
	if err != nil {
		return nil, err
	}
	return r.NonTrivialClasses(ctx)
}

// NrNonTrivialClasses counts the classes with more than one parent
// element.
func (c *Congruence) NrNonTrivialClasses(ctx context.Context) (int, error) {
	ntc, err := c.NonTrivialClasses(ctx)
	if err != nil {
		return 0, err
	}
	return len(ntc), nil
}

// IsQuotientObviouslyInfinite asks every solver for its cheap
// certificate.
func (c *Congruence) IsQuotientObviouslyInfinite() bool {
	for _, r := range c.race.Runners() {
		if r.IsQuotientObviouslyInfinite() {
			return true
		}
	}
	return false
}

// QuotientSemigroup materialises the winner's quotient.
func (c *Congruence) QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error) {
	r, err := c.race.Winner(ctx)
	if err != nil {
		return nil, err
	}
	return r.QuotientSemigroup(ctx)
}
