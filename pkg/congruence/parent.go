package congruence

import (
	"context"
	"fmt"
)

// Element is an opaque element of a concrete parent semigroup. The
// engines never inspect elements directly; products, equality and
// hashing all go through the parent's ElementOps.
type Element any

// ElementOps is the trait a concrete element type must supply. It
// replaces the original design's copy/free/product/hash template
// machinery: under a garbage collector only the algebra remains.
type ElementOps interface {
	// Product returns x*y. Implementations must not mutate x or y.
	Product(x, y Element) Element

	// Equal reports whether x and y are the same semigroup element.
	Equal(x, y Element) bool

	// Hash returns a value consistent with Equal.
	Hash(x Element) uint64
}

// ParentSemigroup is the capability a concrete semigroup exposes to the
// congruence engines. The element library behind it (transformations,
// boolean matrices, ...) lives with the caller.
type ParentSemigroup interface {
	// NrGenerators returns the number of generators.
	NrGenerators() int

	// Generator returns the i-th generator.
	Generator(i int) Element

	// Ops returns the element trait shared by all elements.
	Ops() ElementOps

	// WordToElement evaluates a word over the generators.
	WordToElement(w Word) (Element, error)

	// Factorisation returns a word over the generators whose product
	// is x. It may need to enumerate the semigroup.
	Factorisation(ctx context.Context, x Element) (Word, error)

	// Size returns the number of elements, enumerating if necessary,
	// or Infinity when the semigroup is known to be infinite.
	Size(ctx context.Context) (int, error)
}

// EnumeratedSemigroup is a parent semigroup closed off from a finite
// generating set by breadth-first multiplication. Enumeration interns
// every product once, caches the right Cayley graph as it goes, and
// records a first-discovery factorisation per element. It satisfies
// ParentSemigroup and additionally exposes the index-level access the
// Todd-Coxeter prefill and quotient machinery need.
type EnumeratedSemigroup struct {
	ops  ElementOps
	gens []Element

	elems   []Element
	buckets map[uint64][]int
	facts   []Word
	right   [][]int
	left    [][]int

	enumerated bool
}

// NewEnumeratedSemigroup returns the semigroup generated by gens under
// ops. Nothing is enumerated until Enumerate (or a query that needs
// it) is called.
func NewEnumeratedSemigroup(ops ElementOps, gens []Element) (*EnumeratedSemigroup, error) {
	if len(gens) == 0 {
		return nil, fmt.Errorf("%w: no generators", ErrBadAlphabet)
	}
	s := &EnumeratedSemigroup{
		ops:     ops,
		gens:    gens,
		buckets: make(map[uint64][]int),
	}
	for i, g := range gens {
		s.intern(g, Word{Letter(i)})
	}
	return s, nil
}

func (s *EnumeratedSemigroup) NrGenerators() int { return len(s.gens) }
func (s *EnumeratedSemigroup) Generator(i int) Element { return s.gens[i] }
func (s *EnumeratedSemigroup) Ops() ElementOps { return s.ops }

// intern returns the index of x, appending it with factorisation w if
// it is new. The second result reports whether x was already present.
func (s *EnumeratedSemigroup) intern(x Element, w Word) (int, bool) {
	h := s.ops.Hash(x)
	for _, i := range s.buckets[h] {
		if s.ops.Equal(s.elems[i], x) {
			return i, true
		}
	}
	i := len(s.elems)
	s.elems = append(s.elems, x)
	s.facts = append(s.facts, w)
	s.buckets[h] = append(s.buckets[h], i)
	return i, false
}

// Enumerate closes the generating set under multiplication. It is
// idempotent and checks ctx after each element processed; a cancelled
// enumeration can be resumed by calling Enumerate again.
func (s *EnumeratedSemigroup) Enumerate(ctx context.Context) error {
	if s.enumerated {
		return nil
	}
	for i := len(s.right); i < len(s.elems); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := make([]int, len(s.gens))
		for g := range s.gens {
			y := s.ops.Product(s.elems[i], s.gens[g])
			j, _ := s.intern(y, s.facts[i].Concat(Word{Letter(g)}))
			row[g] = j
		}
		s.right = append(s.right, row)
	}
	s.enumerated = true
	return nil
}

// Size returns the number of elements, enumerating first.
func (s *EnumeratedSemigroup) Size(ctx context.Context) (int, error) {
	if err := s.Enumerate(ctx); err != nil {
		return 0, err
	}
	return len(s.elems), nil
}

// At returns the element with enumeration index i.
func (s *EnumeratedSemigroup) At(i int) Element { return s.elems[i] }

// IndexOf returns the enumeration index of x among the elements
// interned so far.
func (s *EnumeratedSemigroup) IndexOf(x Element) (int, bool) {
	h := s.ops.Hash(x)
	for _, i := range s.buckets[h] {
		if s.ops.Equal(s.elems[i], x) {
			return i, true
		}
	}
	return 0, false
}

// WordToElement evaluates w by folding products over the generators.
func (s *EnumeratedSemigroup) WordToElement(w Word) (Element, error) {
	if err := w.Validate(len(s.gens)); err != nil {
		return nil, err
	}
	x := s.gens[w[0]]
	for _, a := range w[1:] {
		x = s.ops.Product(x, s.gens[a])
	}
	return x, nil
}

// Factorisation returns the first-discovery word for x.
func (s *EnumeratedSemigroup) Factorisation(ctx context.Context, x Element) (Word, error) {
	if err := s.Enumerate(ctx); err != nil {
		return nil, err
	}
	i, ok := s.IndexOf(x)
	if !ok {
		return nil, fmt.Errorf("congruence: element not in semigroup")
	}
	return s.facts[i].Clone(), nil
}

// FactorisationAt returns the first-discovery word for the element with
// enumeration index i.
func (s *EnumeratedSemigroup) FactorisationAt(i int) Word { return s.facts[i].Clone() }

// RightCayley returns the right Cayley graph: row i, column g holds the
// index of elems[i] * gens[g].
func (s *EnumeratedSemigroup) RightCayley(ctx context.Context) ([][]int, error) {
	if err := s.Enumerate(ctx); err != nil {
		return nil, err
	}
	return s.right, nil
}

// LeftCayley returns the left Cayley graph: row i, column g holds the
// index of gens[g] * elems[i]. It is computed on first use.
func (s *EnumeratedSemigroup) LeftCayley(ctx context.Context) ([][]int, error) {
	if err := s.Enumerate(ctx); err != nil {
		return nil, err
	}
	if s.left == nil {
		left := make([][]int, len(s.elems))
		for i := range s.elems {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			row := make([]int, len(s.gens))
			for g := range s.gens {
				y := s.ops.Product(s.gens[g], s.elems[i])
				j, ok := s.IndexOf(y)
				if !ok {
					return nil, fmt.Errorf("congruence: left multiple escapes the semigroup")
				}
				row[g] = j
			}
			left[i] = row
		}
		s.left = left
	}
	return s.left, nil
}

// NrIdempotents counts elements x with x*x = x.
func (s *EnumeratedSemigroup) NrIdempotents(ctx context.Context) (int, error) {
	if err := s.Enumerate(ctx); err != nil {
		return 0, err
	}
	n := 0
	for _, x := range s.elems {
		if s.ops.Equal(s.ops.Product(x, x), x) {
			n++
		}
	}
	return n, nil
}
