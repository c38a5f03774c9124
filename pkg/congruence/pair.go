package congruence

import (
	"context"
	"fmt"

	"github.com/gitrdm/gosemigroups/internal/report"
)

// P enumerates a congruence on a concrete parent semigroup by brute
// force: every known-equal pair is multiplied by every generator on the
// side(s) the congruence kind dictates, and the resulting pairs are
// united in a union-find over interned elements, until no new pair
// arises. The approach is simple and complete but can intern a large
// part of the parent; it shines in a race, where it wins exactly the
// inputs the symbolic solvers find hard.
type P struct {
	runnerState
	parent ParentSemigroup

	elems   []Element
	buckets map[uint64][]int
	lookup  *UnionFind

	found map[[2]int]struct{}
	queue [][2]int
	head  int

	classLookup   []int
	nextClass     int
	nrNonTrivial  int
	elemsAtFinish int

	// initFn, when set, runs once at the top of Run; KBP uses it to
	// complete its rewrite system before any pair is interned.
	initFn func(ctx context.Context) error

	log *report.Logger
}

// NewP returns a pair-closure solver for a congruence of the given
// kind on the parent semigroup s.
func NewP(kind Kind, s ParentSemigroup) (*P, error) {
	if s == nil {
		return nil, ErrNoParent
	}
	return &P{
		runnerState: runnerState{kind: kind},
		parent:      s,
		buckets:     make(map[uint64][]int),
		lookup:      NewUnionFind(0),
		found:       make(map[[2]int]struct{}),
		log:         report.New("P"),
	}, nil
}

// AddPair evaluates both words in the parent and records the element
// pair.
func (p *P) AddPair(u, v Word) error {
	if p.frozen() {
		return ErrStarted
	}
	x, err := p.parent.WordToElement(u)
	if err != nil {
		return err
	}
	y, err := p.parent.WordToElement(v)
	if err != nil {
		return err
	}
	p.internalAddPair(x, y)
	return nil
}

// intern returns the index of x in the element table, appending it if
// new. After the run has finished, fresh elements are issued the next
// free class index so queries stay total.
func (p *P) intern(x Element) int {
	ops := p.parent.Ops()
	h := ops.Hash(x)
	for _, i := range p.buckets[h] {
		if ops.Equal(p.elems[i], x) {
			return i
		}
	}
	i := len(p.elems)
	p.elems = append(p.elems, x)
	p.buckets[h] = append(p.buckets[h], i)
	p.lookup.AddEntry()
	if p.Finished() {
		p.classLookup = append(p.classLookup, p.nextClass)
		p.nextClass++
	}
	return i
}

// internalAddPair interns x and y, canonicalises the index pair and, if
// it is new, records it, queues it for multiplication and unites the
// blocks.
func (p *P) internalAddPair(x, y Element) {
	if p.parent.Ops().Equal(x, y) {
		return
	}
	i, j := p.intern(x), p.intern(y)
	if i == j {
		return
	}
	if j < i {
		i, j = j, i
	}
	pair := [2]int{i, j}
	if _, ok := p.found[pair]; ok {
		return
	}
	p.found[pair] = struct{}{}
	p.queue = append(p.queue, pair)
	p.lookup.Unite(i, j)
}

// Run dequeues each pair and pushes its generator multiples, then
// normalises the class numbering in first-appearance order.
func (p *P) Run(ctx context.Context) error {
	if p.Finished() {
		return nil
	}
	p.start()
	if p.initFn != nil {
		if err := p.initFn(ctx); err != nil {
			return err
		}
		p.initFn = nil
	}
	n := p.parent.NrGenerators()
	for p.head < len(p.queue) {
		if err := ctx.Err(); err != nil {
			return err
		}
		pair := p.queue[p.head]
		p.head++
		x, y := p.elems[pair[0]], p.elems[pair[1]]
		ops := p.parent.Ops()
		for g := 0; g < n; g++ {
			gen := p.parent.Generator(g)
			if p.kind == Left || p.kind == TwoSided {
				p.internalAddPair(ops.Product(gen, x), ops.Product(gen, y))
			}
			if p.kind == Right || p.kind == TwoSided {
				p.internalAddPair(ops.Product(x, gen), ops.Product(y, gen))
			}
		}
		if p.head%1024 == 0 {
			p.log.Report("pair closure",
				"pairs", len(p.found), "elements", len(p.elems),
				"classes", p.lookup.NrBlocks(), "queued", len(p.queue)-p.head)
		}
	}

	p.classLookup = make([]int, len(p.elems))
	seen := make(map[int]int)
	for i := range p.elems {
		r := p.lookup.Find(i)
		c, ok := seen[r]
		if !ok {
			c = p.nextClass
			seen[r] = c
			p.nextClass++
		}
		p.classLookup[i] = c
	}
	p.nrNonTrivial = p.nextClass
	p.elemsAtFinish = len(p.elems)
	p.log.Report("pair closure finished",
		"pairs", len(p.found), "elements", len(p.elems), "classes", p.nextClass)
	p.finished.Store(true)
	return nil
}

// NrClasses is the parent size less the interned elements, plus the
// classes they fall into.
func (p *P) NrClasses(ctx context.Context) (int, error) {
	if err := p.Run(ctx); err != nil {
		return 0, err
	}
	size, err := p.parent.Size(ctx)
	if err != nil {
		return 0, err
	}
	if size == Infinity {
		return Infinity, nil
	}
	return size - len(p.elems) + p.nextClass, nil
}

// WordToClassIndex runs and returns the class index of w's element.
func (p *P) WordToClassIndex(ctx context.Context, w Word) (int, error) {
	if err := p.Run(ctx); err != nil {
		return 0, err
	}
	x, err := p.parent.WordToElement(w)
	if err != nil {
		return 0, err
	}
	return p.classLookup[p.intern(x)], nil
}

// ClassIndexToWord is deliberately unimplemented for pair closure: the
// interned table covers only the elements touched by pairs, so there is
// no canonical representative for the remaining classes.
func (p *P) ClassIndexToWord(ctx context.Context, i int) (Word, error) {
	return nil, fmt.Errorf("%w: class representatives on pair closure", ErrNotImplemented)
}

// Contains reports whether u and v evaluate into the same class.
func (p *P) Contains(ctx context.Context, u, v Word) (bool, error) {
	i, err := p.WordToClassIndex(ctx, u)
	if err != nil {
		return false, err
	}
	j, err := p.WordToClassIndex(ctx, v)
	if err != nil {
		return false, err
	}
	return i == j, nil
}

// ConstContains answers only from the interned table; it cannot rule
// anything out before the closure is complete.
func (p *P) ConstContains(u, v Word) Ternary {
	if u.Equal(v) {
		return TernaryTrue
	}
	x, err := p.parent.WordToElement(u)
	if err != nil {
		return TernaryUnknown
	}
	y, err := p.parent.WordToElement(v)
	if err != nil {
		return TernaryUnknown
	}
	ops := p.parent.Ops()
	if ops.Equal(x, y) {
		return TernaryTrue
	}
	i, okX := p.indexOf(x)
	j, okY := p.indexOf(y)
	if okX && okY && p.lookup.Find(i) == p.lookup.Find(j) {
		return TernaryTrue
	}
	if p.Finished() {
		return TernaryFalse
	}
	return TernaryUnknown
}

func (p *P) indexOf(x Element) (int, bool) {
	ops := p.parent.Ops()
	for _, i := range p.buckets[ops.Hash(x)] {
		if ops.Equal(p.elems[i], x) {
			return i, true
		}
	}
	return 0, false
}

// Less orders classes by their index; stable within a run.
func (p *P) Less(ctx context.Context, u, v Word) (bool, error) {
	i, err := p.WordToClassIndex(ctx, u)
	if err != nil {
		return false, err
	}
	j, err := p.WordToClassIndex(ctx, v)
	if err != nil {
		return false, err
	}
	return i < j, nil
}

// NonTrivialClasses factorises the elements interned at completion and
// buckets them by class. Every such class has at least two elements.
func (p *P) NonTrivialClasses(ctx context.Context) ([][]Word, error) {
	if err := p.Run(ctx); err != nil {
		return nil, err
	}
	out := make([][]Word, p.nrNonTrivial)
	for i := 0; i < p.elemsAtFinish; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := p.parent.Factorisation(ctx, p.elems[i])
		if err != nil {
			return nil, err
		}
		c := p.classLookup[i]
		out[c] = append(out[c], w)
	}
	return out, nil
}

// IsQuotientObviouslyInfinite has nothing cheap to say for pair
// closure.
func (p *P) IsQuotientObviouslyInfinite() bool { return false }

// QuotientSemigroup is deliberately unimplemented for pair closure.
func (p *P) QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error) {
	return nil, fmt.Errorf("%w: quotient semigroup on pair closure", ErrNotImplemented)
}

// KBP computes a congruence on a finitely presented semigroup by first
// completing a Knuth-Bendix system for the defining relations, so that
// element equality becomes decidable on normal forms, and then running
// pair closure over them.
type KBP struct {
	*P
	kb    *KnuthBendix
	pairs []Relation
}

// NewKBP returns a pair-closure solver whose parent is the quotient of
// kb's rewrite system. The parent's size comes from the system's
// finiteness analysis, so infinite parents answer without enumeration.
func NewKBP(kind Kind, kb *KnuthBendix) (*KBP, error) {
	p, err := NewP(kind, kbSemigroup{kb: kb})
	if err != nil {
		return nil, err
	}
	k := &KBP{P: p, kb: kb}
	// Stored pairs may only be interned once the system is confluent:
	// before that, distinct reductions of equal elements would intern
	// as distinct entries.
	p.initFn = func(ctx context.Context) error {
		if err := kb.Run(ctx); err != nil {
			return err
		}
		for _, r := range k.pairs {
			k.internalAddPair(kb.reduce(r.LHS), kb.reduce(r.RHS))
		}
		k.pairs = nil
		return nil
	}
	return k, nil
}

// AddPair stores the word pair; it is interned once the rewrite system
// is confluent and normal forms exist.
func (k *KBP) AddPair(u, v Word) error {
	if k.frozen() {
		return ErrStarted
	}
	r, err := NewRelation(k.kb.nrGens, u, v)
	if err != nil {
		return err
	}
	k.pairs = append(k.pairs, r)
	return nil
}
