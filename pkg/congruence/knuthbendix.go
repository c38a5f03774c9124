package congruence

import (
	"context"
	"fmt"

	"github.com/gitrdm/gosemigroups/internal/report"
)

// kbRule is a rewrite rule lhs -> rhs with lhs shortlex-greater.
// Inactive rules have been superseded during interreduction and are
// kept only so queued indices stay valid.
type kbRule struct {
	lhs, rhs Word
	active   bool
}

// KnuthBendix orients the defining relations into a terminating
// rewrite system over the free monoid and completes it by resolving
// critical pairs under the shortlex order. Once the system is
// confluent every word has a unique normal form and word equality is
// decided by reduction.
//
// Completion need not terminate; Run checks its context before each
// batch of pending relations and before each queued rule's overlaps.
type KnuthBendix struct {
	runnerState
	nrGens int

	rules    []kbRule
	nrActive int
	pending  []Relation
	overlapQ []int
	oqHead   int

	classes   int // -1: not yet counted
	nfList    []Word
	nfIndex   map[string]int
	onDemand  map[string]int
	onDemRev  []Word

	log *report.Logger
}

// NewKnuthBendix returns a completion engine for the two-sided
// congruence presented by relations over nrGens generators. For
// one-sided congruences the rewriting machinery is used through KBP,
// which layers pair closure on top.
func NewKnuthBendix(kind Kind, nrGens int, relations []Relation) (*KnuthBendix, error) {
	if nrGens <= 0 {
		return nil, fmt.Errorf("%w: %d generators", ErrBadAlphabet, nrGens)
	}
	kb := &KnuthBendix{
		runnerState: runnerState{kind: kind},
		nrGens:      nrGens,
		classes:     -1,
		log:         report.New("KnuthBendix"),
	}
	for _, r := range relations {
		rel, err := NewRelation(nrGens, r.LHS, r.RHS)
		if err != nil {
			return nil, err
		}
		kb.pending = append(kb.pending, rel)
	}
	return kb, nil
}

// AddPair registers an extra relation before the run begins.
func (kb *KnuthBendix) AddPair(u, v Word) error {
	if kb.frozen() {
		return ErrStarted
	}
	rel, err := NewRelation(kb.nrGens, u, v)
	if err != nil {
		return err
	}
	kb.pending = append(kb.pending, rel)
	return nil
}

// reduce rewrites w to a normal form of the current rule set, applying
// the longest matching active rule at each position, left to right.
func (kb *KnuthBendix) reduce(w Word) Word {
	out := w.Clone()
	for changed := true; changed; {
		changed = false
	scan:
		for pos := 0; pos < len(out); pos++ {
			best, bestLen := -1, 0
			for ri := range kb.rules {
				r := &kb.rules[ri]
				if !r.active || len(r.lhs) <= bestLen || len(r.lhs) > len(out)-pos {
					continue
				}
				if Word(out[pos : pos+len(r.lhs)]).Equal(r.lhs) {
					best, bestLen = ri, len(r.lhs)
				}
			}
			if best >= 0 {
				r := &kb.rules[best]
				repl := make(Word, 0, len(out)-bestLen+len(r.rhs))
				repl = append(repl, out[:pos]...)
				repl = append(repl, r.rhs...)
				repl = append(repl, out[pos+bestLen:]...)
				out = repl
				changed = true
				break scan
			}
		}
	}
	return out
}

// insertRule orients the reduced pair (u, v) into a rule, queues it for
// overlap processing, and interreduces the existing system against it.
func (kb *KnuthBendix) insertRule(u, v Word) {
	if u.Equal(v) {
		return
	}
	lhs, rhs := u, v
	if lhs.ShortlexLess(rhs) {
		lhs, rhs = rhs, lhs
	}
	idx := len(kb.rules)
	kb.rules = append(kb.rules, kbRule{lhs: lhs, rhs: rhs, active: true})
	kb.nrActive++
	kb.overlapQ = append(kb.overlapQ, idx)

	for j := range kb.rules[:idx] {
		r := &kb.rules[j]
		if !r.active {
			continue
		}
		if containsFactor(r.lhs, lhs) {
			r.active = false
			kb.nrActive--
			kb.pending = append(kb.pending, Relation{LHS: r.lhs, RHS: r.rhs})
			continue
		}
		r.rhs = kb.reduce(r.rhs)
	}
}

func containsFactor(w, f Word) bool {
	for pos := 0; pos+len(f) <= len(w); pos++ {
		if Word(w[pos : pos+len(f)]).Equal(f) {
			return true
		}
	}
	return false
}

// drainPending reduces and inserts every queued relation.
func (kb *KnuthBendix) drainPending() {
	for len(kb.pending) > 0 {
		rel := kb.pending[0]
		kb.pending = kb.pending[1:]
		kb.insertRule(kb.reduce(rel.LHS), kb.reduce(rel.RHS))
	}
}

// overlaps resolves the genuine overlaps of rules i (suffix) and j
// (prefix): critical pairs that reduce to distinct normal forms become
// pending relations. Containments are not handled here; interreduction
// removes them at insertion time.
func (kb *KnuthBendix) overlaps(i, j int) {
	l1, r1 := kb.rules[i].lhs, kb.rules[i].rhs
	l2, r2 := kb.rules[j].lhs, kb.rules[j].rhs
	max := len(l1)
	if len(l2) < max {
		max = len(l2)
	}
	for k := 1; k < max; k++ {
		if !Word(l1[len(l1)-k:]).Equal(Word(l2[:k])) {
			continue
		}
		t1 := r1.Concat(Word(l2[k:]))
		t2 := Word(l1[:len(l1)-k]).Concat(r2)
		u, v := kb.reduce(t1), kb.reduce(t2)
		if !u.Equal(v) {
			kb.pending = append(kb.pending, Relation{LHS: u, RHS: v})
		}
	}
}

// Run completes the rewrite system, or returns the context's error if
// cancelled first. An empty work queue means the system is confluent.
func (kb *KnuthBendix) Run(ctx context.Context) error {
	if kb.Finished() {
		return nil
	}
	kb.start()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(kb.pending) > 0 {
			kb.drainPending()
			continue
		}
		if kb.oqHead >= len(kb.overlapQ) {
			break
		}
		j := kb.overlapQ[kb.oqHead]
		kb.oqHead++
		if !kb.rules[j].active {
			continue
		}
		for i := range kb.rules {
			if !kb.rules[i].active {
				continue
			}
			kb.overlaps(i, j)
			kb.overlaps(j, i)
			kb.drainPending()
			if !kb.rules[j].active {
				break
			}
		}
	}
	kb.log.Report("completion closed", "rules", kb.nrActive)
	kb.finished.Store(true)
	return nil
}

// Confluent checks, without mutating the system, that every critical
// pair of the current active rules resolves to a common normal form.
func (kb *KnuthBendix) Confluent() bool {
	ok := true
	check := func(i, j int) {
		l1, r1 := kb.rules[i].lhs, kb.rules[i].rhs
		l2, r2 := kb.rules[j].lhs, kb.rules[j].rhs
		max := len(l1)
		if len(l2) < max {
			max = len(l2)
		}
		for k := 1; k < max; k++ {
			if !Word(l1[len(l1)-k:]).Equal(Word(l2[:k])) {
				continue
			}
			u := kb.reduce(r1.Concat(Word(l2[k:])))
			v := kb.reduce(Word(l1[:len(l1)-k]).Concat(r2))
			if !u.Equal(v) {
				ok = false
				return
			}
		}
	}
	for i := range kb.rules {
		if !kb.rules[i].active {
			continue
		}
		for j := range kb.rules {
			if !kb.rules[j].active {
				continue
			}
			check(i, j)
			if !ok {
				return false
			}
		}
	}
	return true
}

// ActiveRules returns the current rewrite system as relations.
func (kb *KnuthBendix) ActiveRules() []Relation {
	var out []Relation
	for _, r := range kb.rules {
		if r.active {
			out = append(out, Relation{LHS: r.lhs.Clone(), RHS: r.rhs.Clone()})
		}
	}
	return out
}

// NrRules returns the number of active rules.
func (kb *KnuthBendix) NrRules() int { return kb.nrActive }

// IsQuotientObviouslyInfinite reports true when some generator is
// certainly unbounded: before completion, a generator mentioned by no
// relation at all; after completion, a generator occurring in no
// left-hand side (its powers are all irreducible).
func (kb *KnuthBendix) IsQuotientObviouslyInfinite() bool {
	seen := make([]bool, kb.nrGens)
	if kb.Finished() {
		for _, r := range kb.rules {
			if !r.active {
				continue
			}
			for _, a := range r.lhs {
				seen[a] = true
			}
		}
	} else {
		mark := func(w Word) {
			for _, a := range w {
				seen[a] = true
			}
		}
		for _, r := range kb.rules {
			mark(r.lhs)
			mark(r.rhs)
		}
		for _, r := range kb.pending {
			mark(r.LHS)
			mark(r.RHS)
		}
	}
	for _, s := range seen {
		if !s {
			return true
		}
	}
	return false
}

// nfAutomaton recognises the irreducible words: states are the factor-
// free proper prefixes of left-hand sides, the transition on g rejects
// words acquiring a left-hand side as suffix and otherwise moves to the
// longest suffix that is again a state.
type nfAutomaton struct {
	states []Word
	index  map[string]int
	trans  [][]int // -1 rejected
}

func (kb *KnuthBendix) buildAutomaton() *nfAutomaton {
	var lhss []Word
	for _, r := range kb.rules {
		if r.active {
			lhss = append(lhss, r.lhs)
		}
	}
	a := &nfAutomaton{index: make(map[string]int)}
	add := func(w Word) {
		k := w.String()
		if _, ok := a.index[k]; ok {
			return
		}
		a.index[k] = len(a.states)
		a.states = append(a.states, w)
	}
	add(Word{})
	for _, l := range lhss {
	prefixes:
		for n := 1; n < len(l); n++ {
			p := l[:n]
			for _, l2 := range lhss {
				if len(l2) <= n && containsFactor(p, l2) {
					continue prefixes
				}
			}
			add(p.Clone())
		}
	}
	a.trans = make([][]int, len(a.states))
	for si, s := range a.states {
		row := make([]int, kb.nrGens)
		for g := 0; g < kb.nrGens; g++ {
			t := s.Concat(Word{Letter(g)})
			row[g] = -1
			rejected := false
			for _, l := range lhss {
				if len(l) <= len(t) && Word(t[len(t)-len(l):]).Equal(l) {
					rejected = true
					break
				}
			}
			if rejected {
				continue
			}
			for cut := 0; cut <= len(t); cut++ {
				if id, ok := a.index[Word(t[cut:]).String()]; ok {
					row[g] = id
					break
				}
			}
		}
		a.trans[si] = row
	}
	return a
}

// countClasses runs the finiteness analysis: the set of irreducible
// words is finite iff no cycle is reachable from the start state, in
// which case the nonempty paths are counted.
func (kb *KnuthBendix) countClasses() int {
	a := kb.buildAutomaton()
	const (
		white = iota
		grey
		black
	)
	colour := make([]int, len(a.states))
	cyclic := false
	var dfs func(s int)
	dfs = func(s int) {
		colour[s] = grey
		for g := 0; g < kb.nrGens; g++ {
			t := a.trans[s][g]
			if t < 0 {
				continue
			}
			switch colour[t] {
			case grey:
				cyclic = true
			case white:
				dfs(t)
			}
			if cyclic {
				return
			}
		}
		colour[s] = black
	}
	dfs(0)
	if cyclic {
		return Infinity
	}
	memo := make([]int, len(a.states))
	for i := range memo {
		memo[i] = -1
	}
	var count func(s int) int
	count = func(s int) int {
		if memo[s] >= 0 {
			return memo[s]
		}
		n := 0
		for g := 0; g < kb.nrGens; g++ {
			if t := a.trans[s][g]; t >= 0 {
				n += 1 + count(t)
			}
		}
		memo[s] = n
		return n
	}
	return count(0)
}

// enumerateNormalForms lists the finite set of normal forms in
// shortlex order and indexes them.
func (kb *KnuthBendix) enumerateNormalForms() {
	if kb.nfList != nil {
		return
	}
	a := kb.buildAutomaton()
	kb.nfIndex = make(map[string]int)
	type item struct {
		state int
		word  Word
	}
	queue := []item{{state: 0, word: Word{}}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		for g := 0; g < kb.nrGens; g++ {
			t := a.trans[it.state][g]
			if t < 0 {
				continue
			}
			w := it.word.Concat(Word{Letter(g)})
			kb.nfIndex[w.String()] = len(kb.nfList)
			kb.nfList = append(kb.nfList, w)
			queue = append(queue, item{state: t, word: w})
		}
	}
}

// NrClasses completes the system and counts its classes, or reports
// Infinity.
func (kb *KnuthBendix) NrClasses(ctx context.Context) (int, error) {
	if err := kb.Run(ctx); err != nil {
		return 0, err
	}
	if kb.classes < 0 {
		kb.classes = kb.countClasses()
	}
	return kb.classes, nil
}

// WordToClassIndex returns the class index of w: the shortlex position
// of its normal form for finite quotients, or a first-query-order
// index for infinite ones.
func (kb *KnuthBendix) WordToClassIndex(ctx context.Context, w Word) (int, error) {
	if err := w.Validate(kb.nrGens); err != nil {
		return 0, err
	}
	n, err := kb.NrClasses(ctx)
	if err != nil {
		return 0, err
	}
	nf := kb.reduce(w)
	if n != Infinity {
		kb.enumerateNormalForms()
		return kb.nfIndex[nf.String()], nil
	}
	if kb.onDemand == nil {
		kb.onDemand = make(map[string]int)
	}
	key := nf.String()
	if i, ok := kb.onDemand[key]; ok {
		return i, nil
	}
	i := len(kb.onDemRev)
	kb.onDemand[key] = i
	kb.onDemRev = append(kb.onDemRev, nf)
	return i, nil
}

// ClassIndexToWord returns the normal form with class index i.
func (kb *KnuthBendix) ClassIndexToWord(ctx context.Context, i int) (Word, error) {
	n, err := kb.NrClasses(ctx)
	if err != nil {
		return nil, err
	}
	if n != Infinity {
		kb.enumerateNormalForms()
		if i < 0 || i >= len(kb.nfList) {
			return nil, fmt.Errorf("congruence: class index %d out of range [0, %d)", i, len(kb.nfList))
		}
		return kb.nfList[i].Clone(), nil
	}
	if i < 0 || i >= len(kb.onDemRev) {
		return nil, fmt.Errorf("%w: class %d not yet indexed", ErrNotFinished, i)
	}
	return kb.onDemRev[i].Clone(), nil
}

// Contains reduces both words and compares normal forms.
func (kb *KnuthBendix) Contains(ctx context.Context, u, v Word) (bool, error) {
	if err := u.Validate(kb.nrGens); err != nil {
		return false, err
	}
	if err := v.Validate(kb.nrGens); err != nil {
		return false, err
	}
	if err := kb.Run(ctx); err != nil {
		return false, err
	}
	return kb.reduce(u).Equal(kb.reduce(v)), nil
}

// ConstContains reduces with the rules found so far: a common descent
// is already conclusive, inequality only once the system is confluent.
func (kb *KnuthBendix) ConstContains(u, v Word) Ternary {
	if u.Validate(kb.nrGens) != nil || v.Validate(kb.nrGens) != nil {
		return TernaryUnknown
	}
	if kb.reduce(u).Equal(kb.reduce(v)) {
		return TernaryTrue
	}
	if kb.Finished() {
		return TernaryFalse
	}
	return TernaryUnknown
}

// Less compares normal forms in the shortlex order.
func (kb *KnuthBendix) Less(ctx context.Context, u, v Word) (bool, error) {
	if err := kb.Run(ctx); err != nil {
		return false, err
	}
	return kb.reduce(u).ShortlexLess(kb.reduce(v)), nil
}

// NonTrivialClasses needs a concrete parent to enumerate against;
// plain rewriting has none.
func (kb *KnuthBendix) NonTrivialClasses(ctx context.Context) ([][]Word, error) {
	return nil, ErrNoParent
}

// QuotientSemigroup materialises the quotient on normal forms.
func (kb *KnuthBendix) QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error) {
	n, err := kb.NrClasses(ctx)
	if err != nil {
		return nil, err
	}
	if n == Infinity {
		return nil, ErrQuotientInfinite
	}
	gens := make([]Element, kb.nrGens)
	for g := range gens {
		gens[g] = kb.reduce(Word{Letter(g)})
	}
	return NewEnumeratedSemigroup(kbOps{kb: kb}, gens)
}

// kbOps is the element trait of a Knuth-Bendix quotient: elements are
// normal-form words, multiplied by reducing the concatenation.
type kbOps struct {
	kb *KnuthBendix
}

func (o kbOps) Product(x, y Element) Element {
	return o.kb.reduce(x.(Word).Concat(y.(Word)))
}

func (o kbOps) Equal(x, y Element) bool { return x.(Word).Equal(y.(Word)) }
func (o kbOps) Hash(x Element) uint64 { return x.(Word).hash() }

// kbSemigroup wraps a completed Knuth-Bendix system as a parent
// semigroup whose elements are normal forms; factorisation is the
// identity on words, and the size comes from the finiteness analysis
// rather than an enumeration, so infinite quotients answer instantly.
type kbSemigroup struct {
	kb *KnuthBendix
}

func (s kbSemigroup) NrGenerators() int { return s.kb.nrGens }
func (s kbSemigroup) Generator(i int) Element { return s.kb.reduce(Word{Letter(i)}) }
func (s kbSemigroup) Ops() ElementOps { return kbOps{kb: s.kb} }

func (s kbSemigroup) WordToElement(w Word) (Element, error) {
	if err := w.Validate(s.kb.nrGens); err != nil {
		return nil, err
	}
	return s.kb.reduce(w), nil
}

func (s kbSemigroup) Factorisation(ctx context.Context, x Element) (Word, error) {
	return x.(Word).Clone(), nil
}

func (s kbSemigroup) Size(ctx context.Context) (int, error) {
	return s.kb.NrClasses(ctx)
}
