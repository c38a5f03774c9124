package congruence

import (
	"context"
	"fmt"

	"github.com/gitrdm/gosemigroups/internal/report"
)

// Policy selects how a ToddCoxeter constructed over a parent semigroup
// obtains its defining data.
type Policy int

const (
	// PolicyNone: relations are supplied directly (the default for the
	// relation-based constructor).
	PolicyNone Policy = iota
	// PolicyUseRelations derives a defining relation per edge of the
	// parent's right Cayley graph.
	PolicyUseRelations
	// PolicyUseCayleyGraph prefills the coset table from the parent's
	// Cayley graph, skipping coset discovery entirely.
	PolicyUseCayleyGraph
)

const undefined = -1

// defaultPackLimit is the number of dead cosets tolerated before the
// table is compacted.
const defaultPackLimit = 120000

// preferredCap bounds the preferred-definitions queue; overflow drops
// the oldest entry.
const preferredCap = 4096

// ToddCoxeter enumerates the classes of a congruence by HLT-style coset
// enumeration: it maintains a partial action table on coset indices,
// deduces coincidences between cosets from the defining relations, and
// merges them through a union-find until the table is closed and
// consistent.
//
// Coset 0 is a formal identity and is never merged away; the classes of
// the congruence are the remaining live cosets. Left congruences are
// handled by reversing every word and acting by the left Cayley graph,
// so that a single right-action engine serves all three kinds.
type ToddCoxeter struct {
	runnerState
	nrGens    int
	relations []Relation // pushed at every live coset
	extras    []Relation // traced from the identity coset only
	parent    *EnumeratedSemigroup
	policy    Policy

	table  [][]int
	uf     *UnionFind
	dead   []bool
	nrDead int

	coinc     [][2]int
	coincHead int

	preferred [][2]int

	scan       int
	prefilled  bool
	initDone   bool
	extrasDone bool

	packLimit      int
	lookaheadEvery int
	defsSince      int

	reps []Word

	log *report.Logger
}

// NewToddCoxeter returns a coset enumerator for the congruence of the
// given kind on the semigroup presented by relations over nrGens
// generators, generated by the extra pairs.
func NewToddCoxeter(kind Kind, nrGens int, relations, extras []Relation) (*ToddCoxeter, error) {
	if nrGens <= 0 {
		return nil, fmt.Errorf("%w: %d generators", ErrBadAlphabet, nrGens)
	}
	tc := &ToddCoxeter{
		runnerState: runnerState{kind: kind},
		nrGens:      nrGens,
		packLimit:   defaultPackLimit,
		log:         report.New("ToddCoxeter"),
	}
	for _, r := range relations {
		rel, err := NewRelation(nrGens, r.LHS, r.RHS)
		if err != nil {
			return nil, err
		}
		if kind == Left {
			rel = rel.Reversed()
		}
		tc.relations = append(tc.relations, rel)
	}
	for _, r := range extras {
		if err := tc.AddPair(r.LHS, r.RHS); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// NewToddCoxeterFromSemigroup returns a coset enumerator for a
// congruence on a concrete parent semigroup. With PolicyUseCayleyGraph
// the table is prefilled from the parent's (right or, for Left
// congruences, left) Cayley graph; with PolicyUseRelations a defining
// relation is derived per Cayley edge.
func NewToddCoxeterFromSemigroup(kind Kind, s *EnumeratedSemigroup, policy Policy) (*ToddCoxeter, error) {
	if policy != PolicyUseCayleyGraph && policy != PolicyUseRelations {
		return nil, fmt.Errorf("congruence: policy must be cayley-graph or relations")
	}
	return &ToddCoxeter{
		runnerState: runnerState{kind: kind},
		nrGens:      s.NrGenerators(),
		parent:      s,
		policy:      policy,
		packLimit:   defaultPackLimit,
		log:         report.New("ToddCoxeter"),
	}, nil
}

// AddPair registers an extra generating pair of the congruence. For
// two-sided congruences the pair joins the relations (it must hold at
// every coset); for one-sided congruences it is traced from the
// identity coset only.
func (tc *ToddCoxeter) AddPair(u, v Word) error {
	if tc.frozen() {
		return ErrStarted
	}
	rel, err := NewRelation(tc.nrGens, u, v)
	if err != nil {
		return err
	}
	if tc.kind == Left {
		rel = rel.Reversed()
	}
	if tc.kind == TwoSided {
		tc.relations = append(tc.relations, rel)
	} else {
		tc.extras = append(tc.extras, rel)
	}
	return nil
}

// SetPack sets the number of dead cosets tolerated before the table is
// compacted into a contiguous range.
func (tc *ToddCoxeter) SetPack(n int) {
	if n > 0 {
		tc.packLimit = n
	}
}

// SetLookahead makes the enumerator trace all relations over all live
// cosets without defining, every n definitions. Holes found during a
// lookahead are queued as preferred definitions.
func (tc *ToddCoxeter) SetLookahead(n int) {
	tc.lookaheadEvery = n
}

// Prefill installs a fully defined table: row 0 is the identity row
// (mapping generator g to the coset of that generator) and the
// remaining rows form a closed Cayley-style action. Prefilled
// enumerators skip coset discovery.
func (tc *ToddCoxeter) Prefill(table [][]int) error {
	if tc.frozen() {
		return ErrStarted
	}
	if len(table) < 2 {
		return fmt.Errorf("congruence: prefill table needs at least an identity row and one coset")
	}
	for i, row := range table {
		if len(row) != tc.nrGens {
			return fmt.Errorf("congruence: prefill row %d has %d columns, want %d", i, len(row), tc.nrGens)
		}
		for _, d := range row {
			if d < 1 || d >= len(table) {
				return fmt.Errorf("congruence: prefill entry %d out of range", d)
			}
		}
	}
	n := len(table)
	tc.table = make([][]int, n)
	for i, row := range table {
		tc.table[i] = append([]int(nil), row...)
	}
	tc.uf = NewUnionFind(n)
	tc.dead = make([]bool, n)
	tc.prefilled = true
	tc.initDone = true
	return nil
}

// IsQuotientObviouslyInfinite reports true when some generator occurs
// in no relation or extra pair, so nothing can ever bound its powers.
// Prefilled enumerators are never obviously infinite.
func (tc *ToddCoxeter) IsQuotientObviouslyInfinite() bool {
	if tc.prefilled || tc.parent != nil {
		return false
	}
	seen := make([]bool, tc.nrGens)
	mark := func(rels []Relation) {
		for _, r := range rels {
			for _, a := range r.LHS {
				seen[a] = true
			}
			for _, a := range r.RHS {
				seen[a] = true
			}
		}
	}
	mark(tc.relations)
	mark(tc.extras)
	for _, s := range seen {
		if !s {
			return true
		}
	}
	return false
}

// init prepares the table, deriving data from the parent when one was
// supplied.
func (tc *ToddCoxeter) init(ctx context.Context) error {
	if tc.initDone {
		return nil
	}
	if tc.parent != nil {
		switch tc.policy {
		case PolicyUseCayleyGraph:
			if err := tc.prefillFromParent(ctx); err != nil {
				return err
			}
			tc.initDone = true
			return nil
		case PolicyUseRelations:
			if err := tc.deriveRelations(ctx); err != nil {
				return err
			}
		}
	}
	tc.table = [][]int{newRow(tc.nrGens)}
	tc.uf = NewUnionFind(1)
	tc.dead = []bool{false}
	tc.initDone = true
	return nil
}

func newRow(n int) []int {
	row := make([]int, n)
	for i := range row {
		row[i] = undefined
	}
	return row
}

func (tc *ToddCoxeter) prefillFromParent(ctx context.Context) error {
	var cayley [][]int
	var err error
	if tc.kind == Left {
		cayley, err = tc.parent.LeftCayley(ctx)
	} else {
		cayley, err = tc.parent.RightCayley(ctx)
	}
	if err != nil {
		return err
	}
	n := len(cayley) + 1
	tc.table = make([][]int, n)
	row0 := make([]int, tc.nrGens)
	for g := 0; g < tc.nrGens; g++ {
		i, ok := tc.parent.IndexOf(tc.parent.Generator(g))
		if !ok {
			return fmt.Errorf("congruence: generator %d missing from parent", g)
		}
		row0[g] = i + 1
	}
	tc.table[0] = row0
	for i, row := range cayley {
		shifted := make([]int, tc.nrGens)
		for g, d := range row {
			shifted[g] = d + 1
		}
		tc.table[i+1] = shifted
	}
	tc.uf = NewUnionFind(n)
	tc.dead = make([]bool, n)
	tc.prefilled = true
	return nil
}

// deriveRelations extracts one defining relation per right Cayley edge
// of the parent: (w_i g, w_j) where w are first-discovery
// factorisations.
func (tc *ToddCoxeter) deriveRelations(ctx context.Context) error {
	right, err := tc.parent.RightCayley(ctx)
	if err != nil {
		return err
	}
	for i, row := range right {
		for g, j := range row {
			rel := Relation{
				LHS: tc.parent.FactorisationAt(i).Concat(Word{Letter(g)}),
				RHS: tc.parent.FactorisationAt(j),
			}
			if tc.kind == Left {
				rel = rel.Reversed()
			}
			tc.relations = append(tc.relations, rel)
		}
	}
	return nil
}

// Run drives the enumeration until the table is closed and every
// relation verifies, or until ctx is cancelled. Obviously infinite
// inputs fail fast with ErrQuotientInfinite instead of enumerating
// forever.
func (tc *ToddCoxeter) Run(ctx context.Context) error {
	if tc.Finished() {
		return nil
	}
	tc.start()
	if tc.IsQuotientObviouslyInfinite() {
		return fmt.Errorf("%w: a generator occurs in no relation", ErrQuotientInfinite)
	}
	if err := tc.init(ctx); err != nil {
		return err
	}
	if !tc.extrasDone {
		for _, e := range tc.extras {
			tc.push(0, e)
		}
		tc.extrasDone = true
	}
	for tc.scan < len(tc.table) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := tc.scan
		if tc.dead[c] {
			tc.scan++
			continue
		}
		// A complete row per live coset: without this, a generator
		// that is never the first letter of a relation would leave
		// holes and the class of its word would go unenumerated.
		for g := 0; g < tc.nrGens && !tc.dead[c]; g++ {
			cc := tc.uf.Find(c)
			if tc.table[cc][g] == undefined {
				tc.newCoset(cc, Letter(g))
			}
		}
		for _, rel := range tc.relations {
			if tc.dead[c] {
				break
			}
			tc.push(c, rel)
		}
		tc.scan++
		if tc.nrDead > tc.packLimit {
			tc.pack()
		}
		if tc.lookaheadEvery > 0 && tc.defsSince >= tc.lookaheadEvery {
			tc.lookahead()
			tc.defsSince = 0
		}
	}
	tc.pack()
	tc.log.Report("enumeration closed", "cosets", len(tc.table), "classes", len(tc.table)-1)
	tc.finished.Store(true)
	return nil
}

// push traces both sides of rel from coset c, defining fresh cosets
// where edges are missing, and records a coincidence if the endpoints
// disagree.
func (tc *ToddCoxeter) push(c int, rel Relation) {
	a := tc.walk(c, rel.LHS)
	b := tc.walk(c, rel.RHS)
	if a != b {
		tc.coinc = append(tc.coinc, [2]int{a, b})
		tc.processCoincidences()
	}
}

// walk follows w from coset c, defining cosets for undefined edges, and
// returns the canonical endpoint.
func (tc *ToddCoxeter) walk(c int, w Word) int {
	cur := tc.uf.Find(c)
	for _, g := range w {
		cur = tc.uf.Find(cur)
		d := tc.table[cur][g]
		if d == undefined {
			d = tc.newCoset(cur, g)
		} else {
			d = tc.uf.Find(d)
			tc.table[cur][g] = d
		}
		cur = d
	}
	return tc.uf.Find(cur)
}

// newCoset appends a fresh coset as the target of (c, g). Each fresh
// slot also materialises at most one queued preferred definition.
func (tc *ToddCoxeter) newCoset(c int, g Letter) int {
	n := tc.allocate(c, g)
	for len(tc.preferred) > 0 {
		p := tc.preferred[0]
		tc.preferred = tc.preferred[1:]
		pc := tc.uf.Find(p[0])
		if tc.dead[pc] || tc.table[pc][p[1]] != undefined {
			continue
		}
		tc.allocate(pc, Letter(p[1]))
		break
	}
	return n
}

func (tc *ToddCoxeter) allocate(c int, g Letter) int {
	n := len(tc.table)
	tc.table = append(tc.table, newRow(tc.nrGens))
	tc.uf.AddEntry()
	tc.dead = append(tc.dead, false)
	tc.table[c][g] = n
	tc.defsSince++
	return n
}

// processCoincidences drains the coincidence queue: the larger
// representative merges into the smaller, the two rows are united
// column-wise, and conflicting successors queue as new coincidences.
func (tc *ToddCoxeter) processCoincidences() {
	for tc.coincHead < len(tc.coinc) {
		pair := tc.coinc[tc.coincHead]
		tc.coincHead++
		a, b := tc.uf.Find(pair[0]), tc.uf.Find(pair[1])
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		tc.uf.Unite(a, b)
		tc.dead[b] = true
		tc.nrDead++
		for g := 0; g < tc.nrGens; g++ {
			db := tc.table[b][g]
			if db == undefined {
				continue
			}
			db = tc.uf.Find(db)
			da := tc.table[a][g]
			if da == undefined {
				tc.table[a][g] = db
				continue
			}
			da = tc.uf.Find(da)
			tc.table[a][g] = da
			if da != db {
				tc.coinc = append(tc.coinc, [2]int{da, db})
			}
		}
	}
	tc.coinc = tc.coinc[:0]
	tc.coincHead = 0
}

// lookahead traces every relation over every live coset without
// defining. Coincidences found are merged; holes encountered are
// queued as preferred definitions.
func (tc *ToddCoxeter) lookahead() {
	for c := 0; c < len(tc.table); c++ {
		if tc.dead[c] {
			continue
		}
		for _, rel := range tc.relations {
			a, okA := tc.trace(c, rel.LHS, true)
			b, okB := tc.trace(c, rel.RHS, true)
			if okA && okB && a != b {
				tc.coinc = append(tc.coinc, [2]int{a, b})
				tc.processCoincidences()
			}
			if tc.dead[c] {
				break
			}
		}
	}
}

// trace follows w from c through defined edges only. With recordHoles,
// the first missing edge is pushed onto the preferred-definitions
// queue (bounded; overflow drops the oldest entry).
func (tc *ToddCoxeter) trace(c int, w Word, recordHoles bool) (int, bool) {
	cur := tc.uf.Find(c)
	for _, g := range w {
		cur = tc.uf.Find(cur)
		d := tc.table[cur][g]
		if d == undefined {
			if recordHoles {
				if len(tc.preferred) >= preferredCap {
					tc.preferred = tc.preferred[1:]
				}
				tc.preferred = append(tc.preferred, [2]int{cur, int(g)})
			}
			return 0, false
		}
		cur = d
	}
	return tc.uf.Find(cur), true
}

// pack compacts the table into contiguous live indices, preserving
// discovery order, and repoints any queued coincidences.
func (tc *ToddCoxeter) pack() {
	if tc.nrDead == 0 {
		return
	}
	newIdx := make([]int, len(tc.table))
	n := 0
	for c := range tc.table {
		if tc.dead[c] {
			newIdx[c] = undefined
			continue
		}
		newIdx[c] = n
		n++
	}
	remap := func(c int) int { return newIdx[tc.uf.Find(c)] }

	packed := make([][]int, 0, n)
	for c, row := range tc.table {
		if tc.dead[c] {
			continue
		}
		for g, d := range row {
			if d != undefined {
				row[g] = remap(d)
			}
		}
		packed = append(packed, row)
	}
	for i := tc.coincHead; i < len(tc.coinc); i++ {
		tc.coinc[i] = [2]int{remap(tc.coinc[i][0]), remap(tc.coinc[i][1])}
	}
	for i := range tc.preferred {
		tc.preferred[i][0] = remap(tc.preferred[i][0])
	}
	live := 0
	for c := 0; c < tc.scan && c < len(newIdx); c++ {
		if newIdx[c] != undefined {
			live++
		}
	}
	tc.scan = live
	tc.table = packed
	tc.uf = NewUnionFind(n)
	tc.dead = make([]bool, n)
	tc.nrDead = 0
	tc.log.Report("packed table", "live", n)
}

// NrClasses runs the enumeration and returns the number of congruence
// classes (the live cosets minus the formal identity).
func (tc *ToddCoxeter) NrClasses(ctx context.Context) (int, error) {
	if err := tc.Run(ctx); err != nil {
		return 0, err
	}
	return len(tc.table) - 1, nil
}

// WordToClassIndex runs and returns the class index of w.
func (tc *ToddCoxeter) WordToClassIndex(ctx context.Context, w Word) (int, error) {
	if err := w.Validate(tc.nrGens); err != nil {
		return 0, err
	}
	if err := tc.Run(ctx); err != nil {
		return 0, err
	}
	if tc.kind == Left {
		w = w.Reversed()
	}
	c, ok := tc.trace(0, w, false)
	if !ok {
		return 0, fmt.Errorf("congruence: incomplete table after enumeration")
	}
	return c - 1, nil
}

// ClassIndexToWord returns the first-discovery representative word of
// class i.
func (tc *ToddCoxeter) ClassIndexToWord(ctx context.Context, i int) (Word, error) {
	if err := tc.Run(ctx); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(tc.table)-1 {
		return nil, fmt.Errorf("congruence: class index %d out of range [0, %d)", i, len(tc.table)-1)
	}
	tc.buildReps()
	w := tc.reps[i+1].Clone()
	if tc.kind == Left {
		w = w.Reversed()
	}
	return w, nil
}

// buildReps assigns each live coset its breadth-first discovery word.
func (tc *ToddCoxeter) buildReps() {
	if tc.reps != nil {
		return
	}
	reps := make([]Word, len(tc.table))
	visited := make([]bool, len(tc.table))
	visited[0] = true
	queue := []int{0}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for g := 0; g < tc.nrGens; g++ {
			d := tc.table[c][g]
			if d == undefined || visited[d] {
				continue
			}
			visited[d] = true
			reps[d] = reps[c].Concat(Word{Letter(g)})
			queue = append(queue, d)
		}
	}
	tc.reps = reps
}

// Contains reports whether u and v lie in the same congruence class.
func (tc *ToddCoxeter) Contains(ctx context.Context, u, v Word) (bool, error) {
	i, err := tc.WordToClassIndex(ctx, u)
	if err != nil {
		return false, err
	}
	j, err := tc.WordToClassIndex(ctx, v)
	if err != nil {
		return false, err
	}
	return i == j, nil
}

// ConstContains answers Contains from the table built so far. Distinct
// cosets before completion may still merge, so inequality is only
// reported once the enumeration has finished.
func (tc *ToddCoxeter) ConstContains(u, v Word) Ternary {
	if u.Validate(tc.nrGens) != nil || v.Validate(tc.nrGens) != nil {
		return TernaryUnknown
	}
	if u.Equal(v) {
		return TernaryTrue
	}
	if !tc.initDone {
		return TernaryUnknown
	}
	uu, vv := u, v
	if tc.kind == Left {
		uu, vv = u.Reversed(), v.Reversed()
	}
	a, okA := tc.trace(0, uu, false)
	b, okB := tc.trace(0, vv, false)
	if !okA || !okB {
		return TernaryUnknown
	}
	if a == b {
		return TernaryTrue
	}
	if tc.Finished() {
		return TernaryFalse
	}
	return TernaryUnknown
}

// Less orders classes by their coset index; stable within a run.
func (tc *ToddCoxeter) Less(ctx context.Context, u, v Word) (bool, error) {
	i, err := tc.WordToClassIndex(ctx, u)
	if err != nil {
		return false, err
	}
	j, err := tc.WordToClassIndex(ctx, v)
	if err != nil {
		return false, err
	}
	return i < j, nil
}

// NonTrivialClasses factorises every parent element and buckets the
// words by class, returning the classes with more than one element. It
// needs a parent semigroup.
func (tc *ToddCoxeter) NonTrivialClasses(ctx context.Context) ([][]Word, error) {
	if tc.parent == nil {
		return nil, ErrNoParent
	}
	if err := tc.Run(ctx); err != nil {
		return nil, err
	}
	size, err := tc.parent.Size(ctx)
	if err != nil {
		return nil, err
	}
	byClass := make(map[int][]Word)
	for i := 0; i < size; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := tc.parent.FactorisationAt(i)
		c, err := tc.WordToClassIndex(ctx, w)
		if err != nil {
			return nil, err
		}
		byClass[c] = append(byClass[c], w)
	}
	var out [][]Word
	for c := 0; c < len(tc.table)-1; c++ {
		if ws := byClass[c]; len(ws) > 1 {
			out = append(out, ws)
		}
	}
	return out, nil
}

// QuotientSemigroup materialises the quotient as a concrete semigroup
// on class indices. Only two-sided congruences have a quotient
// semigroup.
func (tc *ToddCoxeter) QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error) {
	if tc.kind != TwoSided {
		return nil, fmt.Errorf("%w: quotient semigroup of a %s congruence", ErrNotImplemented, tc.kind)
	}
	if err := tc.Run(ctx); err != nil {
		return nil, err
	}
	tc.buildReps()
	ops := &classOps{tc: tc}
	gens := make([]Element, tc.nrGens)
	for g := range gens {
		gens[g] = tc.table[0][g] - 1
	}
	return NewEnumeratedSemigroup(ops, gens)
}

// classOps multiplies quotient classes by tracing representative words
// through the closed coset table.
type classOps struct {
	tc *ToddCoxeter
}

func (o *classOps) Product(x, y Element) Element {
	c := x.(int) + 1
	for _, g := range o.tc.reps[y.(int)+1] {
		c = o.tc.table[c][g]
	}
	return c - 1
}

func (o *classOps) Equal(x, y Element) bool { return x.(int) == y.(int) }
func (o *classOps) Hash(x Element) uint64 { return uint64(x.(int)) }
