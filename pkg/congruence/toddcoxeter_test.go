package congruence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rels(pairs ...[2]Word) []Relation {
	out := make([]Relation, len(pairs))
	for i, p := range pairs {
		out[i] = Relation{LHS: p[0], RHS: p[1]}
	}
	return out
}

// a^3 = a, a = b^2: the five-element quotient used all over the
// original test suite.
func smallFpRelations() []Relation {
	return rels(
		[2]Word{{0, 0, 0}, {0}},
		[2]Word{{0}, {1, 1}},
	)
}

func TestToddCoxeter_SmallFpSemigroup(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	require.False(t, tc.Finished())

	ctx := context.Background()
	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, tc.Finished())

	i1, err := tc.WordToClassIndex(ctx, Word{0, 0, 1})
	require.NoError(t, err)
	i2, err := tc.WordToClassIndex(ctx, Word{0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, i1, i2)

	i3, err := tc.WordToClassIndex(ctx, Word{0, 1, 1, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, i2, i3)

	i4, err := tc.WordToClassIndex(ctx, Word{0, 0, 0})
	require.NoError(t, err)
	i5, err := tc.WordToClassIndex(ctx, Word{1})
	require.NoError(t, err)
	assert.NotEqual(t, i4, i5)
}

func TestToddCoxeter_RightCongruenceOnFpSemigroup(t *testing.T) {
	tc, err := NewToddCoxeter(Right, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	n, err := tc.NrClasses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, tc.Finished())
}

func TestToddCoxeter_LeftCongruenceClassIndices(t *testing.T) {
	tc, err := NewToddCoxeter(Left, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	idx := func(w Word) int {
		i, err := tc.WordToClassIndex(ctx, w)
		require.NoError(t, err)
		return i
	}
	assert.Equal(t, idx(Word{0, 0, 1}), idx(Word{0, 0, 0, 0, 1}))
	assert.Equal(t, idx(Word{0, 1, 1, 0, 0, 1}), idx(Word{0, 0, 0, 0, 1}))
	assert.NotEqual(t, idx(Word{1}), idx(Word{0, 0, 0, 0}))
	assert.NotEqual(t, idx(Word{0, 0, 0}), idx(Word{0, 0, 0, 0}))

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Less(t, idx(Word{0, 0, 0, 0}), n)
}

func TestToddCoxeter_Dihedral6(t *testing.T) {
	relations := rels(
		[2]Word{{0, 0}, {0}},
		[2]Word{{0, 1}, {1}},
		[2]Word{{1, 0}, {1}},
		[2]Word{{0, 2}, {2}},
		[2]Word{{2, 0}, {2}},
		[2]Word{{0, 3}, {3}},
		[2]Word{{3, 0}, {3}},
		[2]Word{{0, 4}, {4}},
		[2]Word{{4, 0}, {4}},
		[2]Word{{1, 2}, {0}},
		[2]Word{{2, 1}, {0}},
		[2]Word{{3, 4}, {0}},
		[2]Word{{4, 3}, {0}},
		[2]Word{{2, 2}, {0}},
		[2]Word{{1, 4, 2, 3, 3}, {0}},
		[2]Word{{4, 4, 4}, {0}},
	)
	tc, err := NewToddCoxeter(TwoSided, 5, relations, nil)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	i1, err := tc.WordToClassIndex(ctx, Word{1})
	require.NoError(t, err)
	i2, err := tc.WordToClassIndex(ctx, Word{2})
	require.NoError(t, err)
	assert.Equal(t, i1, i2)
}

func TestToddCoxeter_FiniteFpSemigroupSize16(t *testing.T) {
	relations := rels(
		[2]Word{{3}, {2}},
		[2]Word{{0, 3}, {0, 2}},
		[2]Word{{1, 1}, {1}},
		[2]Word{{1, 3}, {1, 2}},
		[2]Word{{2, 1}, {2}},
		[2]Word{{2, 2}, {2}},
		[2]Word{{2, 3}, {2}},
		[2]Word{{0, 0, 0}, {0}},
		[2]Word{{0, 0, 1}, {1}},
		[2]Word{{0, 0, 2}, {2}},
		[2]Word{{0, 1, 2}, {1, 2}},
		[2]Word{{1, 0, 0}, {1}},
		[2]Word{{1, 0, 2}, {0, 2}},
		[2]Word{{2, 0, 0}, {2}},
		[2]Word{{0, 1, 0, 1}, {1, 0, 1}},
		[2]Word{{0, 2, 0, 2}, {2, 0, 2}},
		[2]Word{{1, 0, 1, 0}, {1, 0, 1}},
		[2]Word{{1, 2, 0, 1}, {1, 0, 1}},
		[2]Word{{1, 2, 0, 2}, {2, 0, 2}},
		[2]Word{{2, 0, 1, 0}, {2, 0, 1}},
		[2]Word{{2, 0, 2, 0}, {2, 0, 2}},
	)
	tc, err := NewToddCoxeter(TwoSided, 4, relations, nil)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	i2, err := tc.WordToClassIndex(ctx, Word{2})
	require.NoError(t, err)
	i3, err := tc.WordToClassIndex(ctx, Word{3})
	require.NoError(t, err)
	assert.Equal(t, i2, i3)
}

// The fourteen-relation presentation of the original packing test; 78
// classes with an aggressive pack threshold, two-sided and left.
func TestToddCoxeter_Packing(t *testing.T) {
	relations := rels(
		[2]Word{{0, 0, 0}, {0}},
		[2]Word{{1, 0, 0}, {1, 0}},
		[2]Word{{1, 0, 1, 1, 1}, {1, 0}},
		[2]Word{{1, 1, 1, 1, 1}, {1, 1}},
		[2]Word{{1, 1, 0, 1, 1, 0}, {1, 0, 1, 0, 1, 1}},
		[2]Word{{0, 0, 1, 0, 1, 1, 0}, {0, 1, 0, 1, 1, 0}},
		[2]Word{{0, 0, 1, 1, 0, 1, 0}, {0, 1, 1, 0, 1, 0}},
		[2]Word{{0, 1, 0, 1, 0, 1, 0}, {1, 0, 1, 0, 1, 0}},
		[2]Word{{1, 0, 1, 0, 1, 0, 1}, {1, 0, 1, 0, 1, 0}},
		[2]Word{{1, 0, 1, 0, 1, 1, 0}, {1, 0, 1, 0, 1, 1}},
		[2]Word{{1, 0, 1, 1, 0, 1, 0}, {1, 0, 1, 1, 0, 1}},
		[2]Word{{1, 1, 0, 1, 0, 1, 0}, {1, 0, 1, 0, 1, 0}},
		[2]Word{{1, 1, 1, 1, 0, 1, 0}, {1, 0, 1, 0}},
		[2]Word{{0, 0, 1, 1, 1, 0, 1, 0}, {1, 1, 1, 0, 1, 0}},
	)
	ctx := context.Background()

	tc1, err := NewToddCoxeter(TwoSided, 2, relations, nil)
	require.NoError(t, err)
	tc1.SetPack(10)
	n, err := tc1.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 78, n)

	tc2, err := NewToddCoxeter(Left, 2, relations, nil)
	require.NoError(t, err)
	tc2.SetPack(10)
	n, err = tc2.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 78, n)
}

func TestToddCoxeter_LookaheadMatchesPlainRun(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	tc.SetLookahead(3)
	n, err := tc.NrClasses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestToddCoxeter_TwoSidedOverTransformationSemigroup(t *testing.T) {
	ctx := context.Background()
	s := size88Semigroup(t)
	size, err := s.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 88, size)

	tc, err := NewToddCoxeterFromSemigroup(TwoSided, s, PolicyUseCayleyGraph)
	require.NoError(t, err)

	w1, err := s.Factorisation(ctx, transf{3, 4, 4, 4, 4})
	require.NoError(t, err)
	w2, err := s.Factorisation(ctx, transf{3, 1, 3, 3, 3})
	require.NoError(t, err)
	require.NoError(t, tc.AddPair(w1, w2))

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
	// Idempotent on a finished solver.
	n, err = tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, n)

	i1, err := tc.WordToClassIndex(ctx, w1)
	require.NoError(t, err)
	i2, err := tc.WordToClassIndex(ctx, w2)
	require.NoError(t, err)
	assert.Equal(t, i1, i2)

	ntc, err := tc.NonTrivialClasses(ctx)
	require.NoError(t, err)
	require.Len(t, ntc, 1)
	assert.Len(t, ntc[0], 68)
}

func TestToddCoxeter_LeftCongruenceOverTransformationSemigroup(t *testing.T) {
	ctx := context.Background()
	s := size88Semigroup(t)

	tc, err := NewToddCoxeterFromSemigroup(Left, s, PolicyUseCayleyGraph)
	require.NoError(t, err)

	w1, err := s.Factorisation(ctx, transf{3, 4, 4, 4, 4})
	require.NoError(t, err)
	w2, err := s.Factorisation(ctx, transf{3, 1, 3, 3, 3})
	require.NoError(t, err)
	require.NoError(t, tc.AddPair(w1, w2))

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 69, n)

	ntc, err := tc.NonTrivialClasses(ctx)
	require.NoError(t, err)
	require.Len(t, ntc, 1)
	assert.Len(t, ntc[0], 20)
}

func TestToddCoxeter_RightCongruenceOverTransformationSemigroup(t *testing.T) {
	ctx := context.Background()
	s := size88Semigroup(t)

	tc, err := NewToddCoxeterFromSemigroup(Right, s, PolicyUseCayleyGraph)
	require.NoError(t, err)

	w1, err := s.Factorisation(ctx, transf{3, 4, 4, 4, 4})
	require.NoError(t, err)
	w2, err := s.Factorisation(ctx, transf{3, 1, 3, 3, 3})
	require.NoError(t, err)
	require.NoError(t, tc.AddPair(w1, w2))

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 72, n)

	ntc, err := tc.NonTrivialClasses(ctx)
	require.NoError(t, err)
	require.Len(t, ntc, 4)
	var sizes []int
	for _, class := range ntc {
		sizes = append(sizes, len(class))
	}
	assert.ElementsMatch(t, []int{3, 5, 5, 7}, sizes)
}

func TestToddCoxeter_UseRelationsPolicy(t *testing.T) {
	ctx := context.Background()
	s := size88Semigroup(t)

	tc, err := NewToddCoxeterFromSemigroup(TwoSided, s, PolicyUseRelations)
	require.NoError(t, err)

	w1, err := s.Factorisation(ctx, transf{3, 4, 4, 4, 4})
	require.NoError(t, err)
	w2, err := s.Factorisation(ctx, transf{3, 1, 3, 3, 3})
	require.NoError(t, err)
	require.NoError(t, tc.AddPair(w1, w2))

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}

func TestToddCoxeter_ManualPrefill(t *testing.T) {
	ctx := context.Background()
	s := size88Semigroup(t)
	right, err := s.RightCayley(ctx)
	require.NoError(t, err)
	size, err := s.Size(ctx)
	require.NoError(t, err)

	table := make([][]int, size+1)
	row0 := make([]int, s.NrGenerators())
	for g := 0; g < s.NrGenerators(); g++ {
		i, ok := s.IndexOf(s.Generator(g))
		require.True(t, ok)
		row0[g] = i + 1
	}
	table[0] = row0
	for i, row := range right {
		shifted := make([]int, len(row))
		for g, d := range row {
			shifted[g] = d + 1
		}
		table[i+1] = shifted
	}

	tc, err := NewToddCoxeter(TwoSided, s.NrGenerators(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, tc.Prefill(table))
	assert.False(t, tc.IsQuotientObviouslyInfinite())

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, size, n)
}

func TestToddCoxeter_ObviouslyInfinite(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, nil, nil)
	require.NoError(t, err)
	assert.True(t, tc.IsQuotientObviouslyInfinite())

	err = tc.Run(context.Background())
	assert.ErrorIs(t, err, ErrQuotientInfinite)

	// A generator missing from every relation is also caught.
	tc2, err := NewToddCoxeter(TwoSided, 2, rels([2]Word{{0, 0}, {0}}), nil)
	require.NoError(t, err)
	assert.True(t, tc2.IsQuotientObviouslyInfinite())
}

func TestToddCoxeter_RunForDeadline(t *testing.T) {
	// a*b = a bounds nothing on the left of b: the enumeration never
	// closes, so the deadline must bring Run back.
	tc, err := NewToddCoxeter(TwoSided, 2, rels([2]Word{{0, 1}, {0}}), nil)
	require.NoError(t, err)
	assert.False(t, tc.IsQuotientObviouslyInfinite())

	require.NoError(t, RunFor(tc, 50*time.Millisecond))
	assert.False(t, tc.Finished())

	// Not finished and not running: a conservative query stays honest.
	assert.Equal(t, TernaryUnknown, tc.ConstContains(Word{1}, Word{1, 1}))
}

func TestToddCoxeter_AddPairAfterRun(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	_, err = tc.NrClasses(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, tc.AddPair(Word{0}, Word{1}), ErrStarted)
}

func TestToddCoxeter_ConstContains(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)

	assert.Equal(t, TernaryTrue, tc.ConstContains(Word{0, 1}, Word{0, 1}))
	assert.Equal(t, TernaryUnknown, tc.ConstContains(Word{0, 0, 0}, Word{0}))

	_, err = tc.NrClasses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TernaryTrue, tc.ConstContains(Word{0, 0, 0}, Word{0}))
	assert.Equal(t, TernaryFalse, tc.ConstContains(Word{0, 0, 0}, Word{1}))
}

func TestToddCoxeter_ClassIndexToWordRoundTrip(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	ctx := context.Background()
	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		w, err := tc.ClassIndexToWord(ctx, i)
		require.NoError(t, err)
		j, err := tc.WordToClassIndex(ctx, w)
		require.NoError(t, err)
		assert.Equal(t, i, j)
	}
	_, err = tc.ClassIndexToWord(ctx, n)
	assert.Error(t, err)
}

func TestToddCoxeter_QuotientSemigroup(t *testing.T) {
	tc, err := NewToddCoxeter(TwoSided, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	q, err := tc.QuotientSemigroup(ctx)
	require.NoError(t, err)
	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, size)
}

func TestToddCoxeter_QuotientOfOneSidedCongruence(t *testing.T) {
	tc, err := NewToddCoxeter(Left, 2, smallFpRelations(), nil)
	require.NoError(t, err)
	_, err = tc.QuotientSemigroup(context.Background())
	assert.ErrorIs(t, err, ErrNotImplemented)
}

// Example 6.6 in Sims: a group presentation of order 10752.
func TestToddCoxeter_Sims66(t *testing.T) {
	if testing.Short() {
		t.Skip("long enumeration")
	}
	relations := rels(
		[2]Word{{0, 0}, {0}},
		[2]Word{{1, 0}, {1}},
		[2]Word{{0, 1}, {1}},
		[2]Word{{2, 0}, {2}},
		[2]Word{{0, 2}, {2}},
		[2]Word{{3, 0}, {3}},
		[2]Word{{0, 3}, {3}},
		[2]Word{{1, 1}, {0}},
		[2]Word{{2, 3}, {0}},
		[2]Word{{2, 2, 2}, {0}},
		[2]Word{{1, 2, 1, 2, 1, 2, 1, 2, 1, 2, 1, 2, 1, 2}, {0}},
		[2]Word{{1, 2, 1, 3, 1, 2, 1, 3, 1, 2, 1, 3, 1, 2, 1, 3,
			1, 2, 1, 3, 1, 2, 1, 3, 1, 2, 1, 3, 1, 2, 1, 3}, {0}},
	)
	tc, err := NewToddCoxeter(TwoSided, 4, relations, nil)
	require.NoError(t, err)
	ctx := context.Background()

	n, err := tc.NrClasses(ctx)
	require.NoError(t, err)
	require.Equal(t, 10752, n)

	q, err := tc.QuotientSemigroup(ctx)
	require.NoError(t, err)
	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10752, size)
	idem, err := q.NrIdempotents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, idem)
}
