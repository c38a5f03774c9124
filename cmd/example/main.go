// Package main demonstrates the basic congruence workflows: a finitely
// presented semigroup, a congruence with extra generating pairs, and a
// race of the solvers on a group presentation. The race prints progress
// lines only when GOSEMIGROUPS_VERBOSE is set.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gitrdm/gosemigroups/pkg/congruence"
)

func main() {
	fmt.Println("=== gosemigroups examples ===")
	fmt.Println()

	fiveElementSemigroup()
	collapsingCongruence()
	dihedralGroup()
}

// fiveElementSemigroup sizes <a,b | a^3=a, a=b^2>.
func fiveElementSemigroup() {
	fmt.Println("1. Five-element fp semigroup:")
	f := congruence.NewFpSemigroup()
	must(f.SetAlphabet("ab"))
	must(f.AddRule("aaa", "a"))
	must(f.AddRule("a", "bb"))

	size, err := f.Size(context.Background())
	must(err)
	fmt.Printf("   size = %d\n\n", size)
}

// collapsingCongruence adds the pair (a, b) on top of the same
// presentation; everything collapses to a point.
func collapsingCongruence() {
	fmt.Println("2. Congruence generated by (a, b):")
	relations := []congruence.Relation{
		{LHS: congruence.Word{0, 0, 0}, RHS: congruence.Word{0}},
		{LHS: congruence.Word{0}, RHS: congruence.Word{1, 1}},
	}
	c, err := congruence.NewCongruence(congruence.TwoSided, 2, relations, nil)
	must(err)
	must(c.AddPair(congruence.Word{0}, congruence.Word{1}))

	n, err := c.NrClasses(context.Background())
	must(err)
	fmt.Printf("   classes = %d\n\n", n)
}

// dihedralGroup races the solvers on a presentation of the dihedral
// group of order 6.
func dihedralGroup() {
	fmt.Println("3. Dihedral group of order 6:")
	pairs := [][2]congruence.Word{
		{{0, 0}, {0}}, {{0, 1}, {1}}, {{1, 0}, {1}},
		{{0, 2}, {2}}, {{2, 0}, {2}}, {{0, 3}, {3}}, {{3, 0}, {3}},
		{{0, 4}, {4}}, {{4, 0}, {4}},
		{{1, 2}, {0}}, {{2, 1}, {0}}, {{3, 4}, {0}}, {{4, 3}, {0}},
		{{2, 2}, {0}}, {{1, 4, 2, 3, 3}, {0}}, {{4, 4, 4}, {0}},
	}
	relations := make([]congruence.Relation, len(pairs))
	for i, p := range pairs {
		relations[i] = congruence.Relation{LHS: p[0], RHS: p[1]}
	}
	c, err := congruence.NewCongruence(congruence.TwoSided, 5, relations, nil)
	must(err)

	ctx := context.Background()
	n, err := c.NrClasses(ctx)
	must(err)
	eq, err := c.Contains(ctx, congruence.Word{1}, congruence.Word{2})
	must(err)
	fmt.Printf("   classes = %d, [1] == [2] : %v\n", n, eq)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
