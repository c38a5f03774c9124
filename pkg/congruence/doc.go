// Package congruence computes congruences of finitely presented
// semigroups and monoids. Given a generating alphabet and a set of
// defining relations (pairs of words that must become equal), plus an
// optional set of extra pairs generating a congruence, it decides word
// equality modulo the congruence, enumerates congruence classes,
// assigns each word a class index, and - when the quotient is finite -
// materialises a concrete multiplication table for the quotient
// semigroup.
//
// Three independent solvers implement the same Runner contract:
//   - ToddCoxeter: incremental coset enumeration (HLT with coincidence
//     queueing, optional lookahead and table packing).
//   - KnuthBendix: string rewriting over the free monoid, completed by
//     critical-pair resolution under the shortlex order.
//   - P / KBP: brute-force pair closure over a concrete parent
//     semigroup, driven by a union-find over interned elements.
//
// The word problem for a finitely presented semigroup is undecidable in
// general, so every blocking operation takes a context.Context and
// checks it cooperatively at each outer loop iteration. A Race runs
// several solvers on the same input in parallel goroutines and answers
// every subsequent query from the first one to finish.
//
// Class indices and the Less ordering depend on enumeration order,
// which is nondeterministic when solvers race; they are stable within
// one run but not across runs.
package congruence
