package congruence

import "errors"

// Validation errors, surfaced immediately to the caller.
var (
	// ErrBadAlphabet is returned when an alphabet is empty, contains a
	// duplicate character, or is declared more than once.
	ErrBadAlphabet = errors.New("congruence: bad alphabet")

	// ErrBadLetter is returned when a word contains a letter outside
	// the declared alphabet.
	ErrBadLetter = errors.New("congruence: letter out of range")

	// ErrEmptyWord is returned when an empty word is supplied where a
	// semigroup word is required. The empty word is only meaningful
	// through an FpSemigroup with an identity installed.
	ErrEmptyWord = errors.New("congruence: empty word")
)

// Solver lifecycle errors.
var (
	// ErrStarted is returned by mutating operations (AddPair, AddRule,
	// Prefill, ...) once a run has begun; solver input is frozen at
	// that point.
	ErrStarted = errors.New("congruence: solver already started")

	// ErrNotFinished is returned when a query needs information the
	// solver has not produced yet, e.g. KnuthBendix.ClassIndexToWord for
	// a class of an infinite quotient whose index has not been issued.
	ErrNotFinished = errors.New("congruence: solver not finished")

	// ErrQuotientInfinite is returned when a finite structure (a class
	// count, a multiplication table) is requested for a quotient that
	// is known to be infinite.
	ErrQuotientInfinite = errors.New("congruence: quotient is infinite")

	// ErrAllFailed is returned by a Race when every runner stopped with
	// a fatal error.
	ErrAllFailed = errors.New("congruence: all runners failed")

	// ErrNoMethods is returned by a facade with no runners installed.
	ErrNoMethods = errors.New("congruence: no methods defined")

	// ErrNoParent is returned by operations that need a concrete parent
	// semigroup when none was supplied.
	ErrNoParent = errors.New("congruence: no parent semigroup")

	// ErrNotImplemented is returned by operations a particular solver
	// cannot support, e.g. ClassIndexToWord on pair closure.
	ErrNotImplemented = errors.New("congruence: not implemented")
)
