package congruence

import (
	"context"
	"fmt"
	"strings"
)

// FpSemigroup presents a finitely presented semigroup or monoid over a
// character alphabet. Rules are forwarded as generating pairs of the
// two-sided congruence on the free semigroup, and the structural
// queries (Size, EqualTo, NormalForm) round-trip through the winning
// solver's class indexing.
type FpSemigroup struct {
	alphabet []rune
	index    map[rune]Letter
	identity *Letter
	rules    []Relation
	cong     *Congruence
}

// NewFpSemigroup returns an empty presentation; declare the alphabet
// before adding rules.
func NewFpSemigroup() *FpSemigroup {
	return &FpSemigroup{index: make(map[rune]Letter)}
}

// SetAlphabet declares the generating characters, exactly once.
// Duplicate characters fail with ErrBadAlphabet.
func (f *FpSemigroup) SetAlphabet(s string) error {
	if f.alphabet != nil {
		return fmt.Errorf("%w: alphabet already set", ErrBadAlphabet)
	}
	if s == "" {
		return fmt.Errorf("%w: empty alphabet", ErrBadAlphabet)
	}
	seen := make(map[rune]bool, len(s))
	for _, ch := range s {
		if seen[ch] {
			return fmt.Errorf("%w: duplicate letter %q", ErrBadAlphabet, ch)
		}
		seen[ch] = true
	}
	for _, ch := range s {
		f.index[ch] = Letter(len(f.alphabet))
		f.alphabet = append(f.alphabet, ch)
	}
	return nil
}

// SetAlphabetSize declares n anonymous generators, named 'a', 'b', ...
// for string round-tripping.
func (f *FpSemigroup) SetAlphabetSize(n int) error {
	if n <= 0 || n > 26 {
		return fmt.Errorf("%w: %d generators", ErrBadAlphabet, n)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(rune('a' + i))
	}
	return f.SetAlphabet(b.String())
}

// Alphabet returns the declared characters.
func (f *FpSemigroup) Alphabet() string { return string(f.alphabet) }

// NrGenerators returns the alphabet size.
func (f *FpSemigroup) NrGenerators() int { return len(f.alphabet) }

// StringToWord translates a string over the alphabet into letters. The
// empty string maps to the identity letter when one is installed and
// fails with ErrEmptyWord otherwise.
func (f *FpSemigroup) StringToWord(s string) (Word, error) {
	if f.alphabet == nil {
		return nil, fmt.Errorf("%w: alphabet not set", ErrBadAlphabet)
	}
	if s == "" {
		if f.identity != nil {
			return Word{*f.identity}, nil
		}
		return nil, ErrEmptyWord
	}
	w := make(Word, 0, len(s))
	for _, ch := range s {
		a, ok := f.index[ch]
		if !ok {
			return nil, fmt.Errorf("%w: %q not in alphabet %q", ErrBadLetter, ch, string(f.alphabet))
		}
		w = append(w, a)
	}
	return w, nil
}

// WordToString translates letters back into alphabet characters.
func (f *FpSemigroup) WordToString(w Word) (string, error) {
	if err := w.Validate(len(f.alphabet)); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, a := range w {
		b.WriteRune(f.alphabet[a])
	}
	return b.String(), nil
}

// AddRule equates two non-empty strings over the alphabet.
func (f *FpSemigroup) AddRule(lhs, rhs string) error {
	if f.cong != nil {
		return ErrStarted
	}
	if lhs == "" || rhs == "" {
		return ErrEmptyWord
	}
	u, err := f.StringToWord(lhs)
	if err != nil {
		return err
	}
	v, err := f.StringToWord(rhs)
	if err != nil {
		return err
	}
	f.rules = append(f.rules, Relation{LHS: u, RHS: v})
	return nil
}

// AddRuleWords equates two words directly.
func (f *FpSemigroup) AddRuleWords(u, v Word) error {
	if f.cong != nil {
		return ErrStarted
	}
	r, err := NewRelation(len(f.alphabet), u, v)
	if err != nil {
		return err
	}
	f.rules = append(f.rules, r)
	return nil
}

// SetIdentity installs e as the monoid identity: it adds the rules
// e*x = x*e = x for every letter x (and e*e = e). The empty string is
// legal input from here on and normalises through e.
func (f *FpSemigroup) SetIdentity(e string) error {
	if f.cong != nil {
		return ErrStarted
	}
	w, err := f.StringToWord(e)
	if err != nil {
		return err
	}
	if len(w) != 1 {
		return fmt.Errorf("%w: identity must be a single letter, got %q", ErrBadLetter, e)
	}
	id := w[0]
	for _, ch := range f.alphabet {
		x := string(ch)
		if Letter(f.index[ch]) == id {
			if err := f.AddRule(e+x, x); err != nil {
				return err
			}
			continue
		}
		if err := f.AddRule(e+x, x); err != nil {
			return err
		}
		if err := f.AddRule(x+e, x); err != nil {
			return err
		}
	}
	f.identity = &id
	return nil
}

// Identity returns the identity string, if one was installed.
func (f *FpSemigroup) Identity() (string, bool) {
	if f.identity == nil {
		return "", false
	}
	return string(f.alphabet[*f.identity]), true
}

// NrRules returns the number of rules added so far.
func (f *FpSemigroup) NrRules() int { return len(f.rules) }

// Congruence returns the underlying two-sided congruence, building it
// on first use. Rules are frozen from that point.
func (f *FpSemigroup) Congruence() (*Congruence, error) {
	if f.alphabet == nil {
		return nil, fmt.Errorf("%w: alphabet not set", ErrBadAlphabet)
	}
	if f.cong == nil {
		c, err := NewCongruence(TwoSided, len(f.alphabet), nil, f.rules)
		if err != nil {
			return nil, err
		}
		f.cong = c
	}
	return f.cong, nil
}

// IsObviouslyFinite reports whether finiteness is already certain
// without further work: some solver has finished and counted finitely
// many classes.
func (f *FpSemigroup) IsObviouslyFinite() bool {
	if f.cong == nil || !f.cong.Finished() {
		return false
	}
	n, err := f.cong.NrClasses(context.Background())
	return err == nil && n != Infinity
}

// IsObviouslyInfinite reports a cheap certificate that the presented
// semigroup is infinite.
func (f *FpSemigroup) IsObviouslyInfinite() bool {
	if f.alphabet == nil {
		return false
	}
	c, err := f.Congruence()
	if err != nil {
		return false
	}
	return c.IsQuotientObviouslyInfinite()
}

// Size returns the number of elements, or Infinity.
func (f *FpSemigroup) Size(ctx context.Context) (int, error) {
	c, err := f.Congruence()
	if err != nil {
		return 0, err
	}
	if c.IsQuotientObviouslyInfinite() {
		return Infinity, nil
	}
	return c.NrClasses(ctx)
}

// EqualTo reports whether two strings denote the same element.
func (f *FpSemigroup) EqualTo(ctx context.Context, u, v string) (bool, error) {
	c, err := f.Congruence()
	if err != nil {
		return false, err
	}
	uw, err := f.StringToWord(u)
	if err != nil {
		return false, err
	}
	vw, err := f.StringToWord(v)
	if err != nil {
		return false, err
	}
	return c.Contains(ctx, uw, vw)
}

// NormalForm returns the canonical representative of w's element under
// the winning solver.
func (f *FpSemigroup) NormalForm(ctx context.Context, w string) (string, error) {
	c, err := f.Congruence()
	if err != nil {
		return "", err
	}
	ww, err := f.StringToWord(w)
	if err != nil {
		return "", err
	}
	i, err := c.WordToClassIndex(ctx, ww)
	if err != nil {
		return "", err
	}
	rep, err := c.ClassIndexToWord(ctx, i)
	if err != nil {
		return "", err
	}
	return f.WordToString(rep)
}

// QuotientSemigroup materialises the presented semigroup concretely on
// class indices.
func (f *FpSemigroup) QuotientSemigroup(ctx context.Context) (*EnumeratedSemigroup, error) {
	c, err := f.Congruence()
	if err != nil {
		return nil, err
	}
	if c.IsQuotientObviouslyInfinite() {
		return nil, ErrQuotientInfinite
	}
	return c.QuotientSemigroup(ctx)
}
