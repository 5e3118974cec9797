package models

import (
	"fmt"
	"strings"
)

// Lexicon is the fixed, ordered set of symbols available in a run.
// It is immutable once built.
type Lexicon struct {
	symbols []Symbol
	index   map[string]Symbol // upper-cased symbol -> canonical symbol
}

// NewLexicon builds the lexicon C1..Cn.
func NewLexicon(n int) (Lexicon, error) {
	if n <= 0 {
		return Lexicon{}, fmt.Errorf("lexicon size must be positive, got %d", n)
	}
	lex := Lexicon{
		symbols: make([]Symbol, n),
		index:   make(map[string]Symbol, n),
	}
	for i := 0; i < n; i++ {
		sym := SymbolFor(i + 1)
		lex.symbols[i] = sym
		lex.index[strings.ToUpper(string(sym))] = sym
	}
	return lex, nil
}

// Len returns the number of symbols.
func (l Lexicon) Len() int {
	return len(l.symbols)
}

// At returns the symbol at position i (0-based).
func (l Lexicon) At(i int) Symbol {
	return l.symbols[i]
}

// Symbols returns a copy of the ordered symbol list.
func (l Lexicon) Symbols() []Symbol {
	out := make([]Symbol, len(l.symbols))
	copy(out, l.symbols)
	return out
}

// Contains reports whether s is in the lexicon, ignoring case.
func (l Lexicon) Contains(s Symbol) bool {
	_, ok := l.index[strings.ToUpper(string(s))]
	return ok
}

// Lookup returns the canonical lexicon entry for s, ignoring case.
func (l Lexicon) Lookup(s Symbol) (Symbol, bool) {
	sym, ok := l.index[strings.ToUpper(string(s))]
	return sym, ok
}
