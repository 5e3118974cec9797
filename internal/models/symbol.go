package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a canonical name token such as "C7".
// The zero value is NoSymbol and means "undecodable".
type Symbol string

// NoSymbol marks a proposal that did not decode to a lexicon symbol.
const NoSymbol Symbol = ""

// symbolPrefix is the literal that starts every symbol.
const symbolPrefix = "C"

// SymbolFor returns the canonical symbol for a 1-based lexicon index.
func SymbolFor(index int) Symbol {
	return Symbol(symbolPrefix + strconv.Itoa(index))
}

// Defined reports whether the symbol carries a value.
func (s Symbol) Defined() bool {
	return s != NoSymbol
}

// Index returns the numeric suffix of the symbol, or -1 if it is not of the
// form C<digits>.
func (s Symbol) Index() int {
	str := string(s)
	if len(str) < 2 || !strings.EqualFold(str[:1], symbolPrefix) {
		return -1
	}
	n, err := strconv.Atoi(str[1:])
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// String implements fmt.Stringer.
func (s Symbol) String() string {
	if s == NoSymbol {
		return "<none>"
	}
	return string(s)
}

// ParseSymbol canonicalizes a raw token: whitespace is removed, the prefix is
// uppercased and the numeric suffix is re-rendered without leading zeros.
func ParseSymbol(raw string) (Symbol, error) {
	compact := strings.Join(strings.Fields(raw), "")
	if len(compact) < 2 || !strings.EqualFold(compact[:1], symbolPrefix) {
		return NoSymbol, fmt.Errorf("invalid symbol %q", raw)
	}
	n, err := strconv.Atoi(compact[1:])
	if err != nil || n < 0 {
		return NoSymbol, fmt.Errorf("invalid symbol %q", raw)
	}
	return SymbolFor(n), nil
}
