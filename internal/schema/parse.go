// Package schema decodes decision-source text into lexicon symbols.
//
// Two paths exist. Strict decoding accepts only the single-line grammar
//
//	@say {name: <symbol>} [| free text]
//
// and reports compliance. Salvage decoding scans arbitrary text for symbol
// tokens and succeeds only when exactly one is present; it never guesses
// between candidates.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nvandessel/namegame/internal/models"
)

// ErrDecodeFailure is the root of every salvage failure.
var ErrDecodeFailure = errors.New("no decodable symbol")

var (
	// ErrNoSymbol means the text held no symbol token at all.
	ErrNoSymbol = fmt.Errorf("%w: no symbol token", ErrDecodeFailure)

	// ErrAmbiguous means more than one symbol token was found.
	ErrAmbiguous = fmt.Errorf("%w: ambiguous text", ErrDecodeFailure)

	// ErrNotInLexicon means the single token found is not a lexicon symbol.
	ErrNotInLexicon = fmt.Errorf("%w: symbol not in lexicon", ErrDecodeFailure)
)

var (
	reStrict  = regexp.MustCompile(`(?i)^\s*@say\s*\{\s*name\s*:\s*(C\s*\d{1,2})\s*\}\s*(?:\|\s*(.*))?\s*$`)
	reSymbol  = regexp.MustCompile(`(?i)\bC\s*(\d{1,2})\b`)
	lineBreak = "\r\n"
)

// Strict decodes text against the schema grammar. The second return value is
// the compliance flag: true only when the whole text is one conforming line.
func Strict(text string) (models.Symbol, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.ContainsAny(trimmed, lineBreak) {
		return models.NoSymbol, false
	}
	m := reStrict.FindStringSubmatch(trimmed)
	if m == nil {
		return models.NoSymbol, false
	}
	sym, err := models.ParseSymbol(m[1])
	if err != nil {
		return models.NoSymbol, false
	}
	return sym, true
}

// Salvage extracts the single symbol token in text and checks it against the
// lexicon. Zero or several tokens, or a token outside the lexicon, yield an
// error wrapping ErrDecodeFailure.
func Salvage(text string, lex models.Lexicon) (models.Symbol, error) {
	matches := reSymbol.FindAllStringSubmatch(text, -1)
	switch {
	case len(matches) == 0:
		return models.NoSymbol, ErrNoSymbol
	case len(matches) > 1:
		return models.NoSymbol, ErrAmbiguous
	}

	sym, err := models.ParseSymbol("C" + matches[0][1])
	if err != nil {
		return models.NoSymbol, ErrNoSymbol
	}
	canonical, ok := lex.Lookup(sym)
	if !ok {
		return models.NoSymbol, ErrNotInLexicon
	}
	return canonical, nil
}

// Render returns the canonical schema line for sym.
func Render(sym models.Symbol) string {
	return fmt.Sprintf("@say {name: %s}", sym)
}
