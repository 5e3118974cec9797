package history

import (
	"github.com/nvandessel/namegame/internal/models"
)

// Modal returns the most frequent defined symbol in symbols.
// Ties go to the symbol with the smallest numeric index; symbols without a
// numeric index sort after all indexed ones and then lexically.
// Returns false when no defined symbol is present.
func Modal(symbols []models.Symbol) (models.Symbol, bool) {
	counts := make(map[models.Symbol]int, len(symbols))
	for _, s := range symbols {
		if s.Defined() {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return models.NoSymbol, false
	}

	var best models.Symbol
	bestCount := 0
	for sym, c := range counts {
		if c > bestCount || (c == bestCount && lessByIndex(sym, best)) {
			best, bestCount = sym, c
		}
	}
	return best, true
}

// lessByIndex orders symbols by numeric index.
func lessByIndex(a, b models.Symbol) bool {
	ai, bi := sortIndex(a), sortIndex(b)
	if ai != bi {
		return ai < bi
	}
	return a < b
}

// sortIndex maps non-numeric symbols past every valid index.
func sortIndex(s models.Symbol) int {
	if i := s.Index(); i >= 0 {
		return i
	}
	return int(^uint(0) >> 1)
}
