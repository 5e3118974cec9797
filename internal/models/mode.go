package models

import (
	"fmt"
	"strings"
)

// Mode selects how agents talk to the decision source and whether they keep
// partner memory.
type Mode string

const (
	ModeFreeText       Mode = "nl"     // Free text, no memory update
	ModeFreeTextMemory Mode = "nl_sw"  // Free text with partner memory
	ModeSchema         Mode = "schema" // Strict single-line grammar, with memory
)

// ParseMode maps a condition tag to a Mode (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFreeText, ModeFreeTextMemory, ModeSchema:
		return m, nil
	default:
		return "", fmt.Errorf("unknown condition %q (valid: nl, nl_sw, schema)", s)
	}
}

// UsesMemory reports whether partner symbols feed the modal update.
func (m Mode) UsesMemory() bool {
	return m == ModeFreeTextMemory || m == ModeSchema
}

// Structured reports whether proposals are held to the schema grammar.
func (m Mode) Structured() bool {
	return m == ModeSchema
}

// GenerationParams are the sampling parameters passed to the decision source.
type GenerationParams struct {
	MaxNewTokens  int     `json:"max_new_tokens" yaml:"max_new_tokens"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
	TopP          float64 `json:"top_p" yaml:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty" yaml:"repeat_penalty"`
}
