// Package constants provides named defaults used throughout the namegame
// codebase. This centralizes the run parameters of the reference experiment.
package constants

// Population and schedule defaults
const (
	// DefaultPopulation is the number of agents in a run.
	DefaultPopulation = 24

	// DefaultRounds is the number of rounds per seed.
	DefaultRounds = 100

	// DefaultSeeds is the number of seed repetitions per run.
	DefaultSeeds = 5

	// DefaultBaseSeed is the base random seed.
	DefaultBaseSeed = 42
)

// Lexicon and memory defaults
const (
	// DefaultLexiconSize is the number of symbols C1..Cn.
	DefaultLexiconSize = 12

	// MaxLexiconSize is the largest lexicon the two-digit symbol grammar can name.
	MaxLexiconSize = 99

	// DefaultMemoryK is the capacity of each agent's partner history.
	DefaultMemoryK = 5

	// DefaultPayloadLimit is the word cap hinted for schema rationales.
	DefaultPayloadLimit = 20
)

// Update rule defaults
const (
	// DefaultLoseShiftAlpha is the probability of adopting the partner's
	// symbol after a failed interaction.
	DefaultLoseShiftAlpha = 0.75

	// DefaultTarget is the agreement threshold for rounds-to-target.
	DefaultTarget = 0.9

	// DefaultWorkers runs pairs serially.
	DefaultWorkers = 1
)

// Generation defaults
const (
	DefaultMaxNewTokens  = 32
	DefaultTemperature   = 0.7
	DefaultTopP          = 0.9
	DefaultRepeatPenalty = 1.1
)

// Output defaults
const (
	// DefaultOutputDir receives run logs.
	DefaultOutputDir = "data"

	// PreviewLen caps raw decision text in operator logs.
	PreviewLen = 120
)
