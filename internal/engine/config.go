package engine

import (
	"errors"
	"fmt"

	"github.com/nvandessel/namegame/internal/constants"
	"github.com/nvandessel/namegame/internal/models"
)

// ErrInvalidConfig is returned by New when the run configuration is
// rejected. No round executes.
var ErrInvalidConfig = errors.New("invalid run configuration")

// Config is the complete parameter set of one run.
type Config struct {
	Population   int
	Rounds       int
	Seeds        int
	Mode         models.Mode
	LexiconSize  int
	MemoryK      int
	PayloadLimit int
	Params       models.GenerationParams
	BaseSeed     int64
	Alpha        float64
	Workers      int
}

// DefaultConfig returns the reference experiment parameters in the given mode.
func DefaultConfig(mode models.Mode) Config {
	return Config{
		Population:   constants.DefaultPopulation,
		Rounds:       constants.DefaultRounds,
		Seeds:        constants.DefaultSeeds,
		Mode:         mode,
		LexiconSize:  constants.DefaultLexiconSize,
		MemoryK:      constants.DefaultMemoryK,
		PayloadLimit: constants.DefaultPayloadLimit,
		Params: models.GenerationParams{
			MaxNewTokens:  constants.DefaultMaxNewTokens,
			Temperature:   constants.DefaultTemperature,
			TopP:          constants.DefaultTopP,
			RepeatPenalty: constants.DefaultRepeatPenalty,
		},
		BaseSeed: constants.DefaultBaseSeed,
		Alpha:    constants.DefaultLoseShiftAlpha,
		Workers:  constants.DefaultWorkers,
	}
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Population >= 1, "population must be at least 1, got %d", c.Population)
	check(c.Rounds >= 0, "rounds must not be negative, got %d", c.Rounds)
	check(c.Seeds >= 1, "seeds must be at least 1, got %d", c.Seeds)
	check(c.LexiconSize >= 1 && c.LexiconSize <= constants.MaxLexiconSize,
		"lexicon size must be in [1,%d], got %d", constants.MaxLexiconSize, c.LexiconSize)
	check(c.MemoryK >= 0, "memory capacity must not be negative, got %d", c.MemoryK)
	check(c.PayloadLimit >= 0, "payload limit must not be negative, got %d", c.PayloadLimit)
	check(c.Alpha >= 0 && c.Alpha <= 1, "lose-shift alpha must be in [0,1], got %v", c.Alpha)
	check(c.Workers >= 1, "workers must be at least 1, got %d", c.Workers)
	check(c.Params.MaxNewTokens >= 1, "max new tokens must be at least 1, got %d", c.Params.MaxNewTokens)
	check(c.Params.Temperature >= 0, "temperature must not be negative, got %v", c.Params.Temperature)
	check(c.Params.TopP > 0 && c.Params.TopP <= 1, "top-p must be in (0,1], got %v", c.Params.TopP)
	check(c.Params.RepeatPenalty > 0, "repeat penalty must be positive, got %v", c.Params.RepeatPenalty)
	if _, err := models.ParseMode(string(c.Mode)); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
