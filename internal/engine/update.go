package engine

import (
	"github.com/nvandessel/namegame/internal/agent"
	"github.com/nvandessel/namegame/internal/models"
)

// The preference update runs as three stages. Each takes the previous
// stage's value and returns the next; only nextPreference writes the agent.

// memoryCandidate records the partner's decoded symbol in a's history and
// returns the history's modal symbol, or a's current preference when the
// history holds nothing. Without memory it returns the current preference
// and leaves the history untouched.
func memoryCandidate(a *agent.Agent, partner agent.Proposal, useMemory bool) models.Symbol {
	if !useMemory {
		return a.Preferred
	}
	if partner.Decoded() {
		a.History.Add(partner.Symbol)
	}
	if modal, ok := a.History.Modal(); ok {
		return modal
	}
	return a.Preferred
}

// winStay holds the pre-round preference after a successful interaction.
func winStay(pre, candidate models.Symbol, success bool) models.Symbol {
	if success {
		return pre
	}
	return candidate
}

// loseShift adopts the partner's symbol with probability alpha after a
// failed interaction in which the partner decoded. draw is consulted only
// in that case.
func loseShift(candidate models.Symbol, partner agent.Proposal, success bool, alpha float64, draw func() float64) models.Symbol {
	if success || !partner.Decoded() {
		return candidate
	}
	if draw() < alpha {
		return partner.Symbol
	}
	return candidate
}

// nextPreference composes the three stages for a and assigns the result.
func nextPreference(a *agent.Agent, partner agent.Proposal, success bool, mode models.Mode, alpha float64) models.Symbol {
	pre := a.Preferred
	candidate := memoryCandidate(a, partner, mode.UsesMemory())
	held := winStay(pre, candidate, success)
	next := loseShift(held, partner, success, alpha, a.Draw)
	a.Preferred = next
	return next
}
