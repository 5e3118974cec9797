// Package seed derives deterministic seeds for runs, agents, and individual
// decision-source calls. Every function is pure: the same inputs always give
// the same seed, independent of call order or parallelism.
package seed

// Large odd mixing multipliers.
const (
	agentMul   = 1013904223
	roundMul   = 1664525
	seedMul    = 2654435761
	popMul     = 97531
	roundsMul  = 131071
	agentRNG   = 1315423911
	seedStride = 100000
)

// RetryOffset is added to the base seed for the schema reminder retry.
const RetryOffset = 997

// Call returns the seed for one decision-source call by agentID in roundID.
// offset is 0 for the first attempt and RetryOffset for the retry.
func Call(base int64, agentID, roundID int, offset int64) int64 {
	return (base + offset) ^ (int64(agentID) * agentMul) ^ (int64(roundID) * roundMul)
}

// Run returns the seed for the pairing and initialization stream of seed
// repetition s in a run with the given population and round count.
func Run(base int64, s, population, rounds int) int64 {
	mixed := base ^ (int64(s) * seedMul) ^ (int64(population) * popMul) ^ (int64(rounds) * roundsMul)
	return mixed & 0xFFFFFFFF
}

// CallBase returns the per-repetition base passed to Call.
func CallBase(base int64, s int) int64 {
	return base + int64(s)*seedStride
}

// Agent returns the seed of an agent's private random stream for seed
// repetition s.
func Agent(base int64, s, agentID int) int64 {
	return (base + int64(s)) ^ (int64(agentID) * agentRNG)
}
