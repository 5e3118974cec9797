// Package simulation provides a test harness for validating emergent
// dynamics of the naming game.
//
// The simulation exercises the real Engine, agent decode policy, JSONL sink,
// and SQLite run store. Only the decision source is scripted: scenarios
// supply a Responder that answers each prompt from the agent id, round,
// anchor, and retry flag, so every run is reproducible.
//
// Each test gets an isolated output directory and SQLite database via
// t.TempDir() and a sandboxed HOME to prevent touching user data.
//
// Usage:
//
//	func TestEchoIsAbsorbing(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "echo",
//	        Config:  cfg,
//	        Respond: simulation.Echo,
//	    })
//	    simulation.AssertConsensusAbsorbing(t, result)
//	}
package simulation
