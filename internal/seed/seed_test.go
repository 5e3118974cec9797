package seed

import "testing"

func TestCall(t *testing.T) {
	tests := []struct {
		name         string
		base         int64
		agent, round int
		offset       int64
		want         int64
	}{
		{"zero ids", 42, 0, 0, 0, 42},
		{"agent only", 42, 1, 0, 0, 42 ^ 1013904223},
		{"round only", 42, 0, 1, 0, 42 ^ 1664525},
		{"retry", 42, 0, 0, RetryOffset, 42 + 997},
		{"mixed", 100, 3, 7, 0, 100 ^ (3 * 1013904223) ^ (7 * 1664525)},
		{"mixed retry", 100, 3, 7, RetryOffset, 1097 ^ (3 * 1013904223) ^ (7 * 1664525)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Call(tt.base, tt.agent, tt.round, tt.offset); got != tt.want {
				t.Errorf("Call() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCall_RetryDiffers(t *testing.T) {
	for agent := 0; agent < 10; agent++ {
		if Call(42, agent, 5, 0) == Call(42, agent, 5, RetryOffset) {
			t.Errorf("agent %d: retry seed equals first-attempt seed", agent)
		}
	}
}

func TestRun_Masked(t *testing.T) {
	got := Run(42, 4, 24, 100)
	want := (int64(42) ^ 4*2654435761 ^ 24*97531 ^ 100*131071) & 0xFFFFFFFF
	if got != want {
		t.Errorf("Run() = %d, want %d", got, want)
	}
	if got < 0 || got > 0xFFFFFFFF {
		t.Errorf("Run() = %d out of 32-bit range", got)
	}
}

func TestRun_VariesBySeed(t *testing.T) {
	seen := make(map[int64]bool)
	for s := 0; s < 5; s++ {
		v := Run(42, s, 24, 100)
		if seen[v] {
			t.Errorf("seed %d repeats run seed %d", s, v)
		}
		seen[v] = true
	}
}

func TestCallBase(t *testing.T) {
	if got := CallBase(42, 0); got != 42 {
		t.Errorf("CallBase(42, 0) = %d", got)
	}
	if got := CallBase(42, 3); got != 300042 {
		t.Errorf("CallBase(42, 3) = %d", got)
	}
}

func TestAgent(t *testing.T) {
	if got, want := Agent(42, 1, 2), int64(43)^(2*1315423911); got != want {
		t.Errorf("Agent() = %d, want %d", got, want)
	}
	if Agent(42, 0, 1) == Agent(42, 0, 2) {
		t.Error("distinct agents share a seed")
	}
}
