package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		raw     string
		want    Symbol
		wantErr bool
	}{
		{"C7", "C7", false},
		{"c7", "C7", false},
		{"C 07", "C7", false},
		{" C12 ", "C12", false},
		{"C0", "C0", false},
		{"C", "", true},
		{"X7", "", true},
		{"Cx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSymbol(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSymbol(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSymbol(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSymbolIndex(t *testing.T) {
	tests := []struct {
		sym  Symbol
		want int
	}{
		{"C1", 1},
		{"C12", 12},
		{"c3", 3},
		{NoSymbol, -1},
		{"Z1", -1},
		{"Cab", -1},
	}
	for _, tt := range tests {
		if got := tt.sym.Index(); got != tt.want {
			t.Errorf("%q.Index() = %d, want %d", tt.sym, got, tt.want)
		}
	}
}

func TestLexicon(t *testing.T) {
	lex, err := NewLexicon(12)
	if err != nil {
		t.Fatalf("NewLexicon: %v", err)
	}
	if lex.Len() != 12 {
		t.Errorf("Len = %d, want 12", lex.Len())
	}
	if lex.At(0) != "C1" || lex.At(11) != "C12" {
		t.Errorf("ordering wrong: first %q last %q", lex.At(0), lex.At(11))
	}
	if !lex.Contains("c5") {
		t.Error("Contains should ignore case")
	}
	if lex.Contains("C13") || lex.Contains("C0") {
		t.Error("Contains accepted a symbol outside C1..C12")
	}
	if sym, ok := lex.Lookup("c10"); !ok || sym != "C10" {
		t.Errorf("Lookup(c10) = %q, %v", sym, ok)
	}

	syms := lex.Symbols()
	syms[0] = "mutated"
	if lex.At(0) != "C1" {
		t.Error("Symbols must return a copy")
	}
}

func TestNewLexicon_Invalid(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := NewLexicon(n); err == nil {
			t.Errorf("NewLexicon(%d) should fail", n)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in         string
		want       Mode
		memory     bool
		structured bool
		wantErr    bool
	}{
		{"nl", ModeFreeText, false, false, false},
		{"NL_SW", ModeFreeTextMemory, true, false, false},
		{" schema ", ModeSchema, true, true, false},
		{"json", "", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v", tt.in, err)
			}
			if tt.wantErr {
				return
			}
			if m != tt.want || m.UsesMemory() != tt.memory || m.Structured() != tt.structured {
				t.Errorf("ParseMode(%q) = %q (memory %v, structured %v)", tt.in, m, m.UsesMemory(), m.Structured())
			}
		})
	}
}

func TestInteractionRecord_JSONNulls(t *testing.T) {
	rec := InteractionRecord{
		Seed:      0,
		Round:     1,
		Pair:      [2]int{0, 1},
		IID:       0,
		JID:       1,
		IName:     "C3",
		JName:     NoSymbol,
		Condition: ModeFreeText,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"i_name":"C3"`, `"j_name":null`, `"i_compliant":null`, `"pair":[0,1]`, `"condition":"nl"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON %s missing %s", out, want)
		}
	}

	var back InteractionRecord
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.JName != NoSymbol || back.IName != "C3" {
		t.Errorf("round trip names = %q, %q", back.IName, back.JName)
	}
}

func TestInteractionRecord_Success(t *testing.T) {
	tests := []struct {
		i, j Symbol
		want bool
	}{
		{"C1", "C1", true},
		{"C1", "C2", false},
		{NoSymbol, NoSymbol, false},
		{"C1", NoSymbol, false},
	}
	for _, tt := range tests {
		r := InteractionRecord{IName: tt.i, JName: tt.j}
		if got := r.Success(); got != tt.want {
			t.Errorf("Success(%q, %q) = %v, want %v", tt.i, tt.j, got, tt.want)
		}
	}
}
