package models

import "encoding/json"

// InteractionRecord is the log entry for one pair in one round.
// Names are null when undecodable; compliance flags are null outside
// schema mode.
type InteractionRecord struct {
	Seed       int    `json:"seed"`
	Round      int    `json:"round"`
	Pair       [2]int `json:"pair"`
	IID        int    `json:"i_id"`
	JID        int    `json:"j_id"`
	IName      Symbol `json:"i_name"`
	JName      Symbol `json:"j_name"`
	IText      string `json:"i_txt"`
	JText      string `json:"j_txt"`
	ITokens    int    `json:"i_tokens"`
	JTokens    int    `json:"j_tokens"`
	ICompliant *bool  `json:"i_compliant"`
	JCompliant *bool  `json:"j_compliant"`
	Condition  Mode   `json:"condition"`
}

// Success reports whether both agents decoded the same symbol.
func (r InteractionRecord) Success() bool {
	return r.IName.Defined() && r.JName.Defined() && r.IName == r.JName
}

// RoundAggregate is the log entry summarizing one round.
type RoundAggregate struct {
	Seed                int     `json:"seed"`
	Round               int     `json:"round"`
	Aggregate           bool    `json:"aggregate"`
	Pairs               int     `json:"pairs"`
	RoundTokens         int     `json:"round_tokens"`
	PairSuccess         int     `json:"pair_success"`
	PopulationAgreement float64 `json:"population_agreement"`
	Condition           Mode    `json:"condition"`
}

// MarshalJSON renders NoSymbol as null.
func (s Symbol) MarshalJSON() ([]byte, error) {
	if s == NoSymbol {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts a string or null.
func (s *Symbol) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoSymbol
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Symbol(str)
	return nil
}

// Bool returns a pointer to v, for optional compliance flags.
func Bool(v bool) *bool {
	return &v
}
