package models

import (
	"encoding/json"
)

// Optional is a string field that upstream may leave out. Absent values
// marshal as null so the client can tell "no bio" from "empty bio".
type Optional struct {
	Value   string
	Present bool
}

// Some wraps a present value. Empty strings count as absent.
func Some(v string) Optional {
	if v == "" {
		return Optional{}
	}
	return Optional{Value: v, Present: true}
}

// None is the absent marker
func None() Optional {
	return Optional{}
}

// FromPtr maps a nullable upstream field
func FromPtr(p *string) Optional {
	if p == nil {
		return None()
	}
	return Some(*p)
}

// Or returns the value or a fallback when absent
func (o Optional) Or(fallback string) string {
	if !o.Present {
		return fallback
	}
	return o.Value
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Some(s)
	return nil
}

// Unavailable marks a metric that cannot be derived from the data at hand.
// It always marshals as {"available":false}.
type Unavailable struct{}

func (Unavailable) MarshalJSON() ([]byte, error) {
	return []byte(`{"available":false}`), nil
}

func (*Unavailable) UnmarshalJSON([]byte) error {
	return nil
}

// Available reports whether the metric carries a value. Always false.
func (Unavailable) Available() bool {
	return false
}
