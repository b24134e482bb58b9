package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString is a text field that also accepts bare JSON numbers, so race cards can
// send "slot": 3 or "slot": "3" interchangeably.
type FlexString string

// UnmarshalJSON accepts a string, a number or null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", raw)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// EntrantRecord is one competitor as it arrives from a race card. Apart from Name,
// any field may be blank or malformed.
type EntrantRecord struct {
	Name          string     `json:"name" validate:"required"`
	Form          FlexString `json:"form,omitempty"`
	RecentResults FlexString `json:"recent_results,omitempty"`
	Weight        FlexString `json:"weight,omitempty"`
	Market        FlexString `json:"market,omitempty"`
	Slot          FlexString `json:"slot,omitempty"`
	Origin        FlexString `json:"origin,omitempty"`
	RestDays      FlexString `json:"rest_days,omitempty"`
	Rating        FlexString `json:"rating,omitempty"`
}

// Identifier returns the trimmed entrant name.
func (e *EntrantRecord) Identifier() string {
	return strings.TrimSpace(e.Name)
}
