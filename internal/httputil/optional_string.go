package httputil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// OptionalString is a PATCH field that tells "absent" from "cleared":
//   - Present=false: field absent from JSON (leave unchanged)
//   - Present=true, Value=nil: JSON null or a blank string (clear)
//   - Present=true, Value=&"text": trimmed new value
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs when the field is in the body
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	o.Value = nil

	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s != "" {
		o.Value = &s
	}
	return nil
}
