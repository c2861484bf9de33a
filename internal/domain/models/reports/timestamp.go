package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a time persisted as epoch milliseconds, the shape the desktop
// renderer has always written. RFC 3339 strings are accepted on read.
type Timestamp struct {
	time.Time
}

// Now returns the current time truncated to millisecond precision so values
// survive a save/load cycle unchanged.
func Now() Timestamp {
	return Timestamp{time.Now().Truncate(time.Millisecond)}
}

// FromMillis converts epoch milliseconds into a Timestamp.
func FromMillis(ms int64) Timestamp {
	return Timestamp{time.UnixMilli(ms)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		*t = Timestamp{parsed}
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	if ms == 0 {
		*t = Timestamp{}
		return nil
	}
	*t = FromMillis(int64(ms))
	return nil
}
