package chain

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampFormat is RFC 3339 with fixed millisecond precision, matching the
// node's canonical rendering.
const timestampFormat = "2006-01-02T15:04:05.000Z"

// Timestamp is an absolute point in time with millisecond precision,
// stored as milliseconds since the Unix epoch.
type Timestamp uint64

// NewTimestamp truncates t to millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time converts back to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

func (t Timestamp) String() string {
	return t.Time().Format(timestampFormat)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = NewTimestamp(parsed)
	return nil
}

// TimeDiff is a duration with millisecond precision, used for deploy
// time-to-live values.
type TimeDiff uint64

// NewTimeDiff truncates d to millisecond precision. Negative durations are
// a caller error and clamp to zero.
func NewTimeDiff(d time.Duration) TimeDiff {
	if d < 0 {
		return 0
	}
	return TimeDiff(d.Milliseconds())
}

// Duration converts back to a time.Duration.
func (d TimeDiff) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

func (d TimeDiff) String() string {
	return d.Duration().String()
}

func (d TimeDiff) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *TimeDiff) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid time diff %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("time diff must not be negative: %q", s)
	}
	*d = NewTimeDiff(parsed)
	return nil
}
