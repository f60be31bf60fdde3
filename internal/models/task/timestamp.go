package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LocalLayout - формат даты без зоны, в котором сервис отдаёт и принимает время
const LocalLayout = "2006-01-02T15:04:05"

// Timestamp разбирает время как с зоной, так и без неё (тогда считается UTC)
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	s := strings.Trim(string(b), "\"")
	if s == "" {
		return nil
	}

	var lastErr error
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05Z07"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			ts.Time = t.UTC()
			return nil
		}
		lastErr = err
	}

	for _, layout := range []string{"2006-01-02T15:04:05.999999999", LocalLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"} {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			ts.Time = t
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("не удалось разобрать время %q: %w", s, lastErr)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Time.UTC().Format("2006-01-02T15:04:05.999"))
}
