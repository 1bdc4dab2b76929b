package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrNotObject is returned when a snapshot payload is not a JSON object
var ErrNotObject = errors.New("snapshot payload is not a JSON object")

// SensorReading is a single child entry of the monitored store path
type SensorReading struct {
	Key   string `json:"key"`
	Value int    `json:"value"`

	// Valid is false when the stored value is not an integer
	Valid bool `json:"valid"`
}

func (r SensorReading) String() string {
	if !r.Valid {
		return fmt.Sprintf("%s=<invalid>", r.Key)
	}
	return fmt.Sprintf("%s=%d", r.Key, r.Value)
}

// Snapshot is a complete point-in-time view of all children under the
// monitored path
type Snapshot struct {
	Readings   []SensorReading `json:"readings"`
	ReceivedAt time.Time       `json:"received_at"`
}

// ParseSnapshot decodes a JSON object payload into a Snapshot. A JSON null
// is an empty snapshot. Readings are sorted by key.
func ParseSnapshot(payload []byte, receivedAt time.Time) (Snapshot, error) {
	snapshot := Snapshot{ReceivedAt: receivedAt}

	trimmed := bytes.TrimSpace(payload)
	if bytes.Equal(trimmed, []byte("null")) {
		return snapshot, nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return snapshot, ErrNotObject
	}

	var children map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &children); err != nil {
		return snapshot, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snapshot.Readings = make([]SensorReading, 0, len(children))
	for key, raw := range children {
		value, ok := intValue(raw)
		snapshot.Readings = append(snapshot.Readings, SensorReading{
			Key:   key,
			Value: value,
			Valid: ok,
		})
	}
	sort.Slice(snapshot.Readings, func(i, j int) bool {
		return snapshot.Readings[i].Key < snapshot.Readings[j].Key
	})

	return snapshot, nil
}

// intValue extracts an integer from a raw JSON value. Integral floats such
// as 0.0 are accepted, anything else is not an integer.
func intValue(raw json.RawMessage) (int, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var v interface{}
	if err := decoder.Decode(&v); err != nil {
		return 0, false
	}
	number, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := number.Int64(); err == nil {
		if i < math.MinInt || i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	}
	f, err := number.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
