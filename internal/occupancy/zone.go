package occupancy

import (
	"errors"
	"fmt"

	"github.com/ponytojas/go-parking-monitor/internal/models"
)

// Zone is a fixed group of sensor keys whose combined reading drives one
// indicator
type Zone struct {
	ID   string   `mapstructure:"id" json:"id"`
	Keys []string `mapstructure:"keys" json:"keys"`
}

// DefaultZones returns the two parking zones of the lot
func DefaultZones() []Zone {
	return []Zone{
		{ID: "left", Keys: []string{"A1_1", "A1_2", "A1_3"}},
		{ID: "right", Keys: []string{"A2_1", "A2_2", "A2_3"}},
	}
}

// ValidateZones checks that every zone has a unique id and a non-empty set
// of distinct keys
func ValidateZones(zones []Zone) error {
	if len(zones) == 0 {
		return errors.New("no zones configured")
	}

	var errs []error
	seen := make(map[string]bool, len(zones))
	for i, zone := range zones {
		if zone.ID == "" {
			errs = append(errs, fmt.Errorf("zone %d: missing id", i))
		} else if seen[zone.ID] {
			errs = append(errs, fmt.Errorf("zone %q: duplicate id", zone.ID))
		}
		seen[zone.ID] = true

		if len(zone.Keys) == 0 {
			errs = append(errs, fmt.Errorf("zone %q: no sensor keys", zone.ID))
		}
		keys := make(map[string]bool, len(zone.Keys))
		for _, key := range zone.Keys {
			if key == "" {
				errs = append(errs, fmt.Errorf("zone %q: empty sensor key", zone.ID))
				continue
			}
			if keys[key] {
				errs = append(errs, fmt.Errorf("zone %q: duplicate sensor key %q", zone.ID, key))
			}
			keys[key] = true
		}
	}
	return errors.Join(errs...)
}

// Evaluate derives the occupancy of every zone from a single snapshot. A
// reading contributes to a zone when its key belongs to the zone and its
// value is the integer 0; a zone is full when all of its keys contribute.
// Nothing is carried over between calls.
func Evaluate(snapshot models.Snapshot, zones []Zone) []models.ZoneState {
	states := make([]models.ZoneState, len(zones))
	index := make(map[string][]int)
	for i, zone := range zones {
		states[i] = models.ZoneState{ZoneID: zone.ID, Size: len(zone.Keys)}
		for _, key := range zone.Keys {
			index[key] = append(index[key], i)
		}
	}

	for _, reading := range snapshot.Readings {
		if !reading.Valid || reading.Value != 0 {
			continue
		}
		for _, i := range index[reading.Key] {
			states[i].Count++
		}
	}

	for i := range states {
		states[i].Full = states[i].Size > 0 && states[i].Count == states[i].Size
	}
	return states
}
