// Package fines computes absence penalties: a configurable penalty schedule
// and the reconciliation job that rebuilds the fine collection from the
// attendance roster.
package fines

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NoPenalty is the schedule entry for zero absences.
const NoPenalty = "No penalty"

// Schedule maps an absence count to a penalty description. Lookups above the
// highest key saturate to the highest key's entry.
type Schedule struct {
	entries []string
}

// DefaultSchedule is the supply-list schedule shipped with the service,
// covering 0 through 10 absences.
func DefaultSchedule() Schedule {
	return Schedule{entries: []string{
		NoPenalty,
		"1 Pad Grade 1 paper, 1 pencil",
		"2 Pads Grade 2 paper, 2 pencils, 1 eraser",
		"3 Pads Grade 3 paper, 3 pencils, 2 eraser, 1 sharpener",
		"4 Pads Grade 4 paper, 4 pencils, 2 eraser, 1 sharpener, 1 crayons",
		"5 Pads Grade 5 paper, 5 pencils, 3 eraser, 2 sharpener, 1 crayons",
		"6 Pads Grade 6 paper, 6 pencils, 3 eraser, 2 sharpener, 2 crayons",
		"7 Pads intermediate paper, 7 pencils, 4 eraser, 3 sharpener, 2 crayons",
		"8 Pads intermediate paper, 8 pencils, 4 eraser, 3 sharpener, 3 crayons",
		"9 Pads intermediate paper, 9 pencils, 5 eraser, 4 sharpener, 3 crayons",
		"10 Pads intermediate paper, 10 pencils, 5 eraser, 4 sharpener, 4 crayons, 1 school bag",
	}}
}

// Max returns the highest absence count the schedule distinguishes.
func (s Schedule) Max() int { return len(s.entries) - 1 }

// Lookup returns the penalty description for an absence count. Negative
// counts map to the zero entry; counts past the end saturate.
func (s Schedule) Lookup(absences int) string {
	if absences <= 0 {
		return s.entries[0]
	}
	if absences > s.Max() {
		return s.entries[s.Max()]
	}
	return s.entries[absences]
}

type scheduleFile struct {
	Penalties map[int]string `yaml:"penalties"`
}

// LoadSchedule reads a YAML penalty schedule:
//
//	penalties:
//	  0: "No penalty"
//	  1: "1 Pad Grade 1 paper, 1 pencil"
//
// Keys must be contiguous from 0 and entry 0 must be the no-penalty sentinel.
func LoadSchedule(path string) (Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("read penalty schedule: %w", err)
	}
	var file scheduleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Schedule{}, fmt.Errorf("parse penalty schedule: %w", err)
	}
	return buildSchedule(file.Penalties)
}

func buildSchedule(penalties map[int]string) (Schedule, error) {
	if len(penalties) == 0 {
		return Schedule{}, fmt.Errorf("penalty schedule is empty")
	}
	entries := make([]string, len(penalties))
	for i := range entries {
		entry, ok := penalties[i]
		if !ok {
			return Schedule{}, fmt.Errorf("penalty schedule has no entry for %d absences", i)
		}
		if entry == "" {
			return Schedule{}, fmt.Errorf("penalty schedule entry for %d absences is blank", i)
		}
		entries[i] = entry
	}
	if entries[0] != NoPenalty {
		return Schedule{}, fmt.Errorf("penalty schedule entry for 0 absences must be %q, got %q", NoPenalty, entries[0])
	}
	return Schedule{entries: entries}, nil
}
