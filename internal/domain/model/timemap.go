package model

import "time"

// TimeMapEntry maps a (season, day) to the instant that day began.
type TimeMapEntry struct {
	Season    int       `json:"season"`
	Day       int       `json:"day"`
	PhaseID   int       `json:"phase_id"`
	Type      string    `json:"type,omitempty"`
	FirstTime time.Time `json:"first_time"`
}

// SeasonPhase is a distinct (season, phase) pair present in the time map.
type SeasonPhase struct {
	Season  int
	PhaseID int
}

// SeasonInterval bounds a season's regular season play.
type SeasonInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the interval, inclusive.
func (i SeasonInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}
