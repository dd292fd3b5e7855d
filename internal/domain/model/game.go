package model

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Game is one scheduled or completed game.
type Game struct {
	ID       string
	Season   int
	Day      int
	HomeTeam string
	AwayTeam string
	Fields   Record
}

// NewGame builds a Game from a stored row.
func NewGame(rec Record) (Game, error) {
	g := Game{
		ID:       rec.String("game_id"),
		HomeTeam: rec.String("home_team"),
		AwayTeam: rec.String("away_team"),
		Fields:   rec,
	}
	if g.ID == "" {
		return Game{}, fmt.Errorf("game: missing game_id")
	}
	var ok bool
	if g.Season, ok = rec.Int("season"); !ok {
		return Game{}, fmt.Errorf("game %s: missing season", g.ID)
	}
	if g.Day, ok = rec.Int("day"); !ok {
		return Game{}, fmt.Errorf("game %s: missing day", g.ID)
	}
	return g, nil
}

// MarshalJSON renders the stored row.
func (g Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Fields)
}

// GameEvent is one play within a game with its child rows attached.
type GameEvent struct {
	ID          int64
	GameID      string
	EventIndex  int
	Fields      Record
	BaseRunners []BaseRunner
	Outcomes    []Outcome
}

// NewGameEvent builds a GameEvent from a stored row.
func NewGameEvent(rec Record) (GameEvent, error) {
	id, ok := rec.Int64("id")
	if !ok {
		return GameEvent{}, fmt.Errorf("game event: missing id")
	}
	idx, ok := rec.Int("event_index")
	if !ok {
		return GameEvent{}, fmt.Errorf("game event %d: missing event_index", id)
	}
	return GameEvent{ID: id, GameID: rec.String("game_id"), EventIndex: idx, Fields: rec}, nil
}

// MarshalJSON renders the event row with its children nested.
func (e GameEvent) MarshalJSON() ([]byte, error) {
	out := e.Fields.Clone()
	runners := e.BaseRunners
	if runners == nil {
		runners = []BaseRunner{}
	}
	outcomes := e.Outcomes
	if outcomes == nil {
		outcomes = []Outcome{}
	}
	out["game_event_base_runners"] = runners
	out["outcomes"] = outcomes
	return json.Marshal(out)
}

// Child is a row attached to a game event.
type Child struct {
	ID          int64
	GameEventID int64
	Fields      Record
}

// BaseRunner describes one runner's movement on a play.
type BaseRunner Child

// Outcome describes a secondary effect attached to a play.
type Outcome Child

// NewChild builds a child row keyed by game_event_id.
func NewChild(rec Record) (Child, error) {
	id, ok := rec.Int64("id")
	if !ok {
		return Child{}, fmt.Errorf("event child: missing id")
	}
	parent, ok := rec.Int64("game_event_id")
	if !ok {
		return Child{}, fmt.Errorf("event child %d: missing game_event_id", id)
	}
	return Child{ID: id, GameEventID: parent, Fields: rec}, nil
}

// MarshalJSON renders the stored row.
func (b BaseRunner) MarshalJSON() ([]byte, error) { return json.Marshal(b.Fields) }

// MarshalJSON renders the stored row.
func (o Outcome) MarshalJSON() ([]byte, error) { return json.Marshal(o.Fields) }

// StatRow is one row of a stat source plus, for sources with an auxiliary
// relation, the matching auxiliary row. Aux is nil when no row matched.
type StatRow struct {
	Values Record
	Aux    Record
}
