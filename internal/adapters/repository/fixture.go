package repository

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
)

// Dataset is the full content of an in-memory store. Stats holds the rows of
// each stat relation keyed by its qualified name.
type Dataset struct {
	TimeMap     []model.TimeMapEntry      `json:"time_map"`
	Teams       []model.Record            `json:"teams"`
	Players     []model.Record            `json:"players"`
	Games       []model.Record            `json:"games"`
	GameEvents  []model.Record            `json:"game_events"`
	BaseRunners []model.Record            `json:"game_event_base_runners"`
	Outcomes    []model.Record            `json:"outcomes"`
	Stats       map[string][]model.Record `json:"stats"`
}

// LoadFixture reads a Dataset from a JSON file.
func LoadFixture(path string) (*Dataset, error) {
	const op = "repository.load_fixture"
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapKind(op, ErrFixture, err)
	}
	return DecodeFixture(raw)
}

// DecodeFixture parses a Dataset. Integral JSON numbers decode as int64 and
// the rest as float64.
func DecodeFixture(raw []byte) (*Dataset, error) {
	const op = "repository.decode_fixture"
	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, types.WrapKind(op, ErrFixture, err)
	}
	for _, rows := range [][]model.Record{ds.Teams, ds.Players, ds.Games, ds.GameEvents, ds.BaseRunners, ds.Outcomes} {
		integers(rows)
	}
	for _, rows := range ds.Stats {
		integers(rows)
	}
	if err := ds.check(); err != nil {
		return nil, types.WrapKind(op, ErrFixture, err)
	}
	return &ds, nil
}

func integers(rows []model.Record) {
	for _, r := range rows {
		for k, v := range r {
			if f, ok := v.(float64); ok && f == float64(int64(f)) {
				r[k] = int64(f)
			}
		}
	}
}

func (ds *Dataset) check() error {
	for i, r := range ds.Teams {
		if _, err := model.NewRevision(TeamIDField, r); err != nil {
			return fmt.Errorf("teams[%d]: %w", i, err)
		}
	}
	for i, r := range ds.Players {
		if _, err := model.NewRevision(PlayerIDField, r); err != nil {
			return fmt.Errorf("players[%d]: %w", i, err)
		}
	}
	for i, r := range ds.Games {
		if _, err := model.NewGame(r); err != nil {
			return fmt.Errorf("games[%d]: %w", i, err)
		}
	}
	for i, r := range ds.GameEvents {
		if _, err := model.NewGameEvent(r); err != nil {
			return fmt.Errorf("game_events[%d]: %w", i, err)
		}
	}
	for i, r := range append(append([]model.Record{}, ds.BaseRunners...), ds.Outcomes...) {
		if _, err := model.NewChild(r); err != nil {
			return fmt.Errorf("event children[%d]: %w", i, err)
		}
	}
	return nil
}
