// Package assemble reshapes flat stat, leader and game rows into the nested
// response objects served by the API.
package assemble

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
)

// PlayerRef identifies the player of a split.
type PlayerRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// TeamRef identifies the team of a split.
type TeamRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Location string `json:"location,omitempty"`
	Slug     string `json:"slug,omitempty"`
}

// NewTeamRef builds a reference from a team snapshot.
func NewTeamRef(rev model.Revision) TeamRef {
	name := rev.Fields.String("full_name")
	if name == "" {
		name = rev.Fields.String("nickname")
	}
	return TeamRef{
		ID:       rev.EntityID,
		Name:     name,
		Nickname: rev.Fields.String("nickname"),
		Location: rev.Fields.String("location"),
		Slug:     rev.Fields.String("url_slug"),
	}
}

// Split is one player's stat line.
type Split struct {
	Season *int         `json:"season,omitempty"`
	GameID string       `json:"gameId,omitempty"`
	Stat   model.Record `json:"stat"`
	Player PlayerRef    `json:"player"`
	Team   *TeamRef     `json:"team,omitempty"`
}

// StatGroupResult holds every split of one group.
type StatGroupResult struct {
	Group       types.StatGroup `json:"group"`
	Type        types.SplitType `json:"type"`
	GameType    types.GameType  `json:"gameType"`
	TotalSplits int             `json:"totalSplits"`
	Splits      []Split         `json:"splits"`
}

// GroupRows is the fetched rows of one group together with the selection
// that produced them.
type GroupRows struct {
	Selection views.Selection
	Rows      []model.StatRow
}

// TeamKey is a season scoped team reference.
type TeamKey struct {
	Season int
	TeamID string
}

// TeamResolver finds the snapshot of a team for a season.
type TeamResolver interface {
	Team(ctx context.Context, key TeamKey) (model.Revision, bool, error)
}

// StaticTeams resolves every key by team id alone. It serves splits whose
// team snapshot is already pinned, such as box score lines.
type StaticTeams map[string]model.Revision

// Team implements TeamResolver.
func (s StaticTeams) Team(_ context.Context, key TeamKey) (model.Revision, bool, error) {
	rev, ok := s[key.TeamID]
	return rev, ok, nil
}

// Assembler builds player stat responses.
type Assembler struct {
	teams       TeamResolver
	concurrency int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithConcurrency bounds parallel team lookups.
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Assembler resolving teams through teams. A nil resolver
// leaves every split with the team reference carried by its row.
func New(teams TeamResolver, opts ...Option) *Assembler {
	a := &Assembler{teams: teams, concurrency: 8}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type pending struct {
	group int
	split int
	key   TeamKey
}

// PlayerStats turns each group's rows into splits. Distinct (season, team)
// pairs across all groups are resolved once each, concurrently, and then
// back-filled into every split that references them.
func (a *Assembler) PlayerStats(ctx context.Context, groups []GroupRows) ([]StatGroupResult, error) {
	const op = "assemble.player_stats"
	out := make([]StatGroupResult, len(groups))
	var refs []pending
	for gi, g := range groups {
		src := g.Selection.Source
		res := StatGroupResult{
			Group:    src.Group,
			Type:     src.Split,
			GameType: src.GameType,
			Splits:   make([]Split, 0, len(g.Rows)),
		}
		withTeam := src.Split != types.SplitCareer && src.HasColumn(views.ColTeamID)
		for _, row := range g.Rows {
			split := buildSplit(g.Selection, row)
			if withTeam {
				if id := row.Values.String(views.ColTeamID); id != "" {
					split.Team = &TeamRef{ID: id, Name: row.Values.String(views.ColTeamName)}
					if split.Season != nil {
						refs = append(refs, pending{group: gi, split: len(res.Splits), key: TeamKey{Season: *split.Season, TeamID: id}})
					}
				}
			}
			res.Splits = append(res.Splits, split)
		}
		res.TotalSplits = len(res.Splits)
		out[gi] = res
	}

	if a.teams == nil || len(refs) == 0 {
		return out, nil
	}
	resolved, err := a.resolve(ctx, refs)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	for _, p := range refs {
		if ref, ok := resolved[p.key]; ok {
			r := ref
			out[p.group].Splits[p.split].Team = &r
		}
	}
	return out, nil
}

func (a *Assembler) resolve(ctx context.Context, refs []pending) (map[TeamKey]TeamRef, error) {
	seen := map[TeamKey]bool{}
	var keys []TeamKey
	for _, p := range refs {
		if !seen[p.key] {
			seen[p.key] = true
			keys = append(keys, p.key)
		}
	}

	var mu sync.Mutex
	out := make(map[TeamKey]TeamRef, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, k := range keys {
		g.Go(func() error {
			rev, ok, err := a.teams.Team(gctx, k)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				out[k] = NewTeamRef(rev)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func buildSplit(sel views.Selection, row model.StatRow) Split {
	src := sel.Source
	v := row.Values
	split := Split{
		Player: PlayerRef{ID: v.String(views.ColPlayerID), FullName: v.String(views.ColPlayerName)},
	}
	if src.Split != types.SplitCareer && src.HasColumn(views.ColSeason) {
		if s, ok := v.Int(views.ColSeason); ok {
			split.Season = &s
		}
	}
	if src.HasColumn(views.ColGameID) {
		split.GameID = v.String(views.ColGameID)
	}

	stat := make(model.Record, len(sel.Fields)+len(sel.AuxFields)+4)
	for _, fl := range sel.Fields {
		if val, ok := v[fl.Column]; ok {
			stat[fl.Name] = clean(val)
		}
	}
	// Missing auxiliary rows read as zero rather than dropping the field.
	for _, fl := range sel.AuxFields {
		val := any(0)
		if row.Aux != nil && row.Aux.Has(fl.Column) {
			val = clean(row.Aux[fl.Column])
		}
		stat[fl.Name] = val
	}

	want := map[string]bool{}
	for _, name := range sel.Names() {
		want[name] = true
	}
	aggregate.FillDerived(src.Group, stat, func(field string) bool { return want[field] })
	split.Stat = stat
	return split
}

// clean turns non-finite floats into values that encode as null.
func clean(v any) any {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return aggregate.Value(f)
		}
	case float32:
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return aggregate.Value(f)
		}
	}
	return v
}
