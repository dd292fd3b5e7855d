// Package repository reads the league data store. It provides a Postgres
// implementation over the published views and an in-memory implementation
// loaded from a JSON fixture.
package repository

import (
	"context"
	"time"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/temporal"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
)

// Entity id columns of the versioned tables.
const (
	TeamIDField   = "team_id"
	PlayerIDField = "player_id"
)

// RevisionQuery filters revisions of a versioned entity.
type RevisionQuery struct {
	// Field and Values restrict rows to Field = ANY(Values). An empty Field
	// matches every row.
	Field  string
	Values []string
	// AsOf keeps revisions active at that instant. Nil keeps open revisions
	// unless AllRevisions is set, which disables validity filtering.
	AsOf         *time.Time
	AllRevisions bool
	// Where must hold for every row; a row matching any Exclude predicate is
	// dropped. Nulls never match an Exclude predicate.
	Where   types.PoolFilter
	Exclude types.PoolFilter
}

// StatsQuery reads rows of one stat source.
type StatsQuery struct {
	Selection views.Selection
	Season    *int
	PlayerIDs []string
	TeamIDs   []string
	GameID    string
	// SortField orders rows, nulls last, before the default player name and
	// id ordering.
	SortField *views.Field
	Order     types.Order
	Limit     int
}

// LeaderQuery ranks one season stat. The category's own relation is read,
// which may be the auxiliary relation of its group.
type LeaderQuery struct {
	Category views.Field
	Season   int
	Limit    int
}

// GameQuery filters games. Nil fields are not filtered.
type GameQuery struct {
	Season  *int
	Day     *int
	TeamIDs []string
}

// EventQuery filters game events; at least one field is expected.
type EventQuery struct {
	GameID    string
	PlayerID  string
	PitcherID string
	BatterID  string
}

// Empty reports whether no filter is set.
func (q EventQuery) Empty() bool {
	return q.GameID == "" && q.PlayerID == "" && q.PitcherID == "" && q.BatterID == ""
}

// Store is every read the stats API performs.
type Store interface {
	temporal.TimeMapReader
	aggregate.CountReader

	TeamRevisions(ctx context.Context, q RevisionQuery) ([]model.Revision, error)
	PlayerRevisions(ctx context.Context, q RevisionQuery) ([]model.Revision, error)

	// StatRows returns rows ordered as the query asks, with the auxiliary
	// relation joined when the selection includes it.
	StatRows(ctx context.Context, q StatsQuery) ([]model.StatRow, error)
	// Leaders returns rows ranked by the category, ties sharing a rank.
	Leaders(ctx context.Context, q LeaderQuery) ([]assemble.LeaderRow, error)

	// Games are ordered by season descending, then day and game id.
	Games(ctx context.Context, q GameQuery) ([]model.Game, error)
	// Game returns an error of kind types.ErrNotFound for an unknown id.
	Game(ctx context.Context, gameID string) (model.Game, error)
	// GameEvents are ordered by game id then event index.
	GameEvents(ctx context.Context, q EventQuery) ([]model.GameEvent, error)
	BaseRunners(ctx context.Context, eventIDs []int64) ([]model.BaseRunner, error)
	Outcomes(ctx context.Context, eventIDs []int64) ([]model.Outcome, error)

	Ping(ctx context.Context) error
	Close() error
}
