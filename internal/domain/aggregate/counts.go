package aggregate

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/okian/datablase/internal/domain/types"
)

// Count names a raw per-entity count over game events.
type Count string

const (
	PlateAppearances Count = "plateAppearances"
	AtBats           Count = "atBats"
	Hits             Count = "hits"
	TimesOnBase      Count = "timesOnBase"
	Singles          Count = "singles"
	Doubles          Count = "doubles"
	Triples          Count = "triples"
	HomeRuns         Count = "homeRuns"
	OutsRecorded     Count = "outsRecorded"
	HitsRecorded     Count = "hitsRecorded"
	WalksRecorded    Count = "walksRecorded"
	HomeRunsAllowed  Count = "homeRunsAllowed"
	RunnersScored    Count = "runnersScored"
)

// Subject is the role an entity id plays in a count.
type Subject string

const (
	SubjectBatter  Subject = "batter"
	SubjectPitcher Subject = "pitcher"
)

// Table is the event relation a count reads.
type Table string

const (
	TableEvents      Table = "game_events"
	TableBaseRunners Table = "game_event_base_runners"
)

// Op is a condition operator.
type Op string

const (
	OpEq    Op = "="
	OpNe    Op = "!="
	OpGt    Op = ">"
	OpTrue  Op = "true"
	OpFalse Op = "false"
)

// Condition is one filter term of a count.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// CountSpec describes how a count is computed. Sum names a column to add
// up; when empty the rows are counted.
type CountSpec struct {
	Name    Count
	Subject Subject
	Table   Table
	GroupBy string
	Sum     string
	Where   []Condition
}

var (
	lastOfPA   = Condition{Field: "is_last_event_for_plate_appearance", Op: OpTrue}
	notWalk    = Condition{Field: "event_type", Op: OpNe, Value: "WALK"}
	reachedHit = Condition{Field: "bases_hit", Op: OpGt, Value: 0}
)

func batter(name Count, where ...Condition) CountSpec {
	return CountSpec{Name: name, Subject: SubjectBatter, Table: TableEvents, GroupBy: "batter_id", Where: where}
}

func pitcher(name Count, where ...Condition) CountSpec {
	return CountSpec{Name: name, Subject: SubjectPitcher, Table: TableEvents, GroupBy: "pitcher_id", Where: where}
}

func eventType(t string) Condition {
	return Condition{Field: "event_type", Op: OpEq, Value: t}
}

var countSpecs = map[Count]CountSpec{
	PlateAppearances: batter(PlateAppearances, lastOfPA),
	AtBats: batter(AtBats, lastOfPA, notWalk,
		Condition{Field: "is_sacrifice_fly", Op: OpFalse}),
	Hits:        batter(Hits, reachedHit, notWalk),
	TimesOnBase: batter(TimesOnBase, reachedHit),
	Singles:     batter(Singles, eventType("SINGLE")),
	Doubles:     batter(Doubles, eventType("DOUBLE")),
	Triples:     batter(Triples, eventType("TRIPLE")),
	HomeRuns:    batter(HomeRuns, eventType("HOME_RUN")),
	OutsRecorded: {
		Name: OutsRecorded, Subject: SubjectPitcher, Table: TableEvents,
		GroupBy: "pitcher_id", Sum: "outs_on_play",
	},
	HitsRecorded:    pitcher(HitsRecorded, reachedHit, notWalk),
	WalksRecorded:   pitcher(WalksRecorded, eventType("WALK")),
	HomeRunsAllowed: pitcher(HomeRunsAllowed, eventType("HOME_RUN")),
	RunnersScored: {
		Name: RunnersScored, Subject: SubjectPitcher, Table: TableBaseRunners,
		GroupBy: "responsible_pitcher_id",
		Where:   []Condition{{Field: "base_after_play", Op: OpEq, Value: 4}},
	},
}

// Spec returns the definition of c.
func Spec(c Count) (CountSpec, bool) {
	s, ok := countSpecs[c]
	return s, ok
}

// Counts lists every count name, sorted.
func Counts() []Count {
	out := make([]Count, 0, len(countSpecs))
	for c := range countSpecs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Derived names a formula over counts.
type Derived string

const (
	BattingAverageStat   Derived = "battingAverage"
	OnBasePercentageStat Derived = "onBasePercentage"
	SluggingStat         Derived = "slugging"
	OnBasePlusSlugging   Derived = "onBasePlusSlugging"
	EarnedRunsStat       Derived = "earnedRuns"
	WHIPStat             Derived = "whip"
	ERAStat              Derived = "era"
)

// Input is either a raw count or another derived value.
type Input struct {
	Count   Count
	Derived Derived
}

// Derivation is a formula with its ordered inputs.
type Derivation struct {
	Name    Derived
	Subject Subject
	Inputs  []Input
	Formula Formula
}

func counts(cs ...Count) []Input {
	out := make([]Input, len(cs))
	for i, c := range cs {
		out[i] = Input{Count: c}
	}
	return out
}

var derivations = map[Derived]Derivation{
	BattingAverageStat: {
		Name: BattingAverageStat, Subject: SubjectBatter,
		Inputs: counts(Hits, AtBats), Formula: BattingAverage,
	},
	OnBasePercentageStat: {
		Name: OnBasePercentageStat, Subject: SubjectBatter,
		Inputs: counts(TimesOnBase, PlateAppearances), Formula: OnBasePercentage,
	},
	SluggingStat: {
		Name: SluggingStat, Subject: SubjectBatter,
		Inputs: counts(Singles, Doubles, Triples, HomeRuns, AtBats), Formula: Slugging,
	},
	OnBasePlusSlugging: {
		Name: OnBasePlusSlugging, Subject: SubjectBatter,
		Inputs:  []Input{{Derived: OnBasePercentageStat}, {Derived: SluggingStat}},
		Formula: Sum,
	},
	// Home runs count once as a scoring runner and again here. Kept as is.
	EarnedRunsStat: {
		Name: EarnedRunsStat, Subject: SubjectPitcher,
		Inputs: counts(RunnersScored, HomeRunsAllowed), Formula: Sum,
	},
	WHIPStat: {
		Name: WHIPStat, Subject: SubjectPitcher,
		Inputs: counts(HitsRecorded, WalksRecorded, OutsRecorded), Formula: WHIP,
	},
	ERAStat: {
		Name: ERAStat, Subject: SubjectPitcher,
		Inputs:  []Input{{Derived: EarnedRunsStat}, {Count: OutsRecorded}},
		Formula: ERA,
	},
}

// Derivations lists every derived stat, sorted.
func Derivations() []Derived {
	out := make([]Derived, 0, len(derivations))
	for d := range derivations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DerivationOf returns the definition of d.
func DerivationOf(d Derived) (Derivation, bool) {
	def, ok := derivations[d]
	return def, ok
}

// CountReader runs one count against the event store, optionally
// restricted to ids.
type CountReader interface {
	Count(ctx context.Context, spec CountSpec, ids []string) (CountSet, error)
}

// Aggregator evaluates counts and derived formulas through a CountReader.
type Aggregator struct {
	reader      CountReader
	concurrency int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds parallel count queries per formula.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Aggregator.
func New(reader CountReader, opts ...Option) *Aggregator {
	a := &Aggregator{reader: reader, concurrency: 8}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Count returns the raw count c per entity.
func (a *Aggregator) Count(ctx context.Context, c Count, ids []string) (CountSet, error) {
	const op = "aggregate.count"
	spec, ok := countSpecs[c]
	if !ok {
		return nil, types.Errorf(op, types.ErrValidation, "unknown count: %s", c)
	}
	set, err := a.reader.Count(ctx, spec, ids)
	if err != nil {
		return nil, types.Wrap(op, fmt.Errorf("%s: %w", c, err))
	}
	return set, nil
}

// Derive evaluates d per entity. Input sets are fetched concurrently; the
// first failure aborts the rest.
func (a *Aggregator) Derive(ctx context.Context, d Derived, ids []string) ([]Result, error) {
	const op = "aggregate.derive"
	def, ok := derivations[d]
	if !ok {
		return nil, types.Errorf(op, types.ErrValidation, "unknown formula: %s", d)
	}
	sets := make([]CountSet, len(def.Inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, in := range def.Inputs {
		g.Go(func() error {
			if in.Derived != "" {
				res, err := a.Derive(gctx, in.Derived, ids)
				if err != nil {
					return err
				}
				sets[i] = ToSet(res)
				return nil
			}
			set, err := a.Count(gctx, in.Count, ids)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.Wrap(op, err)
	}
	return Combine(def.Formula, sets...), nil
}
