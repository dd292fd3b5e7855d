// Package views maps (group, split, game type) triples to the pre-aggregated
// stat relations that back them, along with each relation's fields.
package views

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/okian/datablase/internal/domain/types"
)

// Identity columns shared by stat relations.
const (
	ColPlayerID   = "player_id"
	ColPlayerName = "player_name"
	ColTeamID     = "team_id"
	ColTeamName   = "team"
	ColSeason     = "season"
	ColGameID     = "game_id"
	ColDay        = "day"
)

// Key identifies a source.
type Key struct {
	Group    types.StatGroup
	Split    types.SplitType
	GameType types.GameType
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Group, k.Split, k.GameType)
}

// Aux is a relation joined onto every row of a source.
type Aux struct {
	Relation string
	JoinKeys []string
	Fields   []Field
}

// Source is one backing relation.
type Source struct {
	Key
	Relation string
	Identity []string
	Fields   []Field
	Aux      *Aux
}

// HasColumn reports whether col is an identity column of s.
func (s Source) HasColumn(col string) bool {
	for _, c := range s.Identity {
		if c == col {
			return true
		}
	}
	return false
}

// Field looks up a primary or auxiliary field by name.
func (s Source) Field(name string) (Field, bool) {
	for _, fl := range s.Fields {
		if fl.Name == name {
			return fl, true
		}
	}
	if s.Aux != nil {
		for _, fl := range s.Aux.Fields {
			if fl.Name == name {
				return fl, true
			}
		}
	}
	return Field{}, false
}

// IsAux reports whether fl is read from the auxiliary relation of s.
func (s Source) IsAux(fl Field) bool {
	return s.Aux != nil && fl.Relation == s.Aux.Relation
}

// FieldNames lists primary then auxiliary field names.
func (s Source) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for _, fl := range s.Fields {
		out = append(out, fl.Name)
	}
	if s.Aux != nil {
		for _, fl := range s.Aux.Fields {
			out = append(out, fl.Name)
		}
	}
	return out
}

// Selection is a source plus the fields a request projects from it.
type Selection struct {
	Source    Source
	Fields    []Field
	AuxFields []Field
}

// IncludeAux reports whether the auxiliary relation must be fetched.
func (s Selection) IncludeAux() bool {
	return s.Source.Aux != nil && len(s.AuxFields) > 0
}

// Columns lists the identity columns followed by projected primary columns.
func (s Selection) Columns() []string {
	out := append([]string{}, s.Source.Identity...)
	for _, fl := range s.Fields {
		out = append(out, fl.Column)
	}
	return out
}

// AuxColumns lists the join keys followed by projected auxiliary columns.
func (s Selection) AuxColumns() []string {
	if !s.IncludeAux() {
		return nil
	}
	out := append([]string{}, s.Source.Aux.JoinKeys...)
	for _, fl := range s.AuxFields {
		out = append(out, fl.Column)
	}
	return out
}

// Names lists every projected field name.
func (s Selection) Names() []string {
	out := make([]string, 0, len(s.Fields)+len(s.AuxFields))
	for _, fl := range s.Fields {
		out = append(out, fl.Name)
	}
	for _, fl := range s.AuxFields {
		out = append(out, fl.Name)
	}
	return out
}

// Registry is the fixed source table.
type Registry struct {
	sources map[Key]Source
	leaders map[types.StatGroup][]string
}

var identRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// NewRegistry validates sources and builds a registry.
func NewRegistry(sources []Source, leaders map[types.StatGroup][]string) (*Registry, error) {
	r := &Registry{sources: make(map[Key]Source, len(sources)), leaders: leaders}
	for _, s := range sources {
		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("views: %s: %w", s.Key, err)
		}
		if _, dup := r.sources[s.Key]; dup {
			return nil, fmt.Errorf("views: %s: duplicate source", s.Key)
		}
		r.sources[s.Key] = s
	}
	for g, cats := range leaders {
		src, ok := r.sources[Key{Group: g, Split: types.SplitSeason, GameType: types.GameRegular}]
		if !ok {
			return nil, fmt.Errorf("views: leader categories for %s without a season source", g)
		}
		for _, c := range cats {
			if _, ok := src.Field(c); !ok {
				return nil, fmt.Errorf("views: leader category %s is not a %s field", c, g)
			}
		}
	}
	return r, nil
}

func validateSource(s Source) error {
	if !identRE.MatchString(s.Relation) {
		return fmt.Errorf("invalid relation %q", s.Relation)
	}
	if !s.HasColumn(ColPlayerID) {
		return fmt.Errorf("identity must include %s", ColPlayerID)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("no fields")
	}
	seen := map[string]bool{}
	for _, c := range s.Identity {
		if !identRE.MatchString(c) {
			return fmt.Errorf("invalid identity column %q", c)
		}
		seen[c] = true
	}
	check := func(fl Field, relation string) error {
		if !identRE.MatchString(fl.Column) || fl.Name == "" {
			return fmt.Errorf("invalid field %q", fl.Name)
		}
		if fl.Relation != relation {
			return fmt.Errorf("field %s bound to %s, want %s", fl.Name, fl.Relation, relation)
		}
		if seen[fl.Name] {
			return fmt.Errorf("duplicate field %s", fl.Name)
		}
		seen[fl.Name] = true
		return nil
	}
	for _, fl := range s.Fields {
		if err := check(fl, s.Relation); err != nil {
			return err
		}
	}
	if s.Aux != nil {
		if !identRE.MatchString(s.Aux.Relation) {
			return fmt.Errorf("invalid aux relation %q", s.Aux.Relation)
		}
		if len(s.Aux.JoinKeys) == 0 {
			return fmt.Errorf("aux relation without join keys")
		}
		for _, k := range s.Aux.JoinKeys {
			if !s.HasColumn(k) {
				return fmt.Errorf("aux join key %s is not an identity column", k)
			}
		}
		for _, fl := range s.Aux.Fields {
			if err := check(fl, s.Aux.Relation); err != nil {
				return err
			}
		}
	}
	return nil
}

// Source returns the source for group, split and game type.
func (r *Registry) Source(group types.StatGroup, split types.SplitType, gameType types.GameType) (Source, error) {
	const op = "views.source"
	k := Key{Group: group, Split: split, GameType: gameType}
	s, ok := r.sources[k]
	if !ok {
		return Source{}, types.Errorf(op, types.ErrUnsupportedSplit,
			"unsupported combination of group=%s, type=%s and gameType=%s. Supported for %s: %s",
			group, split, gameType, group, strings.Join(r.supported(group), ", "))
	}
	return s, nil
}

// Select resolves the source and the projection for a request. An empty
// names list selects every field including the auxiliary ones.
func (r *Registry) Select(group types.StatGroup, split types.SplitType, gameType types.GameType, names []string) (Selection, error) {
	const op = "views.select"
	src, err := r.Source(group, split, gameType)
	if err != nil {
		return Selection{}, err
	}
	sel := Selection{Source: src}
	if len(names) == 0 {
		sel.Fields = src.Fields
		if src.Aux != nil {
			sel.AuxFields = src.Aux.Fields
		}
		return sel, nil
	}
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		fl, ok := src.Field(name)
		if !ok {
			return Selection{}, types.Errorf(op, types.ErrValidation,
				"unsupported value provided for 'fields' parameter: %s. Available fields for %s: %s",
				name, group, strings.Join(src.FieldNames(), ", "))
		}
		if fl.Relation == src.Relation {
			sel.Fields = append(sel.Fields, fl)
		} else {
			sel.AuxFields = append(sel.AuxFields, fl)
		}
	}
	return sel, nil
}

// SortField validates a sort stat against a source's primary and auxiliary
// fields.
func (r *Registry) SortField(src Source, name string) (Field, error) {
	if fl, ok := src.Field(name); ok {
		return fl, nil
	}
	return Field{}, types.Errorf("views.sort_field", types.ErrValidation,
		"unsupported value provided for 'sortStat' parameter: %s. Available sort stats for %s: %s",
		name, src.Group, strings.Join(src.FieldNames(), ", "))
}

// LeaderCategories returns the default leader categories of group.
func (r *Registry) LeaderCategories(group types.StatGroup) []string {
	return r.leaders[group]
}

// Groups lists the groups that have at least one source.
func (r *Registry) Groups() []types.StatGroup {
	var out []types.StatGroup
	for _, g := range types.StatGroups {
		for k := range r.sources {
			if k.Group == g {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// Keys lists every registered source key in a stable order.
func (r *Registry) Keys() []Key {
	out := make([]Key, 0, len(r.sources))
	for k := range r.sources {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (r *Registry) supported(group types.StatGroup) []string {
	var out []string
	for _, k := range r.Keys() {
		if k.Group == group && k.Split != types.SplitGame {
			out = append(out, fmt.Sprintf("%s/%s", k.Split, k.GameType))
		}
	}
	return out
}
