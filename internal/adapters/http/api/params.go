package api

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/datablase/internal/domain/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report failures under the query parameter name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("query"), ","); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// check validates a request struct, turning the first failure into a
// validation error naming the parameter.
func check(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return types.Errorf(op, types.ErrValidation,
			"invalid value provided for '%s' parameter: %v", fe.Field(), fe.Value())
	}
	return types.WrapKind(op, types.ErrValidation, err)
}

// query reads typed parameters, keeping the first parse failure.
type query struct {
	values url.Values
	err    error
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *query) list(name string) []string {
	return types.SplitList(q.values.Get(name))
}

func (q *query) int(name string) int {
	raw := q.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(types.Errorf("api.query", types.ErrValidation,
			"invalid value provided for '%s' parameter: %s. Expected an integer", name, raw))
	}
	return n
}

func (q *query) bool(name string, def bool) bool {
	raw := q.str(name)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(types.Errorf("api.query", types.ErrValidation,
			"invalid value provided for '%s' parameter: %s. Expected true or false", name, raw))
	}
	return b
}

func (q *query) time(name string) types.TimeParam {
	p, err := types.ParseTimeParam(name, q.values.Get(name), q.values.Has(name))
	q.fail(err)
	return p
}

func (q *query) fail(err error) {
	if q.err == nil && err != nil {
		q.err = err
	}
}

type eventsRequest struct {
	GameID    string `query:"gameId" validate:"omitempty,max=64"`
	PlayerID  string `query:"playerId" validate:"omitempty,max=64"`
	PitcherID string `query:"pitcherId" validate:"omitempty,max=64"`
	BatterID  string `query:"batterId" validate:"omitempty,max=64"`
}

type idsRequest struct {
	IDs []string `query:"ids" validate:"max=1000,dive,max=64"`
}

type playersRequest struct {
	SortField string   `query:"sortField" validate:"omitempty,max=64"`
	Skip      int      `query:"skip" validate:"min=0"`
	Limit     int      `query:"limit" validate:"min=0"`
	Fields    []string `query:"fields" validate:"max=100,dive,max=64"`
}

type rosterRequest struct {
	TeamID   string `query:"teamId" validate:"required,max=64"`
	Position string `query:"position" validate:"omitempty,max=32"`
}

type statsRequest struct {
	PlayerIDs []string `query:"playerId" validate:"max=1000,dive,max=64"`
	TeamIDs   []string `query:"teamId" validate:"max=100,dive,max=64"`
	SortStat  string   `query:"sortStat" validate:"omitempty,max=64"`
	Limit     int      `query:"limit" validate:"min=0"`
	Fields    []string `query:"fields" validate:"max=100,dive,max=64"`
}

type leadersRequest struct {
	Categories []string `query:"leaderCategories" validate:"max=50,dive,max=64"`
	Limit      int      `query:"limit" validate:"min=0,max=100"`
}

type gamesRequest struct {
	TeamIDs []string `query:"teamId" validate:"max=100,dive,max=64"`
}

type pathRequest struct {
	ID string `query:"id" validate:"required,max=128"`
}
