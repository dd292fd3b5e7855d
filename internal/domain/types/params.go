package types

import (
	"strconv"
	"strings"
)

// CurrentLiteral is the sentinel accepted in place of a season or day number.
const CurrentLiteral = "current"

type paramKind uint8

const (
	paramUnset paramKind = iota
	paramCurrent
	paramValue
)

// TimeParam is either unset, the literal "current", or a concrete number.
// It is resolved to an integer once at the request boundary.
type TimeParam struct {
	kind  paramKind
	value int
}

// SeasonParam is a season number or "current".
type SeasonParam = TimeParam

// DayParam is a day number or "current".
type DayParam = TimeParam

// Current returns a parameter holding the "current" sentinel.
func Current() TimeParam { return TimeParam{kind: paramCurrent} }

// Number returns a parameter holding n.
func Number(n int) TimeParam { return TimeParam{kind: paramValue, value: n} }

// ParseTimeParam parses a query value. present reports whether the parameter
// appeared in the request at all; an empty value that is present means
// "current".
func ParseTimeParam(name, raw string, present bool) (TimeParam, error) {
	if !present {
		return TimeParam{}, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, CurrentLiteral) {
		return Current(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return TimeParam{}, Errorf("types.parse_time_param", ErrValidation,
			"invalid value provided for '%s' parameter: %s. Expected a non-negative integer or 'current'", name, raw)
	}
	return Number(n), nil
}

// IsSet reports whether a value or the sentinel was supplied.
func (p TimeParam) IsSet() bool { return p.kind != paramUnset }

// IsCurrent reports whether the sentinel was supplied.
func (p TimeParam) IsCurrent() bool { return p.kind == paramCurrent }

// Value returns the concrete number when one was supplied.
func (p TimeParam) Value() (int, bool) { return p.value, p.kind == paramValue }

// OrCurrent returns p, or the sentinel when p is unset.
func (p TimeParam) OrCurrent() TimeParam {
	if p.kind == paramUnset {
		return Current()
	}
	return p
}

func (p TimeParam) String() string {
	switch p.kind {
	case paramCurrent:
		return CurrentLiteral
	case paramValue:
		return strconv.Itoa(p.value)
	default:
		return ""
	}
}
