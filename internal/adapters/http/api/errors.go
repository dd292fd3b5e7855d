package api

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrUnavailable = errors.New("store unavailable")
)

// Error codes of the {code, message} body.
const (
	codeValidation  = "validation_error"
	codeUnsupported = "unsupported_combination"
	codeInternal    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
		if types.IsClientError(err) {
			msg = types.Message(err)
		}
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// emptyList is what list endpoints answer for a missing season or entity.
var emptyList = []struct{}{}

// respond writes v, or maps err: client errors become 400, not found
// becomes notFound with 200, anything else 500.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error, notFound any) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, v)
	case types.IsClientError(err):
		code := codeValidation
		if errors.Is(err, types.ErrUnsupportedCombination) {
			code = codeUnsupported
		}
		writeError(w, http.StatusBadRequest, code, err)
	case types.IsNotFound(err):
		writeJSON(w, http.StatusOK, notFound)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "internal error"})
	}
}

// one responds with a single entity, null when it does not exist.
func (s *Server) one(w http.ResponseWriter, r *http.Request, v any, err error) {
	s.respond(w, r, v, err, nil)
}

// list responds with a collection, [] when its scope does not exist.
func (s *Server) list(w http.ResponseWriter, r *http.Request, v any, err error) {
	if rv := reflect.ValueOf(v); err == nil && rv.Kind() == reflect.Slice && rv.IsNil() {
		v = emptyList
	}
	s.respond(w, r, v, err, emptyList)
}
