package api

import (
	"net/http"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/aggregate"
)

// handleEvents handles GET /v1/events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.events"
	q := newQuery(r)
	req := eventsRequest{
		GameID:    q.str("gameId"),
		PlayerID:  q.str("playerId"),
		PitcherID: q.str("pitcherId"),
		BatterID:  q.str("batterId"),
	}
	if err := check(op, req); err != nil {
		s.list(w, r, nil, err)
		return
	}
	res, err := s.deps.Events(r.Context(), repository.EventQuery(req))
	s.one(w, r, res, err)
}

// idParam is the query parameter holding the ids a subject is grouped by.
func idParam(sub aggregate.Subject) string {
	if sub == aggregate.SubjectPitcher {
		return "pitcherId"
	}
	return "batterId"
}

// handleCount handles GET /v1/{count}.
func (s *Server) handleCount(c aggregate.Count) http.HandlerFunc {
	spec, _ := aggregate.Spec(c)
	param := idParam(spec.Subject)
	return func(w http.ResponseWriter, r *http.Request) {
		req := idsRequest{IDs: newQuery(r).list(param)}
		if err := check("api.count", req); err != nil {
			s.one(w, r, nil, err)
			return
		}
		res, err := s.deps.Counts(r.Context(), c, req.IDs)
		s.one(w, r, res, err)
	}
}

// handleDerived handles GET /v1/{formula}.
func (s *Server) handleDerived(d aggregate.Derived) http.HandlerFunc {
	def, _ := aggregate.DerivationOf(d)
	param := idParam(def.Subject)
	return func(w http.ResponseWriter, r *http.Request) {
		req := idsRequest{IDs: newQuery(r).list(param)}
		if err := check("api.derived", req); err != nil {
			s.one(w, r, nil, err)
			return
		}
		res, err := s.deps.Derived(r.Context(), d, req.IDs)
		s.one(w, r, res, err)
	}
}
