package service

import (
	"context"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
)

// ListResult is the counted list envelope of the v1 endpoints.
type ListResult[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func listOf[T any](items []T) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Count: len(items), Results: items}
}

// Events lists raw game event rows matching q, ordered by game then event
// index. At least one filter is required.
func (s *Service) Events(ctx context.Context, q repository.EventQuery) (ListResult[model.Record], error) {
	const op = "service.events"
	if err := s.ready(op); err != nil {
		return ListResult[model.Record]{}, err
	}
	if q.Empty() {
		return ListResult[model.Record]{}, types.Errorf(op, types.ErrValidation,
			"one of 'playerId', 'gameId', 'pitcherId' or 'batterId' is required")
	}
	events, err := s.store.GameEvents(ctx, q)
	if err != nil {
		return ListResult[model.Record]{}, types.Wrap(op, err)
	}
	out := make([]model.Record, len(events))
	for i, e := range events {
		out[i] = e.Fields
	}
	return listOf(out), nil
}

// Counts evaluates a named count, optionally restricted to ids.
func (s *Service) Counts(ctx context.Context, c aggregate.Count, ids []string) (ListResult[aggregate.CountRow], error) {
	const op = "service.counts"
	if err := s.ready(op); err != nil {
		return ListResult[aggregate.CountRow]{}, err
	}
	set, err := s.agg.Count(ctx, c, types.SortedUnique(ids))
	if err != nil {
		return ListResult[aggregate.CountRow]{}, types.Wrap(op, err)
	}
	return listOf(set.Rows()), nil
}

// Derived evaluates a formula over its counts, optionally restricted to ids.
func (s *Service) Derived(ctx context.Context, d aggregate.Derived, ids []string) (ListResult[aggregate.Result], error) {
	const op = "service.derived"
	if err := s.ready(op); err != nil {
		return ListResult[aggregate.Result]{}, err
	}
	res, err := s.agg.Derive(ctx, d, types.SortedUnique(ids))
	if err != nil {
		return ListResult[aggregate.Result]{}, types.Wrap(op, err)
	}
	return listOf(res), nil
}
