// Package services – EventService
//
// This file implements the read-only event catalogue. Events are seeded
// out of band; the API lists them by start time and derives spots_left.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-match-backend/internal/domain"
	"github.com/tbourn/go-match-backend/internal/repo"
)

// EventView is an event with its derived capacity.
type EventView struct {
	domain.Event
	// SpotsLeft is nil for events without a participant cap.
	SpotsLeft *int `json:"spots_left"`
}

// EventService lists and fetches events.
type EventService struct {
	DB *gorm.DB
}

// ListPage returns events ordered by starts_at (then id) and the total count.
func (s *EventService) ListPage(ctx context.Context, page, pageSize int) ([]EventView, int64, error) {
	tr := otel.Tracer("services/EventService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountEvents(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []EventView{}, 0, nil
	}
	items, err := repo.ListEventsPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EventView, 0, len(items))
	for _, e := range items {
		out = append(out, viewEvent(e))
	}
	return out, total, nil
}

// Get returns one event or ErrEventNotFound.
func (s *EventService) Get(ctx context.Context, id string) (*EventView, error) {
	tr := otel.Tracer("services/EventService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	e, err := repo.GetEvent(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	v := viewEvent(*e)
	return &v, nil
}

// viewEvent derives spots_left. Attendance is not tracked, so an event with
// a cap reports its full capacity.
func viewEvent(e domain.Event) EventView {
	v := EventView{Event: e}
	if e.MaxParticipants > 0 {
		n := e.MaxParticipants
		v.SpotsLeft = &n
	}
	return v
}
