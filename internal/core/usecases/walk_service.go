package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/ports"
	"github.com/camino-tours/camino/internal/pkg/metrics"
)

// WalkService creates walking-mode sessions from a tour's ordered stops,
// tracks the active set, and publishes session telemetry.
type WalkService struct {
	tours     ports.TourRepository
	stops     ports.StopRepository
	publisher ports.EventPublisher

	mu     sync.Mutex
	active map[string]*WalkSession
}

// NewWalkService creates a new WalkService.
func NewWalkService(tours ports.TourRepository, stops ports.StopRepository, publisher ports.EventPublisher) *WalkService {
	return &WalkService{
		tours:     tours,
		stops:     stops,
		publisher: publisher,
		active:    make(map[string]*WalkSession),
	}
}

// StartWalk loads the tour's stops, creates a session, and enters the first
// stop. The handler receives every state change; telemetry events are
// published as a side channel of the same transitions.
func (s *WalkService) StartWalk(ctx context.Context, tourID string, handler func(WalkSnapshot), opts ...WalkOption) (*WalkSession, error) {
	tour, err := s.tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("tour not found: %w", err)
	}

	stops, err := s.stops.ListByTour(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("load stops: %w", err)
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("tour %s has no stops", tour.ID)
	}

	lastIndex := -1
	wrapped := func(snap WalkSnapshot) {
		if snap.State == WalkPlaying && snap.StopIndex != lastIndex {
			lastIndex = snap.StopIndex
			s.publishEvent(&domain.WalkEvent{
				Time:      time.Now(),
				SessionID: snap.SessionID,
				TourID:    snap.TourID,
				Type:      domain.WalkStopReached,
				StopIndex: snap.StopIndex,
				Location:  snap.Position,
			})
		}
		if handler != nil {
			handler(snap)
		}
	}

	opts = append(opts, WithStateHandler(wrapped))
	session, err := NewWalkSession(tourID, stops, opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.active[session.ID()] = session
	s.mu.Unlock()
	metrics.ActiveWalkSessions.Inc()
	metrics.WalkSessionsStarted.Inc()

	s.publishEvent(&domain.WalkEvent{
		Time:      time.Now(),
		SessionID: session.ID(),
		TourID:    tourID,
		Type:      domain.WalkStarted,
	})

	session.Start()
	return session, nil
}

// EndWalk closes a session and records whether the user finished the tour
// or abandoned it. Safe to call more than once for the same session.
func (s *WalkService) EndWalk(ctx context.Context, session *WalkSession) {
	if session == nil {
		return
	}

	s.mu.Lock()
	_, known := s.active[session.ID()]
	delete(s.active, session.ID())
	s.mu.Unlock()
	if !known {
		return
	}
	metrics.ActiveWalkSessions.Dec()

	snap := session.Snapshot()
	session.Close()

	eventType := domain.WalkAbandoned
	if snap.State == WalkDone {
		eventType = domain.WalkFinished
	}
	s.publishEvent(&domain.WalkEvent{
		Time:      time.Now(),
		SessionID: snap.SessionID,
		TourID:    snap.TourID,
		Type:      eventType,
		StopIndex: snap.StopIndex,
		Location:  snap.Position,
	})
}

// ActiveCount returns the number of sessions currently open.
func (s *WalkService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *WalkService) publishEvent(event *domain.WalkEvent) {
	if s.publisher == nil {
		return
	}
	// Best-effort; telemetry loss must never affect the session.
	_ = s.publisher.PublishWalkEvent(context.Background(), event)
}
