package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/ports"
)

// TourService handles tour and stop authoring.
type TourService struct {
	tours     ports.TourRepository
	stops     ports.StopRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewTourService creates a new TourService.
func NewTourService(tours ports.TourRepository, stops ports.StopRepository, cache ports.CacheService, publisher ports.EventPublisher) *TourService {
	return &TourService{tours: tours, stops: stops, cache: cache, publisher: publisher}
}

// Create validates and persists a new draft tour.
func (s *TourService) Create(ctx context.Context, tour *domain.Tour) error {
	if strings.TrimSpace(tour.Title) == "" {
		return fmt.Errorf("tour title must not be empty")
	}
	if tour.AuthorID == "" {
		return fmt.Errorf("tour author is required")
	}
	if tour.Slug == "" {
		tour.Slug = Slugify(tour.Title)
	}
	tour.Status = domain.TourDraft

	if err := s.tours.Create(ctx, tour); err != nil {
		return fmt.Errorf("create tour: %w", err)
	}
	return nil
}

// Update persists changes to an existing tour and invalidates its cache entry.
func (s *TourService) Update(ctx context.Context, tour *domain.Tour) error {
	if tour.ID == "" {
		return fmt.Errorf("tour id is required")
	}
	if strings.TrimSpace(tour.Title) == "" {
		return fmt.Errorf("tour title must not be empty")
	}
	if err := s.tours.Update(ctx, tour); err != nil {
		return fmt.Errorf("update tour: %w", err)
	}
	s.invalidate(ctx, tour.ID)
	return nil
}

// Delete removes a tour and its cache entry.
func (s *TourService) Delete(ctx context.Context, id string) error {
	if err := s.tours.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// GetByID returns a single tour.
func (s *TourService) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	cacheKey := "tours:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var tour domain.Tour
			if err := json.Unmarshal(data, &tour); err == nil {
				return &tour, nil
			}
		}
	}

	tour, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(tour); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min for single tour
		}
	}

	return tour, nil
}

// GetBySlug returns a single tour by its URL slug.
func (s *TourService) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	return s.tours.GetBySlug(ctx, slug)
}

// ListByAuthor returns an author's tours, drafts included.
func (s *TourService) ListByAuthor(ctx context.Context, authorID string) ([]domain.Tour, error) {
	if authorID == "" {
		return nil, fmt.Errorf("author id is required")
	}
	return s.tours.ListByAuthor(ctx, authorID)
}

// ListPublished returns every published tour.
func (s *TourService) ListPublished(ctx context.Context) ([]domain.Tour, error) {
	return s.tours.ListPublished(ctx)
}

// Stops returns a tour's stops ordered by sequence position.
func (s *TourService) Stops(ctx context.Context, tourID string) ([]domain.Stop, error) {
	return s.stops.ListByTour(ctx, tourID)
}

// AddStop validates and appends a stop to a tour.
func (s *TourService) AddStop(ctx context.Context, stop *domain.Stop) error {
	if err := validateStop(stop); err != nil {
		return err
	}
	if err := s.stops.Create(ctx, stop); err != nil {
		return fmt.Errorf("create stop: %w", err)
	}
	return nil
}

// UpdateStop persists changes to a stop.
func (s *TourService) UpdateStop(ctx context.Context, stop *domain.Stop) error {
	if stop.ID == "" {
		return fmt.Errorf("stop id is required")
	}
	if err := validateStop(stop); err != nil {
		return err
	}
	if err := s.stops.Update(ctx, stop); err != nil {
		return fmt.Errorf("update stop: %w", err)
	}
	return nil
}

// DeleteStop removes a stop.
func (s *TourService) DeleteStop(ctx context.Context, id string) error {
	return s.stops.Delete(ctx, id)
}

// Publish flips a tour to published. A tour needs at least one stop before
// it can appear in discovery.
func (s *TourService) Publish(ctx context.Context, id string) error {
	stops, err := s.stops.ListByTour(ctx, id)
	if err != nil {
		return fmt.Errorf("load stops: %w", err)
	}
	if len(stops) == 0 {
		return fmt.Errorf("a tour needs at least one stop before publishing")
	}

	if err := s.tours.SetStatus(ctx, id, domain.TourPublished); err != nil {
		return fmt.Errorf("publish tour: %w", err)
	}
	s.invalidate(ctx, id)

	if s.publisher != nil {
		_ = s.publisher.PublishTourPublished(ctx, id)
	}
	return nil
}

// Unpublish reverts a tour to draft, removing it from discovery.
func (s *TourService) Unpublish(ctx context.Context, id string) error {
	if err := s.tours.SetStatus(ctx, id, domain.TourDraft); err != nil {
		return fmt.Errorf("unpublish tour: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *TourService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "tours:id:"+id)
	}
}

func validateStop(stop *domain.Stop) error {
	if stop.TourID == "" {
		return fmt.Errorf("stop tour id is required")
	}
	if strings.TrimSpace(stop.Title) == "" {
		return fmt.Errorf("stop title must not be empty")
	}
	if stop.Order < 1 {
		return fmt.Errorf("stop order must be 1-based, got %d", stop.Order)
	}
	switch stop.Media.Kind {
	case domain.MediaNone, domain.MediaAudio, domain.MediaVideo:
	default:
		return fmt.Errorf("unknown media kind: %s", stop.Media.Kind)
	}
	if stop.Media.Kind != domain.MediaNone && stop.Media.URL == "" {
		return fmt.Errorf("media url is required for kind %s", stop.Media.Kind)
	}
	return nil
}

// Slugify turns a title into a URL slug: lowercase, hyphens, ASCII-ish.
func Slugify(title string) string {
	var b strings.Builder
	prevHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
