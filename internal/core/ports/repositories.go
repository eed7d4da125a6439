package ports

import (
	"context"
	"time"

	"github.com/camino-tours/camino/internal/core/domain"
)

// TourRepository persists tours.
type TourRepository interface {
	Create(ctx context.Context, tour *domain.Tour) error
	Update(ctx context.Context, tour *domain.Tour) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Tour, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tour, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Tour, error)
	// ListPublished returns the published candidate set for proximity search.
	ListPublished(ctx context.Context) ([]domain.Tour, error)
	SetStatus(ctx context.Context, id string, status domain.TourStatus) error
	SetRoute(ctx context.Context, id string, route *domain.GeoLineString) error
}

// StopRepository persists tour stops.
type StopRepository interface {
	Create(ctx context.Context, stop *domain.Stop) error
	Update(ctx context.Context, stop *domain.Stop) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Stop, error)
	// ListByTour returns a tour's stops ordered by their sequence position.
	ListByTour(ctx context.Context, tourID string) ([]domain.Stop, error)
}

// WalkEventRepository persists walking-mode telemetry.
type WalkEventRepository interface {
	Insert(ctx context.Context, event *domain.WalkEvent) error
	InsertBatch(ctx context.Context, events []domain.WalkEvent) error
	CountByTour(ctx context.Context, tourID string, since time.Time) (int, error)
}
