package ports

import (
	"context"

	"github.com/camino-tours/camino/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishWalkEvent(ctx context.Context, event *domain.WalkEvent) error
	PublishTourPublished(ctx context.Context, tourID string) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeWalkEvents(ctx context.Context, handler func(ctx context.Context, event *domain.WalkEvent) error) error
	SubscribeTourPublished(ctx context.Context, handler func(ctx context.Context, tourID string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// MediaController is the playback surface a walking session drives. The
// session only issues commands; the single "ended" notification travels back
// through WalkSession.MediaEnded.
type MediaController interface {
	Load(media domain.MediaRef) error
	Play()
	Pause()
	// Stop halts playback and releases the asset. Must be safe to call when
	// nothing is loaded.
	Stop()
}

// GeocodingService resolves an address to a coordinate (opaque third party).
type GeocodingService interface {
	Geocode(ctx context.Context, address string) (domain.GeoPoint, error)
}

// DirectionsService computes a walking polyline through an ordered
// coordinate list (opaque third party).
type DirectionsService interface {
	WalkingRoute(ctx context.Context, waypoints []domain.GeoPoint) (*domain.GeoLineString, error)
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, userID, title, body string) error
}
