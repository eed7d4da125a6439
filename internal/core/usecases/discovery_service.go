package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/ports"
	"github.com/camino-tours/camino/internal/pkg/geospatial"
)

// NearbyTours filters candidates to those whose starting point lies within
// radiusKm of center. The boundary is inclusive and input order is preserved
// (callers rely on stable ordering). A non-positive radius yields an empty
// result: this is a filter, not a validator.
//
// Tour coordinates are stored as text; a candidate whose latitude or
// longitude fails to parse is excluded and logged, so one corrupt record
// never breaks discovery for the rest.
func NearbyTours(candidates []domain.Tour, center domain.GeoPoint, radiusKm float64) []domain.Tour {
	if radiusKm <= 0 {
		return nil
	}

	var result []domain.Tour
	for _, tour := range candidates {
		lat, err := strconv.ParseFloat(tour.Latitude, 64)
		if err != nil {
			slog.Warn("tour has unparseable latitude, excluded from discovery",
				"tour_id", tour.ID, "latitude", tour.Latitude)
			continue
		}
		lon, err := strconv.ParseFloat(tour.Longitude, 64)
		if err != nil {
			slog.Warn("tour has unparseable longitude, excluded from discovery",
				"tour_id", tour.ID, "longitude", tour.Longitude)
			continue
		}

		distKm := geospatial.Haversine(center.Lat, center.Lon, lat, lon) / 1000
		if distKm <= radiusKm {
			d := distKm
			tour.DistanceKm = &d
			result = append(result, tour)
		}
	}
	return result
}

// DiscoveryService answers "what tours start near me" queries.
type DiscoveryService struct {
	tours ports.TourRepository
	cache ports.CacheService
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(tours ports.TourRepository, cache ports.CacheService) *DiscoveryService {
	return &DiscoveryService{tours: tours, cache: cache}
}

// Nearby returns published tours within radiusKm of the given point.
func (s *DiscoveryService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Tour, error) {
	if radiusKm > 50 {
		radiusKm = 50
	}

	// Try cache
	cacheKey := fmt.Sprintf("tours:nearby:%.4f:%.4f:%.1f", lat, lon, radiusKm)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var tours []domain.Tour
			if err := json.Unmarshal(data, &tours); err == nil {
				return tours, nil
			}
		}
	}

	candidates, err := s.tours.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published tours: %w", err)
	}

	tours := NearbyTours(candidates, domain.GeoPoint{Lat: lat, Lon: lon}, radiusKm)

	// Cache for 5 minutes (tour starting points don't change frequently)
	if s.cache != nil {
		if data, err := json.Marshal(tours); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return tours, nil
}
