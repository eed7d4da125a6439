package workflows

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/ports"
)

// PublishActivities holds the activity implementations for the publish workflow.
type PublishActivities struct {
	Tours      ports.TourRepository
	Stops      ports.StopRepository
	Geocoder   ports.GeocodingService
	Directions ports.DirectionsService
	Notifier   ports.NotificationService
}

// EnsureStartCoordinate verifies the tour's stored latitude/longitude parse,
// and geocodes the tour title as a fallback when they don't. The authoring
// wizard stores coordinates as text, so bad values are a real possibility.
func (a *PublishActivities) EnsureStartCoordinate(ctx context.Context, tourID string) error {
	tour, err := a.Tours.GetByID(ctx, tourID)
	if err != nil {
		return fmt.Errorf("load tour %s: %w", tourID, err)
	}

	_, latErr := strconv.ParseFloat(tour.Latitude, 64)
	_, lonErr := strconv.ParseFloat(tour.Longitude, 64)
	if latErr == nil && lonErr == nil {
		return nil
	}

	if a.Geocoder == nil {
		return fmt.Errorf("tour %s has unparseable coordinates and no geocoder is configured", tourID)
	}

	point, err := a.Geocoder.Geocode(ctx, tour.Title)
	if err != nil {
		return fmt.Errorf("geocode %q: %w", tour.Title, err)
	}

	tour.Latitude = strconv.FormatFloat(point.Lat, 'f', -1, 64)
	tour.Longitude = strconv.FormatFloat(point.Lon, 'f', -1, 64)
	if err := a.Tours.Update(ctx, tour); err != nil {
		return fmt.Errorf("store geocoded start: %w", err)
	}
	return nil
}

// ComputeWalkingRoute builds the walking polyline through the tour's stops
// and stores it on the tour. With no directions provider the stop sequence
// itself becomes the polyline.
func (a *PublishActivities) ComputeWalkingRoute(ctx context.Context, tourID string) error {
	stops, err := a.Stops.ListByTour(ctx, tourID)
	if err != nil {
		return fmt.Errorf("load stops: %w", err)
	}
	if len(stops) == 0 {
		return fmt.Errorf("tour %s has no stops to route", tourID)
	}

	waypoints := make([]domain.GeoPoint, len(stops))
	for i, s := range stops {
		waypoints[i] = s.Location
	}

	var route *domain.GeoLineString
	if a.Directions != nil {
		route, err = a.Directions.WalkingRoute(ctx, waypoints)
		if err != nil {
			return fmt.Errorf("walking route: %w", err)
		}
	} else {
		route = &domain.GeoLineString{Coordinates: waypoints}
	}

	if err := a.Tours.SetRoute(ctx, tourID, route); err != nil {
		return fmt.Errorf("store route: %w", err)
	}
	return nil
}

// NotifyAuthor sends the author a push that their tour went live.
func (a *PublishActivities) NotifyAuthor(ctx context.Context, authorID, tourID string) error {
	if a.Notifier == nil {
		log.Printf("PUSH (no notifier) → author=%s tour=%s is live", authorID, tourID)
		return nil
	}
	title := "Your tour is live!"
	body := fmt.Sprintf("Tour %s is now published and visible in discovery.", tourID)
	return a.Notifier.SendPush(ctx, authorID, title, body)
}

// RevertToDraft pulls the tour back out of discovery (saga compensation).
func (a *PublishActivities) RevertToDraft(ctx context.Context, tourID string) error {
	if err := a.Tours.SetStatus(ctx, tourID, domain.TourDraft); err != nil {
		return fmt.Errorf("revert tour %s: %w", tourID, err)
	}
	log.Printf("Tour %s reverted to draft (saga compensation)", tourID)
	return nil
}
