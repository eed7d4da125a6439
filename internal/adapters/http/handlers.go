package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/pkg/metrics"
)

// PlatformStats holds row counts across the tour tables.
type PlatformStats struct {
	Tours      int    `json:"tours"`
	Published  int    `json:"published"`
	Stops      int    `json:"stops"`
	WalkEvents int    `json:"walk_events"`
	LastUpdate string `json:"last_update,omitempty"`
}

// StatsHandler returns platform-wide row counts.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats PlatformStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM tours),
				(SELECT count(*) FROM tours WHERE status = 'published'),
				(SELECT count(*) FROM tour_stops),
				(SELECT count(*) FROM walk_events),
				COALESCE((SELECT max(updated_at)::text FROM tours), '')
		`)
		if err := row.Scan(&stats.Tours, &stats.Published, &stats.Stops,
			&stats.WalkEvents, &stats.LastUpdate); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// ListToursHandler returns every published tour, paginated.
func ListToursHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tours, err := deps.Tours.ListPublished(c.Context())
		if err != nil {
			return errInternal(c, err.Error())
		}

		page, pg := paginate(c, tours, 50, 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NearbyToursHandler returns published tours whose starting point lies within
// radius_km of the given coordinate.
func NearbyToursHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radiusKm := c.QueryFloat("radius_km", 5)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat/lon out of range")
		}
		if radiusKm <= 0 || radiusKm > 50 {
			return errBadRequest(c, "radius_km must be between 0 and 50")
		}

		metrics.NearbySearches.Inc()

		tours, err := deps.Discovery.Nearby(c.Context(), lat, lon, radiusKm)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"tours": tours,
			"count": len(tours),
		})
	}
}

// GetTourHandler returns a single tour by ID.
func GetTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}
		tour, err := deps.Tours.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.JSON(tour)
	}
}

// GetTourBySlugHandler returns a single tour by its URL slug.
func GetTourBySlugHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "tour slug is required")
		}
		tour, err := deps.Tours.GetBySlug(c.Context(), slug)
		if err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.JSON(tour)
	}
}

// CreateTourHandler creates a draft tour.
func CreateTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tour domain.Tour
		if err := c.BodyParser(&tour); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Tours.Create(c.Context(), &tour); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(tour)
	}
}

// UpdateTourHandler updates an existing tour's editable fields.
func UpdateTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}

		var tour domain.Tour
		if err := c.BodyParser(&tour); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		tour.ID = id

		if err := deps.Tours.Update(c.Context(), &tour); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(tour)
	}
}

// DeleteTourHandler removes a tour and its stops.
func DeleteTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}
		if err := deps.Tours.Delete(c.Context(), id); err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.SendStatus(204)
	}
}

// ListAuthorToursHandler returns an author's tours, drafts included.
func ListAuthorToursHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorID := c.Params("id")
		if authorID == "" {
			return errBadRequest(c, "author id is required")
		}
		tours, err := deps.Tours.ListByAuthor(c.Context(), authorID)
		if err != nil {
			return errInternal(c, err.Error())
		}

		page, pg := paginate(c, tours, 50, 200)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// TourStopsHandler returns a tour's stops in walking order.
func TourStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}
		stops, err := deps.Tours.Stops(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(stops)
	}
}

// AddStopHandler appends a stop to a tour.
func AddStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tourID := c.Params("id")
		if tourID == "" {
			return errBadRequest(c, "tour id is required")
		}

		var stop domain.Stop
		if err := c.BodyParser(&stop); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		stop.TourID = tourID

		if err := deps.Tours.AddStop(c.Context(), &stop); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.Status(201).JSON(stop)
	}
}

// UpdateStopHandler updates a stop.
func UpdateStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "stop id is required")
		}

		var stop domain.Stop
		if err := c.BodyParser(&stop); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		stop.ID = id

		if err := deps.Tours.UpdateStop(c.Context(), &stop); err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(stop)
	}
}

// DeleteStopHandler removes a stop.
func DeleteStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "stop id is required")
		}
		if err := deps.Tours.DeleteStop(c.Context(), id); err != nil {
			return errNotFound(c, "stop not found")
		}
		return c.SendStatus(204)
	}
}

// PublishTourHandler flips a tour to published.
func PublishTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}
		if err := deps.Tours.Publish(c.Context(), id); err != nil {
			return errConflict(c, err.Error())
		}
		metrics.ToursPublished.Inc()
		return c.JSON(fiber.Map{"status": "published"})
	}
}

// UnpublishTourHandler reverts a tour to draft.
func UnpublishTourHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}
		if err := deps.Tours.Unpublish(c.Context(), id); err != nil {
			return errNotFound(c, "tour not found")
		}
		return c.JSON(fiber.Map{"status": "draft"})
	}
}

// TourStatsHandler returns a single tour's walk telemetry counts.
func TourStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "tour id is required")
		}

		tour, err := deps.Tours.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "tour not found")
		}

		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		since := time.Now().AddDate(0, 0, -30)
		var stats struct {
			Started   int `json:"walks_started"`
			Finished  int `json:"walks_finished"`
			Abandoned int `json:"walks_abandoned"`
		}

		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				count(*) FILTER (WHERE event_type = 'started'),
				count(*) FILTER (WHERE event_type = 'finished'),
				count(*) FILTER (WHERE event_type = 'abandoned')
			FROM walk_events
			WHERE tour_id = $1 AND time >= $2
		`, tour.ID, since)
		if err := row.Scan(&stats.Started, &stats.Finished, &stats.Abandoned); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(fiber.Map{
			"tour":         tour,
			"last_30_days": stats,
			"active_walks": deps.Walks.ActiveCount(),
		})
	}
}
