package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/camino-tours/camino/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// The pre-slug discovery endpoint is kept for old mobile builds.
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/discover",
			SunsetDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/tours/nearby",
		},
	}))

	// Health & readiness, no timeout: fast internal checks
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1, 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/tours", timeout.NewWithContext(ListToursHandler(deps), 15*time.Second))
	v1.Get("/tours/nearby", timeout.NewWithContext(NearbyToursHandler(deps), 15*time.Second))
	v1.Get("/discover", timeout.NewWithContext(NearbyToursHandler(deps), 15*time.Second))
	v1.Get("/tours/slug/:slug", timeout.NewWithContext(GetTourBySlugHandler(deps), 15*time.Second))
	v1.Get("/tours/:id", timeout.NewWithContext(GetTourHandler(deps), 15*time.Second))
	v1.Post("/tours", timeout.NewWithContext(CreateTourHandler(deps), 15*time.Second))
	v1.Put("/tours/:id", timeout.NewWithContext(UpdateTourHandler(deps), 15*time.Second))
	v1.Delete("/tours/:id", timeout.NewWithContext(DeleteTourHandler(deps), 15*time.Second))
	v1.Get("/tours/:id/stops", timeout.NewWithContext(TourStopsHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/stops", timeout.NewWithContext(AddStopHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/publish", timeout.NewWithContext(PublishTourHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/unpublish", timeout.NewWithContext(UnpublishTourHandler(deps), 15*time.Second))
	v1.Get("/tours/:id/stats", timeout.NewWithContext(TourStatsHandler(deps), 15*time.Second))
	v1.Put("/stops/:id", timeout.NewWithContext(UpdateStopHandler(deps), 15*time.Second))
	v1.Delete("/stops/:id", timeout.NewWithContext(DeleteStopHandler(deps), 15*time.Second))
	v1.Get("/authors/:id/tours", timeout.NewWithContext(ListAuthorToursHandler(deps), 15*time.Second))
	v1.Get("/stats", timeout.NewWithContext(StatsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/walk", websocket.New(WalkSocketHandler(deps)))
	app.Get("/ws/feed", websocket.New(FeedSocketHandler(deps.NATS)))
}
