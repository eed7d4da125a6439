package http

import (
	"github.com/nats-io/nats.go"

	"github.com/camino-tours/camino/internal/adapters/postgres"
	"github.com/camino-tours/camino/internal/adapters/valkey"
	"github.com/camino-tours/camino/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Tours     *usecases.TourService
	Discovery *usecases.DiscoveryService
	Walks     *usecases.WalkService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
