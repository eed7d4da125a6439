package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/camino-tours/camino/internal/core/domain"
)

// WalkEventRepo implements ports.WalkEventRepository with pgx. Events are
// append-only telemetry; location is optional.
type WalkEventRepo struct {
	db *DB
}

// NewWalkEventRepo creates a new WalkEventRepo.
func NewWalkEventRepo(db *DB) *WalkEventRepo {
	return &WalkEventRepo{db: db}
}

const insertWalkEvent = `
	INSERT INTO walk_events (time, session_id, tour_id, event_type, stop_index, location, metadata)
	VALUES ($1, $2, $3, $4, $5,
	        CASE WHEN $6::float8 IS NULL THEN NULL
	             ELSE ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography END,
	        $8)`

// Insert stores a single walk event.
func (r *WalkEventRepo) Insert(ctx context.Context, e *domain.WalkEvent) error {
	lon, lat := eventCoords(e)
	_, err := r.db.Pool.Exec(ctx, insertWalkEvent,
		e.Time, e.SessionID, e.TourID, e.Type, e.StopIndex, lon, lat, e.Metadata)
	return err
}

// InsertBatch stores many walk events using pgx.Batch.
func (r *WalkEventRepo) InsertBatch(ctx context.Context, events []domain.WalkEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range events {
		e := &events[i]
		lon, lat := eventCoords(e)
		batch.Queue(insertWalkEvent,
			e.Time, e.SessionID, e.TourID, e.Type, e.StopIndex, lon, lat, e.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// CountByTour returns how many events a tour accumulated since a point in
// time. Used by the stats endpoint.
func (r *WalkEventRepo) CountByTour(ctx context.Context, tourID string, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM walk_events WHERE tour_id = $1 AND time >= $2
	`, tourID, since).Scan(&count)
	return count, err
}

func eventCoords(e *domain.WalkEvent) (lon, lat *float64) {
	if e.Location == nil {
		return nil, nil
	}
	return &e.Location.Lon, &e.Location.Lat
}
