package postgres

import (
	"context"
	"fmt"

	"github.com/camino-tours/camino/internal/core/domain"
)

// StopRepo implements ports.StopRepository with pgx. Stop locations are
// PostGIS geography points.
type StopRepo struct {
	db *DB
}

// NewStopRepo creates a new StopRepo.
func NewStopRepo(db *DB) *StopRepo {
	return &StopRepo{db: db}
}

// Create inserts a stop and fills in its generated ID.
func (r *StopRepo) Create(ctx context.Context, s *domain.Stop) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO tour_stops (tour_id, title, description, location, seq, media_kind, media_url)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8)
		RETURNING id, created_at
	`, s.TourID, s.Title, s.Description, s.Location.Lon, s.Location.Lat,
		s.Order, s.Media.Kind, s.Media.URL,
	).Scan(&s.ID, &s.CreatedAt)
}

// Update persists changes to a stop.
func (r *StopRepo) Update(ctx context.Context, s *domain.Stop) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE tour_stops
		SET title = $2, description = $3,
		    location = ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography,
		    seq = $6, media_kind = $7, media_url = $8
		WHERE id = $1
	`, s.ID, s.Title, s.Description, s.Location.Lon, s.Location.Lat,
		s.Order, s.Media.Kind, s.Media.URL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stop %s not found", s.ID)
	}
	return nil
}

// Delete removes a stop.
func (r *StopRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tour_stops WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stop %s not found", id)
	}
	return nil
}

// GetByID returns a stop by UUID.
func (r *StopRepo) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	var s domain.Stop
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, tour_id, title, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       seq, COALESCE(media_kind, ''), COALESCE(media_url, ''), created_at
		FROM tour_stops WHERE id = $1
	`, id).Scan(
		&s.ID, &s.TourID, &s.Title, &s.Description,
		&s.Location.Lat, &s.Location.Lon,
		&s.Order, &s.Media.Kind, &s.Media.URL, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByTour returns a tour's stops ordered by their sequence position.
func (r *StopRepo) ListByTour(ctx context.Context, tourID string) ([]domain.Stop, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, tour_id, title, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       seq, COALESCE(media_kind, ''), COALESCE(media_url, ''), created_at
		FROM tour_stops
		WHERE tour_id = $1
		ORDER BY seq
	`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.Stop
	for rows.Next() {
		var s domain.Stop
		if err := rows.Scan(
			&s.ID, &s.TourID, &s.Title, &s.Description,
			&s.Location.Lat, &s.Location.Lon,
			&s.Order, &s.Media.Kind, &s.Media.URL, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}
