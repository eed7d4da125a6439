package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/camino-tours/camino/internal/core/domain"
)

// TourRepo implements ports.TourRepository with pgx.
//
// latitude/longitude are text columns: the authoring wizard stores whatever
// the geocoder returned, verbatim. Parsing happens at the discovery layer.
type TourRepo struct {
	db *DB
}

// NewTourRepo creates a new TourRepo.
func NewTourRepo(db *DB) *TourRepo {
	return &TourRepo{db: db}
}

const tourColumns = `
	id, slug, author_id, title, COALESCE(description, ''),
	latitude, longitude, status, duration_minutes,
	COALESCE(cover_image_url, ''), route, COALESCE(metadata, '{}'),
	created_at, updated_at`

// Create inserts a new tour and fills in its generated ID and timestamps.
func (r *TourRepo) Create(ctx context.Context, t *domain.Tour) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO tours (slug, author_id, title, description, latitude, longitude,
		                   status, duration_minutes, cover_image_url, route, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, t.Slug, t.AuthorID, t.Title, t.Description, t.Latitude, t.Longitude,
		t.Status, t.DurationMinutes, t.CoverImageURL, t.Route, t.Metadata,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update persists changes to an existing tour.
func (r *TourRepo) Update(ctx context.Context, t *domain.Tour) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE tours
		SET slug = $2, title = $3, description = $4, latitude = $5, longitude = $6,
		    duration_minutes = $7, cover_image_url = $8, metadata = $9,
		    updated_at = now()
		WHERE id = $1
	`, t.ID, t.Slug, t.Title, t.Description, t.Latitude, t.Longitude,
		t.DurationMinutes, t.CoverImageURL, t.Metadata)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tour %s not found", t.ID)
	}
	return nil
}

// Delete removes a tour; stops cascade at the schema level.
func (r *TourRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tour %s not found", id)
	}
	return nil
}

// GetByID returns a tour by UUID.
func (r *TourRepo) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	return r.scanOne(r.db.Pool.QueryRow(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = $1`, id))
}

// GetBySlug returns a tour by its URL slug.
func (r *TourRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	return r.scanOne(r.db.Pool.QueryRow(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE slug = $1`, slug))
}

// ListByAuthor returns an author's tours, drafts included, newest first.
func (r *TourRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Tour, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID)
	if err != nil {
		return nil, err
	}
	return r.scanMany(rows)
}

// ListPublished returns the published candidate set for proximity search.
func (r *TourRepo) ListPublished(ctx context.Context) ([]domain.Tour, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE status = 'published' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return r.scanMany(rows)
}

// SetStatus flips a tour's lifecycle state.
func (r *TourRepo) SetStatus(ctx context.Context, id string, status domain.TourStatus) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE tours SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tour %s not found", id)
	}
	return nil
}

// SetRoute stores the computed walking polyline.
func (r *TourRepo) SetRoute(ctx context.Context, id string, route *domain.GeoLineString) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE tours SET route = $2, updated_at = now() WHERE id = $1`, id, route)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tour %s not found", id)
	}
	return nil
}

func (r *TourRepo) scanOne(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	err := row.Scan(
		&t.ID, &t.Slug, &t.AuthorID, &t.Title, &t.Description,
		&t.Latitude, &t.Longitude, &t.Status, &t.DurationMinutes,
		&t.CoverImageURL, &t.Route, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TourRepo) scanMany(rows pgx.Rows) ([]domain.Tour, error) {
	defer rows.Close()
	var tours []domain.Tour
	for rows.Next() {
		t, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}
