package domain

import (
	"time"
)

// TourStatus is the authoring lifecycle state of a tour.
type TourStatus string

const (
	TourDraft     TourStatus = "draft"
	TourPublished TourStatus = "published"
)

// Tour represents a multi-stop walking tour.
//
// Latitude and Longitude hold the tour's nominal starting point. They are
// stored as text in the source system (the authoring wizard writes whatever
// the geocoder returned), so consumers must parse them; see
// usecases.NearbyTours for the failure policy.
type Tour struct {
	ID              string         `json:"id"`
	Slug            string         `json:"slug"`
	AuthorID        string         `json:"author_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Latitude        string         `json:"latitude"`
	Longitude       string         `json:"longitude"`
	Status          TourStatus     `json:"status"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	CoverImageURL   string         `json:"cover_image_url,omitempty"`
	Route           *GeoLineString `json:"route,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	DistanceKm      *float64       `json:"distance_km,omitempty"` // computed field
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Stop is one waypoint in a tour: its own coordinate, media, and position
// in the traversal sequence. Order is 1-based and unique within a tour.
type Stop struct {
	ID          string    `json:"id"`
	TourID      string    `json:"tour_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    GeoPoint  `json:"location"`
	Order       int       `json:"order"`
	Media       MediaRef  `json:"media"`
	CreatedAt   time.Time `json:"created_at"`
}

// WalkEventType classifies walk-session telemetry events.
type WalkEventType string

const (
	WalkStarted     WalkEventType = "started"
	WalkStopReached WalkEventType = "stop_reached"
	WalkFinished    WalkEventType = "finished"
	WalkAbandoned   WalkEventType = "abandoned"
)

// WalkEvent is a telemetry record emitted by a walking-mode session.
type WalkEvent struct {
	Time      time.Time      `json:"time"`
	SessionID string         `json:"session_id"`
	TourID    string         `json:"tour_id"`
	Type      WalkEventType  `json:"type"`
	StopIndex int            `json:"stop_index"`
	Location  *GeoPoint      `json:"location,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
