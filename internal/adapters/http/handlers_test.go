package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/camino-tours/camino/internal/adapters/http"
	"github.com/camino-tours/camino/internal/core/domain"
	"github.com/camino-tours/camino/internal/core/usecases"
)

// ---- Mock repositories ----

type mockTourRepo struct {
	createFn        func(ctx context.Context, tour *domain.Tour) error
	getByIDFn       func(ctx context.Context, id string) (*domain.Tour, error)
	getBySlugFn     func(ctx context.Context, slug string) (*domain.Tour, error)
	listByAuthorFn  func(ctx context.Context, authorID string) ([]domain.Tour, error)
	listPublishedFn func(ctx context.Context) ([]domain.Tour, error)
	setStatusFn     func(ctx context.Context, id string, status domain.TourStatus) error
}

func (m *mockTourRepo) Create(ctx context.Context, tour *domain.Tour) error {
	if m.createFn != nil {
		return m.createFn(ctx, tour)
	}
	return nil
}
func (m *mockTourRepo) Update(ctx context.Context, tour *domain.Tour) error { return nil }
func (m *mockTourRepo) Delete(ctx context.Context, id string) error         { return nil }
func (m *mockTourRepo) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, errors.New("not found")
}
func (m *mockTourRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, errors.New("not found")
}
func (m *mockTourRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Tour, error) {
	if m.listByAuthorFn != nil {
		return m.listByAuthorFn(ctx, authorID)
	}
	return nil, nil
}
func (m *mockTourRepo) ListPublished(ctx context.Context) ([]domain.Tour, error) {
	if m.listPublishedFn != nil {
		return m.listPublishedFn(ctx)
	}
	return nil, nil
}
func (m *mockTourRepo) SetStatus(ctx context.Context, id string, status domain.TourStatus) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return nil
}
func (m *mockTourRepo) SetRoute(ctx context.Context, id string, route *domain.GeoLineString) error {
	return nil
}

type mockStopRepo struct {
	createFn     func(ctx context.Context, stop *domain.Stop) error
	listByTourFn func(ctx context.Context, tourID string) ([]domain.Stop, error)
}

func (m *mockStopRepo) Create(ctx context.Context, stop *domain.Stop) error {
	if m.createFn != nil {
		return m.createFn(ctx, stop)
	}
	return nil
}
func (m *mockStopRepo) Update(ctx context.Context, stop *domain.Stop) error { return nil }
func (m *mockStopRepo) Delete(ctx context.Context, id string) error         { return nil }
func (m *mockStopRepo) GetByID(ctx context.Context, id string) (*domain.Stop, error) {
	return nil, errors.New("not found")
}
func (m *mockStopRepo) ListByTour(ctx context.Context, tourID string) ([]domain.Stop, error) {
	if m.listByTourFn != nil {
		return m.listByTourFn(ctx, tourID)
	}
	return nil, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	tours := &mockTourRepo{}
	stops := &mockStopRepo{}
	d := &handler.Dependencies{
		Tours:     usecases.NewTourService(tours, stops, nil, nil),
		Discovery: usecases.NewDiscoveryService(tours, nil),
		Walks:     usecases.NewWalkService(tours, stops, nil),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func publishedTour(id, slug, lat, lon string) domain.Tour {
	return domain.Tour{
		ID:        id,
		Slug:      slug,
		AuthorID:  "author-1",
		Title:     strings.ReplaceAll(slug, "-", " "),
		Latitude:  lat,
		Longitude: lon,
		Status:    domain.TourPublished,
	}
}

// ---- Tour handler tests ----

func TestListTours_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{
			listPublishedFn: func(ctx context.Context) ([]domain.Tour, error) {
				return []domain.Tour{
					publishedTour("t1", "casco-viejo", "43.2590", "-2.9234"),
					publishedTour("t2", "abandoibarra", "43.2682", "-2.9352"),
				}, nil
			},
		}, &mockStopRepo{}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tours", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Tour `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 tours, got %d", len(result.Data))
	}
}

func TestListTours_Pagination(t *testing.T) {
	tours := make([]domain.Tour, 5)
	for i := range tours {
		tours[i] = publishedTour(fmt.Sprintf("t%d", i), fmt.Sprintf("tour-%d", i), "43.26", "-2.93")
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{
			listPublishedFn: func(ctx context.Context) ([]domain.Tour, error) { return tours, nil },
		}, &mockStopRepo{}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tours?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Tour `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 tours in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestNearbyTours_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Discovery = usecases.NewDiscoveryService(&mockTourRepo{
			listPublishedFn: func(ctx context.Context) ([]domain.Tour, error) {
				return []domain.Tour{
					publishedTour("near", "casco-viejo", "43.2635", "-2.9355"),
					publishedTour("far", "getxo-coast", "43.3500", "-3.0100"),
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tours/nearby?lat=43.263&lon=-2.935&radius_km=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Tours []domain.Tour `json:"tours"`
		Count int           `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Errorf("expected 1 tour inside 2 km, got %d", result.Count)
	}
	if len(result.Tours) == 1 && result.Tours[0].DistanceKm == nil {
		t.Error("expected computed distance on result")
	}
}

func TestNearbyTours_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tours/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestNearbyTours_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tours/nearby?lat=43.26&lon=-2.93&radius_km=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetTour_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Tour, error) {
				tour := publishedTour(id, "casco-viejo", "43.2590", "-2.9234")
				return &tour, nil
			},
		}, &mockStopRepo{}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tours/t1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var tour domain.Tour
	json.NewDecoder(resp.Body).Decode(&tour)
	if tour.ID != "t1" {
		t.Errorf("expected tour t1, got %s", tour.ID)
	}
}

func TestGetTour_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/tours/missing", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetTourBySlug_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{
			getBySlugFn: func(ctx context.Context, slug string) (*domain.Tour, error) {
				tour := publishedTour("t1", slug, "43.2590", "-2.9234")
				return &tour, nil
			},
		}, &mockStopRepo{}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tours/slug/casco-viejo", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCreateTour_Success(t *testing.T) {
	var saved *domain.Tour
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{
			createFn: func(ctx context.Context, tour *domain.Tour) error {
				saved = tour
				return nil
			},
		}, &mockStopRepo{}, nil, nil)
	})
	app := setupApp(deps)

	body := strings.NewReader(`{"title":"Casco Viejo on Foot","author_id":"author-1","latitude":"43.2590","longitude":"-2.9234"}`)
	req := httptest.NewRequest("POST", "/v1/tours", body)
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if saved == nil {
		t.Fatal("expected repository create")
	}
	if saved.Slug != "casco-viejo-on-foot" {
		t.Errorf("expected slug generated on create, got %q", saved.Slug)
	}
	if saved.Status != domain.TourDraft {
		t.Errorf("expected draft status, got %s", saved.Status)
	}
}

func TestCreateTour_Validation(t *testing.T) {
	app := setupApp(makeDeps())

	body := strings.NewReader(`{"author_id":"author-1"}`)
	req := httptest.NewRequest("POST", "/v1/tours", body)
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for missing title, got %d", resp.StatusCode)
	}
}

func TestAddStop_Validation(t *testing.T) {
	app := setupApp(makeDeps())

	// Media kind without a URL is rejected.
	body := strings.NewReader(`{"title":"Guggenheim","order":1,"media":{"kind":"audio"}}`)
	req := httptest.NewRequest("POST", "/v1/tours/t1/stops", body)
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPublishTour_RequiresStops(t *testing.T) {
	app := setupApp(makeDeps()) // empty stop list

	req := httptest.NewRequest("POST", "/v1/tours/t1/publish", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestPublishTour_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{}, &mockStopRepo{
			listByTourFn: func(ctx context.Context, tourID string) ([]domain.Stop, error) {
				return []domain.Stop{{ID: "s1", TourID: tourID, Title: "Arriaga", Order: 1}}, nil
			},
		}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/tours/t1/publish", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestTourStops_Ordered(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{}, &mockStopRepo{
			listByTourFn: func(ctx context.Context, tourID string) ([]domain.Stop, error) {
				return []domain.Stop{
					{ID: "s1", Title: "Arriaga", Order: 1},
					{ID: "s2", Title: "Plaza Nueva", Order: 2},
				}, nil
			},
		}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tours/t1/stops", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stops []domain.Stop
	json.NewDecoder(resp.Body).Decode(&stops)
	if len(stops) != 2 || stops[0].Order != 1 {
		t.Errorf("expected 2 ordered stops, got %+v", stops)
	}
}

func TestAuthorTours_IncludesDrafts(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Tours = usecases.NewTourService(&mockTourRepo{
			listByAuthorFn: func(ctx context.Context, authorID string) ([]domain.Tour, error) {
				draft := publishedTour("t2", "wip-tour", "43.26", "-2.93")
				draft.Status = domain.TourDraft
				return []domain.Tour{
					publishedTour("t1", "casco-viejo", "43.26", "-2.93"),
					draft,
				}, nil
			},
		}, &mockStopRepo{}, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/authors/author-1/tours", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data []domain.Tour `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Data) != 2 {
		t.Errorf("expected drafts included, got %d tours", len(result.Data))
	}
}

// ---- GraphQL tests ----

func TestGraphQL_NearbyTours(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Discovery = usecases.NewDiscoveryService(&mockTourRepo{
			listPublishedFn: func(ctx context.Context) ([]domain.Tour, error) {
				return []domain.Tour{
					publishedTour("t1", "casco-viejo", "43.2635", "-2.9355"),
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	query := `{"query":"{ nearbyTours(lat: 43.263, lon: -2.935, radius_km: 2.0) { id slug distance_km } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(query))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			NearbyTours []struct {
				ID   string `json:"id"`
				Slug string `json:"slug"`
			} `json:"nearbyTours"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	if len(result.Data.NearbyTours) != 1 {
		t.Errorf("expected 1 tour, got %d", len(result.Data.NearbyTours))
	}
}

// ---- Middleware tests ----

func TestSecurityHeaders(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := resp.Header.Get("X-API-Version"); got == "" {
		t.Error("expected X-API-Version header")
	}
}

func TestDeprecatedDiscoverEndpoint(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/discover?lat=43.26&lon=-2.93&radius_km=2", nil)
	resp, _ := app.Test(req, -1)

	if got := resp.Header.Get("Deprecation"); got != "true" {
		t.Errorf("expected Deprecation header, got %q", got)
	}
	if got := resp.Header.Get("Sunset"); got == "" {
		t.Error("expected Sunset header")
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
}
