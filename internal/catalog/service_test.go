package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

func TestRouteLoadsSequences(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, description, language, created_at`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "language", "created_at"}).
			AddRow("route-1", "Old Town Walk", "Historic center loop", "en", time.Now()))

	mock.ExpectQuery(`JOIN route_destinations`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "lat", "lng", "radius_m", "content_type"}).
			AddRow("dest-1", "Cathedral", 40.4168, -3.7038, 50.0, "history").
			AddRow("dest-2", "Plaza Mayor", 40.4155, -3.7074, 50.0, "story"))

	mock.ExpectQuery(`FROM route_waypoints`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"name", "lat", "lng"}).
			AddRow("Start Gate", 40.4170, -3.7030))

	svc := NewService(mock)
	route, err := svc.Route(context.Background(), "route-1")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(route.Destinations) != 2 || route.Destinations[0].ID != "dest-1" {
		t.Fatalf("unexpected destinations: %+v", route.Destinations)
	}
	if len(route.Waypoints) != 1 || route.Waypoints[0].Name != "Start Gate" {
		t.Fatalf("unexpected waypoints: %+v", route.Waypoints)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRouteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, description, language, created_at`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "language", "created_at"}))

	svc := NewService(mock)
	_, err = svc.Route(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteDestinationQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, description, language, created_at`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "language", "created_at"}).
			AddRow("route-1", "Old Town Walk", "", "en", time.Now()))

	mock.ExpectQuery(`JOIN route_destinations`).
		WithArgs("route-1").
		WillReturnError(errCatalog)

	svc := NewService(mock)
	if _, err := svc.Route(context.Background(), "route-1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNearbyDestinations(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`ST_DWithin`).
		WithArgs(-3.7038, 40.4168, 500.0, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "lat", "lng", "radius_m", "content_type"}).
			AddRow("dest-1", "Cathedral", 40.4168, -3.7038, 50.0, "history"))

	svc := NewService(mock)
	nearby, err := svc.NearbyDestinations(context.Background(), 40.4168, -3.7038, 500, 0)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(nearby) != 1 || nearby[0].Name != "Cathedral" {
		t.Fatalf("unexpected nearby: %+v", nearby)
	}
}

func TestNearbyDestinationsQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`ST_DWithin`).
		WithArgs(-3.7038, 40.4168, 500.0, 5).
		WillReturnError(errCatalog)

	svc := NewService(mock)
	if _, err := svc.NearbyDestinations(context.Background(), 40.4168, -3.7038, 500, 5); err == nil {
		t.Fatalf("expected error")
	}
}

var errCatalog = errors.New("catalog error")
