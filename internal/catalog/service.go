package catalog

import (
	"context"
	"errors"

	"backend-tourguide/internal/db"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("route not found")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Route loads a route with its ordered destination sequence and waypoints.
func (s *Service) Route(ctx context.Context, id string) (Route, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, language, created_at
		FROM tour_routes WHERE id=$1
	`, id)
	var route Route
	if err := row.Scan(&route.ID, &route.Name, &route.Description, &route.Language, &route.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Route{}, ErrNotFound
		}
		return Route{}, err
	}

	destinations, err := s.routeDestinations(ctx, id)
	if err != nil {
		return Route{}, err
	}
	route.Destinations = destinations

	waypoints, err := s.routeWaypoints(ctx, id)
	if err != nil {
		return Route{}, err
	}
	route.Waypoints = waypoints
	return route, nil
}

func (s *Service) routeDestinations(ctx context.Context, routeID string) ([]Destination, error) {
	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.name, ST_Y(d.location::geometry), ST_X(d.location::geometry), d.radius_m, d.content_type
		FROM destinations d
		JOIN route_destinations rd ON rd.destination_id = d.id
		WHERE rd.route_id=$1
		ORDER BY rd.seq
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var destinations []Destination
	for rows.Next() {
		var d Destination
		if err := rows.Scan(&d.ID, &d.Name, &d.Lat, &d.Lng, &d.RadiusM, &d.ContentType); err != nil {
			return nil, err
		}
		destinations = append(destinations, d)
	}
	return destinations, nil
}

func (s *Service) routeWaypoints(ctx context.Context, routeID string) ([]Waypoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, ST_Y(location::geometry), ST_X(location::geometry)
		FROM route_waypoints
		WHERE route_id=$1
		ORDER BY seq
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waypoints []Waypoint
	for rows.Next() {
		var w Waypoint
		if err := rows.Scan(&w.Name, &w.Lat, &w.Lng); err != nil {
			return nil, err
		}
		waypoints = append(waypoints, w)
	}
	return waypoints, nil
}

// NearbyDestinations returns destinations within radiusM of a point, nearest
// first. Used for the nearby-point hints on every location ping.
func (s *Service) NearbyDestinations(ctx context.Context, lat, lng, radiusM float64, limit int) ([]Destination, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, ST_Y(location::geometry), ST_X(location::geometry), radius_m, content_type
		FROM destinations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography
		LIMIT $4
	`, lng, lat, radiusM, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var destinations []Destination
	for rows.Next() {
		var d Destination
		if err := rows.Scan(&d.ID, &d.Name, &d.Lat, &d.Lng, &d.RadiusM, &d.ContentType); err != nil {
			return nil, err
		}
		destinations = append(destinations, d)
	}
	return destinations, nil
}
