package catalog

import "time"

// Destination is a geofenced stop: crossing its radius is what triggers
// proximity events during a tour.
type Destination struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusM     float64 `json:"radius_m"`
	ContentType string  `json:"content_type"`
}

// Waypoint is an ordered navigation stop along a route. Unlike destinations,
// waypoints carry no content of their own.
type Waypoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type Route struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Language     string        `json:"language"`
	Destinations []Destination `json:"destinations"`
	Waypoints    []Waypoint    `json:"waypoints"`
	CreatedAt    time.Time     `json:"created_at"`
}
