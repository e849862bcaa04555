package session

import (
	"log"
	"math"

	"backend-tourguide/internal/geo"
)

// DefaultArrivalRadiusFactor is the inner content-trigger threshold as a
// fraction of a destination's geofence radius. The outer radius reports
// "approaching"; inside radius*factor the arrival fires and content plays.
const DefaultArrivalRadiusFactor = 0.5

// ProximityEngine classifies a ping against a session's unvisited
// destinations. Arrival events mark the destination visited, so a
// destination fires at most once per session lifetime.
type ProximityEngine struct {
	ArrivalRadiusFactor float64
}

func NewProximityEngine(factor float64) *ProximityEngine {
	if factor <= 0 || factor > 1 {
		factor = DefaultArrivalRadiusFactor
	}
	return &ProximityEngine{ArrivalRadiusFactor: factor}
}

// Evaluate must run inside Store.AtomicUpdate: it mutates the session's
// visited set. A malformed geofence skips that destination only; the rest of
// the sequence is still evaluated.
func (e *ProximityEngine) Evaluate(s *TourSession, loc Location) []ProximityEvent {
	var events []ProximityEvent
	for _, dest := range s.Destinations {
		if s.Visited[dest.ID] {
			continue
		}
		if !validGeofence(dest.Lat, dest.Lng, dest.RadiusM) {
			log.Printf("skipping malformed geofence %s (lat=%v lng=%v radius=%v)", dest.ID, dest.Lat, dest.Lng, dest.RadiusM)
			continue
		}

		distance := geo.DistanceMeters(loc.Lat, loc.Lng, dest.Lat, dest.Lng)
		if distance > dest.RadiusM {
			continue
		}

		event := ProximityEvent{
			DestinationID:   dest.ID,
			DestinationName: dest.Name,
			DistanceM:       distance,
			Level:           LevelApproaching,
			ContentType:     dest.ContentType,
		}
		if distance <= dest.RadiusM*e.ArrivalRadiusFactor {
			event.Level = LevelArrival
			s.Visited[dest.ID] = true
		}
		events = append(events, event)
	}
	return events
}

func validGeofence(lat, lng, radiusM float64) bool {
	if radiusM <= 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
