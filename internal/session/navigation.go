package session

import (
	"fmt"

	"backend-tourguide/internal/geo"
)

const (
	// waypointArriveM is the arrival radius around a waypoint; crossing it
	// advances the route cursor.
	waypointArriveM = 20.0
	nearBandM       = 50.0
	midBandM        = 200.0
)

// NavigationEngine turns a ping into turn-by-turn state against the
// session's ordered waypoints. The cursor only ever moves forward.
type NavigationEngine struct{}

// Advance must run inside Store.AtomicUpdate: it may increment the waypoint
// cursor.
func (NavigationEngine) Advance(s *TourSession, loc Location) NavigationState {
	if s.CurrentWaypointIndex >= len(s.Waypoints) {
		return NavigationState{
			WaypointIndex:  s.CurrentWaypointIndex,
			RouteCompleted: true,
			Instruction:    "route completed",
		}
	}

	target := s.Waypoints[s.CurrentWaypointIndex]
	distance := geo.DistanceMeters(loc.Lat, loc.Lng, target.Lat, target.Lng)
	bearing := geo.Bearing(loc.Lat, loc.Lng, target.Lat, target.Lng)
	compass := geo.CompassLabel(bearing)

	state := NavigationState{
		WaypointIndex:   s.CurrentWaypointIndex,
		WaypointName:    target.Name,
		DistanceToNextM: distance,
		BearingDeg:      bearing,
		Arrived:         distance < waypointArriveM,
	}

	switch {
	case distance < nearBandM:
		state.Instruction = fmt.Sprintf("arriving at %s", target.Name)
	case distance <= midBandM:
		state.Instruction = fmt.Sprintf("continue %.0f meters toward %s", distance, compass)
	default:
		state.Instruction = fmt.Sprintf("head %.0f meters toward %s", distance, compass)
	}

	if state.Arrived {
		s.CurrentWaypointIndex++
		state.RouteCompleted = s.CurrentWaypointIndex >= len(s.Waypoints)
	}
	return state
}
