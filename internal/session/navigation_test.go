package session

import (
	"strings"
	"testing"

	"backend-tourguide/internal/catalog"
)

func navSession(waypoints ...catalog.Waypoint) *TourSession {
	return &TourSession{
		ID:               "sess-1",
		Waypoints:        waypoints,
		Visited:          map[string]bool{},
		NavigationActive: true,
	}
}

func TestAdvanceInstructionBands(t *testing.T) {
	engine := NavigationEngine{}
	wp := catalog.Waypoint{Name: "Fountain", Lat: 10, Lng: 20}

	cases := []struct {
		distanceM float64
		contains  string
		arrived   bool
	}{
		{10, "arriving", true},
		{49, "arriving at Fountain", false},
		{150, "continue 150 meters toward", false},
		{1000, "head 1000 meters toward", false},
	}
	for _, tc := range cases {
		s := navSession(wp)
		state := engine.Advance(s, Location{Lat: 10 + latOffset(tc.distanceM), Lng: 20})
		if !strings.Contains(state.Instruction, tc.contains) {
			t.Fatalf("distance %vm: instruction %q missing %q", tc.distanceM, state.Instruction, tc.contains)
		}
		if state.Arrived != tc.arrived {
			t.Fatalf("distance %vm: arrived=%v, want %v", tc.distanceM, state.Arrived, tc.arrived)
		}
	}
}

func TestAdvanceBearingTowardTarget(t *testing.T) {
	engine := NavigationEngine{}
	s := navSession(catalog.Waypoint{Name: "North Gate", Lat: 10.01, Lng: 20})

	state := engine.Advance(s, Location{Lat: 10, Lng: 20})
	if state.BearingDeg > 0.5 && state.BearingDeg < 359.5 {
		t.Fatalf("expected ~north bearing, got %v", state.BearingDeg)
	}
	if !strings.Contains(state.Instruction, "north") {
		t.Fatalf("expected compass label in instruction: %q", state.Instruction)
	}
}

func TestAdvanceIncrementsCursorOnArrival(t *testing.T) {
	engine := NavigationEngine{}
	s := navSession(
		catalog.Waypoint{Name: "A", Lat: 10, Lng: 20},
		catalog.Waypoint{Name: "B", Lat: 10.01, Lng: 20},
	)

	state := engine.Advance(s, Location{Lat: 10, Lng: 20})
	if !state.Arrived || s.CurrentWaypointIndex != 1 {
		t.Fatalf("expected cursor advance, got arrived=%v index=%d", state.Arrived, s.CurrentWaypointIndex)
	}
	if state.RouteCompleted {
		t.Fatalf("route not yet complete")
	}

	state = engine.Advance(s, Location{Lat: 10.01, Lng: 20})
	if !state.RouteCompleted || s.CurrentWaypointIndex != 2 {
		t.Fatalf("expected completion, got %+v index=%d", state, s.CurrentWaypointIndex)
	}
}

func TestAdvanceCursorMonotonic(t *testing.T) {
	engine := NavigationEngine{}
	s := navSession(
		catalog.Waypoint{Name: "A", Lat: 10, Lng: 20},
		catalog.Waypoint{Name: "B", Lat: 10.01, Lng: 20},
	)

	// arrive at A
	engine.Advance(s, Location{Lat: 10, Lng: 20})
	if s.CurrentWaypointIndex != 1 {
		t.Fatalf("expected index 1")
	}

	// stale/duplicate pings back at A must not rewind the cursor
	for i := 0; i < 3; i++ {
		engine.Advance(s, Location{Lat: 10, Lng: 20})
		if s.CurrentWaypointIndex < 1 {
			t.Fatalf("cursor decreased to %d", s.CurrentWaypointIndex)
		}
	}
}

func TestAdvancePastEnd(t *testing.T) {
	engine := NavigationEngine{}
	s := navSession()

	state := engine.Advance(s, Location{Lat: 10, Lng: 20})
	if !state.RouteCompleted {
		t.Fatalf("expected route completed with no waypoints")
	}
	if s.CurrentWaypointIndex != 0 {
		t.Fatalf("cursor moved on empty route")
	}
}
