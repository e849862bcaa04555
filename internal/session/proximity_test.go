package session

import (
	"testing"

	"backend-tourguide/internal/catalog"
)

// metersPerDegreeLat converts a north-south offset in meters to degrees of
// latitude; along a meridian the haversine distance is exact.
const metersPerDegreeLat = 111194.9266

func latOffset(meters float64) float64 {
	return meters / metersPerDegreeLat
}

func sessionWithDestinations(dests ...catalog.Destination) *TourSession {
	return &TourSession{
		ID:           "sess-1",
		Destinations: dests,
		Visited:      map[string]bool{},
	}
}

func TestEvaluateTwoTier(t *testing.T) {
	engine := NewProximityEngine(0)
	dest := catalog.Destination{ID: "dest-1", Name: "Cathedral", Lat: 10, Lng: 20, RadiusM: 50}
	s := sessionWithDestinations(dest)

	// 40m: inside the outer radius, outside radius/2
	events := engine.Evaluate(s, Location{Lat: 10 + latOffset(40), Lng: 20})
	if len(events) != 1 || events[0].Level != LevelApproaching {
		t.Fatalf("expected approaching event, got %+v", events)
	}
	if s.Visited["dest-1"] {
		t.Fatalf("approaching must not mark visited")
	}

	// 60m: outside the geofence entirely
	events = engine.Evaluate(s, Location{Lat: 10 + latOffset(60), Lng: 20})
	if len(events) != 0 {
		t.Fatalf("expected no events at 60m, got %+v", events)
	}
}

func TestEvaluateIdempotentArrival(t *testing.T) {
	engine := NewProximityEngine(0)
	dest := catalog.Destination{ID: "dest-1", Name: "Cathedral", Lat: 10, Lng: 20, RadiusM: 50}
	s := sessionWithDestinations(dest)
	at20m := Location{Lat: 10 + latOffset(20), Lng: 20}

	events := engine.Evaluate(s, at20m)
	if len(events) != 1 || events[0].Level != LevelArrival {
		t.Fatalf("expected arrival event, got %+v", events)
	}
	if !s.Visited["dest-1"] {
		t.Fatalf("arrival must mark destination visited")
	}

	// same ping again: no re-trigger, no new visited entry
	events = engine.Evaluate(s, at20m)
	if len(events) != 0 {
		t.Fatalf("expected no events on repeat ping, got %+v", events)
	}
	if len(s.Visited) != 1 {
		t.Fatalf("visited set grew: %v", s.Visited)
	}
}

func TestEvaluateSkipsMalformedGeofence(t *testing.T) {
	engine := NewProximityEngine(0)
	s := sessionWithDestinations(
		catalog.Destination{ID: "bad-radius", Lat: 10, Lng: 20, RadiusM: 0},
		catalog.Destination{ID: "bad-lat", Lat: 95, Lng: 20, RadiusM: 50},
		catalog.Destination{ID: "good", Name: "Cathedral", Lat: 10, Lng: 20, RadiusM: 50},
	)

	events := engine.Evaluate(s, Location{Lat: 10 + latOffset(10), Lng: 20})
	if len(events) != 1 || events[0].DestinationID != "good" {
		t.Fatalf("expected only the valid destination to evaluate, got %+v", events)
	}
}

func TestEvaluateVisitedSubsetOfSequence(t *testing.T) {
	engine := NewProximityEngine(0)
	s := sessionWithDestinations(
		catalog.Destination{ID: "dest-1", Lat: 10, Lng: 20, RadiusM: 50},
		catalog.Destination{ID: "dest-2", Lat: 10.5, Lng: 20, RadiusM: 50},
	)

	engine.Evaluate(s, Location{Lat: 10, Lng: 20})
	for id := range s.Visited {
		found := false
		for _, d := range s.Destinations {
			if d.ID == id {
				found = true
			}
		}
		if !found {
			t.Fatalf("visited id %q not in destination sequence", id)
		}
	}
}

func TestNewProximityEngineFactorBounds(t *testing.T) {
	if e := NewProximityEngine(-1); e.ArrivalRadiusFactor != DefaultArrivalRadiusFactor {
		t.Fatalf("expected default factor, got %v", e.ArrivalRadiusFactor)
	}
	if e := NewProximityEngine(2); e.ArrivalRadiusFactor != DefaultArrivalRadiusFactor {
		t.Fatalf("expected default factor, got %v", e.ArrivalRadiusFactor)
	}
	if e := NewProximityEngine(0.3); e.ArrivalRadiusFactor != 0.3 {
		t.Fatalf("expected configured factor, got %v", e.ArrivalRadiusFactor)
	}
}
