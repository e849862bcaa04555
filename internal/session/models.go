package session

import (
	"fmt"
	"sort"
	"time"

	"backend-tourguide/internal/catalog"
)

type Mode string

const (
	ModeLiveGPS    Mode = "live_gps"
	ModeManual     Mode = "manual"
	ModeRouteBased Mode = "route_based"
	ModeOffline    Mode = "offline"
	ModeAREnhanced Mode = "ar_enhanced"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLiveGPS, ModeManual, ModeRouteBased, ModeOffline, ModeAREnhanced:
		return Mode(s), nil
	case "":
		return ModeLiveGPS, nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalidInput, s)
}

type Location struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AccuracyM  float64   `json:"accuracy_m"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TourSession is the live state of one guided tour. It is created by
// StartTour, mutated only through Store.AtomicUpdate, and removed by EndTour
// or the idle sweeper.
type TourSession struct {
	ID                   string
	UserID               string
	DeviceToken          string
	Mode                 Mode
	RouteID              string
	Language             string
	Destinations         []catalog.Destination
	Waypoints            []catalog.Waypoint
	CurrentWaypointIndex int
	Visited              map[string]bool
	LastLocation         *Location
	StartedAt            time.Time
	NavigationActive     bool
}

func (s *TourSession) clone() TourSession {
	out := *s
	out.Visited = make(map[string]bool, len(s.Visited))
	for id := range s.Visited {
		out.Visited[id] = true
	}
	out.Destinations = append([]catalog.Destination(nil), s.Destinations...)
	out.Waypoints = append([]catalog.Waypoint(nil), s.Waypoints...)
	if s.LastLocation != nil {
		loc := *s.LastLocation
		out.LastLocation = &loc
	}
	return out
}

func (s *TourSession) visitedIDs() []string {
	ids := make([]string, 0, len(s.Visited))
	for id := range s.Visited {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// lastSeen is the reference time for the idle TTL.
func (s *TourSession) lastSeen() time.Time {
	if s.LastLocation != nil {
		return s.LastLocation.Timestamp
	}
	return s.StartedAt
}

type ProximityLevel string

const (
	LevelApproaching ProximityLevel = "approaching"
	LevelArrival     ProximityLevel = "arrival"
)

// ProximityEvent is derived per ping, never stored.
type ProximityEvent struct {
	DestinationID   string         `json:"destination_id"`
	DestinationName string         `json:"destination_name"`
	DistanceM       float64        `json:"distance_m"`
	Level           ProximityLevel `json:"level"`
	ContentType     string         `json:"content_type"`
}

type NavigationState struct {
	WaypointIndex   int     `json:"waypoint_index"`
	WaypointName    string  `json:"waypoint_name,omitempty"`
	DistanceToNextM float64 `json:"distance_to_next_m"`
	BearingDeg      float64 `json:"bearing_deg"`
	Instruction     string  `json:"instruction"`
	Arrived         bool    `json:"arrived"`
	RouteCompleted  bool    `json:"route_completed"`
}

type StartTourRequest struct {
	UserID      string `json:"user_id"`
	RouteID     string `json:"route_id,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Language    string `json:"language,omitempty"`
	DeviceToken string `json:"device_token,omitempty"`
}

type RouteSummary struct {
	RouteID          string  `json:"route_id,omitempty"`
	Name             string  `json:"name,omitempty"`
	DestinationCount int     `json:"destination_count"`
	WaypointCount    int     `json:"waypoint_count"`
	TotalDistanceM   float64 `json:"total_distance_m"`
}

type StartTourResponse struct {
	SessionID      string       `json:"session_id"`
	InitialContent string       `json:"initial_content"`
	RouteSummary   RouteSummary `json:"route_summary"`
}

type LocationPing struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	AccuracyM  float64  `json:"accuracy_m"`
	HeadingDeg *float64 `json:"heading_deg,omitempty"`
	SpeedMps   *float64 `json:"speed_mps,omitempty"`
}

type TriggeredContent struct {
	DestinationID string `json:"destination_id"`
	Text          string `json:"text"`
	AudioRef      string `json:"audio_ref,omitempty"`
}

type LocationUpdate struct {
	SessionID        string                `json:"session_id"`
	Events           []ProximityEvent      `json:"events"`
	TriggeredContent []TriggeredContent    `json:"triggered_content"`
	NearbyPoints     []catalog.Destination `json:"nearby_points"`
	Navigation       *NavigationState      `json:"navigation,omitempty"`
	Alerts           []string              `json:"alerts"`
}

// SessionView is the read model served by GetStatus and used by clients to
// reconstruct state after a dropped realtime connection.
type SessionView struct {
	SessionID             string    `json:"session_id"`
	UserID                string    `json:"user_id"`
	Mode                  Mode      `json:"mode"`
	RouteID               string    `json:"route_id,omitempty"`
	Language              string    `json:"language"`
	DestinationCount      int       `json:"destination_count"`
	VisitedDestinationIDs []string  `json:"visited_destination_ids"`
	CurrentWaypointIndex  int       `json:"current_waypoint_index"`
	WaypointCount         int       `json:"waypoint_count"`
	LastLocation          *Location `json:"last_location,omitempty"`
	StartedAt             time.Time `json:"started_at"`
	NavigationActive      bool      `json:"navigation_active"`
}
