package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"backend-tourguide/internal/catalog"
	"backend-tourguide/internal/content"
	"backend-tourguide/internal/geo"

	"github.com/google/uuid"
)

const nearbySearchRadiusM = 500

// RouteSource supplies the immutable reference data sessions are built from.
// *catalog.Service satisfies it.
type RouteSource interface {
	Route(ctx context.Context, id string) (catalog.Route, error)
	NearbyDestinations(ctx context.Context, lat, lng, radiusM float64, limit int) ([]catalog.Destination, error)
}

// Publisher is the realtime gateway seen from this package. *stream.Hub
// satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// Manager orchestrates tour sessions: it composes the proximity and
// navigation engines over the store and fans results out through the
// gateway.
type Manager struct {
	store      Store
	routes     RouteSource
	proximity  *ProximityEngine
	navigation NavigationEngine
	provider   content.Provider
	narrator   content.Narrator
	dispatcher *content.Dispatcher
	hub        Publisher
	idleTTL    time.Duration

	now func() time.Time
}

func NewManager(store Store, routes RouteSource, provider content.Provider, narrator content.Narrator, dispatcher *content.Dispatcher, hub Publisher, arrivalFactor float64, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &Manager{
		store:      store,
		routes:     routes,
		proximity:  NewProximityEngine(arrivalFactor),
		provider:   provider,
		narrator:   narrator,
		dispatcher: dispatcher,
		hub:        hub,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

func (m *Manager) StartTour(ctx context.Context, req StartTourRequest) (StartTourResponse, error) {
	if req.UserID == "" {
		return StartTourResponse{}, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return StartTourResponse{}, err
	}
	language := req.Language
	if language == "" {
		language = "en"
	}

	sess := TourSession{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		DeviceToken: req.DeviceToken,
		Mode:        mode,
		Language:    language,
		Visited:     map[string]bool{},
		StartedAt:   m.now(),
	}

	summary := RouteSummary{}
	if req.RouteID != "" {
		route, err := m.routes.Route(ctx, req.RouteID)
		if err != nil {
			return StartTourResponse{}, err
		}
		sess.RouteID = route.ID
		sess.Destinations = route.Destinations
		sess.Waypoints = route.Waypoints
		sess.NavigationActive = len(route.Waypoints) > 0
		summary = RouteSummary{
			RouteID:          route.ID,
			Name:             route.Name,
			DestinationCount: len(route.Destinations),
			WaypointCount:    len(route.Waypoints),
			TotalDistanceM:   routeLengthM(route.Waypoints),
		}
	}

	if _, err := m.store.Create(ctx, sess); err != nil {
		return StartTourResponse{}, err
	}

	initial := content.DefaultNarration
	if len(sess.Destinations) > 0 {
		first := sess.Destinations[0]
		if text, err := m.provider.Generate(ctx, first.ID, first.ContentType, language); err == nil {
			initial = text
		} else {
			log.Printf("initial content for session %s degraded: %v", sess.ID, err)
		}
	} else {
		initial = "Your tour has started. Content will play as you explore."
	}

	return StartTourResponse{
		SessionID:      sess.ID,
		InitialContent: initial,
		RouteSummary:   summary,
	}, nil
}

func (m *Manager) UpdateLocation(ctx context.Context, sessionID string, ping LocationPing) (LocationUpdate, error) {
	if err := validatePing(ping); err != nil {
		return LocationUpdate{}, err
	}

	loc := Location{
		Lat:        ping.Lat,
		Lng:        ping.Lng,
		AccuracyM:  ping.AccuracyM,
		HeadingDeg: ping.HeadingDeg,
		SpeedMps:   ping.SpeedMps,
		Timestamp:  m.now(),
	}

	var events []ProximityEvent
	var nav *NavigationState
	updated, err := m.store.AtomicUpdate(ctx, sessionID, func(s *TourSession) error {
		events = m.proximity.Evaluate(s, loc)
		if s.NavigationActive {
			state := m.navigation.Advance(s, loc)
			nav = &state
		}
		s.LastLocation = &loc
		return nil
	})
	if err != nil {
		return LocationUpdate{}, err
	}

	update := LocationUpdate{
		SessionID:        sessionID,
		Events:           events,
		TriggeredContent: m.generateContent(ctx, updated, events),
		NearbyPoints:     m.nearbyPoints(ctx, loc),
		Navigation:       nav,
		Alerts:           pingAlerts(ping),
	}

	if m.hub != nil {
		if payload, err := json.Marshal(update); err == nil {
			m.hub.Publish("session:"+sessionID, payload)
		}
	}
	m.notifyArrivals(updated, update.TriggeredContent)

	return update, nil
}

func (m *Manager) GetStatus(ctx context.Context, sessionID string) (SessionView, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		SessionID:             s.ID,
		UserID:                s.UserID,
		Mode:                  s.Mode,
		RouteID:               s.RouteID,
		Language:              s.Language,
		DestinationCount:      len(s.Destinations),
		VisitedDestinationIDs: s.visitedIDs(),
		CurrentWaypointIndex:  s.CurrentWaypointIndex,
		WaypointCount:         len(s.Waypoints),
		LastLocation:          s.LastLocation,
		StartedAt:             s.StartedAt,
		NavigationActive:      s.NavigationActive,
	}, nil
}

func (m *Manager) EndTour(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// SweepIdle removes sessions whose last ping predates the idle TTL. Errors
// are logged; the next tick retries.
func (m *Manager) SweepIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTTL)
	removed := 0
	for _, id := range m.store.IdleSessionIDs(ctx, cutoff) {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Printf("idle sweep of session %s failed: %v", id, err)
			continue
		}
		removed++
	}
	return removed
}

// RunSweeper blocks until ctx is cancelled, sweeping on each tick.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepIdle(ctx)
		}
	}
}

func (m *Manager) generateContent(ctx context.Context, s TourSession, events []ProximityEvent) []TriggeredContent {
	var triggered []TriggeredContent
	for _, ev := range events {
		if ev.Level != LevelArrival {
			continue
		}
		text, err := m.provider.Generate(ctx, ev.DestinationID, ev.ContentType, s.Language)
		if err != nil || text == "" {
			log.Printf("content for %s degraded to default: %v", ev.DestinationID, err)
			text = content.DefaultNarration
		}
		item := TriggeredContent{DestinationID: ev.DestinationID, Text: text}
		if m.narrator != nil {
			if ref, err := m.narrator.Narrate(ctx, text, "default", s.Language); err == nil {
				item.AudioRef = ref
			}
		}
		triggered = append(triggered, item)
	}
	return triggered
}

func (m *Manager) nearbyPoints(ctx context.Context, loc Location) []catalog.Destination {
	if m.routes == nil {
		return nil
	}
	nearby, err := m.routes.NearbyDestinations(ctx, loc.Lat, loc.Lng, nearbySearchRadiusM, 5)
	if err != nil {
		log.Printf("nearby lookup failed: %v", err)
		return nil
	}
	return nearby
}

func (m *Manager) notifyArrivals(s TourSession, triggered []TriggeredContent) {
	if m.dispatcher == nil || s.DeviceToken == "" {
		return
	}
	for _, item := range triggered {
		payload, _ := json.Marshal(item)
		m.dispatcher.Dispatch(s.DeviceToken, "destination_arrival", payload)
	}
}

func validatePing(ping LocationPing) error {
	if ping.Lat < -90 || ping.Lat > 90 {
		return fmt.Errorf("%w: lat out of range", ErrInvalidInput)
	}
	if ping.Lng < -180 || ping.Lng > 180 {
		return fmt.Errorf("%w: lng out of range", ErrInvalidInput)
	}
	if ping.AccuracyM < 0 {
		return fmt.Errorf("%w: accuracy must be non-negative", ErrInvalidInput)
	}
	return nil
}

func pingAlerts(ping LocationPing) []string {
	var alerts []string
	if ping.AccuracyM > 50 {
		alerts = append(alerts, "gps_accuracy_low")
	}
	return alerts
}

func routeLengthM(waypoints []catalog.Waypoint) float64 {
	total := 0.0
	for i := 1; i < len(waypoints); i++ {
		total += geo.DistanceMeters(waypoints[i-1].Lat, waypoints[i-1].Lng, waypoints[i].Lat, waypoints[i].Lng)
	}
	return total
}
