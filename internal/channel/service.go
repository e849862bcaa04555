package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend-tourguide/internal/content"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrExpired         = errors.New("channel expired")
	ErrForbidden       = errors.New("operation not permitted")
	ErrConflict        = errors.New("conflicting participant role")
	ErrInvalidInput    = errors.New("invalid input")
)

// expiredRetention is how long a tombstoned channel stays visible before the
// sweeper drops it entirely.
const expiredRetention = 24 * time.Hour

// Publisher is the realtime gateway seen from this package. *stream.Hub
// satisfies it. PublishNow is the immediate path reserved for emergencies.
type Publisher interface {
	Publish(topic string, payload []byte)
	PublishNow(topic string, payload []byte) error
}

// Service manages ephemeral multi-party coordination channels: participants,
// TTL-bounded shared locations, and sequenced messages.
type Service struct {
	reg        *registry
	hub        Publisher
	dispatcher *content.Dispatcher
	defaultTTL time.Duration

	now func() time.Time
}

func NewService(hub Publisher, dispatcher *content.Dispatcher, defaultTTLHours int) *Service {
	if defaultTTLHours <= 0 {
		defaultTTLHours = 24
	}
	return &Service{
		reg:        newRegistry(),
		hub:        hub,
		dispatcher: dispatcher,
		defaultTTL: time.Duration(defaultTTLHours) * time.Hour,
		now:        time.Now,
	}
}

func (s *Service) CreateChannel(_ context.Context, req CreateChannelRequest) (CreateChannelResponse, error) {
	if req.BookingID == "" || req.GuideID == "" {
		return CreateChannelResponse{}, fmt.Errorf("%w: booking_id and guide_id required", ErrInvalidInput)
	}
	ttl := s.defaultTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	code := newChannelCode()
	for s.reg.codeTaken(code) {
		code = newChannelCode()
	}

	now := s.now()
	ch := Channel{
		ID:                     uuid.NewString(),
		Code:                   code,
		BookingID:              req.BookingID,
		TourDate:               req.TourDate,
		Status:                 StatusActive,
		CreatedAt:              now,
		ExpiresAt:              now.Add(ttl),
		LocationSharingEnabled: true,
		PhotoSharingEnabled:    true,
	}

	st := &state{
		channel:      ch,
		participants: map[string]*Participant{},
		locations:    map[string]*SharedLocation{},
	}
	st.participants[req.GuideID] = newParticipant(req.GuideID, RoleGuide, "", now)
	if req.DriverID != "" {
		st.participants[req.DriverID] = newParticipant(req.DriverID, RoleDriver, "", now)
	}
	s.reg.add(st)

	return CreateChannelResponse{ChannelID: ch.ID, Code: ch.Code, ExpiresAt: ch.ExpiresAt}, nil
}

// JoinChannel is idempotent: an existing participant re-joining with the same
// role is reactivated, never duplicated. A different role is a conflict.
func (s *Service) JoinChannel(_ context.Context, req JoinRequest) (JoinResponse, error) {
	if req.Code == "" || req.UserID == "" {
		return JoinResponse{}, fmt.Errorf("%w: channel_code and user_id required", ErrInvalidInput)
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return JoinResponse{}, err
	}

	st, ok := s.reg.lookupCode(req.Code)
	if !ok {
		return JoinResponse{}, ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	now := s.now()
	if err := s.ensureActive(st, now); err != nil {
		return JoinResponse{}, err
	}

	if existing, ok := st.participants[req.UserID]; ok {
		if existing.Role != role {
			return JoinResponse{}, fmt.Errorf("%w: joined as %s", ErrConflict, existing.Role)
		}
		existing.Status = ParticipantActive
		if req.DeviceToken != "" {
			existing.DeviceToken = req.DeviceToken
		}
	} else {
		st.participants[req.UserID] = newParticipant(req.UserID, role, req.DeviceToken, now)
		s.publish(st.channel.ID, "participant_joined", map[string]string{"user_id": req.UserID, "role": string(role)}, false)
	}

	return JoinResponse{
		ChannelID:    st.channel.ID,
		Participants: participantViews(st, now),
		Features: Features{
			LocationSharingEnabled: st.channel.LocationSharingEnabled,
			PhotoSharingEnabled:    st.channel.PhotoSharingEnabled,
		},
	}, nil
}

func (s *Service) ShareLocation(_ context.Context, channelID string, req ShareLocationRequest) (ShareLocationResponse, error) {
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return ShareLocationResponse{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	if req.TTLMinutes <= 0 {
		return ShareLocationResponse{}, fmt.Errorf("%w: ttl_minutes must be positive", ErrInvalidInput)
	}
	locType, err := ParseLocationType(req.Type)
	if err != nil {
		return ShareLocationResponse{}, err
	}

	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return ShareLocationResponse{}, ErrNotFound
	}

	st.mu.Lock()
	now := s.now()
	if err := s.ensureActive(st, now); err != nil {
		st.mu.Unlock()
		return ShareLocationResponse{}, err
	}
	p, ok := st.participants[req.UserID]
	if !ok {
		st.mu.Unlock()
		return ShareLocationResponse{}, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	if !p.CanShareLocation || !st.channel.LocationSharingEnabled {
		st.mu.Unlock()
		return ShareLocationResponse{}, fmt.Errorf("%w: location sharing disabled", ErrForbidden)
	}
	if req.PhotoURL != "" && !st.channel.PhotoSharingEnabled {
		st.mu.Unlock()
		return ShareLocationResponse{}, fmt.Errorf("%w: photo sharing disabled", ErrForbidden)
	}

	loc := SharedLocation{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		UserID:      req.UserID,
		Lat:         req.Lat,
		Lng:         req.Lng,
		AccuracyM:   req.AccuracyM,
		Type:        locType,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(req.TTLMinutes) * time.Minute),
	}
	st.locations[loc.ID] = &loc

	// sharing also refreshes the participant's live position
	p.LastLat = req.Lat
	p.LastLng = req.Lng
	p.LastLocationAt = now
	st.mu.Unlock()

	// the help_needed broadcast is synchronous; it must not run under the
	// channel lock
	s.publish(channelID, "location_shared", loc, locType == LocationHelpNeeded)

	return ShareLocationResponse{SharedLocationID: loc.ID, ExpiresAt: loc.ExpiresAt}, nil
}

func (s *Service) SendMessage(_ context.Context, channelID string, req SendMessageRequest) (SendMessageResponse, error) {
	if req.Payload == "" {
		return SendMessageResponse{}, fmt.Errorf("%w: payload required", ErrInvalidInput)
	}
	msgType, err := ParseMessageType(req.Type)
	if err != nil {
		return SendMessageResponse{}, err
	}

	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return SendMessageResponse{}, ErrNotFound
	}

	st.mu.Lock()
	now := s.now()
	if err := s.ensureActive(st, now); err != nil {
		st.mu.Unlock()
		return SendMessageResponse{}, err
	}
	p, ok := st.participants[req.UserID]
	if !ok {
		st.mu.Unlock()
		return SendMessageResponse{}, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	if !p.CanSendMessages {
		st.mu.Unlock()
		return SendMessageResponse{}, fmt.Errorf("%w: messaging disabled for participant", ErrForbidden)
	}
	if req.IsAnnouncement && !p.Role.admin() {
		st.mu.Unlock()
		return SendMessageResponse{}, fmt.Errorf("%w: announcements are guide-only", ErrForbidden)
	}

	emergency := req.IsEmergency || msgType == MessageEmergency

	autoDelete := st.channel.ExpiresAt
	if req.AutoDeleteMin > 0 {
		autoDelete = now.Add(time.Duration(req.AutoDeleteMin) * time.Minute)
	}

	st.nextSeq++
	msg := &Message{
		ID:             uuid.NewString(),
		ChannelID:      channelID,
		SenderID:       req.UserID,
		Seq:            st.nextSeq,
		Type:           msgType,
		Payload:        req.Payload,
		IsAnnouncement: req.IsAnnouncement,
		IsEmergency:    emergency,
		ReadBy:         map[string]bool{req.UserID: true},
		SentAt:         now,
		AutoDeleteAt:   autoDelete,
	}
	st.messages = append(st.messages, msg)

	view := messageView(msg)
	tokens := deviceTokens(st, req.UserID)
	st.mu.Unlock()

	resp := SendMessageResponse{MessageID: msg.ID, Seq: msg.Seq, SentAt: msg.SentAt}
	if emergency {
		// immediate path, distinct from the queued fan-out; failures are
		// surfaced to the sender rather than silently logged
		if err := s.publishNow(channelID, "emergency_message", view); err != nil {
			log.Printf("emergency broadcast on channel %s degraded: %v", channelID, err)
			resp.DeliveryAlert = "emergency_delivery_degraded"
		}
		s.notify(tokens, "emergency_message", view)
	} else {
		s.publish(channelID, "message", view, false)
	}
	return resp, nil
}

// Messages returns the channel history after afterSeq, oldest first, with
// auto-deleted entries filtered. Clients use it to resync after reconnect.
func (s *Service) Messages(_ context.Context, channelID, userID string, afterSeq int64) ([]MessageView, error) {
	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return nil, ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.participants[userID]; !ok {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}

	now := s.now()
	var views []MessageView
	for _, msg := range st.messages {
		if msg.Seq <= afterSeq || !msg.AutoDeleteAt.After(now) {
			continue
		}
		views = append(views, messageView(msg))
	}
	return views, nil
}

func (s *Service) MarkRead(_ context.Context, channelID, userID, messageID string) error {
	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.participants[userID]; !ok {
		return fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	for _, msg := range st.messages {
		if msg.ID == messageID {
			msg.ReadBy[userID] = true
			return nil
		}
	}
	return ErrMessageNotFound
}

// GetParticipants reports participants with their live position only when it
// is recent enough to act on.
func (s *Service) GetParticipants(_ context.Context, channelID string) ([]ParticipantView, error) {
	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return nil, ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return participantViews(st, s.now()), nil
}

// ExtendExpiry pushes the channel expiry out by hours. Guide/coordinator
// only; extending an already-expired channel reactivates it.
func (s *Service) ExtendExpiry(_ context.Context, channelID, userID string, hours int) (time.Time, error) {
	if hours <= 0 {
		return time.Time{}, fmt.Errorf("%w: hours must be positive", ErrInvalidInput)
	}

	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return time.Time{}, ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.requireAdmin(st, userID); err != nil {
		return time.Time{}, err
	}

	now := s.now()
	base := st.channel.ExpiresAt
	if base.Before(now) {
		base = now
	}
	st.channel.ExpiresAt = base.Add(time.Duration(hours) * time.Hour)
	st.channel.Status = StatusActive

	s.publish(channelID, "expiry_extended", map[string]any{"expires_at": st.channel.ExpiresAt}, false)
	return st.channel.ExpiresAt, nil
}

func (s *Service) AddMeetingPoint(_ context.Context, channelID, userID string, point MeetingPoint) error {
	if point.Label == "" || point.Lat < -90 || point.Lat > 90 || point.Lng < -180 || point.Lng > 180 {
		return fmt.Errorf("%w: label and valid coordinates required", ErrInvalidInput)
	}

	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.ensureActive(st, s.now()); err != nil {
		return err
	}
	if err := s.requireAdmin(st, userID); err != nil {
		return err
	}

	st.channel.MeetingPoints = append(st.channel.MeetingPoints, point)
	s.publish(channelID, "meeting_point_added", point, false)
	return nil
}

func (s *Service) SetParticipantStatus(_ context.Context, channelID, userID, status string) error {
	parsed, err := ParseParticipantStatus(status)
	if err != nil {
		return err
	}

	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return ErrNotFound
	}

	st.mu.Lock()
	p, ok := st.participants[userID]
	if !ok {
		st.mu.Unlock()
		return fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	p.Status = parsed
	tokens := deviceTokens(st, userID)
	st.mu.Unlock()

	data := map[string]string{"user_id": userID, "status": string(parsed)}
	if parsed == ParticipantEmergency {
		if err := s.publishNow(channelID, "participant_emergency", data); err != nil {
			log.Printf("emergency status broadcast on channel %s degraded: %v", channelID, err)
		}
		s.notify(tokens, "participant_emergency", data)
		return nil
	}
	s.publish(channelID, "participant_status", data, false)
	return nil
}

// Sweep expires channels past their TTL, removes TTL'd locations and
// messages, and drops tombstoned channels after the retention window. Safe
// to run concurrently with reads and writes: everything happens under each
// channel's own lock.
func (s *Service) Sweep(_ context.Context) {
	now := s.now()
	type removal struct{ id, code string }
	var removals []removal

	for _, st := range s.reg.all() {
		st.mu.Lock()
		if now.After(st.channel.ExpiresAt) {
			st.channel.Status = StatusExpired
		}
		if st.channel.Status == StatusExpired && now.After(st.channel.ExpiresAt.Add(expiredRetention)) {
			removals = append(removals, removal{st.channel.ID, st.channel.Code})
			st.mu.Unlock()
			continue
		}
		for id, loc := range st.locations {
			if now.After(loc.ExpiresAt) {
				delete(st.locations, id)
			}
		}
		kept := st.messages[:0]
		for _, msg := range st.messages {
			if msg.AutoDeleteAt.After(now) {
				kept = append(kept, msg)
			}
		}
		st.messages = kept
		st.mu.Unlock()
	}

	for _, r := range removals {
		s.reg.remove(r.id, r.code)
	}
}

// RunSweeper blocks until ctx is cancelled, sweeping on each tick.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// SharedLocations lists the channel's unexpired shared locations. Reads
// filter on expiry even between sweeper passes.
func (s *Service) SharedLocations(_ context.Context, channelID, userID string) ([]SharedLocation, error) {
	st, ok := s.reg.lookupID(channelID)
	if !ok {
		return nil, ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.participants[userID]; !ok {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}

	now := s.now()
	var out []SharedLocation
	for _, loc := range st.locations {
		if loc.ExpiresAt.After(now) {
			out = append(out, *loc)
		}
	}
	return out, nil
}

func (s *Service) ensureActive(st *state, now time.Time) error {
	if st.channel.Status == StatusExpired || now.After(st.channel.ExpiresAt) {
		st.channel.Status = StatusExpired
		return ErrExpired
	}
	return nil
}

func (s *Service) requireAdmin(st *state, userID string) error {
	p, ok := st.participants[userID]
	if !ok {
		return fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	if !p.Role.admin() {
		return fmt.Errorf("%w: requires guide or coordinator role", ErrForbidden)
	}
	return nil
}

type event struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	Data      any    `json:"data,omitempty"`
}

func (s *Service) publish(channelID, typ string, data any, urgent bool) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(event{Type: typ, ChannelID: channelID, Data: data})
	if err != nil {
		return
	}
	if urgent {
		if err := s.hub.PublishNow("channel:"+channelID, payload); err != nil {
			log.Printf("urgent publish on channel %s degraded: %v", channelID, err)
		}
		return
	}
	s.hub.Publish("channel:"+channelID, payload)
}

func (s *Service) publishNow(channelID, typ string, data any) error {
	if s.hub == nil {
		return nil
	}
	payload, err := json.Marshal(event{Type: typ, ChannelID: channelID, Data: data})
	if err != nil {
		return err
	}
	return s.hub.PublishNow("channel:"+channelID, payload)
}

func (s *Service) notify(tokens []string, eventType string, data any) {
	if s.dispatcher == nil {
		return
	}
	payload, _ := json.Marshal(data)
	for _, token := range tokens {
		s.dispatcher.Dispatch(token, eventType, payload)
	}
}

func deviceTokens(st *state, exceptUserID string) []string {
	var tokens []string
	for _, p := range st.participants {
		if p.UserID == exceptUserID || p.DeviceToken == "" {
			continue
		}
		tokens = append(tokens, p.DeviceToken)
	}
	return tokens
}

func newParticipant(userID string, role Role, deviceToken string, now time.Time) *Participant {
	p := &Participant{
		UserID:           userID,
		Role:             role,
		Status:           ParticipantActive,
		DeviceToken:      deviceToken,
		JoinedAt:         now,
		CanShareLocation: true,
		CanSendMessages:  true,
	}
	switch role {
	case RoleGuide, RoleCoordinator, RoleDriver:
		p.CanCall = true
	}
	return p
}

func participantViews(st *state, now time.Time) []ParticipantView {
	views := make([]ParticipantView, 0, len(st.participants))
	for _, p := range st.participants {
		view := ParticipantView{
			UserID:           p.UserID,
			Role:             p.Role,
			Status:           p.Status,
			CanShareLocation: p.CanShareLocation,
			CanSendMessages:  p.CanSendMessages,
			CanCall:          p.CanCall,
			JoinedAt:         p.JoinedAt,
		}
		if !p.LastLocationAt.IsZero() && now.Sub(p.LastLocationAt) < recentLocationWindow {
			lat, lng, at := p.LastLat, p.LastLng, p.LastLocationAt
			view.Lat = &lat
			view.Lng = &lng
			view.LocationAt = &at
		}
		views = append(views, view)
	}
	return views
}

func messageView(msg *Message) MessageView {
	readBy := make([]string, 0, len(msg.ReadBy))
	for id := range msg.ReadBy {
		readBy = append(readBy, id)
	}
	return MessageView{
		ID:             msg.ID,
		ChannelID:      msg.ChannelID,
		SenderID:       msg.SenderID,
		Seq:            msg.Seq,
		Type:           msg.Type,
		Payload:        msg.Payload,
		IsAnnouncement: msg.IsAnnouncement,
		IsEmergency:    msg.IsEmergency,
		ReadBy:         readBy,
		SentAt:         msg.SentAt,
	}
}
