package channel

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleTourist     Role = "tourist"
	RoleGuide       Role = "guide"
	RoleDriver      Role = "driver"
	RoleCoordinator Role = "coordinator"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTourist, RoleGuide, RoleDriver, RoleCoordinator:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: role %q", ErrInvalidInput, s)
}

// admin reports whether the role may mutate channel-level fields (expiry,
// meeting points, permissions).
func (r Role) admin() bool {
	return r == RoleGuide || r == RoleCoordinator
}

type ChannelStatus string

const (
	StatusActive  ChannelStatus = "active"
	StatusExpired ChannelStatus = "expired"
)

type ParticipantStatus string

const (
	ParticipantActive       ParticipantStatus = "active"
	ParticipantInactive     ParticipantStatus = "inactive"
	ParticipantEmergency    ParticipantStatus = "emergency"
	ParticipantDoNotDisturb ParticipantStatus = "do_not_disturb"
)

func ParseParticipantStatus(s string) (ParticipantStatus, error) {
	switch ParticipantStatus(s) {
	case ParticipantActive, ParticipantInactive, ParticipantEmergency, ParticipantDoNotDisturb:
		return ParticipantStatus(s), nil
	}
	return "", fmt.Errorf("%w: participant status %q", ErrInvalidInput, s)
}

type LocationType string

const (
	LocationCurrent      LocationType = "current"
	LocationMeetingPoint LocationType = "meeting_point"
	LocationHelpNeeded   LocationType = "help_needed"
)

func ParseLocationType(s string) (LocationType, error) {
	switch LocationType(s) {
	case LocationCurrent, LocationMeetingPoint, LocationHelpNeeded:
		return LocationType(s), nil
	case "":
		return LocationCurrent, nil
	}
	return "", fmt.Errorf("%w: location type %q", ErrInvalidInput, s)
}

type MessageType string

const (
	MessageText      MessageType = "text"
	MessageImage     MessageType = "image"
	MessageLocation  MessageType = "location"
	MessageAudio     MessageType = "audio"
	MessageEmergency MessageType = "emergency"
)

func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case MessageText, MessageImage, MessageLocation, MessageAudio, MessageEmergency:
		return MessageType(s), nil
	}
	return "", fmt.Errorf("%w: message type %q", ErrInvalidInput, s)
}

type MeetingPoint struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Channel is the ephemeral coordination context for one booking/tour. Past
// ExpiresAt it becomes unusable and the sweeper tombstones it.
type Channel struct {
	ID                     string         `json:"id"`
	Code                   string         `json:"code"`
	BookingID              string         `json:"booking_id"`
	TourDate               string         `json:"tour_date,omitempty"`
	Status                 ChannelStatus  `json:"status"`
	CreatedAt              time.Time      `json:"created_at"`
	ExpiresAt              time.Time      `json:"expires_at"`
	MeetingPoints          []MeetingPoint `json:"meeting_points"`
	LocationSharingEnabled bool           `json:"location_sharing_enabled"`
	PhotoSharingEnabled    bool           `json:"photo_sharing_enabled"`
}

type Participant struct {
	UserID           string
	Role             Role
	Status           ParticipantStatus
	CanShareLocation bool
	CanSendMessages  bool
	CanCall          bool
	DeviceToken      string
	LastLat          float64
	LastLng          float64
	LastLocationAt   time.Time
	JoinedAt         time.Time
}

// SharedLocation is ephemeral: never returned to clients past ExpiresAt.
type SharedLocation struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	UserID      string       `json:"user_id"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	AccuracyM   float64      `json:"accuracy_m"`
	Type        LocationType `json:"type"`
	Description string       `json:"description,omitempty"`
	PhotoURL    string       `json:"photo_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

type Message struct {
	ID             string
	ChannelID      string
	SenderID       string
	Seq            int64
	Type           MessageType
	Payload        string
	IsAnnouncement bool
	IsEmergency    bool
	ReadBy         map[string]bool
	SentAt         time.Time
	AutoDeleteAt   time.Time
}

// recentLocationWindow bounds how old a participant's live position may be
// before GetParticipants stops reporting it.
const recentLocationWindow = 5 * time.Minute

type ParticipantView struct {
	UserID           string            `json:"user_id"`
	Role             Role              `json:"role"`
	Status           ParticipantStatus `json:"status"`
	CanShareLocation bool              `json:"can_share_location"`
	CanSendMessages  bool              `json:"can_send_messages"`
	CanCall          bool              `json:"can_call"`
	Lat              *float64          `json:"lat,omitempty"`
	Lng              *float64          `json:"lng,omitempty"`
	LocationAt       *time.Time        `json:"location_at,omitempty"`
	JoinedAt         time.Time         `json:"joined_at"`
}

type MessageView struct {
	ID             string      `json:"id"`
	ChannelID      string      `json:"channel_id"`
	SenderID       string      `json:"sender_id"`
	Seq            int64       `json:"seq"`
	Type           MessageType `json:"type"`
	Payload        string      `json:"payload"`
	IsAnnouncement bool        `json:"is_announcement"`
	IsEmergency    bool        `json:"is_emergency"`
	ReadBy         []string    `json:"read_by"`
	SentAt         time.Time   `json:"sent_at"`
}

type Features struct {
	LocationSharingEnabled bool `json:"location_sharing_enabled"`
	PhotoSharingEnabled    bool `json:"photo_sharing_enabled"`
}

type CreateChannelRequest struct {
	BookingID string `json:"booking_id"`
	GuideID   string `json:"guide_id"`
	DriverID  string `json:"driver_id,omitempty"`
	TourDate  string `json:"tour_date,omitempty"`
	TTLHours  int    `json:"ttl_hours,omitempty"`
}

type CreateChannelResponse struct {
	ChannelID string    `json:"channel_id"`
	Code      string    `json:"channel_code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type JoinRequest struct {
	Code        string `json:"channel_code"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	DeviceToken string `json:"device_token,omitempty"`
}

type JoinResponse struct {
	ChannelID    string            `json:"channel_id"`
	Participants []ParticipantView `json:"participants"`
	Features     Features          `json:"features"`
}

type ShareLocationRequest struct {
	UserID      string  `json:"user_id"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	AccuracyM   float64 `json:"accuracy_m"`
	TTLMinutes  int     `json:"ttl_minutes"`
	Type        string  `json:"type,omitempty"`
	Description string  `json:"description,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty"`
}

type ShareLocationResponse struct {
	SharedLocationID string    `json:"shared_location_id"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type SendMessageRequest struct {
	UserID         string `json:"user_id"`
	Type           string `json:"type"`
	Payload        string `json:"payload"`
	IsAnnouncement bool   `json:"is_announcement,omitempty"`
	IsEmergency    bool   `json:"is_emergency,omitempty"`
	AutoDeleteMin  int    `json:"auto_delete_min,omitempty"`
}

type SendMessageResponse struct {
	MessageID string    `json:"message_id"`
	Seq       int64     `json:"seq"`
	SentAt    time.Time `json:"sent_at"`
	// DeliveryAlert is set only when an emergency broadcast could not be
	// confirmed; normal messages never populate it.
	DeliveryAlert string `json:"delivery_alert,omitempty"`
}
