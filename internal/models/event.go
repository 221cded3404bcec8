package models

import "time"

// EventModel is a community event shown on the listing and the calendar feed.
type EventModel struct {
	Base
	Title       string     `json:"title"       gorm:"not null"`
	Description string     `json:"description" gorm:"type:text"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"   gorm:"index;not null"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    int        `json:"capacity"    gorm:"default:0"` // 0 = unlimited
	Published   bool       `json:"published"   gorm:"default:false"`
}

func (EventModel) TableName() string { return "events" }

// RSVP statuses.
const (
	RSVPGoing    = "going"
	RSVPMaybe    = "maybe"
	RSVPDeclined = "declined"
)

// RSVPModel records one attendee response. One row per (event, email); a
// repeated submit for the same pair updates the earlier answer.
type RSVPModel struct {
	Base
	EventID string `json:"event_id" gorm:"index:idx_rsvp_event_email,unique;not null"`
	Email   string `json:"email"    gorm:"index:idx_rsvp_event_email,unique;not null"`
	Name    string `json:"name"     gorm:"not null"`
	Status  string `json:"status"   gorm:"not null;default:going"`
}

func (RSVPModel) TableName() string { return "event_rsvps" }
