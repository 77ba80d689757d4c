package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CalendarConnection stores OAuth tokens for one connected calendar account,
// keyed by the account email.
type CalendarConnection struct {
	bun.BaseModel `bun:"table:calendar_connections,alias:cc"`

	AccountEmail string     `bun:"account_email,pk"`
	ConnectedBy  string     `bun:"connected_by"`
	CalendarID   string     `bun:"calendar_id,notnull"`
	AccessToken  string     `bun:"access_token,notnull"`
	RefreshToken string     `bun:"refresh_token,notnull"`
	TokenType    string     `bun:"token_type"`
	Expiry       time.Time  `bun:"expiry"`
	LastSyncedAt *time.Time `bun:"last_synced_at"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// CalendarEvent is an external event associated with a church.
type CalendarEvent struct {
	bun.BaseModel `bun:"table:calendar_events,alias:ce"`

	ID           string    `bun:"id,pk"`
	ExternalID   string    `bun:"external_id,notnull,unique"`
	ChurchID     string    `bun:"church_id,notnull"` // FK to churches(id)
	AccountEmail string    `bun:"account_email,notnull"`
	Title        string    `bun:"title,notnull"`
	Description  string    `bun:"description"`
	Location     string    `bun:"location"`
	StartsAt     time.Time `bun:"starts_at,notnull"`
	EndsAt       time.Time `bun:"ends_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// CalendarEventMapping pins an external event to a church, set by an admin
// when resolving an unmatched event.
type CalendarEventMapping struct {
	bun.BaseModel `bun:"table:calendar_event_mappings,alias:cem"`

	ExternalID string    `bun:"external_id,pk"`
	ChurchID   string    `bun:"church_id,notnull"` // FK to churches(id)
	CreatedBy  string    `bun:"created_by"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UnmatchedCalendarEvent holds an external event no church could be matched
// to, pending manual resolution.
type UnmatchedCalendarEvent struct {
	bun.BaseModel `bun:"table:unmatched_calendar_events,alias:uce"`

	ExternalID   string    `bun:"external_id,pk"`
	AccountEmail string    `bun:"account_email,notnull"`
	Title        string    `bun:"title,notnull"`
	Description  string    `bun:"description"`
	Location     string    `bun:"location"`
	StartsAt     time.Time `bun:"starts_at,notnull"`
	EndsAt       time.Time `bun:"ends_at,notnull"`
	Raw          string    `bun:"raw,type:text"` // provider payload as JSON
	FirstSeenAt  time.Time `bun:"first_seen_at,notnull,default:current_timestamp"`
}

// OAuthToken is the token set written back after a refresh.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}
