package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Church is a congregation using the platform.
type Church struct {
	bun.BaseModel `bun:"table:churches,alias:c"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
	// CalendarKeyword is matched case-insensitively against external event
	// titles and descriptions during calendar reconciliation.
	CalendarKeyword *string   `bun:"calendar_keyword"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ChurchLeader is a leader identity addressable by the legacy cookie path.
type ChurchLeader struct {
	bun.BaseModel `bun:"table:church_leaders,alias:cl"`

	ID        string    `bun:"id,pk"`
	ChurchID  string    `bun:"church_id,notnull"` // FK to churches(id)
	Email     string    `bun:"email,notnull,unique"`
	Name      string    `bun:"name"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// RoleAssignment grants a role to a credential-store user, optionally scoped to
// a church. A nil ChurchID means the grant is global. Rows are inserted and
// deleted, never updated.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	Role      string    `bun:"role,notnull"`
	ChurchID  *string   `bun:"church_id"` // FK to churches(id), nullable
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	CreatedBy string    `bun:"created_by"`
}

// LegacySession backs a deprecated church-leader cookie. Only the SHA256 hash
// of the cookie token is stored.
type LegacySession struct {
	bun.BaseModel `bun:"table:legacy_sessions,alias:ls"`

	ID        string    `bun:"id,pk"`
	TokenHash string    `bun:"token_hash,notnull,unique"`
	LeaderID  string    `bun:"leader_id,notnull"` // FK to church_leaders(id)
	ChurchID  string    `bun:"church_id,notnull"` // FK to churches(id)
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

// LegacyActivation is a one-time token that, when consumed, mints a legacy session.
type LegacyActivation struct {
	bun.BaseModel `bun:"table:legacy_activations,alias:la"`

	ID        string     `bun:"id,pk"`
	TokenHash string     `bun:"token_hash,notnull,unique"`
	LeaderID  string     `bun:"leader_id,notnull"` // FK to church_leaders(id)
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	UsedAt    *time.Time `bun:"used_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}
