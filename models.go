package auth

import (
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the locally persisted user. It only carries the attributes the
// auth service owns; the canonical profile lives in reference data.
type User struct {
	bun.BaseModel `bun:"table:auth_users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Enabled       *bool      `bun:"enabled" json:"enabled,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsEnabled treats an unset flag as enabled.
func (u *User) IsEnabled() bool {
	if u == nil {
		return false
	}
	return u.Enabled == nil || *u.Enabled
}

// UserMainDetails is the reference data user profile.
type UserMainDetails struct {
	ID              uuid.UUID         `json:"id"`
	Username        string            `json:"username"`
	Email           string            `json:"email,omitempty"`
	JobTitle        string            `json:"jobTitle,omitempty"`
	Timezone        string            `json:"timezone,omitempty"`
	HomeFacilityID  *uuid.UUID        `json:"homeFacilityId,omitempty"`
	Verified        bool              `json:"verified"`
	Active          bool              `json:"active"`
	LoginRestricted bool              `json:"loginRestricted"`
	AllowNotify     *bool             `json:"allowNotify,omitempty"`
	ExtraData       map[string]string `json:"extraData,omitempty"`
	RoleAssignments RoleAssignments   `json:"roleAssignments,omitempty"`
}

// UserRequest is the inbound user payload. A nil ID means create.
// Email is a pointer so an absent value and a blank value stay distinct.
type UserRequest struct {
	ID              *uuid.UUID        `json:"id,omitempty"`
	Username        string            `json:"username"`
	Email           *string           `json:"email,omitempty"`
	Password        string            `json:"password,omitempty"`
	JobTitle        string            `json:"jobTitle,omitempty"`
	Timezone        string            `json:"timezone,omitempty"`
	HomeFacilityID  *uuid.UUID        `json:"homeFacilityId,omitempty"`
	Verified        bool              `json:"verified"`
	Active          bool              `json:"active"`
	LoginRestricted bool              `json:"loginRestricted"`
	AllowNotify     *bool             `json:"allowNotify,omitempty"`
	ExtraData       map[string]string `json:"extraData,omitempty"`
	RoleAssignments RoleAssignments   `json:"roleAssignments,omitempty"`
	Enabled         *bool             `json:"enabled,omitempty"`
}

// GetEmail returns the email or an empty string when absent
func (r *UserRequest) GetEmail() string {
	if r == nil || r.Email == nil {
		return ""
	}
	return *r.Email
}

// UserID returns the requested id, nil when absent or the nil uuid
func (r *UserRequest) UserID() *uuid.UUID {
	if r == nil || r.ID == nil || *r.ID == uuid.Nil {
		return nil
	}
	return r.ID
}

func equalUUIDPtr(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalExtraData(a, b map[string]string) bool {
	return maps.Equal(a, b)
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}

// String returns a pointer to v
func String(v string) *string {
	return &v
}
