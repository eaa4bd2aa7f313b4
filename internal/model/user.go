// Package model defines domain entities for the application.
package model

import "time"

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleVoter      Role = "voter"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	RoleAuditor    Role = "auditor"
)

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleVoter, RoleAdmin, RoleSuperadmin, RoleAuditor}

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleVoter, RoleAdmin, RoleSuperadmin, RoleAuditor:
		return true
	}
	return false
}

// RateLimitConfig defines rate limit parameters for a role.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

// RoleRateLimits maps roles to their API rate limit configurations.
// A zero RequestsPerMinute means unlimited.
var RoleRateLimits = map[Role]RateLimitConfig{
	RoleVoter:      {RequestsPerMinute: 60, Burst: 10},
	RoleAuditor:    {RequestsPerMinute: 120, Burst: 20},
	RoleAdmin:      {RequestsPerMinute: 300, Burst: 50},
	RoleSuperadmin: {RequestsPerMinute: 0, Burst: 0},
}

// GetRateLimitConfig returns the rate limit configuration for a role.
// Unknown roles fall back to the voter tier.
func GetRateLimitConfig(role Role) RateLimitConfig {
	if config, ok := RoleRateLimits[role]; ok {
		return config
	}
	return RoleRateLimits[RoleVoter]
}

// User represents a registered account: voter, admin, superadmin, or auditor.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	StudentID    *string   `json:"student_id,omitempty"`
	Level        *string   `json:"level,omitempty"`
	Course       *string   `json:"course,omitempty"`
	PasswordHash string    `json:"-"` // Never serialize
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanVote returns true if the user may cast ballots.
// Voting is the one gate a superadmin does not pass: only voters vote.
func (u *User) CanVote() bool {
	return u.Role == RoleVoter
}

// AuthContext holds authenticated request context.
// This is injected into the request context by auth middleware.
type AuthContext struct {
	UserID string
	Email  string
	Role   Role
}

// HasRole checks if the auth context satisfies any of the given roles.
// A superadmin satisfies every role check.
func (a *AuthContext) HasRole(roles ...Role) bool {
	if a.Role == RoleSuperadmin {
		return true
	}
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// CachedAccount represents account data stored in Redis for token
// verification. Uses string types for Redis hash compatibility.
type CachedAccount struct {
	UserID    string `redis:"user_id"`
	Email     string `redis:"email"`
	Role      string `redis:"role"`
	UpdatedAt string `redis:"updated_at"` // Unix timestamp
}
