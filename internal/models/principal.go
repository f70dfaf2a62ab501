package models

import (
	"strings"
)

// Role is the platform role carried in the auth token
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

var rolePermissions = map[Role][]string{
	RoleCandidate: {"quests:read", "submissions:write", "submissions:read", "badges:*", "leaderboard:read", "attachments:write"},
	RoleRecruiter: {"quests:*", "submissions:*", "reviews:write", "badges:*", "leaderboard:read", "attachments:write"},
	RoleAdmin:     {"*"},
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

// NewPrincipal builds a principal with the permissions granted to its role.
// Unknown roles fall back to candidate.
func NewPrincipal(userID, email string, role Role) *Principal {
	perms, ok := rolePermissions[role]
	if !ok {
		role = RoleCandidate
		perms = rolePermissions[RoleCandidate]
	}
	return &Principal{
		UserID:      userID,
		Email:       email,
		Role:        role,
		Permissions: perms,
	}
}

// IsAdmin reports whether the principal bypasses ownership checks
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// HasPermission checks if the principal has specific permission
// Supports wildcard permissions like "quests:*"
func (p *Principal) HasPermission(required string) bool {
	if p == nil || p.UserID == "" {
		return false
	}

	for _, perm := range p.Permissions {
		if perm == required || perm == "*" {
			return true
		}

		// "quests:*" matches "quests:read"
		if strings.HasSuffix(perm, ":*") {
			prefix := strings.TrimSuffix(perm, "*")
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}
	}

	return false
}

// MaskedUserID returns first 8 characters of the user id for logging
func (p *Principal) MaskedUserID() string {
	if len(p.UserID) < 8 {
		return "***"
	}
	return p.UserID[:8] + "..."
}
