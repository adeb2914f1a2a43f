package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLeader   Role = "leader"
	RoleEmployee Role = "employee"
)

// ParseRole accepts any casing ("Admin", "ADMIN", "admin").
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleLeader:
		return RoleLeader, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleLeader || r == RoleEmployee
}

type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"` // admin | leader | employee
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
