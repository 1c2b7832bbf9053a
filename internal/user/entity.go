// Copyright (c) 2026 Maktaba. All rights reserved.

// Package user implements member account management: listing, profile
// maintenance, and role assignment under the hierarchical policy.
package user

import (
	"time"

	"github.com/maktaba/maktaba/internal/rbac"
)

// User is a member account. PasswordHash never serializes.
type User struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	IsActive     bool        `json:"is_active"`
	Roles        []rbac.Role `json:"-"`
	RoleNames    []string    `json:"roles,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Filter narrows user listings.
type Filter struct {
	Query string // matches name or email
}

// WithRoleNames populates the serializable role-name slice from Roles.
func (u *User) WithRoleNames() *User {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	u.RoleNames = names
	return u
}
