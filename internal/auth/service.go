// Copyright (c) 2026 Maktaba. All rights reserved.

// Package auth implements account registration, login, and profile access.
//
// # Architecture
//
// The service orchestrates the user repository and the token provider. It
// issues stateless RS256 access tokens carrying only the holder's identity;
// what the holder may DO is always re-evaluated against the database.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/sec"
	"github.com/maktaba/maktaba/internal/platform/validate"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/internal/user"
)

// TokenProvider defines the contract for generating access tokens.
type TokenProvider interface {
	GenerateAccessToken(userID int64, name string, timeToLive time.Duration) (string, error)
}

// RoleResolver finds the seeded base role for new registrations.
type RoleResolver interface {
	FindRoleByName(ctx context.Context, name string) (rbac.Role, error)
}

// Service implements authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing,
// registration, or login logic must be reviewed before merging.
type Service struct {
	users  user.Repository
	roles  RoleResolver
	tokens TokenProvider
}

// NewService constructs the authentication service.
func NewService(users user.Repository, roles RoleResolver, tokens TokenProvider) *Service {
	return &Service{users: users, roles: roles, tokens: tokens}
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register validates, hashes, and persists a brand new account.
//
// # Business Rules
//   - Emails must be unique.
//   - Every new account starts with the base "user" role.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	v := &validate.Validator{}
	v.Required("name", input.Name).MaxLen("name", input.Name, 120)
	v.Required("email", input.Email).Email("email", input.Email)
	v.MinLen("password", input.Password, 8)
	if err := v.Err(); err != nil {
		return nil, err
	}

	// Return a client-safe Conflict instead of leaking a database error.
	if _, err := service.users.FindByEmail(ctx, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	account := &user.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := service.users.Create(ctx, account); err != nil {
		return nil, err
	}

	baseRole, err := service.roles.FindRoleByName(ctx, rbac.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("auth_service_base_role_failed: %w", err)
	}
	if err := service.users.AssignRole(ctx, account.ID, baseRole.ID); err != nil {
		return nil, err
	}

	return account, nil
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginSession is a successfully established session.
type LoginSession struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *user.User `json:"user"`
}

// Login validates credentials and issues an access token.
//
// The error is identical for an unknown email, a wrong password, and a
// deactivated account, to prevent account enumeration.
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {
	account, err := service.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	if !account.IsActive {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	accessToken, err := service.tokens.GenerateAccessToken(account.ID, account.Name, constants.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(constants.AccessTokenTTL),
		User:        account,
	}, nil
}

// Profile returns the authenticated caller's own account.
func (service *Service) Profile(ctx context.Context, userID int64) (*user.User, error) {
	return service.users.FindByID(ctx, userID)
}
