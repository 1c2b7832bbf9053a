// Copyright (c) 2026 Maktaba. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktaba/maktaba/internal/auth"
	"github.com/maktaba/maktaba/internal/platform/apperr"
	"github.com/maktaba/maktaba/internal/platform/dberr"
	"github.com/maktaba/maktaba/internal/platform/sec"
	"github.com/maktaba/maktaba/internal/rbac"
	"github.com/maktaba/maktaba/internal/user"
)

type memoryUsers struct {
	nextID    int64
	byEmail   map[string]*user.User
	roleLinks map[int64][]int64
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]*user.User{}, roleLinks: map[int64][]int64{}}
}

func (m *memoryUsers) List(context.Context, user.Filter, int, int) ([]*user.User, int, error) {
	return nil, 0, nil
}

func (m *memoryUsers) FindByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.nextID++
	u.ID = m.nextID
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryUsers) Update(context.Context, *user.User) error { return nil }
func (m *memoryUsers) Delete(context.Context, int64) error      { return nil }

func (m *memoryUsers) AssignRole(_ context.Context, userID, roleID int64) error {
	m.roleLinks[userID] = append(m.roleLinks[userID], roleID)
	return nil
}

func (m *memoryUsers) RevokeRole(context.Context, int64, int64) error { return nil }

func (m *memoryUsers) ListIDs(context.Context, int64, int) ([]int64, error) { return nil, nil }

type fakeRoles struct{}

func (fakeRoles) FindRoleByName(_ context.Context, name string) (rbac.Role, error) {
	return rbac.Role{ID: 3, Name: name, Level: 1}, nil
}

type fakeTokens struct{}

func (fakeTokens) GenerateAccessToken(int64, string, time.Duration) (string, error) {
	return "signed-token", nil
}

func newAuthService() (*auth.Service, *memoryUsers) {
	users := newMemoryUsers()
	return auth.NewService(users, fakeRoles{}, fakeTokens{}), users
}

/*
TestRegister_AssignsBaseRole verifies new accounts are created active with
the seeded base role attached.
*/
func TestRegister_AssignsBaseRole(t *testing.T) {
	service, users := newAuthService()

	account, err := service.Register(context.Background(), auth.RegisterInput{
		Name:     "Jalal",
		Email:    "jalal@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.True(t, account.IsActive)
	assert.NotEqual(t, "correct-horse", account.PasswordHash)
	assert.Equal(t, []int64{3}, users.roleLinks[account.ID])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, _ := newAuthService()
	ctx := context.Background()

	input := auth.RegisterInput{Name: "Jalal", Email: "jalal@example.com", Password: "correct-horse"}
	_, err := service.Register(ctx, input)
	require.NoError(t, err)

	_, err = service.Register(ctx, input)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

func TestRegister_Validation(t *testing.T) {
	service, _ := newAuthService()

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Name:     "",
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Len(t, ae.Details, 3)
}

/*
TestLogin_UniformDenial checks that unknown emails, wrong passwords, and
deactivated accounts all fail with the identical 401 message.
*/
func TestLogin_UniformDenial(t *testing.T) {
	service, users := newAuthService()
	ctx := context.Background()

	_, err := service.Register(ctx, auth.RegisterInput{
		Name: "Jalal", Email: "jalal@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	cases := []struct {
		name  string
		setup func()
		input auth.LoginInput
	}{
		{"unknown_email", func() {}, auth.LoginInput{Email: "nobody@example.com", Password: "correct-horse"}},
		{"wrong_password", func() {}, auth.LoginInput{Email: "jalal@example.com", Password: "wrong"}},
		{"deactivated", func() { users.byEmail["jalal@example.com"].IsActive = false },
			auth.LoginInput{Email: "jalal@example.com", Password: "correct-horse"}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			_, err := service.Login(ctx, tt.input)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "UNAUTHORIZED", ae.Code)
			assert.Equal(t, "Invalid login credentials", ae.Message)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	service, _ := newAuthService()
	ctx := context.Background()

	_, err := service.Register(ctx, auth.RegisterInput{
		Name: "Jalal", Email: "jalal@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)

	session, err := service.Login(ctx, auth.LoginInput{Email: "jalal@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	assert.Equal(t, "signed-token", session.AccessToken)
	assert.True(t, session.ExpiresAt.After(time.Now()))
	require.NotNil(t, session.User)
	assert.True(t, sec.CheckPasswordHash("correct-horse", session.User.PasswordHash))
}
