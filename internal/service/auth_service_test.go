package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lane-inventory/internal/model"
	"lane-inventory/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*fixture, AuthService, UserService) {
	t.Helper()
	f := newFixture(t)
	tokens := jwt.NewManager("test-secret", time.Hour)
	return f, NewAuthService(f.userRepo, tokens, time.Hour), NewUserService(f.userRepo)
}

func TestLogin_IssuesTokenForActiveUser(t *testing.T) {
	f, auth, users := newAuthFixture(t)
	ctx := context.Background()

	created, err := users.CreateUser(ctx, CreateUserInput{
		Email: "staff@test.com", Password: "password123", Name: "Staff User", Role: model.RoleStaff,
	}, SystemActor)
	require.NoError(t, err)

	resp, err := auth.Login(ctx, "staff@test.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, created.ID, resp.User.ID)
	assert.NotNil(t, resp.User.LastLoginAt)

	user, err := auth.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, user.Role)

	var stored model.User
	require.NoError(t, f.db.First(&stored, "id = ?", created.ID).Error)
	assert.NotEmpty(t, stored.TokenVersion)
}

func TestLogin_Failures(t *testing.T) {
	_, auth, users := newAuthFixture(t)
	ctx := context.Background()

	u, err := users.CreateUser(ctx, CreateUserInput{
		Email: "admin@test.com", Password: "password123", Name: "Admin", Role: model.RoleAdmin,
	}, SystemActor)
	require.NoError(t, err)

	_, err = auth.Login(ctx, "admin@test.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@test.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	inactive := false
	_, err = users.UpdateUser(ctx, u.ID, UpdateUserInput{IsActive: &inactive}, SystemActor)
	require.NoError(t, err)
	_, err = auth.Login(ctx, "admin@test.com", "password123")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestLogin_NewSessionReplacesOld(t *testing.T) {
	_, auth, users := newAuthFixture(t)
	ctx := context.Background()
	_, err := users.CreateUser(ctx, CreateUserInput{
		Email: "staff@test.com", Password: "password123", Name: "Staff", Role: model.RoleStaff,
	}, SystemActor)
	require.NoError(t, err)

	first, err := auth.Login(ctx, "staff@test.com", "password123")
	require.NoError(t, err)
	second, err := auth.Login(ctx, "staff@test.com", "password123")
	require.NoError(t, err)

	_, err = auth.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrSessionReplaced)
	_, err = auth.Authenticate(ctx, second.Token)
	assert.NoError(t, err)

	_, err = auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	_, auth, users := newAuthFixture(t)
	ctx := context.Background()
	u, err := users.CreateUser(ctx, CreateUserInput{
		Email: "staff@test.com", Password: "password123", Name: "Staff", Role: model.RoleStaff,
	}, SystemActor)
	require.NoError(t, err)

	assert.ErrorIs(t, auth.ChangePassword(ctx, u.ID, "nope", "newpass1"), ErrWrongPassword)
	assert.ErrorIs(t, auth.ChangePassword(ctx, u.ID, "password123", "abc"), ErrInvalidOperation)
	require.NoError(t, auth.ChangePassword(ctx, u.ID, "password123", "newpass1"))

	_, err = auth.Login(ctx, "staff@test.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "staff@test.com", "newpass1")
	assert.NoError(t, err)
}

func TestUsers(t *testing.T) {
	_, _, users := newAuthFixture(t)
	ctx := context.Background()

	admin, err := users.CreateUser(ctx, CreateUserInput{
		Email: "admin@test.com", Password: "password123", Name: "Admin", Role: model.RoleAdmin,
	}, SystemActor)
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, CreateUserInput{
		Email: "admin@test.com", Password: "password123", Name: "Again", Role: model.RoleStaff,
	}, SystemActor)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = users.CreateUser(ctx, CreateUserInput{
		Email: "x@test.com", Password: "password123", Name: "X", Role: "OWNER",
	}, SystemActor)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	self := Actor{ID: admin.ID, Name: admin.Name}
	inactive := false
	_, err = users.UpdateUser(ctx, admin.ID, UpdateUserInput{IsActive: &inactive}, self)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	role := model.RoleStaff
	updated, err := users.UpdateUser(ctx, admin.ID, UpdateUserInput{Role: &role}, self)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, updated.Role)

	list, err := users.GetUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
