package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/authz"
	"taskhub/internal/models"
	"taskhub/internal/utils"
)

var testSecret = []byte("test-secret")

func newAuth(users *fakeUsers) *authService {
	return NewAuthService(users, AuthOptions{Secret: testSecret}).(*authService)
}

func TestAuth_SignupLoginRefresh(t *testing.T) {
	users := newFakeUsers()
	svc := newAuth(users)
	ctx := context.Background()

	res, err := svc.Signup(ctx, models.SignupRequest{Name: " Dana ", Email: "dana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Dana", res.User.Name)
	assert.Equal(t, authz.RoleUser, res.User.RoleID)

	claims, err := utils.ParseAccessToken(testSecret, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, authz.RoleUser, claims.RoleID)

	_, err = svc.Login(ctx, "dana@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	logged, err := svc.Login(ctx, "dana@example.com", "secret1")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, logged.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, logged.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	_, err = svc.Refresh(ctx, logged.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials, "the old refresh token is rotated out")
}

func TestAuth_SignupRejections(t *testing.T) {
	users := newFakeUsers(models.User{ID: 1, Email: "taken@example.com"})
	svc := newAuth(users)

	_, err := svc.Signup(context.Background(), models.SignupRequest{Name: "x", Email: "new@example.com", Password: "123"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Signup(context.Background(), models.SignupRequest{Name: "x", Email: "taken@example.com", Password: "123456"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "email already registered", Reason(err))
}

func TestAuth_RefreshExpired(t *testing.T) {
	users := newFakeUsers()
	svc := newAuth(users)
	ctx := context.Background()

	res, err := svc.Signup(ctx, models.SignupRequest{Name: "Eve", Email: "eve@example.com", Password: "secret1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_LogoutRevokesRefreshToken(t *testing.T) {
	users := newFakeUsers()
	svc := newAuth(users)
	ctx := context.Background()

	res, err := svc.Signup(ctx, models.SignupRequest{Name: "Finn", Email: "finn@example.com", Password: "secret1"})
	require.NoError(t, err)

	actor := authz.Actor{ID: res.User.ID, RoleID: res.User.RoleID}
	require.NoError(t, svc.Logout(ctx, actor))

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	stored, err := users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	// a second logout is harmless
	require.NoError(t, svc.Logout(ctx, actor))
	assert.ErrorIs(t, svc.Logout(ctx, authz.Actor{}), ErrInvalidCredentials)
}

func TestAuth_SeedAdminIsIdempotent(t *testing.T) {
	users := newFakeUsers()
	svc := newAuth(users)
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmin(ctx, "Root", "root@example.com", "rootpass"))
	require.NoError(t, svc.SeedAdmin(ctx, "Root", "root@example.com", "rootpass"))

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, authz.RoleAdmin, all[0].RoleID)

	res, err := svc.Login(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, res.User.RoleID)
}
