package service

import (
	"context"
	"testing"
	"time"

	"codementor/internal/common"
	"codementor/internal/common/security"
	"codementor/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	security.InitJWT([]byte("test-secret"), time.Hour)
	store := repository.NewMemoryStore()
	return NewAuthService(store, store)
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Username: " ada ", Email: "Ada@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada", resp.User.Username)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Empty(t, resp.User.HashedPassword)

	byEmail, err := svc.Login(ctx, LoginRequest{LoginField: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, byEmail.User.ID)

	byName, err := svc.Login(ctx, LoginRequest{LoginField: "ada", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, byName.User.ID)

	token, err := security.TokenAuth.Decode(byName.Token)
	require.NoError(t, err)
	uid, ok := token.Get("user_id")
	require.True(t, ok)
	assert.Equal(t, resp.User.ID, uid)

	_, err = svc.Login(ctx, LoginRequest{LoginField: "ada", Password: "wrong password"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = svc.Login(ctx, LoginRequest{LoginField: "nobody", Password: "whatever1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Username: "", Email: "a@b.c", Password: "longenough"})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	_, err = svc.Signup(ctx, SignupRequest{Username: "bob", Email: "not-an-email", Password: "longenough"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Signup(ctx, SignupRequest{Username: "bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Signup(ctx, SignupRequest{Username: "bob", Email: "bob@example.com", Password: "longenough"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, SignupRequest{Username: "bob", Email: "bob2@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestAuthService_Profile(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Username: "grace", Email: "grace@example.com", Password: "hopper123"})
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace", profile.User.Username)
	assert.Empty(t, profile.User.HashedPassword)
	assert.Equal(t, resp.User.ID, profile.Stats.UserID)
	assert.Zero(t, profile.Stats.TotalSolved)

	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
