package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

func newAuthFixture() (*AuthService, *fakeProfileRepo) {
	profiles := newFakeProfileRepo()
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4, // min cost keeps the test fast
	}, profiles)
	return svc, profiles
}

func TestRegisterIssuesUserSession(t *testing.T) {
	svc, _ := newAuthFixture()

	session, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Nora",
		Email:    "Nora@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, domain.RoleUser, session.Profile.Role)
	assert.Equal(t, "nora@example.com", session.Profile.Email)

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, claims.ProfileID)
	assert.Equal(t, domain.RoleUser, claims.Role)
}

func TestRegisterValidationAndConflict(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "N", Email: "n@example.com", Password: "short"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = svc.Register(ctx, RegisterInput{Name: "Nora", Email: "nora@example.com", Password: "correct horse"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "NORA@example.com", Password: "correct horse"})
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestLogin(t *testing.T) {
	svc, profiles := newAuthFixture()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Nora", Email: "nora@example.com", Password: "correct horse"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, "nora@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, registered.Profile.ID, session.Profile.ID)

	_, err = svc.Login(ctx, "nora@example.com", "wrong")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
	_, err = svc.Login(ctx, "ghost@example.com", "whatever")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	// suspended profiles cannot log in
	profile := profiles.profiles[registered.Profile.ID]
	profile.Status = domain.ProfileStatusSuspended
	profiles.profiles[registered.Profile.ID] = profile
	_, err = svc.Login(ctx, "nora@example.com", "correct horse")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}
