package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pustak-labs/library-admin-api/internal/models"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	verifier, err := NewStaticCredentials("admin", "s3cret")
	require.NoError(t, err)
	return NewAuthService(verifier, validator.New(), zap.NewNop(), AuthServiceConfig{
		AccessTokenSecret: "test-signing-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "library-admin-api",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc := newTestAuthService(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "admin", resp.Username)
	assert.Greater(t, resp.ExpiresIn, int64(3500))

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "library-admin-api", claims.Issuer)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongUsername(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "root", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginMissingFields(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsForgedSignature(t *testing.T) {
	svc := newTestAuthService(t)

	other := NewAuthService(nil, validator.New(), zap.NewNop(), AuthServiceConfig{
		AccessTokenSecret: "another-secret",
		AccessTokenExpiry: time.Hour,
	})
	forged, _, err := other.generateAccessToken("admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
