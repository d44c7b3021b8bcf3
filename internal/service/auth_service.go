package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pustak-labs/library-admin-api/internal/models"
	appErrors "github.com/pustak-labs/library-admin-api/pkg/errors"
)

// CredentialVerifier checks a credential pair. Injected so the gate
// stays pluggable; the default implementation holds the configured
// admin pair.
type CredentialVerifier interface {
	Verify(username, password string) error
}

// StaticCredentials verifies against a single configured admin pair.
// The password is bcrypt-hashed at construction time so the plaintext
// never lives on the struct.
type StaticCredentials struct {
	username     string
	passwordHash []byte
}

// NewStaticCredentials hashes the configured password and returns the verifier.
func NewStaticCredentials(username, password string) (*StaticCredentials, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &StaticCredentials{username: username, passwordHash: hash}, nil
}

// Verify implements CredentialVerifier.
func (c *StaticCredentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(c.username), []byte(username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	return nil
}

// AuthServiceConfig defines token issuance parameters.
type AuthServiceConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService authenticates the administrator and issues access tokens.
type AuthService struct {
	verifier  CredentialVerifier
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthServiceConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(verifier CredentialVerifier, validate *validator.Validate, logger *zap.Logger, config AuthServiceConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{verifier: verifier, validator: validate, logger: logger, config: config}
}

// Login verifies the credential pair and returns an issued token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	if err := s.verifier.Verify(req.Username, req.Password); err != nil {
		s.logger.Warn("rejected login attempt", zap.String("username", req.Username))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	token, expiresAt, err := s.generateAccessToken(req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		IssuedAt:    time.Now().UTC(),
		Username:    req.Username,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(username string) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
