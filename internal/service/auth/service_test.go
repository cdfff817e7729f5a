package auth_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-workflow/internal/config"
	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/repository"
	"incident-workflow/internal/service/auth"
)

func newAuth(t *testing.T) (auth.Service, repository.UserRepository, *config.Config) {
	t.Helper()
	repo, err := repository.NewUserRepository(t.TempDir(), nil)
	require.NoError(t, err)
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Hour}
	return auth.NewService(repo, cfg, logger.Nop()), repo, cfg
}

func addUser(t *testing.T, repo repository.UserRepository, username, hash string, active bool) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Name:         username,
		Roles:        []domain.UserRole{domain.RoleClassifier},
		Active:       active,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestAuthService_Login(t *testing.T) {
	svc, repo, _ := newAuth(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	created := addUser(t, repo, "Carla", hash, true)
	addUser(t, repo, "gone", hash, false)

	user, tokens, err := svc.Login(ctx, domain.LoginInput{Username: "carla", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)

	claims, err := svc.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, []domain.UserRole{domain.RoleClassifier}, claims.Roles)

	_, _, err = svc.Login(ctx, domain.LoginInput{Username: "carla", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, domain.LoginInput{Username: "gone", Password: "correct horse"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, domain.LoginInput{Username: "nobody", Password: "x"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, domain.LoginInput{Username: "carla"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthService_LegacyHashIsUpgraded(t *testing.T) {
	svc, repo, _ := newAuth(t)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("legacy-pass"))
	legacy := addUser(t, repo, "old", hex.EncodeToString(sum[:]), true)

	_, err := svc.Authenticate(ctx, "old", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "old", "legacy-pass")
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.NotEqual(t, legacy.PasswordHash, stored.PasswordHash)
	assert.Contains(t, stored.PasswordHash, "$2a$")

	_, err = svc.Authenticate(ctx, "old", "legacy-pass")
	assert.NoError(t, err, "the upgraded hash still accepts the same password")
}

func TestAuthService_ValidateAccessToken(t *testing.T) {
	svc, _, cfg := newAuth(t)

	_, err := svc.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{UserID: uuid.New()})
	signed, err = forged.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.Claims{UserID: uuid.New()})
	signed, err = unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(signed)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	svc, repo, _ := newAuth(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", ""))
	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users, "no password means no bootstrap admin")

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", "bootstrap-pass"))
	users, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsAdmin())

	require.NoError(t, svc.EnsureAdmin(ctx, "second", "other-pass"))
	users, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, _, err = svc.Login(ctx, domain.LoginInput{Username: "admin", Password: "bootstrap-pass"})
	assert.NoError(t, err)
}
