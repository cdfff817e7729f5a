package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"incident-workflow/internal/config"
	"incident-workflow/internal/domain"
	"incident-workflow/internal/pkg/logger"
	"incident-workflow/internal/pkg/validation"
	"incident-workflow/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Service interface {
	// Authenticate checks a username and password against active users.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, input domain.LoginInput) (*domain.User, *domain.TokenPair, error)
	ValidateAccessToken(token string) (*Claims, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// EnsureAdmin creates the bootstrap admin when the user store is empty.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type Claims struct {
	UserID   uuid.UUID         `json:"user_id"`
	Username string            `json:"username"`
	Roles    []domain.UserRole `json:"roles"`
	jwt.RegisteredClaims
}

type service struct {
	userRepo repository.UserRepository
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
}

func NewService(userRepo repository.UserRepository, cfg *config.Config, log *logger.Logger) Service {
	return &service{
		userRepo: userRepo,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		s.log.Security("login_failed", username, map[string]interface{}{"reason": "unknown or inactive user"})
		return nil, ErrInvalidCredentials
	}

	if isLegacyHash(user.PasswordHash) {
		if !matchLegacyHash(user.PasswordHash, password) {
			s.log.Security("login_failed", username, map[string]interface{}{"reason": "password mismatch"})
			return nil, ErrInvalidCredentials
		}
		s.upgradeHash(ctx, user, password)
		return user, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Security("login_failed", username, map[string]interface{}{"reason": "password mismatch"})
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, input domain.LoginInput) (*domain.User, *domain.TokenPair, error) {
	if err := validation.Struct(input); err != nil {
		return nil, nil, err
	}

	user, err := s.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.generateAccessToken(user)
	if err != nil {
		return nil, nil, err
	}

	s.log.Audit(user.Username, "login", "session", true, nil)
	return user, tokens, nil
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *service) EnsureAdmin(ctx context.Context, username, password string) error {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	if password == "" {
		s.log.WithComponent("auth").Warn("user store is empty and ADMIN_PASSWORD is not set; no one can log in")
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	admin := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Name:         "Administrator",
		Roles:        []domain.UserRole{domain.RoleAdmin},
		Active:       true,
		CreatedAt:    domain.NewTimestamp(s.now()),
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return err
	}

	s.log.WithComponent("auth").WithField("username", username).Info("created bootstrap admin")
	return nil
}

func (s *service) generateAccessToken(user *domain.User) (*domain.TokenPair, error) {
	now := s.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTAccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken: signed,
		ExpiresIn:   int64(s.cfg.JWTAccessExpiry.Seconds()),
	}, nil
}

// upgradeHash replaces a legacy hash with bcrypt. Failure only costs the
// upgrade; the login itself already succeeded.
func (s *service) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		return
	}
	user.PasswordHash = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.WithComponent("auth").WithError(err).WithField("username", user.Username).Warn("failed to upgrade legacy password hash")
	}
}

// isLegacyHash recognizes unsalted SHA-256 hex digests.
func isLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func matchLegacyHash(hash, password string) bool {
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(hash))) == 1
}

// HashPassword produces the stored form of a new password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
