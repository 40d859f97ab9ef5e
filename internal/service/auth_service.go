package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

// ErrInvalidSession reports a missing, expired, malformed or revoked session token.
var ErrInvalidSession = errors.New("invalid or expired session")

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultRedirect    = "/api/v1/dashboard"
	revokedSessionKey  = "session:revoked:"
	minPasswordLength  = 6
	minUsernameLength  = 3
	maxRealNameLength  = 50
	studentNumberRules = "len=7,numeric"
)

// AuthConfig carries session and registration settings.
type AuthConfig struct {
	Secret            string
	TTL               time.Duration
	TeacherInviteCode string
}

// AuthService manages accounts, sessions and the student profile.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.SessionResponse, error)
	Logout(ctx context.Context, token string) error
	VerifyToken(ctx context.Context, token string) (dto.Identity, error)
	Me(ctx context.Context, identity dto.Identity) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, identity dto.Identity, payload dto.ProfileUpdateRequest) (dto.UserResponse, error)
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	users      repository.UserRepository
	revocation *redis.Client
	secret     []byte
	ttl        time.Duration
	inviteCode string
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
	hashCost   int
}

// NewAuthService constructs the auth service. A nil redis client disables token revocation.
func NewAuthService(users repository.UserRepository, revocation *redis.Client, cfg AuthConfig, validate *validator.Validate, logger zerolog.Logger) AuthService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	return &authService{
		users:      users,
		revocation: revocation,
		secret:     []byte(cfg.Secret),
		ttl:        ttl,
		inviteCode: strings.TrimSpace(cfg.TeacherInviteCode),
		validator:  validate,
		logger:     logger.With().Str("component", "auth_service").Logger(),
		now:        time.Now,
		hashCost:   bcrypt.DefaultCost,
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	username := strings.TrimSpace(payload.Username)
	if len(username) < minUsernameLength {
		return dto.UserResponse{}, fmt.Errorf("%w: username must have at least %d characters", ErrInvalidInput, minUsernameLength)
	}

	user := models.User{Username: username, Role: payload.Role}

	switch payload.Role {
	case models.RoleTeacher:
		if s.inviteCode == "" || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(payload.InviteCode)), []byte(s.inviteCode)) != 1 {
			return dto.UserResponse{}, ErrInvalidInviteCode
		}
	case models.RoleStudent:
		number := strings.TrimSpace(payload.StudentNumber)
		if err := s.validator.Var(number, "required,"+studentNumberRules); err != nil {
			return dto.UserResponse{}, fmt.Errorf("%w: student number must be exactly 7 digits", ErrInvalidInput)
		}
		realName := strings.TrimSpace(payload.RealName)
		if realName == "" {
			return dto.UserResponse{}, fmt.Errorf("%w: real name is required", ErrInvalidInput)
		}

		taken, err := s.users.StudentNumberTaken(ctx, number, 0)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrStudentNumberTaken
		}

		user.StudentNumber = &number
		user.RealName = realName
	}

	taken, err := s.users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if taken {
		return dto.UserResponse{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.hashCost)
	if err != nil {
		return dto.UserResponse{}, err
	}
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, &user); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to register user")
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	return dto.NewUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	user, err := s.users.GetByUsername(ctx, payload.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrInvalidCredentials
		}
		return dto.SessionResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		return dto.SessionResponse{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("failed to sign session token")
		return dto.SessionResponse{}, err
	}

	redirect := defaultRedirect
	if next := strings.TrimSpace(payload.Next); IsLocalRedirect(next) {
		redirect = next
	}

	return dto.SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
		Redirect:  redirect,
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return ErrInvalidSession
	}
	if s.revocation == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocation.Set(ctx, revokedSessionKey+claims.ID, "1", ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to revoke session token")
		return err
	}
	return nil
}

func (s *authService) VerifyToken(ctx context.Context, token string) (dto.Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return dto.Identity{}, ErrInvalidSession
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return dto.Identity{}, ErrInvalidSession
	}
	if claims.Role != models.RoleTeacher && claims.Role != models.RoleStudent {
		return dto.Identity{}, ErrInvalidSession
	}

	if s.revocation != nil && claims.ID != "" {
		revoked, err := s.revocation.Exists(ctx, revokedSessionKey+claims.ID).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to check session revocation")
		} else if revoked > 0 {
			return dto.Identity{}, ErrInvalidSession
		}
	}

	return dto.Identity{UserID: uint(userID), Role: claims.Role}, nil
}

func (s *authService) Me(ctx context.Context, identity dto.Identity) (dto.UserResponse, error) {
	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfile changes one profile field. Everything except the username
// requires the current password.
func (s *authService) UpdateProfile(ctx context.Context, identity dto.Identity, payload dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if !identity.IsStudent() {
		return dto.UserResponse{}, ErrStudentOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if payload.Field != "username" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.CurrentPassword)) != nil {
			return dto.UserResponse{}, ErrInvalidCredentials
		}
	}

	value := strings.TrimSpace(payload.Value)
	switch payload.Field {
	case "username":
		if len(value) < minUsernameLength {
			return dto.UserResponse{}, fmt.Errorf("%w: username must have at least %d characters", ErrInvalidInput, minUsernameLength)
		}
		taken, err := s.users.UsernameTaken(ctx, value, user.ID)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrUsernameTaken
		}
		user.Username = value

	case "password":
		if len(payload.Value) < minPasswordLength {
			return dto.UserResponse{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(payload.Value), s.hashCost)
		if err != nil {
			return dto.UserResponse{}, err
		}
		user.PasswordHash = string(hash)

	case "student_number":
		if err := s.validator.Var(value, studentNumberRules); err != nil {
			return dto.UserResponse{}, fmt.Errorf("%w: student number must be exactly 7 digits", ErrInvalidInput)
		}
		taken, err := s.users.StudentNumberTaken(ctx, value, user.ID)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrStudentNumberTaken
		}
		user.StudentNumber = &value

	case "real_name":
		if value == "" || len(value) > maxRealNameLength {
			return dto.UserResponse{}, fmt.Errorf("%w: real name must have 1 to %d characters", ErrInvalidInput, maxRealNameLength)
		}
		user.RealName = value
	}

	if err := s.users.Update(ctx, &user); err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Str("field", payload.Field).Msg("failed to update profile")
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("field", payload.Field).Msg("profile updated")
	return dto.NewUserResponse(user), nil
}

func (s *authService) loadUser(ctx context.Context, identity dto.Identity) (models.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *authService) issueToken(user models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := sessionClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *authService) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// IsLocalRedirect reports whether target is a same-origin path.
func IsLocalRedirect(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, "\\")
}
