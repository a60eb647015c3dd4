package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuongmay/garment-plm/internal/config"
	"github.com/xuongmay/garment-plm/internal/plm/entity"
	"github.com/xuongmay/garment-plm/internal/plm/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	refreshKeyPrefix = "token:refresh:"
	otpKeyPrefix     = "otp:"
	otpTTL           = 10 * time.Minute
)

// AuthService issues JWT pairs, tracks refresh tokens in redis and runs
// the OTP password-reset flow.
type AuthService struct {
	users *repository.UserRepository
	rdb   *redis.Client
	email *EmailService
	cfg   *config.Config
}

func NewAuthService(users *repository.UserRepository, rdb *redis.Client, email *EmailService, cfg *config.Config) *AuthService {
	return &AuthService{users: users, rdb: rdb, email: email, cfg: cfg}
}

// TokenPair is the login/refresh payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type LoginResult struct {
	TokenPair
	User *entity.User `json:"user"`
}

// Login authenticates by username or email. Failures are deliberately
// indistinguishable.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{TokenPair: *pair, User: user}, nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.rdb.Set(ctx, refreshKeyPrefix+refreshJti, user.ID, s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

// parseRefreshToken verifies the signature, type claim and the redis
// jti mapping, returning the jti and the owning user id.
func (s *AuthService) parseRefreshToken(ctx context.Context, tokenString string) (jti, userID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidCredentials
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "refresh" {
		return "", "", ErrInvalidCredentials
	}
	jti, _ = claims["jti"].(string)
	if jti == "" {
		return "", "", ErrInvalidCredentials
	}

	userID, err = s.rdb.Get(ctx, refreshKeyPrefix+jti).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("lookup refresh token: %w", err)
	}
	return jti, userID, nil
}

// Refresh rotates the token pair. The presented refresh token is
// revoked so each token refreshes at most once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	jti, userID, err := s.parseRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	s.rdb.Del(ctx, refreshKeyPrefix+jti)
	return s.generateTokenPair(ctx, user)
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if jti, _, err := s.parseRefreshToken(ctx, refreshToken); err == nil {
		s.rdb.Del(ctx, refreshKeyPrefix+jti)
	}
}

// ForgotPassword issues a 6-digit OTP, stores it in redis with a
// 10-minute TTL and mails it. The OTP is keyed by the account email so a
// later code replaces an earlier one.
func (s *AuthService) ForgotPassword(ctx context.Context, identifier string) error {
	user, err := s.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("account not found: %w", err)
		}
		return fmt.Errorf("find user: %w", err)
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	key := otpKeyPrefix + strings.ToLower(user.Email)
	if err := s.rdb.Set(ctx, key, code, otpTTL).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.email.SendOTP(user.Name, user.Email, code)
	return nil
}

// ResetPassword checks the OTP, consumes it and rehashes the password.
func (s *AuthService) ResetPassword(ctx context.Context, identifier, otp, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", ErrInvalid)
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("account not found: %w", err)
		}
		return fmt.Errorf("find user: %w", err)
	}

	key := otpKeyPrefix + strings.ToLower(user.Email)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil || stored != otp {
		return fmt.Errorf("invalid or expired code: %w", ErrInvalid)
	}
	// One-time use.
	s.rdb.Del(ctx, key)

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
