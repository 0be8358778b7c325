// Package auth handles the combined login-or-register flow and bearer
// token issuance for the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"squadmarket/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateUser(ctx context.Context, email, passwordHash string) (*store.User, error)
}

type Service struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
}

func NewService(st UserStore, secret string, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		log:    logger,
	}
}

// Authenticate logs a user in, registering them first if the email is
// unknown. isNew tells the caller to kick off team provisioning.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user *store.User, isNew bool, err error) {
	user, err = s.store.UserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			return nil, false, err
		}
		user, err = s.register(ctx, email, password)
		if err != nil {
			return nil, false, err
		}
		s.log.Info("new user registered", "user_id", user.ID, "email", email)
		return user, true, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, false, ErrInvalidCredentials
	}
	return user, false, nil
}

func (s *Service) register(ctx context.Context, email, password string) (*store.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, email, string(hash))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrEmailTaken) {
		return nil, err
	}

	// Two concurrent first logins raced; fall back to verifying
	// against the row the winner created.
	user, err = s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Service) MintToken(user *store.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken returns the user id a valid token was minted for.
func (s *Service) VerifyToken(tokenString string) (int64, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
