package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// bcrypt only uses the first 72 bytes of a password
const maxPasswordBytes = 72

const tokenTTL = 30 * time.Minute

// Claims is the JWT payload issued at login
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService registers users, verifies credentials and issues bearer tokens.
// The core trusts identities it produces; roles are checked once here and in
// the route middleware, never re-validated downstream.
type AuthService struct {
	repo   repository.LedgerStore
	secret []byte
	now    func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(repo repository.LedgerStore, secret string) *AuthService {
	return &AuthService{
		repo:   repo,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// truncated returns the password bytes bcrypt will actually use
func truncated(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// Register creates a new user with a hashed credential
func (s *AuthService) Register(name, email, password string, role models.Role) (models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("service: %w - name and a valid email are required", auctionerrors.ErrInvalidInput)
	}
	if password == "" {
		return models.User{}, fmt.Errorf("service: %w - password is required", auctionerrors.ErrInvalidInput)
	}
	if !role.IsValid() {
		return models.User{}, fmt.Errorf("service: %w - role must be customer or manager", auctionerrors.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword(truncated(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("service: failed to hash password: %w", err)
	}

	user := models.User{
		UserID:       utils.GenerateID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.CreateUser(user); err != nil {
		return models.User{}, fmt.Errorf("service: failed to register %s: %w", email, err)
	}

	utils.Info("user registered", map[string]any{"user_id": user.UserID, "role": string(role)})
	return user, nil
}

// Login verifies credentials and returns a signed bearer token with the user
func (s *AuthService) Login(email, password string) (string, models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(email)
	if err != nil {
		return "", models.User{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), truncated(password)); err != nil {
		return "", models.User{}, fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}

	now := s.now().UTC()
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.User{}, fmt.Errorf("service: failed to sign token: %w", err)
	}
	return token, user, nil
}

// VerifyToken parses and validates a bearer token, returning the caller's
// user ID and role.
func (s *AuthService) VerifyToken(tokenString string) (string, models.Role, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}

	role := models.Role(claims.Role)
	if claims.Subject == "" || !role.IsValid() {
		return "", "", fmt.Errorf("service: %w", auctionerrors.ErrInvalidCredentials)
	}
	return claims.Subject, role, nil
}

// GetUser returns the user with the given ID
func (s *AuthService) GetUser(userID string) (models.User, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return models.User{}, fmt.Errorf("service: %w", err)
	}
	return user, nil
}
