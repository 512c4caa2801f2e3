package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

const tokenTTL = 24 * time.Hour

// adminClaims is the JWT payload issued to a signed-in admin.
type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	repo       ports.AdminRepository
	jwtSecret  []byte
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(repo ports.AdminRepository, jwtSecret string) *AuthService {
	return &AuthService{
		repo:       repo,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Login checks the password and returns a signed token. Unknown users and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, &domain.ValidationError{Message: "username and password are required"}
	}

	admin, err := s.repo.GetAdmin(ctx, username)
	if err != nil {
		return "", nil, domain.WrapStorage("get admin", err)
	}
	if admin == nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.IssueToken(admin.Username, admin.Role)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// IssueToken signs an HS256 token for subject that expires after 24h.
func (s *AuthService) IssueToken(subject, role string) (string, error) {
	now := s.now()
	claims := &adminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries.
func (s *AuthService) Verify(tokenString string) (domain.Identity, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return domain.Identity{}, errors.Join(domain.ErrAuthRequired, err)
	}
	return domain.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// EnsureAdmin creates the admin account. An existing account is left alone
// unless overwrite is set, in which case its password is replaced. It reports
// whether anything was written.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string, overwrite bool) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, &domain.ValidationError{Message: "username and password are required"}
	}

	existing, err := s.repo.GetAdmin(ctx, username)
	if err != nil {
		return false, domain.WrapStorage("get admin", err)
	}
	if existing != nil && !overwrite {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &domain.Admin{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		CreatedAt:    eventTime(s.now),
	}
	if existing != nil {
		admin.ID = existing.ID
		admin.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.SaveAdmin(ctx, admin); err != nil {
		return false, domain.WrapStorage("save admin", err)
	}
	return true, nil
}
