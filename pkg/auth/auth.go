package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	apperrors "campuspark/pkg/errors"
	httputil "campuspark/pkg/http"
	"campuspark/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

const (
	RoleAdmin = "admin"
	issuer    = "campuspark"
)

var (
	ErrNoSecret     = errors.New("token signing secret not configured")
	ErrMissingToken = errors.New("missing bearer token")
)

type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

type Service struct {
	secret []byte
}

// NewService signs and validates HS256 tokens. An empty secret rejects every token.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

func (s *Service) Issue(subject string, roles []string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (s *Service) Validate(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

type claimsKey struct{}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, error) {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", ErrMissingToken
	}
	return fields[1], nil
}

// RequireRole wraps a route so only tokens carrying role reach it.
func (s *Service) RequireRole(role string, log *logger.Logger, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, err := bearerToken(r)
		if err != nil {
			_ = httputil.WriteError(w, apperrors.Unauthorized("Missing or malformed Authorization header"))
			return
		}

		claims, err := s.Validate(token)
		if err != nil {
			log.Warn("rejected token", "path", r.URL.Path, "error", err)
			_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		if !claims.HasRole(role) {
			log.Warn("insufficient role", "path", r.URL.Path, "subject", claims.Subject, "required", role)
			_ = httputil.WriteError(w, apperrors.Forbidden(fmt.Sprintf("Role %q required", role)))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next(w, r.WithContext(ctx), ps)
	}
}
