package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwtClaims is the internal claims type used for token parsing.
type jwtClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// JWTGate verifies HS256 tokens issued by the account service.
type JWTGate struct {
	secret []byte
	now    func() time.Time
}

// NewJWTGate creates a gate that accepts tokens signed with secret.
func NewJWTGate(secret []byte, now func() time.Time) *JWTGate {
	if now == nil {
		now = time.Now
	}
	return &JWTGate{secret: secret, now: now}
}

// Verify parses and validates the token and extracts the user identity.
func (g *JWTGate) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrUnauthorized)
	}

	var claims jwtClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	userID, err := uuid.Parse(strings.TrimSpace(claims.UserID))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user_id claim", ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Username) == "" {
		return nil, fmt.Errorf("%w: username claim is required", ErrUnauthorized)
	}

	return &Identity{UserID: userID, Username: claims.Username}, nil
}
