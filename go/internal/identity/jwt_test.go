package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTGateAcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	now := time.Unix(1700000000, 0)
	gate := NewJWTGate(testSecret, func() time.Time { return now })

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":  userID.String(),
		"username": "player1",
		"exp":      now.Add(time.Hour).Unix(),
	})

	id, err := gate.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != userID {
		t.Errorf("user id = %s, want %s", id.UserID, userID)
	}
	if id.Username != "player1" {
		t.Errorf("username = %s, want player1", id.Username)
	}
}

func TestJWTGateRejections(t *testing.T) {
	userID := uuid.New()
	now := time.Unix(1700000000, 0)
	gate := NewJWTGate(testSecret, func() time.Time { return now })

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "garbage token",
			token: "not.a.jwt",
		},
		{
			name: "wrong secret",
			token: signToken(t, []byte("other-secret"), jwt.MapClaims{
				"user_id":  userID.String(),
				"username": "player1",
				"exp":      now.Add(time.Hour).Unix(),
			}),
		},
		{
			name: "expired",
			token: signToken(t, testSecret, jwt.MapClaims{
				"user_id":  userID.String(),
				"username": "player1",
				"exp":      now.Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "missing user id",
			token: signToken(t, testSecret, jwt.MapClaims{
				"username": "player1",
				"exp":      now.Add(time.Hour).Unix(),
			}),
		},
		{
			name: "malformed user id",
			token: signToken(t, testSecret, jwt.MapClaims{
				"user_id":  "not-a-uuid",
				"username": "player1",
				"exp":      now.Add(time.Hour).Unix(),
			}),
		},
		{
			name: "missing username",
			token: signToken(t, testSecret, jwt.MapClaims{
				"user_id": userID.String(),
				"exp":     now.Add(time.Hour).Unix(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := gate.Verify(context.Background(), tt.token)
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
			if id != nil {
				t.Errorf("identity = %+v, want nil", id)
			}
		})
	}
}

func TestJWTGateRejectsUnexpectedSigningMethod(t *testing.T) {
	now := time.Unix(1700000000, 0)
	gate := NewJWTGate(testSecret, func() time.Time { return now })

	// alg=none tokens must never pass even with a valid payload.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id":  uuid.New().String(),
		"username": "player1",
		"exp":      now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := gate.Verify(context.Background(), signed); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}
