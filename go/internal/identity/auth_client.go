package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AuthServiceGate verifies credentials against the account service's
// /api/auth/me endpoint.
type AuthServiceGate struct {
	baseURL string
	client  *http.Client
}

// NewAuthServiceGate creates a gate backed by the account service.
func NewAuthServiceGate(baseURL string) *AuthServiceGate {
	return &AuthServiceGate{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// meResponse mirrors the account service's response shape.
type meResponse struct {
	Data struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	} `json:"data"`
}

// Verify asks the account service who the token belongs to.
func (g *AuthServiceGate) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: auth service rejected token", ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("auth service returned status code: %d, response: %s", resp.StatusCode, string(body))
	}

	var me meResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	userID, err := uuid.Parse(me.Data.User.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id from auth service", ErrUnauthorized)
	}

	return &Identity{UserID: userID, Username: me.Data.User.Username}, nil
}
