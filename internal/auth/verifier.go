package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultVerifyTimeout = 10 * time.Second

// Static is a fixed token-to-subject table. Used when auth mode is "static",
// typically in development and tests.
type Static map[string]string

// Verify looks the token up in the table.
func (s Static) Verify(_ context.Context, token string) (string, error) {
	id, ok := s[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return id, nil
}

// Remote verifies tokens against the external identity service. The service
// owns token semantics (expiry, revocation, signing); this client only
// relays the token and reads back the subject identifier.
type Remote struct {
	url    string
	client *http.Client
}

// NewRemote creates a Remote verifier for the given verification endpoint.
func NewRemote(url string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &Remote{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Verify posts the token to the verification endpoint and returns the
// subject identifier from the response.
func (r *Remote) Verify(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", fmt.Errorf("encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", errors.New("token rejected")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("verifier returned HTTP %d", resp.StatusCode)
	}

	var out struct {
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	if out.SubjectID == "" {
		return "", errors.New("verifier response missing subject_id")
	}
	return out.SubjectID, nil
}
