package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Subject is the opaque stable identifier of an authenticated caller.
// Subjects are only ever produced by Authenticate.
type Subject string

var (
	// ErrMissingCredential means no bearer credential was presented.
	ErrMissingCredential = errors.New("auth: missing bearer credential")

	// ErrInvalidCredential means the verifier rejected the token.
	ErrInvalidCredential = errors.New("auth: invalid credential")
)

// Verifier maps a raw bearer token to a stable subject identifier, or
// rejects it.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Authenticator wraps a Verifier behind the HTTP Authorization header
// convention.
type Authenticator struct {
	verifier Verifier
}

// New creates an Authenticator backed by v.
func New(v Verifier) *Authenticator {
	return &Authenticator{verifier: v}
}

// Authenticate extracts the bearer token from the Authorization header value
// and verifies it. A missing or malformed header yields ErrMissingCredential;
// a rejected token yields an error wrapping ErrInvalidCredential.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (Subject, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingCredential
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissingCredential
	}

	id, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: verifier returned empty subject", ErrInvalidCredential)
	}
	return Subject(id), nil
}
