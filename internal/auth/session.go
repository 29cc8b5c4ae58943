// Package auth reads the persisted session record and exposes the bearer
// token the cart engine needs for remote operations. Token issuance is an
// external concern; this package never creates or mutates credentials, it
// only decides whether a usable token is present.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/cart-sync/internal/infrastructure/store"
)

var (
	ErrNoSession    = errors.New("no session record")
	ErrNoToken      = errors.New("session record has no token")
	ErrExpiredToken = errors.New("token has expired")
)

// Session is the persisted auth record. Older records store the credential
// under "token", newer ones under "access_token"; both are accepted.
type Session struct {
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Token       string `json:"token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// BearerToken returns the credential from whichever field carries it.
func (s Session) BearerToken() string {
	if s.Token != "" {
		return s.Token
	}
	return s.AccessToken
}

// Provider reads session records from the slot store.
type Provider struct {
	store store.Interface
	now   func() time.Time
}

func NewProvider(st store.Interface) *Provider {
	return &Provider{store: st, now: time.Now}
}

// Session loads the persisted session record.
func (p *Provider) Session(ctx context.Context) (*Session, error) {
	data, ok, err := p.store.Get(ctx, store.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}
	return &s, nil
}

// Token returns the bearer token for remote calls. The second result is
// false when no session exists, the record carries no token, or the token is
// a JWT whose expiry has passed. The signature is not verified here: the
// client does not hold the signing key, the server re-validates every
// request anyway, and the expiry check only exists to skip remote calls that
// are guaranteed to be rejected.
func (p *Provider) Token(ctx context.Context) (string, bool) {
	s, err := p.Session(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			log.Printf("[Auth] Failed to load session: %v", err)
		}
		return "", false
	}
	token := s.BearerToken()
	if token == "" {
		return "", false
	}
	if err := p.checkExpiry(token); err != nil {
		log.Printf("[Auth] Stored token unusable: %v", err)
		return "", false
	}
	return token, true
}

// checkExpiry rejects JWTs that have already expired. Tokens that do not
// parse as JWTs are treated as opaque and passed through for the server to
// judge.
func (p *Provider) checkExpiry(token string) error {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(p.now()) {
		return ErrExpiredToken
	}
	return nil
}
