package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cart-sync/internal/infrastructure/store"
	"github.com/example/cart-sync/internal/infrastructure/store/mocks"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user@example.com",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret-used-only-in-this-test"))
	require.NoError(t, err)
	return signed
}

// ============================================
// Session Record Tests
// ============================================

func TestSession_BearerToken(t *testing.T) {
	assert.Equal(t, "a", Session{Token: "a"}.BearerToken())
	assert.Equal(t, "b", Session{AccessToken: "b"}.BearerToken())
	// "token" wins when both are present, matching the original record shape.
	assert.Equal(t, "a", Session{Token: "a", AccessToken: "b"}.BearerToken())
	assert.Empty(t, Session{}.BearerToken())
}

func TestProvider_Session_MissingRecord(t *testing.T) {
	p := NewProvider(mocks.NewMockSlotStore())

	_, err := p.Session(context.Background())

	assert.ErrorIs(t, err, ErrNoSession)
}

func TestProvider_Session_MalformedRecord(t *testing.T) {
	st := mocks.NewMockSlotStore()
	st.Seed(store.SessionKey, []byte("not json"))
	p := NewProvider(st)

	_, err := p.Session(context.Background())

	assert.Error(t, err)
}

// ============================================
// Token Tests
// ============================================

func TestProvider_Token_NoSession(t *testing.T) {
	p := NewProvider(mocks.NewMockSlotStore())

	token, ok := p.Token(context.Background())

	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestProvider_Token_NoTokenInRecord(t *testing.T) {
	st := mocks.NewMockSlotStore()
	st.Seed(store.SessionKey, []byte(`{"email":"user@example.com"}`))
	p := NewProvider(st)

	_, ok := p.Token(context.Background())

	assert.False(t, ok)
}

func TestProvider_Token_ValidJWT(t *testing.T) {
	tok := signedToken(t, time.Now().Add(time.Hour))
	st := mocks.NewMockSlotStore()
	st.Seed(store.SessionKey, []byte(`{"access_token":"`+tok+`"}`))
	p := NewProvider(st)

	got, ok := p.Token(context.Background())

	assert.True(t, ok)
	assert.Equal(t, tok, got)
}

func TestProvider_Token_ExpiredJWT(t *testing.T) {
	tok := signedToken(t, time.Now().Add(-time.Hour))
	st := mocks.NewMockSlotStore()
	st.Seed(store.SessionKey, []byte(`{"token":"`+tok+`"}`))
	p := NewProvider(st)

	_, ok := p.Token(context.Background())

	assert.False(t, ok)
}

func TestProvider_Token_OpaqueTokenPassesThrough(t *testing.T) {
	st := mocks.NewMockSlotStore()
	st.Seed(store.SessionKey, []byte(`{"token":"opaque-session-id"}`))
	p := NewProvider(st)

	got, ok := p.Token(context.Background())

	assert.True(t, ok)
	assert.Equal(t, "opaque-session-id", got)
}
