package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("forumsecret", "forum", 0)

	tok, err := m.Issue("alice")
	require.NoError(t, err)

	username, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestIssue_NoExpiryByDefault(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("forumsecret", "forum", 0)
	tok, err := m.Issue("alice")
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("forumsecret", "forum", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := m.Issue("alice")
	require.NoError(t, err)

	fresh := NewTokenManager("forumsecret", "forum", time.Minute)
	_, err = fresh.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("forumsecret", "forum", 0)
	good, err := m.Issue("alice")
	require.NoError(t, err)

	otherSecret, err := NewTokenManager("another-secret", "forum", 0).Issue("alice")
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager("forumsecret", "elsewhere", 0).Issue("alice")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Username: "alice"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"tampered", good + "x"},
		{"wrong secret", otherSecret},
		{"wrong issuer", otherIssuer},
		{"alg none", unsigned},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssue_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager("", "forum", 0).Issue("alice")
	assert.Error(t, err)
}
