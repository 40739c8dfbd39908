package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	sm := SessionManager{Secret: []byte("test-secret"), Duration: time.Hour}

	token, expires, err := sm.Issue("user-123")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := sm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.WithinDuration(t, expires, claims.ExpiresAt, time.Second)
}

func TestSessionTokenTamperDetection(t *testing.T) {
	sm := SessionManager{Secret: []byte("test-secret")}

	token, _, err := sm.Issue("user-123")
	require.NoError(t, err)

	_, err = sm.Parse("other|9999999999." + token[len(token)-10:])
	assert.Error(t, err)

	// A token signed with a different secret must not parse.
	other := SessionManager{Secret: []byte("wrong-secret")}
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestIssueRequiresSecret(t *testing.T) {
	sm := SessionManager{}
	_, _, err := sm.Issue("user-123")
	assert.Error(t, err)
}
