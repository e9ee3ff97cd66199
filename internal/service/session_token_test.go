package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/domain"
)

func testAuthService(secret string) *AuthService {
	return &AuthService{
		cfg: &config.Config{
			JWTSecret:          secret,
			JWTExpirationHours: 1,
		},
		now: time.Now,
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	s := testAuthService("round-trip-secret")
	user := &domain.User{ID: uuid.New(), Email: "a@b.com"}

	result, err := s.issueSession(user)
	require.NoError(t, err)
	require.NotEmpty(t, result.SessionToken)

	userID, err := s.ValidateSessionToken(result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestSessionTokenVerificationFailuresAreUniform(t *testing.T) {
	s := testAuthService("the-real-secret")
	user := &domain.User{ID: uuid.New(), Email: "a@b.com"}

	valid, err := s.issueSession(user)
	require.NoError(t, err)

	expired := testAuthService("the-real-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.issueSession(user)
	require.NoError(t, err)

	other := testAuthService("some-other-secret")
	foreign, err := other.issueSession(user)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-jwt"},
		{"empty", ""},
		{"expired", old.SessionToken},
		{"wrong secret", foreign.SessionToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateSessionToken(tt.token)
			// Every failure collapses to the same error.
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}

	_, err = s.ValidateSessionToken(valid.SessionToken)
	assert.NoError(t, err)
}

func TestGetCurrentUserRejectsBadToken(t *testing.T) {
	s := testAuthService("secret")
	_, err := s.GetCurrentUser(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
