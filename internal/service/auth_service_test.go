package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/repository/postgres"
	"github.com/vanishhq/vanish/internal/service"
	"github.com/vanishhq/vanish/internal/testutil"
)

func newAuthService(t *testing.T, testDB *testutil.TestDB) (*service.AuthService, *testutil.CaptureMailer) {
	t.Helper()
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	capture := &testutil.CaptureMailer{}
	return service.NewAuthService(repos.User, repos.MagicLink, repos.TwoFactor, capture, nil, cfg), capture
}

func TestAuthService_RegisterAndSignIn(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, _ := newAuthService(t, testDB)
	ctx := context.Background()

	result, err := authService.Register(ctx, service.RegisterInput{
		Email:    "creator@example.com",
		Password: "correcthorse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.Equal(t, "creator@example.com", result.User.Email)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := authService.Register(ctx, service.RegisterInput{
			Email:    "creator@example.com",
			Password: "correcthorse",
		})
		assert.ErrorIs(t, err, domain.ErrEmailExists)
	})

	t.Run("successful sign in", func(t *testing.T) {
		signIn, err := authService.SignIn(ctx, "creator@example.com", "correcthorse")
		require.NoError(t, err)
		require.False(t, signIn.SecondFactorRequired)
		assert.NotEmpty(t, signIn.Session.SessionToken)
	})

	t.Run("wrong password and unknown email look identical", func(t *testing.T) {
		_, err1 := authService.SignIn(ctx, "creator@example.com", "wrong")
		_, err2 := authService.SignIn(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err1, domain.ErrInvalidCredentials)
		assert.ErrorIs(t, err2, domain.ErrInvalidCredentials)
	})
}

func TestAuthService_MagicLinkFlow(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, capture := newAuthService(t, testDB)
	ctx := context.Background()

	require.NoError(t, authService.RequestMagicLink(ctx, "new-user@example.com"))

	token := waitForMagicLinkToken(t, capture)

	t.Run("first verification signs in and creates the account", func(t *testing.T) {
		result, err := authService.VerifyMagicLink(ctx, token)
		require.NoError(t, err)
		require.False(t, result.SecondFactorRequired)
		assert.Equal(t, "new-user@example.com", result.Session.User.Email)
	})

	t.Run("replay fails", func(t *testing.T) {
		_, err := authService.VerifyMagicLink(ctx, token)
		assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		_, err := authService.VerifyMagicLink(ctx, "deadbeef")
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)

		_, err = authService.VerifyMagicLink(ctx, strings.Repeat("0", 64))
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})
}

func TestAuthService_MagicLinkNoDoubleSuccessUnderRace(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, capture := newAuthService(t, testDB)
	ctx := context.Background()

	require.NoError(t, authService.RequestMagicLink(ctx, "racer@example.com"))
	token := waitForMagicLinkToken(t, capture)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = authService.VerifyMagicLink(ctx, token)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)
		}
	}
	assert.Equal(t, 1, successes, "a magic link token must never verify twice")
}

func TestAuthService_MagicLinkExpiry(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, _ := newAuthService(t, testDB)
	ctx := context.Background()

	raw, err := service.GenerateOpaqueToken(32)
	require.NoError(t, err)

	expired := &domain.MagicLinkToken{
		ID:        uuid.New(),
		TokenHash: service.HashToken(raw),
		Email:     "late@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, testDB.DB.Create(expired).Error)

	_, err = authService.VerifyMagicLink(ctx, raw)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAuthService_AntiEnumeration(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, capture := newAuthService(t, testDB)
	ctx := context.Background()

	testutil.NewUserBuilder().WithEmail("known@example.com").Build(t, testDB.DB)

	// The issuance result is indistinguishable for known and unknown
	// addresses; both mint a token and both emails go out.
	assert.NoError(t, authService.RequestMagicLink(ctx, "known@example.com"))
	assert.NoError(t, authService.RequestMagicLink(ctx, "unknown@example.com"))

	require.Eventually(t, func() bool {
		return capture.SentCount() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestAuthService_SecondFactorFlow(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, _ := newAuthService(t, testDB)
	ctx := context.Background()

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "vanish-test", AccountName: "mfa@example.com"})
	require.NoError(t, err)

	_, password := testutil.NewUserBuilder().
		WithEmail("mfa@example.com").
		WithTwoFactorSecret(key.Secret()).
		Build(t, testDB.DB)

	signIn, err := authService.SignIn(ctx, "mfa@example.com", password)
	require.NoError(t, err)
	require.True(t, signIn.SecondFactorRequired)
	require.NotEmpty(t, signIn.TempToken)
	assert.Nil(t, signIn.Session, "no session before the second factor")

	t.Run("wrong code is rejected", func(t *testing.T) {
		_, err := authService.CompleteSecondFactor(ctx, signIn.TempToken, "000000")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("correct code issues the session and burns the token", func(t *testing.T) {
		code, err := totp.GenerateCode(key.Secret(), time.Now())
		require.NoError(t, err)

		result, err := authService.CompleteSecondFactor(ctx, signIn.TempToken, code)
		require.NoError(t, err)
		assert.NotEmpty(t, result.SessionToken)

		// The temp token is single-use.
		_, err = authService.CompleteSecondFactor(ctx, signIn.TempToken, code)
		assert.ErrorIs(t, err, domain.ErrTokenAlreadyUsed)
	})
}

func TestAuthService_SecondFactorBruteForceBound(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	authService, _ := newAuthService(t, testDB)
	ctx := context.Background()

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "vanish-test", AccountName: "brute@example.com"})
	require.NoError(t, err)

	_, password := testutil.NewUserBuilder().
		WithEmail("brute@example.com").
		WithTwoFactorSecret(key.Secret()).
		Build(t, testDB.DB)

	signIn, err := authService.SignIn(ctx, "brute@example.com", password)
	require.NoError(t, err)
	require.True(t, signIn.SecondFactorRequired)

	// Burn through the allowed attempts with wrong codes.
	sawTooMany := false
	for i := 0; i < 6; i++ {
		_, err := authService.CompleteSecondFactor(ctx, signIn.TempToken, "000000")
		if errors.Is(err, domain.ErrTooManyAttempts) {
			sawTooMany = true
			break
		}
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	require.True(t, sawTooMany, "attempt bound never tripped")

	// Even the right code is now useless; the whole flow must restart.
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	_, err = authService.CompleteSecondFactor(ctx, signIn.TempToken, code)
	assert.Error(t, err)
}

type stubExchanger struct {
	email string
	err   error
}

func (s *stubExchanger) Exchange(ctx context.Context, code string) (string, error) {
	return s.email, s.err
}

func TestAuthService_OAuthSignIn(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	ctx := context.Background()

	t.Run("first sign-in creates the account", func(t *testing.T) {
		exchanger := &stubExchanger{email: "oauth@example.com"}
		authService := service.NewAuthService(repos.User, repos.MagicLink, repos.TwoFactor, &testutil.CaptureMailer{}, exchanger, cfg)

		result, err := authService.SignInWithOAuth(ctx, "provider-code")
		require.NoError(t, err)
		require.False(t, result.SecondFactorRequired)
		assert.Equal(t, "oauth@example.com", result.Session.User.Email)

		again, err := authService.SignInWithOAuth(ctx, "provider-code")
		require.NoError(t, err)
		assert.Equal(t, result.Session.User.ID, again.Session.User.ID)
	})

	t.Run("provider failure is invalid credentials", func(t *testing.T) {
		exchanger := &stubExchanger{err: errors.New("provider unreachable")}
		authService := service.NewAuthService(repos.User, repos.MagicLink, repos.TwoFactor, &testutil.CaptureMailer{}, exchanger, cfg)

		_, err := authService.SignInWithOAuth(ctx, "provider-code")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("no provider configured", func(t *testing.T) {
		authService := service.NewAuthService(repos.User, repos.MagicLink, repos.TwoFactor, &testutil.CaptureMailer{}, nil, cfg)

		_, err := authService.SignInWithOAuth(ctx, "provider-code")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("second factor still applies", func(t *testing.T) {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "vanish-test", AccountName: "oauth-mfa@example.com"})
		require.NoError(t, err)
		testutil.NewUserBuilder().
			WithEmail("oauth-mfa@example.com").
			WithTwoFactorSecret(key.Secret()).
			Build(t, testDB.DB)

		exchanger := &stubExchanger{email: "oauth-mfa@example.com"}
		authService := service.NewAuthService(repos.User, repos.MagicLink, repos.TwoFactor, &testutil.CaptureMailer{}, exchanger, cfg)

		result, err := authService.SignInWithOAuth(ctx, "provider-code")
		require.NoError(t, err)
		assert.True(t, result.SecondFactorRequired)
		assert.NotEmpty(t, result.TempToken)
	})
}

// waitForMagicLinkToken blocks until the fire-and-forget delivery goroutine
// has recorded a link, then extracts the raw token from it.
func waitForMagicLinkToken(t *testing.T, capture *testutil.CaptureMailer) string {
	t.Helper()

	require.Eventually(t, func() bool {
		return capture.LastLink() != ""
	}, time.Second, 10*time.Millisecond)

	link := capture.LastLink()
	idx := strings.Index(link, "token=")
	require.GreaterOrEqual(t, idx, 0, "link %q has no token parameter", link)
	return link[idx+len("token="):]
}
