package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanishhq/vanish/internal/testutil"
)

type sessionResp struct {
	User *struct {
		ID               string `json:"id"`
		Email            string `json:"email"`
		TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	} `json:"user"`
	SessionToken         string `json:"sessionToken"`
	SecondFactorRequired bool   `json:"secondFactorRequired"`
	TempToken            string `json:"tempToken"`
}

func TestAuthEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t)

	var sessionToken string

	t.Run("register issues a session", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/register"), "", "", map[string]string{
			"email":    "owner@example.com",
			"password": "longenoughpw",
		})
		testutil.AssertStatusCode(t, resp, http.StatusCreated)

		var session sessionResp
		testutil.AssertJSONResponse(t, resp, &session)
		require.NotNil(t, session.User)
		assert.Equal(t, "owner@example.com", session.User.Email)
		assert.NotEmpty(t, session.SessionToken)
		sessionToken = session.SessionToken
	})

	t.Run("me returns the account", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/auth/me"), sessionToken, "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var user struct {
			Email string `json:"email"`
		}
		testutil.AssertJSONResponse(t, resp, &user)
		assert.Equal(t, "owner@example.com", user.Email)
	})

	t.Run("me rejects a missing or garbage token", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/auth/me"), "", "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)

		resp = doJSON(t, http.MethodGet, ts.APIURL("/auth/me"), "not.a.jwt", "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	})

	t.Run("login with the wrong password", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/login"), "", "", map[string]string{
			"email":    "owner@example.com",
			"password": "wrongpassword",
		})
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Invalid credentials")
	})

	t.Run("short password is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/register"), "", "", map[string]string{
			"email":    "short@example.com",
			"password": "tiny",
		})
		testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	})
}

func TestMagicLinkEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/magic-link"), "", "", map[string]string{
		"email": "linked@example.com",
	})
	testutil.AssertStatusCode(t, resp, http.StatusAccepted)

	require.Eventually(t, func() bool {
		return ts.Mailer.LastLink() != ""
	}, time.Second, 10*time.Millisecond)

	link := ts.Mailer.LastLink()
	idx := strings.Index(link, "token=")
	require.GreaterOrEqual(t, idx, 0)
	token := link[idx+len("token="):]

	resp = doJSON(t, http.MethodPost, ts.APIURL("/auth/magic-link/verify"), "", "", map[string]string{
		"token": token,
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var session sessionResp
	testutil.AssertJSONResponse(t, resp, &session)
	require.NotNil(t, session.User)
	assert.Equal(t, "linked@example.com", session.User.Email)
	assert.NotEmpty(t, session.SessionToken)

	t.Run("replay conflicts", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/magic-link/verify"), "", "", map[string]string{
			"token": token,
		})
		testutil.AssertStatusCode(t, resp, http.StatusConflict)
	})
}

func TestSecondFactorEndpoints(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, sessionToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/2fa/enable"), sessionToken, "", nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var enable struct {
		OtpauthURL string `json:"otpauthUrl"`
	}
	testutil.AssertJSONResponse(t, resp, &enable)

	parsed, err := url.Parse(enable.OtpauthURL)
	require.NoError(t, err)
	secret := parsed.Query().Get("secret")
	require.NotEmpty(t, secret)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	resp = doJSON(t, http.MethodPost, ts.APIURL("/auth/2fa/confirm"), sessionToken, "", map[string]string{
		"code": code,
	})
	testutil.AssertStatusCode(t, resp, http.StatusNoContent)

	// From here on a password alone is not a session.
	resp = doJSON(t, http.MethodPost, ts.APIURL("/auth/login"), "", "", map[string]string{
		"email":    user.Email,
		"password": "testpassword123",
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var intermediate sessionResp
	testutil.AssertJSONResponse(t, resp, &intermediate)
	require.True(t, intermediate.SecondFactorRequired)
	require.NotEmpty(t, intermediate.TempToken)
	assert.Empty(t, intermediate.SessionToken)

	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	resp = doJSON(t, http.MethodPost, ts.APIURL("/auth/2fa"), "", "", map[string]string{
		"tempToken": intermediate.TempToken,
		"code":      code,
	})
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var final sessionResp
	testutil.AssertJSONResponse(t, resp, &final)
	assert.NotEmpty(t, final.SessionToken)
}
