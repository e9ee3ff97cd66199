package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanishhq/vanish/internal/testutil"
)

var hexHashRe = regexp.MustCompile(`^[a-f0-9]{64}$`)

// doJSON issues a request against the test server with optional bearer and
// viewer-hash credentials.
func doJSON(t *testing.T, method, url, sessionToken, viewerHash string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}
	if viewerHash != "" {
		req.Header.Set("X-Viewer-Hash", viewerHash)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type roomResponse struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Duration     string    `json:"duration"`
	AllowUploads bool      `json:"allowUploads"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ShareLink    string    `json:"shareLink"`
}

type joinResponse struct {
	ViewerHash   string    `json:"viewerHash"`
	Nickname     string    `json:"nickname"`
	RoomCode     string    `json:"roomCode"`
	AllowUploads bool      `json:"allowUploads"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func TestRoomLifecycle(t *testing.T) {
	ts := testutil.NewTestServer(t)

	_, sessionToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	var room roomResponse

	t.Run("owner creates a 24h room with uploads", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"), sessionToken, "", map[string]interface{}{
			"duration":     "24h",
			"allowUploads": true,
		})
		testutil.AssertStatusCode(t, resp, http.StatusCreated)
		testutil.AssertJSONResponse(t, resp, &room)

		assert.Len(t, room.Code, 6)
		assert.True(t, room.AllowUploads)
		assert.NotEmpty(t, room.ShareLink)
		assert.Contains(t, room.ShareLink, room.Code)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), room.ExpiresAt, time.Minute)
	})

	t.Run("creation requires a session", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"), "", "", map[string]interface{}{
			"duration": "1h",
		})
		testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	})

	t.Run("bad duration is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"), sessionToken, "", map[string]interface{}{
			"duration": "48h",
		})
		testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	})

	t.Run("anyone can resolve the code", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/rooms/"+room.Code), "", "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var resolved roomResponse
		testutil.AssertJSONResponse(t, resp, &resolved)
		assert.Equal(t, room.Code, resolved.Code)
		assert.Empty(t, resolved.ShareLink)
	})

	t.Run("unknown code is a 404", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/rooms/ZZZZ99"), "", "", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "check the code")
	})

	t.Run("a viewer joins with a nickname", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"+room.Code+"/join"), "", "", map[string]string{
			"nickname": "Ana",
		})
		testutil.AssertStatusCode(t, resp, http.StatusCreated)

		var joined joinResponse
		testutil.AssertJSONResponse(t, resp, &joined)
		assert.Regexp(t, hexHashRe, joined.ViewerHash)
		assert.Equal(t, "Ana", joined.Nickname)
		assert.Equal(t, room.Code, joined.RoomCode)
		assert.True(t, joined.AllowUploads)
	})

	t.Run("markup-only nickname is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"+room.Code+"/join"), "", "", map[string]string{
			"nickname": "<script>alert(1)</script>",
		})
		testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	})

	t.Run("owner sees joined viewers", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.APIURL("/rooms/"+room.Code+"/viewers"), sessionToken, "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var viewers []struct {
			Nickname string `json:"nickname"`
		}
		testutil.AssertJSONResponse(t, resp, &viewers)
		require.Len(t, viewers, 1)
		assert.Equal(t, "Ana", viewers[0].Nickname)
	})

	t.Run("another owner cannot deactivate the room", func(t *testing.T) {
		_, otherToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"+room.Code+"/deactivate"), otherToken, "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	})

	t.Run("owner deactivates and the code resolves as gone", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/rooms/"+room.Code+"/deactivate"), sessionToken, "", nil)
		testutil.AssertStatusCode(t, resp, http.StatusNoContent)

		resp = doJSON(t, http.MethodGet, ts.APIURL("/rooms/"+room.Code), "", "", nil)
		testutil.AssertErrorResponse(t, resp, http.StatusGone, "gone")
	})
}

func TestMagicLinkRateLimit(t *testing.T) {
	ts := testutil.NewTestServer(t)

	body := map[string]string{"email": "limited@example.com"}

	for i := 0; i < 3; i++ {
		resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/magic-link"), "", "", body)
		testutil.AssertStatusCode(t, resp, http.StatusAccepted)
	}

	resp := doJSON(t, http.MethodPost, ts.APIURL("/auth/magic-link"), "", "", body)
	testutil.AssertStatusCode(t, resp, http.StatusTooManyRequests)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
