package steam_test

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/steam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *steam.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return steam.NewClient(logger, steam.Options{
		Lang:          "en",
		Region:        "US",
		Timeout:       2 * time.Second,
		MaxRetries:    1,
		MinDelay:      0,
		SlowMult:      1,
		CoolDown:      time.Minute,
		AppListURL:    server.URL + "/applist",
		AppDetailsURL: server.URL + "/appdetails",
	}, rand.New(rand.NewSource(1)))
}

const detailsPayload = `{
	"440": {
		"success": true,
		"data": {
			"steam_appid": 440,
			"name": "Sample Game",
			"type": "game",
			"is_free": false,
			"short_description": "A short description.",
			"supported_languages": "English, Japanese<br><strong>*</strong>languages with full audio support",
			"header_image": "https://cdn.example.com/apps/440/header.jpg?t=123",
			"genres": [{"id": "1", "description": "Action"}],
			"platforms": {"windows": true, "mac": false, "linux": true},
			"price_overview": {"final": 1480, "currency": "JPY"},
			"release_date": {"coming_soon": false, "date": "12 Nov, 2025"}
		}
	}
}`

func TestListAppIDs(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"applist":{"apps":[{"appid":10,"name":"A"},{"appid":0,"name":"bad"},{"appid":20,"name":"B"}]}}`)
		}))

		ids, err := client.ListAppIDs(t.Context())

		require.NoError(t, err)
		// Zero identifiers are dropped from the ordering.
		assert.Equal(t, []models.AppID{10, 20}, ids)
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := client.ListAppIDs(t.Context())

		require.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"applist":`)
		}))

		_, err := client.ListAppIDs(t.Context())

		require.Error(t, err)
	})
}

func TestFetchDetails(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "440", r.URL.Query().Get("appids"))
			assert.Equal(t, "en", r.URL.Query().Get("l"))
			fmt.Fprint(w, detailsPayload)
		}))

		rec, err := client.FetchDetails(t.Context(), 440)

		require.NoError(t, err)
		assert.Equal(t, models.AppID(440), rec.AppID)
		assert.Equal(t, "Sample Game", rec.Name)
		assert.Equal(t, int64(1480), rec.PriceOverview.Final)
	})

	t.Run("explicit not found is terminal", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{"440":{"success":false}}`)
		}))

		_, err := client.FetchDetails(t.Context(), 440)

		require.ErrorIs(t, err, steam.ErrNotFound)
		// Not-found must not fan out to fallback regions or retries.
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("empty data is not found", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"440":{"success":true,"data":null}}`)
		}))

		_, err := client.FetchDetails(t.Context(), 440)

		require.ErrorIs(t, err, steam.ErrNotFound)
	})

	t.Run("blank name is not found", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"440":{"success":true,"data":{"name":"  "}}}`)
		}))

		_, err := client.FetchDetails(t.Context(), 440)

		require.ErrorIs(t, err, steam.ErrNotFound)
	})

	t.Run("transient failure recovers within the call", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, detailsPayload)
		}))

		rec, err := client.FetchDetails(t.Context(), 440)

		require.NoError(t, err)
		assert.Equal(t, "Sample Game", rec.Name)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("rate limit recovers and flips slow mode", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, detailsPayload)
		}))

		rec, err := client.FetchDetails(t.Context(), 440)

		require.NoError(t, err)
		assert.Equal(t, "Sample Game", rec.Name)
		assert.True(t, client.Slowed(), "a throttling response must enter slow mode")
	})

	t.Run("regional failure falls back to the next region", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("cc") == "US" {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, detailsPayload)
			calls.Add(1)
		}))

		rec, err := client.FetchDetails(t.Context(), 440)

		require.NoError(t, err)
		assert.Equal(t, "Sample Game", rec.Name)
		assert.Equal(t, int32(1), calls.Load())
	})
}
