package d1g1t

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{Server: srv.URL, PollLimit: 3}, quietLogger())
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "https://api-prod.example.com", NormalizeDomain("api-prod.example.com/"))
	assert.Equal(t, "https://api-prod.example.com", NormalizeDomain("https://api-prod.example.com"))
	assert.Equal(t, "http://127.0.0.1:8080", NormalizeDomain("http://127.0.0.1:8080"))
}

func TestServerName(t *testing.T) {
	assert.Equal(t, "prod", ServerName("https://api-prod.example.com"))
	assert.Equal(t, "gamma", ServerName("api-gamma.d1g1t.com"))
	assert.Equal(t, "127", ServerName("http://127.0.0.1:8080"))
}

func TestLogin(t *testing.T) {
	// Arrange
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token": "abc"}`))
	})
	mux.HandleFunc("GET /api/v1/data/accounts/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JWT abc", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"count": 0, "results": []}`))
	})
	client := newTestClient(t, mux)

	// Act
	bad := client.Login(context.Background(), "ops", "wrong")
	good := client.Login(context.Background(), "ops", "secret")
	_, listErr := client.ListEntities(context.Background(), "accounts", 10)

	// Assert
	assert.ErrorIs(t, bad, ErrLoginFailed)
	require.NoError(t, good)
	assert.Equal(t, "abc", client.Token())
	assert.NoError(t, listErr)
}

func TestRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token": "first"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/login/refresh/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "first", body["token"])
		_, _ = w.Write([]byte(`{"token": "second"}`))
	})
	client := newTestClient(t, mux)

	assert.ErrorIs(t, client.Refresh(context.Background()), ErrNotLoggedIn)
	require.NoError(t, client.Login(context.Background(), "ops", "pw"))
	require.NoError(t, client.Refresh(context.Background()))
	assert.Equal(t, "second", client.Token())
}

func TestCalc_PollsWhileAccepted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/calc/net-asset-value-history/", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		_, _ = w.Write([]byte(`{"categories": [], "items": []}`))
	}))

	body, err := client.Calc(context.Background(), "net-asset-value-history", map[string]any{"a": 1})

	require.NoError(t, err)
	assert.JSONEq(t, `{"categories": [], "items": []}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCalc_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "still waiting", status: http.StatusAccepted, wantErr: ErrStillWaiting},
		{name: "empty body", status: http.StatusOK, body: "", wantErr: ErrNoResponse},
		{name: "null body", status: http.StatusOK, body: "null", wantErr: ErrNoResponse},
		{name: "empty object", status: http.StatusOK, body: "{}", wantErr: ErrNoResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := client.Calc(context.Background(), "x", nil)

			assert.ErrorIs(t, err, tt.wantErr)
			if tt.status == http.StatusAccepted {
				assert.Equal(t, int32(4), calls.Load(), "first post plus three polls")
			}
		})
	}
}

func TestCalc_StatusError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.Calc(context.Background(), "x", nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestCalc_ContextCancelled(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Calc(ctx, "x", nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestListEntities_Pages(t *testing.T) {
	// Arrange
	const total = 5
	var offsets []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/data/households/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		offsets = append(offsets, r.URL.Query().Get("offset"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var results []map[string]any
		for i := offset; i < offset+2 && i < total; i++ {
			results = append(results, map[string]any{
				"firm_provided_key": fmt.Sprintf("HH-%d", i),
				"entity_id":         i + 100,
				"name":              "ignored",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": total, "results": results})
	}))

	// Act
	entities, err := client.ListEntities(context.Background(), "households", 2)

	// Assert
	require.NoError(t, err)
	require.Len(t, entities, total)
	assert.Equal(t, Entity{FirmProvidedKey: "HH-0", EntityID: "100"}, entities[0])
	assert.Equal(t, Entity{FirmProvidedKey: "HH-4", EntityID: "104"}, entities[4])
	assert.Equal(t, []string{"", "2", "4"}, offsets)
}

func TestListEntities_StopsOnEmptyPage(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"count": 50, "results": []}`))
	}))

	entities, err := client.ListEntities(context.Background(), "accounts", 10)

	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Equal(t, int32(1), calls.Load())
}
