package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"health-sync/core/retry"
)

// quickRetry keeps test failures from sleeping through the backoff schedule.
func quickRetry(attempts int) retry.Options {
	return retry.Options{MaxAttempts: attempts, Sleep: func(time.Duration) {}}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-01-06", r.URL.Query().Get("start_date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"score":84}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop(), 5, quickRetry(1))

	var out struct {
		Data []map[string]any `json:"data"`
	}
	err := client.GetJSON(context.Background(), "test", srv.URL+"?start_date=2026-01-06",
		map[string]string{"Authorization": "Bearer tok"}, &out)
	require.NoError(t, err)
	require.Len(t, out.Data, 1)
	assert.Equal(t, 84.0, out.Data[0]["score"])
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such day", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop(), 5, quickRetry(2))

	err := client.GetJSON(context.Background(), "test", srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "the status survives the retry wrapper")
	assert.Contains(t, err.Error(), "no such day")
}

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop(), 5, quickRetry(4))

	var out map[string]any
	err := client.GetJSON(context.Background(), "test", srv.URL, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, true, out["ok"])
}

func TestPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop(), 5, quickRetry(1))

	form := url.Values{}
	form.Set("grant_type", "authorization_code")

	var out map[string]any
	err := client.PostForm(context.Background(), "test", srv.URL, nil, form, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", out["access_token"])
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"email":"a@b.c","password":"pw"}`, string(body))
		_, _ = w.Write([]byte(`{"token":"sess"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(zap.NewNop(), 5, quickRetry(1))

	var out map[string]any
	err := client.PostJSON(context.Background(), "test", srv.URL, nil,
		map[string]string{"email": "a@b.c", "password": "pw"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "sess", out["token"])
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(assert.AnError))
	assert.False(t, IsNotFound(&retry.StatusError{Status: http.StatusUnauthorized}))
	assert.True(t, IsNotFound(&retry.StatusError{Status: http.StatusNotFound}))
}
