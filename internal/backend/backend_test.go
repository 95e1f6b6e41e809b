// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP clients for the chat service.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/stream"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{})
	require.Equal(t, DefaultBaseURL, c.BaseURL())
	require.Equal(t, DefaultAccept, c.config.Accept)
	require.Equal(t, DefaultConnectTimeout, c.config.ConnectTimeout)

	c = NewClientWithConfig(nil)
	require.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestClient_SetBaseURL(t *testing.T) {
	c := NewClient("example.com:9000/")
	require.Equal(t, "http://example.com:9000", c.BaseURL())

	c.SetBaseURL("https://chat.example.com")
	require.Equal(t, "https://chat.example.com", c.BaseURL())

	c.SetBaseURL("")
	require.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestClient_ChatURL(t *testing.T) {
	c := NewClient("http://host")
	got := c.ChatURL("abc-123", "what is 1 + 1?")
	require.Equal(t, "http://host/chat?question=what+is+1+%2B+1%3F&thread_id=abc-123", got)
}

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "s1", r.URL.Query().Get("thread_id"))
		assert.Equal(t, "hello", r.URL.Query().Get("question"))
		assert.Contains(t, r.Header.Get("Accept"), "application/x-ndjson")

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, m := range []string{"He", "Hello", "Hello!"} {
			fmt.Fprintf(w, "{\"message\":%q}\n", m)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Stream(context.Background(), "s1", "hello")
	require.NoError(t, err)
	defer resp.Close()
	require.Equal(t, stream.FormatNDJSON, resp.Format)

	var got []string
	err = resp.Decode(context.Background(), func(rec stream.Record) error {
		got = append(got, rec.Message)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"He", "Hello", "Hello!"}, got)
}

func TestClient_StreamEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"message\":\"a\"}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Stream(context.Background(), "s", "q")
	require.NoError(t, err)
	defer resp.Close()
	require.Equal(t, stream.FormatSSE, resp.Format)

	var got []string
	require.NoError(t, resp.Decode(context.Background(), func(rec stream.Record) error {
		got = append(got, rec.Message)
		return nil
	}))
	require.Equal(t, []string{"a"}, got)
}

func TestClient_StreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Stream(context.Background(), "s", "q")
	require.Error(t, err)

	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrTypeStatus, ce.Type)
	require.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	require.Contains(t, err.Error(), "model overloaded")
	require.True(t, IsTransportError(err))
}

func TestClient_StreamNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Stream(context.Background(), "s", "q")
	require.ErrorIs(t, err, ErrNoBody)
	require.True(t, IsTransportError(err))
}

func TestClient_StreamConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Stream(context.Background(), "s", "q")
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrTypeTransport, ce.Type)
}

func TestClient_StreamCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, `{"message":"x"}`+"\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := NewClient(srv.URL).Stream(ctx, "s", "q")
	require.NoError(t, err)
	defer resp.Close()

	err = resp.Decode(ctx, func(stream.Record) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

const adminJSON = `{
  "admin": {
    "id": 14,
    "name": "Test Admin",
    "name_l1": null,
    "email": "admin@example.com",
    "is_active": true,
    "permission_map": {"all": true},
    "profile_image": null,
    "roles": [{"id": 1, "reference_number": 1, "name": "Super Admin", "slug": "super-admin", "description": "all"}]
  },
  "success": true
}`

func TestIdentity_CurrentAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/cp/admins/current", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, adminJSON)
	}))
	defer srv.Close()

	ic := NewIdentityClient(NewClient(srv.URL), time.Minute, 1)
	now := time.Now()
	ic.now = func() time.Time { return now }

	admin, err := ic.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, 14, admin.ID)
	require.Equal(t, "Test Admin", admin.DisplayName())
	require.Equal(t, "admin@example.com", admin.Email)
	require.True(t, admin.HasPermission("orders"))
	require.Len(t, admin.Roles, 1)
	require.Nil(t, admin.ProfileImage)

	_, err = ic.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load(), "second call served from cache")

	now = now.Add(2 * time.Minute)
	_, err = ic.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load(), "stale cache refetches")

	ic.Invalidate()
	_, _ = ic.Current(context.Background())
	require.Equal(t, int32(3), hits.Load())
}

func TestIdentity_RetryOnceThenFallback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ic := NewIdentityClient(NewClient(srv.URL), 0, DefaultIdentityRetries)
	_, err := ic.Current(context.Background())
	require.ErrorIs(t, err, ErrIdentityUnavailable)
	require.Equal(t, http.StatusUnauthorized, StatusCode(err))
	require.Equal(t, int32(2), hits.Load())

	require.Equal(t, FallbackUserName, ic.DisplayName(context.Background()))
}

func TestIdentity_RetrySucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, adminJSON)
	}))
	defer srv.Close()

	ic := NewIdentityClient(NewClient(srv.URL), 0, 1)
	require.Equal(t, "Test Admin", ic.DisplayName(context.Background()))
}

func TestAdmin_DisplayNameFallback(t *testing.T) {
	var a *Admin
	require.Equal(t, FallbackUserName, a.DisplayName())
	require.Equal(t, FallbackUserName, (&Admin{}).DisplayName())
	require.False(t, a.HasPermission("x"))
}
