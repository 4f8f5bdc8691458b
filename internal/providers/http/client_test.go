package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("creates client with default config", func(t *testing.T) {
		client := NewClient(DefaultClientConfig())

		assert.NotNil(t, client)
		assert.Equal(t, 8*time.Second, client.GetTimeout())
		assert.Equal(t, 1, client.GetMaxRetries())
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		client := NewClient(ClientConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 5,
			UserAgent:  "test-agent/1.0",
		})

		assert.Equal(t, 10*time.Second, client.GetTimeout())
		assert.Equal(t, 5, client.GetMaxRetries())
	})

	t.Run("uses defaults for zero values", func(t *testing.T) {
		client := NewClient(ClientConfig{})

		assert.Equal(t, 8*time.Second, client.GetTimeout())
		assert.Equal(t, 1, client.GetMaxRetries())
	})

	t.Run("NoRetry disables retries", func(t *testing.T) {
		client := NewClient(ClientConfig{MaxRetries: NoRetry})

		assert.Equal(t, 0, client.GetMaxRetries())
	})
}

func TestClient_Get(t *testing.T) {
	t.Run("successful GET request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/test", r.URL.Path)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status": "ok"}`))
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		resp, err := client.Get(context.Background(), server.URL+"/test", nil)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Contains(t, string(resp.Body()), "ok")
	})

	t.Run("sends default and per-request headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "custom-value", r.Header.Get("X-Custom-Header"))
			assert.Equal(t, "client-wide", r.Header.Get("X-Client"))
			assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{
			UserAgent: "test-agent/1.0",
			Headers:   map[string]string{"X-Client": "client-wide"},
		})
		resp, err := client.Get(context.Background(), server.URL, map[string]string{
			"X-Custom-Header": "custom-value",
		})

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	})

	t.Run("handles 404 error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		_, err := client.Get(context.Background(), server.URL, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{MaxRetries: NoRetry})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Get(ctx, server.URL, nil)

		require.Error(t, err)
	})

	t.Run("handles server errors with retry", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(ClientConfig{MaxRetries: 3})

		resp, err := client.Get(context.Background(), server.URL, nil)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, int32(3), attempts.Load())
	})
}

func TestClient_Post(t *testing.T) {
	t.Run("successful POST request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"created": true}`))
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		resp, err := client.Post(context.Background(), server.URL, map[string]string{"key": "value"}, nil)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode())
	})

	t.Run("handles POST errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad request"))
		}))
		defer server.Close()

		client := NewClient(DefaultClientConfig())
		_, err := client.Post(context.Background(), server.URL, nil, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
		assert.Contains(t, err.Error(), "bad request")
	})
}
