package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"upc-catalog/internal/types"
)

func TestNewHTTPClient(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()

	client := NewHTTPClient(config, logger)

	assert.NotNil(t, client)
	assert.Equal(t, config, client.config)
	assert.Equal(t, logger, client.logger)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.limiter)

	client.Close()
}

func TestHTTPClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 10 * time.Millisecond
	logger := logrus.New()
	client := NewHTTPClient(config, logger)
	defer client.Close()

	body, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "test response", string(body))
}

func TestHTTPClient_Get_Accepts2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		w.Write([]byte("cached"))
	}))
	defer server.Close()

	client := NewHTTPClient(types.DefaultConfig(), logrus.New())
	defer client.Close()

	body, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "cached", string(body))
}

func TestHTTPClient_Get_NotFound(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 10 * time.Millisecond
	config.MaxRetries = 2
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load(), "4xx responses are not retried")
}

func TestHTTPClient_Get_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.RequestDelay = 10 * time.Millisecond
	config.MaxRetries = 1
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	body, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPClient_Get_ContextCancelled(t *testing.T) {
	config := types.DefaultConfig()
	config.RequestDelay = 100 * time.Millisecond
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "http://example.com")

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestHTTPClient_Close(t *testing.T) {
	client := NewHTTPClient(types.DefaultConfig(), logrus.New())

	// Should not panic
	client.Close()
}
