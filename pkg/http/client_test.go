package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "signalforge-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]float64
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]float64{"doubled": in["x"] * 2})
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithUserAgent("signalforge-test"))
	var out map[string]float64
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodPost,
		URL:         srv.URL,
		QueryParams: map[string][]string{"ids": {"bitcoin"}},
		Body:        map[string]float64{"x": 21},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42.0, out["doubled"])
}

func TestSendAndParseStatusError(t *testing.T) {
	code := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("slow down\n"))
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "slow down", se.Body)
	assert.True(t, IsRetryable(err))

	code = http.StatusNotFound
	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("connection reset")))
	assert.True(t, IsRetryable(&StatusError{Code: 502}))
	assert.False(t, IsRetryable(&StatusError{Code: 400}))
}
