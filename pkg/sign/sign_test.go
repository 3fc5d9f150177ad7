package sign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "dycrawler/pkg/errors"
	"dycrawler/pkg/logger"
)

func newTestClient(endpoint string) *GatewayClient {
	c := NewGatewayClient(endpoint, 2*time.Second, logger.NewNopLogger())
	c.delay = time.Millisecond
	return c
}

func TestSignSuccess(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/signature", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"code":0,"data":{"a_bogus":"tok123"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	token, err := client.Sign(context.Background(), &Request{
		URI:       "/aweme/v1/web/general/search/single/",
		Query:     "keyword=golang&offset=0",
		UserAgent: "test-agent",
		Cookies:   "sessionid=abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok123", token)
	assert.Equal(t, "keyword=golang&offset=0", got.Query)
	assert.Equal(t, "sessionid=abc", got.Cookies)
}

func TestSignEmptyTokenIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"a_bogus":""}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Sign(context.Background(), &Request{URI: "/x"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSignFailure))
}

func TestSignRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"code":0,"data":{"a_bogus":"tok"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	token, err := client.Sign(context.Background(), &Request{URI: "/x"})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSignBoundedRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"code":5,"msg":"no browser session"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Sign(context.Background(), &Request{URI: "/x"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindSignFailure))
	assert.Equal(t, int32(3), calls.Load())
}
