package sirix

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

	"github.com/lionvest/crmrecon/internal/resilience"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: attempts, MaxBackoff: time.Millisecond}
}

func TestUserBalanceSuccess(t *testing.T) {
	var gotReq userStatusRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, userStatusPath, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"UserData":{"AccountBalance":{"Balance":1500.5,"Equity":1490.0,"OpenPnL":-10.5}}}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	bal, err := client.UserBalance(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, bal.Balance)
	assert.Equal(t, 1500.5, *bal.Balance)
	assert.Equal(t, 1490.0, *bal.Equity)
	assert.Equal(t, -10.5, *bal.OpenPnL)

	assert.Equal(t, "42", gotReq.UserID)
	assert.False(t, gotReq.GetOpenPositions)
	assert.False(t, gotReq.GetPendingPositions)
	assert.False(t, gotReq.GetClosePositions)
	assert.False(t, gotReq.GetMonetaryTransactions)
}

func TestUserBalanceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"UserData":{"AccountBalance":{"Balance":100}}}`))
	}))
	defer server.Close()

	client := NewClient("tok", WithBaseURL(server.URL), WithRetry(fastRetry(3)))

	bal, err := client.UserBalance(context.Background(), "42")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	require.NotNil(t, bal.Balance)
	assert.Equal(t, 100.0, *bal.Balance)
}

func TestUserBalanceDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"Message":"invalid token"}`))
	}))
	defer server.Close()

	client := NewClient("bad", WithBaseURL(server.URL), WithRetry(fastRetry(3)))

	_, err := client.UserBalance(context.Background(), "42")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "4xx must not be retried")
	assert.Contains(t, err.Error(), "403")
}

func TestUserBalanceRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("tok", WithBaseURL(server.URL), WithRetry(fastRetry(3)))

	_, err := client.UserBalance(context.Background(), "42")
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.Contains(t, err.Error(), "503")
}

func TestUserBalanceMissingAccountBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"UserData":{}}`))
	}))
	defer server.Close()

	client := NewClient("tok", WithBaseURL(server.URL))

	bal, err := client.UserBalance(context.Background(), "42")
	require.NoError(t, err, "a reply without a balance object is not an error")
	assert.Nil(t, bal.Balance)
	assert.Nil(t, bal.Equity)
	assert.Nil(t, bal.OpenPnL)
}

func TestUserBalanceMalformedReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient("tok", WithBaseURL(server.URL), WithRetry(fastRetry(2)))

	_, err := client.UserBalance(context.Background(), "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestUserBalanceMonetaryTransactionsFlag(t *testing.T) {
	var gotReq userStatusRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"UserData":{"AccountBalance":{}}}`))
	}))
	defer server.Close()

	client := NewClient("tok", WithBaseURL(server.URL), WithMonetaryTransactions(true))

	_, err := client.UserBalance(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, gotReq.GetMonetaryTransactions)
}
