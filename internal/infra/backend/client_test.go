package backend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/points-dashboard/pkg/errors"
)

func newTestClient(baseURL string, attempts int) *Client {
	return NewClient(Options{
		BaseURL:     baseURL,
		Timeout:     time.Second,
		MaxAttempts: attempts,
		BaseBackoff: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTimelineSendsQueryAndBearer(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"timeline":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL+"/", 1)
	body, err := client.PointsTimeline(context.Background(), "daily", 30, "abc")
	require.NoError(t, err)
	require.JSONEq(t, `{"timeline":[]}`, string(body))
	require.Equal(t, "/api/v1/points/timeline", gotPath)
	require.Equal(t, "days=30&granularity=daily", gotQuery)
	require.Equal(t, "Bearer abc", gotAuth)
}

func TestRemoteErrorMessageIsVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Insufficient points"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).RedeemReward(context.Background(), 9, "abc")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRemote))
	require.Equal(t, "Insufficient points", apperrors.MessageOf(err))
	require.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestRemoteErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 1).AvailableRewards(context.Background(), "abc")
	require.Equal(t, "backend returned status 404", apperrors.MessageOf(err))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream hiccup"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	body, err := newTestClient(server.URL, 3).ActivityFeed(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
	require.Equal(t, int32(3), calls.Load())
}

func TestRedeemIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/rewards/9/redeem", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 3).RedeemReward(context.Background(), 9, "abc")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url, 2).DashboardStats(context.Background(), "month", "abc")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNetwork))
}
