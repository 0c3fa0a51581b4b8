package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func sequenceServer(t *testing.T, statuses []int, header http.Header) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		for k, v := range header {
			w.Header()[k] = v
		}
		w.WriteHeader(statuses[i])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGet_BackoffFloorsFor429And5xx(t *testing.T) {
	srv, calls := sequenceServer(t, []int{429, 500, 200}, nil)
	rec := &recordingSleeper{}
	c := NewClient(zap.NewNop(), WithSleeper(rec.sleep))

	resp, err := c.Get(context.Background(), srv.URL, Options{MaxRetries: 2, InitialDelay: 500 * time.Millisecond})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	require.Len(t, rec.delays, 2)
	assert.GreaterOrEqual(t, rec.delays[0], 2000*time.Millisecond)
	assert.GreaterOrEqual(t, rec.delays[1], 1000*time.Millisecond)
}

func TestGet_RetryAfterOverridesSmallerDelay(t *testing.T) {
	srv, _ := sequenceServer(t, []int{503, 200}, http.Header{"Retry-After": []string{"5"}})
	rec := &recordingSleeper{}
	c := NewClient(zap.NewNop(), WithSleeper(rec.sleep))

	resp, err := c.Get(context.Background(), srv.URL, Options{MaxRetries: 2, InitialDelay: 500 * time.Millisecond})
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, rec.delays, 1)
	assert.GreaterOrEqual(t, rec.delays[0], 5000*time.Millisecond)
}

func TestGet_ReturnsFinalNonOKResponseWithoutError(t *testing.T) {
	srv, calls := sequenceServer(t, []int{500, 502, 404}, nil)
	rec := &recordingSleeper{}
	c := NewClient(zap.NewNop(), WithSleeper(rec.sleep))

	resp, err := c.Get(context.Background(), srv.URL, Options{MaxRetries: 2, InitialDelay: 10 * time.Millisecond})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.Len(t, rec.delays, 2)
}

func TestGet_PlainExponentialDelayFor4xx(t *testing.T) {
	srv, _ := sequenceServer(t, []int{400, 400, 200}, nil)
	rec := &recordingSleeper{}
	c := NewClient(zap.NewNop(), WithSleeper(rec.sleep))

	resp, err := c.Get(context.Background(), srv.URL, Options{MaxRetries: 2, InitialDelay: 100 * time.Millisecond})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.delays)
}

func TestGet_TransportFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := &recordingSleeper{}
	c := NewClient(zap.NewNop(), WithSleeper(rec.sleep))

	resp, err := c.Get(context.Background(), url, Options{MaxRetries: 2, InitialDelay: 10 * time.Millisecond})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, IsTransport(err))
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, rec.delays)
}

func TestGet_CancelledContextStopsRetrying(t *testing.T) {
	srv, calls := sequenceServer(t, []int{500}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(zap.NewNop(), WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := c.Get(ctx, srv.URL, Options{MaxRetries: 3, InitialDelay: time.Millisecond})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestGetJSON_StatusError(t *testing.T) {
	srv, _ := sequenceServer(t, []int{404}, nil)
	c := NewClient(zap.NewNop(), WithSleeper(func(context.Context, time.Duration) error { return nil }))

	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, Options{MaxRetries: 0}, &out)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransport(err))
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		status  int
		header  string
		want    time.Duration
	}{
		{"transport", 1, 0, "", 1000 * time.Millisecond},
		{"429 floor", 0, 429, "", 2000 * time.Millisecond},
		{"5xx floor", 0, 503, "", 1000 * time.Millisecond},
		{"exponential beats floor", 3, 500, "", 4000 * time.Millisecond},
		{"retry-after wins", 0, 429, "7", 7 * time.Second},
		{"retry-after smaller ignored", 3, 500, "1", 4000 * time.Millisecond},
		{"non-numeric retry-after ignored", 0, 429, "Wed, 21 Oct 2015 07:28:00 GMT", 2000 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.status != 0 {
				resp = &http.Response{StatusCode: tt.status, Header: http.Header{}}
				if tt.header != "" {
					resp.Header.Set("Retry-After", tt.header)
				}
			}
			assert.Equal(t, tt.want, Backoff(tt.attempt, 500*time.Millisecond, resp))
		})
	}
}
