package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passingCheck() CheckFunc {
	return func(context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, handler http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func runN(h *Health, name string, n int) {
	for _, c := range h.checks {
		if c.Name == name {
			for range n {
				c.run(context.Background())
			}
		}
	}
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passingCheck())

	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))

	runN(h, "db", 2)
	code, _ := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "two failures stay below the threshold")

	runN(h, "db", 1)
	code, body := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveEndpoint_IgnoresReadinessChecks(t *testing.T) {
	h := New()
	h.Add(Check{Name: "postgres", Kind: Readiness, Func: failingCheck("down"), StartUnhealthy: true})

	code, _ := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])

	h.SetReady(true)
	code, _ = probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestReadyEndpoint_StartUnhealthy(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.Add(Check{Name: "redis", Kind: Readiness, Func: passingCheck(), StartUnhealthy: true})

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "check is unhealthy", body.Checks["redis"])

	runN(h, "redis", 1)
	assert.True(t, h.IsReady())
}

func TestReadyEndpoint_OneOfManyFailing(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	h.Add(Check{Name: "redis", Kind: Readiness, Func: failingCheck("i/o timeout"), FailureThreshold: 1})

	runN(h, "postgres", 1)
	runN(h, "redis", 1)

	code, body := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]string{"redis": "i/o timeout"}, body.Checks)
}

func TestCheckRecovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	h := New()
	h.SetReady(true)
	h.Add(Check{
		Name:             "postgres",
		Kind:             Readiness,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Func: func(context.Context) error {
			if fail.Load() {
				return errors.New("down")
			}
			return nil
		},
	})

	runN(h, "postgres", 1)
	assert.False(t, h.IsReady())

	fail.Store(false)
	runN(h, "postgres", 1)
	assert.False(t, h.IsReady(), "one success is below the success threshold")
	runN(h, "postgres", 1)
	assert.True(t, h.IsReady())
}

func TestRunReportsChanges(t *testing.T) {
	c := &check{Check: Check{Name: "x", Timeout: time.Second, Func: failingCheck("x"), FailureThreshold: 1, SuccessThreshold: 1}}
	c.healthy.Store(true)

	assert.True(t, c.run(context.Background()))
	assert.False(t, c.run(context.Background()))
	assert.EqualError(t, c.err(), "x")
}

func TestCheckTimeout(t *testing.T) {
	c := &check{Check: Check{
		Name:             "slow",
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}
	c.healthy.Store(true)

	c.run(context.Background())
	assert.False(t, c.healthy.Load())
	assert.ErrorIs(t, c.err(), context.DeadlineExceeded)
}

func TestStartAndStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddLivenessCheck("tick", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(20 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), stopped+1)
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	h.Start(context.Background(), time.Millisecond)
	defer h.Stop()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				w := httptest.NewRecorder()
				h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
				_ = h.IsReady()
			}
		}()
	}
	wg.Wait()
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	ok := PingCheck("postgres", pingerFunc(func(context.Context) error { return nil }))
	require.NoError(t, ok(context.Background()))

	bad := PingCheck("redis", pingerFunc(func(context.Context) error { return errors.New("refused") }))
	err := bad(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
