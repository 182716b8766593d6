package health

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

func up(context.Context) error { return nil }

func down(msg string) Checker {
	return func(context.Context) error { return errors.New(msg) }
}

func ready(t *testing.T, h *Handler) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestLivenessHandler_AlwaysUp(t *testing.T) {
	h := NewHandler()
	h.Register("elasticsearch", down("connection refused"))

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUp, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Empty(t, resp.Checks)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *Handler)
		code     int
		status   Status
		failures map[string]string
	}{
		{
			name:   "no checks",
			setup:  func(*Handler) {},
			code:   http.StatusOK,
			status: StatusUp,
		},
		{
			name: "all up",
			setup: func(h *Handler) {
				h.Register("elasticsearch", up)
				h.RegisterOptional("kafka", up)
			},
			code:   http.StatusOK,
			status: StatusUp,
		},
		{
			name: "required down",
			setup: func(h *Handler) {
				h.Register("elasticsearch", down("connection refused"))
				h.Register("postgres", up)
			},
			code:     http.StatusServiceUnavailable,
			status:   StatusDown,
			failures: map[string]string{"elasticsearch": "connection refused"},
		},
		{
			name: "optional down",
			setup: func(h *Handler) {
				h.Register("elasticsearch", up)
				h.RegisterOptional("kafka", down("no brokers"))
			},
			code:     http.StatusOK,
			status:   StatusDegraded,
			failures: map[string]string{"kafka": "no brokers"},
		},
		{
			name: "required down wins over optional",
			setup: func(h *Handler) {
				h.RegisterOptional("kafka", down("no brokers"))
				h.Register("redis", down("timeout"))
			},
			code:     http.StatusServiceUnavailable,
			status:   StatusDown,
			failures: map[string]string{"kafka": "no brokers", "redis": "timeout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			tt.setup(h)

			code, resp := ready(t, h)

			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, resp.Status)
			for name, res := range resp.Checks {
				if msg, failed := tt.failures[name]; failed {
					assert.Equal(t, StatusDown, res.Status, name)
					assert.Equal(t, msg, res.Error, name)
				} else {
					assert.Equal(t, StatusUp, res.Status, name)
				}
			}
		})
	}
}

func TestRegister_Overwrites(t *testing.T) {
	h := NewHandler()
	h.Register("elasticsearch", down("fail"))
	h.Register("elasticsearch", up)

	code, resp := ready(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Checks, 1)
}

func TestCheck_RunsConcurrentlyWithinTimeout(t *testing.T) {
	h := NewHandler()
	h.timeout = 50 * time.Millisecond
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	h.Register("elasticsearch", slow)
	h.Register("postgres", slow)

	start := time.Now()
	resp := h.Check(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusDown, resp.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks["postgres"].Error)
}
