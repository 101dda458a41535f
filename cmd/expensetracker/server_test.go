package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"expensetracker/internal/alarm"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Check(context.Context) error { return f.err }

type fakePending struct {
	reg *alarm.Registration
	err error
}

func (f fakePending) Pending(context.Context) (*alarm.Registration, error) { return f.reg, f.err }

type fakeIdle struct{ idle bool }

func (f *fakeIdle) SetIdle(idle bool) { f.idle = idle }
func (f *fakeIdle) Idle() bool        { return f.idle }

type fakeLocks struct{ held bool }

func (f fakeLocks) AnyHeld() bool { return f.held }

func newTestOps(pending fakePending, checks map[string]pinger) (*opsDeps, *fakeIdle) {
	logger := zerolog.New(io.Discard)
	idle := &fakeIdle{}
	return &opsDeps{
		checks:   checks,
		pending:  pending,
		idle:     idle,
		locks:    fakeLocks{},
		location: time.UTC,
		logger:   &logger,
	}, idle
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestOpsReadiness(t *testing.T) {
	ops, _ := newTestOps(fakePending{}, map[string]pinger{"db": fakePinger{}})
	rec := serve(t, ops.routes(), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	ops, _ = newTestOps(fakePending{}, map[string]pinger{"db": fakePinger{}, "redis": fakePinger{err: errors.New("down")}})
	rec = serve(t, ops.routes(), http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis not ready")

	rec = serve(t, ops.routes(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpsReminderStatus(t *testing.T) {
	fireAt := time.Date(2026, 3, 15, 21, 0, 0, 0, time.UTC)
	ops, _ := newTestOps(fakePending{reg: &alarm.Registration{
		Token:     "expense_reminder:1001",
		FireAt:    fireAt,
		Precision: alarm.PrecisionAlarmClock,
	}}, nil)

	rec := serve(t, ops.routes(), http.MethodGet, "/reminder")
	require.Equal(t, http.StatusOK, rec.Code)

	var status reminderStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.Pending)
	require.NotNil(t, status.FireAt)
	assert.True(t, fireAt.Equal(*status.FireAt))
	assert.Equal(t, "alarm_clock", status.Precision)
}

func TestOpsReminderNothingPending(t *testing.T) {
	ops, _ := newTestOps(fakePending{}, nil)
	rec := serve(t, ops.routes(), http.MethodGet, "/reminder")
	require.Equal(t, http.StatusOK, rec.Code)

	var status reminderStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.False(t, status.Pending)
	assert.Nil(t, status.FireAt)

	ops, _ = newTestOps(fakePending{err: errors.New("boom")}, nil)
	rec = serve(t, ops.routes(), http.MethodGet, "/reminder")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOpsIdleToggle(t *testing.T) {
	ops, idle := newTestOps(fakePending{}, nil)
	h := ops.routes()

	rec := serve(t, h, http.MethodPost, "/idle?on=true")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, idle.idle)

	rec = serve(t, h, http.MethodPost, "/idle?on=false")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, idle.idle)

	rec = serve(t, h, http.MethodPost, "/idle?on=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h, http.MethodGet, "/idle?on=true")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
