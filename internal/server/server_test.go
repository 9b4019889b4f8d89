package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
	"cafe-system/internal/services/booking"
	"cafe-system/internal/services/notification"
	"cafe-system/internal/services/order"
	"cafe-system/internal/services/tables"
	"cafe-system/internal/timerange"
)

var (
	now = time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC)
	t0  = time.Date(2026, 6, 12, 19, 0, 0, 0, time.UTC)
)

type testEnv struct {
	handler http.Handler
	notes   *notification.Recorder
}

func newEnv(t *testing.T, health HealthFunc) testEnv {
	t.Helper()
	clock := timerange.NewFixedClock(now)
	log := logger.Discard()
	notes := &notification.Recorder{}

	inventory := []models.Table{
		{Number: 1, Capacity: 2},
		{Number: 2, Capacity: 4},
		{Number: 3, Capacity: 4},
	}
	registry, err := tables.NewRegistry(inventory, clock, log)
	require.NoError(t, err)

	srv := New(Deps{
		Bookings:               booking.NewService(registry, notes, clock, log),
		Tables:                 registry,
		Orders:                 order.NewService(notes, clock, log),
		Health:                 health,
		Clock:                  clock,
		Logger:                 log,
		DefaultDurationMinutes: 60,
	})
	return testEnv{handler: srv.Routes(), notes: notes}
}

func (e testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBookingFlow(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"customer_id": 5, "start_time": t0, "guests": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decodeBody[models.Booking](t, rec)
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, 60, b.DurationMinutes)
	assert.Equal(t, models.ReservationPending, b.Status)

	rec = env.do(t, http.MethodPost, "/bookings/1/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/bookings/1/tables", map[string]int{"table_number": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int{1}, decodeBody[models.Booking](t, rec).TableNumbers)

	rec = env.do(t, http.MethodPost, "/bookings/1/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ReservationApproved, decodeBody[models.Booking](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/tables/1", nil)
	assert.Equal(t, models.TableReserved, decodeBody[models.Table](t, rec).Status)

	// overlapping second booking cannot take the same table
	env.do(t, http.MethodPost, "/bookings", map[string]interface{}{
		"customer_id": 6, "start_time": t0.Add(30 * time.Minute), "duration_minutes": 60, "guests": 2,
	})
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/tables/1?check=%s&duration=60", t0.Add(30*time.Minute).Format(time.RFC3339)), nil)
	assert.Equal(t, false, decodeBody[map[string]interface{}](t, rec)["available"])
	rec = env.do(t, http.MethodPost, "/bookings/2/tables", map[string]int{"table_number": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/bookings/1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decodeBody[models.Booking](t, rec)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)
	assert.Empty(t, cancelled.TableNumbers)

	rec = env.do(t, http.MethodGet, "/bookings?customer_id=5", nil)
	assert.Len(t, decodeBody[[]models.Booking](t, rec), 1)

	assert.Equal(t, []notification.Sent{
		{CustomerID: 5, Message: "Booking confirmed!"},
		{CustomerID: 5, Message: "Your booking (ID: 1) has been cancelled"},
	}, env.notes.Sent())
}

func TestBookingErrors(t *testing.T) {
	env := newEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"zero guests", http.MethodPost, "/bookings", map[string]interface{}{"customer_id": 5, "start_time": t0, "guests": 0}, http.StatusBadRequest},
		{"past start", http.MethodPost, "/bookings", map[string]interface{}{"customer_id": 5, "start_time": now.Add(-time.Hour), "guests": 2}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/bookings", map[string]interface{}{"customer_id": 5, "start_time": t0, "guests": 2, "vip": true}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/bookings/abc", nil, http.StatusBadRequest},
		{"missing booking", http.MethodGet, "/bookings/9", nil, http.StatusNotFound},
		{"approve missing", http.MethodPost, "/bookings/9/approve", nil, http.StatusNotFound},
		{"cancel missing", http.MethodPost, "/bookings/9/cancel", nil, http.StatusNotFound},
		{"bad window", http.MethodGet, "/bookings?from=yesterday&to=today", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAssignTable_CapacityExceeded(t *testing.T) {
	env := newEnv(t, nil)
	env.do(t, http.MethodPost, "/bookings", map[string]interface{}{"customer_id": 5, "start_time": t0, "guests": 3})

	rec := env.do(t, http.MethodPost, "/bookings/1/tables", map[string]int{"table_number": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity_exceeded")

	rec = env.do(t, http.MethodPost, "/bookings/1/tables", map[string]int{"table_number": 42})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTables(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/tables/available?start="+t0.Format(time.RFC3339)+"&guests=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	available := decodeBody[[]models.Table](t, rec)
	require.Len(t, available, 2)
	assert.Equal(t, 2, available[0].Number)

	rec = env.do(t, http.MethodPut, "/tables/2/status", map[string]string{"status": "UNAVAILABLE"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/tables/available?start="+t0.Format(time.RFC3339)+"&guests=3", nil)
	assert.Len(t, decodeBody[[]models.Table](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/tables/2/release", nil)
	assert.Equal(t, models.TableAvailable, decodeBody[models.Table](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/tables?min=4", nil)
	assert.Len(t, decodeBody[[]models.Table](t, rec), 2)

	rec = env.do(t, http.MethodPut, "/tables/2/status", map[string]string{"status": "BROKEN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/tables/available?start="+t0.Format(time.RFC3339), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/tables/77/release", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliveryOrderFlow(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"customer_id":      5,
		"kind":             "delivery",
		"delivery_address": "12 Baker Street",
		"items":            []map[string]interface{}{{"id": 1, "name": "Pizza", "price": 12.5}, {"id": 2, "name": "Cola", "price": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decodeBody[models.Order](t, rec)
	assert.Equal(t, 14.5, placed.TotalPrice)
	assert.Equal(t, models.StatusPending, placed.Status)

	rec = env.do(t, http.MethodPost, "/orders/1/process", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no driver assigned")

	rec = env.do(t, http.MethodPut, "/orders/1/driver", map[string]int{"driver_id": 7})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/orders/1/process", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusInProgress, decodeBody[models.Order](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/orders/1/status", nil)
	assert.Equal(t, StatusResponse{OrderID: 1, Status: models.StatusInProgress}, decodeBody[StatusResponse](t, rec))
}

func TestConfirmationFlow(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"customer_id":  3,
		"kind":         "eat_in",
		"table_number": 2,
		"confirm":      true,
		"items":        []map[string]interface{}{{"name": "Tea", "price": 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusPendingConfirmation, decodeBody[models.Order](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/orders/1/transition", map[string]string{"status": "READY"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, status := range []string{"CONFIRMED", "PREPARING", "READY", "SERVED", "COMPLETED", "COMPLETED"} {
		rec = env.do(t, http.MethodPost, "/orders/1/transition", map[string]string{"status": status})
		require.Equal(t, http.StatusOK, rec.Code, status)
	}

	rec = env.do(t, http.MethodGet, "/orders?status=COMPLETED", nil)
	assert.Len(t, decodeBody[[]models.Order](t, rec), 1)
	rec = env.do(t, http.MethodGet, "/orders?outstanding=true", nil)
	assert.Empty(t, decodeBody[[]models.Order](t, rec))
}

func TestLifecycleSteps(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"customer_id":      8,
		"kind":             "delivery",
		"delivery_address": "4 Mill Lane",
		"confirm":          true,
		"items":            []map[string]interface{}{{"name": "Soup", "price": 6}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, step := range []string{"confirm", "prepare", "ready"} {
		rec = env.do(t, http.MethodPost, "/orders/1/"+step, nil)
		require.Equal(t, http.StatusOK, rec.Code, step)
	}
	assert.Equal(t, models.StatusReady, decodeBody[models.Order](t, rec).Status)

	// delivery hand-over waits for a driver
	rec = env.do(t, http.MethodPost, "/orders/1/handover", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/orders/1/driver", map[string]int{"driver_id": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/orders/1/handover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusDelivered, decodeBody[models.Order](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/orders/1/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusCompleted, decodeBody[models.Order](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/orders/1/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/orders/9/handover", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderErrors(t *testing.T) {
	env := newEnv(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"no items", http.MethodPost, "/orders", map[string]interface{}{"customer_id": 1, "kind": "takeaway", "pickup_time": t0, "items": []interface{}{}}, http.StatusBadRequest},
		{"takeaway without pickup", http.MethodPost, "/orders", map[string]interface{}{"customer_id": 1, "kind": "takeaway", "items": []map[string]interface{}{{"name": "Tea", "price": 3}}}, http.StatusBadRequest},
		{"eat in without table", http.MethodPost, "/orders", map[string]interface{}{"customer_id": 1, "kind": "eat_in", "items": []map[string]interface{}{{"name": "Tea", "price": 3}}}, http.StatusBadRequest},
		{"unknown kind", http.MethodPost, "/orders", map[string]interface{}{"customer_id": 1, "kind": "drone", "items": []map[string]interface{}{{"name": "Tea", "price": 3}}}, http.StatusBadRequest},
		{"missing order", http.MethodGet, "/orders/5", nil, http.StatusNotFound},
		{"process missing", http.MethodPost, "/orders/5/process", nil, http.StatusNotFound},
		{"driver on missing", http.MethodPut, "/orders/5/driver", map[string]int{"driver_id": 2}, http.StatusNotFound},
		{"zero driver", http.MethodPut, "/orders/5/driver", map[string]int{"driver_id": 0}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/orders?status=LOST", nil, http.StatusBadRequest},
		{"transition missing", http.MethodPost, "/orders/5/transition", map[string]string{"status": "CONFIRMED"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTakeAwayAndUpdateStatus(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"customer_id": 4, "kind": "takeaway", "pickup_time": t0,
		"items": []map[string]interface{}{{"name": "Bagel", "price": 2.5}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/orders/1/process", nil)
	assert.Equal(t, models.StatusCompleted, decodeBody[models.Order](t, rec).Status)

	rec = env.do(t, http.MethodPut, "/orders/1/status", map[string]string{"status": "PENDING"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusPending, decodeBody[models.Order](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/orders?customer_id=4", nil)
	assert.Len(t, decodeBody[[]models.Order](t, rec), 1)
}

func TestHealthAndRequestID(t *testing.T) {
	env := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	down := newEnv(t, func(context.Context) error { return errors.New("db down") })
	rec = down.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decodeBody[map[string]interface{}](t, rec)["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrCapacityExceeded, http.StatusConflict},
		{models.ErrPreconditionFailed, http.StatusConflict},
		{models.ErrIllegalTransition, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
