package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotdesk/internal/cache"
	"slotdesk/internal/database"
	"slotdesk/internal/models"
	"slotdesk/internal/service"
	"slotdesk/internal/slots"
)

func newTestServer(t *testing.T, opts Options) *HTTPServer {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := service.NewSchedulingService(db, cache.Noop{}, slots.DefaultParams(), &logger)
	return NewHTTPServer(svc, opts, &logger)
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSlots(t *testing.T, w *httptest.ResponseRecorder) []models.TimeSlot {
	t.Helper()
	var out []models.TimeSlot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out["error"]
}

func TestBookingLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()

	// Generate the default 9-17 hourly grid.
	w := doJSON(t, h, http.MethodPost, "/generate-timeslots", map[string]string{"date": "2024-06-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	var genResp struct {
		Created int64 `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genResp))
	assert.Equal(t, int64(8), genResp.Created)

	// Regeneration is idempotent.
	w = doJSON(t, h, http.MethodPost, "/generate-timeslots", map[string]string{"date": "2024-06-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genResp))
	assert.Equal(t, int64(0), genResp.Created)

	req := httptest.NewRequest(http.MethodGet, "/available-timeslots?date=2024-06-01", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	available := decodeSlots(t, rec)
	require.Len(t, available, 8)
	assert.Equal(t, "09:00", available[0].StartTime)
	assert.Equal(t, "17:00", available[7].EndTime)

	// Book the 09:00 slot.
	first := available[0]
	w = doJSON(t, h, http.MethodPost, "/book-appointment", map[string]any{
		"slot_id":        first.ID,
		"customer_name":  "Alice",
		"customer_email": "a@x.com",
		"customer_phone": "555-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Second attempt on the same slot conflicts.
	w = doJSON(t, h, http.MethodPost, "/book-appointment", map[string]any{
		"slot_id":        first.ID,
		"customer_name":  "Bob",
		"customer_email": "b@x.com",
		"customer_phone": "555-2",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "slot is already booked or does not exist", decodeError(t, w))

	// The booked slot left the availability listing.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-timeslots?date=2024-06-01", nil))
	assert.Len(t, decodeSlots(t, rec), 7)

	// It shows up in the booked listing with the submitted contact.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booked-appointments?date=2024-06-01", nil))
	booked := decodeSlots(t, rec)
	require.Len(t, booked, 1)
	assert.Equal(t, first.ID, booked[0].ID)
	require.NotNil(t, booked[0].CustomerName)
	assert.Equal(t, "Alice", *booked[0].CustomerName)

	// Cancel and the slot reappears, contact cleared.
	w = doJSON(t, h, http.MethodPost, "/cancel-appointment", map[string]any{"slot_id": first.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/cancel-appointment", map[string]any{"slot_id": first.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no booked appointment found for this slot", decodeError(t, w))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-timeslots?date=2024-06-01", nil))
	available = decodeSlots(t, rec)
	assert.Len(t, available, 8)
	for _, slot := range available {
		assert.Nil(t, slot.CustomerName)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booked-appointments", nil))
	assert.Len(t, decodeSlots(t, rec), 0)
}

func TestGenerateTimeslots_Validation(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()

	tests := []struct {
		name      string
		body      any
		wantError string
	}{
		{
			name:      "missing date",
			body:      map[string]string{},
			wantError: "date is required",
		},
		{
			name:      "malformed date",
			body:      map[string]string{"date": "01-06-2024"},
			wantError: "invalid date format; expected YYYY-MM-DD",
		},
		{
			name:      "invalid JSON",
			body:      "not json",
			wantError: "invalid JSON body",
		},
		{
			name:      "unknown field",
			body:      map[string]string{"date": "2024-06-01", "bogus": "x"},
			wantError: "invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/generate-timeslots", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, decodeError(t, w))
		})
	}

	t.Run("invalid hour override", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/generate-timeslots", map[string]any{
			"date":       "2024-06-01",
			"start_hour": 18,
			"end_hour":   9,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate-timeslots", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestGenerateTimeslots_CustomGrid(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/generate-timeslots", map[string]any{
		"date":          "2024-06-01",
		"start_hour":    10,
		"end_hour":      12,
		"slot_duration": 30,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-timeslots?date=2024-06-01", nil))
	available := decodeSlots(t, rec)
	require.Len(t, available, 4)
	assert.Equal(t, "10:00", available[0].StartTime)
	assert.Equal(t, "10:30", available[0].EndTime)
}

func TestAvailableTimeslots_MissingDate(t *testing.T) {
	srv := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-timeslots", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date is required", decodeError(t, rec))
}

func TestBookAppointment_Validation(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing slot id", map[string]any{
			"customer_name": "Alice", "customer_email": "a@x.com", "customer_phone": "555-1",
		}},
		{"missing customer fields", map[string]any{"slot_id": 1}},
		{"blank customer fields", map[string]any{
			"slot_id": 1, "customer_name": "  ", "customer_email": "a@x.com", "customer_phone": "555-1",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/book-appointment", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	t.Run("nonexistent slot conflicts", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/book-appointment", map[string]any{
			"slot_id":        9999,
			"customer_name":  "Alice",
			"customer_email": "a@x.com",
			"customer_phone": "555-1",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "slot is already booked or does not exist", decodeError(t, w))
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	srv := newTestServer(t, Options{APIKey: "secret"})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/booked-appointments", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/booked-appointments", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Probes stay open.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitRPS: 1, RateLimitBurst: 2})
	h := srv.Handler()

	var limited bool
	for i := 0; i < 5; i++ {
		w := doJSON(t, h, http.MethodPost, "/generate-timeslots", map[string]string{"date": "2024-06-01"})
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "expected a 429 after burst exhaustion")

	// Reads are never limited.
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/booked-appointments", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	// A caller-supplied id is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestExportAppointments(t *testing.T) {
	srv := newTestServer(t, Options{})
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/generate-timeslots", map[string]string{"date": "2024-06-01"})
	require.Equal(t, http.StatusCreated, w.Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-timeslots?date=2024-06-01", nil))
	available := decodeSlots(t, rec)
	require.NotEmpty(t, available)

	w = doJSON(t, h, http.MethodPost, "/book-appointment", map[string]any{
		"slot_id":        available[0].ID,
		"customer_name":  "Alice",
		"customer_email": "a@x.com",
		"customer_phone": "555-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export-appointments?date=2024-06-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}
