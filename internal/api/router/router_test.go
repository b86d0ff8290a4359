package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduling-platform/internal/booking"
	"github.com/wolfman30/clinic-scheduling-platform/internal/consultation"
	httpmiddleware "github.com/wolfman30/clinic-scheduling-platform/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

func newTestRouter(t *testing.T, authSecret string) http.Handler {
	t.Helper()
	logger := logging.Default()
	bookingSvc := booking.NewService(booking.NewInMemoryRepository(), nil, booking.Options{SlotMinutes: 30}, logger)
	consultSvc := consultation.NewService(consultation.NewInMemoryRepository(), time.Hour, logger)
	return New(&Config{
		Logger:              logger,
		BookingHandler:      booking.NewHandler(bookingSvc, logger),
		ConsultationHandler: consultation.NewHandler(consultSvc, logger),
		AuthSecret:          authSecret,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAppointmentRoutesWired(t *testing.T) {
	r := newTestRouter(t, "")

	body, _ := json.Marshal(map[string]any{
		"patient_id":       uuid.NewString(),
		"doctor_id":        uuid.NewString(),
		"starts_at":        time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour),
		"duration_minutes": 30,
		"type":             "general",
		"reason":           "checkup",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestConsultationRoutesWired(t *testing.T) {
	r := newTestRouter(t, "")

	body, _ := json.Marshal(map[string]any{
		"appointment_id":  uuid.NewString(),
		"doctor_id":       uuid.NewString(),
		"patient_id":      uuid.NewString(),
		"scheduled_start": time.Now().UTC().Add(time.Hour),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/consultations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAuthGuardsAPIRoutes(t *testing.T) {
	r := newTestRouter(t, "test-secret")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/appointment-requests/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays public.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, httpmiddleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "doctor",
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/appointment-requests/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
