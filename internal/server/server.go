package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"cafe-system/internal/logger"
	"cafe-system/internal/models"
	"cafe-system/internal/services/booking"
	"cafe-system/internal/services/order"
	"cafe-system/internal/services/tables"
	"cafe-system/internal/timerange"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HealthFunc reports whether a backing dependency is reachable
type HealthFunc func(ctx context.Context) error

// Server exposes the reservation and order engines over HTTP/JSON
type Server struct {
	bookings *booking.Service
	tables   *tables.Registry
	orders   *order.Service
	health   HealthFunc

	validate        *validator.Validate
	clock           timerange.Clock
	logger          *logger.Logger
	defaultDuration int
}

// Deps are the collaborators of the HTTP surface
type Deps struct {
	Bookings *booking.Service
	Tables   *tables.Registry
	Orders   *order.Service
	// Health is optional; nil means always healthy
	Health HealthFunc
	Clock  timerange.Clock
	Logger *logger.Logger
	// DefaultDurationMinutes applies when a booking request omits its duration
	DefaultDurationMinutes int
}

// New creates the HTTP surface
func New(d Deps) *Server {
	clock := d.Clock
	if clock == nil {
		clock = timerange.SystemClock{}
	}
	duration := d.DefaultDurationMinutes
	if duration <= 0 {
		duration = 60
	}
	return &Server{
		bookings:        d.Bookings,
		tables:          d.Tables,
		orders:          d.Orders,
		health:          d.Health,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		clock:           clock,
		logger:          d.Logger,
		defaultDuration: duration,
	}
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /bookings", s.createBooking)
	mux.HandleFunc("GET /bookings", s.listBookings)
	mux.HandleFunc("GET /bookings/{id}", s.getBooking)
	mux.HandleFunc("POST /bookings/{id}/tables", s.assignTable)
	mux.HandleFunc("POST /bookings/{id}/approve", s.approveBooking)
	mux.HandleFunc("POST /bookings/{id}/cancel", s.cancelBooking)

	mux.HandleFunc("GET /tables", s.listTables)
	mux.HandleFunc("GET /tables/available", s.availableTables)
	mux.HandleFunc("GET /tables/{number}", s.getTable)
	mux.HandleFunc("PUT /tables/{number}/status", s.setTableStatus)
	mux.HandleFunc("POST /tables/{number}/release", s.releaseTable)

	mux.HandleFunc("POST /orders", s.placeOrder)
	mux.HandleFunc("GET /orders", s.listOrders)
	mux.HandleFunc("GET /orders/{id}", s.getOrder)
	mux.HandleFunc("GET /orders/{id}/status", s.trackOrder)
	mux.HandleFunc("POST /orders/{id}/process", s.processOrder)
	mux.HandleFunc("PUT /orders/{id}/driver", s.assignDriver)
	mux.HandleFunc("PUT /orders/{id}/status", s.updateOrderStatus)
	mux.HandleFunc("POST /orders/{id}/transition", s.transitionOrder)
	mux.HandleFunc("POST /orders/{id}/confirm", s.orderStep(s.orders.Confirm))
	mux.HandleFunc("POST /orders/{id}/prepare", s.orderStep(s.orders.StartPreparation))
	mux.HandleFunc("POST /orders/{id}/ready", s.orderStep(s.orders.MarkReady))
	mux.HandleFunc("POST /orders/{id}/handover", s.orderStep(s.orders.HandOver))
	mux.HandleFunc("POST /orders/{id}/complete", s.orderStep(s.orders.Complete))
	mux.HandleFunc("POST /orders/{id}/cancel", s.orderStep(s.orders.Cancel))

	mux.HandleFunc("GET /health", s.healthCheck)

	return s.withLogging(mux)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "cafe-service",
	}

	status := http.StatusOK
	if s.health != nil {
		if err := s.health(ctx); err != nil {
			s.logger.Error("health_check_failed", "Dependency unreachable", requestID(r), err, nil)
			response["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, r, status, response)
}

// decode reads a JSON body into v and validates it
func (s *Server) decode(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON format: %v", models.ErrInvalidInput, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("field %s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("field %s failed %s", fe.Namespace(), fe.Tag())
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrPreconditionFailed),
		errors.Is(err, models.ErrIllegalTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request_failed", "Unexpected error", requestID(r), err, nil)
		message = "Internal server error"
	}
	s.writeErrorResponse(w, r, status, message)
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	s.writeJSON(w, r, statusCode, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID(r),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response_encoding_failed", "Failed to encode response", requestID(r), err, nil)
	}
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", models.ErrInvalidInput, name)
	}
	return n, nil
}

func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", models.ErrInvalidInput, name)
	}
	return n, true, nil
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", models.ErrInvalidInput, name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", models.ErrInvalidInput, name)
	}
	return t, nil
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// withLogging adds request logging middleware
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = logger.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", id)

		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		s.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			id,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			id,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
