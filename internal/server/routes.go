package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"bus-booking/internal/booking"
	"bus-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 1 << 20

// RegisterRoutes sets up the router with all endpoints.
func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(s.limiter.middleware)

	r.Get("/health", s.healthHandler)

	r.Route("/api/bookings", func(r chi.Router) {
		r.Get("/", s.ListBookingsHandler)
		r.Post("/", s.CreateBookingHandler)
		r.Get("/{id}", s.GetBookingHandler)
		r.Delete("/{id}", s.DeleteBookingHandler)
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}

	return r
}

// healthHandler provides health information.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.db.Health())
}

// ListBookingsHandler returns every booking, newest first.
func (s *Server) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// CreateBookingHandler validates and stores a booking.
func (s *Server) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Printf("[HTTP] request_id=%s invalid booking payload: %v", middleware.GetReqID(r.Context()), err)
		writeJSON(w, http.StatusBadRequest, errorBody("Ogiltig förfrågan."))
		return
	}

	id, err := s.bookings.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.CreatedResponse{ID: id})
}

// GetBookingHandler returns a single booking.
func (s *Server) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Ogiltigt boknings-id."))
		return
	}

	b, err := s.bookings.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBookingHandler cancels a booking. Unknown ids report deleted: 0.
func (s *Server) DeleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		// no row can have a non-numeric id
		writeJSON(w, http.StatusOK, models.DeletedResponse{Deleted: 0})
		return
	}

	n, err := s.bookings.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DeletedResponse{Deleted: n})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case booking.IsValidation(err), booking.IsDuplicate(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, booking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	default:
		log.Printf("[HTTP] request_id=%s %s %s failed: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func errorBody(msg string) models.ErrorResponse {
	return models.ErrorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] encode response: %v", err)
	}
}
