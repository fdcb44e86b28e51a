package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bus-booking/internal/config"
	"bus-booking/internal/database"
	"bus-booking/internal/models"
)

// Bookings is the booking use-case layer the handlers call into.
type Bookings interface {
	Create(ctx context.Context, req models.BookingRequest) (int64, error)
	List(ctx context.Context) ([]models.Booking, error)
	Get(ctx context.Context, id int64) (*models.Booking, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type Server struct {
	port      int
	staticDir string

	db       database.Service
	bookings Bookings
	limiter  *rateLimiter
}

// NewServer wires the handlers into an *http.Server listening on cfg.Port.
func NewServer(cfg config.Config, db database.Service, bookings Bookings) *http.Server {
	s := &Server{
		port:      cfg.Port,
		staticDir: cfg.StaticDir,
		db:        db,
		bookings:  bookings,
		limiter:   newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
