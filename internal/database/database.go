package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"bus-booking/internal/config"
	"bus-booking/internal/models"

	"github.com/jackc/pgx/v5/pgconn"

	// PostgreSQL driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrDuplicateIdentity is returned by InsertBooking when the unique index on
// personnummer rejects the row.
var ErrDuplicateIdentity = errors.New("personnummer already booked")

const uniqueViolation = "23505"

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	InsertBooking(ctx context.Context, b models.NewBooking) (int64, error)
	FindBookingByIdentity(ctx context.Context, personnummer string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	FindBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	DeleteBookingByID(ctx context.Context, id int64) (int64, error)
}

type service struct {
	db   *sql.DB
	name string
}

// New opens a connection pool and checks that the database answers.
func New(cfg config.Database) (Service, error) {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg.Name, err)
	}

	log.Printf("[DB] connected to %s@%s:%s", cfg.Name, cfg.Host, cfg.Port)
	return &service{db: db, name: cfg.Name}, nil
}

// Health pings the database and reports pool statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Printf("[DB] health check failed: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the connection pool.
func (s *service) Close() error {
	log.Printf("[DB] disconnected from database: %s", s.name)
	return s.db.Close()
}

const bookingColumns = `id, first_name, last_name, personnummer, destination, date, people, email`

func (s *service) InsertBooking(ctx context.Context, b models.NewBooking) (int64, error) {
	query := `
		INSERT INTO bookings (first_name, last_name, personnummer, destination, date, people, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		b.FirstName,
		b.LastName,
		b.Personnummer,
		b.Destination,
		b.Date,
		b.People,
		b.Email,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrDuplicateIdentity
		}
		return 0, fmt.Errorf("insert booking: %w", err)
	}
	return id, nil
}

func (s *service) FindBookingByIdentity(ctx context.Context, personnummer string) (*models.Booking, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE personnummer = $1 LIMIT 1`, personnummer)
	return scanOne(row, "find booking by identity")
}

func (s *service) FindBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanOne(row, "find booking by id")
}

func (s *service) ListBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(scanTargets(&b)...); err != nil {
			return nil, fmt.Errorf("list bookings: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *service) DeleteBookingByID(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete booking: %w", err)
	}
	return n, nil
}

func scanTargets(b *models.Booking) []any {
	return []any{
		&b.ID,
		&b.FirstName,
		&b.LastName,
		&b.Personnummer,
		&b.Destination,
		&b.Date,
		&b.People,
		&b.Email,
	}
}

func scanOne(row *sql.Row, op string) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(scanTargets(&b)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &b, nil
}
