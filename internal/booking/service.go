package booking

import (
	"context"
	"errors"
	"log"

	"bus-booking/internal/database"
	"bus-booking/internal/mailer"
	"bus-booking/internal/models"
)

// Store is the persistence the service needs. database.Service satisfies it.
type Store interface {
	InsertBooking(ctx context.Context, b models.NewBooking) (int64, error)
	FindBookingByIdentity(ctx context.Context, personnummer string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	FindBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	DeleteBookingByID(ctx context.Context, id int64) (int64, error)
}

// Dispatcher hands a message off for background delivery.
type Dispatcher interface {
	Dispatch(msg mailer.Message)
}

// Service creates, lists and cancels bookings.
type Service struct {
	store  Store
	notify Dispatcher
}

func NewService(store Store, notify Dispatcher) *Service {
	return &Service{store: store, notify: notify}
}

// Create validates req, rejects a personnummer that is already booked and
// stores the booking. The confirmation mail goes out after the insert returns.
func (s *Service) Create(ctx context.Context, req models.BookingRequest) (int64, error) {
	nb, err := Validate(req)
	if err != nil {
		return 0, err
	}

	existing, err := s.store.FindBookingByIdentity(ctx, nb.Personnummer)
	if err != nil {
		return 0, &StorageError{Op: "find booking by identity", Err: err}
	}
	if existing != nil {
		return 0, ErrDuplicateIdentity
	}

	id, err := s.store.InsertBooking(ctx, nb)
	if err != nil {
		// two requests for the same personnummer can both pass the check above;
		// the unique index decides the loser
		if errors.Is(err, database.ErrDuplicateIdentity) {
			return 0, ErrDuplicateIdentity
		}
		return 0, &StorageError{Op: "insert booking", Err: err}
	}
	log.Printf("[BOOKING] action=create id=%d destination=%q date=%s people=%d", id, nb.Destination, nb.Date, nb.People)

	s.notify.Dispatch(mailer.Confirmation(models.Booking{
		ID:           id,
		FirstName:    nb.FirstName,
		LastName:     nb.LastName,
		Personnummer: nb.Personnummer,
		Destination:  nb.Destination,
		Date:         nb.Date,
		People:       nb.People,
		Email:        nb.Email,
	}))
	return id, nil
}

// List returns every booking, newest first.
func (s *Service) List(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list bookings", Err: err}
	}
	return bookings, nil
}

// Get returns one booking or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.store.FindBookingByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "find booking by id", Err: err}
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// Delete removes a booking and reports how many rows went away. Deleting an
// unknown id is not an error and returns 0.
func (s *Service) Delete(ctx context.Context, id int64) (int64, error) {
	b, err := s.store.FindBookingByID(ctx, id)
	if err != nil {
		return 0, &StorageError{Op: "find booking by id", Err: err}
	}

	n, err := s.store.DeleteBookingByID(ctx, id)
	if err != nil {
		return 0, &StorageError{Op: "delete booking", Err: err}
	}
	log.Printf("[BOOKING] action=delete id=%d deleted=%d", id, n)

	if n > 0 && b != nil && b.Email != "" {
		s.notify.Dispatch(mailer.Cancellation(*b))
	}
	return n, nil
}
