package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Booking is a stored bus-trip reservation.
type Booking struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Personnummer string `json:"personnummer"`
	Destination  string `json:"destination"`
	Date         string `json:"date"`
	People       int    `json:"people"`
	Email        string `json:"email"`
}

// NewBooking is a validated booking that has not been assigned an id yet.
type NewBooking struct {
	FirstName    string
	LastName     string
	Personnummer string
	Destination  string
	Date         string
	People       int
	Email        string
}

// BookingRequest is the raw form payload posted by the browser.
type BookingRequest struct {
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Personnummer string    `json:"personnummer"`
	Destination  string    `json:"destination"`
	Date         string    `json:"date"`
	People       PartySize `json:"people"`
}

// PartySize keeps the people field as text so that both `2` and `"2"` decode.
// Whether the value is a usable integer is decided by validation, not by decoding.
type PartySize string

func (p *PartySize) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PartySize(s)
	default:
		// numbers, and anything else, verbatim
		*p = PartySize(data)
	}
	return nil
}

func (p PartySize) String() string { return string(p) }

// CreatedResponse is returned after a successful create.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// DeletedResponse reports how many rows a delete removed.
type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Summary renders the trip details used in notification mails.
func (b Booking) Summary() string {
	return fmt.Sprintf("Destination: %s\nDatum: %s\nAntal personer: %d", b.Destination, b.Date, b.People)
}
