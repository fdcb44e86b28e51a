package booking

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bus-booking/internal/models"
)

const (
	// BookingYear is the only year trips can be booked for.
	BookingYear = 2026

	MinPeople = 1
	MaxPeople = 7

	dateLayout = "2006-01-02"
)

// nonSpace is any character outside the browser's \s class, which unlike
// RE2's also holds \v and the Unicode space separators.
const nonSpace = `[^\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]`

var (
	identityPattern = regexp.MustCompile(`^\d{4}$`)
	emailPattern    = regexp.MustCompile(`^` + nonSpace + `+@` + nonSpace + `+\.` + nonSpace + `+$`)
)

// Validate checks a raw booking request and returns the normalized booking.
// Rules run in a fixed order and the first broken rule is reported.
func Validate(req models.BookingRequest) (models.NewBooking, error) {
	if !identityPattern.MatchString(req.Personnummer) {
		return models.NewBooking{}, &ValidationError{Kind: InvalidIdentity, Msg: "Personnummer måste vara 4 siffror!"}
	}

	if req.Email == "" || !emailPattern.MatchString(req.Email) {
		return models.NewBooking{}, &ValidationError{Kind: InvalidEmail, Msg: "Skriv in en giltig e-post!"}
	}

	date, ok := parseDate(req.Date)
	if !ok || date.Year() != BookingYear {
		return models.NewBooking{}, &ValidationError{Kind: InvalidDate, Msg: "Du kan bara boka datum under år 2026."}
	}

	people, ok := parsePeople(req.People.String())
	if !ok || people < MinPeople || people > MaxPeople {
		return models.NewBooking{}, &ValidationError{Kind: InvalidPartySize, Msg: "Antal personer måste vara mellan 1 och 7."}
	}

	return models.NewBooking{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Personnummer: req.Personnummer,
		Destination:  strings.TrimSpace(req.Destination),
		Date:         date.Format(dateLayout),
		People:       people,
		Email:        req.Email,
	}, nil
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parsePeople accepts any numeric text with no fractional part, so "2" and "2.0" are both 2.
func parsePeople(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
