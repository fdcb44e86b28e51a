package mailer

import (
	"fmt"

	"bus-booking/internal/models"
)

const signature = "Urbansas Bussresor"

// Confirmation is sent after a booking is stored.
func Confirmation(b models.Booking) Message {
	return Message{
		To:      b.Email,
		Subject: "Bokningsbekräftelse – " + signature,
		Body:    fmt.Sprintf("Hej %s!\n\nDin bokning är genomförd.\n\n%s\n\n%s", b.FirstName, b.Summary(), signature),
	}
}

// Cancellation is sent after a booking is deleted.
func Cancellation(b models.Booking) Message {
	return Message{
		To:      b.Email,
		Subject: "Avbokning – " + signature,
		Body:    fmt.Sprintf("Hej %s!\n\nDin bokning har tagits bort.\n\n%s\n\n%s", b.FirstName, b.Summary(), signature),
	}
}
