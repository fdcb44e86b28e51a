package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bus-booking/internal/booking"
	"bus-booking/internal/config"
	"bus-booking/internal/database"
	"bus-booking/internal/mailer"
	"bus-booking/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run owns every resource it opens, so each one is released on every return path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := database.Migrate(cfg.Database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	dispatcher := mailer.NewDispatcher(notifier(cfg.Mail), cfg.Mail.MaxInFlight, cfg.Mail.Timeout)
	bookings := booking.NewService(db, dispatcher)
	srv := server.NewServer(cfg, db, bookings)

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Server started on %s...", srv.Addr)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case serveErr = <-errChan:
		log.Printf("Server error: %v", serveErr)
	case sig := <-stop:
		log.Printf("Received signal %s, initiating graceful shutdown", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Could not gracefully shut down the server: %v", err)
	}
	// mails for requests that already committed still go out
	if err := dispatcher.Close(ctx); err != nil {
		log.Printf("Pending notifications abandoned: %v", err)
	}

	log.Println("Server gracefully stopped")
	return serveErr
}

// notifier picks the SMTP mailer when it is configured and reachable, and a no-op otherwise.
func notifier(cfg config.Mail) mailer.Notifier {
	n := mailer.New(cfg)
	m, ok := n.(*mailer.SMTPMailer)
	if !ok {
		return n
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := m.Verify(ctx); err != nil {
		log.Printf("[MAIL] SMTP verify failed, notifications disabled: %v", err)
		return mailer.Nop{}
	}
	log.Println("[MAIL] SMTP ready")
	return m
}
