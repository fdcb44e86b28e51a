package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// Environment variables
	_ "github.com/joho/godotenv/autoload"
)

// Config holds everything the api binary reads from the environment.
type Config struct {
	Port      int
	StaticDir string

	Database Database
	Mail     Mail

	RateLimitRPS   float64
	RateLimitBurst int
}

// Database describes the Postgres connection.
type Database struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	Schema   string
}

// URL returns the connection string understood by both pgx and golang-migrate.
func (d Database) URL() string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	if d.Schema != "" {
		q.Set("search_path", d.Schema)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Mail describes the outbound SMTP account. A zero Mail means no notifications.
type Mail struct {
	Host        string
	Port        string
	User        string
	Password    string
	From        string
	Timeout     time.Duration
	MaxInFlight int64
}

// Enabled reports whether every setting needed to talk to the SMTP server is present.
func (m Mail) Enabled() bool {
	return m.Host != "" && m.Port != "" && m.User != "" && m.Password != ""
}

// Sender is the envelope sender, MAIL_FROM falling back to MAIL_USER.
func (m Mail) Sender() string {
	if m.From != "" {
		return m.From
	}
	return m.User
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	var err error

	if cfg.Port, err = intEnv("PORT", 3000); err != nil {
		return Config{}, err
	}
	cfg.StaticDir = env("STATIC_DIR", "")

	cfg.Database = Database{
		Host:     env("DB_HOST", "localhost"),
		Port:     env("DB_PORT", "5432"),
		Name:     env("DB_DATABASE", "bookings"),
		Username: env("DB_USERNAME", "postgres"),
		Password: env("DB_PASSWORD", ""),
		Schema:   env("DB_SCHEMA", "public"),
	}

	cfg.Mail = Mail{
		Host:     env("MAIL_HOST", ""),
		Port:     env("MAIL_PORT", ""),
		User:     env("MAIL_USER", ""),
		Password: env("MAIL_PASS", ""),
		From:     env("MAIL_FROM", ""),
	}
	if cfg.Mail.Timeout, err = durationEnv("MAIL_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	maxInFlight, err := intEnv("MAIL_MAX_INFLIGHT", 4)
	if err != nil {
		return Config{}, err
	}
	cfg.Mail.MaxInFlight = int64(maxInFlight)

	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func env(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func intEnv(key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive number, got %q", key, raw)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}
