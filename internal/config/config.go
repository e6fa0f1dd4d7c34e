// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the database, the spreadsheet source, the
// chat transport, background schedules and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zone database

	"github.com/tbourn/go-corona-bot/internal/sysutil"
)

// Bot transport modes.
const (
	BotModePolling = "polling"
	BotModeWebhook = "webhook"
	BotModeOff     = "off"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-corona-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// SheetsConfig locates the Risklayer spreadsheet.
type SheetsConfig struct {
	APIKey        string        // SHEETS_API_KEY, falls back to API_KEY
	SpreadsheetID string        // SPREADSHEET_ID
	BaseURL       string        // SHEETS_BASE_URL
	Sheet         string        // SHEET_NAME
	Rows          int           // SHEET_ROWS
	AreaColumn    string        // AREA_COLUMN, optional single column letter
	FetchTimeout  time.Duration // FETCH_TIMEOUT
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token         string  // TELEGRAM_TOKEN
	APIURL        string  // TELEGRAM_API_URL
	BotName       string  // TELEGRAM_BOT_NAME, for /cmd@name mentions
	Mode          string  // BOT_MODE: polling|webhook|off
	WebhookURL    string  // TELEGRAM_WEBHOOK_URL, public URL registered in webhook mode
	WebhookSecret string  // TELEGRAM_WEBHOOK_SECRET
	SendRPS       float64 // SEND_RPS
}

// ScheduleConfig drives the background jobs.
type ScheduleConfig struct {
	FetchInterval time.Duration // FETCH_INTERVAL
	PurgeInterval time.Duration // PURGE_INTERVAL
	RetentionDays int           // RETENTION_DAYS
	ReportAt      string        // REPORT_AT, "HH:MM" in Timezone
	Timezone      string        // TIMEZONE
	ResetHour     int           // RESET_HOUR
	ResetMinCases int64         // RESET_MIN_CASES
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Storage: postgres:// URL or SQLite path
	DatabaseURL string

	Sheets   SheetsConfig
	Telegram TelegramConfig
	Schedule ScheduleConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// How long a delivered Telegram update id is remembered
	UpdateTTL time.Duration

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
// Credentials are not required here; see RequireSheets and RequireTelegram.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DatabaseURL: sysutil.FirstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("DB_PATH"), "coronabot.db"),

		Sheets: SheetsConfig{
			APIKey:        strings.TrimSpace(sysutil.FirstNonEmpty(os.Getenv("SHEETS_API_KEY"), os.Getenv("API_KEY"))),
			SpreadsheetID: getenv("SPREADSHEET_ID", "1wg-s4_Lz2Stil6spQEYFdZaBEp8nWW26gVyfHqvcl8s"),
			BaseURL:       getenv("SHEETS_BASE_URL", "https://sheets.googleapis.com"),
			Sheet:         getenv("SHEET_NAME", "Haupt"),
			Rows:          getint("SHEET_ROWS", 400),
			AreaColumn:    strings.ToUpper(strings.TrimSpace(getenv("AREA_COLUMN", ""))),
			FetchTimeout:  getdur("FETCH_TIMEOUT", 30*time.Second),
		},

		Telegram: TelegramConfig{
			Token:         strings.TrimSpace(getenv("TELEGRAM_TOKEN", "")),
			APIURL:        getenv("TELEGRAM_API_URL", "https://api.telegram.org"),
			BotName:       getenv("TELEGRAM_BOT_NAME", ""),
			Mode:          strings.ToLower(getenv("BOT_MODE", BotModePolling)),
			WebhookURL:    getenv("TELEGRAM_WEBHOOK_URL", ""),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
			SendRPS:       getfloat("SEND_RPS", 25),
		},

		Schedule: ScheduleConfig{
			FetchInterval: getdur("FETCH_INTERVAL", 600*time.Second),
			PurgeInterval: getdur("PURGE_INTERVAL", 24*time.Hour),
			RetentionDays: getint("RETENTION_DAYS", 28),
			ReportAt:      getenv("REPORT_AT", "08:00"),
			Timezone:      getenv("TIMEZONE", "Europe/Berlin"),
			ResetHour:     getint("RESET_HOUR", 18),
			ResetMinCases: int64(getint("RESET_MIN_CASES", 100)),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		UpdateTTL: getdur("UPDATE_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-corona-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("DATABASE_URL or DB_PATH must not be empty")
	}
	if cfg.Sheets.Rows <= 0 {
		return cfg, errors.New("SHEET_ROWS must be > 0")
	}
	if c := cfg.Sheets.AreaColumn; c != "" && (len(c) != 1 || c[0] < 'A' || c[0] > 'Z') {
		return cfg, errors.New("AREA_COLUMN must be a single column letter")
	}
	if cfg.Sheets.FetchTimeout <= 0 {
		return cfg, errors.New("FETCH_TIMEOUT must be > 0")
	}
	switch cfg.Telegram.Mode {
	case BotModePolling, BotModeWebhook, BotModeOff:
	default:
		return cfg, errors.New("BOT_MODE must be one of: polling, webhook, off")
	}
	if cfg.Telegram.SendRPS <= 0 {
		return cfg, errors.New("SEND_RPS must be > 0")
	}
	if cfg.Schedule.FetchInterval <= 0 || cfg.Schedule.PurgeInterval <= 0 {
		return cfg, errors.New("FETCH_INTERVAL and PURGE_INTERVAL must be positive durations")
	}
	if cfg.Schedule.RetentionDays < 1 {
		return cfg, errors.New("RETENTION_DAYS must be >= 1")
	}
	if _, err := time.Parse("15:04", cfg.Schedule.ReportAt); err != nil {
		return cfg, errors.New("REPORT_AT must be HH:MM")
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.Schedule.ResetHour < 0 || cfg.Schedule.ResetHour > 23 {
		return cfg, errors.New("RESET_HOUR must be between 0 and 23")
	}
	if cfg.Schedule.ResetMinCases < 0 {
		return cfg, errors.New("RESET_MIN_CASES must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.UpdateTTL <= 0 {
		return cfg, errors.New("UPDATE_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// Location resolves Schedule.Timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// RequireSheets checks the settings needed to read the spreadsheet.
func (c Config) RequireSheets() error {
	if c.Sheets.APIKey == "" {
		return errors.New("SHEETS_API_KEY (or API_KEY) is required")
	}
	return nil
}

// RequireTelegram checks the settings needed by the configured bot mode.
func (c Config) RequireTelegram() error {
	if c.Telegram.Mode == BotModeOff {
		return nil
	}
	if c.Telegram.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required unless BOT_MODE=off")
	}
	if c.Telegram.Mode == BotModeWebhook && c.Telegram.WebhookSecret == "" {
		return errors.New("TELEGRAM_WEBHOOK_SECRET is required when BOT_MODE=webhook")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	if sysutil.IsTruthy(v) {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
