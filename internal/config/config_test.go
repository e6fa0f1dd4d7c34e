package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// Storage: DATABASE_URL wins over DB_PATH
	t.Setenv("DATABASE_URL", "postgres://bot@db/corona")
	t.Setenv("DB_PATH", "ignored.db")

	// Sheets: API_KEY is the legacy fallback
	t.Setenv("SHEETS_API_KEY", "")
	t.Setenv("API_KEY", " key-123 ")
	t.Setenv("SHEET_ROWS", "412")
	t.Setenv("AREA_COLUMN", "b")
	t.Setenv("FETCH_TIMEOUT", "5s")

	// Telegram
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("BOT_MODE", "Webhook")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
	t.Setenv("SEND_RPS", "10")

	// Schedule
	t.Setenv("FETCH_INTERVAL", "5m")
	t.Setenv("RETENTION_DAYS", "14")
	t.Setenv("REPORT_AT", "07:45")
	t.Setenv("RESET_HOUR", "20")
	t.Setenv("RESET_MIN_CASES", "250")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	t.Setenv("UPDATE_TTL", "48h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging fields unexpected: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://bot@db/corona" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	wantSheets := SheetsConfig{
		APIKey:        "key-123",
		SpreadsheetID: "1wg-s4_Lz2Stil6spQEYFdZaBEp8nWW26gVyfHqvcl8s",
		BaseURL:       "https://sheets.googleapis.com",
		Sheet:         "Haupt",
		Rows:          412,
		AreaColumn:    "B",
		FetchTimeout:  5 * time.Second,
	}
	if cfg.Sheets != wantSheets {
		t.Fatalf("sheets = %+v\nwant %+v", cfg.Sheets, wantSheets)
	}
	if cfg.Telegram.Mode != BotModeWebhook || cfg.Telegram.Token != "123:abc" || cfg.Telegram.SendRPS != 10 {
		t.Fatalf("telegram fields unexpected: %+v", cfg.Telegram)
	}
	wantSched := ScheduleConfig{
		FetchInterval: 5 * time.Minute,
		PurgeInterval: 24 * time.Hour,
		RetentionDays: 14,
		ReportAt:      "07:45",
		Timezone:      "Europe/Berlin",
		ResetHour:     20,
		ResetMinCases: 250,
	}
	if cfg.Schedule != wantSched {
		t.Fatalf("schedule = %+v\nwant %+v", cfg.Schedule, wantSched)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limit defaults not applied: rps=%v burst=%v", cfg.RateRPS, cfg.RateBurst)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("CORS origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.UpdateTTL != 48*time.Hour {
		t.Fatalf("UpdateTTL = %v", cfg.UpdateTTL)
	}
	wantOTEL := OTELConfig{Enabled: true, Endpoint: "otel:4317", Insecure: false, ServiceName: "svc", SampleRatio: 0.75}
	if cfg.OTEL != wantOTEL {
		t.Fatalf("otel = %+v", cfg.OTEL)
	}
	if err := cfg.RequireSheets(); err != nil {
		t.Fatalf("RequireSheets: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		t.Fatalf("RequireTelegram: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("Location = %v, %v", loc, err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		key, val, want string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"PORT", "   ", "PORT must not be empty"},
		{"READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"SHEET_ROWS", "0", "SHEET_ROWS"},
		{"AREA_COLUMN", "AB", "AREA_COLUMN"},
		{"FETCH_TIMEOUT", "-1s", "FETCH_TIMEOUT"},
		{"BOT_MODE", "carrier-pigeon", "BOT_MODE"},
		{"SEND_RPS", "0", "SEND_RPS"},
		{"FETCH_INTERVAL", "0s", "FETCH_INTERVAL"},
		{"RETENTION_DAYS", "0", "RETENTION_DAYS"},
		{"REPORT_AT", "8 Uhr", "REPORT_AT"},
		{"TIMEZONE", "Mars/Olympus", "TIMEZONE"},
		{"RESET_HOUR", "24", "RESET_HOUR"},
		{"RESET_MIN_CASES", "-5", "RESET_MIN_CASES"},
		{"RATE_RPS", "-1", "RATE_RPS"},
		{"RATE_BURST", "0", "RATE_BURST"},
		{"HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"UPDATE_TTL", "0s", "UPDATE_TTL"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, c := range cases {
		t.Run(c.key, func(t *testing.T) {
			t.Setenv(c.key, c.val)
			if _, err := Load(); !containsErr(err, c.want) {
				t.Fatalf("expected %s validation error, got: %v", c.want, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{Mode: BotModePolling}}
	if err := cfg.RequireSheets(); !containsErr(err, "SHEETS_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if err := cfg.RequireTelegram(); !containsErr(err, "TELEGRAM_TOKEN") {
		t.Fatalf("expected missing token error, got %v", err)
	}
	cfg.Telegram = TelegramConfig{Mode: BotModeWebhook, Token: "t"}
	if err := cfg.RequireTelegram(); !containsErr(err, "TELEGRAM_WEBHOOK_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
	cfg.Telegram = TelegramConfig{Mode: BotModeOff}
	if err := cfg.RequireTelegram(); err != nil {
		t.Fatalf("BOT_MODE=off needs no token, got %v", err)
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
	t.Setenv("B_JUNK", "maybe")
	if !getbool("B_JUNK", true) {
		t.Fatalf("getbool should keep the default on unknown values")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	want := []string{"a", "b", "c"}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

// Ensure tests don't pick up the developer's environment.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "DATABASE_URL", "DB_PATH", "SHEETS_API_KEY", "API_KEY", "TELEGRAM_TOKEN", "BOT_MODE", "TIMEZONE"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.DatabaseURL != "coronabot.db" {
		t.Fatalf("unexpected defaults: %q %q", cfg.APIBasePath, cfg.DatabaseURL)
	}
	if cfg.Telegram.Mode != BotModePolling || cfg.Schedule.FetchInterval != 600*time.Second ||
		cfg.Schedule.RetentionDays != 28 || cfg.Schedule.ResetHour != 18 || cfg.Schedule.ResetMinCases != 100 {
		t.Fatalf("unexpected schedule defaults: %+v %+v", cfg.Telegram, cfg.Schedule)
	}
	if cfg.Sheets.AreaColumn != "" || cfg.Sheets.Rows != 400 {
		t.Fatalf("unexpected sheet defaults: %+v", cfg.Sheets)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	_ = MustLoad()
}
