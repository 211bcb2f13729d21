package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "strings"  // strings splits list-valued variables
    "time"     // time parses duration-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Only the spreadsheet id is strictly required;
// everything else has a workable default so a dev instance starts with a
// .env of one line.
type Config struct {
    Env         string   // application environment (e.g. "dev", "prod")
    Port        string   // HTTP port to listen on
    BaseURL     string   // public base URL for self-links (QR image URLs)
    CORSOrigins []string // allowed hotel-web origins

    SpreadsheetID   string        // workbook id
    CredentialsFile string        // service-account key path; empty = ADC discovery
    MainSheet       string        // main worksheet name
    CapacitySheet   string        // capacity worksheet name
    SheetCacheTTL   time.Duration // matrix cache lifetime

    RedisPrefix string // key prefix for the realtime paths

    LockTTL          time.Duration // trip-lock staleness horizon
    FinalizePoll     time.Duration // capacity poll interval
    FinalizeDeadline time.Duration // hard barrier deadline

    WorkerCount int // background pool size
    WorkerQueue int // background queue depth

    SMTPHost string
    SMTPPort int
    SMTPUser string
    SMTPPass string
    MailFrom string
}

// Load reads configuration values from environment variables and returns a
// Config.  The spreadsheet id is enforced by must() and a missing value
// causes the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:         getenv("APP_ENV", "dev"),
        Port:        getenv("APP_PORT", "8080"),
        BaseURL:     getenv("BASE_URL", "http://localhost:8080"),
        CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),

        SpreadsheetID:   must("SPREADSHEET_ID"),
        CredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
        MainSheet:       getenv("MAIN_SHEET", "reservations"),
        CapacitySheet:   getenv("CAPACITY_SHEET", "capacity"),
        SheetCacheTTL:   parseDur(getenv("SHEET_CACHE_TTL", "5s")),

        RedisPrefix: getenv("REDIS_PREFIX", "shuttle:"),

        LockTTL:          parseDur(getenv("LOCK_TTL", "30s")),
        FinalizePoll:     parseDur(getenv("FINALIZE_POLL", "200ms")),
        FinalizeDeadline: parseDur(getenv("FINALIZE_DEADLINE", "10s")),

        WorkerCount: atoi(getenv("WORKER_COUNT", "8")),
        WorkerQueue: atoi(getenv("WORKER_QUEUE", "64")),

        SMTPHost: getenv("SMTP_HOST", "localhost"),
        SMTPPort: atoi(getenv("SMTP_PORT", "587")),
        SMTPUser: os.Getenv("SMTP_USER"),
        SMTPPass: os.Getenv("SMTP_PASS"),
        MailFrom: getenv("MAIL_FROM", "shuttle@fengtai-hotel.example"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

// Helper functions shared with redis.go and ratelimit.go
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    i, _ := strconv.Atoi(s)
    return i
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
