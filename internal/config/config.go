package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Issuer IssuerConfig
	Sweep  SweepConfig
}

// IssuerConfig configures the bank slip issuance API client.
type IssuerConfig struct {
	BaseURL string
	Token   string

	// Beneficiary may be supplied as "agency/code"; only the numeric
	// code is usable in issuer URLs (see BeneficiaryCode).
	Beneficiary      string
	BeneficiaryTaxID string

	// InternalHost, when non-empty, is rewritten to PublicHost in hosted
	// document URLs returned by the issuer.
	InternalHost string
	PublicHost   string

	// CallDelay is the pause between sequential issuance calls in one
	// batch. The sandbox degrades beyond ~5 req/s.
	CallDelay time.Duration
	Rate      float64
	Burst     int
}

// SweepConfig configures the periodic auto-issuance sweep.
type SweepConfig struct {
	Interval    time.Duration
	LeadDays    int
	BatchSize   int
	JobTimeout  time.Duration
	LockTTL     time.Duration
	LockEnabled bool
}

var ErrMissingBeneficiary = errors.New("issuer beneficiary id is not configured")

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "cobranca"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "cobranca"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Issuer: IssuerConfig{
			BaseURL:          strings.TrimRight(getenv("ISSUER_BASE_URL", ""), "/"),
			Token:            strings.TrimSpace(getenv("ISSUER_TOKEN", "")),
			Beneficiary:      strings.TrimSpace(getenv("ISSUER_BENEFICIARY", "")),
			BeneficiaryTaxID: strings.TrimSpace(getenv("ISSUER_BENEFICIARY_TAX_ID", "")),
			InternalHost:     strings.TrimSpace(getenv("ISSUER_INTERNAL_HOST", "")),
			PublicHost:       strings.TrimSpace(getenv("ISSUER_PUBLIC_HOST", "")),
			CallDelay:        getenvDuration("ISSUER_CALL_DELAY", 650*time.Millisecond),
			Rate:             getenvFloat("ISSUER_RATE", 5),
			Burst:            getenvInt("ISSUER_BURST", 5),
		},
		Sweep: SweepConfig{
			Interval:    getenvDuration("SWEEP_INTERVAL", 15*time.Minute),
			LeadDays:    getenvInt("SWEEP_LEAD_DAYS", 5),
			BatchSize:   getenvInt("SWEEP_BATCH_SIZE", 50),
			JobTimeout:  getenvDuration("SWEEP_JOB_TIMEOUT", 5*time.Minute),
			LockTTL:     getenvDuration("SWEEP_LOCK_TTL", 10*time.Minute),
			LockEnabled: getenvBool("SWEEP_LOCK_ENABLED", true),
		},
	}
}

// BeneficiaryCode normalizes the configured beneficiary identifier to the
// numeric code the issuer URL expects. Accepts either a bare code or the
// "agency/code" form used by bank statements.
func (c IssuerConfig) BeneficiaryCode() (string, error) {
	raw := strings.TrimSpace(c.Beneficiary)
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		raw = raw[idx+1:]
	}
	code := digits(raw)
	if code == "" {
		return "", ErrMissingBeneficiary
	}
	return code, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
