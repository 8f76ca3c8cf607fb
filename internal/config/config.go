// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings, the
// Aptos node and custodial account, swap pipeline timings, notification
// credentials, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ChainConfig defines the Aptos fullnode endpoint and the custodial account
// used to receive deposits, execute swaps, and forward payouts.
type ChainConfig struct {
	NodeURL string // APTOS_NODE_URL
	// PrivateKey is the custodial ed25519 signing key, hex encoded.
	PrivateKey string // APTOS_PRIVATE_KEY
	// CustodialAddress is the on-chain account users deposit into.
	CustodialAddress string // CUSTODIAL_ADDRESS
	// ExplorerBaseURL is used to build transaction links for notifications.
	ExplorerBaseURL string // EXPLORER_BASE_URL
	MaxGasAmount    uint64 // APTOS_MAX_GAS_AMOUNT
	GasUnitPrice    uint64 // APTOS_GAS_UNIT_PRICE
}

// SwapConfig defines the pipeline timings and the slippage policy.
type SwapConfig struct {
	// PollInterval is the deposit balance sampling interval.
	PollInterval time.Duration // POLL_INTERVAL
	// DepositTimeout bounds how long a confirmed swap waits for the deposit.
	DepositTimeout time.Duration // DEPOSIT_TIMEOUT
	// SettleTimeout bounds the wait for an on-chain transaction to settle.
	SettleTimeout time.Duration // SETTLE_TIMEOUT
	// SubmitSlippageBps is the slippage tolerance baked into the swap
	// transaction's minimum-out argument (basis points).
	SubmitSlippageBps int64 // SUBMIT_SLIPPAGE_BPS
	// MaxSlippageBps aborts execution when the recomputed output falls more
	// than this many basis points below the confirmed quote. 0 disables the
	// guard and keeps recomputation-only behavior.
	MaxSlippageBps int64 // MAX_SLIPPAGE_BPS
}

// SecurityConfig defines HTTP security header behavior.
type SecurityConfig struct {
	EnableHSTS bool // SECURITY_ENABLE_HSTS
	HSTSMaxAge int  // SECURITY_HSTS_MAX_AGE (seconds)
}

// TelegramConfig defines the conversational front-end push credentials.
type TelegramConfig struct {
	Token  string // TELEGRAM_TOKEN
	APIURL string // TELEGRAM_API_URL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool

	// App
	DBPath      string
	APIBasePath string

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Domain
	Chain    ChainConfig
	Swap     SwapConfig
	Telegram TelegramConfig

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

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
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
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath:      getenv("DB_PATH", "swaps.db"),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		Security: SecurityConfig{
			EnableHSTS: getbool("SECURITY_ENABLE_HSTS", false),
			HSTSMaxAge: getint("SECURITY_HSTS_MAX_AGE", 31536000),
		},

		Chain: ChainConfig{
			NodeURL:          getenv("APTOS_NODE_URL", "https://fullnode.mainnet.aptoslabs.com/v1"),
			PrivateKey:       getenv("APTOS_PRIVATE_KEY", ""),
			CustodialAddress: getenv("CUSTODIAL_ADDRESS", ""),
			ExplorerBaseURL:  getenv("EXPLORER_BASE_URL", "https://explorer.aptoslabs.com"),
			MaxGasAmount:     getuint("APTOS_MAX_GAS_AMOUNT", 20000),
			GasUnitPrice:     getuint("APTOS_GAS_UNIT_PRICE", 100),
		},

		Swap: SwapConfig{
			PollInterval:      getdur("POLL_INTERVAL", 15*time.Second),
			DepositTimeout:    getdur("DEPOSIT_TIMEOUT", 10*time.Minute),
			SettleTimeout:     getdur("SETTLE_TIMEOUT", 2*time.Minute),
			SubmitSlippageBps: int64(getint("SUBMIT_SLIPPAGE_BPS", 50)),
			MaxSlippageBps:    int64(getint("MAX_SLIPPAGE_BPS", 0)),
		},

		Telegram: TelegramConfig{
			Token:  getenv("TELEGRAM_TOKEN", ""),
			APIURL: getenv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-swap-backend"),
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
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Chain.NodeURL) == "" {
		return cfg, errors.New("APTOS_NODE_URL must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Swap.PollInterval <= 0 {
		return cfg, errors.New("POLL_INTERVAL must be > 0")
	}
	if cfg.Swap.DepositTimeout <= cfg.Swap.PollInterval {
		return cfg, errors.New("DEPOSIT_TIMEOUT must exceed POLL_INTERVAL")
	}
	if cfg.Swap.SettleTimeout <= 0 {
		return cfg, errors.New("SETTLE_TIMEOUT must be > 0")
	}
	if cfg.Swap.SubmitSlippageBps < 0 || cfg.Swap.SubmitSlippageBps >= 10000 {
		return cfg, errors.New("SUBMIT_SLIPPAGE_BPS must be in [0,10000)")
	}
	if cfg.Swap.MaxSlippageBps < 0 || cfg.Swap.MaxSlippageBps >= 10000 {
		return cfg, errors.New("MAX_SLIPPAGE_BPS must be in [0,10000)")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
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

func getuint(k string, def uint64) uint64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
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
