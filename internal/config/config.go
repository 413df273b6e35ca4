// Package config loads the settings of the orgonboard command.
//
// Precedence, lowest first: built-in defaults, the optional TOML file, a .env file,
// ORGONBOARD_* environment variables, command line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvRegion              = "ORGONBOARD_REGION"
	EnvSessionName         = "ORGONBOARD_SESSION_NAME"
	EnvPageSize            = "ORGONBOARD_PAGE_SIZE"
	EnvBatchPacing         = "ORGONBOARD_BATCH_PACING"
	EnvInvite              = "ORGONBOARD_INVITE"
	EnvFailOnPartial       = "ORGONBOARD_FAIL_ON_PARTIAL"
	EnvLedgerDSN           = "ORGONBOARD_LEDGER_DSN"
	EnvLedgerDriver        = "ORGONBOARD_LEDGER_DRIVER"
	EnvOTelEndpoint        = "ORGONBOARD_OTEL_ENDPOINT"
	EnvThrottleMaxAttempts = "ORGONBOARD_THROTTLE_MAX_ATTEMPTS"
	EnvThrottleBaseDelay   = "ORGONBOARD_THROTTLE_BASE_DELAY"
)

// Ledger drivers.
const (
	LedgerDriverPGX  = "pgx"
	LedgerDriverPQ   = "postgres"
	LedgerDriverSQLX = "sqlx"
)

var (
	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds every tunable of a run.
type Config struct {
	Region              string
	SessionName         string
	PageSize            int32
	BatchPacing         time.Duration
	Invite              bool
	FailOnPartial       bool
	LedgerDSN           string
	LedgerDriver        string
	OTelEndpoint        string
	ThrottleMaxAttempts int
	ThrottleBaseDelay   time.Duration
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Region:              "us-east-1",
		SessionName:         "SecurityHubDelegatedAdmin",
		PageSize:            20,
		BatchPacing:         250 * time.Millisecond,
		LedgerDriver:        LedgerDriverPGX,
		ThrottleMaxAttempts: 3,
		ThrottleBaseDelay:   200 * time.Millisecond,
	}
}

type fileConfig struct {
	Region              string `toml:"region"`
	SessionName         string `toml:"session_name"`
	PageSize            int64  `toml:"page_size"`
	BatchPacing         string `toml:"batch_pacing"`
	Invite              bool   `toml:"invite"`
	FailOnPartial       bool   `toml:"fail_on_partial"`
	LedgerDSN           string `toml:"ledger_dsn"`
	LedgerDriver        string `toml:"ledger_driver"`
	OTelEndpoint        string `toml:"otel_endpoint"`
	ThrottleMaxAttempts int    `toml:"throttle_max_attempts"`
	ThrottleBaseDelay   string `toml:"throttle_base_delay"`
}

// Load builds the configuration from defaults, the TOML file at path (skipped when path is
// empty) and the environment. It does not read .env files, see LoadDotEnv.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	return nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	if meta.IsDefined("region") {
		cfg.Region = strings.TrimSpace(raw.Region)
	}

	if meta.IsDefined("session_name") {
		cfg.SessionName = strings.TrimSpace(raw.SessionName)
	}

	if meta.IsDefined("page_size") {
		cfg.PageSize = int32(raw.PageSize) //nolint:gosec // range checked by Validate
	}

	if meta.IsDefined("batch_pacing") {
		if cfg.BatchPacing, err = parseDuration("batch_pacing", raw.BatchPacing); err != nil {
			return err
		}
	}

	if meta.IsDefined("invite") {
		cfg.Invite = raw.Invite
	}

	if meta.IsDefined("fail_on_partial") {
		cfg.FailOnPartial = raw.FailOnPartial
	}

	if meta.IsDefined("ledger_dsn") {
		cfg.LedgerDSN = strings.TrimSpace(raw.LedgerDSN)
	}

	if meta.IsDefined("ledger_driver") {
		cfg.LedgerDriver = strings.TrimSpace(raw.LedgerDriver)
	}

	if meta.IsDefined("otel_endpoint") {
		cfg.OTelEndpoint = strings.TrimSpace(raw.OTelEndpoint)
	}

	if meta.IsDefined("throttle_max_attempts") {
		cfg.ThrottleMaxAttempts = raw.ThrottleMaxAttempts
	}

	if meta.IsDefined("throttle_base_delay") {
		if cfg.ThrottleBaseDelay, err = parseDuration("throttle_base_delay", raw.ThrottleBaseDelay); err != nil {
			return err
		}
	}

	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	if v, ok := lookup(EnvRegion); ok {
		cfg.Region = v
	}

	if v, ok := lookup(EnvSessionName); ok {
		cfg.SessionName = v
	}

	if v, ok := lookup(EnvPageSize); ok {
		n, parseErr := strconv.ParseInt(v, 10, 32)
		if parseErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvPageSize, parseErr)
		}
		cfg.PageSize = int32(n)
	}

	if v, ok := lookup(EnvBatchPacing); ok {
		if cfg.BatchPacing, err = parseDuration(EnvBatchPacing, v); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvInvite); ok {
		if cfg.Invite, err = parseBool(EnvInvite, v); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvFailOnPartial); ok {
		if cfg.FailOnPartial, err = parseBool(EnvFailOnPartial, v); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvLedgerDSN); ok {
		cfg.LedgerDSN = v
	}

	if v, ok := lookup(EnvLedgerDriver); ok {
		cfg.LedgerDriver = v
	}

	if v, ok := lookup(EnvOTelEndpoint); ok {
		cfg.OTelEndpoint = v
	}

	if v, ok := lookup(EnvThrottleMaxAttempts); ok {
		n, parseErr := strconv.Atoi(v)
		if parseErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvThrottleMaxAttempts, parseErr)
		}
		cfg.ThrottleMaxAttempts = n
	}

	if v, ok := lookup(EnvThrottleBaseDelay); ok {
		if cfg.ThrottleBaseDelay, err = parseDuration(EnvThrottleBaseDelay, v); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch {
	case c.Region == "":
		return fmt.Errorf("%w: region must not be empty", ErrInvalidConfig)
	case c.PageSize < 1 || c.PageSize > 20:
		return fmt.Errorf("%w: page_size must be between 1 and 20, got %d", ErrInvalidConfig, c.PageSize)
	case c.BatchPacing < 0:
		return fmt.Errorf("%w: batch_pacing must not be negative", ErrInvalidConfig)
	case c.ThrottleMaxAttempts < 1:
		return fmt.Errorf("%w: throttle_max_attempts must be positive", ErrInvalidConfig)
	case c.ThrottleBaseDelay < 0:
		return fmt.Errorf("%w: throttle_base_delay must not be negative", ErrInvalidConfig)
	}

	switch c.LedgerDriver {
	case LedgerDriverPGX, LedgerDriverPQ, LedgerDriverSQLX:
	default:
		return fmt.Errorf("%w: ledger_driver must be one of pgx, postgres, sqlx, got %q", ErrInvalidConfig, c.LedgerDriver)
	}

	return nil
}

// LedgerEnabled reports whether completed runs are recorded.
func (c Config) LedgerEnabled() bool {
	return c.LedgerDSN != ""
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)

	return v, v != ""
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}

	return d, nil
}

func parseBool(key, raw string) (bool, error) {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}

	return v, nil
}
