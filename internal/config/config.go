// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Advisory AdvisoryConfig
	Report   ReportConfig
	Catalog  CatalogConfig
	Poster   PosterConfig
	Ambient  AmbientConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 0, SSE streams stay open)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	// ShutdownTimeout bounds each component's graceful stop (default: 30s).
	ShutdownTimeout time.Duration
	CORSOrigins  []string
}

// AdvisoryConfig holds the generative advisory service configuration.
type AdvisoryConfig struct {
	// APIKey is the Gemini credential. Empty means every advisory is the fallback.
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// ReportConfig holds report form timing.
type ReportConfig struct {
	// MinSubmitDelay is the floor between Submitting and Success (default: 2s).
	MinSubmitDelay time.Duration
	// VerifyDelay is how long a new form shows the securing indicator (default: 1.2s).
	VerifyDelay time.Duration
	// SessionTTL is how long an idle form session is kept (default: 30m).
	SessionTTL time.Duration
	// SubmitsPerMinute limits submissions per client IP (default: 20).
	SubmitsPerMinute int
	// OpensPerMinute limits new form sessions per client IP (default: 30).
	OpensPerMinute int
}

// MinimumSubmitDelay is the lowest accepted MinSubmitDelay.
const MinimumSubmitDelay = 2 * time.Second

// CatalogConfig holds the location catalog source.
type CatalogConfig struct {
	// Path is an optional YAML file with extra locations.
	Path string
}

// PosterConfig holds the printable poster configuration.
type PosterConfig struct {
	QRImageURL string
}

// AmbientConfig holds the shared background field loop.
type AmbientConfig struct {
	Enabled bool
	Width   int
	Height  int
	FPS     int
}

// DefaultQRImageURL is the QR graphic used by every location.
const DefaultQRImageURL = "https://ik.imagekit.io/z5fowzj2wr/QR-CODE.png"

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load parses args into fs and builds the configuration.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	shutdownTimeout := fs.String("shutdown-timeout", "", "Graceful shutdown limit per component (default: 30s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins (default: *)")

	advisoryModel := fs.String("advisory-model", "", "Gemini model for advisories")

	minSubmitDelay := fs.String("min-submit-delay", "", "Minimum time spent submitting (default: 2s)")
	verifyDelay := fs.String("verify-delay", "", "Securing indicator duration (default: 1200ms)")
	sessionTTL := fs.String("session-ttl", "", "Idle form session lifetime (default: 30m)")
	submitsPerMinute := fs.String("submits-per-minute", "", "Submissions allowed per client per minute (default: 20)")
	opensPerMinute := fs.String("opens-per-minute", "", "Form sessions a client may open per minute (default: 30)")

	catalogPath := fs.String("catalog", "", "Path to a YAML location catalog")
	qrImageURL := fs.String("qr-image-url", "", "QR image used on the home page and poster")

	ambient := fs.String("ambient", "", "Run the shared background field (default: true)")
	ambientWidth := fs.String("ambient-width", "", "Background field width (default: 480)")
	ambientHeight := fs.String("ambient-height", "", "Background field height (default: 270)")
	ambientFPS := fs.String("ambient-fps", "", "Background field frames per second (default: 15)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Advisory: AdvisoryConfig{
			APIKey:          getConfigValue(os.Getenv("GEMINI_API_KEY"), "API_KEY", ""),
			Model:           getConfigValue(*advisoryModel, "ADVISORY_MODEL", "gemini-3-flash-preview"),
			Temperature:     0.7,
			MaxOutputTokens: 60,
		},
		Report: ReportConfig{
			SubmitsPerMinute: getIntConfigValue(*submitsPerMinute, "SUBMITS_PER_MINUTE", 20),
			OpensPerMinute:   getIntConfigValue(*opensPerMinute, "OPENS_PER_MINUTE", 30),
		},
		Catalog: CatalogConfig{
			Path: getConfigValue(*catalogPath, "CATALOG_PATH", ""),
		},
		Poster: PosterConfig{
			QRImageURL: getConfigValue(*qrImageURL, "QR_IMAGE_URL", DefaultQRImageURL),
		},
		Ambient: AmbientConfig{
			Enabled: getBoolConfigValue(*ambient, "AMBIENT_ENABLED", true),
			Width:   getIntConfigValue(*ambientWidth, "AMBIENT_WIDTH", 480),
			Height:  getIntConfigValue(*ambientHeight, "AMBIENT_HEIGHT", 270),
			FPS:     getIntConfigValue(*ambientFPS, "AMBIENT_FPS", 15),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*shutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT", "30s", &cfg.Server.ShutdownTimeout},
		{*minSubmitDelay, "MIN_SUBMIT_DELAY", "2s", &cfg.Report.MinSubmitDelay},
		{*verifyDelay, "VERIFY_DELAY", "1200ms", &cfg.Report.VerifyDelay},
		{*sessionTTL, "SESSION_TTL", "30m", &cfg.Report.SessionTTL},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandCatalogPath(); err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Report.MinSubmitDelay < MinimumSubmitDelay {
		return fmt.Errorf("min submit delay must be at least %s", MinimumSubmitDelay)
	}
	if c.Report.VerifyDelay < 0 {
		return errors.New("verify delay cannot be negative")
	}
	if c.Report.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Report.SubmitsPerMinute <= 0 || c.Report.OpensPerMinute <= 0 {
		return errors.New("submits and opens per minute must be positive")
	}

	if c.Poster.QRImageURL == "" {
		return errors.New("QR image URL cannot be empty")
	}

	if c.Ambient.Enabled {
		if c.Ambient.Width < 1 || c.Ambient.Width > 1920 || c.Ambient.Height < 1 || c.Ambient.Height > 1080 {
			return fmt.Errorf("invalid ambient size %dx%d (max 1920x1080)", c.Ambient.Width, c.Ambient.Height)
		}
		if c.Ambient.FPS < 1 || c.Ambient.FPS > 60 {
			return fmt.Errorf("invalid ambient fps %d (must be 1-60)", c.Ambient.FPS)
		}
	}

	return nil
}

// HasAdvisoryKey reports whether a Gemini credential is configured.
func (c *Config) HasAdvisoryKey() bool {
	return c.Advisory.APIKey != ""
}

// expandCatalogPath expands ~ and makes the catalog path absolute.
// Empty means the built-in catalog only.
func (c *Config) expandCatalogPath() error {
	if c.Catalog.Path == "" {
		return nil
	}

	path := c.Catalog.Path
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	c.Catalog.Path = filepath.Clean(path)
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getBoolConfigValue returns a bool from flag, env var, or default.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment wins over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
