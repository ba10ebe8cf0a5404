package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/speakerpool/internal/blob/postgres"
	"github.com/agentstation/speakerpool/internal/notify"
	"github.com/agentstation/speakerpool/pkg/blob"
)

// envPrefix prefixes every environment variable the CLI reads.
const envPrefix = "SPEAKERPOOL"

// Storage backends.
const (
	BackendHTTP     = "http"
	BackendFiles    = "files"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	Storage   StorageConfig
	Layout    blob.Layout
	Auth      AuthConfig
	Principal PrincipalConfig
	Metrics   MetricsConfig
	Notify    notify.Config

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// StorageConfig selects and configures the blob backend.
type StorageConfig struct {
	Backend        string
	URL            string
	AdminURL       string
	Dir            string
	DSN            string
	Table          string
	ProtectedReads bool
	Timeout        time.Duration
}

// AuthConfig configures the bearer credential and how its claims are read.
type AuthConfig struct {
	Token     string
	TokenEnv  string
	JWTSecret string
	AdminRole string
}

// PrincipalConfig overrides the principal read from token claims.
type PrincipalConfig struct {
	Name  string
	Email string
}

// MetricsConfig configures the Pushgateway.
type MetricsConfig struct {
	Pushgateway string
	Job         string
}

// defaults are applied before any other source. Every key the CLI reads is
// listed so environment variables bind to it.
var defaults = map[string]any{
	"output":                          "",
	"verbose":                         false,
	"quiet":                           false,
	"no-color":                        false,
	"storage.backend":                 BackendHTTP,
	"storage.url":                     "",
	"storage.admin_url":               "",
	"storage.dir":                     "",
	"storage.dsn":                     "",
	"storage.table":                   postgres.DefaultTable,
	"storage.protected_reads":         false,
	"storage.timeout":                 30 * time.Second,
	"layout.canonical_key":            blob.DefaultCanonicalKey,
	"layout.delta_prefix":             blob.DefaultDeltaPrefix,
	"auth.token":                      "",
	"auth.token_env":                  "",
	"auth.jwt_secret":                 "",
	"auth.admin_role":                 "admin",
	"principal.name":                  "",
	"principal.email":                 "",
	"metrics.pushgateway":             "",
	"metrics.job":                     "speakerpool_consolidation",
	"notify.provider":                 "noop",
	"notify.to":                       "",
	"notify.from":                     "",
	"notify.from_name":                "Speaker Pool",
	"notify.ses.region":               "eu-west-1",
	"notify.ses.access_key_id":        "",
	"notify.ses.secret_access_key":    "",
	"notify.ses.endpoint":             "",
	"notify.ses.insecure_skip_verify": false,
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (SPEAKERPOOL_STORAGE_URL, ...)
// 3. .env.local, then .env
// 4. Config file (--config, ./.speakerpool.yaml or ~/.speakerpool.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName(".speakerpool")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// Missing config files are fine
		_ = v.ReadInConfig()
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("output"),

		ConfigFile: v.ConfigFileUsed(),

		Storage: StorageConfig{
			Backend:        strings.ToLower(v.GetString("storage.backend")),
			URL:            v.GetString("storage.url"),
			AdminURL:       v.GetString("storage.admin_url"),
			Dir:            v.GetString("storage.dir"),
			DSN:            v.GetString("storage.dsn"),
			Table:          v.GetString("storage.table"),
			ProtectedReads: v.GetBool("storage.protected_reads"),
			Timeout:        v.GetDuration("storage.timeout"),
		},
		Layout: blob.Layout{
			CanonicalKey: v.GetString("layout.canonical_key"),
			DeltaPrefix:  v.GetString("layout.delta_prefix"),
		}.WithDefaults(),
		Auth: AuthConfig{
			Token:     v.GetString("auth.token"),
			TokenEnv:  v.GetString("auth.token_env"),
			JWTSecret: v.GetString("auth.jwt_secret"),
			AdminRole: v.GetString("auth.admin_role"),
		},
		Principal: PrincipalConfig{
			Name:  v.GetString("principal.name"),
			Email: v.GetString("principal.email"),
		},
		Metrics: MetricsConfig{
			Pushgateway: v.GetString("metrics.pushgateway"),
			Job:         v.GetString("metrics.job"),
		},
		Notify: notify.Config{
			Provider:    v.GetString("notify.provider"),
			To:          splitList(v.GetStringSlice("notify.to")),
			FromAddress: v.GetString("notify.from"),
			FromName:    v.GetString("notify.from_name"),
			SES: notify.SESConfig{
				Region:             v.GetString("notify.ses.region"),
				AccessKeyID:        v.GetString("notify.ses.access_key_id"),
				SecretAccessKey:    v.GetString("notify.ses.secret_access_key"),
				Endpoint:           v.GetString("notify.ses.endpoint"),
				InsecureSkipVerify: v.GetBool("notify.ses.insecure_skip_verify"),
			},
		},

		// LOG_* are shared with pkg/logging and carry no prefix
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env files. godotenv never overrides a variable that
// is already set, so .env.local is loaded first to win over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// splitList flattens comma separated entries, so NOTIFY_TO=a@x,b@y works.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
