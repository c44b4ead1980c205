package contract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/huangsam/fluentgate/schema"
)

// Default values for configuration.
const (
	DefaultPrecision        = 1
	DefaultModelVersion     = "fluentgate-2"
	DefaultAggregationDays  = 30
	DefaultBotIdentityBase  = "fluentgate-monitor"
	DefaultSTTSampleRate    = 48000
	DefaultSTTEndpointingMs = 300
	MinWordsForUpdate       = 10
)

// Default monitor timings.
const (
	DefaultDiscoveryInterval    = 5 * time.Second
	DefaultDurationCapInterval  = 60 * time.Second
	DefaultEndedSweepInterval   = 10 * time.Second
	DefaultQueueCleanupInterval = 30 * time.Second
	DefaultGracePeriod          = 15 * time.Second
	DefaultMaxSessionDuration   = 15 * time.Minute
	DefaultQueueStaleAfter      = 60 * time.Second
	DefaultCredentialTTL        = 2 * time.Hour
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// MonitorConfig holds the session lifecycle monitor settings.
type MonitorConfig struct {
	RelayURL      string
	RoomAPIKey    string
	RoomAPISecret string // Please use env var as this is plaintext
	BotIdentity   string
	CredentialTTL time.Duration

	DiscoveryInterval    time.Duration
	DurationCapInterval  time.Duration
	EndedSweepInterval   time.Duration
	QueueCleanupInterval time.Duration
	GracePeriod          time.Duration
	MaxSessionDuration   time.Duration
	QueueStaleAfter      time.Duration
}

// STTConfig holds the streaming speech-to-text settings.
type STTConfig struct {
	URL           string
	APIKey        string // Please use env var as this is plaintext
	Model         string
	EndpointingMs int
	FillerWords   bool
	SampleRate    int
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int  // Terminal width override (0 = auto-detect)
	UseColors  bool // Enable colored labels in table output

	LogLevel  slog.Level
	LogFormat string

	ModelVersion      string
	DefaultTier       schema.Tier
	AggregationWindow time.Duration

	Monitor MonitorConfig
	STT     STTConfig
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Backend      string `mapstructure:"backend"`
	DBConnect    string `mapstructure:"db-connect"`
	Output       string `mapstructure:"output"`
	OutputFile   string `mapstructure:"output-file"`
	Precision    int    `mapstructure:"precision"`
	Width        int    `mapstructure:"width"`
	Color        string `mapstructure:"color"`
	LogLevel     string `mapstructure:"log-level"`
	LogFormat    string `mapstructure:"log-format"`
	ModelVersion string `mapstructure:"model-version"`
	DefaultTier  string `mapstructure:"default-tier"`
	Window       string `mapstructure:"aggregation-window"`

	// --- Fields from monitorCmd.Flags() ---
	RelayURL             string `mapstructure:"relay-url"`
	RoomAPIKey           string `mapstructure:"room-api-key"`
	RoomAPISecret        string `mapstructure:"room-api-secret"`
	BotIdentity          string `mapstructure:"bot-identity"`
	CredentialTTL        string `mapstructure:"credential-ttl"`
	DiscoveryInterval    string `mapstructure:"discovery-interval"`
	DurationCapInterval  string `mapstructure:"duration-cap-interval"`
	EndedSweepInterval   string `mapstructure:"ended-sweep-interval"`
	QueueCleanupInterval string `mapstructure:"queue-cleanup-interval"`
	GracePeriod          string `mapstructure:"grace-period"`
	MaxSessionDuration   string `mapstructure:"max-session-duration"`
	QueueStaleAfter      string `mapstructure:"queue-stale-after"`

	// --- Speech to text ---
	STTURL         string `mapstructure:"stt-url"`
	STTAPIKey      string `mapstructure:"stt-api-key"`
	STTModel       string `mapstructure:"stt-model"`
	STTEndpointing int    `mapstructure:"stt-endpointing"`
	STTFillerWords string `mapstructure:"stt-filler-words"`
	STTSampleRate  int    `mapstructure:"stt-sample-rate"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// WindowDays returns the aggregation window in whole days.
func (c *Config) WindowDays() int {
	return int(c.AggregationWindow / (24 * time.Hour))
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	if err := processModelInputs(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateMonitorConfig checks the settings only the monitor command needs.
func ValidateMonitorConfig(cfg *Config, input *ConfigRawInput) error {
	m := &cfg.Monitor
	m.RelayURL = strings.TrimRight(strings.TrimSpace(input.RelayURL), "/")
	m.RoomAPIKey = input.RoomAPIKey
	m.RoomAPISecret = input.RoomAPISecret
	m.BotIdentity = strings.TrimSpace(input.BotIdentity)
	if m.BotIdentity == "" {
		m.BotIdentity = DefaultBotIdentityBase
	}

	if m.RelayURL == "" {
		return fmt.Errorf("relay-url is required for the monitor command")
	}
	u, err := url.Parse(m.RelayURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("relay-url must be a ws:// or wss:// URL (received %q)", input.RelayURL)
	}
	if m.RoomAPISecret == "" {
		return fmt.Errorf("room-api-secret is required for the monitor command")
	}

	durations := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"credential-ttl", input.CredentialTTL, DefaultCredentialTTL, &m.CredentialTTL},
		{"discovery-interval", input.DiscoveryInterval, DefaultDiscoveryInterval, &m.DiscoveryInterval},
		{"duration-cap-interval", input.DurationCapInterval, DefaultDurationCapInterval, &m.DurationCapInterval},
		{"ended-sweep-interval", input.EndedSweepInterval, DefaultEndedSweepInterval, &m.EndedSweepInterval},
		{"queue-cleanup-interval", input.QueueCleanupInterval, DefaultQueueCleanupInterval, &m.QueueCleanupInterval},
		{"grace-period", input.GracePeriod, DefaultGracePeriod, &m.GracePeriod},
		{"max-session-duration", input.MaxSessionDuration, DefaultMaxSessionDuration, &m.MaxSessionDuration},
		{"queue-stale-after", input.QueueStaleAfter, DefaultQueueStaleAfter, &m.QueueStaleAfter},
	}
	for _, d := range durations {
		*d.dst = d.def
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		parsed, err := ParseWindowDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return validateSTTConfig(cfg, input)
}

// validateSTTConfig fills the speech-to-text settings.
func validateSTTConfig(cfg *Config, input *ConfigRawInput) error {
	s := &cfg.STT
	s.URL = strings.TrimSpace(input.STTURL)
	s.APIKey = input.STTAPIKey
	s.Model = input.STTModel
	s.EndpointingMs = input.STTEndpointing
	s.SampleRate = input.STTSampleRate

	if s.URL == "" {
		return fmt.Errorf("stt-url is required for the monitor command")
	}
	if s.EndpointingMs < 0 {
		return fmt.Errorf("stt-endpointing must not be negative (received %d)", s.EndpointingMs)
	}
	if s.SampleRate <= 0 {
		s.SampleRate = DefaultSTTSampleRate
	}

	fillers, err := ParseBoolString(orDefault(input.STTFillerWords, "yes"))
	if err != nil {
		return fmt.Errorf("invalid --stt-filler-words value: %w", err)
	}
	s.FillerWords = fillers
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			return nil
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the rendering and logging fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(orDefault(input.Color, "yes"))
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(orDefault(input.Output, string(schema.TextOut))))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	level, err := ParseLogLevel(orDefault(input.LogLevel, "info"))
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	cfg.LogFormat = strings.ToLower(orDefault(input.LogFormat, "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log format '%s'. must be text or json", input.LogFormat)
	}
	return nil
}

// validateBackendConfig validates the store backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.Backend = schema.DatabaseBackend(strings.ToLower(orDefault(input.Backend, string(schema.SQLiteBackend))))
	if _, ok := schema.ValidDatabaseBackends[cfg.Backend]; !ok {
		return fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", input.Backend)
	}
	cfg.DBConnect = input.DBConnect
	return ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect)
}

// processModelInputs handles the fields that shape profile updates.
func processModelInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ModelVersion = strings.TrimSpace(orDefault(input.ModelVersion, DefaultModelVersion))

	tier, err := schema.ParseTier(orDefault(input.DefaultTier, string(schema.TierA2)))
	if err != nil {
		return fmt.Errorf("invalid --default-tier: %w", err)
	}
	cfg.DefaultTier = tier

	cfg.AggregationWindow = DefaultAggregationDays * 24 * time.Hour
	if strings.TrimSpace(input.Window) != "" {
		window, err := ParseWindowDuration(input.Window)
		if err != nil {
			return fmt.Errorf("invalid --aggregation-window: %w", err)
		}
		if window < 24*time.Hour {
			return fmt.Errorf("aggregation-window must be at least one day (received %s)", input.Window)
		}
		cfg.AggregationWindow = window
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
