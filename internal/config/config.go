package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Download   DownloadConfig   `yaml:"download"`
	Retry      RetryConfig      `yaml:"retry"`
	Events     EventsConfig     `yaml:"events"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8501"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"30m"`
	RateLimit    float64       `yaml:"rate_limit" envconfig:"SERVER_RATE_LIMIT" default:"2"`
	RateBurst    int           `yaml:"rate_burst" envconfig:"SERVER_RATE_BURST" default:"10"`
}

// Classifier modes.
const (
	ModeGeneric = "generic"
	ModeStrict  = "strict"
)

// ClassifierConfig controls which URLs are accepted.
type ClassifierConfig struct {
	// Mode is "strict" (YouTube/Instagram shapes only) or "generic"
	// (anything that looks like an http(s) URL).
	Mode string `yaml:"mode" envconfig:"CLASSIFIER_MODE" default:"strict"`
}

// ExtractorConfig holds yt-dlp configuration.
type ExtractorConfig struct {
	// Executable overrides the yt-dlp binary. Empty means resolve from PATH
	// or the auto-installed copy.
	Executable    string        `yaml:"executable" envconfig:"YTDLP_PATH"`
	AutoInstall   bool          `yaml:"auto_install" envconfig:"YTDLP_AUTO_INSTALL" default:"false"`
	FFmpegPath    string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	SocketTimeout time.Duration `yaml:"socket_timeout" envconfig:"YTDLP_SOCKET_TIMEOUT" default:"30s"`
	UserAgents    []string      `yaml:"user_agents" envconfig:"YTDLP_USER_AGENTS"`
	PlayerClients []string      `yaml:"player_clients" envconfig:"YTDLP_PLAYER_CLIENTS" default:"android,web"`
	SkipManifests []string      `yaml:"skip_manifests" envconfig:"YTDLP_SKIP_MANIFESTS" default:"dash,hls"`
}

// CatalogConfig holds the format menu toggles.
type CatalogConfig struct {
	// FPSMinHeight hides the frame rate below this height. 0 shows it always.
	FPSMinHeight int `yaml:"fps_min_height" envconfig:"CATALOG_FPS_MIN_HEIGHT" default:"0"`
	// ExcludeMuxedAudio keeps formats that also carry video out of the
	// audio bucket.
	ExcludeMuxedAudio bool `yaml:"exclude_muxed_audio" envconfig:"CATALOG_EXCLUDE_MUXED_AUDIO" default:"true"`
	ShowFileSize      bool `yaml:"show_file_size" envconfig:"CATALOG_SHOW_FILE_SIZE" default:"true"`
	// DedupeByContainer adds the container extension to the dedup key.
	DedupeByContainer bool `yaml:"dedupe_by_container" envconfig:"CATALOG_DEDUPE_BY_CONTAINER" default:"false"`
	// MaxHeight drops video formats taller than this. 0 disables the cap.
	MaxHeight int `yaml:"max_height" envconfig:"CATALOG_MAX_HEIGHT" default:"0"`
}

// DownloadConfig holds download pipeline configuration.
type DownloadConfig struct {
	TempDir      string        `yaml:"temp_dir" envconfig:"DOWNLOAD_TEMP_DIR"`
	AudioBitrate int           `yaml:"audio_bitrate" envconfig:"DOWNLOAD_AUDIO_BITRATE" default:"192"`
	DeliveryTTL  time.Duration `yaml:"delivery_ttl" envconfig:"DOWNLOAD_DELIVERY_TTL" default:"10m"`
	MaxFileSize  int64         `yaml:"max_file_size" envconfig:"DOWNLOAD_MAX_FILE_SIZE" default:"2147483648"` // 2GB
}

// RetryConfig holds the bounded retry policy shared by probe and fetch.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	Delay       time.Duration `yaml:"delay" envconfig:"RETRY_DELAY" default:"5s"`
}

// EventsConfig holds activity log configuration.
type EventsConfig struct {
	RingBufferSize int    `yaml:"ring_buffer_size" envconfig:"EVENTS_BUFFER_SIZE" default:"500"`
	SQLitePath     string `yaml:"sqlite_path" envconfig:"EVENTS_SQLITE_PATH"`
	RetentionDays  int    `yaml:"retention_days" envconfig:"EVENTS_RETENTION_DAYS" default:"30"`
}

// WorkerConfig holds background maintenance configuration.
type WorkerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"WORKER_SWEEP_INTERVAL" default:"1m"`
	// StaleTempAge is how old a leftover scratch directory must be before
	// it is removed.
	StaleTempAge    time.Duration `yaml:"stale_temp_age" envconfig:"WORKER_STALE_TEMP_AGE" default:"6h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" envconfig:"WORKER_CLEANUP_INTERVAL" default:"24h"`
}

// Load reads configuration from file and environment variables.
// Defaults come from the struct tags, the file overrides them and any
// environment variable that is set overrides the file.
func Load(configPath string) (*Config, error) {
	env := &Config{}
	if err := envconfig.Process("", env); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg := *env
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		overrideFromEnv(reflect.ValueOf(&cfg).Elem(), reflect.ValueOf(env).Elem())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// overrideFromEnv copies into dst every field of src whose envconfig
// variable is present in the environment.
func overrideFromEnv(dst, src reflect.Value) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type.Kind() == reflect.Struct {
			overrideFromEnv(dst.Field(i), src.Field(i))
			continue
		}
		key := field.Tag.Get("envconfig")
		if key == "" {
			continue
		}
		if _, ok := os.LookupEnv(key); ok {
			dst.Field(i).Set(src.Field(i))
		}
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Classifier.Mode != ModeStrict && c.Classifier.Mode != ModeGeneric {
		return fmt.Errorf("CLASSIFIER_MODE must be %q or %q, got %q", ModeStrict, ModeGeneric, c.Classifier.Mode)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("RETRY_DELAY must not be negative")
	}
	if c.Download.AudioBitrate < 32 || c.Download.AudioBitrate > 320 {
		return fmt.Errorf("DOWNLOAD_AUDIO_BITRATE must be between 32 and 320 kbps")
	}
	if c.Extractor.SocketTimeout <= 0 {
		return fmt.Errorf("YTDLP_SOCKET_TIMEOUT must be positive")
	}
	if c.Worker.SweepInterval <= 0 || c.Worker.CleanupInterval <= 0 {
		return fmt.Errorf("WORKER_SWEEP_INTERVAL and WORKER_CLEANUP_INTERVAL must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("SERVER_RATE_LIMIT must not be negative")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
