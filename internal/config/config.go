package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/psa231093/fbrelay/pkg/crypto"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Worker    WorkerConfig    `yaml:"worker"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Facebook  FacebookConfig  `yaml:"facebook"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"9320"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
}

// StorageConfig holds filesystem and database configuration.
type StorageConfig struct {
	DownloadDir string `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" default:"downloads"`
	TempDir     string `yaml:"temp_dir" envconfig:"TEMP_DIR" default:"downloads/tmp"`
	HistoryDB   string `yaml:"history_db" envconfig:"HISTORY_DB" default:"fbrelay.db"`
}

// WorkerConfig holds worker pool and scheduler configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
	// SchedulePollInterval is how often the scheduler checks for due posts.
	SchedulePollInterval time.Duration `yaml:"schedule_poll_interval" envconfig:"SCHEDULE_POLL_INTERVAL" default:"60s"`
}

// ExtractorConfig holds yt-dlp invocation configuration.
type ExtractorConfig struct {
	BinPath     string        `yaml:"bin_path" envconfig:"EXTRACTOR_BIN" default:"yt-dlp"`
	Quality     string        `yaml:"quality" envconfig:"EXTRACTOR_QUALITY" default:"best"`
	Format      string        `yaml:"format" envconfig:"EXTRACTOR_FORMAT" default:"mp4"`
	CookiesFile string        `yaml:"cookies_file" envconfig:"EXTRACTOR_COOKIES_FILE"`
	RateLimit   string        `yaml:"rate_limit" envconfig:"EXTRACTOR_RATE_LIMIT"`
	Retries     int           `yaml:"retries" envconfig:"EXTRACTOR_RETRIES" default:"3"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"EXTRACTOR_TIMEOUT" default:"15m"`
	WriteInfo   bool          `yaml:"write_info" envconfig:"EXTRACTOR_WRITE_INFO" default:"true"`
	Thumbnail   bool          `yaml:"thumbnail" envconfig:"EXTRACTOR_THUMBNAIL" default:"true"`
}

// FacebookConfig holds Graph API and upload policy configuration.
type FacebookConfig struct {
	AccessToken string `yaml:"access_token" envconfig:"FACEBOOK_ACCESS_TOKEN"`
	// TokenFile is an optional encrypted credentials file; when AccessToken
	// is empty the token is decrypted from here using TokenKey.
	TokenFile string `yaml:"token_file" envconfig:"FACEBOOK_TOKEN_FILE"`
	TokenKey  string `yaml:"-" envconfig:"FACEBOOK_TOKEN_KEY"`

	TargetID     string        `yaml:"target_id" envconfig:"FACEBOOK_TARGET_ID"`
	BaseURL      string        `yaml:"base_url" envconfig:"FACEBOOK_BASE_URL" default:"https://graph.facebook.com"`
	GraphVersion string        `yaml:"graph_version" envconfig:"FACEBOOK_GRAPH_VERSION" default:"v18.0"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"FACEBOOK_TIMEOUT" default:"30s"`

	AutoUpload         bool   `yaml:"auto_upload" envconfig:"FACEBOOK_AUTO_UPLOAD" default:"true"`
	MaxFileSize        int64  `yaml:"max_file_size" envconfig:"FACEBOOK_MAX_FILE_SIZE" default:"1073741824"` // 1GiB
	DefaultTitlePrefix string `yaml:"default_title_prefix" envconfig:"FACEBOOK_TITLE_PREFIX"`
	DefaultDescription string `yaml:"default_description" envconfig:"FACEBOOK_DESCRIPTION" default:"Uploaded via fbrelay"`

	ChunkSize       int64         `yaml:"chunk_size" envconfig:"FACEBOOK_CHUNK_SIZE" default:"4194304"` // 4MiB
	TransferRetries int           `yaml:"transfer_retries" envconfig:"FACEBOOK_TRANSFER_RETRIES" default:"3"`
	RetryDelay      time.Duration `yaml:"retry_delay" envconfig:"FACEBOOK_RETRY_DELAY" default:"2s"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Resolve the access token from the encrypted credentials file
	if cfg.Facebook.AccessToken == "" && cfg.Facebook.TokenFile != "" {
		token, err := crypto.DecryptFile(cfg.Facebook.TokenFile, cfg.Facebook.TokenKey)
		if err != nil {
			return nil, fmt.Errorf("decrypt token file: %w", err)
		}
		cfg.Facebook.AccessToken = strings.TrimSpace(string(token))
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.Facebook.AccessToken == "" {
		return fmt.Errorf("FACEBOOK_ACCESS_TOKEN is required")
	}
	if c.Facebook.TargetID == "" {
		return fmt.Errorf("FACEBOOK_TARGET_ID is required")
	}
	if c.Storage.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.Facebook.ChunkSize <= 0 {
		return fmt.Errorf("FACEBOOK_CHUNK_SIZE must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
