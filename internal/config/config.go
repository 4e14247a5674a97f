package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/internal/vision"

	"github.com/spf13/viper"
)

type Config struct {
	Host               string        `mapstructure:"host"`
	Port               string        `mapstructure:"port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"`
	LogLevel           string        `mapstructure:"log_level"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`

	VisionAPIKey       string        `mapstructure:"vision_api_key"`
	VisionAPIURL       string        `mapstructure:"vision_api_url"`
	VisionModel        string        `mapstructure:"vision_model"`
	VisionMaxTokens    int           `mapstructure:"vision_max_tokens"`
	VisionTimeout      time.Duration `mapstructure:"vision_timeout"`
	VisionProbeTimeout time.Duration `mapstructure:"vision_probe_timeout"`

	MaxImageWidth    int    `mapstructure:"max_image_width"`
	MaxImageHeight   int    `mapstructure:"max_image_height"`
	SupportedFormats  string `mapstructure:"supported_formats"`
	SkipPreprocessing bool   `mapstructure:"skip_preprocessing"`
	AllowLocalFiles   bool   `mapstructure:"allow_local_files"`
	// AllowedImageHosts restricts http(s) references; empty allows any host
	AllowedImageHosts string `mapstructure:"allowed_image_hosts"`

	BatchWorkers  int `mapstructure:"batch_workers"`
	BatchMaxItems int `mapstructure:"batch_max_items"`

	ResultsDir            string `mapstructure:"results_dir"`
	MySQLDSN              string `mapstructure:"mysql_dsn"`
	HistoryMaxRecords     int    `mapstructure:"history_max_records"`
	AzureStorageAccount   string `mapstructure:"azure_storage_account"`
	AzureStorageKey       string `mapstructure:"azure_storage_key"`
	AzureResultsContainer string `mapstructure:"azure_results_container"`
}

var defaults = map[string]interface{}{
	"host":                  "0.0.0.0",
	"port":                  "8080",
	"request_timeout":       "60s",
	"max_request_body_size": 20 << 20, // 20MB
	"log_level":             "info",
	"cors_allowed_origins":  "*",

	"vision_api_key":       vision.PlaceholderAPIKey,
	"vision_api_url":       vision.DefaultEndpoint,
	"vision_model":         vision.DefaultModel,
	"vision_max_tokens":    vision.DefaultMaxTokens,
	"vision_timeout":       vision.DefaultTimeout.String(),
	"vision_probe_timeout": vision.DefaultProbeTimeout.String(),

	"max_image_width":     1024,
	"max_image_height":    1024,
	"supported_formats":   ".jpg,.jpeg,.png,.bmp,.gif",
	"skip_preprocessing":  false,
	"allow_local_files":   false,
	"allowed_image_hosts": "",

	"batch_workers":   4,
	"batch_max_items": 16,

	"results_dir":             "",
	"mysql_dsn":               "",
	"history_max_records":     1000,
	"azure_storage_account":   "",
	"azure_storage_key":       "",
	"azure_results_container": "",
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Load reads defaults, then an optional YAML file, then the environment.
// The file is CONFIG_FILE if set, else config.yaml in the working directory when present.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.yaml: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and formats. The placeholder API key is accepted here
// and rejected per call, so the server can start without credentials.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.VisionTimeout <= 0 || c.VisionProbeTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, vision=%s, probe=%s)",
			c.RequestTimeout, c.VisionTimeout, c.VisionProbeTimeout)
	}
	if c.VisionMaxTokens <= 0 {
		return fmt.Errorf("VISION_MAX_TOKENS must be > 0 (got %d)", c.VisionMaxTokens)
	}
	if c.MaxImageWidth <= 0 || c.MaxImageHeight <= 0 {
		return fmt.Errorf("max image dimensions must be > 0 (got %dx%d)", c.MaxImageWidth, c.MaxImageHeight)
	}
	if c.BatchWorkers <= 0 || c.BatchMaxItems <= 0 {
		return fmt.Errorf("batch settings must be > 0 (got workers=%d, max_items=%d)", c.BatchWorkers, c.BatchMaxItems)
	}
	if c.HistoryMaxRecords < 0 {
		return fmt.Errorf("HISTORY_MAX_RECORDS must be >= 0 (got %d)", c.HistoryMaxRecords)
	}
	if strings.TrimSpace(c.VisionModel) == "" {
		return fmt.Errorf("VISION_MODEL must not be empty")
	}
	u, err := url.Parse(c.VisionAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("VISION_API_URL must be an absolute http(s) URL (got %q)", c.VisionAPIURL)
	}
	if len(c.SupportedFormatList()) == 0 {
		return fmt.Errorf("SUPPORTED_FORMATS must list at least one extension")
	}
	if (c.AzureStorageAccount == "") != (c.AzureStorageKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	if c.AzureResultsContainer != "" && c.AzureStorageAccount == "" {
		return fmt.Errorf("AZURE_RESULTS_CONTAINER requires Azure storage credentials")
	}
	return nil
}

// VisionSettings returns the per-call settings of the vision endpoint
func (c *Config) VisionSettings() vision.Settings {
	return vision.Settings{
		APIKey:       strings.TrimSpace(c.VisionAPIKey),
		Endpoint:     c.VisionAPIURL,
		Model:        c.VisionModel,
		MaxTokens:    c.VisionMaxTokens,
		Timeout:      c.VisionTimeout,
		ProbeTimeout: c.VisionProbeTimeout,
	}
}

// PreprocessOptions returns the image preparation options
func (c *Config) PreprocessOptions() preprocess.Options {
	return preprocess.DefaultOptions().WithMaxSize(c.MaxImageWidth, c.MaxImageHeight)
}

// SupportedFormatList splits SUPPORTED_FORMATS on commas
func (c *Config) SupportedFormatList() []string {
	return splitList(c.SupportedFormats)
}

// AllowedImageHostList splits ALLOWED_IMAGE_HOSTS on commas
func (c *Config) AllowedImageHostList() []string {
	return splitList(c.AllowedImageHosts)
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas
func (c *Config) CORSOrigins() []string {
	out := splitList(c.CORSAllowedOrigins)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
