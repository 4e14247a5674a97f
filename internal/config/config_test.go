package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anime-shed/table-inspector-go/internal/vision"
)

// chdirTemp isolates Load from a config.yaml in the package directory
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	// empty variables are treated as unset
	for _, key := range []string{"CONFIG_FILE", "VISION_API_KEY", "VISION_MODEL", "PORT", "HOST", "ALLOW_LOCAL_FILES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("ServerAddress() = %q", cfg.ServerAddress())
	}
	if cfg.MaxRequestBodySize != 20<<20 {
		t.Errorf("MaxRequestBodySize = %d", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	s := cfg.VisionSettings()
	if s.APIKey != vision.PlaceholderAPIKey || s.HasCredential() {
		t.Errorf("default key should be the placeholder, got %q", s.APIKey)
	}
	if s.Endpoint != vision.DefaultEndpoint || s.Model != vision.DefaultModel {
		t.Errorf("unexpected vision defaults: %+v", s)
	}
	if s.MaxTokens != 2000 || s.Timeout != 30*time.Second || s.ProbeTimeout != 5*time.Second {
		t.Errorf("unexpected vision limits: %+v", s)
	}
	po := cfg.PreprocessOptions()
	if po.MaxWidth != 1024 || po.MaxHeight != 1024 || po.Contrast != 1.2 || po.Sharpness != 1.1 {
		t.Errorf("unexpected preprocess options: %+v", po)
	}
	if got := cfg.SupportedFormatList(); len(got) != 5 {
		t.Errorf("SupportedFormatList() = %v", got)
	}
	if cfg.AllowLocalFiles {
		t.Error("local files must be disabled by default")
	}
	if cfg.SkipPreprocessing || len(cfg.AllowedImageHostList()) != 0 {
		t.Errorf("unexpected image defaults: skip=%v hosts=%v", cfg.SkipPreprocessing, cfg.AllowedImageHostList())
	}
	if cfg.HistoryMaxRecords != 1000 {
		t.Errorf("HistoryMaxRecords = %d", cfg.HistoryMaxRecords)
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VISION_API_KEY", " secret-key ")
	t.Setenv("VISION_MODEL", "glm-4.5v-plus")
	t.Setenv("VISION_TIMEOUT", "45s")
	t.Setenv("MAX_IMAGE_WIDTH", "800")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOW_LOCAL_FILES", "true")
	t.Setenv("SUPPORTED_FORMATS", ".png, .jpg")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("SKIP_PREPROCESSING", "true")
	t.Setenv("ALLOWED_IMAGE_HOSTS", "images.example.com, cdn.example.com")
	t.Setenv("HISTORY_MAX_RECORDS", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := cfg.VisionSettings()
	if s.APIKey != "secret-key" || !s.HasCredential() {
		t.Errorf("APIKey = %q", s.APIKey)
	}
	if s.Model != "glm-4.5v-plus" || s.Timeout != 45*time.Second {
		t.Errorf("unexpected settings: %+v", s)
	}
	if cfg.PreprocessOptions().MaxWidth != 800 {
		t.Errorf("MaxWidth = %d", cfg.PreprocessOptions().MaxWidth)
	}
	if cfg.ServerAddress() != "0.0.0.0:9090" {
		t.Errorf("ServerAddress() = %q", cfg.ServerAddress())
	}
	if !cfg.AllowLocalFiles {
		t.Error("ALLOW_LOCAL_FILES not applied")
	}
	if got := cfg.SupportedFormatList(); len(got) != 2 || got[1] != ".jpg" {
		t.Errorf("SupportedFormatList() = %v", got)
	}
	if got := cfg.CORSOrigins(); len(got) != 2 || got[0] != "http://a.example" {
		t.Errorf("CORSOrigins() = %v", got)
	}
	if !cfg.SkipPreprocessing {
		t.Error("SKIP_PREPROCESSING not applied")
	}
	if got := cfg.AllowedImageHostList(); len(got) != 2 || got[1] != "cdn.example.com" {
		t.Errorf("AllowedImageHostList() = %v", got)
	}
	if cfg.HistoryMaxRecords != 50 {
		t.Errorf("HistoryMaxRecords = %d", cfg.HistoryMaxRecords)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	content := "vision_model: from-file\nbatch_workers: 2\nport: \"7070\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7171")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VisionModel != "from-file" || cfg.BatchWorkers != 2 {
		t.Errorf("file values not applied: model=%q workers=%d", cfg.VisionModel, cfg.BatchWorkers)
	}
	if cfg.Port != "7171" {
		t.Errorf("environment should override the file, Port = %q", cfg.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing CONFIG_FILE")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Host: "127.0.0.1", Port: "8080",
			RequestTimeout: time.Minute, MaxRequestBodySize: 1 << 20,
			VisionAPIURL: vision.DefaultEndpoint, VisionModel: vision.DefaultModel,
			VisionMaxTokens: 2000, VisionTimeout: time.Second, VisionProbeTimeout: time.Second,
			MaxImageWidth: 1024, MaxImageHeight: 1024,
			SupportedFormats: ".png",
			BatchWorkers:     1, BatchMaxItems: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = "0" }, true},
		{"port too large", func(c *Config) { c.Port = "70000" }, true},
		{"port not numeric", func(c *Config) { c.Port = "http" }, true},
		{"body size", func(c *Config) { c.MaxRequestBodySize = 0 }, true},
		{"vision timeout", func(c *Config) { c.VisionTimeout = 0 }, true},
		{"max tokens", func(c *Config) { c.VisionMaxTokens = -1 }, true},
		{"image width", func(c *Config) { c.MaxImageWidth = 0 }, true},
		{"batch workers", func(c *Config) { c.BatchWorkers = 0 }, true},
		{"empty model", func(c *Config) { c.VisionModel = " " }, true},
		{"relative endpoint", func(c *Config) { c.VisionAPIURL = "/v1/chat" }, true},
		{"ftp endpoint", func(c *Config) { c.VisionAPIURL = "ftp://host/x" }, true},
		{"no formats", func(c *Config) { c.SupportedFormats = " , " }, true},
		{"negative history cap", func(c *Config) { c.HistoryMaxRecords = -1 }, true},
		{"azure key without account", func(c *Config) { c.AzureStorageKey = "k" }, true},
		{"results container without azure", func(c *Config) { c.AzureResultsContainer = "results" }, true},
		{"azure complete", func(c *Config) {
			c.AzureStorageAccount = "acct"
			c.AzureStorageKey = "k"
			c.AzureResultsContainer = "results"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddressIPv6(t *testing.T) {
	cfg := Config{Host: "::1", Port: "8080"}
	if got := cfg.ServerAddress(); got != "[::1]:8080" {
		t.Errorf("ServerAddress() = %q", got)
	}
}
