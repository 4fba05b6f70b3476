// Package config holds studio settings loaded from ~/.studio/config.yaml
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no Gemini API key is set
// and the Vertex AI backend is not selected.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// apiKeyEnv lists the variables consulted for the API key, first match wins.
var apiKeyEnv = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "VITE_GEMINI_API_KEY"}

// Config is the full studio configuration.
type Config struct {
	APIKey   string `yaml:"api_key"`
	LogLevel string `yaml:"log_level"`

	Vertex  VertexConfig  `yaml:"vertex"`
	Models  ModelsConfig  `yaml:"models"`
	Polling PollingConfig `yaml:"polling"`
	REST    RESTConfig    `yaml:"rest"`
	Drive   DriveConfig   `yaml:"drive"`
	Storage StorageConfig `yaml:"storage"`
	Relay   RelayConfig   `yaml:"relay"`
}

// VertexConfig selects the Vertex AI backend instead of the Gemini API.
type VertexConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
}

// ModelsConfig names the model used by each client.
type ModelsConfig struct {
	Text      string `yaml:"text"`
	Vision    string `yaml:"vision"`
	Image     string `yaml:"image"`
	ImagePro  string `yaml:"image_pro"`
	Imagen    string `yaml:"imagen"`
	Video     string `yaml:"video"`
	TTS       string `yaml:"tts"`
	Embedding string `yaml:"embedding"`
	Live      string `yaml:"live"`
	Music     string `yaml:"music"`
}

// PollingConfig sets the status-check interval of long-running jobs.
type PollingConfig struct {
	File        time.Duration `yaml:"file"`
	Video       time.Duration `yaml:"video"`
	Batch       time.Duration `yaml:"batch"`
	Interaction time.Duration `yaml:"interaction"`
}

// RESTConfig configures the raw Generative Language REST client.
type RESTConfig struct {
	BaseURL    string        `yaml:"base_url"`
	MaxRetries uint          `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DriveConfig configures Google Drive backups.
type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	RootFolder      string `yaml:"root_folder"`
	LocalRoot       string `yaml:"local_root"`
}

// StorageConfig configures the local media store.
type StorageConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// RelayConfig configures the browser live relay server.
type RelayConfig struct {
	Port  int    `yaml:"port"`
	Model string `yaml:"model"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Vertex: VertexConfig{
			Location: "us-central1",
		},
		Models: ModelsConfig{
			Text:      "gemini-2.5-flash",
			Vision:    "gemini-2.5-flash",
			Image:     "gemini-2.5-flash-image",
			ImagePro:  "gemini-3-pro-image-preview",
			Imagen:    "imagen-4.0-generate-001",
			Video:     "veo-3.1-generate-preview",
			TTS:       "gemini-2.5-flash-preview-tts",
			Embedding: "text-embedding-004",
			Live:      "models/gemini-2.0-flash-exp",
			Music:     "models/lyria-realtime-exp",
		},
		Polling: PollingConfig{
			File:        2 * time.Second,
			Video:       10 * time.Second,
			Batch:       10 * time.Second,
			Interaction: 5 * time.Second,
		},
		REST: RESTConfig{
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			MaxRetries: 3,
			Timeout:    2 * time.Minute,
		},
		Drive: DriveConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			RootFolder:      "Diva AI System Backups",
			LocalRoot:       ".",
		},
		Storage: StorageConfig{
			BaseDir: "storage",
		},
		Relay: RelayConfig{
			Port:  8080,
			Model: "gemini-live-2.5-flash-preview",
		},
	}
}

// Load reads the config file at path, or ~/.studio/config.yaml when path
// is empty, then applies environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(Dir(), "config.yaml")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	for _, k := range apiKeyEnv {
		if v := getenv(k); v != "" {
			c.APIKey = v
			break
		}
	}
	if v := getenv("GOOGLE_GENAI_USE_VERTEXAI"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Vertex.Enabled = b
		}
	}
	if v := getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.Vertex.Project = v
	}
	if v := getenv("GOOGLE_CLOUD_LOCATION"); v != "" {
		c.Vertex.Location = v
	}
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Relay.Port = port
		}
	}
	if v := getenv("STUDIO_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

// Validate checks that the configuration can reach a backend.
func (c *Config) Validate() error {
	if c.Vertex.Enabled {
		if c.Vertex.Project == "" {
			return errors.New("vertex backend requires GOOGLE_CLOUD_PROJECT")
		}
		return nil
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Dir returns the path to ~/.studio.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".studio")
	}
	return filepath.Join(homeDir, ".studio")
}
