// Package config handles Excelly configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".excelly")

	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
			Gemini: GeminiConfig{
				APIKey:     os.Getenv("GEMINI_API_KEY"),
				BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
				ProModel:   "gemini-2.5-pro",
				MidModel:   "gemini-2.5-flash",
				FlashModel: "gemini-2.0-flash",
			},
		},
		Routing: RoutingConfig{
			RequestTimeoutSecs: 60,
			HybridFileBytes:    512 * 1024,
			MaxTokens:          4000,
		},
		Conversation: ConversationConfig{
			MaxClarifications: 3,
			HistoryBudget:     8,
			MinQuestionRunes:  5,
		},
		Upload: UploadConfig{
			MaxFileBytes: 10 * 1024 * 1024,
			AllowedTypes: []string{".xlsx", ".xlsm", ".csv"},
			GeneratedDir: filepath.Join(dataDir, "generated"),
		},
		Session: SessionConfig{
			DBPath:      filepath.Join(dataDir, "excelly.db"),
			TimeoutSecs: 3600,
		},
	}
}

// Load loads the configuration from the given path.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to parse config", apperrors.CategorySystem)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Routing.RequestTimeoutSecs <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "routing.request_timeout_secs must be positive", apperrors.CategorySystem)
	}
	if c.Conversation.MaxClarifications <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "conversation.max_clarifications must be positive", apperrors.CategorySystem)
	}
	if c.Conversation.HistoryBudget < 2 {
		return apperrors.New(apperrors.CodeConfigInvalid, "conversation.history_budget must be at least 2", apperrors.CategorySystem)
	}
	if c.Upload.MaxFileBytes <= 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "upload.max_file_bytes must be positive", apperrors.CategorySystem)
	}
	return nil
}

// RequestTimeout returns the bounded provider call timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Routing.RequestTimeoutSecs) * time.Second
}

// SessionTimeout returns the idle session expiry duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutSecs) * time.Second
}
