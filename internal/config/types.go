// Package config provides configuration types for Excelly.
package config

// Config represents the main Excelly configuration.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Providers    ProvidersConfig    `toml:"providers"`
	Routing      RoutingConfig      `toml:"routing"`
	Conversation ConversationConfig `toml:"conversation"`
	Upload       UploadConfig       `toml:"upload"`
	Session      SessionConfig      `toml:"session"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// ProvidersConfig configures the completion providers.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `toml:"openai"`
	Gemini GeminiConfig `toml:"gemini"`
}

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// GeminiConfig configures the Gemini provider family.
type GeminiConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	ProModel   string `toml:"pro_model"`   // highest-capability tier
	MidModel   string `toml:"mid_model"`   // context-optimized mid tier
	FlashModel string `toml:"flash_model"` // fastest tier, image-capable
}

// RoutingConfig configures the model router.
type RoutingConfig struct {
	// RequestTimeoutSecs bounds a single provider call.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`

	// HybridFileBytes is the uploaded-file size above which complex
	// requests use the two-stage summarize-then-generate strategy.
	HybridFileBytes int `toml:"hybrid_file_bytes"`

	MaxTokens int `toml:"max_tokens"`
}

// ConversationConfig configures the clarification state machine.
type ConversationConfig struct {
	MaxClarifications int `toml:"max_clarifications"`
	HistoryBudget     int `toml:"history_budget"`
	MinQuestionRunes  int `toml:"min_question_runes"`
}

// UploadConfig contains file upload limits.
type UploadConfig struct {
	MaxFileBytes int64    `toml:"max_file_bytes"`
	AllowedTypes []string `toml:"allowed_types"`

	// GeneratedDir stores workbooks produced for download.
	GeneratedDir string `toml:"generated_dir"`
}

// SessionConfig contains session store settings.
type SessionConfig struct {
	DBPath      string `toml:"db_path"`
	TimeoutSecs int    `toml:"timeout_secs"`
}
