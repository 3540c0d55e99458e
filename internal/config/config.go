package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultModel  = "gemini-2.5-flash"
	ImageGenModel = "gemini-2.5-flash-image-preview"

	// FileContextLimit bounds how many staged documents join a single
	// request; excess items stay stored but unused.
	FileContextLimit = 10
)

// AvailableModels is the fixed model allow-list, in menu order.
var AvailableModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.5-flash-lite",
	ImageGenModel,
}

// ModelAliases maps model ids to their display names.
var ModelAliases = map[string]string{
	"gemini-2.5-flash":      "2.5 Flash 🚀",
	"gemini-2.5-pro":        "2.5 Pro💡",
	"gemini-2.5-flash-lite": "2.5 Flash Lite🐣",
	ImageGenModel:           "2.5 Flash IMG🎨 (генерация и редактирование изображений)",
}

// ProModels require an unlocked session.
var ProModels = map[string]bool{
	"gemini-2.5-pro": true,
	ImageGenModel:    true,
}

// SupportedMIMETypes is the document intake allow-list.
var SupportedMIMETypes = map[string]bool{
	"application/pdf":          true,
	"application/x-javascript": true,
	"text/javascript":          true,
	"application/x-python":     true,
	"text/x-python":            true,
	"text/plain":               true,
	"text/html":                true,
	"text/css":                 true,
	"text/markdown":            true,
	"text/csv":                 true,
	"text/xml":                 true,
	"application/xml":          true,
	"text/rtf":                 true,
	"application/rtf":          true,
}

type Config struct {
	TelegramToken string `toml:"telegram_token"`
	GeminiAPIKey  string `toml:"gemini_api_key"`
	ProCode       string `toml:"pro_code"`

	// StorageBackend selects "memory", "sqlite" or "firestore".
	StorageBackend string `toml:"storage_backend"`
	SQLitePath     string `toml:"sqlite_path"`
	GCPProjectID   string `toml:"gcp_project"`

	MaxMessageLength int `toml:"max_message_length"`
	MaxFileSizeMB    int `toml:"max_file_size_mb"`

	// PollTimeoutSec is the Telegram long-poll timeout.
	PollTimeoutSec int `toml:"poll_timeout_sec"`
	// RequestTimeout bounds one generative backend call.
	RequestTimeout    time.Duration `toml:"-"`
	RequestTimeoutSec int           `toml:"request_timeout_sec"`

	UseMockLLM bool `toml:"use_mock_llm"`
}

func defaults() *Config {
	return &Config{
		StorageBackend:    "sqlite",
		SQLitePath:        "gembot.db",
		MaxMessageLength:  4000,
		MaxFileSizeMB:     20,
		PollTimeoutSec:    30,
		RequestTimeoutSec: 120,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

// Load builds the config from the optional TOML file named by
// GEMBOT_CONFIG (default "gembot.toml"), with environment variables
// taking precedence over file values.
func Load() (*Config, error) {
	cfg := defaults()

	path := getEnv("GEMBOT_CONFIG", "gembot.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", cfg.TelegramToken)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.ProCode = getEnv("PRO_CODE", cfg.ProCode)
	cfg.StorageBackend = getEnv("GEMBOT_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.SQLitePath = getEnv("GEMBOT_SQLITE_PATH", cfg.SQLitePath)
	cfg.GCPProjectID = getEnv("GEMBOT_GCP_PROJECT", cfg.GCPProjectID)
	cfg.MaxMessageLength = getIntEnv("GEMBOT_MAX_MESSAGE_LENGTH", cfg.MaxMessageLength)
	cfg.MaxFileSizeMB = getIntEnv("GEMBOT_MAX_FILE_SIZE_MB", cfg.MaxFileSizeMB)
	cfg.PollTimeoutSec = getIntEnv("GEMBOT_POLL_TIMEOUT_SEC", cfg.PollTimeoutSec)
	cfg.RequestTimeoutSec = getIntEnv("GEMBOT_REQUEST_TIMEOUT_SEC", cfg.RequestTimeoutSec)
	cfg.UseMockLLM = getBoolEnv("GEMBOT_USE_MOCK_LLM", cfg.UseMockLLM)

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the static model tables and the loaded values.
func (c *Config) Validate() error {
	if !IsKnownModel(DefaultModel) {
		return fmt.Errorf("default model %q is not in the allow-list", DefaultModel)
	}
	if !IsKnownModel(ImageGenModel) {
		return fmt.Errorf("image model %q is not in the allow-list", ImageGenModel)
	}
	for _, m := range AvailableModels {
		if _, ok := ModelAliases[m]; !ok {
			return fmt.Errorf("model %q has no display alias", m)
		}
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN must be set")
	}
	if c.GeminiAPIKey == "" && !c.UseMockLLM {
		return fmt.Errorf("GEMINI_API_KEY must be set unless the mock LLM is enabled")
	}
	switch c.StorageBackend {
	case "memory", "sqlite":
	case "firestore":
		if c.GCPProjectID == "" {
			return fmt.Errorf("GEMBOT_GCP_PROJECT is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("max message length must be positive")
	}
	return nil
}

// IsKnownModel reports whether the model id is in the allow-list.
func IsKnownModel(model string) bool {
	for _, m := range AvailableModels {
		if m == model {
			return true
		}
	}
	return false
}

// MaxFileSizeBytes is the per-file upload ceiling.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}
