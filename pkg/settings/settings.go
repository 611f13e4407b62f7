package settings

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is a fatal startup condition; the interaction driver
// prints guidance and exits non-zero.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY not found in environment variables or .env file")

const (
	DefaultModel        = "deepseek/deepseek-chat"
	DefaultSystemPrompt = "You are a friendly and knowledgeable IT expert."
	defaultTimeout      = 60 * time.Second
)

// Settings is the one configuration value the rest of the program receives
// explicitly; there is no process-wide configuration singleton.
type Settings struct {
	APIKey         string
	Model          string
	SystemPrompt   string
	BaseURL        string
	ConnectTimeout time.Duration
	LogLevel       string

	// AllowLocalEndpoints permits http/loopback base URLs, for self-hosted
	// gateways.
	AllowLocalEndpoints bool
}

// Load reads settings from the process environment, falling back to a
// .env file in the working directory. Environment variables take
// precedence over the file.
func Load() (*Settings, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, errors.Wrap(err, "failed to parse .env file")
		}
		// no .env file; environment only
	}
	v.AutomaticEnv()

	firstNonEmpty := func(keys ...string) string {
		for _, key := range keys {
			if s := v.GetString(key); s != "" {
				return s
			}
		}
		return ""
	}

	ret := &Settings{
		APIKey:              v.GetString("OPENROUTER_API_KEY"),
		Model:               firstNonEmpty("GRILLO_MODEL", "OPENROUTER_MODEL"),
		SystemPrompt:        v.GetString("GRILLO_SYSTEM_PROMPT"),
		BaseURL:             v.GetString("GRILLO_BASE_URL"),
		LogLevel:            v.GetString("GRILLO_LOG_LEVEL"),
		ConnectTimeout:      defaultTimeout,
		AllowLocalEndpoints: v.GetBool("GRILLO_ALLOW_LOCAL_ENDPOINTS"),
	}

	if ret.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if ret.Model == "" {
		ret.Model = DefaultModel
	}
	if ret.SystemPrompt == "" {
		ret.SystemPrompt = DefaultSystemPrompt
	}
	if timeout := v.GetString("GRILLO_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid GRILLO_TIMEOUT %q", timeout)
		}
		ret.ConnectTimeout = d
	}

	return ret, nil
}
