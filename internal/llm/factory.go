package llm

import (
	"context"
	"strings"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
)

// Options selects and configures a provider.
type Options struct {
	Provider  string // "ollama", "openai" or empty
	Model     string
	BaseURL   string
	APIKeyEnv string
	RPM       int
}

// CreateProvider builds the configured provider. It never returns nil: an
// unknown or unreachable backend yields Unconfigured.
func CreateProvider(ctx context.Context, opts Options) Provider {
	var p Provider
	switch strings.ToLower(opts.Provider) {
	case "ollama":
		o := NewOllamaProvider(opts.Model, opts.BaseURL)
		if !o.IsConfigured() {
			logging.Log.Warnf("Ollama at %s not available, analysis will use fallback narratives", opts.BaseURL)
		}
		p = o
	case "openai":
		o, err := NewOpenAIProvider(ctx, opts.Model, opts.BaseURL, opts.APIKeyEnv)
		if err != nil {
			logging.Log.WithError(err).Warn("OpenAI provider unavailable")
			return Unconfigured{}
		}
		if !o.IsConfigured() {
			logging.Log.Warnf("%s not set, analysis will use fallback narratives", opts.APIKeyEnv)
			return Unconfigured{}
		}
		p = o
	case "":
		logging.Log.Info("No LLM provider configured, analysis will use fallback narratives")
		return Unconfigured{}
	default:
		logging.Log.Warnf("Unknown LLM provider %q", opts.Provider)
		return Unconfigured{}
	}
	logging.Log.Infof("Using %s with model: %s", opts.Provider, opts.Model)
	return NewLimited(p, opts.RPM)
}
