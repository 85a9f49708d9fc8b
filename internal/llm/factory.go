package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/zelonewolf/wikidata-qa/internal/model"
)

// NewProvider builds the configured provider. An empty provider name means
// the summarizer is disabled and both results are nil.
func NewProvider(config model.LLMConfig) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}
