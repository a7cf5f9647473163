package llm

import (
	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms/openai"
)

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string // empty means api.openai.com
	ChatModel      string
	EmbeddingModel string
}

// NewOpenAI creates the one OpenAI client both the chat engine and the
// embedder share for the life of the process.
func NewOpenAI(config OpenAIConfig) (*openai.LLM, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
	}
	if config.ChatModel != "" {
		opts = append(opts, openai.WithModel(config.ChatModel))
	}
	if config.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(config.EmbeddingModel))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize OpenAI client")
	}
	return client, nil
}
