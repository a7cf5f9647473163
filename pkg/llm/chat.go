package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
)

const defaultContextTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string // receives the joined contexts, then the question
}

// ChatEngine answers questions from retrieved context with a chat model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, errors.New("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, errors.New("max tokens cannot be negative")
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = defaultContextTemplate
	}

	return &ChatEngine{
		config: config,
		llm:    model,
	}, nil
}

// Chat generates an answer to question grounded in contexts.
func (ce *ChatEngine) Chat(ctx context.Context, question string, contexts []string) (string, error) {
	return ce.generate(ctx, question, contexts)
}

// ChatStream is Chat, but hands each generated piece to onChunk as it arrives.
// The full answer is still returned at the end.
func (ce *ChatEngine) ChatStream(ctx context.Context, question string, contexts []string, onChunk func(chunk string) error) (string, error) {
	return ce.generate(ctx, question, contexts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		return onChunk(string(chunk))
	}))
}

func (ce *ChatEngine) generate(ctx context.Context, question string, contexts []string, extra ...llms.CallOption) (string, error) {
	content := ce.messages(question, contexts)

	options := []llms.CallOption{
		llms.WithModel(ce.config.Model),
		llms.WithTemperature(ce.config.Temperature),
	}
	if ce.config.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(ce.config.MaxTokens))
	}
	options = append(options, extra...)

	response, err := ce.llm.GenerateContent(ctx, content, options...)
	if err != nil {
		return "", errors.Wrap(err, "chat error")
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", errors.New("chat error: empty response from model")
	}

	return response.Choices[0].Content, nil
}

func (ce *ChatEngine) messages(question string, contexts []string) []llms.MessageContent {
	var content []llms.MessageContent
	if ce.config.SystemTemplate != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate))
	}

	prompt := fmt.Sprintf(ce.config.ContextTemplate, strings.Join(contexts, "\n\n"), question)
	return append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt))
}
