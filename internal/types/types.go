package types

import (
	"context"

	"github.com/xhad/askdocs/internal/models"
)

// Core interfaces
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	Extract(html string) (string, error)
}

type Chatter interface {
	Chat(ctx context.Context, question string, contexts []string) (string, error)
	ChatStream(ctx context.Context, question string, contexts []string, onChunk func(chunk string) error) (string, error)
}

type Answerer interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
	AskStream(ctx context.Context, question string, onChunk func(chunk string) error) (*models.Answer, error)
}
