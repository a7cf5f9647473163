package qa

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/xhad/askdocs/internal/models"
	"github.com/xhad/askdocs/internal/types"
)

// MaxQuestionLength is the longest question accepted, in characters.
const MaxQuestionLength = 200

// InvalidInputError reports a question rejected before any downstream call.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// ValidateQuestion rejects empty questions and ones over MaxQuestionLength.
func ValidateQuestion(question string) error {
	if question == "" {
		return &InvalidInputError{Message: "Missing text"}
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return &InvalidInputError{Message: "Text too long"}
	}
	return nil
}

type ServiceConfig struct {
	TopK int // matches retrieved per question
}

// Service answers questions from the vector store with a chat model.
type Service struct {
	config ServiceConfig
	store  vectorstores.VectorStore
	chat   types.Chatter
	log    logrus.FieldLogger
}

var _ types.Answerer = (*Service)(nil)

func NewWithConfig(config ServiceConfig, store vectorstores.VectorStore, chat types.Chatter, log logrus.FieldLogger) *Service {
	if config.TopK <= 0 {
		config.TopK = 5
	}

	return &Service{
		config: config,
		store:  store,
		chat:   chat,
		log:    log,
	}
}

// Ask validates the question, retrieves the closest chunks and asks the chat
// model. The answer's source is the best matching chunk.
func (s *Service) Ask(ctx context.Context, question string) (*models.Answer, error) {
	return s.answer(ctx, question, func(contexts []string) (string, error) {
		return s.chat.Chat(ctx, question, contexts)
	})
}

// AskStream is Ask with the answer text delivered piecewise to onChunk.
func (s *Service) AskStream(ctx context.Context, question string, onChunk func(chunk string) error) (*models.Answer, error) {
	return s.answer(ctx, question, func(contexts []string) (string, error) {
		return s.chat.ChatStream(ctx, question, contexts, onChunk)
	})
}

func (s *Service) answer(ctx context.Context, question string, generate func(contexts []string) (string, error)) (*models.Answer, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}
	start := time.Now()

	docs, err := s.store.SimilaritySearch(ctx, question, s.config.TopK)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve context")
	}

	contexts := lo.Map(docs, func(d schema.Document, _ int) string {
		return d.PageContent
	})

	text, err := generate(contexts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate answer")
	}

	source := models.NoSourceDocument
	if len(docs) > 0 {
		source = docs[0].PageContent
	}

	s.log.WithFields(logrus.Fields{
		"matches":  len(docs),
		"duration": time.Since(start),
	}).Debug("Answered question")

	return &models.Answer{Text: text, Source: source}, nil
}
