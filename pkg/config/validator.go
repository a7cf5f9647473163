package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks everything both the ingest and serve commands rely on.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	// Validate OpenAI config
	if c.OpenAI.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "openai.api_key",
			Message: "OPENAI_API_KEY is required",
		})
	}

	if c.OpenAI.BaseURL != "" {
		if u, err := url.Parse(c.OpenAI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "openai.base_url",
				Message: "invalid OpenAI base URL",
			})
		}
	}

	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "openai.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.OpenAI.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "openai.max_tokens",
			Message: "max_tokens cannot be negative",
		})
	}

	if c.OpenAI.EmbedConcurrency < 1 {
		errs = append(errs, ValidationError{
			Field:   "openai.embed_concurrency",
			Message: "embed_concurrency must be positive",
		})
	}

	if c.OpenAI.EmbedBatchSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "openai.embed_batch_size",
			Message: "embed_batch_size must be positive",
		})
	}

	// Validate vector store config
	switch c.VectorStore.Backend {
	case BackendPinecone:
		errs = append(errs, c.validatePinecone()...)
	case BackendPgvector:
		errs = append(errs, c.validateDatabase()...)
	default:
		errs = append(errs, ValidationError{
			Field:   "vector_store.backend",
			Message: fmt.Sprintf("unknown backend %q", c.VectorStore.Backend),
		})
	}

	if c.VectorStore.TopK < 1 {
		errs = append(errs, ValidationError{
			Field:   "vector_store.top_k",
			Message: "top_k must be positive",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errs = append(errs, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if !lo.Contains([]string{SplitterOverlap, SplitterMarkdown}, c.Processor.Splitter) {
		errs = append(errs, ValidationError{
			Field:   "processor.splitter",
			Message: fmt.Sprintf("unknown splitter %q", c.Processor.Splitter),
		})
	}

	return errs
}

func (c *Config) validatePinecone() []ValidationError {
	var errs []ValidationError

	if c.Pinecone.APIKey == "" {
		errs = append(errs, ValidationError{
			Field:   "pinecone.api_key",
			Message: "PINECONE_API_KEY is required",
		})
	}

	if c.Pinecone.Host == "" {
		if c.Pinecone.Index == "" {
			errs = append(errs, ValidationError{
				Field:   "pinecone.index",
				Message: "PINECONE_INDEX is required",
			})
		}
		if c.Pinecone.Environment == "" && c.Pinecone.ControllerURL == "" {
			errs = append(errs, ValidationError{
				Field:   "pinecone.environment",
				Message: "PINECONE_ENVIRONMENT is required",
			})
		}
	}

	return errs
}

func (c *Config) validateDatabase() []ValidationError {
	var errs []ValidationError

	if c.Database.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "database.url",
			Message: "DATABASE_URL is required for the pgvector backend",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errs = append(errs, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	return errs
}

// ValidateIngest adds the checks only the ingestion run needs.
func (c *Config) ValidateIngest() []ValidationError {
	errs := c.Validate()

	if len(c.Scraper.URLs) == 0 && c.Scraper.URLsFile == "" {
		errs = append(errs, ValidationError{
			Field:   "scraper.urls",
			Message: "at least one source URL or urls_file is required",
		})
	}

	for _, u := range c.Scraper.URLs {
		if parsed, err := url.Parse(u); err != nil || !parsed.IsAbs() {
			errs = append(errs, ValidationError{
				Field:   "scraper.urls",
				Message: fmt.Sprintf("not an absolute URL: %s", u),
			})
		}
	}

	if !lo.Contains([]string{ModeBrowser, ModeHTTP}, c.Scraper.Mode) {
		errs = append(errs, ValidationError{
			Field:   "scraper.mode",
			Message: fmt.Sprintf("unknown mode %q", c.Scraper.Mode),
		})
	}

	if c.Scraper.Concurrency < 1 {
		errs = append(errs, ValidationError{
			Field:   "scraper.concurrency",
			Message: "concurrency must be positive",
		})
	}

	if c.Scraper.RateLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errs
}

// Check folds validation errors into a single error, nil when there are none.
func Check(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := lo.Map(errs, func(e ValidationError, _ int) string { return e.Error() })
	return errors.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
