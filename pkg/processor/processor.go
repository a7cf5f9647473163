package processor

import (
	"strings"

	"github.com/samber/lo"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/xhad/askdocs/internal/models"
)

// DocumentSeparator joins scraped documents into one corpus.
const DocumentSeparator = "\n\n"

const (
	SplitterOverlap  = "overlap"
	SplitterMarkdown = "markdown"
)

type ProcessorConfig struct {
	ChunkSize    int    // maximum chunk length in characters
	ChunkOverlap int    // characters shared by adjacent chunks
	Splitter     string // "overlap" or "markdown"
}

// Processor turns a text corpus into chunks sized for embedding.
type Processor struct {
	config   ProcessorConfig
	markdown textsplitter.TextSplitter
}

var _ textsplitter.TextSplitter = Processor{}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 20
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 2
	}
	if config.Splitter == "" {
		config.Splitter = SplitterOverlap
	}

	p := Processor{config: config}
	if config.Splitter == SplitterMarkdown {
		p.markdown = textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		)
	}
	return p
}

// Join concatenates the documents' content with a blank line between them.
func Join(docs []models.Document) string {
	return strings.Join(lo.Map(docs, func(d models.Document, _ int) string {
		return d.Content
	}), DocumentSeparator)
}

// Process joins the documents and splits the resulting corpus.
func (p Processor) Process(docs []models.Document) ([]string, error) {
	return p.SplitText(Join(docs))
}

// SplitText splits text into chunks. Empty input yields no chunks.
func (p Processor) SplitText(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	if p.markdown != nil {
		return p.markdown.SplitText(text)
	}
	return p.splitIntoChunks(text), nil
}

// splitIntoChunks cuts windows of at most ChunkSize runes. Each cut lands on
// the last paragraph, line or word break in the window when there is one,
// and the next chunk starts ChunkOverlap runes before the cut, so dropping
// the first ChunkOverlap runes of every chunk but the first gives back the
// input exactly.
func (p Processor) splitIntoChunks(text string) []string {
	runes := []rune(text)
	size, overlap := p.config.ChunkSize, p.config.ChunkOverlap

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		cut := breakPoint(runes, start+overlap+1, end)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - overlap
	}
}

// breakPoint returns the index just after the best separator in runes[lo:hi],
// or hi when the window has none.
func breakPoint(runes []rune, lo, hi int) int {
	for _, sep := range [][]rune{[]rune("\n\n"), []rune("\n"), []rune(" ")} {
		for i := hi - len(sep); i >= lo; i-- {
			if hasPrefixAt(runes, i, sep) {
				return i + len(sep)
			}
		}
	}
	return hi
}

func hasPrefixAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
