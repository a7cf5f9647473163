package processor_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/askdocs/internal/models"
	"github.com/xhad/askdocs/pkg/processor"
)

func corpus() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("## Session ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString("\n\nThe paper presents a type system for gradual verification of programs. ")
		b.WriteString("Évaluation des résultats — ünïcödé text keeps rune boundaries intact.\n")
		b.WriteString("- item one\n- item two\n\n")
	}
	return b.String()
}

// reassemble drops the overlap every chunk shares with its predecessor.
func reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func TestSplitTextProperties(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"defaults", 1000, 20},
		{"small windows", 120, 15},
		{"tiny windows", 30, 5},
	}

	text := corpus()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := processor.NewWithConfig(processor.ProcessorConfig{
				ChunkSize:    tt.size,
				ChunkOverlap: tt.overlap,
			})

			chunks, err := p.SplitText(text)
			require.NoError(t, err)
			require.Greater(t, len(chunks), 1)

			for i, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), tt.size, "chunk %d too long", i)
				assert.True(t, utf8.ValidString(c))
				if i > 0 {
					prev := []rune(chunks[i-1])
					shared := string(prev[len(prev)-tt.overlap:])
					assert.True(t, strings.HasPrefix(c, shared), "chunk %d does not overlap its predecessor", i)
				}
			}

			assert.Equal(t, text, reassemble(chunks, tt.overlap))
		})
	}
}

func TestSplitTextPrefersBreaks(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 40, ChunkOverlap: 5})

	chunks, err := p.SplitText("first paragraph here\n\nsecond paragraph is a little longer than that")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "first paragraph here\n\n", chunks[0])
}

func TestSplitTextNoBreaks(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10, ChunkOverlap: 2})

	chunks, err := p.SplitText(strings.Repeat("a", 25))
	require.NoError(t, err)
	assert.Equal(t, []string{
		strings.Repeat("a", 10),
		strings.Repeat("a", 10),
		strings.Repeat("a", 9),
	}, chunks)
}

func TestSplitTextEmpty(t *testing.T) {
	for _, splitter := range []string{processor.SplitterOverlap, processor.SplitterMarkdown} {
		p := processor.NewWithConfig(processor.ProcessorConfig{Splitter: splitter})

		chunks, err := p.SplitText("")
		require.NoError(t, err)
		assert.Empty(t, chunks)

		chunks, err = p.SplitText(" \n\n ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestSplitTextShortInput(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	chunks, err := p.SplitText("short text")
	require.NoError(t, err)
	assert.Equal(t, []string{"short text"}, chunks)
}

func TestMarkdownSplitter(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    200,
		ChunkOverlap: 20,
		Splitter:     processor.SplitterMarkdown,
	})

	chunks, err := p.SplitText(corpus())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
}

func TestProcessJoinsDocuments(t *testing.T) {
	docs := []models.Document{
		{URL: "https://example.com/1", Content: "first page"},
		{URL: "https://example.com/2", Content: "second page"},
	}
	assert.Equal(t, "first page\n\nsecond page", processor.Join(docs))

	p := processor.NewWithConfig(processor.ProcessorConfig{})
	chunks, err := p.Process(docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"first page\n\nsecond page"}, chunks)

	chunks, err = p.Process(nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
