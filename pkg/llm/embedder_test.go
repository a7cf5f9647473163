package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/askdocs/pkg/llm"
)

// fakeClient embeds each text as a one-element vector holding its number,
// so "7" becomes [7].
type fakeClient struct {
	delay  time.Duration
	failOn string

	mu       sync.Mutex
	batches  [][]string
	inFlight int32
	peak     int32
}

func (c *fakeClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if n <= p || atomic.CompareAndSwapInt32(&c.peak, p, n) {
			break
		}
	}

	c.mu.Lock()
	c.batches = append(c.batches, texts)
	c.mu.Unlock()

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if t == c.failOn {
			return nil, errors.New("provider rejected input")
		}
		v, err := strconv.Atoi(t)
		if err != nil {
			v = -1
		}
		out = append(out, []float32{float32(v)})
	}
	return out, nil
}

func numbers(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

func TestEmbedDocumentsKeepsOrder(t *testing.T) {
	client := &fakeClient{delay: time.Millisecond}
	emb := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{BatchSize: 3, Concurrency: 4})

	vectors, err := emb.EmbedDocuments(context.Background(), numbers(20))
	require.NoError(t, err)
	require.Len(t, vectors, 20)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i)}, v)
	}
	assert.Len(t, client.batches, 7)
}

func TestEmbedDocumentsBoundsConcurrency(t *testing.T) {
	client := &fakeClient{delay: 10 * time.Millisecond}
	emb := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{BatchSize: 1, Concurrency: 5})

	_, err := emb.EmbedDocuments(context.Background(), numbers(30))
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&client.peak), int32(5))
	assert.Greater(t, atomic.LoadInt32(&client.peak), int32(1))
}

func TestEmbedDocumentsFailsFast(t *testing.T) {
	client := &fakeClient{failOn: "4"}
	emb := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{BatchSize: 2, Concurrency: 2})

	vectors, err := emb.EmbedDocuments(context.Background(), numbers(10))
	assert.ErrorContains(t, err, "provider rejected input")
	assert.Nil(t, vectors)
}

func TestEmbedDocumentsEmpty(t *testing.T) {
	client := &fakeClient{}
	emb := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{})

	vectors, err := emb.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, client.batches)
}

func TestEmbedDocumentsStripsNewlines(t *testing.T) {
	client := &fakeClient{}
	emb := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{})

	_, err := emb.EmbedDocuments(context.Background(), []string{"line one\nline two"})
	require.NoError(t, err)
	require.Len(t, client.batches, 1)
	assert.Equal(t, []string{"line one line two"}, client.batches[0])
}

func TestEmbedQuery(t *testing.T) {
	emb := llm.NewEmbedderWithConfig(&fakeClient{}, llm.EmbedderConfig{Model: "text-embedding-ada-002"})

	v, err := emb.EmbedQuery(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, []float32{42}, v)
	assert.Equal(t, "text-embedding-ada-002", emb.Model())
}

func TestNewOpenAI(t *testing.T) {
	_, err := llm.NewOpenAI(llm.OpenAIConfig{})
	assert.Error(t, err)

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			assert.Equal(t, "text-embedding-ada-002", body["model"])
			_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-ada-002",
				"data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],
				"usage":{"prompt_tokens":1,"total_tokens":1}}`))
		case "/chat/completions":
			assert.Equal(t, "gpt-3.5-turbo", body["model"])
			_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
				"choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:         "sk-test",
		BaseURL:        srv.URL,
		ChatModel:      "gpt-3.5-turbo",
		EmbeddingModel: "text-embedding-ada-002",
	})
	require.NoError(t, err)

	emb := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{Model: "text-embedding-ada-002"})
	v, err := emb.EmbedQuery(context.Background(), "hi")
	require.NoError(t, err)
	assert.Len(t, v, 3)

	engine, err := llm.NewWithConfig(llm.ChatConfig{Model: "gpt-3.5-turbo", Temperature: 0.9}, client)
	require.NoError(t, err)
	answer, err := engine.Chat(context.Background(), "hi", []string{"ctx"})
	require.NoError(t, err)
	assert.Equal(t, "hello", answer)

	assert.ElementsMatch(t, []string{"/embeddings", "/chat/completions"}, paths)
}

var _ llms.Model = (*fakeModel)(nil)
