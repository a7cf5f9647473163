package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/askdocs/internal/models"
	"github.com/xhad/askdocs/pkg/logger"
	"github.com/xhad/askdocs/pkg/qa"
	"github.com/xhad/askdocs/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAnswerer validates like the real service and counts the questions that
// get past validation.
type fakeAnswerer struct {
	answer     *models.Answer
	err        error
	downstream atomic.Int32
	deadline   bool
}

func (f *fakeAnswerer) Ask(ctx context.Context, question string) (*models.Answer, error) {
	return f.AskStream(ctx, question, nil)
}

func (f *fakeAnswerer) AskStream(ctx context.Context, question string, onChunk func(string) error) (*models.Answer, error) {
	if err := qa.ValidateQuestion(question); err != nil {
		return nil, err
	}
	f.downstream.Add(1)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	if onChunk != nil {
		for _, w := range strings.SplitAfter(f.answer.Text, " ") {
			if err := onChunk(w); err != nil {
				return nil, err
			}
		}
	}
	return f.answer, nil
}

func newServer(answerer *fakeAnswerer, streaming bool) *server.Server {
	return server.New(server.Config{Streaming: streaming, RequestTimeout: time.Second}, answerer, logger.Discard())
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	h.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth(t *testing.T) {
	w, body := get(t, newServer(&fakeAnswerer{}, false).Router(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAsk(t *testing.T) {
	answerer := &fakeAnswerer{answer: &models.Answer{Text: "An answer.", Source: "The top chunk."}}
	h := newServer(answerer, false).Router()

	w, body := get(t, h, "/ask?question="+url.QueryEscape("What is X?"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"text": "An answer.", "source": "The top chunk."}, body)
	assert.True(t, answerer.deadline)
}

func TestAskRejectsInvalidQuestions(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{"missing", "/ask", "Missing text"},
		{"empty", "/ask?question=", "Missing text"},
		{"too long", "/ask?question=" + strings.Repeat("a", 201), "Text too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answerer := &fakeAnswerer{answer: &models.Answer{}}
			w, body := get(t, newServer(answerer, false).Router(), tt.target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, float64(400), body["statusCode"])
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, "Bad Request", body["error"])
			assert.Zero(t, answerer.downstream.Load())
		})
	}
}

func TestAskHidesDownstreamErrors(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("pinecone: 503 upstream connect error")}
	w, body := get(t, newServer(answerer, false).Router(), "/ask?question=hello")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"statusCode": float64(500), "message": "Internal Server Error"}, body)
	assert.NotContains(t, w.Body.String(), "pinecone")
}

func dial(t *testing.T, s *server.Server) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketStreams(t *testing.T) {
	answerer := &fakeAnswerer{answer: &models.Answer{Text: "streamed reply", Source: "chunk"}}
	conn := dial(t, newServer(answerer, true))

	require.NoError(t, conn.WriteJSON(server.Message{Type: server.MessageAsk, Content: "q"}))

	var got []server.Message
	for {
		var msg server.Message
		require.NoError(t, conn.ReadJSON(&msg))
		got = append(got, msg)
		if msg.Type != server.MessageStream {
			break
		}
	}

	require.Len(t, got, 3)
	assert.Equal(t, "streamed ", got[0].Content)
	assert.Equal(t, "reply", got[1].Content)
	assert.Equal(t, server.MessageResponse, got[2].Type)
	assert.Equal(t, "streamed reply", got[2].Content)
	assert.Equal(t, map[string]any{"text": "streamed reply", "source": "chunk"}, got[2].Data)
}

func TestWebSocketErrors(t *testing.T) {
	answerer := &fakeAnswerer{answer: &models.Answer{Text: "fine"}}
	conn := dial(t, newServer(answerer, false))

	var msg server.Message

	require.NoError(t, conn.WriteJSON(server.Message{Type: server.MessageAsk}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, server.MessageError, msg.Type)
	assert.Equal(t, "Missing text", msg.Content)

	require.NoError(t, conn.WriteJSON(server.Message{Type: "crawl", Content: "https://example.com"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, server.MessageError, msg.Type)

	require.NoError(t, conn.WriteJSON(server.Message{Type: server.MessageAsk, Content: "q"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, server.MessageResponse, msg.Type)
	assert.Equal(t, "fine", msg.Content)
	assert.Equal(t, int32(1), answerer.downstream.Load())
}

func TestRunShutsDown(t *testing.T) {
	s := server.New(server.Config{Addr: "127.0.0.1:0"}, &fakeAnswerer{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
