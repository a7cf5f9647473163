package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xhad/askdocs/internal/types"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr           string
	RequestTimeout time.Duration
	Streaming      bool // stream answers token by token over /ws
}

// Server exposes the question answering service over HTTP.
type Server struct {
	config   Config
	answerer types.Answerer
	log      logrus.FieldLogger
	router   *gin.Engine
}

func New(config Config, answerer types.Answerer, log logrus.FieldLogger) *Server {
	if config.Addr == "" {
		config.Addr = ":3000"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		config:   config,
		answerer: answerer,
		log:      log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", s.handleHealth)
	r.GET("/ask", requestTimeout(s.config.RequestTimeout), s.handleAsk)
	r.GET("/ws", s.handleWebSocket)

	return r
}

// Router returns the HTTP handler, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}
