package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/xhad/askdocs/pkg/qa"
)

type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAsk(c *gin.Context) {
	question := c.Query("question")

	answer, err := s.answerer.Ask(c.Request.Context(), question)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// writeError answers 400 with the reason for rejected questions and an
// opaque 500 for everything else.
func (s *Server) writeError(c *gin.Context, err error) {
	var invalid *qa.InvalidInputError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, errorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    invalid.Message,
			Error:      http.StatusText(http.StatusBadRequest),
		})
		return
	}

	s.log.WithError(err).WithField("path", c.Request.URL.Path).Error("Failed to answer question")
	c.JSON(http.StatusInternalServerError, errorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    http.StatusText(http.StatusInternalServerError),
	})
}
