package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ChatRequest is the chat route payload. SessionID is optional; a
// missing one starts a fresh session.
type ChatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// ChatResponse carries the answer and its provenance.
type ChatResponse struct {
	Answer     string `json:"answer"`
	Confidence string `json:"confidence"`
	Stage      string `json:"stage"`
	RequestID  string `json:"request_id"`
	SessionID  string `json:"session_id"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer := s.answers.Ask(c.Request().Context(), req.Query, sessionID)

	return c.JSON(http.StatusOK, ChatResponse{
		Answer:     answer.Text,
		Confidence: answer.Confidence,
		Stage:      answer.Stage,
		RequestID:  answer.RequestID,
		SessionID:  sessionID,
	})
}
