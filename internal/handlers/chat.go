package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aula-ai-tutor-go/internal/apierr"
	"github.com/aula-ai-tutor-go/internal/i18n"
	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/aula-ai-tutor-go/internal/services/ai"
	"github.com/aula-ai-tutor-go/internal/tutor"
	"github.com/sirupsen/logrus"
)

// errorResponse is the error body at the HTTP boundary. WaitTime is in
// milliseconds, present only on 429s.
type errorResponse struct {
	Status      int    `json:"status"`
	Message     string `json:"message"`
	WaitTime    int64  `json:"waitTime,omitempty"`
	MessageType string `json:"messageType"`
	Error       string `json:"error,omitempty"`
}

// ChatHandler serves the tutoring chat endpoint.
type ChatHandler struct {
	auth       *middleware.Authenticator
	router     *tutor.Router
	loc        *i18n.Localizer
	logger     *logrus.Logger
	production bool
}

// NewChatHandler creates the chat endpoint handler.
func NewChatHandler(auth *middleware.Authenticator, router *tutor.Router, loc *i18n.Localizer, logger *logrus.Logger, production bool) *ChatHandler {
	return &ChatHandler{
		auth:       auth,
		router:     router,
		loc:        loc,
		logger:     logger,
		production: production,
	}
}

// Handle processes POST /api/students/chat.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		h.writeError(w, apierr.Unauthorized(h.loc.Default(i18n.MsgUnauthorized, nil)), nil)
		return
	}

	claims, err := h.auth.Verify(authHeader)
	if err != nil {
		h.writeError(w, apierr.Unauthorized(h.loc.Default(i18n.MsgInvalidToken, nil)), nil)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apierr.New(http.StatusBadRequest, "invalid request body"), nil)
		return
	}

	resp, err := h.router.Handle(r.Context(), claims, &req)
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			h.writeError(w, apiErr, nil)
			return
		}

		if errors.Is(err, ai.ErrNoProvider) {
			h.writeError(w, apierr.Unavailable(h.loc.Default(i18n.MsgProviderUnavailable, nil)), nil)
			return
		}

		h.logger.WithError(err).WithField("user_id", claims.UserID).Error("Chat request failed")
		h.writeError(w, apierr.New(http.StatusInternalServerError, h.loc.Default(i18n.MsgInternalError, nil)), err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) writeError(w http.ResponseWriter, apiErr *apierr.Error, cause error) {
	body := errorResponse{
		Status:      apiErr.Status,
		Message:     apiErr.Message,
		WaitTime:    apiErr.WaitTime.Milliseconds(),
		MessageType: "error",
	}

	// Internal details stay out of production responses.
	if cause != nil && !h.production {
		body.Error = cause.Error()
	}

	h.writeJSON(w, apiErr.Status, body)
}

func (h *ChatHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}
