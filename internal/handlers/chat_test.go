package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/i18n"
	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/aula-ai-tutor-go/internal/services/ai"
	"github.com/aula-ai-tutor-go/internal/services/cache"
	"github.com/aula-ai-tutor-go/internal/services/session"
	"github.com/aula-ai-tutor-go/internal/services/students"
	"github.com/aula-ai-tutor-go/internal/tutor"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type staticProvider struct {
	text string
}

func (p *staticProvider) AcquireModel(_ context.Context, _ string) (*ai.ModelHandle, error) {
	return &ai.ModelHandle{Credential: "k", Model: "m"}, nil
}

func (p *staticProvider) Generate(_ context.Context, _ *ai.ModelHandle, _ []ai.Content, _ ai.GenerateOptions) (string, error) {
	return p.text, nil
}

func (p *staticProvider) GenerateWithRetry(ctx context.Context, h *ai.ModelHandle, c []ai.Content, o ai.GenerateOptions) (string, error) {
	return p.Generate(ctx, h, c, o)
}

type noVideo struct{}

func (noVideo) Search(_ context.Context, _ string) (*models.VideoData, error) {
	return nil, context.Canceled
}

func newTestHandler(t *testing.T, userLimit int) *ChatHandler {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	metrics := middleware.NewMetrics()
	responseCache := cache.NewResponseCache(&config.CacheConfig{
		Enabled:    true,
		DefaultTTL: time.Hour,
		ContentTTL: 24 * time.Hour,
	}, metrics, log)
	limiter := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:         true,
		UserLimit:       userLimit,
		Interval:        time.Minute,
		CredentialLimit: 1000,
	}, log)

	store := session.NewMemoryStore(&config.MemoryConfig{
		DefaultExpiration: time.Hour,
		CleanupInterval:   time.Hour,
	}, log)
	manager := session.NewManager(store, log)

	studentStore := students.NewMemoryStore(log)
	studentStore.PutStudent(&models.Student{ID: 1, Name: "Ana", XP: 50})

	loc, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "es",
		Languages:       []string{"es", "en"},
	})
	require.NoError(t, err)

	provider := &staticProvider{text: "respuesta generada"}
	gen := tutor.NewGenerators(provider, responseCache, limiter, log)
	router := tutor.NewRouter(manager, studentStore, gen, noVideo{}, limiter, responseCache, loc, metrics, log)

	auth := middleware.NewAuthenticator(testSecret)
	return NewChatHandler(auth, router, loc, log, false)
}

func bearerToken(t *testing.T, userID int64) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func postChat(h *ChatHandler, authorization string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/students/chat", bytes.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandleChatRequest(t *testing.T) {
	h := newTestHandler(t, 100)

	body, _ := json.Marshal(models.ChatRequest{Message: "¿qué es la inercia?"})
	rec := postChat(h, bearerToken(t, 1), body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.TypeResponse, resp.MessageType)
	assert.Equal(t, "respuesta generada", resp.Text)
	require.NotNil(t, resp.XP)
	assert.Equal(t, 52, *resp.XP)
}

func TestHandleRejectsMissingToken(t *testing.T) {
	h := newTestHandler(t, 100)

	body, _ := json.Marshal(models.ChatRequest{Message: "hola"})
	rec := postChat(h, "", body)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.MessageType)
	assert.Equal(t, "No autorizado", resp.Message)
}

func TestHandleRejectsInvalidToken(t *testing.T) {
	h := newTestHandler(t, 100)

	body, _ := json.Marshal(models.ChatRequest{Message: "hola"})
	rec := postChat(h, "Bearer not-a-token", body)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Token inválido", resp.Message)
}

func TestHandleRejectsInvalidBody(t *testing.T) {
	h := newTestHandler(t, 100)

	rec := postChat(h, bearerToken(t, 1), []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUnknownStudent(t *testing.T) {
	h := newTestHandler(t, 100)

	body, _ := json.Marshal(models.ChatRequest{Message: "hola"})
	rec := postChat(h, bearerToken(t, 99), body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRateLimitIncludesWaitTime(t *testing.T) {
	h := newTestHandler(t, 1)

	first, _ := json.Marshal(models.ChatRequest{Message: "primer mensaje"})
	rec := postChat(h, bearerToken(t, 1), first)
	require.Equal(t, http.StatusOK, rec.Code)

	second, _ := json.Marshal(models.ChatRequest{Message: "segundo mensaje"})
	rec = postChat(h, bearerToken(t, 1), second)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Greater(t, resp.WaitTime, int64(0))
	assert.Contains(t, resp.Message, "segundos")
}
