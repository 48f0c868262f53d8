package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string, keys ...string) *Client {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	c := NewClient(&config.ProviderConfig{
		APIKeys:         keys,
		PrimaryModel:    "gemini-1.5-flash",
		FallbackModels:  []string{"gemini-pro", "gemini-pro-latest"},
		MaxOutputTokens: 2048,
		OutboundRPS:     1000,
		OutboundBurst:   1000,
	}, nil, log)
	c.baseURL = baseURL
	c.retryDelay = time.Millisecond
	return c
}

func textResponse(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	})
	return string(body)
}

func TestGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(textResponse("hola estudiante")))
	}))
	defer server.Close()

	c := testClient(t, server.URL, "key-1")
	handle := &ModelHandle{Credential: "key-1", Model: "gemini-1.5-flash"}

	text, err := c.Generate(context.Background(), handle, []Content{UserText("hola")}, GenerateOptions{Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "hola estudiante", text)
	assert.Equal(t, "/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "key-1", gotKey)

	genConfig := gotBody["generationConfig"].(map[string]interface{})
	assert.Equal(t, float64(2048), genConfig["maxOutputTokens"])
	assert.Equal(t, 0.7, genConfig["temperature"])
}

func TestGenerateQuotaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := testClient(t, server.URL, "key-1")
	handle := &ModelHandle{Credential: "key-1", Model: "gemini-1.5-flash"}

	_, err := c.Generate(context.Background(), handle, []Content{UserText("hola")}, GenerateOptions{})
	assert.ErrorIs(t, err, ErrQuota)
}

func TestGenerateWithRetryRecoversFromQuota(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(textResponse("respuesta")))
	}))
	defer server.Close()

	c := testClient(t, server.URL, "key-1")
	handle := &ModelHandle{Credential: "key-1", Model: "gemini-1.5-flash"}

	text, err := c.GenerateWithRetry(context.Background(), handle, []Content{UserText("hola")}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateWithRetryGivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := testClient(t, server.URL, "key-1")
	handle := &ModelHandle{Credential: "key-1", Model: "gemini-1.5-flash"}

	_, err := c.GenerateWithRetry(context.Background(), handle, []Content{UserText("hola")}, GenerateOptions{})
	assert.ErrorIs(t, err, ErrQuota)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestKeyRotation(t *testing.T) {
	c := testClient(t, "http://unused", "key-1", "key-2", "key-3")

	assert.Equal(t, "key-1", c.nextKey())
	assert.Equal(t, "key-2", c.nextKey())
	assert.Equal(t, "key-3", c.nextKey())
	assert.Equal(t, "key-1", c.nextKey())
}

func TestAcquireModelFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "gemini-1.5-flash") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(textResponse("ok")))
	}))
	defer server.Close()

	c := testClient(t, server.URL, "key-1")

	handle, err := c.AcquireModel(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "gemini-pro", handle.Model)
	assert.Equal(t, "key-1", handle.Credential)
}

func TestAcquireModelExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(t, server.URL, "key-1")

	_, err := c.AcquireModel(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestAcquireModelNoKeys(t *testing.T) {
	c := testClient(t, "http://unused")

	_, err := c.AcquireModel(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoProvider)
}
