package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(config.OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, srv
}

func completionReply(content string) []byte {
	resp := openaiResponse{
		ID: "cmpl-1",
		Choices: []openaiChoice{
			{Message: openaiMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var gotAuth string
	var gotReq openaiRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write(completionReply(`{"ok":true}`))
	})

	out, err := client.Complete(context.Background(), "system says", "user asks")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "system says", gotReq.Messages[0].Content)
	assert.Equal(t, "user asks", gotReq.Messages[1].Content)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	assert.Zero(t, gotReq.Temperature)
}

func TestCompleteRetriesOnceOnServerError(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write(completionReply("recovered"))
	})

	out, err := client.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteWrapsPersistentFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGatewayUnavailable))
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{Error: &openaiError{Type: "invalid_request_error", Message: "bad model"}})
	})

	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGatewayUnavailable))
	assert.Contains(t, err.Error(), "bad model")
}

func TestCompleteRejectsEmptyCompletion(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionReply(""))
	})

	_, err := client.Complete(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(config.OpenAIConfig{}, zap.NewNop())
	assert.Error(t, err)
}
