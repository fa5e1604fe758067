package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"genius-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, calls *int32, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider("sk-test", srv.URL+"/v1", "", 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var prompt = []llm.Message{{Role: llm.RoleUser, Content: "How fast does an elephant run?"}}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var calls int32
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	provider := newTestServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": "About 40 km/h."}, "finish_reason": "stop"},
			},
		})
	})

	reply, err := provider.Complete(context.Background(), prompt)

	require.NoError(t, err)
	assert.Equal(t, llm.Message{Role: "assistant", Content: "About 40 km/h."}, reply)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
		want   llm.ErrorKind
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   map[string]interface{}{"error": map[string]string{"message": "Rate limit reached", "type": "requests"}},
			want:   llm.KindRateLimited,
		},
		{
			name:   "bad key",
			status: http.StatusUnauthorized,
			body:   map[string]interface{}{"error": map[string]string{"message": "Incorrect API key provided", "type": "invalid_request_error"}},
			want:   llm.KindUnauthorized,
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   map[string]interface{}{"error": map[string]string{"message": "Country not supported"}},
			want:   llm.KindUnauthorized,
		},
		{
			name:   "upstream down without error body",
			status: http.StatusBadGateway,
			body:   "bad gateway",
			want:   llm.KindUnknown,
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   map[string]interface{}{"id": "chatcmpl-2", "object": "chat.completion", "choices": []interface{}{}},
			want:   llm.KindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			provider := newTestServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := provider.Complete(context.Background(), prompt)

			require.Error(t, err)
			assert.Equal(t, tt.want, llm.KindOf(err))
			assert.Equal(t, int32(1), calls, "must not retry")
		})
	}
}

func TestCompleteRejectsInvalidInputWithoutCalling(t *testing.T) {
	var calls int32
	provider := newTestServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})

	_, err := provider.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, llm.ErrInvalidInput)

	_, err = provider.Complete(context.Background(), []llm.Message{{Role: llm.RoleSystem, Content: "rules"}})
	assert.ErrorIs(t, err, llm.ErrInvalidInput)

	assert.Zero(t, calls)
}

func TestCompleteHonoursTimeout(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	provider := NewOpenAIProvider("sk-test", srv.URL+"/v1", "", 50*time.Millisecond)

	start := time.Now()
	_, err := provider.Complete(context.Background(), prompt)

	require.Error(t, err)
	assert.Equal(t, llm.KindUnknown, llm.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConfigured(t *testing.T) {
	assert.True(t, NewOpenAIProvider("sk", "", "", 0).Configured())
	assert.False(t, NewOpenAIProvider("", "", "", 0).Configured())
}
