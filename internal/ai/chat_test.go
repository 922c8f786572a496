package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/keiyakucheck/internal/laws"
)

func chatServer(t *testing.T, content string, check func(*http.Request, chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(r, req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatAnalyzer_Analyze(t *testing.T) {
	answer := `{"summary":"損害賠償の上限がありません。","risks":[{"checkpoint_id":"CP009","status":"critical","comment":"一切の損害"}]}`
	srv := chatServer(t, answer, func(r *http.Request, req chatRequest) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Contains(t, req.Messages[1].Content, "乙は甲に生じた一切の損害を賠償する。")
			assert.Contains(t, req.Messages[1].Content, "one_person_corporation")
		}
	})

	a := NewChatAnalyzer(ChatConfig{BaseURL: srv.URL + "/", Model: "test-model", APIKey: "secret"})
	n, err := a.Analyze(context.Background(), "乙は甲に生じた一切の損害を賠償する。", laws.UserContext{
		UserEntityType: laws.EntityOnePersonCorporation,
	})
	require.NoError(t, err)
	assert.Equal(t, "損害賠償の上限がありません。", n.Summary)
	require.Len(t, n.Findings, 1)
	assert.Equal(t, "critical", n.Findings[0].Status)
}

func TestChatAnalyzer_NoAuthHeaderWithoutKey(t *testing.T) {
	srv := chatServer(t, `{"summary":"ok"}`, func(r *http.Request, _ chatRequest) {
		assert.Empty(t, r.Header.Get("Authorization"))
	})
	_, err := NewChatAnalyzer(ChatConfig{BaseURL: srv.URL}).Analyze(context.Background(), "本文", laws.DefaultContext())
	require.NoError(t, err)
}

func TestChatAnalyzer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewChatAnalyzer(ChatConfig{BaseURL: srv.URL}).Analyze(context.Background(), "本文", laws.DefaultContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestChatAnalyzer_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewChatAnalyzer(ChatConfig{BaseURL: srv.URL}).Analyze(context.Background(), "本文", laws.DefaultContext())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("契", 10)
	assert.Equal(t, strings.Repeat("契", 4), truncateRunes(s, 4))
	assert.Equal(t, s, truncateRunes(s, 20))
}
