package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ericksa/keiyakucheck/internal/laws"
)

const (
	defaultModel     = "local-model"
	defaultMaxTokens = 2048
	maxContractRunes = 12000
)

// ChatAnalyzer calls an OpenAI-compatible /v1/chat/completions endpoint
// (LM Studio, Ollama, OpenAI).
type ChatAnalyzer struct {
	baseURL    string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

// ChatConfig configures a ChatAnalyzer.
type ChatConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
}

func NewChatAnalyzer(cfg ChatConfig) *ChatAnalyzer {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	return &ChatAnalyzer{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

const systemPrompt = `あなたは日本のフリーランス保護法・下請法・民法・著作権法に詳しい契約審査の専門家です。
受託者の立場で契約書を審査し、次のJSONだけを出力してください。説明文やコードブロックは不要です。
{"summary": "契約全体の評価（3文以内）", "risks": [{"checkpoint_id": "CP001", "status": "critical|warning|clear", "comment": "指摘内容"}]}
checkpoint_id には CP001 から CP028 のうち該当するものを使ってください。`

func userPrompt(text string, uc laws.UserContext) string {
	uc = uc.Normalize()
	l := laws.Resolve(uc)

	var b strings.Builder
	fmt.Fprintf(&b, "ユーザーの立場: %s（%s）\n", uc.UserRole, uc.UserEntityType)
	fmt.Fprintf(&b, "相手方: %s、資本金区分: %s\n", uc.CounterpartyEntityType, uc.CounterpartyCapital)
	for _, note := range laws.Explain(l) {
		fmt.Fprintf(&b, "- %s\n", note)
	}
	b.WriteString("\n契約書:\n")
	b.WriteString(truncateRunes(text, maxContractRunes))
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Analyze sends the contract to the model and parses its JSON answer.
func (a *ChatAnalyzer) Analyze(ctx context.Context, text string, uc laws.UserContext) (*Narrative, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(text, uc)},
		},
		MaxTokens:   a.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return ParseNarrative(result.Choices[0].Message.Content)
}

// ParseNarrative extracts the JSON object from a model answer. Markdown code
// fences and text around the object are ignored.
func ParseNarrative(content string) (*Narrative, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		if strings.TrimSpace(content) == "" {
			return nil, ErrEmptyResponse
		}
		return nil, fmt.Errorf("no JSON object in model answer")
	}

	var n Narrative
	if err := json.Unmarshal([]byte(content[start:end+1]), &n); err != nil {
		return nil, fmt.Errorf("failed to parse model answer: %w", err)
	}
	return &n, nil
}
