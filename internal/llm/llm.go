// Package llm provides the single LLM client C6 and C12 share: a
// model-fallback REST caller plus a JSON-fence-tolerant parse-or-default
// wrapper (spec.md §6, §9 "treat the LLM as a producer of a fixed shape
// via a parse-or-default wrapper").
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hanbat-quant/sentinel/pkg/httputil"
	"github.com/hanbat-quant/sentinel/pkg/logger"
)

// DefaultModels is the fallback priority list: the first model that
// answers successfully wins (spec.md §4.6 "the exact model is chosen
// from a fallback priority list").
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// Client is the shared LLM caller. A nil/empty APIKey means the LLM
// features degrade gracefully — every caller must tolerate Complete
// returning an error and fall back to its rule-based default (spec.md §6
// "GOOGLE_AI_API_KEY optional").
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	apiKey  string
	models  []string
	baseURL string
}

func New(apiKey string, http *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		http:    http,
		logger:  log,
		apiKey:  apiKey,
		models:  DefaultModels,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
	}
}

// Available reports whether a call can be attempted at all.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Complete tries each model in the fallback list in order and returns the
// first successful raw text response. LLM calls follow a model-fallback
// list; on exhaustion they return an error and the caller uses a default
// (spec.md §5).
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("llm: no API key configured")
	}

	var lastErr error
	for _, model := range c.models {
		text, err := c.completeWithModel(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.WithFields(map[string]interface{}{
			"model": model,
			"error": err.Error(),
		}).Warn("LLM model failed, trying next in fallback list")
	}
	return "", fmt.Errorf("all LLM models exhausted: %w", lastErr)
}

func (c *Client) completeWithModel(ctx context.Context, model, prompt string) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	reqBody := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}

	resp, err := c.http.Post(ctx, url, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("llm API returned status %d", resp.StatusCode)
	}

	var result generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("llm response carried no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// ExtractJSON implements spec.md §6's wire-format tolerance: strips a
// surrounding markdown fence if present, then extracts from the first
// '[' or '{' to the last ']' or '}'.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	end := strings.LastIndexAny(s, "]}")
	if end < start {
		return s
	}
	return s[start : end+1]
}

// ParseOrDefault decodes raw (after fence/boundary extraction) into out.
// On failure it retries once by truncating the tail to the last comma
// before a parse error, per spec.md §6 ("retries by truncating from the
// tail on parse failure"); if that also fails, out is left at its zero
// value and the caller's default stands — ContractViolation per spec.md §7.
func ParseOrDefault(raw string, out interface{}) error {
	candidate := ExtractJSON(raw)
	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return nil
	}

	truncated := truncateToLastComma(candidate)
	if truncated == "" || truncated == candidate {
		return fmt.Errorf("llm: could not parse JSON output")
	}
	closed := closeBrackets(truncated)
	if err := json.Unmarshal([]byte(closed), out); err != nil {
		return fmt.Errorf("llm: could not parse JSON output even after truncation: %w", err)
	}
	return nil
}

func truncateToLastComma(s string) string {
	idx := strings.LastIndex(s, ",")
	if idx < 0 {
		return ""
	}
	return s[:idx]
}

func closeBrackets(s string) string {
	opens := strings.Count(s, "{") - strings.Count(s, "}")
	opensArr := strings.Count(s, "[") - strings.Count(s, "]")
	for i := 0; i < opensArr; i++ {
		s += "]"
	}
	for i := 0; i < opens; i++ {
		s += "}"
	}
	return s
}
