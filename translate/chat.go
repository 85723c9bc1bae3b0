package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jpillora/backoff"
	"github.com/minios-linux/modloc/langmeta"
)

// SystemPrompt is sent to chat providers. {{sourceLang}} and {{targetLang}}
// are replaced with English language names.
const SystemPrompt = `You are a professional translator localizing a Minecraft mod. Translate the user's text from {{sourceLang}} to {{targetLang}}.

Rules:
- Reply with the translation only: no quotes, no notes, no explanations.
- Keep format codes exactly as they are: %s, %1$s, %d, %%, §a, §l, {0}, {name}.
- Keep line breaks and the position of format codes meaningful in the target language.
- Leave brand names of mods, items and authors untranslated.
- Use the terminology established by the official Minecraft localization for {{targetLang}}.`

type apiFormat int

const (
	formatOpenAIChat apiFormat = iota // OpenAI chat/completions
	formatOllama                      // Ollama /api/chat
)

// chat talks to OpenAI-compatible and Ollama chat endpoints.
type chat struct {
	prov   Provider
	format apiFormat
	http   *resty.Client
	// minDelay is the first retry delay; later retries back off from it.
	minDelay time.Duration
}

func newChat(p Provider, format apiFormat) *chat {
	c := resty.New().SetTimeout(p.timeout())
	if p.Proxy != "" {
		c.SetProxy(p.Proxy)
	}
	return &chat{prov: p, format: format, http: c, minDelay: time.Second}
}

func (c *chat) Translate(ctx context.Context, text, source, target string) (string, error) {
	system := strings.NewReplacer(
		"{{sourceLang}}", langmeta.Resolve(source).English,
		"{{targetLang}}", langmeta.Resolve(target).English,
	).Replace(SystemPrompt)

	endpoint, headers, body, err := c.buildRequest(system, text)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	b := &backoff.Backoff{Min: c.minDelay, Max: 30 * time.Second, Factor: 2, Jitter: true}
	maxRetries := c.prov.maxRetries()

	for attempt := 0; ; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetBody(body).
			Post(endpoint)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt >= maxRetries {
				return "", fmt.Errorf("%s request failed: %w", c.prov.Name, err)
			}
			wait = b.Duration()

		case resp.StatusCode() == http.StatusTooManyRequests:
			if attempt >= maxRetries {
				return "", fmt.Errorf("%s rate limited after %d retries: %s", c.prov.Name, maxRetries, truncate(resp.String(), 500))
			}
			var ok bool
			if wait, ok = parseRetryDelay(resp.Body()); !ok {
				wait = b.Duration()
			}

		case resp.StatusCode() >= 500:
			if attempt >= maxRetries {
				return "", fmt.Errorf("%s returned status %d: %s", c.prov.Name, resp.StatusCode(), truncate(resp.String(), 500))
			}
			wait = b.Duration()

		case resp.StatusCode() != http.StatusOK:
			return "", fmt.Errorf("%s returned status %d: %s", c.prov.Name, resp.StatusCode(), truncate(resp.String(), 500))

		default:
			answer, err := extractResponseText(resp.Body())
			if err != nil {
				return "", err
			}
			return cleanAnswer(answer), nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

// buildRequest constructs the endpoint, headers, and body for the provider.
func (c *chat) buildRequest(systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	messages := []msg{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
	headers := map[string]string{"Content-Type": "application/json"}
	baseURL := strings.TrimRight(c.prov.BaseURL, "/")

	if c.format == formatOllama {
		body, err := json.Marshal(struct {
			Model    string         `json:"model"`
			Messages []msg          `json:"messages"`
			Stream   bool           `json:"stream"`
			Options  map[string]any `json:"options"`
		}{
			Model:    c.prov.Model,
			Messages: messages,
			Options:  map[string]any{"temperature": 0.3},
		})
		return baseURL + "/api/chat", headers, body, err
	}

	endpoint := baseURL
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	if c.prov.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.prov.APIKey
	}
	body, err := json.Marshal(struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model:       c.prov.Model,
		Messages:    messages,
		Temperature: 0.3,
	})
	return endpoint, headers, body, err
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Ollama chat format: message.content
	if message, ok := raw["message"].(map[string]any); ok {
		if content, ok := message["content"].(string); ok {
			return content, nil
		}
	}

	// Simple response field (Ollama /api/generate)
	if resp, ok := raw["response"].(string); ok {
		return resp, nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

var markdownCodeBlock = regexp.MustCompile("(?s)```[a-z]*\\s*(.*?)\\s*```")

// cleanAnswer strips code fences and surrounding whitespace some models add.
func cleanAnswer(s string) string {
	if m := markdownCodeBlock.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.TrimSpace(s)
}

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with a retryDelay field, as returned
// by Gemini's OpenAI-compatible endpoint.
func parseRetryDelay(body []byte) (time.Duration, bool) {
	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0, false
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs * float64(time.Second)), true
			}
		}
	}
	return 0, false
}
