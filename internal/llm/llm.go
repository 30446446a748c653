// Package llm wraps the Anthropic messages API behind small interfaces the
// assistant, discovery, and merge components consume. Transport retries and
// defensive JSON handling live here; callers see either usable text or a
// classified failure.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultModel = "claude-sonnet-4-20250514"

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

type failureClass int

const (
	failureNone failureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

// Turn is one message of a chat transcript.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Caller is the text-generation service contract. Generate returns the
// concatenated text blocks of one completion; GenerateChat carries a full
// transcript; GenerateWithWebSearch allows the model to issue bounded web
// searches before answering.
type Caller interface {
	Generate(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	GenerateChat(ctx context.Context, system string, turns []Turn, maxTokens int) (string, error)
	GenerateWithWebSearch(ctx context.Context, prompt string, maxTokens, maxSearches int) (string, error)
	ModelName() string
}

type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages Messager
	model    string
}

type ClientCreator func(apiKey string) Messager

func defaultCreator(apiKey string) Messager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newClient ClientCreator = defaultCreator

// NewAnthropicCallerFromEnv builds the production caller. A missing API key is
// the one fatal configuration condition in the system.
func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := strings.TrimSpace(os.Getenv("GRANT_AGENT_LLM_MODEL"))
	if model == "" {
		model = defaultModel
	}
	return &AnthropicCaller{messages: newClient(apiKey), model: model}, nil
}

func NewAnthropicCaller(messages Messager, model string) *AnthropicCaller {
	if model == "" {
		model = defaultModel
	}
	return &AnthropicCaller{messages: messages, model: model}
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) Generate(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return a.send(ctx, params)
}

func (a *AnthropicCaller) GenerateChat(ctx context.Context, system string, turns []Turn, maxTokens int) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return a.send(ctx, params)
}

func (a *AnthropicCaller) GenerateWithWebSearch(ctx context.Context, prompt string, maxTokens, maxSearches int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Tools: []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
				MaxUses: anthropic.Int(int64(maxSearches)),
			},
		}},
	}
	return a.send(ctx, params)
}

func (a *AnthropicCaller) send(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		start := time.Now()
		resp, err := a.messages.New(ctx, params)
		if err != nil {
			class := classifyTransportError(err)
			log.Printf("llm transport_error attempt=%d class=%d elapsed_ms=%d err=%q", attempt, class, time.Since(start).Milliseconds(), err.Error())
			lastErr = err
			if (class == failureTimeout || class == failureRateLimit || class == failureServer) && attempt < 3 {
				time.Sleep(backoffDelay(attempt))
				continue
			}
			return "", fmt.Errorf("llm transport failure: %w", err)
		}
		var sb strings.Builder
		for _, b := range resp.Content {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("llm failed after retries: %w", lastErr)
}

// StripCodeFences removes a surrounding markdown code fence, with or without
// a "json" language tag.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
			s = strings.TrimPrefix(s, "json")
		}
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// RecoverObject salvages a truncated JSON object by cutting at the last
// closing brace. ok is false when no plausible object remains; the caller
// treats that as "no structured data", not an error.
func RecoverObject(s string) (string, bool) {
	idx := strings.LastIndex(s, "}")
	if idx < 0 {
		return "", false
	}
	candidate := s[:idx+1]
	if !strings.HasPrefix(strings.TrimSpace(candidate), "{") {
		return "", false
	}
	return candidate, true
}

func classifyTransportError(err error) failureClass {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	m := statusCodeRe.FindStringSubmatch(msg)
	if len(m) == 2 {
		switch {
		case strings.HasPrefix(m[1], "429"):
			return failureRateLimit
		case strings.HasPrefix(m[1], "5"):
			return failureServer
		case strings.HasPrefix(m[1], "4"):
			return failureClient
		}
	}
	switch {
	case strings.Contains(msg, "status 429"), strings.Contains(msg, "rate limit"):
		return failureRateLimit
	case strings.Contains(msg, "status 5"), strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}
