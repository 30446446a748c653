package llm

import (
	"context"
	"fmt"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeMessager struct {
	responses []*anthropic.Message
	errs      []error
	calls     int
	params    []anthropic.MessageNewParams
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	i := f.calls
	f.calls++
	f.params = append(f.params, params)
	var resp *anthropic.Message
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func textMessage(blocks ...string) *anthropic.Message {
	msg := &anthropic.Message{}
	for _, b := range blocks {
		msg.Content = append(msg.Content, anthropic.ContentBlockUnion{Type: "text", Text: b})
	}
	return msg
}

func TestGenerateConcatenatesTextBlocks(t *testing.T) {
	fake := &fakeMessager{responses: []*anthropic.Message{textMessage("Hello, ", "world")}}
	caller := NewAnthropicCaller(fake, "test-model")

	got, err := caller.Generate(context.Background(), "be brief", "say hello", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello, world" {
		t.Fatalf("expected concatenated blocks, got %q", got)
	}
	p := fake.params[0]
	if p.Model != "test-model" || p.MaxTokens != 100 {
		t.Fatalf("unexpected params model=%s max_tokens=%d", p.Model, p.MaxTokens)
	}
	if len(p.System) != 1 || p.System[0].Text != "be brief" {
		t.Fatalf("expected system prompt, got %+v", p.System)
	}
}

func TestGenerateSkipsNonTextBlocks(t *testing.T) {
	msg := &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "web_search_tool_result"},
		{Type: "text", Text: "result"},
	}}
	fake := &fakeMessager{responses: []*anthropic.Message{msg}}
	caller := NewAnthropicCaller(fake, "")

	got, err := caller.GenerateWithWebSearch(context.Background(), "find grants", 1000, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "result" {
		t.Fatalf("expected only text blocks, got %q", got)
	}
	tools := fake.params[0].Tools
	if len(tools) != 1 || tools[0].OfWebSearchTool20250305 == nil {
		t.Fatalf("expected web search tool, got %+v", tools)
	}
}

func TestGenerateChatMapsRoles(t *testing.T) {
	fake := &fakeMessager{responses: []*anthropic.Message{textMessage("ok")}}
	caller := NewAnthropicCaller(fake, "test-model")

	turns := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "tell me more"},
	}
	if _, err := caller.GenerateChat(context.Background(), "", turns, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs := fake.params[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != anthropic.MessageParamRoleUser || msgs[1].Role != anthropic.MessageParamRoleAssistant || msgs[2].Role != anthropic.MessageParamRoleUser {
		t.Fatalf("unexpected role mapping %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if len(fake.params[0].System) != 0 {
		t.Fatalf("expected no system block, got %+v", fake.params[0].System)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	fake := &fakeMessager{
		errs:      []error{fmt.Errorf("status 529: overloaded"), nil},
		responses: []*anthropic.Message{nil, textMessage("recovered")},
	}
	caller := NewAnthropicCaller(fake, "test-model")

	got, err := caller.Generate(context.Background(), "", "prompt", 100)
	if err != nil {
		t.Fatalf("expected recovery after retry, got %v", err)
	}
	if got != "recovered" {
		t.Fatalf("expected retried response, got %q", got)
	}
	if fake.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", fake.calls)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakeMessager{errs: []error{fmt.Errorf("status 400: invalid request")}}
	caller := NewAnthropicCaller(fake, "test-model")

	if _, err := caller.Generate(context.Background(), "", "prompt", 100); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Fatalf("expected single attempt for client error, got %d", fake.calls)
	}
}

func TestClassifyTransportError(t *testing.T) {
	cases := []struct {
		err  error
		want failureClass
	}{
		{context.DeadlineExceeded, failureTimeout},
		{fmt.Errorf("status 429: rate limited"), failureRateLimit},
		{fmt.Errorf("status code: 503"), failureServer},
		{fmt.Errorf("status 404: not found"), failureClient},
		{fmt.Errorf("connection reset by peer"), failureServer},
	}
	for _, tc := range cases {
		if got := classifyTransportError(tc.err); got != tc.want {
			t.Errorf("classifyTransportError(%v)=%d want=%d", tc.err, got, tc.want)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  null  ", "null"},
	}
	for _, tc := range cases {
		if got := StripCodeFences(tc.in); got != tc.want {
			t.Errorf("StripCodeFences(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestRecoverObject(t *testing.T) {
	got, ok := RecoverObject(`{"a":1} trailing prose`)
	if !ok || got != `{"a":1}` {
		t.Fatalf("expected object recovered, got %q ok=%v", got, ok)
	}
	if _, ok := RecoverObject(`no braces here`); ok {
		t.Fatal("expected failure without closing brace")
	}
	if _, ok := RecoverObject(`prose then }`); ok {
		t.Fatal("expected failure without opening brace")
	}
}
