package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	llmx "github.com/tanpawarit/parallel-analyst/agent/llm"
	openrouterx "github.com/tanpawarit/parallel-analyst/pkg/openrouter"
)

type fakeChatModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func TestChatGeneratorGenerate(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{{Role: schema.Assistant, Content: "  The CR-V has more cargo space.  "}},
	}
	gen, err := NewChatGenerator(context.Background(), fake, "You compare cars.", "test")
	if err != nil {
		t.Fatalf("NewChatGenerator() error = %v", err)
	}

	out, err := gen.Generate(context.Background(), `{"request":"rav4 vs crv"}`)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "The CR-V has more cargo space." {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 {
		t.Fatalf("unexpected model input: %#v", fake.inputs)
	}
	if fake.inputs[0][0].Content != "You compare cars." {
		t.Fatalf("unexpected system message: %q", fake.inputs[0][0].Content)
	}
	if fake.inputs[0][1].Content != `{"request":"rav4 vs crv"}` {
		t.Fatalf("unexpected user message: %q", fake.inputs[0][1].Content)
	}
}

func TestChatGeneratorErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewChatGenerator(context.Background(), &fakeChatModel{}, " ", "test"); !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("expected ErrPromptMissing, got %v", err)
	}

	failing, err := NewChatGenerator(context.Background(), &fakeChatModel{err: errors.New("rate limited")}, "p", "test")
	if err != nil {
		t.Fatalf("NewChatGenerator() error = %v", err)
	}
	if _, err := failing.Generate(context.Background(), "x"); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}

	empty, err := NewChatGenerator(context.Background(), &fakeChatModel{
		responses: []*schema.Message{{Role: schema.Assistant, Content: "   "}},
	}, "p", "test")
	if err != nil {
		t.Fatalf("NewChatGenerator() error = %v", err)
	}
	if _, err := empty.Generate(context.Background(), "x"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestDecodeClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		raw      string
		caps     []string
		subs     map[string]string
		focus    string
		priority string
	}{
		{
			name:     "plain",
			raw:      `{"capabilities":["review_analyst","market_analyst"],"sub_queries":{"review_analyst":"rav4 reliability"},"focus":"family use","priority":"review_analyst"}`,
			caps:     []string{"review_analyst", "market_analyst"},
			subs:     map[string]string{"review_analyst": "rav4 reliability"},
			focus:    "family use",
			priority: "review_analyst",
		},
		{
			name: "fenced with prose",
			raw:  "Sure! Here is the plan:\n```json\n{\"capabilities\": [\"purchase_analyst\"]}\n```",
			caps: []string{"purchase_analyst"},
		},
		{
			name: "single string and alias",
			raw:  `{"analysts":"review_analyst, market_analyst"}`,
			caps: []string{"review_analyst", "market_analyst"},
		},
		{
			name: "tools alias and non-string values",
			raw:  `{"tools":["market_analyst", 7, ""],"sub_queries":{"market_analyst":"ev prices","review_analyst":{"q":"x"}},"focus":12}`,
			caps: []string{"market_analyst"},
			subs: map[string]string{"market_analyst": "ev prices"},
		},
		{
			name: "empty selection",
			raw:  `{"capabilities":[]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeClassification(tc.raw)
			if err != nil {
				t.Fatalf("DecodeClassification() error = %v", err)
			}
			if strings.Join(got.Capabilities, "|") != strings.Join(tc.caps, "|") {
				t.Fatalf("capabilities = %#v, want %#v", got.Capabilities, tc.caps)
			}
			if len(got.SubQueries) != len(tc.subs) {
				t.Fatalf("sub_queries = %#v, want %#v", got.SubQueries, tc.subs)
			}
			for k, v := range tc.subs {
				if got.SubQueries[k] != v {
					t.Fatalf("sub_queries[%s] = %q, want %q", k, got.SubQueries[k], v)
				}
			}
			if got.Focus != tc.focus || got.Priority != tc.priority {
				t.Fatalf("focus/priority = %q/%q", got.Focus, got.Priority)
			}
		})
	}
}

func TestDecodeClassificationRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "I cannot help with that.", "{not json}", `["review_analyst"]`} {
		if _, err := DecodeClassification(raw); !errors.Is(err, contractx.ErrSchemaViolation) {
			t.Fatalf("DecodeClassification(%q) expected ErrSchemaViolation, got %v", raw, err)
		}
	}
}

func TestClassifierSendsDescriptors(t *testing.T) {
	t.Parallel()

	var seen string
	gen := contractx.GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		seen = input
		return `{"capabilities":["review_analyst"]}`, nil
	})
	c, err := NewClassifier(gen)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	out, err := c.Classify(context.Background(), "is the rav4 reliable?", []contractx.CapabilityDescriptor{
		{ID: "review_analyst", Name: "Review Analyst", Description: "owner reviews"},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(out.Capabilities) != 1 || out.Capabilities[0] != "review_analyst" {
		t.Fatalf("unexpected classification: %#v", out)
	}

	var payload classifierInput
	if err := json.Unmarshal([]byte(seen), &payload); err != nil {
		t.Fatalf("classifier input is not JSON: %v", err)
	}
	if payload.Request != "is the rav4 reliable?" || len(payload.Capabilities) != 1 {
		t.Fatalf("unexpected classifier input: %#v", payload)
	}

	if _, err := c.Classify(context.Background(), "  ", nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestClassifierDecodesChatGraphOutput(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{{
		Role:    schema.Assistant,
		Content: "Here is the plan:\n```json\n{\"analysts\": \"market_analyst\", \"sub_queries\": {\"market_analyst\": \"EV prices\"}}\n```",
	}}}
	gen, err := NewChatGenerator(context.Background(), fake, "Pick analysts.", "classifier")
	if err != nil {
		t.Fatalf("NewChatGenerator() error = %v", err)
	}
	c, err := NewClassifier(gen)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	out, err := c.Classify(context.Background(), "should I buy an EV now?", []contractx.CapabilityDescriptor{
		{ID: "market_analyst", Name: "Market Analyst"},
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(out.Capabilities) != 1 || out.Capabilities[0] != "market_analyst" || out.SubQueries["market_analyst"] != "EV prices" {
		t.Fatalf("unexpected classification: %#v", out)
	}
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " hello "}}]
		}`))
	}))
	t.Cleanup(srv.Close)

	client := openrouterx.NewClient(openrouterx.Config{APIKey: "test", BaseURL: srv.URL})
	gen, err := NewOpenAIGenerator(client, "gpt-4o-mini", 0.2, 128, "system prompt")
	if err != nil {
		t.Fatalf("NewOpenAIGenerator() error = %v", err)
	}

	out, err := gen.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected output: %q", out)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %#v", body["model"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %#v", body["messages"])
	}
}

func TestFactoryRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewFactory(llmx.Config{Backend: "openrouter"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFactoryOpenAIBackend(t *testing.T) {
	t.Parallel()

	f, err := NewFactory(llmx.Config{Backend: "openai", APIKey: "k", Model: "gpt-4o-mini", BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	gen, err := f.Generator(context.Background(), llmx.RoleAnalyst, "analyst", "prompt")
	if err != nil {
		t.Fatalf("Generator() error = %v", err)
	}
	if _, ok := gen.(*OpenAIGenerator); !ok {
		t.Fatalf("unexpected generator type %T", gen)
	}
}
