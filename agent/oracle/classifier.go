package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

var _ contractx.Classifier = (*Classifier)(nil)

// Classifier asks a generation oracle to pick capabilities and decodes its answer.
// Any Generator backend works: the text it returns is decoded by DecodeClassification
// after generation, so eino, openai-go and anthropic share one parser.
// Decoding is lenient about shape; deciding what the answer means is the planner's job.
type Classifier struct {
	gen contractx.Generator
}

func NewClassifier(gen contractx.Generator) (*Classifier, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: classifier generator is nil", contractx.ErrValidation)
	}
	return &Classifier{gen: gen}, nil
}

type classifierInput struct {
	Request      string                           `json:"request"`
	Capabilities []contractx.CapabilityDescriptor `json:"capabilities"`
}

func (c *Classifier) Classify(
	ctx context.Context,
	request string,
	capabilities []contractx.CapabilityDescriptor,
) (contractx.Classification, error) {
	if strings.TrimSpace(request) == "" {
		return contractx.Classification{}, fmt.Errorf("%w: request is required", contractx.ErrValidation)
	}

	input, err := json.Marshal(classifierInput{Request: request, Capabilities: capabilities})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	raw, err := c.gen.Generate(ctx, string(input))
	if err != nil {
		return contractx.Classification{}, err
	}
	return DecodeClassification(raw)
}

type rawClassification struct {
	Capabilities json.RawMessage            `json:"capabilities"`
	Analysts     json.RawMessage            `json:"analysts"`
	Tools        json.RawMessage            `json:"tools"`
	SubQueries   map[string]json.RawMessage `json:"sub_queries"`
	Focus        json.RawMessage            `json:"focus"`
	Priority     json.RawMessage            `json:"priority"`
}

// DecodeClassification extracts a Classification from free-form model output.
// It tolerates markdown fences, prose around the object, a single name instead of
// a list, and the "analysts"/"tools" aliases. Non-string sub-queries are dropped.
func DecodeClassification(raw string) (contractx.Classification, error) {
	body, ok := outermostObject(stripFences(raw))
	if !ok {
		return contractx.Classification{}, fmt.Errorf("%w: no JSON object in classifier output", contractx.ErrSchemaViolation)
	}

	var rc rawClassification
	if err := json.Unmarshal([]byte(body), &rc); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: decode classifier output: %v", contractx.ErrSchemaViolation, err)
	}

	names := stringList(rc.Capabilities)
	if len(names) == 0 {
		names = stringList(rc.Analysts)
	}
	if len(names) == 0 {
		names = stringList(rc.Tools)
	}

	var subs map[string]string
	if len(rc.SubQueries) > 0 {
		subs = make(map[string]string, len(rc.SubQueries))
		for k, v := range rc.SubQueries {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				continue
			}
			subs[k] = s
		}
	}

	return contractx.Classification{
		Capabilities: names,
		SubQueries:   subs,
		Focus:        stringValue(rc.Focus),
		Priority:     stringValue(rc.Priority),
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func outermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		var out []string
		for _, part := range strings.Split(single, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
