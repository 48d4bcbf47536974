package contract

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type CapabilityID string

// Capability is one registered, independently invocable unit of expertise.
// Provider names the analyst kind that serves it.
type Capability struct {
	ID             CapabilityID
	Name           string
	Description    string
	GeneralPurpose bool
	QueryTemplate  string
	Provider       string
	Available      func() bool
}

func (c Capability) IsAvailable() bool {
	return c.Available == nil || c.Available()
}

func (c Capability) Descriptor() CapabilityDescriptor {
	return CapabilityDescriptor{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
	}
}

// CapabilityDescriptor is what the classification oracle sees of a capability.
type CapabilityDescriptor struct {
	ID          CapabilityID `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
}

// Classification is the raw classification oracle output before repair.
type Classification struct {
	Capabilities []string          `json:"capabilities"`
	SubQueries   map[string]string `json:"sub_queries,omitempty"`
	Focus        string            `json:"focus,omitempty"`
	Priority     string            `json:"priority,omitempty"`
}

// Plan is the immutable decomposition of one request. Build it with NewPlan.
type Plan struct {
	capabilities []CapabilityID
	subQueries   map[CapabilityID]string
	focus        string
	priority     CapabilityID
}

func NewPlan(
	capabilities []CapabilityID,
	subQueries map[CapabilityID]string,
	focus string,
	priority CapabilityID,
) (Plan, error) {
	if len(capabilities) == 0 {
		return Plan{}, fmt.Errorf("%w: plan has no capabilities", ErrValidation)
	}

	caps := make([]CapabilityID, 0, len(capabilities))
	queries := make(map[CapabilityID]string, len(capabilities))
	for _, id := range capabilities {
		if strings.TrimSpace(string(id)) == "" {
			return Plan{}, fmt.Errorf("%w: empty capability id", ErrValidation)
		}
		if _, dup := queries[id]; dup {
			return Plan{}, fmt.Errorf("%w: duplicate capability=%s", ErrValidation, id)
		}
		q := strings.TrimSpace(subQueries[id])
		if q == "" {
			return Plan{}, fmt.Errorf("%w: capability=%s has no sub-query", ErrValidation, id)
		}
		caps = append(caps, id)
		queries[id] = q
	}

	if _, ok := queries[priority]; !ok {
		priority = ""
	}

	return Plan{
		capabilities: caps,
		subQueries:   queries,
		focus:        strings.TrimSpace(focus),
		priority:     priority,
	}, nil
}

func (p Plan) Capabilities() []CapabilityID {
	return append([]CapabilityID(nil), p.capabilities...)
}

func (p Plan) SubQuery(id CapabilityID) string {
	return p.subQueries[id]
}

func (p Plan) Has(id CapabilityID) bool {
	_, ok := p.subQueries[id]
	return ok
}

func (p Plan) Focus() string {
	return p.focus
}

func (p Plan) Priority() CapabilityID {
	return p.priority
}

func (p Plan) Len() int {
	return len(p.capabilities)
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
)

type Stance string

const (
	StanceNone     Stance = ""
	StancePositive Stance = "positive"
	StanceNegative Stance = "negative"
	StanceMixed    Stance = "mixed"
	StanceNeutral  Stance = "neutral"
)

type Source struct {
	Title string `json:"title"`
	Ref   string `json:"ref,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Payload is what a provider returns on success.
type Payload struct {
	Summary    string         `json:"summary"`
	Data       map[string]any `json:"data,omitempty"`
	Sources    []Source       `json:"sources,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Stance     Stance         `json:"stance,omitempty"`
}

// ExecutionResult is the terminal outcome of one capability task.
// Payload is set only on success; Err only on failure or timeout.
type ExecutionResult struct {
	Capability CapabilityID  `json:"capability"`
	Status     Status        `json:"status"`
	Payload    *Payload      `json:"payload,omitempty"`
	Latency    time.Duration `json:"latency"`
	Err        string        `json:"error,omitempty"`
}

func (r ExecutionResult) OK() bool {
	return r.Status == StatusSuccess && r.Payload != nil
}

// ResultSet holds exactly one ExecutionResult per planned capability.
type ResultSet map[CapabilityID]ExecutionResult

// IDs returns the capability ids in lexical order.
func (rs ResultSet) IDs() []CapabilityID {
	ids := make([]CapabilityID, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (rs ResultSet) Successes() []ExecutionResult {
	out := make([]ExecutionResult, 0, len(rs))
	for _, id := range rs.IDs() {
		if r := rs[id]; r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (rs ResultSet) Unsuccessful() []ExecutionResult {
	out := make([]ExecutionResult, 0, len(rs))
	for _, id := range rs.IDs() {
		if r := rs[id]; !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (rs ResultSet) Degraded() bool {
	return len(rs.Unsuccessful()) > 0
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

type Finding struct {
	Capability CapabilityID  `json:"capability"`
	Name       string        `json:"name"`
	Status     Status        `json:"status"`
	Summary    string        `json:"summary,omitempty"`
	Sources    []Source      `json:"sources,omitempty"`
	Latency    time.Duration `json:"latency"`
	Err        string        `json:"error,omitempty"`
}

// Report is the terminal artifact returned to the caller.
type Report struct {
	RequestID       string          `json:"request_id,omitempty"`
	Request         string          `json:"request"`
	Summary         string          `json:"summary"`
	Findings        []Finding       `json:"findings"`
	Caveats         []string        `json:"caveats,omitempty"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Degraded        bool            `json:"degraded"`
	Fallback        bool            `json:"fallback"`
	Elapsed         time.Duration   `json:"elapsed"`
}
