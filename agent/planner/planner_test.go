package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tanpawarit/parallel-analyst/agent/capability"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

type fakeClassifier struct {
	out contractx.Classification
	err error
	got []contractx.CapabilityDescriptor
}

func (f *fakeClassifier) Classify(ctx context.Context, request string, caps []contractx.CapabilityDescriptor) (contractx.Classification, error) {
	f.got = caps
	return f.out, f.err
}

func newRegistry(t *testing.T, opts ...capability.Option) *capability.Registry {
	t.Helper()
	reg, err := capability.LoadDefault(opts...)
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	return reg
}

func newPlanner(t *testing.T, c contractx.Classifier) *Planner {
	t.Helper()
	p, err := New(c)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestDecomposeRepairsClassification(t *testing.T) {
	t.Parallel()

	fake := &fakeClassifier{out: contractx.Classification{
		Capabilities: []string{"Purchase Analyst", "weather_analyst", "review_analyst", "REVIEW-ANALYST"},
		SubQueries: map[string]string{
			"review_analyst":   "RAV4 and CR-V owner reliability",
			"purchase_analyst": "   ",
			"market_analyst":   "compact SUV pricing trends",
		},
		Priority: "weather_analyst",
	}}
	reg := newRegistry(t)
	const request = "Compare RAV4 vs CR-V for family use under $40k"

	plan, err := newPlanner(t, fake).Decompose(context.Background(), request, reg)
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}

	got := plan.Capabilities()
	want := []contractx.CapabilityID{"review_analyst", "market_analyst", "purchase_analyst"}
	if len(got) != len(want) {
		t.Fatalf("capabilities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("capabilities = %v, want %v (registry order)", got, want)
		}
		if _, ok := reg.Lookup(got[i]); !ok {
			t.Fatalf("plan names unregistered capability %s", got[i])
		}
	}

	if plan.SubQuery("review_analyst") != "RAV4 and CR-V owner reliability" {
		t.Fatalf("unexpected review sub-query: %q", plan.SubQuery("review_analyst"))
	}
	if q := plan.SubQuery("purchase_analyst"); q == request || !strings.Contains(q, request) {
		t.Fatalf("blank sub-query should be repaired from the capability template, got %q", q)
	}
	if plan.Focus() != DefaultFocus {
		t.Fatalf("unexpected focus: %q", plan.Focus())
	}
	if plan.Priority() != "" {
		t.Fatalf("unknown priority should be dropped, got %q", plan.Priority())
	}
	if len(fake.got) != 4 {
		t.Fatalf("classifier saw %d descriptors, want 4", len(fake.got))
	}
}

func TestDecomposeKeepsFocusAndPriority(t *testing.T) {
	t.Parallel()

	fake := &fakeClassifier{out: contractx.Classification{
		Capabilities: []string{"market_analyst"},
		Focus:        "timing of the purchase",
		Priority:     "Market Analyst",
	}}

	plan, err := newPlanner(t, fake).Decompose(context.Background(), "should I buy an EV now?", newRegistry(t))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if plan.Focus() != "timing of the purchase" || plan.Priority() != "market_analyst" {
		t.Fatalf("focus/priority = %q/%q", plan.Focus(), plan.Priority())
	}
}

func TestDecomposeZeroValidCapabilities(t *testing.T) {
	t.Parallel()

	fake := &fakeClassifier{out: contractx.Classification{
		Capabilities: []string{"weather_analyst", "stock_picker"},
	}}

	_, err := newPlanner(t, fake).Decompose(context.Background(), "what's the weather?", newRegistry(t))
	if !errors.Is(err, contractx.ErrPlanning) {
		t.Fatalf("expected ErrPlanning, got %v", err)
	}
}

func TestDecomposeFallsBackToGeneralPurpose(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fake *fakeClassifier
	}{
		{name: "oracle error", fake: &fakeClassifier{err: contractx.ErrSchemaViolation}},
		{name: "empty selection", fake: &fakeClassifier{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			plan, err := newPlanner(t, tc.fake).Decompose(context.Background(), "hello there", newRegistry(t))
			if err != nil {
				t.Fatalf("Decompose() error = %v", err)
			}
			if plan.Len() != 1 || !plan.Has("general_assistant") {
				t.Fatalf("expected general-purpose fallback, got %v", plan.Capabilities())
			}
			if plan.SubQuery("general_assistant") != "hello there" {
				t.Fatalf("unexpected fallback sub-query: %q", plan.SubQuery("general_assistant"))
			}
		})
	}
}

func TestDecomposeNoFallbackAvailable(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, capability.WithAvailability("general_assistant", func() bool { return false }))
	_, err := newPlanner(t, &fakeClassifier{}).Decompose(context.Background(), "hello", reg)
	if !errors.Is(err, contractx.ErrPlanning) {
		t.Fatalf("expected ErrPlanning, got %v", err)
	}
}

func TestDecomposeDiscardsUnavailable(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, capability.WithAvailability("market_analyst", func() bool { return false }))
	fake := &fakeClassifier{out: contractx.Classification{
		Capabilities: []string{"market_analyst", "review_analyst"},
	}}

	plan, err := newPlanner(t, fake).Decompose(context.Background(), "is the model 3 reliable and cheap now?", reg)
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if plan.Has("market_analyst") || !plan.Has("review_analyst") || plan.Len() != 1 {
		t.Fatalf("unexpected plan: %v", plan.Capabilities())
	}
	for _, d := range fake.got {
		if d.ID == "market_analyst" {
			t.Fatal("unavailable capability offered to the classifier")
		}
	}
}

func TestDecomposeAcceptsSubQueryOnlyCapabilities(t *testing.T) {
	t.Parallel()

	fake := &fakeClassifier{out: contractx.Classification{
		SubQueries: map[string]string{"purchase_analyst": "dealers near Austin under $30k"},
	}}

	plan, err := newPlanner(t, fake).Decompose(context.Background(), "where to buy under $30k near Austin", newRegistry(t))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if plan.Len() != 1 || plan.SubQuery("purchase_analyst") != "dealers near Austin under $30k" {
		t.Fatalf("unexpected plan: %v", plan.Capabilities())
	}
}

func TestDecomposeRejectsBlankRequest(t *testing.T) {
	t.Parallel()

	if _, err := newPlanner(t, &fakeClassifier{}).Decompose(context.Background(), "   ", newRegistry(t)); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDecomposeExactSubQueryKeyWins(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	for i := 0; i < 50; i++ {
		fake := &fakeClassifier{out: contractx.Classification{
			Capabilities: []string{"review_analyst"},
			SubQueries: map[string]string{
				"Review Analyst": "alias phrasing",
				"review_analyst": "exact phrasing",
				"REVIEW-ANALYST": "shouted phrasing",
			},
		}}
		plan, err := newPlanner(t, fake).Decompose(context.Background(), "is the RAV4 reliable?", reg)
		if err != nil {
			t.Fatalf("Decompose() error = %v", err)
		}
		if got := plan.SubQuery("review_analyst"); got != "exact phrasing" {
			t.Fatalf("run %d: sub-query = %q, want the exact-ID key", i, got)
		}
	}
}

func TestDecomposeReplacesRestatedSubQuery(t *testing.T) {
	t.Parallel()

	const request = "Compare RAV4 vs CR-V for family use"
	fake := &fakeClassifier{out: contractx.Classification{
		Capabilities: []string{"review_analyst", "general_assistant"},
		SubQueries: map[string]string{
			"review_analyst":    "  compare rav4 vs cr-v for family use ",
			"general_assistant": request,
		},
	}}

	plan, err := newPlanner(t, fake).Decompose(context.Background(), request, newRegistry(t))
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if q := plan.SubQuery("review_analyst"); strings.EqualFold(strings.TrimSpace(q), request) || !strings.Contains(q, request) {
		t.Fatalf("restated specialist sub-query should use the capability template, got %q", q)
	}
	if q := plan.SubQuery("general_assistant"); q != request {
		t.Fatalf("general-purpose sub-query = %q, want the request", q)
	}
}
