package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

type fakeCatalog map[contractx.CapabilityID]string

func (f fakeCatalog) Lookup(id contractx.CapabilityID) (contractx.Capability, bool) {
	name, ok := f[id]
	return contractx.Capability{ID: id, Name: name}, ok
}

var catalog = fakeCatalog{
	"review_analyst":   "Review Analyst",
	"market_analyst":   "Market Analyst",
	"purchase_analyst": "Purchase Analyst",
}

type recordingGenerator struct {
	out   string
	err   error
	calls int
	input string
}

func (g *recordingGenerator) Generate(ctx context.Context, input string) (string, error) {
	g.calls++
	g.input = input
	return g.out, g.err
}

func success(id contractx.CapabilityID, summary string, q float64, stance contractx.Stance) contractx.ExecutionResult {
	return contractx.ExecutionResult{
		Capability: id,
		Status:     contractx.StatusSuccess,
		Latency:    120 * time.Millisecond,
		Payload: &contractx.Payload{
			Summary:    summary,
			Confidence: q,
			Stance:     stance,
			Data:       map[string]any{"items": 3},
			Sources:    []contractx.Source{{Title: string(id) + " source", Date: "2026-09-01"}},
		},
	}
}

func timeout(id contractx.CapabilityID) contractx.ExecutionResult {
	return contractx.ExecutionResult{
		Capability: id,
		Status:     contractx.StatusTimeout,
		Latency:    time.Second,
		Err:        "provider timed out: no answer within 1s",
	}
}

func allSuccess() contractx.ResultSet {
	return contractx.ResultSet{
		"review_analyst":   success("review_analyst", "Owners rate the RAV4 4.5/5.", 0.85, contractx.StancePositive),
		"market_analyst":   success("market_analyst", "Compact SUV prices are easing.", 0.75, contractx.StancePositive),
		"purchase_analyst": success("purchase_analyst", "Both fit a $40k budget.", 0.8, contractx.StanceNone),
	}
}

func newSynth(t *testing.T, gen contractx.Generator) *Synthesizer {
	t.Helper()
	s, err := New(gen, catalog)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSynthesizeAllSucceed(t *testing.T) {
	t.Parallel()

	gen := &recordingGenerator{out: "Review Analyst says owners love it. Market Analyst sees easing prices. Purchase Analyst confirms the budget."}
	report := newSynth(t, gen).Synthesize(context.Background(), Input{
		Request: "Compare RAV4 vs CR-V",
		Focus:   "family use",
		Results: allSuccess(),
	})

	if report.Fallback {
		t.Fatal("unexpected fallback")
	}
	if report.Summary != gen.out {
		t.Fatalf("unexpected summary: %q", report.Summary)
	}
	if len(report.Findings) != 3 || len(report.Caveats) != 0 || report.Degraded {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.ConfidenceLevel != contractx.ConfidenceHigh {
		t.Fatalf("confidence = %.2f (%s), want high", report.Confidence, report.ConfidenceLevel)
	}
	for _, want := range []string{"Customer request: Compare RAV4 vs CR-V", "Answer focus: family use", "=== Market Analyst (market_analyst) ===", "- items: 3"} {
		if !strings.Contains(gen.input, want) {
			t.Fatalf("merge context missing %q:\n%s", want, gen.input)
		}
	}
}

func TestSynthesizeOneTimeout(t *testing.T) {
	t.Parallel()

	results := allSuccess()
	results["market_analyst"] = timeout("market_analyst")

	gen := &recordingGenerator{out: "Review Analyst: reliable. Purchase Analyst: in budget. Market data was unavailable."}
	report := newSynth(t, gen).Synthesize(context.Background(), Input{Request: "Compare RAV4 vs CR-V", Results: results})

	if len(report.Findings) != 3 {
		t.Fatalf("findings = %d, want 3", len(report.Findings))
	}
	if len(report.Caveats) != 1 || !strings.Contains(report.Caveats[0], "Market Analyst") {
		t.Fatalf("unexpected caveats: %v", report.Caveats)
	}
	if !report.Degraded {
		t.Fatal("expected degraded report")
	}
	if report.ConfidenceLevel != contractx.ConfidenceMedium {
		t.Fatalf("confidence = %.2f (%s), want medium", report.Confidence, report.ConfidenceLevel)
	}
	if !strings.Contains(gen.input, "UNAVAILABLE: timeout") {
		t.Fatalf("merge context does not flag the timeout:\n%s", gen.input)
	}
}

func TestSynthesizeRejectsOutputMissingCapability(t *testing.T) {
	t.Parallel()

	gen := &recordingGenerator{out: "Review Analyst says owners love it. Market Analyst sees easing prices."}
	report := newSynth(t, gen).Synthesize(context.Background(), Input{Request: "Compare RAV4 vs CR-V", Results: allSuccess()})

	if !report.Fallback {
		t.Fatal("expected templated fallback")
	}
	if gen.calls != 1 {
		t.Fatalf("oracle called %d times, want exactly 1", gen.calls)
	}
	for _, name := range []string{"Review Analyst", "Market Analyst", "Purchase Analyst"} {
		if !strings.Contains(report.Summary, name) {
			t.Fatalf("fallback summary missing %s:\n%s", name, report.Summary)
		}
	}
	if report.ConfidenceLevel != contractx.ConfidenceHigh {
		t.Fatalf("fallback must not change the confidence, got %s", report.ConfidenceLevel)
	}
}

func TestSynthesizeOracleError(t *testing.T) {
	t.Parallel()

	gen := &recordingGenerator{err: errors.New("upstream 500")}
	report := newSynth(t, gen).Synthesize(context.Background(), Input{Request: "q", Results: allSuccess()})
	if !report.Fallback || report.Summary == "" {
		t.Fatalf("expected fallback summary, got %+v", report)
	}
}

func TestSynthesizeZeroSuccesses(t *testing.T) {
	t.Parallel()

	results := contractx.ResultSet{
		"review_analyst": timeout("review_analyst"),
		"market_analyst": {Capability: "market_analyst", Status: contractx.StatusFailure, Err: "boom"},
	}
	gen := &recordingGenerator{out: "should not be used"}
	report := newSynth(t, gen).Synthesize(context.Background(), Input{Request: "q", Results: results})

	if gen.calls != 0 {
		t.Fatal("oracle must not be called without successes")
	}
	if !report.Fallback || report.Confidence != 0 || report.ConfidenceLevel != contractx.ConfidenceLow {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Caveats) != 2 || !strings.Contains(report.Summary, "None of the consulted analysts") {
		t.Fatalf("unexpected fallback: %q %v", report.Summary, report.Caveats)
	}
}

func TestBuildFindingsOrder(t *testing.T) {
	t.Parallel()

	results := allSuccess()
	results["market_analyst"] = timeout("market_analyst")
	findings := BuildFindings(results, "review_analyst", catalog)

	got := []contractx.CapabilityID{findings[0].Capability, findings[1].Capability, findings[2].Capability}
	want := []contractx.CapabilityID{"review_analyst", "market_analyst", "purchase_analyst"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if findings[1].Status != contractx.StatusTimeout || findings[1].Err == "" || findings[1].Summary != "" {
		t.Fatalf("unexpected timeout finding: %+v", findings[1])
	}
	if findings[0].Name != "Review Analyst" {
		t.Fatalf("unexpected name: %q", findings[0].Name)
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	t.Parallel()

	stances := []contractx.Stance{contractx.StancePositive, contractx.StanceNegative, contractx.StanceNone, contractx.StanceMixed}
	qualities := []float64{0, 0.1, 0.5, 0.85, 1}
	ids := []contractx.CapabilityID{"a", "b", "c"}

	for _, q := range qualities {
		for _, s0 := range stances {
			for _, s1 := range stances {
				for _, s2 := range stances {
					base := contractx.ResultSet{
						"a": success("a", "x", q, s0),
						"b": success("b", "x", 0.8, s1),
						"c": success("c", "x", 0.6, s2),
					}
					full := Confidence(base)
					for _, drop := range ids {
						degraded := contractx.ResultSet{}
						for id, r := range base {
							degraded[id] = r
						}
						degraded[drop] = timeout(drop)
						if got := Confidence(degraded); got > full {
							t.Fatalf("dropping %s raised confidence %.3f -> %.3f (q=%v stances=%v,%v,%v)", drop, full, got, q, s0, s1, s2)
						}
					}
				}
			}
		}
	}
}

func TestConfidenceDisagreement(t *testing.T) {
	t.Parallel()

	agree := contractx.ResultSet{
		"a": success("a", "x", 0.8, contractx.StancePositive),
		"b": success("b", "x", 0.8, contractx.StancePositive),
	}
	disagree := contractx.ResultSet{
		"a": success("a", "x", 0.8, contractx.StancePositive),
		"b": success("b", "x", 0.8, contractx.StanceNegative),
	}
	if Confidence(disagree) >= Confidence(agree) {
		t.Fatalf("disagreement should lower confidence: %.2f >= %.2f", Confidence(disagree), Confidence(agree))
	}
	if Confidence(contractx.ResultSet{}) != 0 {
		t.Fatal("empty result set must score 0")
	}
}

func TestConfidenceLevelIgnoresSelfReportedQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		results contractx.ResultSet
		want    contractx.ConfidenceLevel
	}{
		{
			name: "modest analysts all answer",
			results: contractx.ResultSet{
				"review_analyst":   success("review_analyst", "x", 0.6, contractx.StanceNone),
				"market_analyst":   success("market_analyst", "x", 0.5, contractx.StanceNone),
				"purchase_analyst": success("purchase_analyst", "x", 0.6, contractx.StanceNone),
			},
			want: contractx.ConfidenceHigh,
		},
		{
			name: "general assistant only",
			results: contractx.ResultSet{
				"general_assistant": success("general_assistant", "x", 0.6, contractx.StanceNone),
			},
			want: contractx.ConfidenceHigh,
		},
		{
			name: "lowest quality all answer",
			results: contractx.ResultSet{
				"a": success("a", "x", 0.01, contractx.StancePositive),
				"b": success("b", "x", 0.01, contractx.StancePositive),
			},
			want: contractx.ConfidenceHigh,
		},
		{
			name: "one of four fails",
			results: contractx.ResultSet{
				"a": success("a", "x", 1, contractx.StanceNone),
				"b": success("b", "x", 1, contractx.StanceNone),
				"c": success("c", "x", 1, contractx.StanceNone),
				"d": timeout("d"),
			},
			want: contractx.ConfidenceMedium,
		},
		{
			name: "analysts disagree",
			results: contractx.ResultSet{
				"a": success("a", "x", 1, contractx.StancePositive),
				"b": success("b", "x", 1, contractx.StanceNegative),
				"c": success("c", "x", 1, contractx.StanceNone),
			},
			want: contractx.ConfidenceMedium,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			score := Confidence(tc.results)
			if got := Level(score); got != tc.want {
				t.Fatalf("level = %s (%.3f), want %s", got, score, tc.want)
			}
		})
	}

	better := contractx.ResultSet{"a": success("a", "x", 0.9, contractx.StanceNone)}
	worse := contractx.ResultSet{"a": success("a", "x", 0.4, contractx.StanceNone)}
	if Confidence(better) <= Confidence(worse) {
		t.Fatalf("quality should still order scores: %.3f <= %.3f", Confidence(better), Confidence(worse))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	successes := []contractx.Finding{
		{Capability: "review_analyst", Name: "Review Analyst", Status: contractx.StatusSuccess},
		{Capability: "market_analyst", Name: "Market Analyst", Status: contractx.StatusSuccess},
	}

	cases := map[string]bool{
		"REVIEW ANALYST and market analyst agree.":  true,
		"review_analyst found X; market_analyst Y.": true,
		"Review Analyst found X.":                   false,
		"   ":                                       false,
	}
	for text, ok := range cases {
		err := Validate(text, successes)
		if ok && err != nil {
			t.Fatalf("Validate(%q) error = %v", text, err)
		}
		if !ok && !errors.Is(err, contractx.ErrSynthesis) {
			t.Fatalf("Validate(%q) expected ErrSynthesis, got %v", text, err)
		}
	}
}
