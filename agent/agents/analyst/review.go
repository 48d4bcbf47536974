package analyst

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/pkg/reviewdb"
)

type reviewAnalyst struct {
	gen     contractx.Generator
	reviews ReviewSearcher
}

func (a *reviewAnalyst) Respond(ctx context.Context, subQuery string) (contractx.Payload, error) {
	found, err := a.reviews.Search(ctx, subQuery)
	if err != nil {
		return contractx.Payload{}, fmt.Errorf("%w: review search: %w", contractx.ErrProviderFailure, err)
	}

	summary, err := a.gen.Generate(ctx, reviewInput(subQuery, found))
	if err != nil {
		return contractx.Payload{}, err
	}

	var sum float64
	var rated int
	cars := make(map[string]struct{}, len(found))
	sources := make([]contractx.Source, 0, len(found))
	for _, r := range found {
		if r.Rating > 0 {
			sum += r.Rating
			rated++
		}
		cars[strings.TrimSpace(r.Make+" "+r.Model)] = struct{}{}
		sources = append(sources, reviewSource(r))
	}
	avg := 0.0
	if rated > 0 {
		avg = math.Round(sum/float64(rated)*100) / 100
	}

	covered := make([]string, 0, len(cars))
	for c := range cars {
		covered = append(covered, c)
	}
	sort.Strings(covered)

	return contractx.Payload{
		Summary: summary,
		Data: map[string]any{
			"reviews_analyzed": len(found),
			"average_rating":   avg,
			"rating_count":     rated,
			"cars_covered":     covered,
		},
		Sources:    sources,
		Confidence: reviewConfidence(len(found)),
		Stance:     RatingStance(avg, rated),
	}, nil
}

func reviewConfidence(n int) float64 {
	switch {
	case n >= 3:
		return 0.85
	case n > 0:
		return 0.6
	}
	return 0.3
}

func reviewInput(query string, reviews []reviewdb.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nOwner reviews:\n", query)
	if len(reviews) == 0 {
		b.WriteString("No owner reviews matched this question.\n")
		return b.String()
	}
	for i, r := range reviews {
		fmt.Fprintf(&b, "%d. %s", i+1, carLabel(r))
		if r.Rating > 0 {
			fmt.Fprintf(&b, " rated %.1f/5", r.Rating)
		}
		if r.Title != "" {
			fmt.Fprintf(&b, " - %s", r.Title)
		}
		fmt.Fprintf(&b, "\n   %s\n", strings.TrimSpace(r.Body))
	}
	return b.String()
}

func reviewSource(r reviewdb.Review) contractx.Source {
	s := contractx.Source{
		Title: carLabel(r) + " owner review",
		Ref:   r.Source,
	}
	if r.Rating > 0 {
		s.Title += fmt.Sprintf(" (%.1f/5)", r.Rating)
	}
	if !r.ReviewedAt.IsZero() {
		s.Date = r.ReviewedAt.Format("2006-01-02")
	}
	return s
}

func carLabel(r reviewdb.Review) string {
	label := strings.TrimSpace(r.Make + " " + r.Model)
	if r.Year > 0 {
		label = fmt.Sprintf("%d %s", r.Year, label)
	}
	return label
}
