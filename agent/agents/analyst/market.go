package analyst

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/pkg/serpapi"
)

const newsQueryPrefix = "automotive cars "

type marketAnalyst struct {
	gen  contractx.Generator
	news NewsSearcher
}

func (a *marketAnalyst) Respond(ctx context.Context, subQuery string) (contractx.Payload, error) {
	items, err := a.news.SearchNews(ctx, newsQueryPrefix+subQuery)
	if err != nil {
		return contractx.Payload{}, fmt.Errorf("%w: news search: %w", contractx.ErrProviderFailure, err)
	}

	segment := Segment(subQuery)
	stance := HeadlineSentiment(items)

	summary, err := a.gen.Generate(ctx, marketInput(subQuery, segment, stance, items))
	if err != nil {
		return contractx.Payload{}, err
	}

	sources := make([]contractx.Source, 0, len(items))
	for _, it := range items {
		ref := it.Link
		if ref == "" {
			ref = it.Source
		}
		sources = append(sources, contractx.Source{Title: it.Title, Ref: ref, Date: it.Date})
	}

	confidence := 0.5
	if len(items) >= 3 {
		confidence = 0.75
	}

	return contractx.Payload{
		Summary: summary,
		Data: map[string]any{
			"news_count":        len(items),
			"overall_sentiment": string(stance),
			"market_segment":    segment,
		},
		Sources:    sources,
		Confidence: confidence,
		Stance:     stance,
	}, nil
}

func marketInput(query, segment string, stance contractx.Stance, items []serpapi.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\nMarket segment: %s\nHeadline sentiment: %s\n\nNews:\n", query, segment, stance)
	if len(items) == 0 {
		b.WriteString("No recent news available for this query.\n")
		return b.String()
	}
	for i, it := range items {
		source := it.Source
		if source == "" {
			source = "Unknown"
		}
		date := it.Date
		if date == "" {
			date = "Unknown date"
		}
		fmt.Fprintf(&b, "%d. %s\n   Source: %s | %s\n", i+1, it.Title, source, date)
		if it.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", it.Snippet)
		}
	}
	return b.String()
}
