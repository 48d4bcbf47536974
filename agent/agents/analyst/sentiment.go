package analyst

import (
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/pkg/serpapi"
)

var (
	positiveTerms = []string{
		"surge", "soar", "rise", "rising", "gain", "growth", "strong", "record",
		"boost", "beat", "demand", "popular", "improve", "rebound", "incentive", "discount",
	}
	negativeTerms = []string{
		"fall", "falling", "drop", "decline", "slump", "weak", "loss", "cut",
		"recall", "shortage", "lawsuit", "delay", "tariff", "probe", "defect", "layoff",
	}
)

// HeadlineSentiment classifies news by counting lexicon hits in titles and snippets.
// Each item votes once; a narrow margin with votes on both sides is mixed.
func HeadlineSentiment(items []serpapi.NewsItem) contractx.Stance {
	var pos, neg int
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Snippet)
		switch score := countTerms(text, positiveTerms) - countTerms(text, negativeTerms); {
		case score > 0:
			pos++
		case score < 0:
			neg++
		}
	}

	switch {
	case pos == 0 && neg == 0:
		return contractx.StanceNeutral
	case pos > 0 && neg > 0 && abs(pos-neg) <= 1:
		return contractx.StanceMixed
	case pos > neg:
		return contractx.StancePositive
	case neg > pos:
		return contractx.StanceNegative
	}
	return contractx.StanceMixed
}

func countTerms(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

// RatingStance maps an average 5-point rating onto a stance.
func RatingStance(avg float64, count int) contractx.Stance {
	switch {
	case count == 0:
		return contractx.StanceNone
	case avg >= 4:
		return contractx.StancePositive
	case avg <= 2.5:
		return contractx.StanceNegative
	}
	return contractx.StanceMixed
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
