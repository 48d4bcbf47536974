package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/pkg/places"
	"github.com/tanpawarit/parallel-analyst/pkg/reviewdb"
	"github.com/tanpawarit/parallel-analyst/pkg/serpapi"
)

// Kind is the closed set of analyst variants. A registry entry picks one by name.
type Kind string

const (
	KindReview   Kind = "review"
	KindMarket   Kind = "market"
	KindPurchase Kind = "purchase"
	KindGeneral  Kind = "general"
)

var ErrUnknownKind = errors.New("unknown analyst kind")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindReview, KindMarket, KindPurchase, KindGeneral:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type ReviewSearcher interface {
	Search(ctx context.Context, query string) ([]reviewdb.Review, error)
}

type NewsSearcher interface {
	SearchNews(ctx context.Context, query string) ([]serpapi.NewsItem, error)
}

type DealerFinder interface {
	FindDealers(ctx context.Context, location string) ([]places.Dealer, error)
}

// Deps carries the collaborators analysts call into. Each kind has its own generator
// so that it can run under its own system prompt and model.
type Deps struct {
	Generators map[Kind]contractx.Generator
	Reviews    ReviewSearcher
	News       NewsSearcher
	// Dealers is optional; without it the purchase analyst skips dealer lookup.
	Dealers DealerFinder
}

// New builds the provider for kind.
func New(kind Kind, deps Deps) (contractx.Provider, error) {
	gen := deps.Generators[kind]
	if gen == nil {
		return nil, fmt.Errorf("%w: no generator for analyst=%s", contractx.ErrValidation, kind)
	}

	switch kind {
	case KindReview:
		if deps.Reviews == nil {
			return nil, fmt.Errorf("%w: review analyst needs a review searcher", contractx.ErrValidation)
		}
		return &reviewAnalyst{gen: gen, reviews: deps.Reviews}, nil
	case KindMarket:
		if deps.News == nil {
			return nil, fmt.Errorf("%w: market analyst needs a news searcher", contractx.ErrValidation)
		}
		return &marketAnalyst{gen: gen, news: deps.News}, nil
	case KindPurchase:
		return &purchaseAnalyst{gen: gen, dealers: deps.Dealers}, nil
	case KindGeneral:
		return &generalAnalyst{gen: gen}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// BuildProviders creates a provider for every available capability. Capabilities
// whose analyst cannot be built are skipped and reported in the returned error;
// the executor turns a missing provider into a failure result.
func BuildProviders(caps []contractx.Capability, deps Deps) (map[contractx.CapabilityID]contractx.Provider, error) {
	out := make(map[contractx.CapabilityID]contractx.Provider, len(caps))
	var errs []error
	for _, c := range caps {
		kind, err := ParseKind(c.Provider)
		if err != nil {
			errs = append(errs, fmt.Errorf("capability=%s: %w", c.ID, err))
			continue
		}
		p, err := New(kind, deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("capability=%s: %w", c.ID, err))
			continue
		}
		out[c.ID] = p
	}
	return out, errors.Join(errs...)
}
