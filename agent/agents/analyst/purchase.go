package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/pkg/places"
)

type purchaseAnalyst struct {
	gen     contractx.Generator
	dealers DealerFinder
}

// A failed dealer lookup degrades the payload instead of failing Respond.
func (a *purchaseAnalyst) Respond(ctx context.Context, subQuery string) (contractx.Payload, error) {
	req := ExtractRequirements(subQuery)

	var dealers []places.Dealer
	var lookupErr string
	if a.dealers != nil && req.Location != "" {
		found, err := a.dealers.FindDealers(ctx, req.Location)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("location", req.Location).Msg("dealer lookup failed")
			lookupErr = err.Error()
		} else {
			dealers = found
		}
	}

	summary, err := a.gen.Generate(ctx, purchaseInput(subQuery, req, dealers))
	if err != nil {
		return contractx.Payload{}, err
	}

	sources := make([]contractx.Source, 0, len(dealers))
	for _, d := range dealers {
		title := d.Name
		if d.Rating > 0 {
			title += fmt.Sprintf(" (%.1f/5, %d ratings)", d.Rating, d.TotalRatings)
		}
		sources = append(sources, contractx.Source{Title: title, Ref: d.Address})
	}

	data := map[string]any{
		"dealers_found": len(dealers),
	}
	if req.Budget > 0 {
		data["budget"] = req.Budget
	}
	if req.VehicleType != "" {
		data["vehicle_type"] = req.VehicleType
	}
	if len(req.Features) > 0 {
		data["required_features"] = req.Features
	}
	if req.Location != "" {
		data["location"] = req.Location
	}
	if lookupErr != "" {
		data["dealer_lookup_error"] = lookupErr
	}

	confidence := 0.6
	if req.Budget > 0 {
		confidence = 0.8
	}

	return contractx.Payload{
		Summary:    summary,
		Data:       data,
		Sources:    sources,
		Confidence: confidence,
	}, nil
}

func purchaseInput(query string, req Requirements, dealers []places.Dealer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nRequirements:\n", query)
	if req.Budget > 0 {
		fmt.Fprintf(&b, "- Budget: $%s\n", thousands(req.Budget))
	} else {
		b.WriteString("- Budget: not specified\n")
	}
	if req.VehicleType != "" {
		fmt.Fprintf(&b, "- Vehicle type: %s\n", req.VehicleType)
	}
	if len(req.Features) > 0 {
		fmt.Fprintf(&b, "- Required features: %s\n", strings.Join(req.Features, ", "))
	}
	if req.Location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", req.Location)
	}

	b.WriteString("\nDealerships:\n")
	if len(dealers) == 0 {
		b.WriteString("No dealer information available.\n")
		return b.String()
	}
	for i, d := range dealers {
		rating := "no rating"
		if d.Rating > 0 {
			rating = fmt.Sprintf("%.1f/5 (%d reviews)", d.Rating, d.TotalRatings)
		}
		fmt.Fprintf(&b, "%d. %s\n   Address: %s\n   Rating: %s\n", i+1, d.Name, d.Address, rating)
	}
	return b.String()
}

func thousands(n int) string {
	s := fmt.Sprint(n)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
