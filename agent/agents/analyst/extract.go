package analyst

import (
	"regexp"
	"strconv"
	"strings"
)

// Requirements are the purchase constraints found in a buyer's question.
type Requirements struct {
	Budget      int      `json:"budget,omitempty"`
	VehicleType string   `json:"vehicle_type,omitempty"`
	Features    []string `json:"required_features,omitempty"`
	Location    string   `json:"location,omitempty"`
}

type keyword struct {
	pattern *regexp.Regexp
	label   string
}

func word(w string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
}

// maxBudget is the largest budget taken at face value; anything above it is noise.
const maxBudget = 100_000_000

var (
	// Bare four-digit numbers are skipped: they are usually model years.
	budgetPattern   = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?k?\b|\b\d+(?:\.\d+)?k\b|\b\d{1,3}(?:,\d{3})+\b|\b\d{5,}\b`)
	locationPattern = regexp.MustCompile(`(?i:\b(?:near|around|close to|in)\b)\s+([A-Z][A-Za-z.'-]*(?:,?\s+[A-Z][A-Za-z.'-]*)*)`)

	vehicleTypes = []keyword{
		{word("suv"), "SUV"},
		{word("sedan"), "Sedan"},
		{word("truck"), "Pickup Truck"},
		{word("minivan"), "Minivan"},
		{word("coupe"), "Coupe"},
		{word("hatchback"), "Hatchback"},
		{word("convertible"), "Convertible"},
		{word("wagon"), "Station Wagon"},
	}

	features = []keyword{
		{word("awd"), "awd"},
		{word("4wd"), "4wd"},
		{word("leather"), "leather"},
		{word("sunroof"), "sunroof"},
		{word("navigation"), "navigation"},
		{word("hybrid"), "hybrid"},
		{word("electric"), "electric"},
		{word("ev"), "ev"},
		{word("safety"), "safety"},
		{word("carplay"), "carplay"},
		{word("heated seats"), "heated seats"},
	}

	segments = []keyword{
		{word("suv"), "SUV/Crossover"},
		{word("crossover"), "SUV/Crossover"},
		{word("sedan"), "Sedan"},
		{word("truck"), "Pickup Truck"},
		{word("ev"), "Electric Vehicle"},
		{word("electric"), "Electric Vehicle"},
		{word("hybrid"), "Hybrid"},
		{word("luxury"), "Luxury"},
		{word("compact"), "Compact"},
		{word("sports"), "Sports Car"},
	}
)

const generalSegment = "General Automotive"

func ExtractRequirements(query string) Requirements {
	lower := strings.ToLower(query)
	var req Requirements

	if m := budgetPattern.FindString(lower); m != "" {
		req.Budget = parseBudget(m)
	}
	for _, vt := range vehicleTypes {
		if vt.pattern.MatchString(lower) {
			req.VehicleType = vt.label
			break
		}
	}
	for _, f := range features {
		if f.pattern.MatchString(lower) {
			req.Features = append(req.Features, f.label)
		}
	}
	if m := locationPattern.FindStringSubmatch(query); m != nil {
		req.Location = strings.TrimRight(strings.TrimSpace(m[1]), ",.")
	}
	return req
}

func parseBudget(s string) int {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	mult := 1.0
	if strings.HasSuffix(s, "k") {
		mult = 1000
		s = strings.TrimSuffix(s, "k")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v*mult > maxBudget {
		return 0
	}
	return int(v * mult)
}

// Segment maps a query onto a market segment.
func Segment(query string) string {
	lower := strings.ToLower(query)
	for _, s := range segments {
		if s.pattern.MatchString(lower) {
			return s.label
		}
	}
	return generalSegment
}
