package synthesizer

import (
	"fmt"
	"sort"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

// Catalog resolves display names. *capability.Registry implements it.
type Catalog interface {
	Lookup(id contractx.CapabilityID) (contractx.Capability, bool)
}

func displayName(catalog Catalog, id contractx.CapabilityID) string {
	if catalog != nil {
		if c, ok := catalog.Lookup(id); ok && c.Name != "" {
			return c.Name
		}
	}
	return string(id)
}

// BuildFindings returns one finding per result: the priority capability first, then by id.
func BuildFindings(results contractx.ResultSet, priority contractx.CapabilityID, catalog Catalog) []contractx.Finding {
	ids := results.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i] == priority && ids[j] != priority
	})

	findings := make([]contractx.Finding, 0, len(ids))
	for _, id := range ids {
		res := results[id]
		f := contractx.Finding{
			Capability: id,
			Name:       displayName(catalog, id),
			Status:     res.Status,
			Latency:    res.Latency,
		}
		if res.OK() {
			f.Summary = res.Payload.Summary
			f.Sources = append([]contractx.Source(nil), res.Payload.Sources...)
		} else {
			// Normalize so a success without payload is still reported as unusable.
			if f.Status == contractx.StatusSuccess {
				f.Status = contractx.StatusFailure
			}
			f.Err = res.Err
		}
		findings = append(findings, f)
	}
	return findings
}

// Caveats names every capability that did not produce a usable answer.
func Caveats(findings []contractx.Finding) []string {
	var out []string
	for _, f := range findings {
		switch f.Status {
		case contractx.StatusSuccess:
			continue
		case contractx.StatusTimeout:
			out = append(out, fmt.Sprintf("%s did not answer in time; its perspective is missing.", f.Name))
		default:
			if f.Err != "" {
				out = append(out, fmt.Sprintf("%s failed (%s); its perspective is missing.", f.Name, f.Err))
			} else {
				out = append(out, fmt.Sprintf("%s failed; its perspective is missing.", f.Name))
			}
		}
	}
	return out
}

func successful(findings []contractx.Finding) []contractx.Finding {
	out := make([]contractx.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Status == contractx.StatusSuccess {
			out = append(out, f)
		}
	}
	return out
}
