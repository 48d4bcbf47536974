package synthesizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

const maxSourcesPerSection = 5

// BuildContext assembles the structured merge context handed to the generation oracle.
// Everything factual in the final prose must come from here.
func BuildContext(in Input, findings []contractx.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Customer request: %s\n", strings.TrimSpace(in.Request))
	if focus := strings.TrimSpace(in.Focus); focus != "" {
		fmt.Fprintf(&b, "Answer focus: %s\n", focus)
	}
	if in.Priority != "" {
		for _, f := range findings {
			if f.Capability == in.Priority {
				fmt.Fprintf(&b, "Most important perspective: %s\n", f.Name)
				break
			}
		}
	}

	ok := successful(findings)
	fmt.Fprintf(&b, "Analysts consulted: %d, answered: %d\n", len(findings), len(ok))

	for _, f := range findings {
		fmt.Fprintf(&b, "\n=== %s (%s) ===\n", f.Name, f.Capability)
		if f.Status != contractx.StatusSuccess {
			fmt.Fprintf(&b, "UNAVAILABLE: %s", f.Status)
			if f.Err != "" {
				fmt.Fprintf(&b, " (%s)", f.Err)
			}
			b.WriteString("\n")
			continue
		}

		fmt.Fprintf(&b, "Findings: %s\n", strings.TrimSpace(f.Summary))
		res := in.Results[f.Capability]
		if res.Payload != nil {
			writeKeyData(&b, res.Payload.Data)
			if res.Payload.Stance != contractx.StanceNone {
				fmt.Fprintf(&b, "Overall stance: %s\n", res.Payload.Stance)
			}
		}
		writeSources(&b, f.Sources)
	}

	if caveats := Caveats(findings); len(caveats) > 0 {
		b.WriteString("\nCaveats:\n")
		for _, c := range caveats {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	return b.String()
}

func writeKeyData(b *strings.Builder, data map[string]any) {
	if len(data) == 0 {
		return
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("Key data:\n")
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, formatValue(data[k]))
	}
}

func writeSources(b *strings.Builder, sources []contractx.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(b, "Sources (%d):\n", len(sources))
	for i, s := range sources {
		if i == maxSourcesPerSection {
			fmt.Fprintf(b, "- ... and %d more\n", len(sources)-i)
			break
		}
		line := s.Title
		if s.Date != "" {
			line += " (" + s.Date + ")"
		}
		if s.Ref != "" {
			line += " " + s.Ref
		}
		fmt.Fprintf(b, "- %s\n", line)
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.2f", t)
	case float32, int, int64, int32, bool:
		return fmt.Sprint(t)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
