package synthesizer

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

// Validate checks that text is non-blank and names every successful capability,
// by display name or id, ignoring case. Underscores in ids may be written as spaces.
func Validate(text string, successes []contractx.Finding) error {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return fmt.Errorf("%w: empty synthesis", contractx.ErrSynthesis)
	}

	var missing []string
	for _, f := range successes {
		if !mentions(lower, f) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: synthesis does not mention %s", contractx.ErrSynthesis, strings.Join(missing, ", "))
	}
	return nil
}

func mentions(lowerText string, f contractx.Finding) bool {
	id := strings.ToLower(string(f.Capability))
	candidates := []string{
		strings.ToLower(f.Name),
		id,
		strings.ReplaceAll(id, "_", " "),
	}
	for _, c := range candidates {
		if c != "" && strings.Contains(lowerText, c) {
			return true
		}
	}
	return false
}
