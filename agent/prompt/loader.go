package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/synthesizer.txt
	synthesizerRaw string

	//go:embed template/review.txt
	reviewRaw string

	//go:embed template/market.txt
	marketRaw string

	//go:embed template/purchase.txt
	purchaseRaw string

	//go:embed template/general.txt
	generalRaw string
)

// PromptSet holds loaded prompt content. Prompts must not contain braces: the eino
// backend renders them as FString templates.
type PromptSet struct {
	Classifier  string
	Synthesizer string
	Review      string
	Market      string
	Purchase    string
	General     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:  strings.TrimSpace(classifierRaw),
		Synthesizer: strings.TrimSpace(synthesizerRaw),
		Review:      strings.TrimSpace(reviewRaw),
		Market:      strings.TrimSpace(marketRaw),
		Purchase:    strings.TrimSpace(purchaseRaw),
		General:     strings.TrimSpace(generalRaw),
	}
}

func (p PromptSet) Validate() error {
	prompts := map[string]string{
		"classifier":  p.Classifier,
		"synthesizer": p.Synthesizer,
		"review":      p.Review,
		"market":      p.Market,
		"purchase":    p.Purchase,
		"general":     p.General,
	}
	for name, body := range prompts {
		if body == "" {
			return fmt.Errorf("%w: prompt=%s", contractx.ErrPromptMissing, name)
		}
		if strings.ContainsAny(body, "{}") {
			return fmt.Errorf("%w: prompt=%s contains template braces", contractx.ErrValidation, name)
		}
	}
	return nil
}
