package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/agent/synthesizer"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, in synthesizer.Input) contractx.Report
}

func SynthesizeReport(
	ctx context.Context,
	in *GraphState,
	synth Synthesizer,
) (*GraphState, error) {
	if in == nil || in.Results == nil {
		return nil, fmt.Errorf("%w: graph results are nil", contractx.ErrValidation)
	}

	in.Report = synth.Synthesize(ctx, synthesizer.Input{
		Request:  in.Request,
		Focus:    in.Plan.Focus(),
		Priority: in.Plan.Priority(),
		Results:  in.Results,
	})
	return in, nil
}
