package orchestratornode

import (
	"fmt"
	"time"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

func FinalizeReport(in *GraphState, nowFn func() time.Time) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if len(in.Report.Findings) != in.Plan.Len() {
		return GraphOutput{}, fmt.Errorf("%w: report has %d findings for %d planned capabilities",
			contractx.ErrValidation, len(in.Report.Findings), in.Plan.Len())
	}

	report := in.Report
	report.RequestID = in.RequestID
	report.Request = in.Request
	report.Elapsed = nowFn().Sub(in.Started)
	return GraphOutput{Report: report}, nil
}
