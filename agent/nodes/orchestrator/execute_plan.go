package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

type Executor interface {
	Execute(
		ctx context.Context,
		plan contractx.Plan,
		providers map[contractx.CapabilityID]contractx.Provider,
		deadline time.Duration,
	) contractx.ResultSet
}

// ExecutePlan never fails once a plan exists; degraded capabilities are carried
// in the result set.
func ExecutePlan(
	ctx context.Context,
	in *GraphState,
	exec Executor,
	providers map[contractx.CapabilityID]contractx.Provider,
	deadline time.Duration,
) (*GraphState, error) {
	if in == nil || in.Plan.Len() == 0 {
		return nil, fmt.Errorf("%w: graph plan is empty", contractx.ErrValidation)
	}

	in.Results = exec.Execute(ctx, in.Plan, providers, deadline)
	return in, nil
}
