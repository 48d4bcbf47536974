package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/agent/planner"
)

type Planner interface {
	Decompose(ctx context.Context, request string, catalog planner.Catalog) (contractx.Plan, error)
}

func PlanRequest(
	ctx context.Context,
	in *GraphState,
	p Planner,
	catalog planner.Catalog,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	plan, err := p.Decompose(ctx, in.Request, catalog)
	if err != nil {
		return nil, err
	}

	in.Plan = plan
	return in, nil
}
