package analyst

import (
	"context"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

type generalAnalyst struct {
	gen contractx.Generator
}

func (a *generalAnalyst) Respond(ctx context.Context, subQuery string) (contractx.Payload, error) {
	answer, err := a.gen.Generate(ctx, subQuery)
	if err != nil {
		return contractx.Payload{}, err
	}
	return contractx.Payload{
		Summary:    answer,
		Confidence: 0.6,
		Stance:     contractx.StanceNone,
	}, nil
}
