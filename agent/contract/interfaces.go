package contract

import "context"

// Provider answers one sub-query for a single capability.
type Provider interface {
	Respond(ctx context.Context, subQuery string) (Payload, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, subQuery string) (Payload, error)

func (f ProviderFunc) Respond(ctx context.Context, subQuery string) (Payload, error) {
	return f(ctx, subQuery)
}

// Classifier is the classification oracle consumed by the planner. Its output is untrusted.
type Classifier interface {
	Classify(ctx context.Context, request string, capabilities []CapabilityDescriptor) (Classification, error)
}

// Generator is a text generation oracle. It never supplies structured facts.
type Generator interface {
	Generate(ctx context.Context, input string) (string, error)
}

type GeneratorFunc func(ctx context.Context, input string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}
