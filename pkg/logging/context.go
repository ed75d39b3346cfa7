package logging

import "context"

type contextKey string

const (
	generationKey  contextKey = "generation"
	bestFitnessKey contextKey = "best_fitness"
)

// WithGeneration annotates a context with the current generation index so log
// entries emitted under it carry the generation.
func WithGeneration(ctx context.Context, generation int) context.Context {
	return context.WithValue(ctx, generationKey, generation)
}

// GetGeneration extracts the generation index from a context.
func GetGeneration(ctx context.Context) (int, bool) {
	gen, ok := ctx.Value(generationKey).(int)
	return gen, ok
}

// WithBestFitness annotates a context with the best fitness observed so far.
func WithBestFitness(ctx context.Context, fitness float64) context.Context {
	return context.WithValue(ctx, bestFitnessKey, fitness)
}

// GetBestFitness extracts the best fitness from a context.
func GetBestFitness(ctx context.Context) (float64, bool) {
	best, ok := ctx.Value(bestFitnessKey).(float64)
	return best, ok
}
