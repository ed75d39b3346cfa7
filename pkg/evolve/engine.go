// Package evolve drives the evolutionary search: it seeds a population of
// random programs, scores them through the evaluator, selects parents,
// reproduces through the genetic operators, and replaces generations until a
// termination condition fires.
//
// The loop is strictly sequential across generations; a generation is never
// started before the previous one finished evaluating, which is what elitism
// and stagnation detection rely on. Within a generation, fitness evaluation
// fans out over the evaluator's worker pool. All randomness flows from the
// configured seed through one generator used only in the sequential phases
// (seeding, selection, reproduction); evaluation is pure, so pool scheduling
// cannot perturb a run and identical configurations reproduce identical
// results.
package evolve

import (
	"context"
	"math"
	"math/rand"

	"github.com/XiaoConstantine/stackgp-go/pkg/config"
	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
	"github.com/XiaoConstantine/stackgp-go/pkg/evaluator"
	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
	"github.com/XiaoConstantine/stackgp-go/pkg/logging"
	"github.com/XiaoConstantine/stackgp-go/pkg/operators"
	"github.com/XiaoConstantine/stackgp-go/pkg/vm"
)

// maxParentRetries bounds resampling for a distinct second parent. Selection
// samples with replacement, so the parent pool can collapse to copies of a
// single individual; after the retries a self-pairing is accepted so
// reproduction always terminates.
const maxParentRetries = 5

// Engine owns one evolution run: configuration, operators, evaluator, and the
// current population.
type Engine struct {
	cfg       *config.Config
	ops       *operators.Operators
	eval      *evaluator.Evaluator
	rng       *rand.Rand
	threshold float64
}

// New validates the configuration and assembles an engine for the given
// problem. Configuration errors fail fast here, before any generation runs.
func New(cfg *config.Config, problem evaluator.Problem) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	machine := vm.NewMachine(cfg.StepLimit)
	eval, err := evaluator.New(problem, machine,
		evaluator.WithLengthPenalty(cfg.LengthPenalty),
		evaluator.WithConcurrency(cfg.Concurrency),
		evaluator.WithBankSize(cfg.VarBankSize))
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	ops, err := operators.New(operators.Params{
		MinLen:        cfg.MinLen,
		MaxLen:        cfg.MaxLen,
		BankSize:      cfg.VarBankSize,
		LiteralMin:    cfg.LiteralMin,
		LiteralMax:    cfg.LiteralMax,
		MutationRate:  cfg.MutationRate,
		CrossoverRate: cfg.CrossoverRate,
	}, rng)
	if err != nil {
		return nil, err
	}

	threshold := cfg.FitnessThreshold
	if threshold <= 0 {
		// SolvedThreshold assumes the default sum-minus-parsimony aggregation;
		// a problem that aggregates its own scores sets the fitness scale, so
		// the solved bar must come from the configuration.
		if _, ok := problem.(evaluator.Aggregator); ok {
			return nil, errors.WithFields(
				errors.New(errors.ConfigurationError,
					"fitness_threshold must be set when the problem aggregates its own scores"),
				errors.Fields{"problem": problem.Name()})
		}
		// Any program matching every case exactly qualifies, regardless of
		// how much parsimony penalty its length costs it.
		threshold = eval.SolvedThreshold(cfg.MaxLen)
	}

	return &Engine{
		cfg:       cfg,
		ops:       ops,
		eval:      eval,
		rng:       rng,
		threshold: threshold,
	}, nil
}

// Run executes the evolution loop until solved, exhausted, or stagnated. The
// context is honored between generations and inside the evaluation pool;
// abandoned VM executions are cheap and side effect free to discard.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	logger := logging.GetLogger()
	logger.Info(ctx, "Starting evolution run: population_size=%d, max_generations=%d, selection=%s, seed=%d",
		e.cfg.PopulationSize, e.cfg.MaxGenerations, e.cfg.Selection, e.cfg.Seed)

	pop, err := e.seed()
	if err != nil {
		return nil, err
	}

	best := struct {
		program lang.Program
		id      string
		fitness float64
		foundAt int
	}{fitness: math.Inf(-1)}
	lastImproved := 0
	faultFractions := make([]float64, 0, e.cfg.MaxGenerations)

	for generation := 0; ; generation++ {
		if err := errors.CheckContext(ctx, "evolution run"); err != nil {
			return nil, err
		}
		gctx := logging.WithGeneration(ctx, generation)

		faultFraction, err := e.evaluate(gctx, pop)
		if err != nil {
			return nil, err
		}
		faultFractions = append(faultFractions, faultFraction)

		leader := pop.Best()
		if leader.Fitness > best.fitness {
			best.program = leader.Program
			best.id = leader.ID
			best.fitness = leader.Fitness
			best.foundAt = generation
			lastImproved = generation
			logger.Debug(gctx, "New best individual: id=%s, fitness=%.4f", leader.ID, leader.Fitness)
		}

		logger.Info(gctx, "Generation complete: best=%.4f, mean=%.4f, fault_fraction=%.2f",
			best.fitness, pop.MeanFitness(), faultFraction)

		result := func(reason TerminationReason) *Result {
			return &Result{
				Best:           best.program,
				BestID:         best.id,
				Fitness:        best.fitness,
				FoundAt:        best.foundAt,
				Generations:    generation + 1,
				Reason:         reason,
				FaultFractions: faultFractions,
			}
		}

		if best.fitness >= e.threshold {
			logger.Info(gctx, "Run solved: fitness=%.4f, threshold=%.4f", best.fitness, e.threshold)
			return result(ReasonSolved), nil
		}
		if generation >= e.cfg.MaxGenerations-1 {
			logger.Info(gctx, "Run exhausted after %d generations", generation+1)
			return result(ReasonExhausted), nil
		}
		if e.cfg.StagnationWindow > 0 && generation-lastImproved >= e.cfg.StagnationWindow {
			logger.Info(gctx, "Run stagnated: no improvement for %d generations", generation-lastImproved)
			return result(ReasonStagnated), nil
		}

		pop, err = e.nextGeneration(gctx, pop)
		if err != nil {
			return nil, err
		}
	}
}

// seed generates the initial population of uniformly random valid programs.
func (e *Engine) seed() (*Population, error) {
	members := make([]*Individual, e.cfg.PopulationSize)
	for i := range members {
		prog, err := e.ops.RandomProgram()
		if err != nil {
			return nil, err
		}
		members[i] = newIndividual(prog, 0)
	}
	return &Population{Members: members, Generation: 0}, nil
}

// evaluate scores every individual lacking a cached fitness and returns the
// fraction of the population failing on at least one case.
func (e *Engine) evaluate(ctx context.Context, pop *Population) (float64, error) {
	pending := make([]*Individual, 0, len(pop.Members))
	progs := make([]lang.Program, 0, len(pop.Members))
	for _, ind := range pop.Members {
		if !ind.Evaluated {
			pending = append(pending, ind)
			progs = append(progs, ind.Program)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	scores, faultFraction, err := e.eval.EvaluateAll(ctx, progs)
	if err != nil {
		return 0, err
	}
	for i, ind := range pending {
		ind.Fitness = scores[i].Fitness
		ind.Evaluated = true
	}
	return faultFraction, nil
}

// nextGeneration assembles the replacement population: elites carried forward
// unmodified, the rest bred from selected parents through crossover and
// mutation.
func (e *Engine) nextGeneration(ctx context.Context, pop *Population) (*Population, error) {
	parents := e.selectParents(pop)

	offspring := make([]*Individual, 0, e.cfg.PopulationSize)

	// Elites keep their identity, program, and cached fitness, which makes
	// the best fitness non-decreasing across the run.
	sorted := pop.sortedByFitness()
	for i := 0; i < e.cfg.ElitismCount && i < len(sorted); i++ {
		offspring = append(offspring, sorted[i])
	}

	for len(offspring) < e.cfg.PopulationSize {
		parent1 := parents[e.rng.Intn(len(parents))]
		parent2 := parents[e.rng.Intn(len(parents))]
		for retry := 0; parent2.ID == parent1.ID && retry < maxParentRetries; retry++ {
			parent2 = parents[e.rng.Intn(len(parents))]
		}

		prog1, prog2, err := e.ops.Crossover(parent1.Program, parent2.Program)
		if err != nil {
			return nil, err
		}
		prog1, err = e.ops.Mutate(prog1)
		if err != nil {
			return nil, err
		}
		prog2, err = e.ops.Mutate(prog2)
		if err != nil {
			return nil, err
		}

		offspring = append(offspring, newIndividual(prog1, pop.Generation+1, parent1.ID, parent2.ID))
		if len(offspring) < e.cfg.PopulationSize {
			offspring = append(offspring, newIndividual(prog2, pop.Generation+1, parent1.ID, parent2.ID))
		}
	}

	next := &Population{Members: offspring, Generation: pop.Generation + 1}
	if len(next.Members) != e.cfg.PopulationSize {
		return nil, errors.WithFields(
			errors.New(errors.Unknown, "population size invariant violated"),
			errors.Fields{"size": len(next.Members), "configured": e.cfg.PopulationSize})
	}
	logging.GetLogger().Debug(ctx, "Population replaced: offspring=%d, elites=%d",
		len(offspring), e.cfg.ElitismCount)
	return next, nil
}

// selectParents chooses the parent pool via the configured strategy. The pool
// is half the population, with a floor of two so reproduction always has a
// pair to draw from.
func (e *Engine) selectParents(pop *Population) []*Individual {
	count := e.cfg.PopulationSize / 2
	if count < 2 {
		count = 2
	}
	switch e.cfg.Selection {
	case config.SelectionRoulette:
		return e.rouletteSelection(pop, count)
	default:
		return e.tournamentSelection(pop, count)
	}
}

// tournamentSelection samples k individuals per slot and keeps the best.
// Robust to fitness-scale differences, which is why it is the default.
func (e *Engine) tournamentSelection(pop *Population, count int) []*Individual {
	selected := make([]*Individual, 0, count)
	for i := 0; i < count; i++ {
		best := pop.Members[e.rng.Intn(len(pop.Members))]
		for j := 1; j < e.cfg.TournamentSize; j++ {
			challenger := pop.Members[e.rng.Intn(len(pop.Members))]
			if challenger.Fitness > best.Fitness {
				best = challenger
			}
		}
		selected = append(selected, best)
	}
	return selected
}

// rouletteSelection picks individuals with probability proportional to
// fitness. The evaluator clamps fitness at zero, satisfying the strategy's
// non-negativity requirement; a population with zero total fitness falls back
// to uniform sampling.
func (e *Engine) rouletteSelection(pop *Population, count int) []*Individual {
	totalFitness := 0.0
	for _, ind := range pop.Members {
		totalFitness += ind.Fitness
	}

	selected := make([]*Individual, 0, count)
	if totalFitness == 0 {
		for i := 0; i < count; i++ {
			selected = append(selected, pop.Members[e.rng.Intn(len(pop.Members))])
		}
		return selected
	}

	for i := 0; i < count; i++ {
		spin := e.rng.Float64() * totalFitness
		cumulative := 0.0
		picked := false
		for _, ind := range pop.Members {
			cumulative += ind.Fitness
			if cumulative >= spin {
				selected = append(selected, ind)
				picked = true
				break
			}
		}
		// Rounding in the cumulative sum can leave it fractionally below the
		// spin; the last member takes the slot so the pool never shrinks.
		if !picked {
			selected = append(selected, pop.Members[len(pop.Members)-1])
		}
	}
	return selected
}
