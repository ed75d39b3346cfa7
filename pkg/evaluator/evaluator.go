// Package evaluator maps programs to scalar fitness scores by running them on
// the VM against a problem's test cases. Fitness is a pure function of
// (program, test-case set); the evaluator keeps no state between calls, which
// is what makes per-individual parallel evaluation safe.
package evaluator

import (
	"context"
	"math"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
	"github.com/XiaoConstantine/stackgp-go/pkg/vm"
)

// TestCase pairs an initial machine state with the expected top-of-stack
// value after execution.
type TestCase struct {
	Stack    []int64
	Vars     []int64
	Expected int64
}

// Problem supplies the test cases a program is scored against. Problems are
// pluggable; the evaluator depends only on this contract.
type Problem interface {
	Name() string
	Cases() []TestCase
}

// Aggregator reduces per-case scores to a total fitness. Implement this on a
// Problem to override the default sum-minus-parsimony aggregation.
type Aggregator interface {
	Aggregate(caseScores []float64, programLen int) float64
}

// Score is the result of evaluating one program.
type Score struct {
	Fitness float64
	// Failures counts the test cases on which the program faulted or timed
	// out, for per-generation diagnostics.
	Failures int
}

// Evaluator scores programs against a fixed test-case set.
type Evaluator struct {
	machine       *vm.Machine
	cases         []TestCase
	aggregate     Aggregator
	lengthPenalty float64
	concurrency   int
	bankSize      int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLengthPenalty sets the parsimony penalty subtracted per instruction.
// It must stay well below one case's maximum reward or the fitness-ordering
// guarantee between completing and faulting programs breaks.
func WithLengthPenalty(penalty float64) Option {
	return func(e *Evaluator) {
		e.lengthPenalty = penalty
	}
}

// WithConcurrency bounds the worker pool used by EvaluateAll.
func WithConcurrency(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithBankSize sets the variable bank size test cases are validated against.
// A case seeding more variables than the bank holds would be silently
// unreadable by every program, so New rejects it up front.
func WithBankSize(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.bankSize = n
		}
	}
}

// New creates an evaluator for the given problem. If the problem implements
// Aggregator its aggregation replaces the default.
func New(problem Problem, machine *vm.Machine, opts ...Option) (*Evaluator, error) {
	cases := problem.Cases()
	if len(cases) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "problem has no test cases"),
			errors.Fields{"problem": problem.Name()})
	}
	e := &Evaluator{
		machine:     machine,
		cases:       cases,
		concurrency: 1,
	}
	if agg, ok := problem.(Aggregator); ok {
		e.aggregate = agg
	}
	for _, opt := range opts {
		opt(e)
	}
	for i, tc := range cases {
		if len(tc.Vars) > e.bankSize {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "test case seeds more variables than the bank holds"),
				errors.Fields{"problem": problem.Name(), "case": i,
					"vars": len(tc.Vars), "bank_size": e.bankSize})
		}
	}
	return e, nil
}

// MaxFitness is the fitness of a program that matches every case exactly,
// before the parsimony penalty.
func (e *Evaluator) MaxFitness() float64 {
	return float64(len(e.cases))
}

// SolvedThreshold is the fitness a maximally long exact program is guaranteed
// to reach: MaxFitness minus the worst-case parsimony penalty.
func (e *Evaluator) SolvedThreshold(maxLen int) float64 {
	return e.MaxFitness() - e.lengthPenalty*float64(maxLen)
}

// CaseScore scores a single execution result against an expected value.
// Completing with the exact value earns the case's maximum reward 1.0; a
// numeric miss decays with distance; a fault, timeout, or empty final stack
// earns 0, strictly below any completing score, so faulting programs never
// outrank completing ones on a case.
func CaseScore(res vm.Result, expected int64) float64 {
	if res.Outcome != vm.Completed {
		return 0
	}
	actual, ok := res.Top()
	if !ok {
		return 0
	}
	if actual == expected {
		return 1.0
	}
	return 1.0 / (1.0 + distance(actual, expected))
}

// distance is |a-b| computed in float64 to stay total under int64 overflow.
func distance(a, b int64) float64 {
	return math.Abs(float64(a) - float64(b))
}

// Evaluate runs the program on every test case with a fresh machine state and
// reduces the case scores to a scalar fitness.
func (e *Evaluator) Evaluate(prog lang.Program) Score {
	caseScores := make([]float64, len(e.cases))
	failures := 0
	for i, tc := range e.cases {
		state := vm.NewState(prog.BankSize())
		state.Seed(tc.Stack...)
		copy(state.Vars, tc.Vars)

		res := e.machine.Run(prog, state)
		if res.Outcome != vm.Completed {
			failures++
		}
		caseScores[i] = CaseScore(res, tc.Expected)
	}

	fitness := 0.0
	if e.aggregate != nil {
		fitness = e.aggregate.Aggregate(caseScores, prog.Len())
	} else {
		for _, s := range caseScores {
			fitness += s
		}
		fitness -= e.lengthPenalty * float64(prog.Len())
	}
	// Roulette selection requires non-negative fitness.
	if fitness < 0 {
		fitness = 0
	}
	return Score{Fitness: fitness, Failures: failures}
}

// EvaluateAll scores a batch of programs across a bounded worker pool. Each
// evaluation is side effect free, so pool scheduling cannot perturb scores;
// results land at the index of their program. The second return value is the
// fraction of programs that failed on at least one case.
func (e *Evaluator) EvaluateAll(ctx context.Context, progs []lang.Program) ([]Score, float64, error) {
	scores := make([]Score, len(progs))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(e.concurrency)
	for i, prog := range progs {
		i, prog := i, prog
		p.Go(func(ctx context.Context) error {
			if err := errors.CheckContext(ctx, "evaluation"); err != nil {
				return err
			}
			scores[i] = e.Evaluate(prog)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, 0, err
	}

	failing := 0
	for _, s := range scores {
		if s.Failures > 0 {
			failing++
		}
	}
	fraction := 0.0
	if len(progs) > 0 {
		fraction = float64(failing) / float64(len(progs))
	}
	return scores, fraction, nil
}
