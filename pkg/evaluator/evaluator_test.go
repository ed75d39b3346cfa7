package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
	"github.com/XiaoConstantine/stackgp-go/pkg/vm"
)

type fixedProblem struct {
	name  string
	cases []TestCase
}

func (p *fixedProblem) Name() string { return p.name }

func (p *fixedProblem) Cases() []TestCase { return p.cases }

func additionGrid(n int64) *fixedProblem {
	p := &fixedProblem{name: "addition"}
	for a := int64(0); a < n; a++ {
		for b := int64(0); b < n; b++ {
			p.cases = append(p.cases, TestCase{Stack: []int64{a, b}, Expected: a + b})
		}
	}
	return p
}

func mustProgram(t *testing.T, instrs ...lang.Instruction) lang.Program {
	t.Helper()
	prog, err := lang.NewProgram(instrs, 0)
	require.NoError(t, err)
	return prog
}

func TestExactMatchEarnsMaxReward(t *testing.T) {
	eval, err := New(additionGrid(10), vm.NewMachine(100))
	require.NoError(t, err)

	// [ADD, HALT] leaves a+b on top for every case in the grid.
	prog := mustProgram(t, lang.Instruction{Op: lang.ADD}, lang.Instruction{Op: lang.HALT})

	score := eval.Evaluate(prog)

	assert.Equal(t, eval.MaxFitness(), score.Fitness)
	assert.Equal(t, 0, score.Failures)
}

func TestCaseScoreClassification(t *testing.T) {
	machine := vm.NewMachine(100)

	tests := []struct {
		name     string
		prog     lang.Program
		stack    []int64
		expected int64
		score    float64
	}{
		{
			name:     "exact match",
			prog:     mustProgram(t, lang.Instruction{Op: lang.ADD}, lang.Instruction{Op: lang.HALT}),
			stack:    []int64{2, 3},
			expected: 5,
			score:    1.0,
		},
		{
			name:     "off by one decays",
			prog:     mustProgram(t, lang.Instruction{Op: lang.PUSH, Arg: 6}, lang.Instruction{Op: lang.HALT}),
			stack:    nil,
			expected: 5,
			score:    0.5,
		},
		{
			name:     "fault scores zero",
			prog:     mustProgram(t, lang.Instruction{Op: lang.POP}, lang.Instruction{Op: lang.HALT}),
			stack:    nil,
			expected: 0,
			score:    0,
		},
		{
			name:     "empty final stack scores zero",
			prog:     mustProgram(t, lang.Instruction{Op: lang.HALT}),
			stack:    nil,
			expected: 0,
			score:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := vm.NewState(0).Seed(tt.stack...)
			res := machine.Run(tt.prog, state)
			assert.InDelta(t, tt.score, CaseScore(res, tt.expected), 1e-9)
		})
	}
}

// A program that completes exactly on every case must outrank any program
// that faults on any case, no matter how well the faulting one does
// elsewhere.
func TestFitnessOrdering(t *testing.T) {
	eval, err := New(additionGrid(10), vm.NewMachine(100),
		WithLengthPenalty(0.001))
	require.NoError(t, err)

	exact := mustProgram(t, lang.Instruction{Op: lang.ADD}, lang.Instruction{Op: lang.HALT})
	// Faults whenever the stack holds fewer than three values; first case
	// (0,0) has two, so POP POP POP underflows everywhere.
	faulting := mustProgram(t,
		lang.Instruction{Op: lang.POP},
		lang.Instruction{Op: lang.POP},
		lang.Instruction{Op: lang.POP},
	)

	exactScore := eval.Evaluate(exact)
	faultingScore := eval.Evaluate(faulting)

	assert.Greater(t, exactScore.Fitness, faultingScore.Fitness)
	assert.Positive(t, faultingScore.Failures)
}

func TestParsimonyPenalty(t *testing.T) {
	eval, err := New(additionGrid(4), vm.NewMachine(100),
		WithLengthPenalty(0.01))
	require.NoError(t, err)

	short := mustProgram(t, lang.Instruction{Op: lang.ADD}, lang.Instruction{Op: lang.HALT})
	long := mustProgram(t,
		lang.Instruction{Op: lang.ADD},
		lang.Instruction{Op: lang.PUSH, Arg: 0},
		lang.Instruction{Op: lang.POP},
		lang.Instruction{Op: lang.HALT},
	)

	shortScore := eval.Evaluate(short)
	longScore := eval.Evaluate(long)

	// Both match exactly; the longer one pays for its extra instructions.
	assert.InDelta(t, 0.02, shortScore.Fitness-longScore.Fitness, 1e-9)
}

func TestEvaluateAllMatchesSequential(t *testing.T) {
	eval, err := New(additionGrid(6), vm.NewMachine(100),
		WithConcurrency(4))
	require.NoError(t, err)

	progs := []lang.Program{
		mustProgram(t, lang.Instruction{Op: lang.ADD}, lang.Instruction{Op: lang.HALT}),
		mustProgram(t, lang.Instruction{Op: lang.SUB}, lang.Instruction{Op: lang.HALT}),
		mustProgram(t, lang.Instruction{Op: lang.POP}),
		mustProgram(t, lang.Instruction{Op: lang.PUSH, Arg: 3}, lang.Instruction{Op: lang.HALT}),
	}

	scores, faultFraction, err := eval.EvaluateAll(context.Background(), progs)
	require.NoError(t, err)
	require.Len(t, scores, len(progs))

	for i, prog := range progs {
		assert.Equal(t, eval.Evaluate(prog), scores[i], "program %d", i)
	}
	// Every case seeds two values, so even the bare POP program completes.
	assert.Equal(t, 0.0, faultFraction)
}

func TestEvaluateAllHonorsCancellation(t *testing.T) {
	eval, err := New(additionGrid(10), vm.NewMachine(1000),
		WithConcurrency(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progs := []lang.Program{
		mustProgram(t, lang.Instruction{Op: lang.ADD}, lang.Instruction{Op: lang.HALT}),
	}
	_, _, err = eval.EvaluateAll(ctx, progs)
	assert.Error(t, err)
}

func TestEmptyProblemRejected(t *testing.T) {
	_, err := New(&fixedProblem{name: "empty"}, vm.NewMachine(100))
	assert.Error(t, err)
}

func TestOversizedCaseVarsRejected(t *testing.T) {
	problem := &fixedProblem{
		name:  "vars",
		cases: []TestCase{{Vars: []int64{3, 4}, Expected: 3}},
	}

	// Two seeded variables cannot fit a one-slot bank.
	_, err := New(problem, vm.NewMachine(100), WithBankSize(1))
	require.Error(t, err)
	var structured *errors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, errors.InvalidInput, structured.Code())

	_, err = New(problem, vm.NewMachine(100), WithBankSize(2))
	assert.NoError(t, err)
}
