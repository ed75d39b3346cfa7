package operators

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
)

func testParams() Params {
	return Params{
		MinLen:        1,
		MaxLen:        16,
		BankSize:      4,
		LiteralMin:    -10,
		LiteralMax:    10,
		MutationRate:  1.0,
		CrossoverRate: 1.0,
	}
}

func newTestOperators(t *testing.T, seed int64) *Operators {
	t.Helper()
	ops, err := New(testParams(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return ops
}

func TestNewRejectsBadParams(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	badLen := testParams()
	badLen.MinLen = 8
	badLen.MaxLen = 4
	_, err := New(badLen, rng)
	assert.Error(t, err)

	badLit := testParams()
	badLit.LiteralMin = 5
	badLit.LiteralMax = -5
	_, err = New(badLit, rng)
	assert.Error(t, err)
}

func TestRandomProgramsAreValid(t *testing.T) {
	ops := newTestOperators(t, 7)
	params := testParams()

	for i := 0; i < 500; i++ {
		prog, err := ops.RandomProgram()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, prog.Len(), params.MinLen)
		assert.LessOrEqual(t, prog.Len(), params.MaxLen)
		assert.NoError(t, lang.Validate(prog.Instructions(), params.BankSize))
	}
}

// Validity closure: any valid program pushed through any operator stays
// structurally valid.
func TestMutationValidityClosure(t *testing.T) {
	ops := newTestOperators(t, 11)
	params := testParams()

	for i := 0; i < 1000; i++ {
		prog, err := ops.RandomProgram()
		require.NoError(t, err)

		mutated, err := ops.Mutate(prog)
		require.NoError(t, err)
		assert.NoError(t, lang.Validate(mutated.Instructions(), params.BankSize))
		assert.GreaterOrEqual(t, mutated.Len(), params.MinLen)
		assert.LessOrEqual(t, mutated.Len(), params.MaxLen)
	}
}

func TestCrossoverValidityClosure(t *testing.T) {
	ops := newTestOperators(t, 13)
	params := testParams()

	for i := 0; i < 1000; i++ {
		a, err := ops.RandomProgram()
		require.NoError(t, err)
		b, err := ops.RandomProgram()
		require.NoError(t, err)

		c1, c2, err := ops.Crossover(a, b)
		require.NoError(t, err)
		for _, child := range []lang.Program{c1, c2} {
			assert.NoError(t, lang.Validate(child.Instructions(), params.BankSize))
			assert.GreaterOrEqual(t, child.Len(), params.MinLen)
			assert.LessOrEqual(t, child.Len(), params.MaxLen)
		}
	}
}

func TestOperatorsDoNotMutateInputs(t *testing.T) {
	ops := newTestOperators(t, 17)

	a, err := ops.RandomProgram()
	require.NoError(t, err)
	b, err := ops.RandomProgram()
	require.NoError(t, err)
	aBefore := a.Instructions()
	bBefore := b.Instructions()

	for i := 0; i < 50; i++ {
		_, err = ops.Mutate(a)
		require.NoError(t, err)
		_, _, err = ops.Crossover(a, b)
		require.NoError(t, err)
	}

	assert.Equal(t, aBefore, a.Instructions())
	assert.Equal(t, bBefore, b.Instructions())
}

func TestZeroRatesPassThrough(t *testing.T) {
	params := testParams()
	params.MutationRate = 0
	params.CrossoverRate = 0
	ops, err := New(params, rand.New(rand.NewSource(19)))
	require.NoError(t, err)

	prog, err := ops.RandomProgram()
	require.NoError(t, err)

	same, err := ops.Mutate(prog)
	require.NoError(t, err)
	assert.Equal(t, prog.Instructions(), same.Instructions())

	c1, c2, err := ops.Crossover(prog, prog)
	require.NoError(t, err)
	assert.Equal(t, prog.Instructions(), c1.Instructions())
	assert.Equal(t, prog.Instructions(), c2.Instructions())
}

// Deleting position 2 of a 5-instruction program must rewrite a JZ 4 into
// JZ 3: the target past the deletion shifts down with the code it addresses.
func TestDeletionRepairsJumpTargets(t *testing.T) {
	instrs := []lang.Instruction{
		{Op: lang.PUSH, Arg: 1}, // 0
		{Op: lang.JZ, Arg: 4},   // 1
		{Op: lang.PUSH, Arg: 2}, // 2: deleted
		{Op: lang.ADD},          // 3
		{Op: lang.HALT},         // 4
	}

	out := deleteAt(instrs, 2)

	require.Len(t, out, 4)
	assert.Equal(t, lang.Instruction{Op: lang.JZ, Arg: 3}, out[1])
	assert.NoError(t, lang.Validate(out, 0))
}

func TestDeletionClampsDanglingTarget(t *testing.T) {
	instrs := []lang.Instruction{
		{Op: lang.JMP, Arg: 1}, // 0: points at the instruction being removed
		{Op: lang.HALT},        // 1: deleted
	}

	out := deleteAt(instrs, 1)

	require.Len(t, out, 1)
	assert.Equal(t, lang.Instruction{Op: lang.JMP, Arg: 0}, out[0])
	assert.NoError(t, lang.Validate(out, 0))
}

func TestInsertionShiftsJumpTargets(t *testing.T) {
	instrs := []lang.Instruction{
		{Op: lang.JZ, Arg: 2}, // 0
		{Op: lang.ADD},        // 1
		{Op: lang.HALT},       // 2
	}

	out := insertAt(instrs, 1, lang.Instruction{Op: lang.DUP})

	require.Len(t, out, 4)
	// The target pointed past the insertion point and follows its code.
	assert.Equal(t, lang.Instruction{Op: lang.JZ, Arg: 3}, out[0])
	assert.Equal(t, lang.Instruction{Op: lang.DUP}, out[1])
	assert.NoError(t, lang.Validate(out, 0))
}

func TestInsertionBeforeTargetKeepsAddressing(t *testing.T) {
	instrs := []lang.Instruction{
		{Op: lang.JMP, Arg: 0}, // self-loop at 0
		{Op: lang.HALT},
	}

	out := insertAt(instrs, 0, lang.Instruction{Op: lang.PUSH, Arg: 5})

	require.Len(t, out, 3)
	// The old self-loop moved to index 1 and its target shifted with it.
	assert.Equal(t, lang.Instruction{Op: lang.JMP, Arg: 1}, out[1])
	assert.NoError(t, lang.Validate(out, 0))
}

func TestPointMutationPreservesArity(t *testing.T) {
	ops := newTestOperators(t, 23)

	prog, err := lang.NewProgram([]lang.Instruction{
		{Op: lang.PUSH, Arg: 3},
		{Op: lang.ADD},
		{Op: lang.HALT},
	}, ops.params.BankSize)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		out := ops.pointMutation(prog)
		require.Len(t, out, prog.Len())
		for j, in := range out {
			origKind := prog.At(j).Op.OperandKind()
			newKind := in.Op.OperandKind()
			assert.Equal(t, origKind == lang.OperandNone, newKind == lang.OperandNone,
				"position %d changed arity", j)
		}
	}
}
