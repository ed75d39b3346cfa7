// Package operators implements the genetic operators over stack programs:
// random generation, mutation, and crossover. Operators never mutate their
// inputs and never emit a structurally invalid program; jump-target repair
// happens here and only here.
//
// Mutation policy: applied at most once per offspring with probability equal
// to the mutation rate; the variant is chosen uniformly among point
// replacement, insertion, deletion, and operand resampling.
//
// Crossover policy: single-point recombination with independent cut points in
// each parent. Jump targets in a child are clamped into the child's bounds,
// so a spliced program always passes validation; cut-point pairs that would
// violate the length bounds are retried, and the parents pass through
// unchanged when no valid pair is found.
package operators

import (
	"math/rand"

	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
)

// maxRetries bounds repair attempts before an operator reports
// OperatorRepairFailure instead of emitting an invalid program.
const maxRetries = 10

// Params are the grammar and rate parameters the operators work within.
type Params struct {
	MinLen        int
	MaxLen        int
	BankSize      int
	LiteralMin    int64
	LiteralMax    int64
	MutationRate  float64
	CrossoverRate float64
}

// Operators holds the operator parameters and the run's random source. All
// randomness flows through the single seeded generator, keeping runs
// reproducible.
type Operators struct {
	params Params
	rng    *rand.Rand
}

// New creates an operator set. The rng must be the run's seeded generator.
func New(params Params, rng *rand.Rand) (*Operators, error) {
	if params.MinLen < 1 || params.MaxLen < params.MinLen {
		return nil, errors.WithFields(
			errors.New(errors.ConfigurationError, "invalid program length bounds"),
			errors.Fields{"min_len": params.MinLen, "max_len": params.MaxLen})
	}
	if params.LiteralMax < params.LiteralMin {
		return nil, errors.WithFields(
			errors.New(errors.ConfigurationError, "invalid literal range"),
			errors.Fields{"literal_min": params.LiteralMin, "literal_max": params.LiteralMax})
	}
	return &Operators{params: params, rng: rng}, nil
}

// randomOpcode samples an opcode, optionally restricted to a given operand
// arity (zero or one operand). LOAD and STORE are excluded when the variable
// bank is empty, since no valid slot operand exists for them.
func (o *Operators) randomOpcode(arity lang.OperandKind, matchArity bool) lang.Opcode {
	candidates := make([]lang.Opcode, 0, 16)
	for _, op := range lang.Opcodes() {
		kind := op.OperandKind()
		if o.params.BankSize == 0 && kind == lang.OperandSlot {
			continue
		}
		if matchArity && (kind == lang.OperandNone) != (arity == lang.OperandNone) {
			continue
		}
		candidates = append(candidates, op)
	}
	return candidates[o.rng.Intn(len(candidates))]
}

// randomOperand samples a valid operand for op within a program of the given
// length.
func (o *Operators) randomOperand(op lang.Opcode, progLen int) int64 {
	switch op.OperandKind() {
	case lang.OperandLiteral:
		span := o.params.LiteralMax - o.params.LiteralMin + 1
		return o.params.LiteralMin + o.rng.Int63n(span)
	case lang.OperandSlot:
		return int64(o.rng.Intn(o.params.BankSize))
	case lang.OperandTarget:
		return int64(o.rng.Intn(progLen))
	default:
		return 0
	}
}

// randomInstruction samples a uniformly random valid instruction for a
// program of the given length.
func (o *Operators) randomInstruction(progLen int) lang.Instruction {
	op := o.randomOpcode(lang.OperandNone, false)
	return lang.Instruction{Op: op, Arg: o.randomOperand(op, progLen)}
}

// RandomProgram generates a uniformly random valid program with length drawn
// from [MinLen, MaxLen]. Used to seed the initial population.
func (o *Operators) RandomProgram() (lang.Program, error) {
	length := o.params.MinLen + o.rng.Intn(o.params.MaxLen-o.params.MinLen+1)
	instrs := make([]lang.Instruction, length)
	for i := range instrs {
		instrs[i] = o.randomInstruction(length)
	}
	prog, err := lang.NewProgram(instrs, o.params.BankSize)
	if err != nil {
		return lang.Program{}, errors.Wrap(err, errors.OperatorRepairFailure,
			"random generation produced an invalid program")
	}
	return prog, nil
}

// Mutate returns a mutated copy of prog with probability MutationRate,
// otherwise prog unchanged. Every variant revalidates its result; a variant
// that cannot produce a valid program retries with fresh randomness before
// surfacing OperatorRepairFailure.
func (o *Operators) Mutate(prog lang.Program) (lang.Program, error) {
	if o.rng.Float64() >= o.params.MutationRate {
		return prog, nil
	}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var instrs []lang.Instruction
		switch o.rng.Intn(4) {
		case 0:
			instrs = o.pointMutation(prog)
		case 1:
			instrs = o.insertion(prog)
		case 2:
			instrs = o.deletion(prog)
		default:
			instrs = o.operandMutation(prog)
		}
		mutated, err := lang.NewProgram(instrs, o.params.BankSize)
		if err == nil {
			return mutated, nil
		}
		lastErr = err
	}
	return lang.Program{}, errors.Wrap(lastErr, errors.OperatorRepairFailure,
		"mutation could not produce a valid program")
}

// pointMutation replaces one instruction with a fresh valid instruction of
// matching arity.
func (o *Operators) pointMutation(prog lang.Program) []lang.Instruction {
	instrs := prog.Instructions()
	i := o.rng.Intn(len(instrs))
	op := o.randomOpcode(instrs[i].Op.OperandKind(), true)
	instrs[i] = lang.Instruction{Op: op, Arg: o.randomOperand(op, len(instrs))}
	return instrs
}

// insertion inserts a fresh instruction at a random position.
func (o *Operators) insertion(prog lang.Program) []lang.Instruction {
	if prog.Len() >= o.params.MaxLen {
		return o.pointMutation(prog)
	}
	old := prog.Instructions()
	pos := o.rng.Intn(len(old) + 1)
	return insertAt(old, pos, o.randomInstruction(len(old)+1))
}

// insertAt returns a copy of instrs with in inserted at pos. Jump targets
// that pointed at or past pos shift by +1 so they keep addressing the same
// instruction.
func insertAt(instrs []lang.Instruction, pos int, in lang.Instruction) []lang.Instruction {
	out := make([]lang.Instruction, 0, len(instrs)+1)
	out = append(out, instrs[:pos]...)
	out = append(out, in)
	out = append(out, instrs[pos:]...)

	for i := range out {
		if i == pos {
			continue
		}
		if out[i].Op.OperandKind() == lang.OperandTarget && out[i].Arg >= int64(pos) {
			out[i].Arg++
		}
	}
	return out
}

// deletion removes the instruction at a random position, keeping the length
// at or above MinLen.
func (o *Operators) deletion(prog lang.Program) []lang.Instruction {
	if prog.Len() <= o.params.MinLen {
		return o.pointMutation(prog)
	}
	old := prog.Instructions()
	return deleteAt(old, o.rng.Intn(len(old)))
}

// deleteAt returns a copy of instrs with position pos removed. Jump targets
// past pos shift by -1; a target that pointed at the removed position now
// addresses its successor, clamped to the last instruction when the
// successor no longer exists.
func deleteAt(instrs []lang.Instruction, pos int) []lang.Instruction {
	out := make([]lang.Instruction, 0, len(instrs)-1)
	out = append(out, instrs[:pos]...)
	out = append(out, instrs[pos+1:]...)

	last := int64(len(out) - 1)
	for i := range out {
		if out[i].Op.OperandKind() != lang.OperandTarget {
			continue
		}
		if out[i].Arg > int64(pos) {
			out[i].Arg--
		} else if out[i].Arg > last {
			out[i].Arg = last
		}
	}
	return out
}

// operandMutation resamples the operand of one instruction, leaving its
// opcode unchanged. Falls back to point mutation when no instruction carries
// an operand.
func (o *Operators) operandMutation(prog lang.Program) []lang.Instruction {
	instrs := prog.Instructions()
	withOperand := make([]int, 0, len(instrs))
	for i, in := range instrs {
		if in.Op.OperandKind() != lang.OperandNone {
			withOperand = append(withOperand, i)
		}
	}
	if len(withOperand) == 0 {
		return o.pointMutation(prog)
	}
	i := withOperand[o.rng.Intn(len(withOperand))]
	instrs[i].Arg = o.randomOperand(instrs[i].Op, len(instrs))
	return instrs
}

// Crossover recombines two parents into two children with probability
// CrossoverRate, otherwise returns the parents unchanged (programs are
// immutable, so no copy is needed). Children are built from prefix/suffix
// segments around independent cut points; each child's jump targets are
// clamped into its own bounds.
func (o *Operators) Crossover(a, b lang.Program) (lang.Program, lang.Program, error) {
	if o.rng.Float64() >= o.params.CrossoverRate {
		return a, b, nil
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		i := o.rng.Intn(a.Len() + 1)
		j := o.rng.Intn(b.Len() + 1)

		len1 := i + (b.Len() - j)
		len2 := j + (a.Len() - i)
		if len1 < o.params.MinLen || len1 > o.params.MaxLen ||
			len2 < o.params.MinLen || len2 > o.params.MaxLen {
			continue
		}

		child1, err := o.splice(a, b, i, j)
		if err != nil {
			return lang.Program{}, lang.Program{}, err
		}
		child2, err := o.splice(b, a, j, i)
		if err != nil {
			return lang.Program{}, lang.Program{}, err
		}
		return child1, child2, nil
	}
	// No cut-point pair satisfied the length bounds; the pair passes through.
	return a, b, nil
}

// splice builds head[:cutHead] + tail[cutTail:] and clamps jump targets into
// the child's range.
func (o *Operators) splice(head, tail lang.Program, cutHead, cutTail int) (lang.Program, error) {
	headInstrs := head.Instructions()
	tailInstrs := tail.Instructions()

	instrs := make([]lang.Instruction, 0, cutHead+len(tailInstrs)-cutTail)
	instrs = append(instrs, headInstrs[:cutHead]...)
	instrs = append(instrs, tailInstrs[cutTail:]...)

	last := int64(len(instrs) - 1)
	for i := range instrs {
		if instrs[i].Op.OperandKind() != lang.OperandTarget {
			continue
		}
		if instrs[i].Arg > last {
			instrs[i].Arg = last
		}
	}

	child, err := lang.NewProgram(instrs, o.params.BankSize)
	if err != nil {
		return lang.Program{}, errors.Wrap(err, errors.OperatorRepairFailure,
			"crossover produced an invalid child")
	}
	return child, nil
}
