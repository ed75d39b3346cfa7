package lang

import (
	"strings"

	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
)

// Program is a finite ordered sequence of instructions validated against a
// variable bank size. Programs are immutable once constructed; genetic
// operators build new instruction slices and construct fresh Programs, so
// concurrent read access during fitness evaluation is always safe.
type Program struct {
	instrs   []Instruction
	bankSize int
}

// NewProgram validates raw instructions and constructs a Program. Validation
// failures return a MalformedProgram error, never a silently coerced program.
func NewProgram(instrs []Instruction, bankSize int) (Program, error) {
	if err := Validate(instrs, bankSize); err != nil {
		return Program{}, err
	}
	copied := make([]Instruction, len(instrs))
	copy(copied, instrs)
	return Program{instrs: copied, bankSize: bankSize}, nil
}

// Validate checks the structural invariants of an instruction sequence:
// every opcode is a member of the instruction set, slot operands lie within
// [0, bankSize), and jump targets lie within [0, len(instrs)).
func Validate(instrs []Instruction, bankSize int) error {
	if bankSize < 0 {
		return errors.WithFields(
			errors.New(errors.MalformedProgram, "negative variable bank size"),
			errors.Fields{"bank_size": bankSize})
	}
	for i, in := range instrs {
		if !in.Op.Valid() {
			return errors.WithFields(
				errors.New(errors.MalformedProgram, "unknown opcode"),
				errors.Fields{"position": i, "opcode": uint8(in.Op)})
		}
		switch in.Op.OperandKind() {
		case OperandSlot:
			if in.Arg < 0 || in.Arg >= int64(bankSize) {
				return errors.WithFields(
					errors.New(errors.MalformedProgram, "variable slot out of range"),
					errors.Fields{"position": i, "slot": in.Arg, "bank_size": bankSize})
			}
		case OperandTarget:
			if in.Arg < 0 || in.Arg >= int64(len(instrs)) {
				return errors.WithFields(
					errors.New(errors.MalformedProgram, "jump target out of range"),
					errors.Fields{"position": i, "target": in.Arg, "length": len(instrs)})
			}
		}
	}
	return nil
}

// Len returns the number of instructions.
func (p Program) Len() int {
	return len(p.instrs)
}

// At returns the instruction at position i.
func (p Program) At(i int) Instruction {
	return p.instrs[i]
}

// BankSize returns the variable bank size the program was validated against.
func (p Program) BankSize() int {
	return p.bankSize
}

// Instructions returns a copy of the instruction sequence. Mutating the
// returned slice does not affect the program.
func (p Program) Instructions() []Instruction {
	copied := make([]Instruction, len(p.instrs))
	copy(copied, p.instrs)
	return copied
}

// String renders the program in its text form, one instruction per line.
func (p Program) String() string {
	var b strings.Builder
	for i, in := range p.instrs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(in.String())
	}
	return b.String()
}
