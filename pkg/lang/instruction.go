package lang

import "fmt"

// Opcode is a named operation in the stack language's fixed instruction set.
// The set is a closed, versioned enum: new operations are additive variants
// appended before numOpcodes, never a renumbering of existing ones.
type Opcode uint8

const (
	PUSH Opcode = iota // push literal operand
	POP                // discard top of stack
	ADD
	SUB
	MUL
	DIV // integer division, truncating toward zero
	DUP
	SWAP
	LOAD  // push variable slot operand
	STORE // pop into variable slot operand
	JMP   // unconditional jump to target operand
	JZ    // jump to target operand if top of stack is zero (top is popped)
	HALT

	numOpcodes
)

var opcodeNames = [...]string{
	PUSH:  "PUSH",
	POP:   "POP",
	ADD:   "ADD",
	SUB:   "SUB",
	MUL:   "MUL",
	DIV:   "DIV",
	DUP:   "DUP",
	SWAP:  "SWAP",
	LOAD:  "LOAD",
	STORE: "STORE",
	JMP:   "JMP",
	JZ:    "JZ",
	HALT:  "HALT",
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
	return opcodeNames[op]
}

// Valid reports whether op is a member of the instruction set.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

// OperandKind describes what an instruction's operand means. Operand presence
// and interpretation are a total function of the opcode; an instruction is
// never partially valid.
type OperandKind uint8

const (
	OperandNone    OperandKind = iota
	OperandLiteral             // integer literal pushed by PUSH
	OperandSlot                // variable bank index for LOAD/STORE
	OperandTarget              // absolute instruction index for JMP/JZ
)

// OperandKind returns the operand class required by the opcode.
func (op Opcode) OperandKind() OperandKind {
	switch op {
	case PUSH:
		return OperandLiteral
	case LOAD, STORE:
		return OperandSlot
	case JMP, JZ:
		return OperandTarget
	default:
		return OperandNone
	}
}

// Opcodes returns the full instruction set, in opcode order. Callers use it
// to sample instructions uniformly; the returned slice is freshly allocated.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, numOpcodes)
	for op := Opcode(0); op < numOpcodes; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Instruction pairs an opcode with its operand. Arg is ignored for opcodes
// whose OperandKind is OperandNone.
type Instruction struct {
	Op  Opcode
	Arg int64
}

// String renders the instruction in its one-per-line text form,
// "OPCODE[ operand]".
func (in Instruction) String() string {
	if in.Op.OperandKind() == OperandNone {
		return in.Op.String()
	}
	return fmt.Sprintf("%s %d", in.Op, in.Arg)
}
