// Package vm implements a deterministic, step-bounded executor for the stack
// language. All values are int64 with native two's-complement wrapping on
// overflow; evolved programs overflow constantly and wrapping keeps execution
// total without a fault path for arithmetic range. Division truncates toward
// zero and division by zero is a fault, never a panic.
package vm

import (
	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
)

// Outcome classifies how an execution terminated.
type Outcome uint8

const (
	// Completed means the program executed HALT or ran past its end.
	Completed Outcome = iota
	// TimedOut means the step limit was exceeded before completion.
	TimedOut
	// Faulted means a runtime fault stopped execution.
	Faulted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// FaultReason identifies the runtime fault that stopped execution.
type FaultReason uint8

const (
	FaultNone FaultReason = iota
	FaultStackUnderflow
	FaultDivisionByZero
	FaultInvalidJumpTarget
)

func (f FaultReason) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultStackUnderflow:
		return "stack_underflow"
	case FaultDivisionByZero:
		return "division_by_zero"
	case FaultInvalidJumpTarget:
		return "invalid_jump_target"
	default:
		return "unknown"
	}
}

// State is the complete machine state of one execution: value stack, variable
// bank, instruction pointer, and step counter. A State is created fresh for
// every execution and owned exclusively by that run.
type State struct {
	Stack []int64
	Vars  []int64
	IP    int
	Steps int
}

// NewState creates an empty machine state with the given variable bank size.
func NewState(bankSize int) *State {
	return &State{
		Stack: make([]int64, 0, 16),
		Vars:  make([]int64, bankSize),
	}
}

// Seed pushes the given values onto the stack in order, so the last value
// becomes top of stack.
func (s *State) Seed(values ...int64) *State {
	s.Stack = append(s.Stack, values...)
	return s
}

// Top returns the value on top of the stack.
func (s *State) Top() (int64, bool) {
	if len(s.Stack) == 0 {
		return 0, false
	}
	return s.Stack[len(s.Stack)-1], true
}

func (s *State) push(v int64) {
	s.Stack = append(s.Stack, v)
}

func (s *State) pop() (int64, bool) {
	if len(s.Stack) == 0 {
		return 0, false
	}
	v := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return v, true
}

func (s *State) pop2() (a, b int64, ok bool) {
	if len(s.Stack) < 2 {
		return 0, 0, false
	}
	b, _ = s.pop()
	a, _ = s.pop()
	return a, b, true
}

// Result is the terminal outcome of one execution.
type Result struct {
	Outcome Outcome
	Fault   FaultReason
	Steps   int
	State   *State
}

// Top returns the top-of-stack value of the final state.
func (r Result) Top() (int64, bool) {
	return r.State.Top()
}

// Err maps a non-completed result onto the error taxonomy for diagnostics.
// Completed results return nil.
func (r Result) Err() error {
	switch r.Outcome {
	case Completed:
		return nil
	case TimedOut:
		return errors.WithFields(
			errors.New(errors.Timeout, "step limit exceeded"),
			errors.Fields{"steps": r.Steps})
	}
	code := errors.Unknown
	switch r.Fault {
	case FaultStackUnderflow:
		code = errors.StackUnderflow
	case FaultDivisionByZero:
		code = errors.DivisionByZero
	case FaultInvalidJumpTarget:
		code = errors.InvalidJumpTarget
	}
	return errors.WithFields(
		errors.New(code, "execution fault"),
		errors.Fields{"fault": r.Fault.String(), "step": r.Steps})
}

// Machine executes programs under a fixed step limit. Machines hold no
// per-run state and are safe for concurrent use.
type Machine struct {
	stepLimit int
}

// NewMachine creates a machine with the given per-execution step limit.
func NewMachine(stepLimit int) *Machine {
	return &Machine{stepLimit: stepLimit}
}

// StepLimit returns the per-execution step limit.
func (m *Machine) StepLimit() int {
	return m.stepLimit
}

// Run executes prog against state until HALT, the instruction pointer runs
// past the end (implicit halt), the step limit fires, or a runtime fault
// occurs. Execution is deterministic: identical program and initial state
// always produce identical outcomes and step counts.
func (m *Machine) Run(prog lang.Program, state *State) Result {
	// Slot operands are validated against the program's bank size, so the
	// state's bank must be at least that large.
	if n := prog.BankSize(); n > len(state.Vars) {
		grown := make([]int64, n)
		copy(grown, state.Vars)
		state.Vars = grown
	}
	for state.IP < prog.Len() {
		if state.Steps >= m.stepLimit {
			return Result{Outcome: TimedOut, Steps: state.Steps, State: state}
		}
		in := prog.At(state.IP)
		state.Steps++

		next := state.IP + 1
		switch in.Op {
		case lang.PUSH:
			state.push(in.Arg)
		case lang.POP:
			if _, ok := state.pop(); !ok {
				return m.fault(state, FaultStackUnderflow)
			}
		case lang.ADD:
			a, b, ok := state.pop2()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			state.push(a + b)
		case lang.SUB:
			a, b, ok := state.pop2()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			state.push(a - b)
		case lang.MUL:
			a, b, ok := state.pop2()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			state.push(a * b)
		case lang.DIV:
			a, b, ok := state.pop2()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			if b == 0 {
				return m.fault(state, FaultDivisionByZero)
			}
			state.push(a / b)
		case lang.DUP:
			v, ok := state.Top()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			state.push(v)
		case lang.SWAP:
			a, b, ok := state.pop2()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			state.push(b)
			state.push(a)
		case lang.LOAD:
			state.push(state.Vars[in.Arg])
		case lang.STORE:
			v, ok := state.pop()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			state.Vars[in.Arg] = v
		case lang.JMP:
			next = int(in.Arg)
		case lang.JZ:
			v, ok := state.pop()
			if !ok {
				return m.fault(state, FaultStackUnderflow)
			}
			if v == 0 {
				next = int(in.Arg)
			}
		case lang.HALT:
			state.IP = next
			return Result{Outcome: Completed, Steps: state.Steps, State: state}
		}

		// Construction validates jump targets, so this only trips for
		// hand-built instruction sequences that bypassed NewProgram. It is a
		// runtime fault, not a crash.
		if next < 0 || next > prog.Len() {
			return m.fault(state, FaultInvalidJumpTarget)
		}
		state.IP = next
	}
	return Result{Outcome: Completed, Steps: state.Steps, State: state}
}

func (m *Machine) fault(state *State, reason FaultReason) Result {
	return Result{Outcome: Faulted, Fault: reason, Steps: state.Steps, State: state}
}
