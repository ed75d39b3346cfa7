// Package problems ships ready-made problem definitions for the evaluator's
// Problem contract. Each supplies a test-case grid of seeded stacks and
// expected top-of-stack values; the engine stays ignorant of the specific
// target behavior.
package problems

import (
	"math"

	"github.com/XiaoConstantine/stackgp-go/pkg/evaluator"
)

// gridProblem is a Problem backed by a precomputed case list.
type gridProblem struct {
	name  string
	cases []evaluator.TestCase
}

func (p *gridProblem) Name() string {
	return p.name
}

func (p *gridProblem) Cases() []evaluator.TestCase {
	return p.cases
}

// pairGrid builds one case per (a, b) pair over [0, n) x [0, n).
func pairGrid(name string, n int, expected func(a, b int64) int64) evaluator.Problem {
	cases := make([]evaluator.TestCase, 0, n*n)
	for a := int64(0); a < int64(n); a++ {
		for b := int64(0); b < int64(n); b++ {
			cases = append(cases, evaluator.TestCase{
				Stack:    []int64{a, b},
				Expected: expected(a, b),
			})
		}
	}
	return &gridProblem{name: name, cases: cases}
}

// Addition targets a+b over a 10x10 grid of inputs: given two numbers on the
// stack, leave their sum.
func Addition() evaluator.Problem {
	return pairGrid("addition", 10, func(a, b int64) int64 {
		return a + b
	})
}

// Difference targets a-b over a 10x10 grid.
func Difference() evaluator.Problem {
	return pairGrid("difference", 10, func(a, b int64) int64 {
		return a - b
	})
}

// Square targets a*a over single-value stacks [0, 16).
func Square() evaluator.Problem {
	cases := make([]evaluator.TestCase, 0, 16)
	for a := int64(0); a < 16; a++ {
		cases = append(cases, evaluator.TestCase{
			Stack:    []int64{a},
			Expected: a * a,
		})
	}
	return &gridProblem{name: "square", cases: cases}
}

// Hypotenuse targets the integer part of sqrt(a*a+b*b) over an 8x8 grid.
func Hypotenuse() evaluator.Problem {
	return pairGrid("hypotenuse", 8, func(a, b int64) int64 {
		return int64(math.Sqrt(float64(a*a + b*b)))
	})
}

// Fibonacci targets fib(n) for a single n on the stack, n in [0, 16).
func Fibonacci() evaluator.Problem {
	fib := make([]int64, 16)
	fib[1] = 1
	for i := 2; i < len(fib); i++ {
		fib[i] = fib[i-1] + fib[i-2]
	}
	cases := make([]evaluator.TestCase, 0, len(fib))
	for n, v := range fib {
		cases = append(cases, evaluator.TestCase{
			Stack:    []int64{int64(n)},
			Expected: v,
		})
	}
	return &gridProblem{name: "fibonacci", cases: cases}
}

// ByName returns a shipped problem by its name, or nil when unknown. Sorting
// is deliberately absent: the evaluator compares a single top-of-stack value,
// and a sorted-sequence target needs a whole-stack comparison supplied by the
// caller as a custom Problem.
func ByName(name string) evaluator.Problem {
	switch name {
	case "addition":
		return Addition()
	case "difference":
		return Difference()
	case "square":
		return Square()
	case "hypotenuse":
		return Hypotenuse()
	case "fibonacci":
		return Fibonacci()
	default:
		return nil
	}
}
