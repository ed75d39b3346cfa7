package evolve

import "github.com/XiaoConstantine/stackgp-go/pkg/lang"

// TerminationReason states why a run stopped. The three reasons are reported
// distinctly, never collapsed into a boolean.
type TerminationReason uint8

const (
	// ReasonSolved fires when the best fitness meets the target threshold.
	ReasonSolved TerminationReason = iota
	// ReasonExhausted fires when the generation count reaches its maximum.
	ReasonExhausted
	// ReasonStagnated fires when the best fitness has not improved for the
	// configured number of generations.
	ReasonStagnated
)

func (r TerminationReason) String() string {
	switch r {
	case ReasonSolved:
		return "solved"
	case ReasonExhausted:
		return "exhausted"
	case ReasonStagnated:
		return "stagnated"
	default:
		return "unknown"
	}
}

// Result is the run's outcome surface: the best program found, its fitness,
// where it was found, why the run stopped, and per-generation fault
// diagnostics.
type Result struct {
	Best        lang.Program
	BestID      string
	Fitness     float64
	FoundAt     int // generation the best program was first observed
	Generations int // generations evaluated before termination
	Reason      TerminationReason
	// FaultFractions[g] is the fraction of generation g's newly evaluated
	// members that faulted or timed out on at least one test case. Elites
	// carry cached fitness and are not re-counted.
	FaultFractions []float64
}
