package evolve

import (
	"github.com/google/uuid"

	"github.com/XiaoConstantine/stackgp-go/pkg/lang"
)

// Individual is one candidate program in the population, together with its
// most recently computed fitness and its generation of birth. Fitness is
// meaningless until Evaluated is set; offspring are always created with a
// cleared fitness since their program differs from their parents'.
type Individual struct {
	ID         string
	Program    lang.Program
	Fitness    float64
	Evaluated  bool
	Generation int
	ParentIDs  []string
}

func newIndividual(prog lang.Program, generation int, parentIDs ...string) *Individual {
	return &Individual{
		ID:         uuid.NewString(),
		Program:    prog,
		Generation: generation,
		ParentIDs:  parentIDs,
	}
}
