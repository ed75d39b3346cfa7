package evolve

import "sort"

// Population is one generation's collection of individuals. Its size is
// fixed after seeding; membership changes every generation. Populations are
// owned by the engine driving them, never shared as ambient state, so
// independent runs cannot interfere.
type Population struct {
	Members    []*Individual
	Generation int
}

// Best returns the highest-fitness evaluated individual, or nil when nothing
// has been evaluated yet.
func (p *Population) Best() *Individual {
	var best *Individual
	for _, ind := range p.Members {
		if !ind.Evaluated {
			continue
		}
		if best == nil || ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best
}

// MeanFitness returns the mean fitness across evaluated individuals.
func (p *Population) MeanFitness() float64 {
	total := 0.0
	count := 0
	for _, ind := range p.Members {
		if ind.Evaluated {
			total += ind.Fitness
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// sortedByFitness returns the members ordered best-first. The receiver's
// order is left untouched.
func (p *Population) sortedByFitness() []*Individual {
	sorted := make([]*Individual, len(p.Members))
	copy(sorted, p.Members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness > sorted[j].Fitness
	})
	return sorted
}
