package load

// Select returns the index of the entry chosen by the uniform draw r.
//
// Weights are accumulated in declaration order and the first entry whose
// running sum reaches r (r <= cumulative) is chosen. Entries with zero weight
// never match, so r = 0 lands on the first entry with a positive weight.
// When no entry qualifies, because the weights add up to less than r or
// through floating point rounding, the first entry is returned. Select never
// panics for a non-empty slice; it returns -1 for an empty one.
func Select(entries []Entry, r float64) int {
	if len(entries) == 0 {
		return -1
	}

	cumulative := 0.0
	for i, e := range entries {
		if e.Weight <= 0 {
			continue
		}
		cumulative += e.Weight
		if r <= cumulative {
			return i
		}
	}

	return 0
}
