package scoring

import "math"

// cohortStats summarises the defined values of one metric within one parity
// cohort. The standard deviation is the sample SD (n-1 denominator); cohorts
// with fewer than two defined values, or identical values, are degenerate.
type cohortStats struct {
	n    int
	mean float64
	sd   float64
}

func (c cohortStats) degenerate() bool { return c.n > 0 && c.sd == 0 }

// summarize computes mean and sample standard deviation over the supplied
// values. Undefined metric values must already have been excluded by the
// caller; they are omitted, never treated as zero.
func summarize(values []float64) cohortStats {
	n := len(values)
	if n == 0 {
		return cohortStats{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	if n < 2 {
		return cohortStats{n: n, mean: mean}
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return cohortStats{n: n, mean: mean, sd: math.Sqrt(ss / float64(n-1))}
}

// zscore standardises a single value against its cohort. A nil value stays
// nil. A degenerate cohort (zero variance) yields z=0 for every member so the
// metric contributes neutrally instead of dividing by zero. When invert is
// set the sign is flipped so that "higher z = better" holds for metrics where
// lower raw values are better (stillborn).
func zscore(value *float64, stats cohortStats, invert bool) *float64 {
	if value == nil {
		return nil
	}
	if stats.sd == 0 {
		return ptr(0)
	}
	z := (*value - stats.mean) / stats.sd
	if invert {
		z = -z
	}
	return &z
}

// shrink damps a z-score toward zero in proportion to how few litters the sow
// has recorded: z * n/(n+alpha). With one or two litters the sow's apparent
// extremes are unreliable; as n grows the factor approaches one and the raw z
// survives.
func shrink(z *float64, n int, alpha float64) *float64 {
	if z == nil {
		return nil
	}
	s := *z * float64(n) / (float64(n) + alpha)
	return &s
}
