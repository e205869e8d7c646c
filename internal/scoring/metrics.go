// Package scoring implements the evaluation ruleset for breeding females:
// per-litter base metrics, parity-wise z-score standardisation, shrinkage
// correction, weighted parity scores, the sow-level axis scores, and the
// population rankings. The whole pipeline is a pure function of its input
// snapshot; derived tables are recomputed in full on every run.
package scoring

import "sowline/pkg/domain"

// baseMetrics holds the per-litter indicators derived from one farrowing
// record. A nil field means the indicator is undefined for the litter and
// must stay out of every downstream average and weighted sum.
type baseMetrics struct {
	sowID     string
	parity    int
	ownWeaned *float64
	ownRate   *float64
	liveBorn  *float64
	totalBorn *float64
	stillborn *float64
}

// computeBaseMetrics derives the five indicators from a single litter record.
// Own-weaned is the litter the sow actually reared: weaned minus fostered-in
// (a missing foster count means none were fostered). The own-weaned rate is
// only defined when the weaned count is positive; a zero or missing weaned
// count leaves both own fields undefined rather than zero.
func computeBaseMetrics(r domain.FarrowingRecord) baseMetrics {
	m := baseMetrics{
		sowID:     r.SowID,
		parity:    r.Parity,
		liveBorn:  intValue(r.BornAlive),
		totalBorn: intValue(r.TotalBorn),
		stillborn: intValue(r.Stillborn),
	}
	if r.Weaned != nil {
		foster := 0
		if r.Foster != nil {
			foster = *r.Foster
		}
		ow := float64(*r.Weaned - foster)
		m.ownWeaned = &ow
		if *r.Weaned > 0 {
			rate := ow / float64(*r.Weaned)
			m.ownRate = &rate
		}
	}
	return m
}

func intValue(p *int) *float64 {
	if p == nil {
		return nil
	}
	v := float64(*p)
	return &v
}

func ptr(v float64) *float64 { return &v }
