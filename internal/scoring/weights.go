package scoring

// Alpha is the shrinkage parameter: a sow's z-scores are damped by
// n/(n+Alpha) where n is her recorded litter count.
const Alpha = 3

// ParityWeights fixes the contribution of each shrunk z-score to the
// per-litter score. Terms whose z-score is undefined are omitted from the
// sum with no renormalization of the remaining weights, deliberately
// penalising litters with missing high-weight metrics.
type ParityWeights struct {
	OwnWeaned float64
	LiveBorn  float64
	TotalBorn float64
	Stillborn float64
	OwnRate   float64
}

// DefaultParityWeights is the published per-litter weighting.
var DefaultParityWeights = ParityWeights{
	OwnWeaned: 0.45,
	LiveBorn:  0.25,
	TotalBorn: 0.15,
	Stillborn: 0.10,
	OwnRate:   0.05,
}

// CompositeWeights fixes the contribution of each life-cycle axis to the sow
// total score. The two published schemes disagree; the scheme in force is an
// explicit engine configuration and the two are never blended.
type CompositeWeights struct {
	Peak      float64
	Stability float64
	Sustain   float64
	Offspring float64
}

// FourAxisWeights is the scheme that includes the offspring-quality axis.
var FourAxisWeights = CompositeWeights{
	Peak:      0.35,
	Stability: 0.25,
	Sustain:   0.25,
	Offspring: 0.15,
}

// ThreeAxisWeights is the alternative scheme without an offspring-quality
// term. When configured, offspring quality is still computed and stored but
// carries zero weight in the total.
var ThreeAxisWeights = CompositeWeights{
	Peak:      0.40,
	Stability: 0.30,
	Sustain:   0.30,
}

// OffspringUpgradeWeight and OffspringSaleWeight combine the two offspring
// ratios into the offspring-quality axis.
const (
	OffspringUpgradeWeight = 0.60
	OffspringSaleWeight    = 0.40
)
