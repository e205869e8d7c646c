package scoring

import (
	"fmt"
	"sort"
	"time"

	"sowline/pkg/domain"
)

// Input is the immutable snapshot the engine scores. The engine never reads
// from a store directly; the caller collects the snapshot inside a single
// read view so a concurrent writer can never tear it.
type Input struct {
	Sows      []domain.Sow
	Farrowing []domain.FarrowingRecord
	Offspring map[string]OffspringRates
}

// Config tunes an Engine. Zero fields fall back to the published defaults.
type Config struct {
	ParityWeights    ParityWeights
	CompositeWeights CompositeWeights
	Alpha            float64
	Now              func() time.Time
}

// Engine computes the full derived score tables from an input snapshot.
type Engine struct {
	parityWeights ParityWeights
	composite     CompositeWeights
	alpha         float64
	nowFn         func() time.Time
}

// NewEngine constructs a scoring engine. The composite weighting scheme must
// be chosen deliberately (FourAxisWeights or ThreeAxisWeights); a zero value
// selects FourAxisWeights.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		parityWeights: cfg.ParityWeights,
		composite:     cfg.CompositeWeights,
		alpha:         cfg.Alpha,
		nowFn:         cfg.Now,
	}
	if e.parityWeights == (ParityWeights{}) {
		e.parityWeights = DefaultParityWeights
	}
	if e.composite == (CompositeWeights{}) {
		e.composite = FourAxisWeights
	}
	if e.alpha == 0 {
		e.alpha = Alpha
	}
	if e.nowFn == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
	}
	return e
}

// metric names used in degenerate-cohort findings.
const (
	metricOwnWeaned = "own_weaned"
	metricLiveBorn  = "live_born"
	metricTotalBorn = "total_born"
	metricStillborn = "stillborn"
	metricOwnRate   = "own_rate"
)

// Compute runs the whole pipeline: base metrics, parity-wise normalization,
// shrinkage, weighted parity scores, sow-level axes, and both ranking passes.
// The returned tables are a complete replacement for the previous run; the
// Result carries informational data-quality findings (degenerate cohorts),
// never blocking violations. Identical input yields identical tables.
func (e *Engine) Compute(in Input) (domain.ScoreTables, domain.Result) {
	var findings domain.Result

	active := make(map[string]bool, len(in.Sows))
	for _, s := range in.Sows {
		if s.Status == domain.StatusActive {
			active[s.ID] = true
		}
	}

	// Base metrics, litter counts, cohort grouping. Records are sorted so
	// every later stage iterates deterministically.
	records := append([]domain.FarrowingRecord(nil), in.Farrowing...)
	sort.Slice(records, func(i, j int) bool {
		if records[i].SowID != records[j].SowID {
			return records[i].SowID < records[j].SowID
		}
		return records[i].Parity < records[j].Parity
	})

	litters := make(map[string]int)
	byParity := make(map[int][]baseMetrics)
	var parities []int
	for _, r := range records {
		m := computeBaseMetrics(r)
		litters[m.sowID]++
		if _, seen := byParity[m.parity]; !seen {
			parities = append(parities, m.parity)
		}
		byParity[m.parity] = append(byParity[m.parity], m)
	}
	sort.Ints(parities)

	// Parity-wise z-scores with shrinkage, then the weighted parity score.
	var parityRows []domain.ParityScore
	for _, parity := range parities {
		group := byParity[parity]
		stats := map[string]cohortStats{
			metricOwnWeaned: summarize(collect(group, func(m baseMetrics) *float64 { return m.ownWeaned })),
			metricLiveBorn:  summarize(collect(group, func(m baseMetrics) *float64 { return m.liveBorn })),
			metricTotalBorn: summarize(collect(group, func(m baseMetrics) *float64 { return m.totalBorn })),
			metricStillborn: summarize(collect(group, func(m baseMetrics) *float64 { return m.stillborn })),
			metricOwnRate:   summarize(collect(group, func(m baseMetrics) *float64 { return m.ownRate })),
		}
		for _, name := range []string{metricOwnWeaned, metricLiveBorn, metricTotalBorn, metricStillborn, metricOwnRate} {
			if st := stats[name]; st.degenerate() {
				findings.Merge(degenerateCohortFinding(parity, name, st.n))
			}
		}

		for _, m := range group {
			n := litters[m.sowID]
			row := domain.ParityScore{
				SowID:      m.sowID,
				Parity:     m.parity,
				OwnWeaned:  m.ownWeaned,
				OwnRate:    m.ownRate,
				ZOwnWeaned: shrink(zscore(m.ownWeaned, stats[metricOwnWeaned], false), n, e.alpha),
				ZLiveBorn:  shrink(zscore(m.liveBorn, stats[metricLiveBorn], false), n, e.alpha),
				ZTotalBorn: shrink(zscore(m.totalBorn, stats[metricTotalBorn], false), n, e.alpha),
				ZStillborn: shrink(zscore(m.stillborn, stats[metricStillborn], true), n, e.alpha),
				ZOwnRate:   shrink(zscore(m.ownRate, stats[metricOwnRate], false), n, e.alpha),
			}
			row.Score = e.parityScore(row)
			parityRows = append(parityRows, row)
		}
	}

	e.rankParityRows(parityRows, parities, active)
	sowRows := e.aggregateSows(parityRows, in.Offspring)
	e.rankSowRows(sowRows, active)

	return domain.ScoreTables{
		Parity:     parityRows,
		Sow:        sowRows,
		ComputedAt: e.nowFn(),
	}, findings
}

func degenerateCohortFinding(parity int, metric string, n int) domain.Result {
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "degenerate_cohort",
		Severity: domain.SeverityLog,
		Message:  fmt.Sprintf("parity %d cohort has zero variance for %s across %d litters; z forced to 0", parity, metric, n),
		Entity:   domain.EntityParityScore,
	}}}
}

// parityScore combines the shrunk z-scores using the fixed weights. Terms
// with an undefined z are omitted; the remaining weights are used as given,
// without renormalization, so sparse litters score deliberately lower.
func (e *Engine) parityScore(row domain.ParityScore) float64 {
	var score float64
	add := func(w float64, z *float64) {
		if z != nil {
			score += w * *z
		}
	}
	add(e.parityWeights.OwnWeaned, row.ZOwnWeaned)
	add(e.parityWeights.LiveBorn, row.ZLiveBorn)
	add(e.parityWeights.TotalBorn, row.ZTotalBorn)
	add(e.parityWeights.Stillborn, row.ZStillborn)
	add(e.parityWeights.OwnRate, row.ZOwnRate)
	return score
}

// rankParityRows assigns, within each parity cohort, a rank over all litters
// and a separate rank over litters of currently active sows. Ordering is
// descending score with ascending sow ID breaking ties.
func (e *Engine) rankParityRows(rows []domain.ParityScore, parities []int, active map[string]bool) {
	index := make(map[int][]*domain.ParityScore)
	for i := range rows {
		index[rows[i].Parity] = append(index[rows[i].Parity], &rows[i])
	}
	for _, parity := range parities {
		group := index[parity]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Score != group[j].Score {
				return group[i].Score > group[j].Score
			}
			return group[i].SowID < group[j].SowID
		})
		rank := 0
		activeRank := 0
		for _, row := range group {
			rank++
			r := rank
			row.RankAll = &r
			if active[row.SowID] {
				activeRank++
				ar := activeRank
				row.RankActive = &ar
			}
		}
	}
}

// aggregateSows rolls the ordered parity scores of each sow into the
// life-cycle axes and the composite total.
func (e *Engine) aggregateSows(parityRows []domain.ParityScore, offspring map[string]OffspringRates) []domain.SowScore {
	perSow := make(map[string][]domain.ParityScore)
	var sowIDs []string
	for _, row := range parityRows {
		if _, seen := perSow[row.SowID]; !seen {
			sowIDs = append(sowIDs, row.SowID)
		}
		perSow[row.SowID] = append(perSow[row.SowID], row)
	}
	sort.Strings(sowIDs)

	out := make([]domain.SowScore, 0, len(sowIDs))
	for _, id := range sowIDs {
		series := perSow[id]
		sort.Slice(series, func(i, j int) bool { return series[i].Parity < series[j].Parity })

		scores := make([]float64, len(series))
		for i, row := range series {
			scores[i] = row.Score
		}

		row := domain.SowScore{
			SowID:     id,
			Peak:      peak(series),
			Stability: stability(scores),
			Sustain:   sustain(scores),
		}
		if rates, ok := offspring[id]; ok {
			row.OffspringQuality = offspringQuality(rates)
		}
		row.TotalScore = e.totalScore(row)
		out = append(out, row)
	}
	return out
}

// peak is the mean parity score across the productivity plateau (parities 2
// and 3). It is undefined when the sow has recorded neither.
func peak(series []domain.ParityScore) *float64 {
	var sum float64
	var n int
	for _, row := range series {
		if row.Parity == 2 || row.Parity == 3 {
			sum += row.Score
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return ptr(sum / float64(n))
}

// stability is the negated variance of the sow's parity scores, so that a
// consistent sow scores higher. A single litter has zero spread.
func stability(scores []float64) *float64 {
	if len(scores) == 0 {
		return nil
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	var ss float64
	for _, s := range scores {
		d := s - mean
		ss += d * d
	}
	return ptr(-(ss / float64(len(scores))))
}

// sustain rewards improvement across the sow's reproductive life: the mean of
// the second half of her ordered parity scores minus the mean of the first.
// Odd counts put the larger half second. Undefined below two litters.
func sustain(scores []float64) *float64 {
	if len(scores) < 2 {
		return nil
	}
	mid := len(scores) / 2
	first := scores[:mid]
	second := scores[mid:]
	return ptr(mean(second) - mean(first))
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// offspringQuality combines the two offspring ratios; a missing ratio is
// omitted without renormalizing the other weight.
func offspringQuality(rates OffspringRates) *float64 {
	if rates.Upgrade == nil && rates.Sale == nil {
		return nil
	}
	var q float64
	if rates.Upgrade != nil {
		q += OffspringUpgradeWeight * *rates.Upgrade
	}
	if rates.Sale != nil {
		q += OffspringSaleWeight * *rates.Sale
	}
	return &q
}

// totalScore combines the defined axes under the configured scheme. Undefined
// axes are omitted with no renormalization. A sow with no defined axis has no
// composite and therefore no rank.
func (e *Engine) totalScore(row domain.SowScore) *float64 {
	defined := false
	var total float64
	add := func(w float64, axis *float64) {
		if axis != nil {
			total += w * *axis
			defined = true
		}
	}
	add(e.composite.Peak, row.Peak)
	add(e.composite.Stability, row.Stability)
	add(e.composite.Sustain, row.Sustain)
	add(e.composite.Offspring, row.OffspringQuality)
	if !defined {
		return nil
	}
	return &total
}

// rankSowRows assigns the two population ranks over sows with a defined
// composite: one across every scored sow, one across scored active sows.
func (e *Engine) rankSowRows(rows []domain.SowScore, active map[string]bool) {
	scored := make([]*domain.SowScore, 0, len(rows))
	for i := range rows {
		if rows[i].TotalScore != nil {
			scored = append(scored, &rows[i])
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if *scored[i].TotalScore != *scored[j].TotalScore {
			return *scored[i].TotalScore > *scored[j].TotalScore
		}
		return scored[i].SowID < scored[j].SowID
	})
	rank := 0
	activeRank := 0
	for _, row := range scored {
		rank++
		r := rank
		row.RankAll = &r
		if active[row.SowID] {
			activeRank++
			ar := activeRank
			row.RankActive = &ar
		}
	}
}

func collect(group []baseMetrics, get func(baseMetrics) *float64) []float64 {
	var out []float64
	for _, m := range group {
		if v := get(m); v != nil {
			out = append(out, *v)
		}
	}
	return out
}
