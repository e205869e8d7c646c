package domain

import "time"

// ParityScore is the derived per-litter score row, keyed by (sow, parity).
// Metric and z-score fields are pointers: a nil value means the underlying
// metric was undefined for the litter and contributed nothing to the weighted
// score. The whole table is recomputed and replaced on every scoring run.
type ParityScore struct {
	SowID      string   `json:"sow_id"`
	Parity     int      `json:"parity"`
	OwnWeaned  *float64 `json:"own_weaned,omitempty"`
	OwnRate    *float64 `json:"own_rate,omitempty"`
	ZOwnWeaned *float64 `json:"z_own_weaned,omitempty"`
	ZLiveBorn  *float64 `json:"z_live_born,omitempty"`
	ZTotalBorn *float64 `json:"z_total_born,omitempty"`
	ZStillborn *float64 `json:"z_stillborn,omitempty"`
	ZOwnRate   *float64 `json:"z_own_rate,omitempty"`
	Score      float64  `json:"score"`
	RankAll    *int     `json:"rank_all,omitempty"`
	RankActive *int     `json:"rank_active,omitempty"`
}

// SowScore is the derived per-sow score row. Axis values and the composite
// are pointers so an axis a sow lacks the data for stays undefined rather
// than masquerading as a median zero. Sows without a composite receive no
// rank.
type SowScore struct {
	SowID            string   `json:"sow_id"`
	Peak             *float64 `json:"peak,omitempty"`
	Stability        *float64 `json:"stability,omitempty"`
	Sustain          *float64 `json:"sustain,omitempty"`
	OffspringQuality *float64 `json:"offspring_quality,omitempty"`
	TotalScore       *float64 `json:"total_score,omitempty"`
	RankAll          *int     `json:"rank_all,omitempty"`
	RankActive       *int     `json:"rank_active,omitempty"`
}

// ScoreTables bundles one complete recompute output. The bundle is immutable
// once produced and is swapped into the store atomically.
type ScoreTables struct {
	Parity     []ParityScore `json:"parity_scores"`
	Sow        []SowScore    `json:"sow_scores"`
	ComputedAt time.Time     `json:"computed_at"`
}

// LineageView selects which branches a lineage build includes.
type LineageView string

const (
	// ViewAll includes every sow in the forest.
	ViewAll LineageView = "all"
	// ViewActiveOnly includes only branches containing at least one
	// currently active sow.
	ViewActiveOnly LineageView = "active"
)

// LineageNode wraps a sow with the annotations computed during a tree build.
// Nodes are transient: they exist only for the duration of one build/render
// cycle and are never persisted.
type LineageNode struct {
	Sow
	Generation  int            `json:"generation"`
	HasActive   bool           `json:"has_active"`
	TopDecile   bool           `json:"top_decile"`
	ParityCount int            `json:"parity_count"`
	TotalScore  *float64       `json:"total_score,omitempty"`
	RankAll     *int           `json:"rank_all,omitempty"`
	RankActive  *int           `json:"rank_active,omitempty"`
	Cause       *string        `json:"cause,omitempty"`
	Children    []*LineageNode `json:"children,omitempty"`
}
