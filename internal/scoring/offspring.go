package scoring

import "sowline/pkg/domain"

// Piglet grade and shipment marks as recorded in the herd book.
const (
	gradeW = "W"

	// psShipmentPromoted marks a grade-W piglet that actually shipped as a
	// W (was retained or sold for breeding).
	psShipmentPromoted = "W"
	// psShipmentSold marks a meat-grade piglet sold as a PS shipment.
	psShipmentSold = "○"
)

var meatGrades = map[string]struct{}{"A": {}, "B": {}, "C": {}}

// OffspringRates carries the two externally derived offspring-quality ratios
// for one dam, both in [0,1]. A nil rate means the dam has no offspring in
// the corresponding grade class and the term is omitted from the axis.
type OffspringRates struct {
	Upgrade *float64 // grade-W piglets shipped as W / all grade-W piglets
	Sale    *float64 // meat-grade piglets sold as PS / all meat-grade piglets
}

// OffspringRatesFromPiglets aggregates piglet outcomes per dam. Piglets
// without a dam reference or a grade are skipped.
func OffspringRatesFromPiglets(piglets []domain.Piglet) map[string]OffspringRates {
	type counts struct {
		wTotal, wPromoted int
		mTotal, mSold     int
	}
	byDam := make(map[string]*counts)
	for _, p := range piglets {
		if p.DamID == nil || *p.DamID == "" || p.Grade == nil {
			continue
		}
		c := byDam[*p.DamID]
		if c == nil {
			c = &counts{}
			byDam[*p.DamID] = c
		}
		ps := ""
		if p.PSShipment != nil {
			ps = *p.PSShipment
		}
		switch {
		case *p.Grade == gradeW:
			c.wTotal++
			if ps == psShipmentPromoted {
				c.wPromoted++
			}
		default:
			if _, ok := meatGrades[*p.Grade]; ok {
				c.mTotal++
				if ps == psShipmentSold {
					c.mSold++
				}
			}
		}
	}

	rates := make(map[string]OffspringRates, len(byDam))
	for dam, c := range byDam {
		var r OffspringRates
		if c.wTotal > 0 {
			r.Upgrade = ptr(float64(c.wPromoted) / float64(c.wTotal))
		}
		if c.mTotal > 0 {
			r.Sale = ptr(float64(c.mSold) / float64(c.mTotal))
		}
		if r.Upgrade != nil || r.Sale != nil {
			rates[dam] = r
		}
	}
	return rates
}
