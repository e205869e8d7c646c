package core

import (
	"context"
	"fmt"
	"sort"

	"sowline/pkg/domain"
)

// ParitySequenceRule validates litter numbering. A non-positive parity is
// malformed input and blocks the commit; a gap in a sow's recorded parities
// is legal (records get lost) but worth flagging because it skews the
// career-trend axis of her score.
func ParitySequenceRule() domain.Rule {
	return paritySequenceRule{}
}

type paritySequenceRule struct{}

func (paritySequenceRule) Name() string { return "parity_sequence" }

func (paritySequenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	touched := make(map[string]struct{})
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityFarrowingRecord:
			if r, ok := change.After.(domain.FarrowingRecord); ok {
				if r.Parity < 1 {
					res.Violations = append(res.Violations, parityViolation(domain.SeverityBlock, domain.EntityFarrowingRecord, r.ID,
						fmt.Sprintf("farrowing record for sow %s has parity %d; parities start at 1", r.SowID, r.Parity)))
				}
				touched[r.SowID] = struct{}{}
			}
		case domain.EntityBreedingRecord:
			if r, ok := change.After.(domain.BreedingRecord); ok {
				if r.Parity < 1 {
					res.Violations = append(res.Violations, parityViolation(domain.SeverityBlock, domain.EntityBreedingRecord, r.ID,
						fmt.Sprintf("breeding record for sow %s has parity %d; parities start at 1", r.SowID, r.Parity)))
				}
			}
		}
	}
	if len(touched) == 0 {
		return res, nil
	}

	perSow := make(map[string][]int)
	for _, r := range view.ListFarrowingRecords() {
		if _, ok := touched[r.SowID]; ok {
			perSow[r.SowID] = append(perSow[r.SowID], r.Parity)
		}
	}
	for sowID, parities := range perSow {
		sort.Ints(parities)
		for i := 1; i < len(parities); i++ {
			if parities[i] != parities[i-1]+1 {
				res.Violations = append(res.Violations, parityViolation(domain.SeverityWarn, domain.EntitySow, sowID,
					fmt.Sprintf("sow %s has a litter gap between parity %d and %d", sowID, parities[i-1], parities[i])))
			}
		}
	}

	return res, nil
}

func parityViolation(severity domain.Severity, entity domain.EntityType, entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "parity_sequence",
		Severity: severity,
		Message:  message,
		Entity:   entity,
		EntityID: entityID,
	}
}
