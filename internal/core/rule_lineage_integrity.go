package core

import (
	"context"
	"fmt"

	"sowline/pkg/domain"
)

// LineageIntegrityRule checks the maternal descent links of the sow roster.
// Findings are warnings, never blocks: herd-book extracts routinely reference
// dams that were culled before record-keeping began, and a load must not fail
// because of them. The tree builder degrades the same links to roots.
func LineageIntegrityRule() domain.Rule {
	return lineageIntegrityRule{}
}

type lineageIntegrityRule struct{}

func (lineageIntegrityRule) Name() string { return "lineage_integrity" }

func (lineageIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	touched := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != domain.EntitySow || change.After == nil {
			continue
		}
		if sow, ok := change.After.(domain.Sow); ok {
			touched[sow.ID] = struct{}{}
		}
	}
	if len(touched) == 0 {
		return res, nil
	}

	for _, sow := range view.ListSows() {
		if _, ok := touched[sow.ID]; !ok {
			continue
		}
		if sow.DamID == nil || *sow.DamID == "" {
			continue
		}
		if *sow.DamID == sow.ID {
			res.Violations = append(res.Violations, lineageViolation(sow.ID, fmt.Sprintf("sow %s references itself as dam", sow.ID)))
			continue
		}
		if _, ok := view.FindSow(*sow.DamID); !ok {
			res.Violations = append(res.Violations, lineageViolation(sow.ID, fmt.Sprintf("sow %s references unknown dam %s", sow.ID, *sow.DamID)))
		}
	}

	return res, nil
}

func lineageViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "lineage_integrity",
		Severity: domain.SeverityWarn,
		Message:  message,
		Entity:   domain.EntitySow,
		EntityID: entityID,
	}
}
