package core

import (
	"context"
	"fmt"

	"sowline/pkg/domain"
)

// LifecycleTransitionRule enforces the one-way sow lifecycle: active may
// become dead or culled, terminal states never revert, and only the three
// canonical states exist. Violations block the commit.
func LifecycleTransitionRule() domain.Rule {
	return lifecycleTransitionRule{}
}

type lifecycleTransitionRule struct{}

func (lifecycleTransitionRule) Name() string { return "lifecycle_transition" }

func (lifecycleTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, change := range changes {
		if change.Entity != domain.EntitySow {
			continue
		}
		after, ok := change.After.(domain.Sow)
		if !ok {
			continue
		}
		if !validStatus(after.Status) {
			res.Violations = append(res.Violations, lifecycleViolation(after.ID,
				fmt.Sprintf("sow %s has unknown status %q", after.ID, after.Status)))
			continue
		}
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.Sow)
		if !ok {
			continue
		}
		if before.Status.Terminal() && after.Status != before.Status {
			// Death supersedes a cull when both events are recorded.
			if before.Status == domain.StatusCulled && after.Status == domain.StatusDead {
				continue
			}
			res.Violations = append(res.Violations, lifecycleViolation(after.ID,
				fmt.Sprintf("sow %s cannot transition from %s to %s", after.ID, before.Status, after.Status)))
		}
	}

	return res, nil
}

func validStatus(s domain.SowStatus) bool {
	switch s {
	case domain.StatusActive, domain.StatusDead, domain.StatusCulled:
		return true
	}
	return false
}

func lifecycleViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "lifecycle_transition",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntitySow,
		EntityID: entityID,
	}
}
