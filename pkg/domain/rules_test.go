package domain

import (
	"context"
	"errors"
	"testing"
)

type staticRule struct {
	name string
	res  Result
	err  error
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.res, r.err
}

func TestEngineAggregatesInRegistrationOrder(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "first", res: Result{Violations: []Violation{{Rule: "first", Severity: SeverityWarn}}}})
	engine.Register(staticRule{name: "second", res: Result{Violations: []Violation{{Rule: "second", Severity: SeverityBlock}}}})

	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected two violations, got %d", len(res.Violations))
	}
	if res.Violations[0].Rule != "first" || res.Violations[1].Rule != "second" {
		t.Fatalf("order lost: %+v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatalf("blocking violation not detected")
	}
	warns := res.Warnings()
	if len(warns) != 1 || warns[0].Rule != "first" {
		t.Fatalf("warnings filter wrong: %+v", warns)
	}
}

func TestEngineStopsOnRuleError(t *testing.T) {
	boom := errors.New("boom")
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "broken", err: boom})
	engine.Register(staticRule{name: "later", res: Result{Violations: []Violation{{Rule: "later"}}}})

	res, err := engine.Evaluate(context.Background(), nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("failed evaluation must not yield partial results")
	}
}

func TestSowStatusTerminal(t *testing.T) {
	if StatusActive.Terminal() {
		t.Fatalf("active is not terminal")
	}
	if !StatusDead.Terminal() || !StatusCulled.Terminal() {
		t.Fatalf("dead and culled are terminal")
	}
}
