package etl

import (
	"context"
	"testing"

	"sowline/internal/infra/persistence/memory"
	"sowline/pkg/domain"
)

func strp(s string) *string { return &s }

func TestApplyReplacesPreviousContents(t *testing.T) {
	store := memory.NewStore(nil)
	ctx := context.Background()

	_, err := Apply(ctx, store, Dataset{Sows: []domain.Sow{{Base: domain.Base{ID: "OLD"}}}})
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	_, err = Apply(ctx, store, Dataset{Sows: []domain.Sow{{Base: domain.Base{ID: "NEW"}}}})
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if _, ok := store.GetSow("OLD"); ok {
		t.Fatalf("reload must drop previous contents")
	}
	if _, ok := store.GetSow("NEW"); !ok {
		t.Fatalf("reload must install new contents")
	}
}

func TestApplyAutovivifiesReferencedSows(t *testing.T) {
	store := memory.NewStore(nil)
	result, err := Apply(context.Background(), store, Dataset{
		Farrowing: []domain.FarrowingRecord{{SowID: "S9", Parity: 1}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, ok := store.GetSow("S9")
	if !ok {
		t.Fatalf("referenced sow must be created")
	}
	if s.Status != domain.StatusActive {
		t.Fatalf("autovivified sow must start active, got %s", s.Status)
	}
	found := false
	for _, v := range result.Violations {
		if v.Rule == "autovivified_sow" && v.EntityID == "S9" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected autovivification finding, got %+v", result.Violations)
	}
}

func TestApplyDeathWinsOverCull(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := Apply(context.Background(), store, Dataset{
		Sows:   []domain.Sow{{Base: domain.Base{ID: "S1"}}},
		Deaths: []domain.DeathRecord{{SowID: "S1", Cause: strp("illness")}},
		Culls:  []domain.CullRecord{{SowID: "S1", Cause: strp("age")}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, _ := store.GetSow("S1")
	if s.Status != domain.StatusDead {
		t.Fatalf("sow with both events must end up dead, got %s", s.Status)
	}
	if len(store.ListDeathRecords()) != 1 || len(store.ListCullRecords()) != 1 {
		t.Fatalf("both event records must be kept")
	}
}

func TestApplyCullTransitions(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := Apply(context.Background(), store, Dataset{
		Sows:  []domain.Sow{{Base: domain.Base{ID: "S1"}}},
		Culls: []domain.CullRecord{{SowID: "S1"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, _ := store.GetSow("S1")
	if s.Status != domain.StatusCulled {
		t.Fatalf("expected culled, got %s", s.Status)
	}
}

func TestApplyPromotesGradeWGilts(t *testing.T) {
	store := memory.NewStore(nil)
	dam := "S1"
	_, err := Apply(context.Background(), store, Dataset{
		Sows: []domain.Sow{{Base: domain.Base{ID: "S1"}}},
		Piglets: []domain.Piglet{
			{Base: domain.Base{ID: "701"}, DamID: &dam, Grade: strp("W"), PSShipment: strp("W")},
			{Base: domain.Base{ID: "702"}, DamID: &dam, Grade: strp("W")},
			{Base: domain.Base{ID: "703"}, DamID: &dam, Grade: strp("A"), PSShipment: strp("○")},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	promoted, ok := store.GetSow("TB701")
	if !ok {
		t.Fatalf("shipped grade-W piglet must be promoted to the roster")
	}
	if promoted.DamID == nil || *promoted.DamID != "S1" {
		t.Fatalf("promoted gilt must keep her maternal link, got %v", promoted.DamID)
	}
	if promoted.SourcePigletNo == nil || *promoted.SourcePigletNo != "701" {
		t.Fatalf("promoted gilt must record her piglet number, got %v", promoted.SourcePigletNo)
	}
	if promoted.Status != domain.StatusActive {
		t.Fatalf("promoted gilt must start active, got %s", promoted.Status)
	}
	if _, ok := store.GetSow("TB702"); ok {
		t.Fatalf("unshipped grade-W piglet must not be promoted")
	}
	if _, ok := store.GetSow("TB703"); ok {
		t.Fatalf("meat-grade piglet must not be promoted")
	}
}

func TestApplyPromotionConflictKeepsRosterSow(t *testing.T) {
	store := memory.NewStore(nil)
	dam := "S1"
	result, err := Apply(context.Background(), store, Dataset{
		Sows: []domain.Sow{
			{Base: domain.Base{ID: "S1"}},
			{Base: domain.Base{ID: "TB701"}, Grade: strp("A")},
		},
		Piglets: []domain.Piglet{
			{Base: domain.Base{ID: "701"}, DamID: &dam, Grade: strp("W"), PSShipment: strp("W")},
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, _ := store.GetSow("TB701")
	if s.Grade == nil || *s.Grade != "A" {
		t.Fatalf("roster sow must win over the promotion, got %+v", s)
	}
	warned := false
	for _, v := range result.Violations {
		if v.Rule == "promotion_conflict" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected promotion-conflict warning, got %+v", result.Violations)
	}
}
