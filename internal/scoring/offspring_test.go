package scoring

import (
	"math"
	"testing"

	"sowline/pkg/domain"
)

func strp(s string) *string { return &s }

func TestOffspringRatesFromPiglets(t *testing.T) {
	dam := "S1"
	piglets := []domain.Piglet{
		{Base: domain.Base{ID: "P1"}, DamID: &dam, Grade: strp("W"), PSShipment: strp("W")},
		{Base: domain.Base{ID: "P2"}, DamID: &dam, Grade: strp("W")},
		{Base: domain.Base{ID: "P3"}, DamID: &dam, Grade: strp("A"), PSShipment: strp("○")},
		{Base: domain.Base{ID: "P4"}, DamID: &dam, Grade: strp("B")},
		{Base: domain.Base{ID: "P5"}, DamID: &dam, Grade: strp("C"), PSShipment: strp("○")},
		{Base: domain.Base{ID: "P6"}, Grade: strp("A")},  // no dam reference
		{Base: domain.Base{ID: "P7"}, DamID: &dam},       // no grade
	}
	rates := OffspringRatesFromPiglets(piglets)
	r, ok := rates["S1"]
	if !ok {
		t.Fatalf("expected rates for S1")
	}
	if r.Upgrade == nil || math.Abs(*r.Upgrade-0.5) > 1e-12 {
		t.Fatalf("expected upgrade rate 1/2, got %v", r.Upgrade)
	}
	if r.Sale == nil || math.Abs(*r.Sale-2.0/3.0) > 1e-12 {
		t.Fatalf("expected sale rate 2/3, got %v", r.Sale)
	}
}

func TestOffspringRatesUndefinedWithoutDenominator(t *testing.T) {
	dam := "S1"
	rates := OffspringRatesFromPiglets([]domain.Piglet{
		{Base: domain.Base{ID: "P1"}, DamID: &dam, Grade: strp("A")},
	})
	r := rates["S1"]
	if r.Upgrade != nil {
		t.Fatalf("no grade-W piglets means no upgrade rate, got %v", *r.Upgrade)
	}
	if r.Sale == nil || *r.Sale != 0 {
		t.Fatalf("expected sale rate 0, got %v", r.Sale)
	}
}

func TestOffspringRatesSkipsDamsWithoutGradedPiglets(t *testing.T) {
	dam := "S1"
	rates := OffspringRatesFromPiglets([]domain.Piglet{
		{Base: domain.Base{ID: "P1"}, DamID: &dam},
	})
	if _, ok := rates["S1"]; ok {
		t.Fatalf("dam with no graded piglets must have no rates entry")
	}
}
