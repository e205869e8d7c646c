package scoring

import (
	"testing"

	"sowline/pkg/domain"
)

func intp(v int) *int { return &v }

func TestComputeBaseMetricsOwnLitter(t *testing.T) {
	m := computeBaseMetrics(domain.FarrowingRecord{
		SowID:     "S1",
		Parity:    2,
		TotalBorn: intp(14),
		BornAlive: intp(13),
		Stillborn: intp(1),
		Weaned:    intp(12),
		Foster:    intp(2),
	})
	if m.ownWeaned == nil || *m.ownWeaned != 10 {
		t.Fatalf("expected own weaned 10, got %v", m.ownWeaned)
	}
	if m.ownRate == nil || *m.ownRate != 10.0/12.0 {
		t.Fatalf("expected own rate 10/12, got %v", m.ownRate)
	}
	if m.liveBorn == nil || *m.liveBorn != 13 {
		t.Fatalf("expected live born 13, got %v", m.liveBorn)
	}
}

func TestComputeBaseMetricsMissingFosterMeansNone(t *testing.T) {
	m := computeBaseMetrics(domain.FarrowingRecord{SowID: "S1", Parity: 1, Weaned: intp(9)})
	if m.ownWeaned == nil || *m.ownWeaned != 9 {
		t.Fatalf("expected own weaned 9 with no foster count, got %v", m.ownWeaned)
	}
	if m.ownRate == nil || *m.ownRate != 1 {
		t.Fatalf("expected own rate 1, got %v", m.ownRate)
	}
}

func TestComputeBaseMetricsZeroWeanedLeavesRateUndefined(t *testing.T) {
	m := computeBaseMetrics(domain.FarrowingRecord{SowID: "S1", Parity: 1, Weaned: intp(0)})
	if m.ownWeaned == nil || *m.ownWeaned != 0 {
		t.Fatalf("expected own weaned 0, got %v", m.ownWeaned)
	}
	if m.ownRate != nil {
		t.Fatalf("own rate must be undefined when nothing was weaned, got %v", *m.ownRate)
	}
}

func TestComputeBaseMetricsMissingWeanedLeavesOwnUndefined(t *testing.T) {
	m := computeBaseMetrics(domain.FarrowingRecord{SowID: "S1", Parity: 1, TotalBorn: intp(11)})
	if m.ownWeaned != nil || m.ownRate != nil {
		t.Fatalf("missing weaned count must leave own metrics undefined")
	}
	if m.totalBorn == nil || *m.totalBorn != 11 {
		t.Fatalf("expected total born 11, got %v", m.totalBorn)
	}
}
