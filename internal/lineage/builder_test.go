package lineage

import (
	"testing"

	"sowline/pkg/domain"
)

func strp(s string) *string   { return &s }
func f64p(v float64) *float64 { return &v }

func sow(id string, dam *string, status domain.SowStatus) domain.Sow {
	return domain.Sow{Base: domain.Base{ID: id}, DamID: dam, Status: status}
}

func score(id string, total float64) domain.SowScore {
	return domain.SowScore{SowID: id, TotalScore: f64p(total)}
}

func TestBuildGenerationsAndChildren(t *testing.T) {
	in := Input{
		Sows: []domain.Sow{
			sow("A", nil, domain.StatusCulled),
			sow("B", strp("A"), domain.StatusActive),
			sow("C", strp("A"), domain.StatusCulled),
			sow("D", strp("B"), domain.StatusActive),
		},
	}
	f := Build(in, domain.ViewAll)
	if len(f.Roots) != 1 || f.Roots[0].ID != "A" {
		t.Fatalf("expected single root A, got %+v", f.Roots)
	}
	a, _ := f.Node("A")
	if len(a.Children) != 2 || a.Children[0].ID != "B" || a.Children[1].ID != "C" {
		t.Fatalf("children of A must be [B C], got %+v", a.Children)
	}
	for id, want := range map[string]int{"A": 0, "B": 1, "C": 1, "D": 2} {
		n, _ := f.Node(id)
		if n.Generation != want {
			t.Fatalf("sow %s: expected generation %d got %d", id, want, n.Generation)
		}
	}
	if len(f.Findings.Violations) != 0 {
		t.Fatalf("clean forest must raise no findings: %+v", f.Findings.Violations)
	}
}

func TestBuildBrokenDamLinkBecomesRoot(t *testing.T) {
	in := Input{Sows: []domain.Sow{sow("B", strp("GHOST"), domain.StatusActive)}}
	f := Build(in, domain.ViewAll)
	if len(f.Roots) != 1 || f.Roots[0].ID != "B" {
		t.Fatalf("sow with unknown dam must become a root, got %+v", f.Roots)
	}
	if len(f.Findings.Violations) != 1 || f.Findings.Violations[0].Rule != "broken_lineage_link" {
		t.Fatalf("expected one broken-link warning, got %+v", f.Findings.Violations)
	}
	if f.Findings.HasBlocking() {
		t.Fatalf("lineage findings must never block")
	}
}

func TestBuildDamCycleTerminates(t *testing.T) {
	in := Input{
		Sows: []domain.Sow{
			sow("A", strp("B"), domain.StatusActive),
			sow("B", strp("A"), domain.StatusCulled),
		},
	}
	f := Build(in, domain.ViewAll)
	if len(f.Roots) != 1 || f.Roots[0].ID != "A" {
		t.Fatalf("smallest cycle member must anchor the traversal, got %+v", f.Roots)
	}
	a, _ := f.Node("A")
	b, _ := f.Node("B")
	if a.Generation != 0 || b.Generation != 1 {
		t.Fatalf("expected generations 0 and 1, got %d and %d", a.Generation, b.Generation)
	}
	warned := false
	for _, v := range f.Findings.Violations {
		if v.Rule == "cyclic_lineage" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("dam cycle must raise a warning, got %+v", f.Findings.Violations)
	}
}

func TestBuildSelfDamIsRoot(t *testing.T) {
	in := Input{Sows: []domain.Sow{sow("A", strp("A"), domain.StatusActive)}}
	f := Build(in, domain.ViewAll)
	if len(f.Roots) != 1 || f.Roots[0].ID != "A" {
		t.Fatalf("self-referencing sow must become a root, got %+v", f.Roots)
	}
	if len(f.Findings.Violations) != 1 || f.Findings.Violations[0].Rule != "cyclic_lineage" {
		t.Fatalf("expected a cyclic-lineage warning, got %+v", f.Findings.Violations)
	}
}

func TestBuildHasActivePropagates(t *testing.T) {
	in := Input{
		Sows: []domain.Sow{
			sow("A", nil, domain.StatusDead),
			sow("B", strp("A"), domain.StatusCulled),
			sow("C", strp("B"), domain.StatusActive),
			sow("X", nil, domain.StatusCulled),
		},
	}
	f := Build(in, domain.ViewActiveOnly)
	for _, id := range []string{"A", "B", "C"} {
		n, _ := f.Node(id)
		if !n.HasActive {
			t.Fatalf("branch with active leaf must carry the flag at %s", id)
		}
	}
	x, _ := f.Node("X")
	if x.HasActive {
		t.Fatalf("fully retired branch must not carry the flag")
	}
	roots := f.VisibleRoots()
	if len(roots) != 1 || roots[0].ID != "A" {
		t.Fatalf("active-only view must hide retired branches, got %+v", roots)
	}
	if f.Visible(x) {
		t.Fatalf("retired branch must not be visible in active-only view")
	}
}

func TestBuildTopDecileThreshold(t *testing.T) {
	in := Input{Scores: make([]domain.SowScore, 0, 20)}
	for i := 0; i < 20; i++ {
		id := string(rune('A' + i))
		in.Sows = append(in.Sows, sow(id, nil, domain.StatusActive))
		in.Scores = append(in.Scores, score(id, float64(i)))
	}
	f := Build(in, domain.ViewAll)
	// 20 scored sows: threshold is the 2nd best score, 18.
	if f.Threshold == nil || *f.Threshold != 18 {
		t.Fatalf("expected threshold 18, got %v", f.Threshold)
	}
	flagged := 0
	for i := 0; i < 20; i++ {
		if f.TopDecile(string(rune('A' + i))) {
			flagged++
		}
	}
	if flagged != 2 {
		t.Fatalf("expected 2 flagged sows, got %d", flagged)
	}
}

func TestBuildTopDecileSmallPopulation(t *testing.T) {
	in := Input{
		Sows:   []domain.Sow{sow("A", nil, domain.StatusActive), sow("B", nil, domain.StatusActive)},
		Scores: []domain.SowScore{score("A", 1), score("B", 5)},
	}
	f := Build(in, domain.ViewAll)
	// Fewer than ten scored sows: only the best is flagged.
	if f.Threshold == nil || *f.Threshold != 5 {
		t.Fatalf("expected threshold 5, got %v", f.Threshold)
	}
	if !f.TopDecile("B") || f.TopDecile("A") {
		t.Fatalf("only the best sow may be flagged in a tiny population")
	}
}

func TestBuildNoScoresNoThreshold(t *testing.T) {
	f := Build(Input{Sows: []domain.Sow{sow("A", nil, domain.StatusActive)}}, domain.ViewAll)
	if f.Threshold != nil {
		t.Fatalf("unscored population must have no threshold, got %v", *f.Threshold)
	}
	if f.TopDecile("A") {
		t.Fatalf("unscored sow must not be flagged")
	}
}

func TestBuildActiveOnlyThresholdIgnoresRetiredBranches(t *testing.T) {
	in := Input{
		Sows: []domain.Sow{
			sow("A", nil, domain.StatusActive),
			sow("B", nil, domain.StatusCulled),
		},
		Scores: []domain.SowScore{score("A", 1), score("B", 99)},
	}
	f := Build(in, domain.ViewActiveOnly)
	if f.Threshold == nil || *f.Threshold != 1 {
		t.Fatalf("retired branch must not set the active-only threshold, got %v", f.Threshold)
	}
	if f.TopDecile("B") {
		t.Fatalf("invisible sow must not be flagged")
	}
}

func TestBuildAnnotatesParityCountAndCause(t *testing.T) {
	cause := "leg weakness"
	in := Input{
		Sows: []domain.Sow{sow("A", nil, domain.StatusCulled)},
		Farrowing: []domain.FarrowingRecord{
			{SowID: "A", Parity: 1},
			{SowID: "A", Parity: 3},
		},
		Culls: []domain.CullRecord{{SowID: "A", Cause: &cause}},
	}
	f := Build(in, domain.ViewAll)
	a, _ := f.Node("A")
	if a.ParityCount != 3 {
		t.Fatalf("expected parity count 3, got %d", a.ParityCount)
	}
	if a.Cause == nil || *a.Cause != cause {
		t.Fatalf("expected cull cause on the node, got %v", a.Cause)
	}
}
