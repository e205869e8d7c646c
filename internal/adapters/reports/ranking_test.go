package reports

import (
	"encoding/json"
	"strings"
	"testing"

	"sowline/pkg/domain"
)

func TestRenderRankingCSVOrdersByRankAndSkipsUnranked(t *testing.T) {
	payload, err := RenderRankingCSV(testScores(), domain.ViewAll)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two ranked rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1,101,") {
		t.Fatalf("rank 1 row wrong: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2,102,") {
		t.Fatalf("rank 2 row wrong: %s", lines[2])
	}
	// sow 103 has no composite and no rank; it must not appear
	if strings.Contains(string(payload), "103") {
		t.Fatalf("unranked sow leaked into csv: %s", payload)
	}
}

func TestRenderRankingCSVActiveView(t *testing.T) {
	payload, err := RenderRankingCSV(testScores(), domain.ViewActiveOnly)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	// only sow 102 carries an active rank
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1,102,") {
		t.Fatalf("active rank row wrong: %s", lines[1])
	}
}

func TestRenderRankingHTMLBlanksUndefinedAxes(t *testing.T) {
	payload, err := RenderRankingHTML(testScores(), domain.ViewAll)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(payload)
	if !strings.Contains(page, "<td>1.200</td>") {
		t.Fatalf("peak axis missing: %s", page)
	}
	// sow 101 has no sustain value; the cell stays empty
	if !strings.Contains(page, "<td></td>") {
		t.Fatalf("undefined axis should render empty cell")
	}
	if !strings.Contains(page, "View: all") {
		t.Fatalf("view caption missing")
	}
}

func TestRenderRankingJSONRoundTrips(t *testing.T) {
	payload, err := RenderRankingJSON(testScores(), domain.ViewAll)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var doc struct {
		View   domain.LineageView `json:"view"`
		Scores []domain.SowScore  `json:"scores"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.View != domain.ViewAll {
		t.Fatalf("expected view all, got %s", doc.View)
	}
	if len(doc.Scores) != 2 {
		t.Fatalf("expected two ranked scores, got %d", len(doc.Scores))
	}
	if doc.Scores[0].SowID != "101" || doc.Scores[1].SowID != "102" {
		t.Fatalf("wrong order: %s, %s", doc.Scores[0].SowID, doc.Scores[1].SowID)
	}
}
