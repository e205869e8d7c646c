package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"time"

	"sowline/pkg/domain"
)

// rankingRow is one rendered line of the composite ranking table. Undefined
// axes render as blank cells, not zeros.
type rankingRow struct {
	Rank             int
	SowID            string
	Peak             string
	Stability        string
	Sustain          string
	OffspringQuality string
	TotalScore       string
}

var rankingPage = template.Must(template.New("ranking").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sow composite ranking ({{.View}})</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.3em 0.8em; text-align: right; }
th { background: #eee; }
td.id { text-align: left; }
tr.top { background: #fff3c4; }
</style>
</head>
<body>
<h1>Sow composite ranking</h1>
<p>View: {{.View}} &middot; {{.Count}} ranked sows &middot; generated {{.GeneratedAt}}</p>
<table>
<tr><th>Rank</th><th>Sow</th><th>Peak</th><th>Stability</th><th>Sustain</th><th>Offspring</th><th>Total</th></tr>
{{range .Rows}}<tr{{if le .Rank $.TopCut}} class="top"{{end}}><td>{{.Rank}}</td><td class="id">{{.SowID}}</td><td>{{.Peak}}</td><td>{{.Stability}}</td><td>{{.Sustain}}</td><td>{{.OffspringQuality}}</td><td>{{.TotalScore}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// RenderRankingHTML renders the ranked composite table as a standalone page.
// Only sows holding a rank under the requested view appear.
func RenderRankingHTML(scores []domain.SowScore, view domain.LineageView) ([]byte, error) {
	rows := rankingRows(scores, view)
	topCut := len(rows) / 10
	if topCut < 1 && len(rows) > 0 {
		topCut = 1
	}
	var buf bytes.Buffer
	err := rankingPage.Execute(&buf, struct {
		View        domain.LineageView
		Count       int
		GeneratedAt string
		TopCut      int
		Rows        []rankingRow
	}{view, len(rows), time.Now().UTC().Format("2006-01-02 15:04 UTC"), topCut, rows})
	if err != nil {
		return nil, fmt.Errorf("render ranking html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderRankingCSV renders the ranked composite table as CSV.
func RenderRankingCSV(scores []domain.SowScore, view domain.LineageView) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"rank", "sow_id", "peak", "stability", "sustain", "offspring_quality", "total_score"}); err != nil {
		return nil, err
	}
	for _, row := range rankingRows(scores, view) {
		record := []string{
			strconv.Itoa(row.Rank), row.SowID,
			row.Peak, row.Stability, row.Sustain, row.OffspringQuality, row.TotalScore,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderRankingJSON renders the ranked score rows as indented JSON.
func RenderRankingJSON(scores []domain.SowScore, view domain.LineageView) ([]byte, error) {
	ranked := make([]domain.SowScore, 0, len(scores))
	for _, s := range scores {
		if rankFor(s, view) != nil {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return *rankFor(ranked[i], view) < *rankFor(ranked[j], view) })
	return json.MarshalIndent(struct {
		View   domain.LineageView `json:"view"`
		Scores []domain.SowScore  `json:"scores"`
	}{view, ranked}, "", "  ")
}

func rankingRows(scores []domain.SowScore, view domain.LineageView) []rankingRow {
	rows := make([]rankingRow, 0, len(scores))
	for _, s := range scores {
		rank := rankFor(s, view)
		if rank == nil {
			continue
		}
		rows = append(rows, rankingRow{
			Rank:             *rank,
			SowID:            s.SowID,
			Peak:             formatAxis(s.Peak),
			Stability:        formatAxis(s.Stability),
			Sustain:          formatAxis(s.Sustain),
			OffspringQuality: formatAxis(s.OffspringQuality),
			TotalScore:       formatAxis(s.TotalScore),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	return rows
}

func rankFor(s domain.SowScore, view domain.LineageView) *int {
	if view == domain.ViewActiveOnly {
		return s.RankActive
	}
	return s.RankAll
}

func formatAxis(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
