// Command sowline manages a sow herd book: it loads herd datasets, recomputes
// the reproductive-performance scores, prints rankings and maternal lineage
// trees, and exports report artifacts to blob storage.
//
// Usage:
//
//	sowline load <dataset.json>
//	sowline refresh
//	sowline rankings [-view all|active] [-parity N] [-format table|json]
//	sowline lineage [-view all|active] [-root ID]
//	sowline export [-kind ranking_html|ranking_csv|ranking_json|lineage_svg] [-view all|active] [-root ID]
//
// Storage and blob backends are selected through SOWLINE_* environment
// variables (see internal/core/storage.go and internal/blob).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"sowline/internal/adapters/reports"
	"sowline/internal/blob"
	"sowline/internal/core"
	"sowline/internal/etl"
	"sowline/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sowline: %v\n", err)
		exitFunc(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command (load, refresh, rankings, lineage, export)")
	}

	ctx := context.Background()
	store, err := core.OpenPersistentStore(core.DefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	service := core.NewService(store)

	switch args[0] {
	case "load":
		return runLoad(ctx, service, args[1:])
	case "refresh":
		return runRefresh(ctx, service)
	case "rankings":
		return runRankings(ctx, service, args[1:])
	case "lineage":
		return runLineage(ctx, service, args[1:])
	case "export":
		return runExport(ctx, service, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runLoad(ctx context.Context, service *core.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sowline load <dataset.json>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var ds etl.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return fmt.Errorf("parse dataset: %w", err)
	}
	result, err := service.ApplyDataset(ctx, ds)
	printFindings(result)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d sows, %d piglets, %d breedings, %d farrowings, %d deaths, %d culls\n",
		len(ds.Sows), len(ds.Piglets), len(ds.Breeding), len(ds.Farrowing), len(ds.Deaths), len(ds.Culls))
	return nil
}

func runRefresh(ctx context.Context, service *core.Service) error {
	tables, result, err := service.RefreshScores(ctx)
	printFindings(result)
	if err != nil {
		return err
	}
	fmt.Printf("recomputed %d parity scores and %d sow scores at %s\n",
		len(tables.Parity), len(tables.Sow), tables.ComputedAt.Format(time.RFC3339))
	return nil
}

func runRankings(ctx context.Context, service *core.Service, args []string) error {
	fs := flag.NewFlagSet("rankings", flag.ContinueOnError)
	view := fs.String("view", "all", "ranking population: all or active")
	parity := fs.Int("parity", 0, "show per-litter ranking for one parity instead of the composite")
	format := fs.String("format", "table", "output format: table or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := parseView(*view)
	if err != nil {
		return err
	}

	if *parity > 0 {
		rows, err := service.ParityRankings(ctx, *parity, v)
		if err != nil {
			return err
		}
		if *format == "json" {
			return printJSON(rows)
		}
		fmt.Printf("%-5s %-10s %-8s\n", "rank", "sow", "score")
		for i, row := range rows {
			fmt.Printf("%-5d %-10s %8.3f\n", i+1, row.SowID, row.Score)
		}
		return nil
	}

	rows, err := service.Rankings(ctx, v)
	if err != nil {
		return err
	}
	if *format == "json" {
		return printJSON(rows)
	}
	fmt.Printf("%-5s %-10s %-8s %-8s %-8s %-8s %-8s\n",
		"rank", "sow", "total", "peak", "stab", "sustain", "offspr")
	for i, row := range rows {
		fmt.Printf("%-5d %-10s %8s %8s %8s %8s %8s\n", i+1, row.SowID,
			cell(row.TotalScore), cell(row.Peak), cell(row.Stability), cell(row.Sustain), cell(row.OffspringQuality))
	}
	return nil
}

func runLineage(ctx context.Context, service *core.Service, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	view := fs.String("view", "all", "branch filter: all or active")
	root := fs.String("root", "", "print only the subtree rooted at this sow")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := parseView(*view)
	if err != nil {
		return err
	}

	if *root != "" {
		node, forest, err := service.LineageTree(ctx, *root, v)
		if err != nil {
			return err
		}
		printFindings(forest.Findings)
		printTree(forest, node, 0)
		return nil
	}

	forest, err := service.LineageForest(ctx, v)
	if err != nil {
		return err
	}
	printFindings(forest.Findings)
	for _, r := range forest.VisibleRoots() {
		printTree(forest, r, 0)
	}
	return nil
}

func runExport(ctx context.Context, service *core.Service, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	kind := fs.String("kind", string(reports.KindRankingHTML), "report kind")
	view := fs.String("view", "all", "population: all or active")
	root := fs.String("root", "", "restrict a lineage chart to one subtree")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := parseView(*view)
	if err != nil {
		return err
	}

	store, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob storage: %w", err)
	}
	worker := reports.NewWorker(service, store, nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	record, err := worker.EnqueueExport(ctx, reports.ExportInput{
		Kind:        reports.ReportKind(*kind),
		View:        v,
		RootID:      *root,
		RequestedBy: "cli",
	})
	if err != nil {
		return err
	}
	record, err = waitExport(ctx, worker, record.ID)
	if err != nil {
		return err
	}
	if record.Status != reports.ExportStatusSucceeded {
		return fmt.Errorf("export failed: %s", record.Error)
	}
	fmt.Printf("exported %s -> %s", record.Artifact.Kind, record.Artifact.Key)
	if record.Artifact.URL != "" {
		fmt.Printf(" (%s)", record.Artifact.URL)
	}
	fmt.Println()
	return nil
}

func waitExport(ctx context.Context, worker *reports.Worker, id string) (reports.ExportRecord, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		record, ok := worker.GetExport(id)
		if !ok {
			return reports.ExportRecord{}, fmt.Errorf("export %s not found", id)
		}
		if record.Status == reports.ExportStatusSucceeded || record.Status == reports.ExportStatusFailed {
			return record, nil
		}
		select {
		case <-ctx.Done():
			return reports.ExportRecord{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func parseView(v string) (domain.LineageView, error) {
	switch v {
	case "all", "":
		return domain.ViewAll, nil
	case "active":
		return domain.ViewActiveOnly, nil
	default:
		return "", fmt.Errorf("unknown view %q (want all or active)", v)
	}
}

func printTree(forest interface {
	Visible(*domain.LineageNode) bool
	TopDecile(string) bool
}, node *domain.LineageNode, depth int) {
	if !forest.Visible(node) {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	mark := ""
	if forest.TopDecile(node.ID) {
		mark = " *"
	}
	status := ""
	if node.Status != domain.StatusActive {
		status = " [" + string(node.Status) + "]"
	}
	fmt.Printf("%s%s (gen %d, P%d, score %s)%s%s\n",
		indent, node.ID, node.Generation, node.ParityCount, cell(node.TotalScore), status, mark)
	for _, child := range node.Children {
		printTree(forest, child, depth+1)
	}
}

func printFindings(result domain.Result) {
	for _, v := range result.Violations {
		fmt.Fprintf(os.Stderr, "%s: %s %s: %s\n", v.Severity, v.Rule, v.EntityID, v.Message)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}
