// Package reports renders the herd's outward-facing artifacts, the composite
// ranking report and the maternal lineage chart, and runs the asynchronous
// export worker that materialises them into blob storage.
package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"sowline/internal/blob"
	"sowline/internal/lineage"
	"sowline/pkg/domain"
)

// ReportKind selects which artifact an export produces.
type ReportKind string

const (
	// KindRankingHTML is the composite ranking table as a standalone HTML page.
	KindRankingHTML ReportKind = "ranking_html"
	// KindRankingCSV is the composite ranking table as CSV.
	KindRankingCSV ReportKind = "ranking_csv"
	// KindRankingJSON is the composite ranking table as JSON.
	KindRankingJSON ReportKind = "ranking_json"
	// KindLineageSVG is the maternal descent forest as an SVG chart.
	KindLineageSVG ReportKind = "lineage_svg"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored report artifact.
type ExportArtifact struct {
	Key         string     `json:"key"`
	Kind        ReportKind `json:"kind"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	URL         string     `json:"url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ExportRecord tracks an export request and its resulting artifact.
type ExportRecord struct {
	ID          string             `json:"id"`
	Kind        ReportKind         `json:"kind"`
	View        domain.LineageView `json:"view"`
	RootID      string             `json:"root_id,omitempty"`
	Status      ExportStatus       `json:"status"`
	Error       string             `json:"error,omitempty"`
	Artifact    *ExportArtifact    `json:"artifact,omitempty"`
	RequestedBy string             `json:"requested_by"`
	Reason      string             `json:"reason,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Kind        ReportKind
	View        domain.LineageView
	RootID      string // optional: restrict the lineage chart to one subtree
	RequestedBy string
	Reason      string
}

// Source supplies the data a report renders. The core service satisfies it.
type Source interface {
	Rankings(ctx context.Context, view domain.LineageView) ([]domain.SowScore, error)
	LineageForest(ctx context.Context, view domain.LineageView) (*lineage.Forest, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string             `json:"id"`
	Action     string             `json:"action"`
	Actor      string             `json:"actor"`
	Kind       ReportKind         `json:"kind"`
	Status     ExportStatus       `json:"status"`
	View       domain.LineageView `json:"view"`
	Reason     string             `json:"reason,omitempty"`
	Note       string             `json:"note,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Worker executes report exports asynchronously.
type Worker struct {
	source Source
	store  blob.Store
	audit  AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker.
func NewWorker(source Source, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	switch input.Kind {
	case KindRankingHTML, KindRankingCSV, KindRankingJSON, KindLineageSVG:
	default:
		return ExportRecord{}, fmt.Errorf("unknown report kind %s", input.Kind)
	}
	if input.View == "" {
		input.View = domain.ViewAll
	}

	id := newID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Kind:        input.Kind,
		View:        input.View,
		RootID:      input.RootID,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record
	w.mu.Unlock()

	w.recordAudit(ctx, record, ExportStatusQueued, "")

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return *record, true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning, "")

	payload, contentType, err := w.render(task.input)
	if err != nil {
		w.fail(task.id, err.Error())
		return
	}

	artifact := ExportArtifact{
		Key:         fmt.Sprintf("reports/%s/%s", task.id, fileNameFor(task.input.Kind)),
		Kind:        task.input.Kind,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		CreatedAt:   time.Now().UTC(),
	}
	if w.store != nil {
		info, err := w.store.Put(w.ctx, artifact.Key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"kind": string(task.input.Kind), "view": string(task.input.View)},
		})
		if err != nil {
			w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
			return
		}
		artifact.URL = info.URL
		if info.Size > 0 {
			artifact.SizeBytes = info.Size
		}
	}

	w.complete(task.id, artifact)
}

func (w *Worker) render(input ExportInput) ([]byte, string, error) {
	switch input.Kind {
	case KindRankingHTML, KindRankingCSV, KindRankingJSON:
		rows, err := w.source.Rankings(w.ctx, input.View)
		if err != nil {
			return nil, "", fmt.Errorf("load rankings: %w", err)
		}
		switch input.Kind {
		case KindRankingCSV:
			payload, err := RenderRankingCSV(rows, input.View)
			return payload, "text/csv", err
		case KindRankingJSON:
			payload, err := RenderRankingJSON(rows, input.View)
			return payload, "application/json", err
		}
		payload, err := RenderRankingHTML(rows, input.View)
		if err != nil {
			return nil, "", err
		}
		return payload, "text/html; charset=utf-8", nil
	case KindLineageSVG:
		forest, err := w.source.LineageForest(w.ctx, input.View)
		if err != nil {
			return nil, "", fmt.Errorf("build lineage: %w", err)
		}
		roots := forest.VisibleRoots()
		if input.RootID != "" {
			node, ok := forest.Tree(input.RootID)
			if !ok {
				return nil, "", fmt.Errorf("sow %s not found", input.RootID)
			}
			roots = []*domain.LineageNode{node}
		}
		return RenderLineageSVG(forest, roots), "image/svg+xml", nil
	default:
		return nil, "", fmt.Errorf("unknown report kind %s", input.Kind)
	}
}

func fileNameFor(kind ReportKind) string {
	switch kind {
	case KindLineageSVG:
		return "lineage.svg"
	case KindRankingCSV:
		return "ranking.csv"
	case KindRankingJSON:
		return "ranking.json"
	default:
		return "ranking.html"
	}
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	snapshot := ExportRecord{}
	if ok {
		snapshot = *record
	}
	w.mu.Unlock()
	if ok {
		w.recordAudit(w.ctx, snapshot, status, message)
	}
}

func (w *Worker) complete(id string, artifact ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifact = &artifact
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	snapshot := ExportRecord{}
	if ok {
		snapshot = *record
	}
	w.mu.Unlock()
	if ok {
		w.recordAudit(w.ctx, snapshot, ExportStatusSucceeded, "")
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	snapshot := ExportRecord{}
	if ok {
		snapshot = *record
	}
	w.mu.Unlock()
	if ok {
		w.recordAudit(w.ctx, snapshot, ExportStatusFailed, reason)
	}
}

func (w *Worker) recordAudit(ctx context.Context, record ExportRecord, status ExportStatus, note string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     "report_export",
		Actor:      record.RequestedBy,
		Kind:       record.Kind,
		Status:     status,
		View:       record.View,
		Reason:     record.Reason,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
