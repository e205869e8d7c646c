package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateSow(Sow) (Sow, error)
	UpdateSow(id string, mutator func(*Sow) error) (Sow, error)
	CreatePiglet(Piglet) (Piglet, error)
	UpdatePiglet(no string, mutator func(*Piglet) error) (Piglet, error)
	CreateBreedingRecord(BreedingRecord) (BreedingRecord, error)
	CreateFarrowingRecord(FarrowingRecord) (FarrowingRecord, error)
	CreateDeathRecord(DeathRecord) (DeathRecord, error)
	CreateCullRecord(CullRecord) (CullRecord, error)
	// ReplaceScores atomically clears both derived tables and installs the
	// supplied recompute output. Readers never observe a mixed old/new state.
	ReplaceScores(ScoreTables) error
	// Truncate clears every bucket, scores included. Used by the
	// truncate-and-reload ingest.
	Truncate() error
	FindSow(id string) (Sow, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// the scoring pipeline.
type TransactionView interface {
	RuleView
	ListParityScores() []ParityScore
	ListSowScores() []SowScore
	FindSowScore(id string) (SowScore, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSow(id string) (Sow, bool)
	ListSows() []Sow
	ListPiglets() []Piglet
	ListBreedingRecords() []BreedingRecord
	ListFarrowingRecords() []FarrowingRecord
	ListDeathRecords() []DeathRecord
	ListCullRecords() []CullRecord
	ListParityScores() []ParityScore
	ListSowScores() []SowScore
}
