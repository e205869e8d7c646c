package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sowline/internal/etl"
	"sowline/internal/infra/persistence/memory"
	"sowline/internal/lineage"
	"sowline/internal/scoring"
	"sowline/pkg/domain"
)

// Service exposes the transactional operations of the herd: roster and event
// CRUD, dataset loads, score recomputation, rankings, and lineage queries.
// Every operation is traced and measured through the configured observability
// hooks.
type Service struct {
	store   domain.PersistentStore
	scorer  *scoring.Engine
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// DefaultRulesEngine returns an engine with the standard herd rules
// registered.
func DefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(LineageIntegrityRule())
	engine.Register(ParitySequenceRule())
	engine.Register(LifecycleTransitionRule())
	return engine
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scorer = scoring.NewEngine(scoring.Config{Now: s.nowFn})
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// CreateSow persists a new sow.
func (s *Service) CreateSow(ctx context.Context, sow Sow) (Sow, Result, error) {
	var created Sow
	var res Result
	err := s.observe(ctx, "create_sow", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateSow(sow)
			return err
		})
		return err
	})
	return created, res, err
}

// UpdateSow mutates a sow using the provided mutator.
func (s *Service) UpdateSow(ctx context.Context, id string, mutator func(*Sow) error) (Sow, Result, error) {
	var updated Sow
	var res Result
	err := s.observe(ctx, "update_sow", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateSow(id, mutator)
			return err
		})
		return err
	})
	return updated, res, err
}

// CreatePiglet persists an offspring record.
func (s *Service) CreatePiglet(ctx context.Context, piglet Piglet) (Piglet, Result, error) {
	var created Piglet
	var res Result
	err := s.observe(ctx, "create_piglet", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreatePiglet(piglet)
			return err
		})
		return err
	})
	return created, res, err
}

// RecordBreeding persists a service record for a sow at a given parity.
func (s *Service) RecordBreeding(ctx context.Context, record BreedingRecord) (BreedingRecord, Result, error) {
	var created BreedingRecord
	var res Result
	err := s.observe(ctx, "record_breeding", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindSow(record.SowID); !ok {
				return ErrNotFound{Entity: EntitySow, ID: record.SowID}
			}
			var err error
			created, err = tx.CreateBreedingRecord(record)
			return err
		})
		return err
	})
	return created, res, err
}

// RecordFarrowing persists a litter record for a sow at a given parity.
func (s *Service) RecordFarrowing(ctx context.Context, record FarrowingRecord) (FarrowingRecord, Result, error) {
	var created FarrowingRecord
	var res Result
	err := s.observe(ctx, "record_farrowing", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindSow(record.SowID); !ok {
				return ErrNotFound{Entity: EntitySow, ID: record.SowID}
			}
			var err error
			created, err = tx.CreateFarrowingRecord(record)
			return err
		})
		return err
	})
	return created, res, err
}

// RecordDeath persists a death event and moves the sow to her terminal state
// in the same transaction.
func (s *Service) RecordDeath(ctx context.Context, record DeathRecord) (DeathRecord, Result, error) {
	var created DeathRecord
	var res Result
	err := s.observe(ctx, "record_death", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindSow(record.SowID); !ok {
				return ErrNotFound{Entity: EntitySow, ID: record.SowID}
			}
			var err error
			created, err = tx.CreateDeathRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.UpdateSow(record.SowID, func(sow *Sow) error {
				sow.Status = StatusDead
				return nil
			})
			return err
		})
		return err
	})
	return created, res, err
}

// RecordCull persists a cull event and moves the sow to her terminal state in
// the same transaction. A sow already recorded dead keeps that status.
func (s *Service) RecordCull(ctx context.Context, record CullRecord) (CullRecord, Result, error) {
	var created CullRecord
	var res Result
	err := s.observe(ctx, "record_cull", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindSow(record.SowID); !ok {
				return ErrNotFound{Entity: EntitySow, ID: record.SowID}
			}
			var err error
			created, err = tx.CreateCullRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.UpdateSow(record.SowID, func(sow *Sow) error {
				if sow.Status != StatusDead {
					sow.Status = StatusCulled
				}
				return nil
			})
			return err
		})
		return err
	})
	return created, res, err
}

// GetSow retrieves a sow by her individual number.
func (s *Service) GetSow(id string) (Sow, bool) {
	return s.store.GetSow(id)
}

// ListSows returns the full roster in ID order.
func (s *Service) ListSows() []Sow {
	return s.store.ListSows()
}

// ApplyDataset replaces the store contents with one herd-book extract and
// recomputes the score tables from the fresh state.
func (s *Service) ApplyDataset(ctx context.Context, ds etl.Dataset) (Result, error) {
	var combined Result
	err := s.observe(ctx, "apply_dataset", func(ctx context.Context) error {
		res, err := etl.Apply(ctx, s.store, ds)
		combined.Merge(res)
		if err != nil {
			return err
		}
		_, res, err = s.refreshScores(ctx)
		combined.Merge(res)
		return err
	})
	return combined, err
}

// RefreshScores recomputes both derived score tables from committed state and
// installs them atomically. Readers never observe a mix of old and new rows.
func (s *Service) RefreshScores(ctx context.Context) (ScoreTables, Result, error) {
	var tables ScoreTables
	var res Result
	err := s.observe(ctx, "refresh_scores", func(ctx context.Context) error {
		var err error
		tables, res, err = s.refreshScores(ctx)
		return err
	})
	return tables, res, err
}

func (s *Service) refreshScores(ctx context.Context) (ScoreTables, Result, error) {
	var in scoring.Input
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		in.Sows = view.ListSows()
		in.Farrowing = view.ListFarrowingRecords()
		in.Offspring = scoring.OffspringRatesFromPiglets(view.ListPiglets())
		return nil
	}); err != nil {
		return ScoreTables{}, Result{}, err
	}

	tables, findings := s.scorer.Compute(in)

	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.ReplaceScores(tables)
	})
	if err != nil {
		return ScoreTables{}, res, err
	}
	res.Merge(findings)
	return tables, res, nil
}

// Rankings returns the sow composite ranking for the requested view, best
// first. Sows without a composite are absent.
func (s *Service) Rankings(ctx context.Context, view LineageView) ([]SowScore, error) {
	var out []SowScore
	err := s.observe(ctx, "rankings", func(ctx context.Context) error {
		return s.store.View(ctx, func(tv domain.TransactionView) error {
			for _, row := range tv.ListSowScores() {
				if rankFor(row.RankAll, row.RankActive, view) != nil {
					out = append(out, row)
				}
			}
			sort.Slice(out, func(i, j int) bool {
				return *rankFor(out[i].RankAll, out[i].RankActive, view) < *rankFor(out[j].RankAll, out[j].RankActive, view)
			})
			return nil
		})
	})
	return out, err
}

// ParityRankings returns the per-litter ranking for one parity cohort in the
// requested view, best first.
func (s *Service) ParityRankings(ctx context.Context, parity int, view LineageView) ([]ParityScore, error) {
	var out []ParityScore
	err := s.observe(ctx, "parity_rankings", func(ctx context.Context) error {
		return s.store.View(ctx, func(tv domain.TransactionView) error {
			for _, row := range tv.ListParityScores() {
				if row.Parity != parity {
					continue
				}
				if rankFor(row.RankAll, row.RankActive, view) != nil {
					out = append(out, row)
				}
			}
			sort.Slice(out, func(i, j int) bool {
				return *rankFor(out[i].RankAll, out[i].RankActive, view) < *rankFor(out[j].RankAll, out[j].RankActive, view)
			})
			return nil
		})
	})
	return out, err
}

func rankFor(all, active *int, view LineageView) *int {
	if view == ViewActiveOnly {
		return active
	}
	return all
}

// SowScoreFor retrieves the derived score row for one sow.
func (s *Service) SowScoreFor(ctx context.Context, id string) (SowScore, bool, error) {
	var row SowScore
	var ok bool
	err := s.store.View(ctx, func(tv domain.TransactionView) error {
		row, ok = tv.FindSowScore(id)
		return nil
	})
	return row, ok, err
}

// LineageForest builds the annotated maternal descent forest for the
// requested view from committed state.
func (s *Service) LineageForest(ctx context.Context, view LineageView) (*lineage.Forest, error) {
	var forest *lineage.Forest
	err := s.observe(ctx, "lineage_forest", func(ctx context.Context) error {
		var in lineage.Input
		if err := s.store.View(ctx, func(tv domain.TransactionView) error {
			in.Sows = tv.ListSows()
			in.Scores = tv.ListSowScores()
			in.Farrowing = tv.ListFarrowingRecords()
			in.Deaths = tv.ListDeathRecords()
			in.Culls = tv.ListCullRecords()
			return nil
		}); err != nil {
			return err
		}
		forest = lineage.Build(in, view)
		return nil
	})
	return forest, err
}

// LineageTree builds the forest and returns the subtree anchored at the
// requested sow.
func (s *Service) LineageTree(ctx context.Context, rootID string, view LineageView) (*LineageNode, *lineage.Forest, error) {
	forest, err := s.LineageForest(ctx, view)
	if err != nil {
		return nil, nil, err
	}
	node, ok := forest.Tree(rootID)
	if !ok {
		return nil, nil, ErrNotFound{Entity: EntitySow, ID: rootID}
	}
	return node, forest, nil
}

// ErrNotFound is returned when reference validation fails within
// transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
