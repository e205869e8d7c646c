// Package memory provides the canonical in-memory transactional store for the
// sowline domain. Durable backends (sqlite, postgres) wrap this store and
// snapshot its state after each successful commit.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"sowline/pkg/domain"
)

type (
	Sow             = domain.Sow
	Piglet          = domain.Piglet
	BreedingRecord  = domain.BreedingRecord
	FarrowingRecord = domain.FarrowingRecord
	DeathRecord     = domain.DeathRecord
	CullRecord      = domain.CullRecord
	ParityScore     = domain.ParityScore
	SowScore        = domain.SowScore
	ScoreTables     = domain.ScoreTables
	Change          = domain.Change
	Result          = domain.Result
	RulesEngine     = domain.RulesEngine
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Snapshot captures the full store state for external persistence.
type Snapshot struct {
	Sows         []Sow             `json:"sows"`
	Piglets      []Piglet          `json:"piglets"`
	Breeding     []BreedingRecord  `json:"breeding_records"`
	Farrowing    []FarrowingRecord `json:"farrowing_records"`
	Deaths       []DeathRecord     `json:"death_records"`
	Culls        []CullRecord      `json:"cull_records"`
	ParityScores []ParityScore     `json:"parity_scores"`
	SowScores    []SowScore        `json:"sow_scores"`
}

type memoryState struct {
	sows         map[string]Sow
	piglets      map[string]Piglet
	breeding     map[string]BreedingRecord  // keyed by sowID#parity
	farrowing    map[string]FarrowingRecord // keyed by sowID#parity
	deaths       map[string]DeathRecord
	culls        map[string]CullRecord
	parityScores map[string]ParityScore // keyed by sowID#parity
	sowScores    map[string]SowScore
}

func newMemoryState() memoryState {
	return memoryState{
		sows:         make(map[string]Sow),
		piglets:      make(map[string]Piglet),
		breeding:     make(map[string]BreedingRecord),
		farrowing:    make(map[string]FarrowingRecord),
		deaths:       make(map[string]DeathRecord),
		culls:        make(map[string]CullRecord),
		parityScores: make(map[string]ParityScore),
		sowScores:    make(map[string]SowScore),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.sows {
		cloned.sows[k] = v
	}
	for k, v := range s.piglets {
		cloned.piglets[k] = v
	}
	for k, v := range s.breeding {
		cloned.breeding[k] = v
	}
	for k, v := range s.farrowing {
		cloned.farrowing[k] = v
	}
	for k, v := range s.deaths {
		cloned.deaths[k] = v
	}
	for k, v := range s.culls {
		cloned.culls[k] = v
	}
	for k, v := range s.parityScores {
		cloned.parityScores[k] = v
	}
	for k, v := range s.sowScores {
		cloned.sowScores[k] = v
	}
	return cloned
}

func parityKey(sowID string, parity int) string {
	return fmt.Sprintf("%s#%d", sowID, parity)
}

// Store provides an in-memory transactional store for the sowline domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// RulesEngine exposes the configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// ExportState clones the current store state for external persistence.
// Slices are emitted in deterministic key order.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(snapshot)
}

func snapshotFromState(state memoryState) Snapshot {
	var snap Snapshot
	for _, v := range state.sows {
		snap.Sows = append(snap.Sows, v)
	}
	for _, v := range state.piglets {
		snap.Piglets = append(snap.Piglets, v)
	}
	for _, v := range state.breeding {
		snap.Breeding = append(snap.Breeding, v)
	}
	for _, v := range state.farrowing {
		snap.Farrowing = append(snap.Farrowing, v)
	}
	for _, v := range state.deaths {
		snap.Deaths = append(snap.Deaths, v)
	}
	for _, v := range state.culls {
		snap.Culls = append(snap.Culls, v)
	}
	for _, v := range state.parityScores {
		snap.ParityScores = append(snap.ParityScores, v)
	}
	for _, v := range state.sowScores {
		snap.SowScores = append(snap.SowScores, v)
	}
	sort.Slice(snap.Sows, func(i, j int) bool { return snap.Sows[i].ID < snap.Sows[j].ID })
	sort.Slice(snap.Piglets, func(i, j int) bool { return snap.Piglets[i].ID < snap.Piglets[j].ID })
	sort.Slice(snap.Breeding, func(i, j int) bool {
		a, b := snap.Breeding[i], snap.Breeding[j]
		if a.SowID != b.SowID {
			return a.SowID < b.SowID
		}
		return a.Parity < b.Parity
	})
	sort.Slice(snap.Farrowing, func(i, j int) bool {
		a, b := snap.Farrowing[i], snap.Farrowing[j]
		if a.SowID != b.SowID {
			return a.SowID < b.SowID
		}
		return a.Parity < b.Parity
	})
	sort.Slice(snap.Deaths, func(i, j int) bool { return snap.Deaths[i].ID < snap.Deaths[j].ID })
	sort.Slice(snap.Culls, func(i, j int) bool { return snap.Culls[i].ID < snap.Culls[j].ID })
	sort.Slice(snap.ParityScores, func(i, j int) bool {
		a, b := snap.ParityScores[i], snap.ParityScores[j]
		if a.SowID != b.SowID {
			return a.SowID < b.SowID
		}
		return a.Parity < b.Parity
	})
	sort.Slice(snap.SowScores, func(i, j int) bool { return snap.SowScores[i].SowID < snap.SowScores[j].SowID })
	return snap
}

func stateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for _, v := range snap.Sows {
		state.sows[v.ID] = v
	}
	for _, v := range snap.Piglets {
		state.piglets[v.ID] = v
	}
	for _, v := range snap.Breeding {
		state.breeding[parityKey(v.SowID, v.Parity)] = v
	}
	for _, v := range snap.Farrowing {
		state.farrowing[parityKey(v.SowID, v.Parity)] = v
	}
	for _, v := range snap.Deaths {
		state.deaths[v.ID] = v
	}
	for _, v := range snap.Culls {
		state.culls[v.ID] = v
	}
	for _, v := range snap.ParityScores {
		state.parityScores[parityKey(v.SowID, v.Parity)] = v
	}
	for _, v := range snap.SowScores {
		state.sowScores[v.SowID] = v
	}
	return state
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListSows returns all sows within the snapshot.
func (v transactionView) ListSows() []Sow {
	out := make([]Sow, 0, len(v.state.sows))
	for _, s := range v.state.sows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPiglets returns all piglets within the snapshot.
func (v transactionView) ListPiglets() []Piglet {
	out := make([]Piglet, 0, len(v.state.piglets))
	for _, p := range v.state.piglets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListBreedingRecords returns all service records within the snapshot.
func (v transactionView) ListBreedingRecords() []BreedingRecord {
	out := make([]BreedingRecord, 0, len(v.state.breeding))
	for _, r := range v.state.breeding {
		out = append(out, r)
	}
	sortByParity(out, func(r BreedingRecord) (string, int) { return r.SowID, r.Parity })
	return out
}

// ListFarrowingRecords returns all litter records within the snapshot.
func (v transactionView) ListFarrowingRecords() []FarrowingRecord {
	out := make([]FarrowingRecord, 0, len(v.state.farrowing))
	for _, r := range v.state.farrowing {
		out = append(out, r)
	}
	sortByParity(out, func(r FarrowingRecord) (string, int) { return r.SowID, r.Parity })
	return out
}

// ListDeathRecords returns all death events within the snapshot.
func (v transactionView) ListDeathRecords() []DeathRecord {
	out := make([]DeathRecord, 0, len(v.state.deaths))
	for _, r := range v.state.deaths {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListCullRecords returns all cull events within the snapshot.
func (v transactionView) ListCullRecords() []CullRecord {
	out := make([]CullRecord, 0, len(v.state.culls))
	for _, r := range v.state.culls {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListParityScores returns the derived per-litter score table.
func (v transactionView) ListParityScores() []ParityScore {
	out := make([]ParityScore, 0, len(v.state.parityScores))
	for _, r := range v.state.parityScores {
		out = append(out, r)
	}
	sortByParity(out, func(r ParityScore) (string, int) { return r.SowID, r.Parity })
	return out
}

// ListSowScores returns the derived per-sow score table.
func (v transactionView) ListSowScores() []SowScore {
	out := make([]SowScore, 0, len(v.state.sowScores))
	for _, r := range v.state.sowScores {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SowID < out[j].SowID })
	return out
}

// FindSow retrieves a sow by ID from the snapshot.
func (v transactionView) FindSow(id string) (Sow, bool) {
	s, ok := v.state.sows[id]
	return s, ok
}

// FindPiglet retrieves a piglet by number from the snapshot.
func (v transactionView) FindPiglet(no string) (Piglet, bool) {
	p, ok := v.state.piglets[no]
	return p, ok
}

// FindSowScore retrieves the derived score row for a sow.
func (v transactionView) FindSowScore(id string) (SowScore, bool) {
	s, ok := v.state.sowScores[id]
	return s, ok
}

func sortByParity[T any](items []T, key func(T) (string, int)) {
	sort.Slice(items, func(i, j int) bool {
		si, pi := key(items[i])
		sj, pj := key(items[j])
		if si != sj {
			return si < sj
		}
		return pi < pj
	})
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindSow exposes sow lookup within the transaction scope.
func (tx *transaction) FindSow(id string) (Sow, bool) {
	s, ok := tx.state.sows[id]
	return s, ok
}

// CreateSow stores a new sow within the transaction.
func (tx *transaction) CreateSow(s Sow) (Sow, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.sows[s.ID]; exists {
		return Sow{}, fmt.Errorf("sow %q already exists", s.ID)
	}
	if s.Status == "" {
		s.Status = domain.StatusActive
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.sows[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntitySow, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateSow mutates a sow using the provided mutator function.
func (tx *transaction) UpdateSow(id string, mutator func(*Sow) error) (Sow, error) {
	current, ok := tx.state.sows[id]
	if !ok {
		return Sow{}, fmt.Errorf("sow %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Sow{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.sows[id] = current
	tx.recordChange(Change{Entity: domain.EntitySow, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreatePiglet stores a new piglet record.
func (tx *transaction) CreatePiglet(p Piglet) (Piglet, error) {
	if p.ID == "" {
		return Piglet{}, fmt.Errorf("piglet number required")
	}
	if _, exists := tx.state.piglets[p.ID]; exists {
		return Piglet{}, fmt.Errorf("piglet %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.piglets[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPiglet, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePiglet mutates a piglet record.
func (tx *transaction) UpdatePiglet(no string, mutator func(*Piglet) error) (Piglet, error) {
	current, ok := tx.state.piglets[no]
	if !ok {
		return Piglet{}, fmt.Errorf("piglet %q not found", no)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Piglet{}, err
	}
	current.ID = no
	current.UpdatedAt = tx.now
	tx.state.piglets[no] = current
	tx.recordChange(Change{Entity: domain.EntityPiglet, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateBreedingRecord stores a service record keyed by (sow, parity).
func (tx *transaction) CreateBreedingRecord(r BreedingRecord) (BreedingRecord, error) {
	if r.SowID == "" {
		return BreedingRecord{}, fmt.Errorf("breeding record requires a sow id")
	}
	key := parityKey(r.SowID, r.Parity)
	if _, exists := tx.state.breeding[key]; exists {
		return BreedingRecord{}, fmt.Errorf("breeding record for sow %q parity %d already exists", r.SowID, r.Parity)
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.breeding[key] = r
	tx.recordChange(Change{Entity: domain.EntityBreedingRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

// CreateFarrowingRecord stores a litter record keyed by (sow, parity).
func (tx *transaction) CreateFarrowingRecord(r FarrowingRecord) (FarrowingRecord, error) {
	if r.SowID == "" {
		return FarrowingRecord{}, fmt.Errorf("farrowing record requires a sow id")
	}
	key := parityKey(r.SowID, r.Parity)
	if _, exists := tx.state.farrowing[key]; exists {
		return FarrowingRecord{}, fmt.Errorf("farrowing record for sow %q parity %d already exists", r.SowID, r.Parity)
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.farrowing[key] = r
	tx.recordChange(Change{Entity: domain.EntityFarrowingRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

// CreateDeathRecord stores a death event.
func (tx *transaction) CreateDeathRecord(r DeathRecord) (DeathRecord, error) {
	if r.SowID == "" {
		return DeathRecord{}, fmt.Errorf("death record requires a sow id")
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.deaths[r.ID]; exists {
		return DeathRecord{}, fmt.Errorf("death record %q already exists", r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.deaths[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityDeathRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

// CreateCullRecord stores a cull event.
func (tx *transaction) CreateCullRecord(r CullRecord) (CullRecord, error) {
	if r.SowID == "" {
		return CullRecord{}, fmt.Errorf("cull record requires a sow id")
	}
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.culls[r.ID]; exists {
		return CullRecord{}, fmt.Errorf("cull record %q already exists", r.ID)
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.culls[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityCullRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

// ReplaceScores atomically swaps both derived score tables for the supplied
// recompute output. The previous rows are discarded in the same commit, so a
// reader never observes a mix of old and new scores.
func (tx *transaction) ReplaceScores(tables ScoreTables) error {
	parity := make(map[string]ParityScore, len(tables.Parity))
	for _, row := range tables.Parity {
		key := parityKey(row.SowID, row.Parity)
		if _, dup := parity[key]; dup {
			return fmt.Errorf("duplicate parity score for sow %q parity %d", row.SowID, row.Parity)
		}
		parity[key] = row
	}
	sows := make(map[string]SowScore, len(tables.Sow))
	for _, row := range tables.Sow {
		if _, dup := sows[row.SowID]; dup {
			return fmt.Errorf("duplicate sow score for sow %q", row.SowID)
		}
		sows[row.SowID] = row
	}
	tx.state.parityScores = parity
	tx.state.sowScores = sows
	return nil
}

// Truncate clears every bucket, derived tables included.
func (tx *transaction) Truncate() error {
	tx.state = newMemoryState()
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetSow retrieves a sow by ID from committed state.
func (s *Store) GetSow(id string) (Sow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sow, ok := s.state.sows[id]
	return sow, ok
}

// ListSows returns all sows from committed state.
func (s *Store) ListSows() []Sow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListSows()
}

// ListPiglets returns all piglets from committed state.
func (s *Store) ListPiglets() []Piglet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListPiglets()
}

// ListBreedingRecords returns all service records from committed state.
func (s *Store) ListBreedingRecords() []BreedingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListBreedingRecords()
}

// ListFarrowingRecords returns all litter records from committed state.
func (s *Store) ListFarrowingRecords() []FarrowingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListFarrowingRecords()
}

// ListDeathRecords returns all death events from committed state.
func (s *Store) ListDeathRecords() []DeathRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListDeathRecords()
}

// ListCullRecords returns all cull events from committed state.
func (s *Store) ListCullRecords() []CullRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListCullRecords()
}

// ListParityScores returns the committed per-litter score table.
func (s *Store) ListParityScores() []ParityScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListParityScores()
}

// ListSowScores returns the committed per-sow score table.
func (s *Store) ListSowScores() []SowScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListSowScores()
}
