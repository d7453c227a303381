// Package memory is an in-process implementation of the item, ledger and sync repositories.
// It backs the use case tests and the "memory" storage driver.
package memory

import (
	"context"
	"sort"
	gosync "sync"
	"time"

	"github.com/fekuna/pantry-service/internal/item"
	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/ledger/dto"
	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/sync"
	"github.com/pkg/errors"
)

var (
	_ item.Repository   = (*ItemRepository)(nil)
	_ ledger.Repository = (*LedgerRepository)(nil)
	_ sync.Repository   = (*SyncRepository)(nil)
)

type Store struct {
	mu      gosync.RWMutex
	items   map[string]model.Item
	entries map[string][]model.StockEntry
	syncs   map[string]model.SyncTransaction

	locksMu gosync.Mutex
	locks   map[string]*gosync.Mutex
}

func New() *Store {
	return &Store{
		items:   make(map[string]model.Item),
		entries: make(map[string][]model.StockEntry),
		syncs:   make(map[string]model.SyncTransaction),
		locks:   make(map[string]*gosync.Mutex),
	}
}

func (s *Store) Items() *ItemRepository   { return &ItemRepository{s: s} }
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }
func (s *Store) Syncs() *SyncRepository    { return &SyncRepository{s: s} }

func (s *Store) itemLock(id string) *gosync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &gosync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) sum(itemID string) int64 {
	var total int64
	for i := range s.entries[itemID] {
		total += s.entries[itemID][i].Signed()
	}
	return total
}

type ItemRepository struct {
	s *Store
}

func (r *ItemRepository) Create(_ context.Context, it *model.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[it.ID]; ok {
		return errors.Wrapf(model.ErrItemExists, "item %s", it.ID)
	}
	r.s.items[it.ID] = *it
	return nil
}

func (r *ItemRepository) FindByID(_ context.Context, id string) (*model.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *ItemRepository) Update(_ context.Context, it *model.Item, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.items[it.ID]
	if !ok || current.Version != expectedVersion {
		return errors.Wrapf(model.ErrOutdatedVersion, "item %s changed since version %d", it.ID, expectedVersion)
	}
	r.s.items[it.ID] = *it
	return nil
}

type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) WithItemLock(ctx context.Context, itemID string, fn func(tx ledger.Tx, item *model.Item) error) error {
	lock := r.s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.RLock()
	it, ok := r.s.items[itemID]
	r.s.mu.RUnlock()
	if !ok || !it.IsActive {
		return errors.Wrapf(model.ErrItemNotFound, "item %s", itemID)
	}

	tx := &memTx{s: r.s}
	if err := fn(tx, &it); err != nil {
		return err
	}

	r.s.mu.Lock()
	for _, e := range tx.pending {
		r.s.entries[e.ItemID] = append(r.s.entries[e.ItemID], e)
	}
	r.s.mu.Unlock()
	return nil
}

// memTx buffers appended entries until the lock callback succeeds.
type memTx struct {
	s       *Store
	pending []model.StockEntry
}

func (t *memTx) CurrentStock(_ context.Context, itemID string) (int64, error) {
	t.s.mu.RLock()
	total := t.s.sum(itemID)
	t.s.mu.RUnlock()
	for i := range t.pending {
		if t.pending[i].ItemID == itemID {
			total += t.pending[i].Signed()
		}
	}
	return total, nil
}

func (t *memTx) AppendEntry(_ context.Context, e *model.StockEntry) error {
	t.pending = append(t.pending, *e)
	return nil
}

func (r *LedgerRepository) CurrentStock(_ context.Context, itemID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sum(itemID), nil
}

func (r *LedgerRepository) ListEntries(_ context.Context, f *dto.HistoryFilters) ([]model.StockEntry, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []model.StockEntry{}
	for _, e := range r.s.entries[f.ItemID] {
		if f.OperationType != "" && e.OperationType != f.OperationType {
			continue
		}
		if f.From != nil && e.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && e.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, e)
	}

	// appended in commit order, so reversing yields newest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	total := len(matched)
	if f.Offset >= total {
		return []model.StockEntry{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (r *LedgerRepository) ListItemStock(_ context.Context, householdID string) ([]model.ItemStock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.ItemStock{}
	for _, it := range r.s.items {
		if it.HouseholdID != householdID || !it.IsActive {
			continue
		}
		out = append(out, model.ItemStock{Item: it, CurrentStock: r.s.sum(it.ID)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type SyncRepository struct {
	s *Store
}

func (r *SyncRepository) Create(_ context.Context, tx *model.SyncTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.syncs[tx.ID] = *tx
	return nil
}

func (r *SyncRepository) Complete(_ context.Context, id string, counts model.SyncCounts, endTime time.Time) error {
	return r.transition(id, func(tx *model.SyncTransaction) {
		tx.Status = model.SyncCompleted
		tx.EndTime = &endTime
		tx.OperationsProcessed = counts.OperationsProcessed
		tx.ServerChangesCount = counts.ServerChangesCount
		tx.ConflictsResolved = counts.ConflictsResolved
	})
}

func (r *SyncRepository) Fail(_ context.Context, id string, message string, endTime time.Time) error {
	return r.transition(id, func(tx *model.SyncTransaction) {
		tx.Status = model.SyncFailed
		tx.EndTime = &endTime
		tx.ErrorMessage = &message
	})
}

func (r *SyncRepository) transition(id string, apply func(tx *model.SyncTransaction)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.syncs[id]
	if !ok {
		return errors.Wrapf(model.ErrSyncNotFound, "sync %s", id)
	}
	if tx.Status.Terminal() {
		return errors.Wrapf(model.ErrSyncFinalized, "sync %s", id)
	}
	apply(&tx)
	r.s.syncs[id] = tx
	return nil
}

func (r *SyncRepository) FindByID(_ context.Context, id, userID string) (*model.SyncTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tx, ok := r.s.syncs[id]
	if !ok || tx.UserID != userID {
		return nil, nil
	}
	return &tx, nil
}

func (r *SyncRepository) ListPending(_ context.Context, userID, clientID string) ([]model.SyncTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.SyncTransaction{}
	for _, tx := range r.s.syncs {
		if tx.UserID == userID && tx.ClientID == clientID && tx.Status == model.SyncInProgress {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *SyncRepository) ChangesSince(_ context.Context, userID string, since *time.Time, until time.Time) ([]model.ServerChange, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inWindow := func(t time.Time) bool {
		return (since == nil || t.After(*since)) && !t.After(until)
	}

	changes := []model.ServerChange{}
	for _, it := range r.s.items {
		if it.UserID != userID {
			continue
		}
		if inWindow(it.UpdatedAt) {
			it := it
			changes = append(changes, model.ItemChange(&it))
		}
		for i := range r.s.entries[it.ID] {
			if e := r.s.entries[it.ID][i]; inWindow(e.CreatedAt) {
				changes = append(changes, model.StockEntryChange(&e))
			}
		}
	}
	// map iteration is random; fix the tie order before the stable timestamp sort
	sort.Slice(changes, func(i, j int) bool { return changes[i].EntityID < changes[j].EntityID })
	model.SortChanges(changes)
	return changes, nil
}
