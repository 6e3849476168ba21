// Package memory is an in-process ledger.Store used for development and
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

type exportKey struct {
	user  string
	month core.MonthKey
}

type Store struct {
	mu       sync.Mutex
	txs      map[string]map[string]core.Transaction
	raw      map[string]map[string]core.RawRecord
	budgets  map[exportKey]core.Budget
	defaults map[string]core.Category
	userCats map[string]map[string]core.Category
	exports  map[exportKey]*ledger.ExportJob

	// FailReads makes every read return an error, to exercise failure paths.
	FailReads bool
}

var _ ledger.Store = (*Store)(nil)

func New(defaults []core.Category) *Store {
	s := &Store{
		txs:      make(map[string]map[string]core.Transaction),
		raw:      make(map[string]map[string]core.RawRecord),
		budgets:  make(map[exportKey]core.Budget),
		defaults: make(map[string]core.Category),
		userCats: make(map[string]map[string]core.Category),
		exports:  make(map[exportKey]*ledger.ExportJob),
	}
	for _, c := range defaults {
		c.Tier = core.DefaultTier
		s.defaults[c.ID] = c
	}
	return s
}

func (s *Store) readErr() error {
	if s.FailReads {
		return fmt.Errorf("memory store: reads disabled")
	}
	return nil
}

// PutRaw stores a record as is, bypassing validation. It stands in for data
// written by older clients.
func (s *Store) PutRaw(userID, id string, rec core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw[userID] == nil {
		s.raw[userID] = make(map[string]core.RawRecord)
	}
	s.raw[userID][id] = rec
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txs[tx.UserID] == nil {
		s.txs[tx.UserID] = make(map[string]core.Transaction)
	}
	if _, exists := s.txs[tx.UserID][tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	s.txs[tx.UserID][tx.ID] = tx
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.UserID][tx.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	s.txs[tx.UserID][tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, typed := s.txs[userID][id]
	_, raw := s.raw[userID][id]
	if !typed && !raw {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.txs[userID], id)
	delete(s.raw[userID], id)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr(); err != nil {
		return core.Transaction{}, err
	}
	tx, ok := s.txs[userID][id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) Snapshot(_ context.Context, userID string) (map[string]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr(); err != nil {
		return nil, err
	}
	out := make(map[string]core.RawRecord, len(s.txs[userID])+len(s.raw[userID]))
	for id, rec := range s.raw[userID] {
		out[id] = rec
	}
	for id, tx := range s.txs[userID] {
		out[id] = tx.Record()
	}
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, userID string, month core.MonthKey) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr(); err != nil {
		return core.Budget{}, err
	}
	b, ok := s.budgets[exportKey{userID, month}]
	if !ok {
		return core.Budget{UserID: userID, Month: month}, nil
	}
	return copyBudget(b), nil
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := exportKey{b.UserID, b.Month}
	if b.IsEmpty() {
		delete(s.budgets, key)
		return nil
	}
	s.budgets[key] = copyBudget(b)
	return nil
}

func copyBudget(b core.Budget) core.Budget {
	if b.Categories != nil {
		lines := make(map[string]core.BudgetLine, len(b.Categories))
		for id, l := range b.Categories {
			lines[id] = l
		}
		b.Categories = lines
	}
	return b
}

func (s *Store) DefaultCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr(); err != nil {
		return nil, err
	}
	return sortedCategories(s.defaults), nil
}

func (s *Store) UserCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr(); err != nil {
		return nil, err
	}
	return sortedCategories(s.userCats[userID]), nil
}

func (s *Store) SaveDefaultCategories(_ context.Context, cats []core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cats {
		c.Tier = core.DefaultTier
		s.defaults[c.ID] = c
	}
	return nil
}

func (s *Store) SaveUserCategories(_ context.Context, userID string, cats []core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userCats[userID] == nil {
		s.userCats[userID] = make(map[string]core.Category)
	}
	for _, c := range cats {
		c.Tier = core.UserTier
		s.userCats[userID][c.ID] = c
	}
	return nil
}

func (s *Store) DeleteUserCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userCats[userID][id]; !ok {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	delete(s.userCats[userID], id)
	return nil
}

// sortedCategories orders by numeric-looking id first, then lexically, so
// the seeded "1".."24" keep their natural order.
func sortedCategories(m map[string]core.Category) []core.Category {
	out := make([]core.Category, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return out
}

func (s *Store) MarkDirty(_ context.Context, userID string, month core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := exportKey{userID, month}
	job, ok := s.exports[key]
	if !ok {
		s.exports[key] = &ledger.ExportJob{UserID: userID, Month: month, Status: ledger.ExportPending, UpdatedAt: time.Now()}
		return nil
	}
	if job.Status != ledger.ExportProcessing {
		job.Status = ledger.ExportPending
		job.Attempts = 0
		job.LastError = ""
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DequeueExports(_ context.Context, limit int) ([]ledger.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*ledger.ExportJob
	for _, job := range s.exports {
		if job.Status == ledger.ExportPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].UpdatedAt.Before(pending[j].UpdatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]ledger.ExportJob, len(pending))
	for i, job := range pending {
		job.Status = ledger.ExportProcessing
		out[i] = *job
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, userID string, month core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.exports[exportKey{userID, month}]
	if !ok {
		return fmt.Errorf("export %s/%s: %w", userID, month, core.ErrNotFound)
	}
	job.Status = ledger.ExportDone
	job.UpdatedAt = time.Now()
	return nil
}

func (s *Store) MarkExportFailed(_ context.Context, userID string, month core.MonthKey, cause string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.exports[exportKey{userID, month}]
	if !ok {
		return fmt.Errorf("export %s/%s: %w", userID, month, core.ErrNotFound)
	}
	job.Attempts++
	job.LastError = cause
	job.Status = ledger.ExportPending
	if job.Attempts >= maxAttempts {
		job.Status = ledger.ExportFailed
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ResetStaleExports(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.exports {
		if job.Status == ledger.ExportProcessing {
			job.Status = ledger.ExportPending
		}
	}
	return nil
}

func (s *Store) CleanupExports(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, job := range s.exports {
		if job.Status == ledger.ExportDone && job.UpdatedAt.Before(before) {
			delete(s.exports, key)
		}
	}
	return nil
}

func (s *Store) ExportStats(_ context.Context) (ledger.ExportStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st ledger.ExportStats
	for _, job := range s.exports {
		switch job.Status {
		case ledger.ExportPending:
			st.Pending++
		case ledger.ExportProcessing:
			st.Processing++
		case ledger.ExportDone:
			st.Done++
		case ledger.ExportFailed:
			st.Failed++
		}
	}
	return st, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr()
}

func (s *Store) Close() error { return nil }
