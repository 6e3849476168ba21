package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"chitieu/internal/aggregate"
	"chitieu/internal/cache"
	"chitieu/internal/categories"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// ReportService builds month reports from the store. Reports are cached
// until a write to the same user invalidates them, and concurrent builds of
// the same month share one load.
type ReportService struct {
	store    ledger.Store
	pipeline aggregate.Pipeline
	cache    cache.Cache[core.MonthReport]
	group    singleflight.Group

	mu sync.Mutex
	// gen is bumped on every invalidation of a user and epoch on every
	// global one; builds started under an older generation are not cached.
	gen   map[string]uint64
	epoch uint64
}

// NewReportService creates the service. reportCache may be nil.
func NewReportService(store ledger.Store, pipeline aggregate.Pipeline, reportCache cache.Cache[core.MonthReport]) *ReportService {
	return &ReportService{
		store:    store,
		pipeline: pipeline,
		cache:    reportCache,
		gen:      make(map[string]uint64),
	}
}

// buildTimeout bounds a shared build, which outlives the caller that
// started it.
const buildTimeout = 15 * time.Second

func cacheKey(userID string, month core.MonthKey) string {
	return userID + "|" + month.String()
}

func (s *ReportService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch + s.gen[userID]
}

// Month returns the report of userID for month. A store failure is logged
// and reported as core.ErrUnavailable.
func (s *ReportService) Month(ctx context.Context, userID string, month core.MonthKey) (core.MonthReport, error) {
	if strings.TrimSpace(userID) == "" {
		return core.MonthReport{}, core.ErrEmptyUser
	}
	if err := month.Validate(); err != nil {
		return core.MonthReport{}, err
	}

	key := cacheKey(userID, month)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			return report, nil
		}
	}

	gen := s.generation(userID)
	v, err, shared := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		// detached: every caller waiting on this key shares the build
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()

		report, err := s.build(bctx, userID, month)
		if err != nil {
			return core.MonthReport{}, err
		}
		s.cacheIfCurrent(key, userID, gen, report)
		return report, nil
	})
	if err != nil {
		return core.MonthReport{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Shared month report build", "user_id", userID, "month", month.String())
	}
	return v.(core.MonthReport), nil
}

// cacheIfCurrent caches report if no invalidation of userID happened since gen was
// read. An invalidation that lands while the entry is being written is
// caught by the second check, which takes the entry back out.
func (s *ReportService) cacheIfCurrent(key, userID string, gen uint64, report core.MonthReport) {
	if s.cache == nil || s.generation(userID) != gen {
		return
	}
	s.cache.Set(key, report)
	if s.generation(userID) != gen {
		s.cache.Delete(key)
	}
}

// Directory loads the two category tiers of a user.
func (s *ReportService) Directory(ctx context.Context, userID string) (*categories.Directory, error) {
	var defaults, user []core.Category
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defaults, err = s.store.DefaultCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		user, err = s.store.UserCategories(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories.NewDirectory(defaults, user), nil
}

func (s *ReportService) build(ctx context.Context, userID string, month core.MonthKey) (core.MonthReport, error) {
	var (
		records map[string]core.RawRecord
		budget  core.Budget
		dir     *categories.Directory
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.store.Snapshot(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		budget, err = s.store.GetBudget(gctx, userID, month)
		return err
	})
	g.Go(func() error {
		var err error
		dir, err = s.Directory(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to load month data",
			"user_id", userID,
			"month", month.String(),
			"error", err)
		return core.MonthReport{}, core.ErrUnavailable
	}

	p := s.pipeline
	p.Options.Categories = dir
	report, err := p.Run(aggregate.Request{
		UserID:  userID,
		Month:   month,
		Records: records,
		Budget:  &budget,
	})
	if err != nil {
		return core.MonthReport{}, err
	}
	if report.Dropped > 0 {
		slog.DebugContext(ctx, "Dropped malformed transactions",
			"user_id", userID,
			"month", month.String(),
			"dropped", report.Dropped)
	}
	return report, nil
}

// Invalidate forgets the cached report of one month.
func (s *ReportService) Invalidate(userID string, month core.MonthKey) {
	s.mu.Lock()
	s.gen[userID]++
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Delete(cacheKey(userID, month))
	}
}

// InvalidateUser forgets every cached report of userID.
func (s *ReportService) InvalidateUser(userID string) {
	s.mu.Lock()
	s.gen[userID]++
	s.mu.Unlock()
	if s.cache != nil {
		prefix := userID + "|"
		s.cache.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
	}
}

// InvalidateAll forgets every cached report.
func (s *ReportService) InvalidateAll() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.DeleteFunc(func(string) bool { return true })
	}
}
