package feed

import (
	"context"
	"log/slog"
	"sync"

	"chitieu/internal/core"
)

// Key identifies the month report feed of one user.
type Key struct {
	UserID string
	Month  core.MonthKey
}

// Loader builds the current report for a user's month.
type Loader func(ctx context.Context, userID string, month core.MonthKey) (core.MonthReport, error)

type entry struct {
	feed *Feed[core.MonthReport]
	// refresh serializes loads so an older build never overwrites a newer one
	refresh sync.Mutex
}

// Hub keeps one report feed per (user, month) that has subscribers.
type Hub struct {
	mu    sync.Mutex
	feeds map[Key]*entry
	load  Loader
}

// NewHub creates a hub that builds reports with load.
func NewHub(load Loader) *Hub {
	return &Hub{
		feeds: make(map[Key]*entry),
		load:  load,
	}
}

// Subscribe attaches callbacks to the report feed of userID and month. The
// first subscriber of a feed triggers a build; later subscribers receive the
// latest snapshot immediately.
func (h *Hub) Subscribe(ctx context.Context, userID string, month core.MonthKey, onValue func(core.MonthReport), onError func(error)) *Subscription[core.MonthReport] {
	key := Key{UserID: userID, Month: month}

	h.mu.Lock()
	e, ok := h.feeds[key]
	if !ok {
		e = &entry{feed: New[core.MonthReport]()}
		f := e.feed
		f.onEmpty = func() { h.drop(key, f) }
		h.feeds[key] = e
	}
	sub := e.feed.Subscribe(onValue, onError)
	h.mu.Unlock()

	if _, ok := e.feed.Latest(); !ok {
		h.refresh(ctx, key, e)
	}
	return sub
}

// Refresh rebuilds and republishes the report of userID and month if anyone
// is subscribed to it.
func (h *Hub) Refresh(ctx context.Context, userID string, month core.MonthKey) {
	key := Key{UserID: userID, Month: month}
	h.mu.Lock()
	e, ok := h.feeds[key]
	h.mu.Unlock()
	if !ok {
		return
	}
	h.refresh(ctx, key, e)
}

// RefreshUser refreshes every subscribed month of userID.
func (h *Hub) RefreshUser(ctx context.Context, userID string) {
	type target struct {
		key Key
		e   *entry
	}
	var targets []target
	h.mu.Lock()
	for key, e := range h.feeds {
		if key.UserID == userID {
			targets = append(targets, target{key, e})
		}
	}
	h.mu.Unlock()

	for _, t := range targets {
		h.refresh(ctx, t.key, t.e)
	}
}

// Subscribers returns the number of subscriptions on the given feed.
func (h *Hub) Subscribers(userID string, month core.MonthKey) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.feeds[Key{UserID: userID, Month: month}]
	if !ok {
		return 0
	}
	return e.feed.Len()
}

func (h *Hub) refresh(ctx context.Context, key Key, e *entry) {
	e.refresh.Lock()
	defer e.refresh.Unlock()

	report, err := h.load(ctx, key.UserID, key.Month)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build month report for subscribers",
			"user_id", key.UserID,
			"month", key.Month.String(),
			"error", err)
		e.feed.Fail(core.ErrUnavailable)
		return
	}
	e.feed.Publish(report)
}

func (h *Hub) drop(key Key, f *Feed[core.MonthReport]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.feeds[key]; ok && e.feed == f && f.Len() == 0 {
		delete(h.feeds, key)
	}
}
