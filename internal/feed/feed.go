// Package feed delivers snapshots of a changing value to subscribers.
//
// Every publish carries the complete value. A subscriber that has not yet
// consumed a snapshot when a newer one arrives only ever sees the newer one.
package feed

import (
	"sync"
	"sync/atomic"
)

type event[T any] struct {
	value T
	err   error
}

// Feed fans snapshots of a value out to its subscribers. The zero value is
// not usable; create feeds with New.
type Feed[T any] struct {
	mu      sync.Mutex
	subs    map[uint64]*Subscription[T]
	nextID  uint64
	last    event[T]
	hasLast bool

	// onEmpty runs after the last subscription is cancelled.
	onEmpty func()
}

// New creates an empty feed.
func New[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[uint64]*Subscription[T])}
}

// Subscribe registers callbacks for the feed. If a snapshot or failure was
// already published, it is delivered right away. Callbacks for one
// subscription never run concurrently with each other.
func (f *Feed[T]) Subscribe(onValue func(T), onError func(error)) *Subscription[T] {
	s := &Subscription[T]{
		feed:    f,
		onValue: onValue,
		onError: onError,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}

	f.mu.Lock()
	f.nextID++
	s.id = f.nextID
	f.subs[s.id] = s
	if f.hasLast {
		s.offer(f.last)
	}
	f.mu.Unlock()

	go s.run()
	return s
}

// Publish hands v to every subscriber.
func (f *Feed[T]) Publish(v T) {
	f.broadcast(event[T]{value: v})
}

// Fail hands err to every subscriber's error callback.
func (f *Feed[T]) Fail(err error) {
	f.broadcast(event[T]{err: err})
}

func (f *Feed[T]) broadcast(e event[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = e
	f.hasLast = true
	for _, s := range f.subs {
		s.offer(e)
	}
}

// Latest returns the last published value, if the last publish was a value.
func (f *Feed[T]) Latest() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasLast || f.last.err != nil {
		var zero T
		return zero, false
	}
	return f.last.value, true
}

// Len returns the number of active subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	delete(f.subs, id)
	empty := len(f.subs) == 0
	onEmpty := f.onEmpty
	f.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty()
	}
}

// Subscription is a handle on one subscriber of a Feed.
type Subscription[T any] struct {
	feed    *Feed[T]
	id      uint64
	onValue func(T)
	onError func(error)

	// mailbox holds at most one undelivered event
	mu         sync.Mutex
	pending    event[T]
	hasPending bool

	wake chan struct{}
	stop chan struct{}

	// callback is held while a callback runs
	callback  sync.Mutex
	cancelled atomic.Bool
	once      sync.Once
}

func (s *Subscription[T]) offer(e event[T]) {
	s.mu.Lock()
	s.pending = e
	s.hasPending = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		e, ok := s.pending, s.hasPending
		s.pending = event[T]{}
		s.hasPending = false
		s.mu.Unlock()

		if ok {
			s.deliver(e)
		}
	}
}

func (s *Subscription[T]) deliver(e event[T]) {
	s.callback.Lock()
	defer s.callback.Unlock()

	if s.cancelled.Load() {
		return
	}
	if e.err != nil {
		if s.onError != nil {
			s.onError(e.err)
		}
		return
	}
	if s.onValue != nil {
		s.onValue(e.value)
	}
}

// Cancel stops delivery. Once Cancel returns no callback of this
// subscription runs again. It is safe to call more than once but must not
// be called from inside the subscription's own callbacks.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.cancelled.Store(true)
		close(s.stop)
		s.feed.remove(s.id)
	})

	// wait for an in-flight callback
	s.callback.Lock()
	s.callback.Unlock()
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription[T]) Cancelled() bool {
	return s.cancelled.Load()
}
