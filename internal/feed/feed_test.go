package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chitieu/internal/core"
)

func waitFor(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return 0
	}
}

func TestFeed_DeliversLatestToNewSubscriber(t *testing.T) {
	f := New[int]()
	f.Publish(1)
	f.Publish(2)

	got := make(chan int, 4)
	sub := f.Subscribe(func(v int) { got <- v }, nil)
	defer sub.Cancel()

	if v := waitFor(t, got); v != 2 {
		t.Fatalf("expected latest snapshot 2, got %d", v)
	}
}

func TestFeed_LastSnapshotWins(t *testing.T) {
	f := New[int]()
	release := make(chan struct{})
	got := make(chan int, 10)

	sub := f.Subscribe(func(v int) {
		got <- v
		if v == 1 {
			<-release
		}
	}, nil)
	defer sub.Cancel()

	f.Publish(1)
	if v := waitFor(t, got); v != 1 {
		t.Fatalf("first delivery = %d", v)
	}
	// the subscriber is busy with 1; only the newest of these survives
	f.Publish(2)
	f.Publish(3)
	f.Publish(4)
	close(release)

	if v := waitFor(t, got); v != 4 {
		t.Fatalf("expected 4 after backlog, got %d", v)
	}
	select {
	case v := <-got:
		t.Fatalf("unexpected extra delivery %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_NoCallbackAfterCancel(t *testing.T) {
	f := New[int]()
	var calls atomic.Int32
	got := make(chan int, 10)
	sub := f.Subscribe(func(v int) {
		calls.Add(1)
		got <- v
	}, func(error) { calls.Add(1) })

	f.Publish(1)
	waitFor(t, got)

	sub.Cancel()
	before := calls.Load()
	for i := 2; i < 20; i++ {
		f.Publish(i)
	}
	f.Fail(errors.New("boom"))
	time.Sleep(50 * time.Millisecond)

	if calls.Load() != before {
		t.Fatalf("callback ran after Cancel returned")
	}
	if f.Len() != 0 {
		t.Fatalf("subscription still registered")
	}
	if !sub.Cancelled() {
		t.Fatalf("Cancelled() = false")
	}
	sub.Cancel()
}

func TestFeed_CancelWaitsForInFlightCallback(t *testing.T) {
	f := New[int]()
	entered := make(chan int, 1)
	release := make(chan struct{})
	sub := f.Subscribe(func(v int) {
		entered <- v
		<-release
	}, nil)

	f.Publish(1)
	waitFor(t, entered)

	cancelled := make(chan struct{})
	go func() {
		sub.Cancel()
		close(cancelled)
	}()

	select {
	case <-cancelled:
		t.Fatal("Cancel returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel did not return")
	}
}

func TestFeed_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	f := New[int]()
	block := make(chan struct{})
	defer close(block)

	slow := f.Subscribe(func(int) { <-block }, nil)
	defer func() {
		go slow.Cancel()
	}()

	fast := make(chan int, 10)
	sub := f.Subscribe(func(v int) { fast <- v }, nil)
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 100; i++ {
			f.Publish(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked by slow subscriber")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-fast:
			if v == 100 {
				return
			}
		case <-deadline:
			t.Fatal("fast subscriber never saw the last snapshot")
		}
	}
}

func TestFeed_ErrorsGoToOnError(t *testing.T) {
	f := New[int]()
	errs := make(chan error, 1)
	sub := f.Subscribe(func(int) { t.Error("unexpected value") }, func(err error) { errs <- err })
	defer sub.Cancel()

	f.Fail(core.ErrUnavailable)
	select {
	case err := <-errs:
		if !errors.Is(err, core.ErrUnavailable) {
			t.Fatalf("got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
	if _, ok := f.Latest(); ok {
		t.Fatalf("Latest should report no value after a failure")
	}
}

func TestHub_SubscribeRefreshAndDrop(t *testing.T) {
	month := core.NewMonthKey(2024, 5)
	var mu sync.Mutex
	builds := 0
	hub := NewHub(func(ctx context.Context, userID string, m core.MonthKey) (core.MonthReport, error) {
		mu.Lock()
		defer mu.Unlock()
		builds++
		return core.MonthReport{UserID: userID, Month: m, Transactions: builds}, nil
	})

	got := make(chan int, 10)
	sub := hub.Subscribe(context.Background(), "u1", month, func(r core.MonthReport) {
		if r.UserID != "u1" || r.Month != month {
			t.Errorf("wrong report %+v", r)
		}
		got <- r.Transactions
	}, nil)

	if v := waitFor(t, got); v != 1 {
		t.Fatalf("first snapshot = %d", v)
	}
	hub.Refresh(context.Background(), "u1", month)
	if v := waitFor(t, got); v != 2 {
		t.Fatalf("refreshed snapshot = %d", v)
	}

	// other users and months are untouched
	hub.Refresh(context.Background(), "u2", month)
	hub.Refresh(context.Background(), "u1", month.Next())

	if n := hub.Subscribers("u1", month); n != 1 {
		t.Fatalf("subscribers = %d", n)
	}
	sub.Cancel()
	if n := hub.Subscribers("u1", month); n != 0 {
		t.Fatalf("subscribers after cancel = %d", n)
	}
	hub.Refresh(context.Background(), "u1", month)

	mu.Lock()
	defer mu.Unlock()
	if builds != 2 {
		t.Fatalf("expected 2 builds, got %d", builds)
	}
}

func TestHub_LoadFailureIsGeneric(t *testing.T) {
	hub := NewHub(func(context.Context, string, core.MonthKey) (core.MonthReport, error) {
		return core.MonthReport{}, errors.New("sqlite: database is locked")
	})
	errs := make(chan error, 1)
	sub := hub.Subscribe(context.Background(), "u1", core.NewMonthKey(2024, 5), nil, func(err error) { errs <- err })
	defer sub.Cancel()

	select {
	case err := <-errs:
		if err.Error() != "unable to load transactions" {
			t.Fatalf("error leaked cause: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
}

func TestHub_RefreshUser(t *testing.T) {
	var mu sync.Mutex
	builds := map[Key]int{}
	hub := NewHub(func(_ context.Context, userID string, m core.MonthKey) (core.MonthReport, error) {
		mu.Lock()
		defer mu.Unlock()
		builds[Key{userID, m}]++
		return core.MonthReport{UserID: userID, Month: m}, nil
	})

	may, june := core.NewMonthKey(2024, 5), core.NewMonthKey(2024, 6)
	for _, k := range []Key{{"u1", may}, {"u1", june}, {"u2", may}} {
		sub := hub.Subscribe(context.Background(), k.UserID, k.Month, func(core.MonthReport) {}, nil)
		defer sub.Cancel()
	}

	hub.RefreshUser(context.Background(), "u1")

	mu.Lock()
	defer mu.Unlock()
	if builds[Key{"u1", may}] != 2 || builds[Key{"u1", june}] != 2 {
		t.Errorf("u1 months not refreshed: %v", builds)
	}
	if builds[Key{"u2", may}] != 1 {
		t.Errorf("u2 refreshed: %v", builds)
	}
}
