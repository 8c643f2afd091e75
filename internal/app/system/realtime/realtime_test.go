package realtime_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/washhub/internal/app/system/realtime"
)

type fakeStream struct {
	events chan struct{}
	err    error
	closed atomic.Bool
}

func newFakeStream(buffer int) *fakeStream {
	return &fakeStream{events: make(chan struct{}, buffer)}
}

func (s *fakeStream) Next(ctx context.Context) bool {
	select {
	case _, ok := <-s.events:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (s *fakeStream) TryNext(ctx context.Context) bool {
	select {
	case _, ok := <-s.events:
		return ok
	default:
		return false
	}
}

func (s *fakeStream) Err() error { return s.err }

func (s *fakeStream) Close(context.Context) error {
	s.closed.Store(true)
	return nil
}

// counterFeed returns a feed whose value counts how many times it loaded.
func counterFeed(s *fakeStream, loads *atomic.Int32) realtime.Feed[int] {
	return realtime.Feed[int]{
		Open: func(context.Context) (realtime.Stream, error) { return s, nil },
		Load: func(context.Context) (int, error) { return int(loads.Add(1)), nil },
	}
}

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
		return 0
	}
}

func TestSubscribe_InitialValueThenChanges(t *testing.T) {
	s := newFakeStream(1)
	var loads atomic.Int32
	got := make(chan int, 10)

	unsub := counterFeed(s, &loads).Subscribe(context.Background(),
		func(v int) { got <- v },
		func(err error) { t.Errorf("unexpected error: %v", err) })

	if v := receive(t, got); v != 1 {
		t.Errorf("initial: got %d, want 1", v)
	}
	s.events <- struct{}{}
	if v := receive(t, got); v != 2 {
		t.Errorf("after change: got %d, want 2", v)
	}

	unsub()
	if !s.closed.Load() {
		t.Error("stream should be closed after unsubscribe")
	}
	unsub()
}

func TestSubscribe_CollapsesBurst(t *testing.T) {
	s := newFakeStream(10)
	for i := 0; i < 5; i++ {
		s.events <- struct{}{}
	}
	var loads atomic.Int32
	got := make(chan int, 10)

	unsub := counterFeed(s, &loads).Subscribe(context.Background(),
		func(v int) { got <- v },
		func(err error) { t.Errorf("unexpected error: %v", err) })

	receive(t, got)
	if v := receive(t, got); v != 2 {
		t.Errorf("after burst: got %d, want 2", v)
	}
	unsub()

	if n := loads.Load(); n != 2 {
		t.Errorf("loads: got %d, want 2", n)
	}
}

func TestSubscribe_OpenError(t *testing.T) {
	boom := errors.New("not a replica set")
	errs := make(chan error, 1)
	f := realtime.Feed[int]{
		Open: func(context.Context) (realtime.Stream, error) { return nil, boom },
		Load: func(context.Context) (int, error) { return 0, nil },
	}

	unsub := f.Subscribe(context.Background(),
		func(int) { t.Error("onNext should not run") },
		func(err error) { errs <- err })
	defer unsub()

	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Errorf("got %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onError not called")
	}
}

func TestSubscribe_StreamErrorClosesStream(t *testing.T) {
	s := newFakeStream(1)
	s.err = errors.New("cursor killed")
	var loads atomic.Int32
	got := make(chan int, 10)
	errs := make(chan error, 1)

	unsub := counterFeed(s, &loads).Subscribe(context.Background(),
		func(v int) { got <- v },
		func(err error) { errs <- err })
	defer unsub()

	receive(t, got)
	close(s.events)

	select {
	case err := <-errs:
		if err.Error() != "cursor killed" {
			t.Errorf("got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onError not called")
	}
	unsub()
	if !s.closed.Load() {
		t.Error("stream should be closed after failure")
	}
}

func TestSubscribe_ServerEndIsReported(t *testing.T) {
	s := newFakeStream(1)
	var loads atomic.Int32
	errs := make(chan error, 1)

	unsub := counterFeed(s, &loads).Subscribe(context.Background(),
		func(int) {},
		func(err error) { errs <- err })
	defer unsub()

	close(s.events)
	select {
	case err := <-errs:
		if !errors.Is(err, realtime.ErrStreamEnded) {
			t.Errorf("got %v, want ErrStreamEnded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onError not called")
	}
}

func TestSubscribe_ContextCancelIsNotAnError(t *testing.T) {
	s := newFakeStream(1)
	var loads atomic.Int32
	got := make(chan int, 10)
	ctx, cancel := context.WithCancel(context.Background())

	unsub := counterFeed(s, &loads).Subscribe(ctx,
		func(v int) { got <- v },
		func(err error) { t.Errorf("cancellation reported as error: %v", err) })

	receive(t, got)
	cancel()
	unsub()

	if !s.closed.Load() {
		t.Error("stream should be closed after cancellation")
	}
}

func TestSubscribe_LoadError(t *testing.T) {
	s := newFakeStream(1)
	boom := errors.New("load failed")
	errs := make(chan error, 1)
	f := realtime.Feed[int]{
		Open: func(context.Context) (realtime.Stream, error) { return s, nil },
		Load: func(context.Context) (int, error) { return 0, boom },
	}

	unsub := f.Subscribe(context.Background(), func(int) {}, func(err error) { errs <- err })
	select {
	case err := <-errs:
		if !errors.Is(err, boom) {
			t.Errorf("got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onError not called")
	}
	unsub()
	if !s.closed.Load() {
		t.Error("stream should be closed after load failure")
	}
}
