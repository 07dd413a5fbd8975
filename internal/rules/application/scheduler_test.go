package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestScheduler_RunsImmediatelyThenTicks(t *testing.T) {
	catalog := &stubCatalog{}
	engine := newTestEngine(t, catalog, fixedSample(nil), &memoryStore{})
	scheduler := NewScheduler(engine, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()
	scheduler.Start(ctx)

	if catalog.calls < 2 {
		t.Fatalf("expected an immediate cycle plus ticks, got %d cycles", catalog.calls)
	}
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	catalog := &stubCatalog{}
	engine := newTestEngine(t, catalog, fixedSample(nil), &memoryStore{})
	scheduler := NewScheduler(engine, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Start(ctx)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestScheduler_SurvivesCycleErrors(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("db down")}
	engine := newTestEngine(t, catalog, fixedSample(nil), &memoryStore{})
	scheduler := NewScheduler(engine, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Millisecond)
	defer cancel()
	scheduler.Start(ctx)

	if catalog.calls < 2 {
		t.Fatalf("expected failing cycles to be retried, got %d attempts", catalog.calls)
	}
}

func TestScheduler_DefaultInterval(t *testing.T) {
	engine := newTestEngine(t, &stubCatalog{}, fixedSample(nil), &memoryStore{})
	scheduler := NewScheduler(engine, 0, zerolog.Nop())
	if scheduler.interval != 10*time.Second {
		t.Fatalf("default interval = %s, want 10s", scheduler.interval)
	}
}
