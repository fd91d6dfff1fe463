package render

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dfunklove/tikka/internal/clock"
	"github.com/dfunklove/tikka/internal/router"
	"github.com/dfunklove/tikka/internal/series"
)

type countingChart struct {
	redraws atomic.Int64
}

func (c *countingChart) Redraw() { c.redraws.Add(1) }

func TestLoop_StepAppendsLatest(t *testing.T) {
	slot := router.NewSlot[router.Tick]()
	store := series.NewStore(5)
	chart := &countingChart{}
	fixed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	l := NewLoop(Config{}, slot, store, chart, clock.Func(func() time.Time { return fixed }), nil)

	slot.Deposit(router.Tick{Symbol: "AAPL", Price: 1})
	slot.Deposit(router.Tick{Symbol: "AAPL", Price: 2})

	if !l.Step() {
		t.Fatal("Step() = false, want true")
	}

	samples := store.Snapshot()
	if len(samples) != 1 {
		t.Fatalf("store has %d samples, want 1", len(samples))
	}
	if samples[0].Price != 2 {
		t.Errorf("Price = %v, want 2", samples[0].Price)
	}
	if !samples[0].Time.Equal(fixed) {
		t.Errorf("Time = %v, want %v", samples[0].Time, fixed)
	}
	if chart.redraws.Load() != 1 {
		t.Errorf("redraws = %d, want 1", chart.redraws.Load())
	}
}

func TestLoop_StepEmptyDoesNothing(t *testing.T) {
	slot := router.NewSlot[router.Tick]()
	store := series.NewStore(5)
	chart := &countingChart{}

	l := NewLoop(Config{}, slot, store, chart, nil, nil)

	if l.Step() {
		t.Error("Step() = true on empty slot")
	}
	if !store.IsEmpty() {
		t.Error("store should be empty")
	}
	if chart.redraws.Load() != 0 {
		t.Errorf("redraws = %d, want 0", chart.redraws.Load())
	}

	stats := l.Stats()
	if stats.Steps != 1 || stats.Appended != 0 {
		t.Errorf("Steps/Appended = %d/%d, want 1/0", stats.Steps, stats.Appended)
	}
}

func TestLoop_StoreStaysBounded(t *testing.T) {
	slot := router.NewSlot[router.Tick]()
	store := series.NewStore(3)
	l := NewLoop(Config{}, slot, store, nil, nil, nil)

	for _, p := range []float64{10, 20, 30, 40} {
		slot.Deposit(router.Tick{Price: p})
		l.Step()
	}

	samples := store.Snapshot()
	want := []float64{20, 30, 40}
	if len(samples) != len(want) {
		t.Fatalf("store has %d samples, want %d", len(samples), len(want))
	}
	for i, s := range samples {
		if s.Price != want[i] {
			t.Errorf("sample %d = %v, want %v", i, s.Price, want[i])
		}
	}
}

func TestLoop_Run(t *testing.T) {
	slot := router.NewSlot[router.Tick]()
	store := series.NewStore(10)
	chart := &countingChart{}
	l := NewLoop(Config{Interval: 5 * time.Millisecond}, slot, store, chart, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	slot.Deposit(router.Tick{Price: 42})

	deadline := time.Now().Add(time.Second)
	for store.IsEmpty() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	last, ok := store.Last()
	if !ok || last.Price != 42 {
		t.Errorf("Last() = %v, %v, want 42, true", last.Price, ok)
	}
}
