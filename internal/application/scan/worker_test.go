package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"stock-radar/internal/application/analysis"
	ingestApp "stock-radar/internal/application/dataingestion"
	"stock-radar/internal/domain/dataingestion"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	last  Result
}

func (f *fakeNotifier) NotifyScan(_ context.Context, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = r
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestWorkerRunOnceNotifies(t *testing.T) {
	basic := &fakeBasic{list: []analysis.BasicInfo{{Symbol: "2330"}}}
	hist := &fakeHistory{data: map[string][]dataingestion.DailyPrice{
		"2330": history(70, 100, 0.3, 2_000_000),
	}}
	notifier := &fakeNotifier{}

	w := NewBackgroundWorker(NewUseCase(basic, hist, nil), notifier, time.Hour)
	w.runOnce()

	if notifier.count() != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.count())
	}
	if notifier.last.Scanned != 1 {
		t.Fatalf("scan result = %+v", notifier.last)
	}
}

type fakeIngester struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeIngester) Execute(_ context.Context, _ ingestApp.IngestInput) (ingestApp.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return ingestApp.IngestResult{}, nil
}

func TestWorkerIngestsBeforeScan(t *testing.T) {
	basic := &fakeBasic{list: nil}
	hist := &fakeHistory{}
	ing := &fakeIngester{}

	w := NewBackgroundWorker(NewUseCase(basic, hist, nil), nil, time.Hour).WithIngester(ing)
	w.runOnce()

	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.calls != 1 {
		t.Fatalf("ingester calls = %d, want 1", ing.calls)
	}
}

func TestWorkerNilNotifier(t *testing.T) {
	basic := &fakeBasic{list: nil}
	hist := &fakeHistory{}

	w := NewBackgroundWorker(NewUseCase(basic, hist, nil), nil, 0)
	if w.interval != 24*time.Hour {
		t.Fatalf("default interval = %v", w.interval)
	}
	w.runOnce() // 不應 panic
}

func TestWorkerStartStop(t *testing.T) {
	basic := &fakeBasic{list: nil}
	hist := &fakeHistory{}

	w := NewBackgroundWorker(NewUseCase(basic, hist, nil), nil, time.Hour)
	w.Start()
	w.Stop()
}
