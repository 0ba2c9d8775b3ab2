package scan

import (
	"context"
	"log"
	"time"

	"stock-radar/internal/application/dataingestion"
)

// Notifier 接收掃描命中通知。
type Notifier interface {
	NotifyScan(ctx context.Context, result Result) error
}

// Ingester 在掃描前補抓最新日 K。
type Ingester interface {
	Execute(ctx context.Context, input dataingestion.IngestInput) (dataingestion.IngestResult, error)
}

// BackgroundWorker 定期執行全市場掃描並推播命中結果。
type BackgroundWorker struct {
	uc       *UseCase
	notifier Notifier
	ingester Ingester
	interval time.Duration
	lookback int
	stopChan chan struct{}
}

// NewBackgroundWorker 建立背景工作者。notifier 可為 nil（只記 log）。
func NewBackgroundWorker(uc *UseCase, notifier Notifier, interval time.Duration) *BackgroundWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BackgroundWorker{
		uc:       uc,
		notifier: notifier,
		interval: interval,
		lookback: 120,
		stopChan: make(chan struct{}),
	}
}

// Start 啟動迴圈。
func (w *BackgroundWorker) Start() {
	log.Printf("[Worker] Starting market scan worker with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	go func() {
		// 啟動後立即執行一次
		w.runOnce()

		for {
			select {
			case <-ticker.C:
				w.runOnce()
			case <-w.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop 停止迴圈。
func (w *BackgroundWorker) Stop() {
	close(w.stopChan)
}

// WithIngester 讓 worker 在每輪掃描前先補抓當日行情。
func (w *BackgroundWorker) WithIngester(ing Ingester) *BackgroundWorker {
	w.ingester = ing
	return w
}

func (w *BackgroundWorker) runOnce() {
	ctx := context.Background()

	if w.ingester != nil {
		res, err := w.ingester.Execute(ctx, dataingestion.IngestInput{
			Date: time.Now(),
			Mode: dataingestion.IngestModeDaily,
		})
		if err != nil {
			log.Printf("[Worker] Daily ingestion failed: %v", err)
		} else {
			log.Printf("[Worker] Ingested %d symbols (%d failed)", res.SuccessCount, res.FailedCount)
		}
	}

	log.Printf("[Worker] Running full market scan...")

	result, err := w.uc.Execute(ctx, Input{
		Date:      time.Now(),
		Lookback:  w.lookback,
		WatchOnly: true,
	})
	if err != nil {
		log.Printf("[Worker] Market scan failed: %v", err)
		return
	}

	log.Printf("[Worker] Scan finished: %d scanned, %d skipped, %d buy, %d watch (%v)",
		result.Scanned, result.Skipped, result.BuyCount, result.WatchCount, result.Elapsed)

	if w.notifier == nil || len(result.Matches) == 0 {
		return
	}
	if err := w.notifier.NotifyScan(ctx, result); err != nil {
		log.Printf("[Worker] Failed to send scan notification: %v", err)
	}
}
