package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"pharma-deck/metrics"
	"pharma-deck/models"
)

// Ingester führt einen Lauf für einen Namen aus, typischerweise *IngestService.
type Ingester interface {
	Ingest(ctx context.Context, name string) IngestResult
}

// QueueStore ist der Teil des Stores, den der Worker braucht.
type QueueStore interface {
	ClaimQueue(ctx context.Context, n int) ([]models.IngestQueueItem, error)
	FinishQueueItem(ctx context.Context, id string, runErr error) error
}

// QueueReport zählt die Einträge eines Durchgangs.
type QueueReport struct {
	Claimed int `json:"claimed"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

func (r *QueueReport) add(o QueueReport) {
	r.Claimed += o.Claimed
	r.Done += o.Done
	r.Failed += o.Failed
}

// QueueWorker arbeitet die Ingest-Queue mit einem Goroutine-Pool ab.
type QueueWorker struct {
	Store     QueueStore
	Ingester  Ingester
	BatchSize int
	Logger    *zap.Logger

	pool *ants.Pool
}

// NewQueueWorker erstellt den Worker mit poolSize parallelen Läufen.
func NewQueueWorker(store QueueStore, ingester Ingester, batchSize, poolSize int, logger *zap.Logger) (*QueueWorker, error) {
	pool, err := ants.NewPool(max(poolSize, 1))
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}
	return &QueueWorker{
		Store:     store,
		Ingester:  ingester,
		BatchSize: max(batchSize, 1),
		Logger:    logger,
		pool:      pool,
	}, nil
}

// Release gibt den Pool frei.
func (w *QueueWorker) Release() {
	w.pool.Release()
}

// RunBatch holt einen Block wartender Einträge und verarbeitet ihn vollständig.
func (w *QueueWorker) RunBatch(ctx context.Context) (QueueReport, error) {
	items, err := w.Store.ClaimQueue(ctx, w.BatchSize)
	if err != nil {
		return QueueReport{}, err
	}
	report := QueueReport{Claimed: len(items)}
	if len(items) == 0 {
		return report, nil
	}
	w.Logger.Info("Queue-Block übernommen", zap.Int("items", len(items)))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			report.Done++
			metrics.QueueItems.WithLabelValues(models.QueueDone).Inc()
		} else {
			report.Failed++
			metrics.QueueItems.WithLabelValues(models.QueueError).Inc()
		}
	}

	for _, item := range items {
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			record(w.process(ctx, item))
		})
		if err != nil {
			wg.Done()
			w.finish(ctx, item, fmt.Errorf("submit: %w", err))
			record(false)
		}
	}
	wg.Wait()
	return report, nil
}

// Drain verarbeitet Blöcke, bis die Queue leer ist oder ctx endet.
func (w *QueueWorker) Drain(ctx context.Context) (QueueReport, error) {
	var total QueueReport
	for ctx.Err() == nil {
		report, err := w.RunBatch(ctx)
		total.add(report)
		if err != nil {
			return total, err
		}
		if report.Claimed == 0 {
			break
		}
	}
	w.Logger.Info("Queue abgearbeitet",
		zap.Int("claimed", total.Claimed), zap.Int("done", total.Done), zap.Int("failed", total.Failed))
	return total, ctx.Err()
}

func (w *QueueWorker) process(ctx context.Context, item models.IngestQueueItem) bool {
	log := w.Logger.With(zap.String("rxcui", item.RxCUI), zap.String("name", item.CanonicalName))
	if item.CanonicalName == "" {
		w.finish(ctx, item, errors.New("queue item has no canonical name"))
		return false
	}

	res := w.Ingester.Ingest(ctx, item.CanonicalName)
	if !res.OK {
		w.finish(ctx, item, errors.New(res.Error))
		return false
	}
	if res.CanonicalID != item.RxCUI {
		log.Warn("Aufgelöste RxCUI weicht vom Queue-Eintrag ab", zap.String("resolved", res.CanonicalID))
	}
	w.finish(ctx, item, nil)
	return true
}

func (w *QueueWorker) finish(ctx context.Context, item models.IngestQueueItem, runErr error) {
	if err := w.Store.FinishQueueItem(context.WithoutCancel(ctx), item.ID, runErr); err != nil {
		w.Logger.Error("Queue-Status nicht gespeichert", zap.String("id", item.ID), zap.Error(err))
	}
}
