package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-deck/models"
	"pharma-deck/storage/storagetest"
)

type fakeIngester struct {
	mu    sync.Mutex
	names []string
	fail  map[string]string
}

func (f *fakeIngester) Ingest(_ context.Context, name string) IngestResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	if reason, ok := f.fail[name]; ok {
		return IngestResult{OK: false, Error: reason, State: StateAborted}
	}
	return IngestResult{OK: true, CanonicalID: name + "-id", State: StatePersisted}
}

func TestQueueWorker_Drain(t *testing.T) {
	store := storagetest.New(t)
	ctx := context.Background()
	_, err := store.SeedQueue(ctx, []models.IngestQueueItem{
		{RxCUI: "6809", CanonicalName: "metformin", Rank: 1, PriorityScore: 99},
		{RxCUI: "2541", CanonicalName: "cimetidine", Rank: 2, PriorityScore: 98},
		{RxCUI: "0", CanonicalName: "notadrug", Rank: 3, PriorityScore: 97},
		{RxCUI: "1", Rank: 4, PriorityScore: 96},
		{RxCUI: "448", CanonicalName: "ethanol", Rank: 5, PriorityScore: 95},
	})
	require.NoError(t, err)

	ingester := &fakeIngester{fail: map[string]string{"notadrug": "RxCUI not found"}}
	worker, err := NewQueueWorker(store, ingester, 2, 2, zap.NewNop())
	require.NoError(t, err)
	defer worker.Release()

	report, err := worker.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueReport{Claimed: 5, Done: 3, Failed: 2}, report)
	assert.ElementsMatch(t, []string{"metformin", "cimetidine", "notadrug", "ethanol"}, ingester.names)

	stats, err := store.QueueStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats[models.QueueDone])
	assert.EqualValues(t, 2, stats[models.QueueError])

	var failed models.IngestQueueItem
	require.NoError(t, store.DB.Where("rxcui = ?", "0").First(&failed).Error)
	assert.Equal(t, "RxCUI not found", failed.LastError)
	assert.Equal(t, 1, failed.Attempts)

	report, err = worker.RunBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)
}

func TestQueueWorker_StopsOnCancel(t *testing.T) {
	store := storagetest.New(t)
	_, err := store.SeedQueue(context.Background(), []models.IngestQueueItem{{RxCUI: "6809", CanonicalName: "metformin"}})
	require.NoError(t, err)

	worker, err := NewQueueWorker(store, &fakeIngester{}, 1, 1, zap.NewNop())
	require.NoError(t, err)
	defer worker.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := worker.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Claimed)
}

func TestParseQueueCSV(t *testing.T) {
	in := "rank,canonical_name,rxcui,priority_score,category\n" +
		"1, metformin ,6809,,antidiabetic\n" +
		"2,lisinopril,29046,120,antihypertensive\n" +
		"3,unknown,,50,\n" +
		"x,atorvastatin,83367,\n"

	items, err := ParseQueueCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, models.IngestQueueItem{RxCUI: "6809", CanonicalName: "metformin", Rank: 1, PriorityScore: 99, Category: "antidiabetic"}, items[0])
	assert.Equal(t, 120, items[1].PriorityScore)
	assert.Equal(t, "atorvastatin", items[2].CanonicalName)
	assert.Equal(t, 4, items[2].Rank)
	assert.Equal(t, 96, items[2].PriorityScore)
}

func TestParseQueueCSV_ScoreFromRank(t *testing.T) {
	in := "canonical_name,rxcui,rank\nmetformin,6809,7\nlisinopril,29046,\n"

	items, err := ParseQueueCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 93, items[0].PriorityScore)
	assert.Equal(t, 2, items[1].Rank)
	assert.Equal(t, 98, items[1].PriorityScore)
}

func TestParseQueueCSV_Empty(t *testing.T) {
	items, err := ParseQueueCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, items)
}
