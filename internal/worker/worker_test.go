// Package worker_test contains end-to-end tests over the worker loop with
// in-memory infrastructure and fake upstream clients.
package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/excelltechsh/siteaudit/internal/audit"
	"github.com/excelltechsh/siteaudit/internal/enrich"
	memoryqueue "github.com/excelltechsh/siteaudit/internal/queue/memory"
	"github.com/excelltechsh/siteaudit/internal/scan"
	memorystore "github.com/excelltechsh/siteaudit/internal/storage/memory"
	"github.com/excelltechsh/siteaudit/internal/worker"
)

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type fakeCrawler struct {
	submission audit.CrawlSubmission
}

func (f *fakeCrawler) Map(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (f *fakeCrawler) Scrape(_ context.Context, _ string) (audit.CrawledPage, error) {
	return audit.CrawledPage{}, nil
}

func (f *fakeCrawler) SubmitCrawl(_ context.Context, _ string) (audit.CrawlSubmission, error) {
	return f.submission, nil
}

func (f *fakeCrawler) JobStatus(_ context.Context, _ string) (audit.CrawlJobStatus, error) {
	return audit.CrawlJobStatus{}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, _ string, _ int) (string, error) {
	return `{"overall_score": 75}`, nil
}

type fakeSearch struct{}

func (fakeSearch) Search(_ context.Context, _ string) ([]audit.Source, error) {
	return []audit.Source{{Title: "A", URL: "https://a"}}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	scanIDs []string
}

func (n *recordingNotifier) Publish(_ context.Context, scanID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scanIDs = append(n.scanIDs, scanID)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) published() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.scanIDs...)
}

func TestWorker_CrawlTaskEndToEnd(t *testing.T) {
	t.Parallel()

	store := memorystore.NewStore()
	queue := memoryqueue.NewQueue(4)
	defer queue.Close()

	require.NoError(t, store.CreateScan(context.Background(), audit.Scan{
		ID:     "scan-1",
		UserID: "user-1",
		URL:    "https://example.com",
		Status: audit.ScanStatusCrawling,
	}))

	crawler := &fakeCrawler{
		submission: audit.CrawlSubmission{
			Pages: []audit.CrawledPage{{URL: "https://example.com/", Markdown: "home"}},
		},
	}
	logger := zap.NewNop()
	clk := systemClock{}
	idGen := &seqIDGen{}

	persister := scan.NewPersister(store, clk, idGen, logger)
	poller := scan.NewPoller(store, crawler, persister, time.Millisecond, 5, logger)
	orchestrator := scan.NewOrchestrator(store, crawler, persister, poller, logger)
	analyzer := enrich.NewAnalyzer(store, store, fakeGenerator{}, "m", clk, idGen, logger)
	researcher := enrich.NewResearcher(store, store, fakeSearch{}, fakeGenerator{}, "m", "f", clk, idGen, logger)
	notifier := &recordingNotifier{}

	w := worker.New(queue, orchestrator, analyzer, researcher, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.NoError(t, queue.Enqueue(ctx, audit.Task{
		Kind:   audit.TaskCrawl,
		ScanID: "scan-1",
		URL:    "https://example.com",
	}))

	require.Eventually(t, func() bool {
		row, err := store.GetScan(context.Background(), "scan-1")
		return err == nil && row.Status == audit.ScanStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(notifier.published()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"scan-1"}, notifier.published())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_ResearchTaskStoresInsight(t *testing.T) {
	t.Parallel()

	store := memorystore.NewStore()
	queue := memoryqueue.NewQueue(4)
	defer queue.Close()

	require.NoError(t, store.CreateScan(context.Background(), audit.Scan{
		ID:     "scan-1",
		UserID: "user-1",
		URL:    "https://example.com",
		Status: audit.ScanStatusCompleted,
	}))

	logger := zap.NewNop()
	clk := systemClock{}
	idGen := &seqIDGen{}
	crawler := &fakeCrawler{}

	persister := scan.NewPersister(store, clk, idGen, logger)
	poller := scan.NewPoller(store, crawler, persister, time.Millisecond, 5, logger)
	orchestrator := scan.NewOrchestrator(store, crawler, persister, poller, logger)
	analyzer := enrich.NewAnalyzer(store, store, fakeGenerator{}, "m", clk, idGen, logger)
	researcher := enrich.NewResearcher(store, store, fakeSearch{}, fakeGenerator{}, "m", "f", clk, idGen, logger)

	w := worker.New(queue, orchestrator, analyzer, researcher, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, queue.Enqueue(ctx, audit.Task{
		Kind:   audit.TaskResearch,
		ScanID: "scan-1",
	}))

	require.Eventually(t, func() bool {
		rows, err := store.ListInsightsByScan(context.Background(), "scan-1")
		return err == nil && len(rows) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
