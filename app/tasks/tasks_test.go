package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/fetcher"
	"github.com/lysyi3m/feedsync/app/syncer"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test</title>
<item><title>First</title><link>https://example.com/1</link><guid>g1</guid></item>
<item><title>Second</title><link>https://example.com/2</link><guid>g2</guid></item>
</channel>
</rss>`

const jsonBody = `{"data": {"items": [{"id": 7, "title": "Patch notes", "url": "https://api.example.com/7"}]}}`

type MockFetcher struct {
	mu        sync.Mutex
	responses map[string]*fetcher.Response
	errs      map[string]error
	fallback  map[string]*fetcher.Response
	panics    map[string]bool
	fallbacks []string
	delay     time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*fetcher.Response, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		peak := m.maxActive.Load()
		if n <= peak || m.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(m.delay)

	if m.panics[url] {
		panic("fetcher exploded")
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	if resp, ok := m.responses[url]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("no response for %s", url)
}

func (m *MockFetcher) Fallback(ctx context.Context, url string, cause *fetcher.FetchError) (*fetcher.Response, error) {
	m.mu.Lock()
	m.fallbacks = append(m.fallbacks, url)
	m.mu.Unlock()

	if resp, ok := m.fallback[url]; ok {
		return resp, nil
	}
	return nil, cause
}

type MockSyncer struct {
	mu     sync.Mutex
	synced map[string][]feed.NormalizedItem
	format map[string]feed.Format
	err    error
}

func (m *MockSyncer) Sync(ctx context.Context, source database.Source, format feed.Format, items []feed.NormalizedItem) (*syncer.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.synced == nil {
		m.synced = map[string][]feed.NormalizedItem{}
		m.format = map[string]feed.Format{}
	}
	m.synced[source.ID] = items
	m.format[source.ID] = format
	return &syncer.Result{NewItems: items, Notify: items, Persisted: len(items)}, nil
}

type MockNotifier struct {
	mu       sync.Mutex
	notified map[string]int
}

func (m *MockNotifier) Notify(ctx context.Context, source database.Source, items []feed.NormalizedItem) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notified == nil {
		m.notified = map[string]int{}
	}
	m.notified[source.ID] += len(items)
	return len(items)
}

type MockSourceRepository struct {
	database.SourceRepository
	sources []database.Source
	err     error
}

func (m *MockSourceRepository) ListSources(ctx context.Context) ([]database.Source, error) {
	return m.sources, m.err
}

func newTestPipeline(t *testing.T, f SourceFetcher, s Syncer, n Notifier) *Pipeline {
	t.Helper()

	resolver, err := feed.NewEncodingResolver("windows-1256", feed.ArabicGamingProfile)
	if err != nil {
		t.Fatal(err)
	}

	return &Pipeline{
		Fetcher:    f,
		Resolver:   resolver,
		Parser:     feed.NewParser(),
		Normalizer: feed.NewNormalizer(),
		Filterer:   feed.NewFilterer(),
		Syncer:     s,
		Notifier:   n,
	}
}

func direct(body string) *fetcher.Response {
	return &fetcher.Response{Body: []byte(body), StatusCode: 200, Via: fetcher.ViaDirect}
}

func source(id string) database.Source {
	return database.Source{ID: id, Name: strings.ToUpper(id), URL: "https://" + id + ".example.com/feed", Enabled: true}
}

func TestProcessSourceTaskXML(t *testing.T) {
	f := &MockFetcher{responses: map[string]*fetcher.Response{"https://a.example.com/feed": direct(rssBody)}}
	s := &MockSyncer{}
	n := &MockNotifier{}

	task := NewProcessSourceTask(source("a"), newTestPipeline(t, f, s, n))
	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if s.format["a"] != feed.FormatXML {
		t.Errorf("Expected XML format, got %s", s.format["a"])
	}
	if len(s.synced["a"]) != 2 {
		t.Errorf("Expected 2 synced items, got %d", len(s.synced["a"]))
	}
	if task.Sent != 2 {
		t.Errorf("Expected 2 notifications, got %d", task.Sent)
	}
	if task.GetID() == "" || task.GetType() != TaskTypeProcessSource {
		t.Error("Expected task id and type to be set")
	}
}

func TestProcessSourceTaskJSON(t *testing.T) {
	f := &MockFetcher{responses: map[string]*fetcher.Response{"https://api.example.com/feed": direct(jsonBody)}}
	s := &MockSyncer{}

	task := NewProcessSourceTask(source("api"), newTestPipeline(t, f, s, nil))
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if s.format["api"] != feed.FormatJSON {
		t.Errorf("Expected JSON format, got %s", s.format["api"])
	}
	if len(s.synced["api"]) != 1 || s.synced["api"][0].Title != "Patch notes" {
		t.Errorf("Unexpected JSON items: %+v", s.synced["api"])
	}
}

func TestProcessSourceTaskAppliesFilters(t *testing.T) {
	f := &MockFetcher{responses: map[string]*fetcher.Response{"https://a.example.com/feed": direct(rssBody)}}
	s := &MockSyncer{}

	src := source("a")
	src.Filters = []database.Filter{{Field: "title", Excludes: []string{"second"}}}

	if err := NewProcessSourceTask(src, newTestPipeline(t, f, s, nil)).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(s.synced["a"]) != 1 || s.synced["a"][0].Title != "First" {
		t.Errorf("Expected only 'First' to pass the filter, got %+v", s.synced["a"])
	}
}

func TestProcessSourceTaskMarkupEscalation(t *testing.T) {
	url := "https://a.example.com/feed"
	blockPage := "<!DOCTYPE html><html><body><h1>Checking your browser</h1></body></html>"

	f := &MockFetcher{
		responses: map[string]*fetcher.Response{url: direct(blockPage)},
		fallback:  map[string]*fetcher.Response{url: {Body: []byte(rssBody), StatusCode: 200, Via: fetcher.ViaBrowser}},
	}
	s := &MockSyncer{}

	if err := NewProcessSourceTask(source("a"), newTestPipeline(t, f, s, nil)).Execute(context.Background()); err != nil {
		t.Fatalf("Expected browser retry to succeed, got: %v", err)
	}

	if len(f.fallbacks) != 1 {
		t.Errorf("Expected exactly one browser retry, got %d", len(f.fallbacks))
	}
	if len(s.synced["a"]) != 2 {
		t.Errorf("Expected 2 items after retry, got %d", len(s.synced["a"]))
	}
}

func TestProcessSourceTaskNoEscalationAfterBrowser(t *testing.T) {
	url := "https://a.example.com/feed"
	blockPage := "<!DOCTYPE html><html><body>Access denied</body></html>"

	f := &MockFetcher{responses: map[string]*fetcher.Response{
		url: {Body: []byte(blockPage), StatusCode: 200, Via: fetcher.ViaBrowser},
	}}

	err := NewProcessSourceTask(source("a"), newTestPipeline(t, f, &MockSyncer{}, nil)).Execute(context.Background())
	if err == nil {
		t.Fatal("Expected parse failure")
	}

	var parseErr *feed.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Expected ParseError, got %T", err)
	}
	if len(f.fallbacks) != 0 {
		t.Errorf("Expected no second browser fetch, got %d", len(f.fallbacks))
	}
}

func TestProcessSourceTaskSyncFailure(t *testing.T) {
	f := &MockFetcher{responses: map[string]*fetcher.Response{"https://a.example.com/feed": direct(rssBody)}}
	n := &MockNotifier{}

	err := NewProcessSourceTask(source("a"), newTestPipeline(t, f, &MockSyncer{err: errors.New("store down")}, n)).Execute(context.Background())
	if err == nil {
		t.Fatal("Expected sync failure to be returned")
	}
	if n.notified["a"] != 0 {
		t.Error("Expected no notifications after a failed sync")
	}
}

func TestOrchestratorIsolatesFailures(t *testing.T) {
	f := &MockFetcher{
		responses: map[string]*fetcher.Response{
			"https://a.example.com/feed": direct(rssBody),
			"https://c.example.com/feed": direct(rssBody),
		},
		errs: map[string]error{
			"https://b.example.com/feed": &fetcher.FetchError{Kind: fetcher.KindNetwork, URL: "https://b.example.com/feed", Err: errors.New("timeout")},
		},
		panics: map[string]bool{"https://d.example.com/feed": true},
	}
	n := &MockNotifier{}
	repo := &MockSourceRepository{sources: []database.Source{source("a"), source("b"), source("c"), source("d")}}

	orchestrator := NewOrchestrator(repo, newTestPipeline(t, f, &MockSyncer{}, n), 3)
	summary, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected run to complete, got: %v", err)
	}

	if summary.NotificationsSent() != 4 {
		t.Errorf("Expected 4 notifications, got %d", summary.NotificationsSent())
	}

	errs := summary.Errors()
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %+v", len(errs), errs)
	}
	failed := map[string]bool{}
	for _, e := range errs {
		failed[e.SourceName] = true
	}
	if !failed["B"] || !failed["D"] {
		t.Errorf("Expected B and D to fail, got %+v", errs)
	}
	if n.notified["c"] != 2 {
		t.Errorf("Expected sibling C to be notified, got %d", n.notified["c"])
	}
	if summary.String() != "Sent: 4, Errors: 2" {
		t.Errorf("Unexpected summary line '%s'", summary.String())
	}
}

func TestOrchestratorListFailure(t *testing.T) {
	f := &MockFetcher{}
	repo := &MockSourceRepository{err: errors.New("database locked")}

	summary, err := NewOrchestrator(repo, newTestPipeline(t, f, &MockSyncer{}, nil), 3).Run(context.Background())
	if err == nil {
		t.Fatal("Expected listing failure to abort the run")
	}
	if summary != nil {
		t.Error("Expected no summary")
	}
	if f.maxActive.Load() != 0 {
		t.Error("Expected no fetches")
	}
}

func TestOrchestratorWaves(t *testing.T) {
	f := &MockFetcher{responses: map[string]*fetcher.Response{}, delay: 20 * time.Millisecond}
	var sources []database.Source
	for i := 0; i < 7; i++ {
		src := source(fmt.Sprintf("s%d", i))
		f.responses[src.URL] = direct(rssBody)
		sources = append(sources, src)
	}

	s := &MockSyncer{}
	summary, err := NewOrchestrator(&MockSourceRepository{sources: sources}, newTestPipeline(t, f, s, nil), 3).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if peak := f.maxActive.Load(); peak > 3 {
		t.Errorf("Expected at most 3 concurrent fetches, got %d", peak)
	}
	if len(s.synced) != 7 {
		t.Errorf("Expected all 7 sources synced, got %d", len(s.synced))
	}
	if len(summary.Errors()) != 0 {
		t.Errorf("Expected no errors, got %+v", summary.Errors())
	}
}

type MockRunner struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (m *MockRunner) Run(ctx context.Context) (*Summary, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return nil, m.err
	}
	summary := NewSummary()
	summary.AddSent(3)
	summary.AddError("X", errors.New("boom"))
	return summary, nil
}

func TestSchedulerTriggerDoesNotOverlap(t *testing.T) {
	runner := &MockRunner{release: make(chan struct{})}
	scheduler := NewScheduler(runner, time.Hour)

	if err := scheduler.Trigger(); err != nil {
		t.Fatalf("Expected first trigger to start a run, got: %v", err)
	}
	if err := scheduler.Trigger(); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}
	if !scheduler.Status().Running {
		t.Error("Expected status to report a running run")
	}

	close(runner.release)
	scheduler.Stop()

	if runner.calls.Load() != 1 {
		t.Errorf("Expected 1 run, got %d", runner.calls.Load())
	}

	status := scheduler.Status()
	if status.Running {
		t.Error("Expected run to be finished")
	}
	if status.NotificationsSent != 3 || len(status.Errors) != 1 {
		t.Errorf("Unexpected status: %+v", status)
	}
}

func TestSchedulerRecordsAbortedRun(t *testing.T) {
	runner := &MockRunner{err: errors.New("failed to list sources")}
	scheduler := NewScheduler(runner, time.Hour)

	if err := scheduler.Trigger(); err != nil {
		t.Fatal(err)
	}
	scheduler.Stop()

	if status := scheduler.Status(); status.Failure == "" {
		t.Error("Expected failure to be recorded")
	}
}

func TestSchedulerTriggerAfterStop(t *testing.T) {
	runner := &MockRunner{}
	scheduler := NewScheduler(runner, time.Hour)
	scheduler.Stop()

	if err := scheduler.Trigger(); !errors.Is(err, ErrSchedulerStopped) {
		t.Errorf("Expected ErrSchedulerStopped, got %v", err)
	}
	if runner.calls.Load() != 0 {
		t.Errorf("Expected no run after stop, got %d", runner.calls.Load())
	}
	if scheduler.Status().Running {
		t.Error("Expected no running run after stop")
	}
}
