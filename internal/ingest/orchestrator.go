package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/admission"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/syncutil"
)

const (
	defaultLookbackDays = 7
	defaultFetchLimit   = 50
	defaultMaxWorkers   = 4
	minWorkers          = 2
)

// Adapter fetches raw articles for one provider. The context carries the
// caller's deadline; a hung provider call is bounded by it.
type Adapter interface {
	GetNews(ctx context.Context, tickers []string, start, end time.Time, limit int) ([]domain.Article, error)
}

// Source couples a provider name with its adapter and circuit breaker.
type Source struct {
	Name    string
	Adapter Adapter
	Breaker admission.Breaker
}

// OrchestratorConfig tunes a fetch orchestrator. Zero values fall back to
// defaults; negative values are programmer errors rejected at construction.
type OrchestratorConfig struct {
	LookbackDays int
	FetchLimit   int
	MaxWorkers   int
}

// RunMetrics aggregates counters for one FetchAll invocation.
type RunMetrics struct {
	FetchedBySource map[string]int64
	LatencyBySource map[string]time.Duration
	TotalArticles   int64
	Duration        time.Duration
}

// RunResult is the outcome of one FetchAll invocation. Results always
// contains every configured source key, possibly with an empty list.
type RunResult struct {
	Results map[string][]domain.Article
	Errors  []domain.SourceError
	Metrics RunMetrics
}

// Orchestrator fetches from all configured sources concurrently, respecting
// per-source admission control, and returns a best-effort result set even
// when some sources fail. Each call builds and tears down its own worker
// pool, so instances are re-entrant and share no transient state across runs.
type Orchestrator struct {
	sources    []Source
	quota      admission.QuotaTracker
	lookback   time.Duration
	fetchLimit int
	maxWorkers int
	log        logger.Logger
	now        func() time.Time
}

// NewOrchestrator validates the configuration and builds an orchestrator.
func NewOrchestrator(sources []Source, quota admission.QuotaTracker, cfg OrchestratorConfig, log logger.Logger) (*Orchestrator, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("orchestrator requires at least one source")
	}
	seen := make(map[string]struct{}, len(sources))
	for i, src := range sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source[%d]: name is required", i)
		}
		if src.Adapter == nil {
			return nil, fmt.Errorf("source %q: adapter is required", src.Name)
		}
		if src.Breaker == nil {
			return nil, fmt.Errorf("source %q: breaker is required", src.Name)
		}
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q", src.Name)
		}
		seen[src.Name] = struct{}{}
	}
	if quota == nil {
		return nil, fmt.Errorf("orchestrator requires a quota tracker")
	}
	if cfg.LookbackDays < 0 || cfg.FetchLimit < 0 || cfg.MaxWorkers < 0 {
		return nil, fmt.Errorf("orchestrator config values must not be negative")
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.FetchLimit == 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}

	return &Orchestrator{
		sources:    append([]Source(nil), sources...),
		quota:      quota,
		lookback:   time.Duration(cfg.LookbackDays) * 24 * time.Hour,
		fetchLimit: cfg.FetchLimit,
		maxWorkers: cfg.MaxWorkers,
		log:        logger.Ensure(log),
		now:        time.Now,
	}, nil
}

// FetchAll fetches the tickers from every admitted source. Per-source
// problems never fail the call: denied sources are skipped, failing sources
// yield an empty list plus an error entry, and the caller decides whether the
// reduced result set is acceptable.
func (o *Orchestrator) FetchAll(ctx context.Context, tickers []string) (*RunResult, error) {
	if o == nil {
		return nil, fmt.Errorf("orchestrator is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runStart := o.now()
	endDate := runStart
	startDate := endDate.Add(-o.lookback)

	results := syncutil.NewMap[string, []domain.Article]()
	errs := &syncutil.Queue[domain.SourceError]{}
	fetched := syncutil.NewCountMap()
	latency := syncutil.NewMap[string, time.Duration]()

	// Every configured source key is present in the output, even when the
	// source is skipped or fails.
	for _, src := range o.sources {
		results.Set(src.Name, []domain.Article{})
	}

	admitted := o.admit()

	poolSize := len(admitted)
	if poolSize < minWorkers {
		poolSize = minWorkers
	}
	if poolSize > o.maxWorkers {
		poolSize = o.maxWorkers
	}

	// Fresh pool per invocation: resource usage is bounded to one run.
	sem := make(chan struct{}, poolSize)
	var wg sync.WaitGroup
	for _, src := range admitted {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			o.fetchOne(ctx, src, tickers, startDate, endDate, results, errs, fetched, latency)
		}(src)
	}
	wg.Wait()

	resultMap := results.GetAll()
	var total int64
	for _, articles := range resultMap {
		total += int64(len(articles))
	}

	return &RunResult{
		Results: resultMap,
		Errors:  errs.GetAll(),
		Metrics: RunMetrics{
			FetchedBySource: fetched.GetAll(),
			LatencyBySource: latency.GetAll(),
			TotalArticles:   total,
			Duration:        o.now().Sub(runStart),
		},
	}, nil
}

// admit consults the quota tracker and circuit breaker for each source. A
// denied source is skipped silently; skipping is not a failure. The quota
// check runs first so a quota-denied source never touches its breaker.
func (o *Orchestrator) admit() []Source {
	admitted := make([]Source, 0, len(o.sources))
	for _, src := range o.sources {
		if !o.quota.CanCall(src.Name) {
			o.log.WarnObj("source skipped by quota", "admission", map[string]any{
				"source": src.Name,
			})
			continue
		}
		if !src.Breaker.CanExecute() {
			o.log.WarnObj("source skipped by circuit breaker", "admission", map[string]any{
				"source": src.Name,
			})
			continue
		}
		admitted = append(admitted, src)
	}
	return admitted
}

// fetchOne runs a single source fetch inside the worker pool. Failures are
// contained: they are reported to the breaker and the shared error queue but
// never abort sibling workers.
func (o *Orchestrator) fetchOne(
	ctx context.Context,
	src Source,
	tickers []string,
	startDate, endDate time.Time,
	results *syncutil.Map[string, []domain.Article],
	errs *syncutil.Queue[domain.SourceError],
	fetched *syncutil.CountMap,
	latency *syncutil.Map[string, time.Duration],
) {
	o.quota.RecordCall(src.Name, 1)

	callStart := o.now()
	articles, err := o.callAdapter(ctx, src, tickers, startDate, endDate)
	latency.Set(src.Name, o.now().Sub(callStart))

	if err != nil {
		src.Breaker.RecordFailure()
		results.Set(src.Name, []domain.Article{})
		errs.Put(domain.SourceError{
			Source:    src.Name,
			Message:   err.Error(),
			Timestamp: o.now(),
		})
		o.log.ErrorObj("source fetch failed", "fetch_error", map[string]any{
			"source": src.Name,
			"error":  err.Error(),
		})
		return
	}

	src.Breaker.RecordSuccess()
	if articles == nil {
		articles = []domain.Article{}
	}
	results.Set(src.Name, articles)
	fetched.Set(src.Name, int64(len(articles)))
	o.log.DebugObj("source fetch completed", "fetch_result", map[string]any{
		"source":   src.Name,
		"articles": len(articles),
	})
}

// callAdapter invokes the adapter with panic containment so a misbehaving
// provider client cannot take down the run.
func (o *Orchestrator) callAdapter(ctx context.Context, src Source, tickers []string, startDate, endDate time.Time) (articles []domain.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			articles = nil
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return src.Adapter.GetNews(ctx, tickers, startDate, endDate, o.fetchLimit)
}
