package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tickerwire-hq/tickerwire-ingest/internal/admission"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/config"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/dedup"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/domain"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/ingest"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/logger"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/metrics"
	"github.com/tickerwire-hq/tickerwire-ingest/internal/storage"
	"github.com/tickerwire-hq/tickerwire-ingest/pkg/alerting"
	"github.com/tickerwire-hq/tickerwire-ingest/pkg/publishers"
	"github.com/tickerwire-hq/tickerwire-ingest/pkg/sources"
)

// Ingestor is the ingest runtime. It coordinates the fetch orchestrator,
// deduplication against the seen-key store, collision metrics, failure
// tracking, operator alerting, and the downstream publisher fanout.
type Ingestor struct {
	cfg          *config.Config
	orchestrator *ingest.Orchestrator
	collisions   *ingest.CollisionTracker
	failures     *ingest.FailureTracker
	alerts       *alerting.Publisher
	metricsSink  metrics.Sink
	fanout       *publishers.Fanout
	store        storage.Store
	interval     time.Duration
	log          logger.Logger
}

// NewIngestor builds the full ingest runtime from config files.
func NewIngestor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Ingestor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	sourceCfgs := sourceReg.All()
	adapterReg := sources.DefaultAdapterRegistry(sources.DefaultHTTPClient(), sourceCfgs)

	sourceNames := make([]string, 0, len(sourceCfgs))
	ingestSources := make([]ingest.Source, 0, len(sourceCfgs))
	for _, sc := range sourceCfgs {
		adapter, err := adapterReg.AdapterFor(sc)
		if err != nil {
			return nil, fmt.Errorf("resolve adapter for source %q: %w", sc.ID, err)
		}
		ingestSources = append(ingestSources, ingest.Source{
			Name:    sc.ID,
			Adapter: adapter,
			Breaker: admission.NewCircuitBreaker(admission.BreakerSettings{Name: sc.ID}),
		})
		sourceNames = append(sourceNames, sc.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(sourceNames),
		"ids":   sourceNames,
	})

	quota := admission.NewRateQuota(cfg.QuotaCallsPerHour)
	orchestrator, err := ingest.NewOrchestrator(ingestSources, quota, ingest.OrchestratorConfig{
		LookbackDays: cfg.FetchLookbackDays,
		FetchLimit:   cfg.FetchLimit,
		MaxWorkers:   cfg.MaxWorkers,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	alerts, err := buildAlertPublisher(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// The tracker notifies exactly once per episode, at the threshold
	// crossing, so the threshold is the in-window count at notify time.
	notifier := ingest.NotifierFunc(func(ctx context.Context, message string) error {
		if !alerts.ShouldAlert(cfg.FailureThreshold, cfg.FailureWindowMinutes) {
			return nil
		}
		alerts.PublishFailureAlert(ctx, cfg.FailureThreshold, cfg.FailureWindowMinutes, message)
		return nil
	})
	failureWindow := time.Duration(cfg.FailureWindowMinutes) * time.Minute
	failures := ingest.NewFailureTracker(cfg.FailureThreshold, failureWindow, notifier, log)

	fanout, err := buildPublisherFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		KeyTTL:          cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"key_ttl_seconds":          int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	sink, err := buildMetricsSink(ctx, cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Ingestor{
		cfg:          cfg,
		orchestrator: orchestrator,
		collisions:   ingest.NewCollisionTracker(sourceNames),
		failures:     failures,
		alerts:       alerts,
		metricsSink:  sink,
		fanout:       fanout,
		store:        store,
		interval:     cfg.IngestInterval,
		log:          log,
	}, nil
}

// buildAlertPublisher loads alert sink configs and wires the cooldown-aware
// alert publisher over their fanout.
func buildAlertPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (*alerting.Publisher, error) {
	sinkCfgs, err := alerting.LoadSinkConfigs(cfg.AlertsFile)
	if err != nil {
		return nil, fmt.Errorf("load alert sinks: %w", err)
	}
	sinks, err := alerting.BuildSinks(ctx, sinkCfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build alert sinks: %w", err)
	}
	log.InfoObj("alert sinks loaded", "alerts_meta", map[string]any{
		"count": len(sinks),
	})

	cooldown := time.Duration(cfg.AlertCooldownMinutes) * time.Minute
	return alerting.NewPublisher(alerting.NewFanout(sinks), cfg.AppName, cooldown, log), nil
}

// buildPublisherFanout loads downstream publisher configs and builds their
// fanout dispatcher.
func buildPublisherFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	pubReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := pubReg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count": len(pubs),
	})
	return publishers.NewFanout(pubs, log), nil
}

// buildMetricsSink returns the Pub/Sub sink when configured, otherwise the
// log sink.
func buildMetricsSink(ctx context.Context, cfg *config.Config, log logger.Logger) (metrics.Sink, error) {
	if cfg.MetricsProjectID == "" || cfg.MetricsTopic == "" {
		return metrics.NewLogSink(log), nil
	}
	sink, err := metrics.NewPubSubSink(ctx, cfg.MetricsProjectID, cfg.MetricsTopic, log)
	if err != nil {
		return nil, fmt.Errorf("init metrics sink: %w", err)
	}
	return sink, nil
}

// Run starts the ingest loop until the context is cancelled.
func (g *Ingestor) Run(ctx context.Context) error {
	if g == nil || g.orchestrator == nil {
		return fmt.Errorf("ingestor is not initialized")
	}
	defer g.close()

	g.log.InfoObj("ingest loop starting", "ingestor_state", map[string]any{
		"publishers_count": g.fanout.Size(),
		"ingest_interval":  g.interval.String(),
		"tickers":          g.cfg.Tickers,
	})

	g.runOnce(ctx)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.InfoObj("ingest loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			g.runOnce(ctx)
		}
	}
}

// runOnce performs a single ingest cycle: fetch, dedup, publish, report.
func (g *Ingestor) runOnce(ctx context.Context) {
	g.collisions.Reset()
	g.collisions.StartTiming()

	res, err := g.orchestrator.FetchAll(ctx, g.cfg.Tickers)
	if err != nil {
		g.collisions.StopTiming()
		g.log.ErrorObj("fetch run failed", "error", err)
		g.failures.RecordFailure(ctx, err.Error())
		return
	}

	stored := g.dedupAndPublish(ctx, res)
	g.collisions.StopTiming()

	g.reportMetrics(ctx)
	g.reportLatency(ctx, res)
	g.trackFailures(ctx, res)

	g.log.InfoObj("ingest cycle completed", "cycle_meta", map[string]any{
		"fetched":    res.Metrics.TotalArticles,
		"stored":     stored,
		"errors":     len(res.Errors),
		"elapsed_ms": res.Metrics.Duration.Milliseconds(),
	})
}

// dedupAndPublish walks the fetch results, skips articles whose dedup key
// was already seen in this run or in the store, marks and fans out the rest.
// It returns the number of newly stored articles.
func (g *Ingestor) dedupAndPublish(ctx context.Context, res *ingest.RunResult) int {
	seenThisRun := make(map[string]struct{})
	stored := 0

	for source, articles := range res.Results {
		g.collisions.RecordFetch(source, len(articles))
		for _, article := range articles {
			key := dedupKey(article, source)

			if _, dup := seenThisRun[key]; dup {
				g.collisions.RecordCollision()
				continue
			}
			seenThisRun[key] = struct{}{}

			seen, err := g.store.Seen(key)
			if err != nil {
				g.log.ErrorObj("seen-store lookup failed", "storage_error", map[string]any{
					"key":   key,
					"error": err.Error(),
				})
				continue
			}
			if seen {
				g.collisions.RecordCollision()
				continue
			}

			if err := g.store.Mark(key); err != nil {
				g.log.ErrorObj("seen-store mark failed", "storage_error", map[string]any{
					"key":   key,
					"error": err.Error(),
				})
				continue
			}
			g.collisions.RecordStored()
			stored++

			evt := publishers.NewEvent(source, key, article)
			if _, err := g.fanout.Publish(ctx, evt); err != nil {
				g.log.ErrorObj("event fanout failed", "publish_error", map[string]any{
					"source": source,
					"key":    key,
					"error":  err.Error(),
				})
			}
		}
	}
	return stored
}

// dedupKey prefers the provider article id and falls back to the
// headline-based key when a source omits ids.
func dedupKey(article domain.Article, source string) string {
	if article.ID != "" {
		return dedup.KeyFromID(article.ID, source)
	}
	return dedup.Key(article.Title, source, article.PublishedAt)
}

// reportMetrics publishes the cycle counters and raises a collision-rate
// anomaly alert when one is detected.
func (g *Ingestor) reportMetrics(ctx context.Context) {
	g.collisions.Publish(ctx, g.metricsSink)

	if g.collisions.IsAnomalous() {
		kind, message := g.collisions.AnomalyType()
		g.log.WarnObj("collision rate anomaly", "collision_anomaly", map[string]any{
			"kind":    kind,
			"message": message,
			"rate":    g.collisions.CollisionRate(),
		})
	}
}

// reportLatency raises per-source latency alerts for slow sources.
func (g *Ingestor) reportLatency(ctx context.Context, res *ingest.RunResult) {
	for source, latency := range res.Metrics.LatencyBySource {
		latencyMs := latency.Milliseconds()
		if g.alerts.ShouldAlertLatency(latencyMs, g.cfg.LatencyThresholdMs) {
			g.alerts.PublishLatencyAlert(ctx, source, latencyMs, g.cfg.LatencyThresholdMs)
		}
	}
}

// trackFailures feeds the run outcome into the consecutive-failure tracker.
// A run where at least one source fetched successfully ends any active alert
// episode; a run where every attempted source errored records one failure.
// A run where nothing was attempted counts as neither.
func (g *Ingestor) trackFailures(ctx context.Context, res *ingest.RunResult) {
	switch {
	case len(res.Metrics.FetchedBySource) > 0:
		g.failures.RecordSuccess()
	case len(res.Errors) > 0:
		parts := make([]string, 0, len(res.Errors))
		for _, srcErr := range res.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s", srcErr.Source, srcErr.Message))
		}
		g.failures.RecordFailure(ctx, strings.Join(parts, "; "))
	}
}

// close releases the storage backend and flushes the metrics sink.
func (g *Ingestor) close() {
	if g == nil {
		return
	}
	if ps, ok := g.metricsSink.(*metrics.PubSubSink); ok {
		ps.Stop()
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
