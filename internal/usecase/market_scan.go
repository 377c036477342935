package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"omniscient/internal/domain/models"
	domrepo "omniscient/internal/domain/repository"
	domsvc "omniscient/internal/domain/service"
	applogger "omniscient/pkg/logger"
	"omniscient/pkg/util"
)

// ScanConfig tunes the watchlist sweep.
type ScanConfig struct {
	HistoryDays int
	Concurrency int
	Watchlist   []models.WatchlistItem
}

// MarketScanUseCase sweeps the watchlist: probes every keyword, runs the
// analytics engines over it, persists the observation, and emits signals
// for notable findings. It also keeps the latest sweep snapshot in memory
// for the read endpoints.
type MarketScanUseCase struct {
	probe     domrepo.MarketProbe
	store     domrepo.StatStore
	trends    domsvc.TrendAnalyzer
	anomalies domsvc.AnomalyDetector
	scorer    domsvc.OpportunityScorer
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	feed      *SignalFeed
	log       *applogger.Logger
	cfg       ScanConfig

	mu       sync.RWMutex
	rows     []models.TrendRow
	lastScan *time.Time
	scanning bool
}

func NewMarketScanUseCase(
	probe domrepo.MarketProbe,
	store domrepo.StatStore,
	trends domsvc.TrendAnalyzer,
	anomalies domsvc.AnomalyDetector,
	scorer domsvc.OpportunityScorer,
	publisher domrepo.SignalPublisher,
	metrics domrepo.Metrics,
	feed *SignalFeed,
	log *applogger.Logger,
	cfg ScanConfig,
) *MarketScanUseCase {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 30
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &MarketScanUseCase{
		probe:     probe,
		store:     store,
		trends:    trends,
		anomalies: anomalies,
		scorer:    scorer,
		publisher: publisher,
		metrics:   metrics,
		feed:      feed,
		log:       log,
		cfg:       cfg,
	}
}

// Watchlist returns the configured tracked items.
func (uc *MarketScanUseCase) Watchlist() []models.WatchlistItem {
	out := make([]models.WatchlistItem, len(uc.cfg.Watchlist))
	copy(out, uc.cfg.Watchlist)
	return out
}

type scanResult struct {
	row     models.TrendRow
	stat    *models.MarketStat
	signals []models.Signal
}

// ScanAll sweeps every watchlist item and returns the ranked rows.
// Concurrent sweeps are collapsed: a sweep already in flight makes later
// callers return the current snapshot instead of probing again.
func (uc *MarketScanUseCase) ScanAll(ctx context.Context) ([]models.TrendRow, error) {
	uc.mu.Lock()
	if uc.scanning {
		rows := make([]models.TrendRow, len(uc.rows))
		copy(rows, uc.rows)
		uc.mu.Unlock()
		return rows, nil
	}
	uc.scanning = true
	uc.mu.Unlock()
	defer func() {
		uc.mu.Lock()
		uc.scanning = false
		uc.mu.Unlock()
	}()

	start := time.Now()
	uc.log.Info("starting trend scan", applogger.Int("watchlist", len(uc.cfg.Watchlist)))

	sem := make(chan struct{}, uc.cfg.Concurrency)
	results := make([]*scanResult, len(uc.cfg.Watchlist))
	var wg sync.WaitGroup

	for i, item := range uc.cfg.Watchlist {
		wg.Add(1)
		go func(i int, item models.WatchlistItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := uc.scanOne(ctx, item)
			if err != nil {
				uc.metrics.RecordError("scan")
				uc.log.Error("keyword scan failed",
					applogger.String("keyword", item.Keyword),
					applogger.Error(err),
				)
				return
			}
			results[i] = res
		}(i, item)
	}
	wg.Wait()

	rows := make([]models.TrendRow, 0, len(results))
	stats := make([]*models.MarketStat, 0, len(results))
	var signals []models.Signal
	for _, res := range results {
		if res == nil {
			continue
		}
		rows = append(rows, res.row)
		stats = append(stats, res.stat)
		signals = append(signals, res.signals...)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Velocity > rows[j].Velocity })

	if err := uc.store.StoreBatch(ctx, stats); err != nil {
		uc.metrics.RecordError("store")
		uc.log.Error("persisting scan batch failed", applogger.Error(err))
	}

	uc.emitSignals(ctx, signals)

	now := time.Now().UTC()
	uc.mu.Lock()
	uc.rows = rows
	uc.lastScan = &now
	uc.mu.Unlock()

	status := "ok"
	if len(rows) < len(uc.cfg.Watchlist) {
		status = "partial"
	}
	uc.metrics.RecordScan(status)
	uc.metrics.RecordLatency("scan_all", time.Since(start).Seconds())
	uc.log.Info("trend scan complete",
		applogger.Int("tracked", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return rows, nil
}

func (uc *MarketScanUseCase) scanOne(ctx context.Context, item models.WatchlistItem) (*scanResult, error) {
	snap, err := uc.probe.Observe(ctx, item)
	if err != nil {
		return nil, err
	}

	history, err := uc.store.Rates(ctx, item.Keyword, uc.cfg.HistoryDays)
	if err != nil {
		uc.metrics.RecordError("history")
		uc.log.Warn("history read failed, scoring without trend context",
			applogger.String("keyword", item.Keyword),
			applogger.Error(err),
		)
		history = nil
	}

	var tm models.TrendMetrics
	if len(history) > 0 {
		tm = uc.trends.Analyze(item.Keyword, history)
	} else {
		tm = models.TrendMetrics{Keyword: item.Keyword, Direction: models.TrendFlat}
	}

	score := uc.scorer.Score(domsvc.ScoreInput{
		Keyword:         item.Keyword,
		SellThroughRate: snap.SellThroughRate,
		ActiveListings:  snap.ActiveSupply,
		VolumeSold:      snap.SoldDemand,
		Momentum7:       tm.Momentum7,
		Volatility:      tm.Volatility,
		DataPoints:      len(history),
		HasHistory:      len(history) >= 7,
	})

	uc.metrics.RecordSellThroughRate(item.Keyword, snap.SellThroughRate)
	uc.metrics.RecordOpportunity(item.Keyword, score.TotalScore)

	stat := &models.MarketStat{
		Keyword:          item.Keyword,
		Category:         item.Category,
		Platform:         item.Platform,
		SellThroughRate:  snap.SellThroughRate,
		VolumeSold:       snap.SoldDemand,
		ActiveListings:   snap.ActiveSupply,
		AvgPrice:         snap.AvgPrice,
		Momentum7:        tm.Momentum7,
		MovingAvg7:       tm.MA7,
		OpportunityScore: util.Float64Ptr(score.TotalScore),
		TrendDirection:   tm.Direction,
		MarketStatus:     snap.MarketStatus,
		RecordedAt:       snap.ObservedAt,
	}

	row := models.TrendRow{
		Keyword:     item.Keyword,
		Category:    item.Category,
		Velocity:    util.Round2(snap.SellThroughRate),
		Volume:      snap.SoldDemand,
		Supply:      snap.ActiveSupply,
		Sentiment:   snap.MarketStatus,
		AvgPrice:    util.Round2Ptr(snap.AvgPrice),
		Trend:       models.TrendRowTrend{Direction: tm.Direction, Momentum7: util.Round2Ptr(tm.Momentum7), Momentum30: util.Round2Ptr(tm.Momentum30), MA7: util.Round2Ptr(tm.MA7)},
		Opportunity: models.TrendRowOpp{Score: util.Round1(score.TotalScore), Level: score.OpportunityLevel, Recommendation: score.Recommendation},
		IsEstimated: snap.IsEstimated,
	}

	return &scanResult{
		row:     row,
		stat:    stat,
		signals: uc.signalsFor(item.Keyword, snap, history),
	}, nil
}

// signalsFor translates notable observations into feed signals.
func (uc *MarketScanUseCase) signalsFor(keyword string, snap *models.MarketSnapshot, history []float64) []models.Signal {
	var out []models.Signal

	switch {
	case snap.SellThroughRate > 100:
		out = append(out, models.NewSignal(models.SignalCritical, keyword,
			fmt.Sprintf("%s ON FIRE with %.0f%% STR", keyword, snap.SellThroughRate)))
	case snap.SellThroughRate > 70:
		out = append(out, models.NewSignal(models.SignalWarning, keyword,
			fmt.Sprintf("High demand detected for %s", keyword)))
	}

	if a := uc.anomalies.DetectValueAnomaly(keyword, snap.SellThroughRate, history); a != nil {
		uc.metrics.RecordAnomaly(string(a.Type), string(a.Severity))
		if a.Severity == models.SeverityHigh || a.Severity == models.SeverityCritical {
			level := models.SignalWarning
			if a.Severity == models.SeverityCritical {
				level = models.SignalCritical
			}
			out = append(out, models.NewSignal(level, keyword, a.Message))
		}
	}

	return out
}

func (uc *MarketScanUseCase) emitSignals(ctx context.Context, signals []models.Signal) {
	if len(signals) == 0 {
		return
	}
	uc.feed.Push(signals...)

	batch := make([]*models.Signal, 0, len(signals))
	for i := range signals {
		uc.metrics.RecordSignal(string(signals[i].Level))
		batch = append(batch, &signals[i])
	}
	if err := uc.publisher.PublishBatch(ctx, batch); err != nil {
		uc.metrics.RecordError("publish")
		uc.log.Error("publishing signals failed", applogger.Error(err))
	}
}

// Rows returns the latest sweep snapshot, ranked by velocity.
func (uc *MarketScanUseCase) Rows() []models.TrendRow {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]models.TrendRow, len(uc.rows))
	copy(out, uc.rows)
	return out
}

// LastScan returns the completion time of the latest sweep, if any.
func (uc *MarketScanUseCase) LastScan() *time.Time {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.lastScan
}

// Pulse aggregates the latest sweep into the system-wide view.
func (uc *MarketScanUseCase) Pulse() models.Pulse {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	total := 0.0
	dist := make(map[models.TrendDirection]int, 5)
	for _, row := range uc.rows {
		total += row.Velocity
		dist[row.Trend.Direction]++
	}

	avg := 0.0
	if len(uc.rows) > 0 {
		avg = total / float64(len(uc.rows))
	}

	status := "SCANNING"
	if len(uc.rows) > 0 {
		status = "LOCKED"
	}

	var last *string
	if uc.lastScan != nil {
		s := uc.lastScan.Format(time.RFC3339)
		last = &s
	}

	return models.Pulse{
		GlobalVelocityIndex: util.Round1(avg),
		ScannedNodes:        len(uc.cfg.Watchlist),
		SystemStatus:        status,
		LastScan:            last,
		TrendDistribution:   dist,
		TotalItemsTracked:   len(uc.rows),
	}
}

// Heatmap groups the latest sweep by category.
func (uc *MarketScanUseCase) Heatmap() []models.CategoryHeat {
	uc.mu.RLock()
	rows := make([]models.TrendRow, len(uc.rows))
	copy(rows, uc.rows)
	uc.mu.RUnlock()

	byCategory := make(map[string]*models.CategoryHeat)
	var order []string
	for _, row := range rows {
		heat, ok := byCategory[row.Category]
		if !ok {
			heat = &models.CategoryHeat{Category: row.Category}
			byCategory[row.Category] = heat
			order = append(order, row.Category)
		}
		heat.Items = append(heat.Items, models.CategoryHeatItem{
			Keyword: row.Keyword,
			STR:     row.Velocity,
			Volume:  row.Volume,
			Score:   row.Opportunity.Score,
		})
		heat.TotalVolume += row.Volume
		heat.ItemCount++
		heat.AvgSTR += row.Velocity
	}

	out := make([]models.CategoryHeat, 0, len(order))
	for _, cat := range order {
		heat := byCategory[cat]
		heat.AvgSTR = util.Round1(heat.AvgSTR / float64(heat.ItemCount))
		switch {
		case heat.AvgSTR > 60:
			heat.HeatLevel = "HOT"
		case heat.AvgSTR > 40:
			heat.HeatLevel = "WARM"
		default:
			heat.HeatLevel = "COLD"
		}
		sort.SliceStable(heat.Items, func(i, j int) bool { return heat.Items[i].STR > heat.Items[j].STR })
		out = append(out, *heat)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgSTR > out[j].AvgSTR })
	return out
}
