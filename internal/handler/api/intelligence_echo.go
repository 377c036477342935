package api

import (
	"encoding/json"
	"errors"
	"time"

	models "omniscient/internal/domain/models"
	icache "omniscient/internal/service/cache"
	"omniscient/internal/service/metrics"
	"omniscient/internal/service/ratelimit"
	"omniscient/internal/usecase"
	pkgcache "omniscient/pkg/cache"
	xhttp "omniscient/pkg/http"
	xlogger "omniscient/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CacheTTLs tunes per-endpoint response caching.
type CacheTTLs struct {
	Trends        time.Duration
	Forecast      time.Duration
	Anomalies     time.Duration
	Opportunities time.Duration
}

// IntelligenceEchoHandler serves the market intelligence REST API.
type IntelligenceEchoHandler struct {
	logger *xlogger.Logger
	scan   *usecase.MarketScanUseCase
	intel  *usecase.IntelligenceUseCase
	feed   *usecase.SignalFeed
	cache  icache.BytesCache
	rl     *ratelimit.Limiter
	ttl    CacheTTLs
}

func NewIntelligenceEchoHandler(
	logger *xlogger.Logger,
	scan *usecase.MarketScanUseCase,
	intel *usecase.IntelligenceUseCase,
	feed *usecase.SignalFeed,
	ttl CacheTTLs,
) *IntelligenceEchoHandler {
	metrics.Register()
	return &IntelligenceEchoHandler{
		logger: logger,
		scan:   scan,
		intel:  intel,
		feed:   feed,
		rl:     ratelimit.New(),
		ttl:    ttl,
	}
}

// SetCache injects a response cache for the analytics endpoints.
func (h *IntelligenceEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *IntelligenceEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)

	g := e.Group("/api")
	g.GET("/trends", h.Trends)
	g.GET("/trends/:keyword", h.TrendDetail)
	g.GET("/keywords", h.Keywords)
	g.GET("/signals", h.Signals)
	g.GET("/pulse", h.Pulse)
	g.GET("/watchlist", h.WatchlistEndpoint)
	g.GET("/stats", h.Stats)
	g.GET("/history/item/:keyword", h.ItemHistory)
	g.GET("/history/market", h.MarketHistory)

	a := g.Group("/analytics")
	a.GET("/forecast/:keyword", h.Forecast)
	a.GET("/anomalies", h.Anomalies)
	a.GET("/opportunities", h.Opportunities)
	a.GET("/heatmap", h.Heatmap)
	a.GET("/intelligence/:keyword", h.Intelligence)
}

func (h *IntelligenceEchoHandler) Root(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"service": "omniscient",
		"status":  "operational",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Trends returns the latest sweep, ranked by velocity.
func (h *IntelligenceEchoHandler) Trends(c echo.Context) error {
	rows := h.scan.Rows()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"trends":    rows,
		"count":     len(rows),
		"last_scan": h.scan.LastScan(),
	})
}

type trendDetailResponse struct {
	Keyword  string                      `json:"keyword"`
	Latest   models.MarketStatPayload    `json:"latest"`
	Trend    *models.TrendMetricsPayload `json:"trend"`
	Anomaly  *models.AnomalyPayload      `json:"anomaly"`
	Forecast *models.ForecastPayload     `json:"forecast"`
	History  []models.MarketStatPayload  `json:"history"`
}

func (h *IntelligenceEchoHandler) TrendDetail(c echo.Context) error {
	start := time.Now()
	defer h.observe("trend_detail", start)

	req := &models.TrendDetailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := pkgcache.Key("trend", pkgcache.HashKey(req.Keyword), req.Days)
	if b, ok := h.cached(key); ok {
		return c.JSONBlob(200, b)
	}

	detail, err := h.intel.GetTrendDetail(c.Request().Context(), req.Keyword, req.Days)
	if err != nil {
		return h.usecaseError(c, "trend_detail", err)
	}

	res := trendDetailResponse{
		Keyword: detail.Keyword,
		Latest:  detail.Latest.Payload(),
	}
	if detail.Trend != nil {
		p := detail.Trend.Payload()
		res.Trend = &p
	}
	if detail.Anomaly != nil {
		p := detail.Anomaly.Payload()
		res.Anomaly = &p
	}
	if detail.Forecast != nil {
		p := detail.Forecast.Payload()
		res.Forecast = &p
	}
	history := detail.History
	if len(history) > 30 {
		history = history[len(history)-30:]
	}
	res.History = make([]models.MarketStatPayload, 0, len(history))
	for _, stat := range history {
		res.History = append(res.History, stat.Payload())
	}
	return h.respondCached(c, key, res, h.ttl.Trends)
}

// Keywords lists every keyword with recorded history, including ones no
// longer on the watchlist.
func (h *IntelligenceEchoHandler) Keywords(c echo.Context) error {
	keywords, err := h.intel.GetKeywords(c.Request().Context())
	if err != nil {
		return h.usecaseError(c, "keywords", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"keywords": keywords,
		"count":    len(keywords),
	})
}

func (h *IntelligenceEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	signals := h.feed.Recent(req.Limit)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"signals": signals,
		"count":   len(signals),
	})
}

func (h *IntelligenceEchoHandler) Pulse(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scan.Pulse())
}

func (h *IntelligenceEchoHandler) WatchlistEndpoint(c echo.Context) error {
	items := h.scan.Watchlist()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"watchlist": items,
		"count":     len(items),
	})
}

func (h *IntelligenceEchoHandler) Stats(c echo.Context) error {
	pulse := h.scan.Pulse()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"tracked_keywords": pulse.TotalItemsTracked,
		"scanned_nodes":    pulse.ScannedNodes,
		"system_status":    pulse.SystemStatus,
		"last_scan":        pulse.LastScan,
		"buffered_signals": h.feed.Len(),
	})
}

func (h *IntelligenceEchoHandler) ItemHistory(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	hist, err := h.intel.GetItemHistory(c.Request().Context(), req.Keyword, req.Days)
	if err != nil {
		return h.usecaseError(c, "item_history", err)
	}

	payload := make([]models.MarketStatPayload, 0, len(hist.History))
	for _, stat := range hist.History {
		payload = append(payload, stat.Payload())
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"keyword":     hist.Keyword,
		"period_days": hist.PeriodDays,
		"data_points": len(payload),
		"history":     payload,
	})
}

func (h *IntelligenceEchoHandler) MarketHistory(c echo.Context) error {
	req := &models.MarketHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	days, err := h.intel.GetMarketHistory(c.Request().Context(), req.Days)
	if err != nil {
		return h.usecaseError(c, "market_history", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"period_days": req.Days,
		"daily":       days,
	})
}

func (h *IntelligenceEchoHandler) Forecast(c echo.Context) error {
	start := time.Now()
	defer h.observe("forecast", start)

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":forecast", 5, 2) {
		return xhttp.TooManyRequestsResponse(c, "rate limited")
	}

	key := pkgcache.Key("forecast", pkgcache.HashKey(req.Keyword), req.Days, req.Confidence)
	if b, ok := h.cached(key); ok {
		return c.JSONBlob(200, b)
	}

	fc, err := h.intel.GetForecast(c.Request().Context(), req.Keyword, req.Days, req.Confidence)
	if err != nil {
		return h.usecaseError(c, "forecast", err)
	}
	return h.respondCached(c, key, fc.Payload(), h.ttl.Forecast)
}

func (h *IntelligenceEchoHandler) Anomalies(c echo.Context) error {
	start := time.Now()
	defer h.observe("anomalies", start)

	if b, ok := h.cached("anomalies"); ok {
		return c.JSONBlob(200, b)
	}

	anomalies, summary, err := h.intel.GetAnomalies(c.Request().Context())
	if err != nil {
		return h.usecaseError(c, "anomalies", err)
	}

	payload := make([]models.AnomalyPayload, 0, len(anomalies))
	for _, a := range anomalies {
		payload = append(payload, a.Payload())
	}
	return h.respondCached(c, "anomalies", map[string]interface{}{
		"anomalies": payload,
		"summary":   summary,
	}, h.ttl.Anomalies)
}

type opportunityPayload struct {
	Rank     int                       `json:"rank"`
	Keyword  string                    `json:"keyword"`
	Category string                    `json:"category,omitempty"`
	Score    models.MarketScorePayload `json:"score"`
}

func (h *IntelligenceEchoHandler) Opportunities(c echo.Context) error {
	start := time.Now()
	defer h.observe("opportunities", start)

	req := &models.OpportunitiesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := pkgcache.Key("opportunities", req.Limit)
	if b, ok := h.cached(key); ok {
		return c.JSONBlob(200, b)
	}

	opps, err := h.intel.GetOpportunities(c.Request().Context(), req.Limit)
	if err != nil {
		return h.usecaseError(c, "opportunities", err)
	}

	payload := make([]opportunityPayload, 0, len(opps))
	for i, o := range opps {
		payload = append(payload, opportunityPayload{
			Rank:     i + 1,
			Keyword:  o.Keyword,
			Category: o.Category,
			Score:    o.Score.Payload(),
		})
	}
	return h.respondCached(c, key, map[string]interface{}{
		"opportunities": payload,
		"count":         len(payload),
	}, h.ttl.Opportunities)
}

func (h *IntelligenceEchoHandler) Heatmap(c echo.Context) error {
	heat := h.scan.Heatmap()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"categories": heat,
		"count":      len(heat),
	})
}

func (h *IntelligenceEchoHandler) Intelligence(c echo.Context) error {
	start := time.Now()
	defer h.observe("intelligence", start)

	req := &models.IntelligenceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.intel.GetIntelligence(c.Request().Context(), req.Keyword, req.Days)
	if err != nil {
		return h.usecaseError(c, "intelligence", err)
	}
	return xhttp.SuccessResponse(c, res.Payload())
}

// usecaseError maps domain errors onto HTTP statuses.
func (h *IntelligenceEchoHandler) usecaseError(c echo.Context, endpoint string, err error) error {
	var notFound *usecase.ErrNotFound
	if errors.As(err, &notFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("No data found for '%s'", notFound.Keyword))
	}
	var insufficient *usecase.ErrInsufficientData
	if errors.As(err, &insufficient) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf(
			"Insufficient data for forecast. Need %d+ data points, have %d",
			insufficient.Need, insufficient.Have,
		))
	}

	metrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
	h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}

func (h *IntelligenceEchoHandler) observe(endpoint string, start time.Time) {
	metrics.AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *IntelligenceEchoHandler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.logger.Warn("cache read error", xlogger.String("key", key), xlogger.Error(err))
		return nil, false
	}
	return b, ok
}

// respondCached writes the standard envelope and stores the rendered body
// for later hits.
func (h *IntelligenceEchoHandler) respondCached(c echo.Context, key string, data interface{}, ttl time.Duration) error {
	body, err := json.Marshal(xhttp.APIResponse{Status: 200, Message: "OK", Data: data})
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil && ttl > 0 {
		if err := h.cache.SetBytes(key, body, ttl); err != nil {
			h.logger.Warn("cache write error", xlogger.String("key", key), xlogger.Error(err))
		}
	}
	return c.JSONBlob(200, body)
}
