package probe

import (
	"context"
	"fmt"
	"time"

	"omniscient/internal/domain/models"
	drepo "omniscient/internal/domain/repository"
	"omniscient/internal/service/ratelimit"
	pkghttp "omniscient/pkg/http"
	applogger "omniscient/pkg/logger"
)

// marketSummary is the wire shape returned by the market data service.
type marketSummary struct {
	Keyword      string   `json:"keyword"`
	ActiveSupply int      `json:"active_supply"`
	SoldDemand   int      `json:"sold_demand"`
	AvgPrice     *float64 `json:"avg_price"`
	PriceMin     *float64 `json:"price_min"`
	PriceMax     *float64 `json:"price_max"`
}

// Upstream request pacing. A sweep bursts one request per watchlist item;
// anything beyond the bucket is served synthetically instead of hammering
// the market data service.
const (
	probeBurst     = 30.0
	probeRefillSec = 10.0
)

// HTTPProbe fetches market snapshots from an external market data service.
// Any failure falls back to the synthetic generator so a scan never stalls
// on a flaky upstream.
type HTTPProbe struct {
	client   *pkghttp.Client
	baseURL  string
	fallback *Synthetic
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewHTTPProbe(baseURL string, timeout time.Duration, l *applogger.Logger) *HTTPProbe {
	return &HTTPProbe{
		client:   pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		baseURL:  baseURL,
		fallback: NewSynthetic(),
		rl:       ratelimit.New(),
		l:        l,
	}
}

func (p *HTTPProbe) Observe(ctx context.Context, item models.WatchlistItem) (*models.MarketSnapshot, error) {
	if !p.rl.Allow("upstream", probeBurst, probeRefillSec) {
		if p.l != nil {
			p.l.Debug("probe budget exhausted, serving synthetic snapshot",
				applogger.String("keyword", item.Keyword),
			)
		}
		return p.fallback.Observe(ctx, item)
	}

	var summary marketSummary
	err := p.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/v1/markets/summary", p.baseURL),
		QueryParams: map[string][]string{
			"q":        {item.Keyword},
			"category": {item.Category},
			"platform": {item.Platform},
		},
	}, &summary)
	if err != nil {
		if p.l != nil {
			p.l.Warn("market probe fell back to synthetic data",
				applogger.String("keyword", item.Keyword),
				applogger.Error(err),
			)
		}
		return p.fallback.Observe(ctx, item)
	}

	if summary.ActiveSupply == 0 && summary.SoldDemand == 0 {
		return p.fallback.Observe(ctx, item)
	}

	str := 0.0
	if summary.ActiveSupply > 0 {
		str = float64(summary.SoldDemand) / float64(summary.ActiveSupply) * 100
	}

	return &models.MarketSnapshot{
		Keyword:         item.Keyword,
		SellThroughRate: str,
		SoldDemand:      summary.SoldDemand,
		ActiveSupply:    summary.ActiveSupply,
		AvgPrice:        summary.AvgPrice,
		PriceMin:        summary.PriceMin,
		PriceMax:        summary.PriceMax,
		MarketStatus:    StatusFor(str),
		ObservedAt:      time.Now().UTC(),
	}, nil
}

var _ drepo.MarketProbe = (*HTTPProbe)(nil)
