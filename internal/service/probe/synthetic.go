package probe

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"omniscient/internal/domain/models"
	drepo "omniscient/internal/domain/repository"
	"omniscient/pkg/util"
)

// Market status thresholds on the sell-through rate.
const (
	statusOnFire = 100.0
	statusHot    = 70.0
	statusWarm   = 40.0
)

// StatusFor grades a sell-through rate.
func StatusFor(str float64) string {
	switch {
	case str >= statusOnFire:
		return "ON_FIRE"
	case str >= statusHot:
		return "HOT"
	case str >= statusWarm:
		return "WARM"
	default:
		return "COLD"
	}
}

// Synthetic generates plausible market snapshots without touching any
// marketplace. Each keyword gets a stable base profile from its hash, and
// the observation drifts day over day with weekly seasonality, noise, and
// occasional demand spikes, so the downstream analytics see realistic
// series. All output is flagged IsEstimated.
type Synthetic struct {
	now func() time.Time
}

func NewSynthetic() *Synthetic {
	return &Synthetic{now: time.Now}
}

func (s *Synthetic) Observe(ctx context.Context, item models.WatchlistItem) (*models.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := keywordSeed(item.Keyword)
	base := rand.New(rand.NewSource(seed))

	baseActive := 200 + base.Intn(2801)
	baseSold := 50 + base.Intn(1951)
	avgPrice := 20 + base.Float64()*480
	slope := (base.Float64() - 0.5) * 0.8 // % per day, keyword-stable

	now := s.now().UTC()
	day := now.Unix() / 86400
	daily := rand.New(rand.NewSource(seed*31 + day))

	seasonal := 1 + 0.1*math.Sin(2*math.Pi*float64(day%7)/7)
	noise := 1 + (daily.Float64()-0.5)*0.2
	if daily.Float64() < 0.05 {
		noise *= 1.5 + daily.Float64()
	}
	drift := 1 + slope*float64(day%90)/100

	sold := int(float64(baseSold) * seasonal * noise * drift)
	if sold < 0 {
		sold = 0
	}
	active := int(float64(baseActive) * (1 + (daily.Float64()-0.5)*0.1))
	if active < 1 {
		active = 1
	}

	str := float64(sold) / float64(active) * 100
	price := avgPrice * (1 + (daily.Float64()-0.5)*0.06)

	return &models.MarketSnapshot{
		Keyword:         item.Keyword,
		SellThroughRate: str,
		SoldDemand:      sold,
		ActiveSupply:    active,
		AvgPrice:        util.Float64Ptr(price),
		PriceMin:        util.Float64Ptr(price * 0.7),
		PriceMax:        util.Float64Ptr(price * 1.6),
		MarketStatus:    StatusFor(str),
		IsEstimated:     true,
		ObservedAt:      now,
	}, nil
}

func keywordSeed(keyword string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(keyword))
	return int64(h.Sum64() & math.MaxInt64)
}

var _ drepo.MarketProbe = (*Synthetic)(nil)
