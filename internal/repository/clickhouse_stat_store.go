package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"omniscient/internal/domain/models"
	domrepo "omniscient/internal/domain/repository"
	pkgch "omniscient/pkg/clickhouse"
	applogger "omniscient/pkg/logger"
)

const statsTable = "omniscient.market_stats"

// SchemaStatements are the idempotent DDL statements the store needs.
var SchemaStatements = []string{
	"CREATE DATABASE IF NOT EXISTS omniscient",
	`CREATE TABLE IF NOT EXISTS omniscient.market_stats (
        keyword LowCardinality(String),
        category LowCardinality(String),
        platform LowCardinality(String),
        sell_through_rate Float64,
        volume_sold UInt32,
        active_listings UInt32,
        avg_price Nullable(Float64),
        momentum_7d Nullable(Float64),
        moving_avg_7d Nullable(Float64),
        opportunity_score Nullable(Float64),
        trend_direction LowCardinality(String),
        market_status LowCardinality(String),
        recorded_at DateTime
    ) ENGINE = MergeTree ORDER BY (keyword, recorded_at)`,
}

// CHStatStore implements StatStore backed by ClickHouse.
type CHStatStore struct {
	db *sql.DB
	ch *pkgch.Client
	l  *applogger.Logger
}

func NewCHStatStore(ch *pkgch.Client) *CHStatStore {
	return &CHStatStore{db: ch.DB(), ch: ch}
}

// SetLogger injects a structured logger.
func (s *CHStatStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHStatStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, SchemaStatements)
}

const insertColumns = "keyword, category, platform, sell_through_rate, volume_sold, active_listings, avg_price, momentum_7d, moving_avg_7d, opportunity_score, trend_direction, market_status, recorded_at"

func statArgs(st *models.MarketStat) []interface{} {
	return []interface{}{
		st.Keyword,
		st.Category,
		st.Platform,
		st.SellThroughRate,
		uint32(st.VolumeSold),
		uint32(st.ActiveListings),
		st.AvgPrice,
		st.Momentum7,
		st.MovingAvg7,
		st.OpportunityScore,
		string(st.TrendDirection),
		st.MarketStatus,
		st.RecordedAt,
	}
}

func (s *CHStatStore) Store(ctx context.Context, st *models.MarketStat) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", statsTable, insertColumns)
	if _, err := s.db.ExecContext(ctx, q, statArgs(st)...); err != nil {
		return fmt.Errorf("store stat: %w", err)
	}
	return nil
}

func (s *CHStatStore) StoreBatch(ctx context.Context, stats []*models.MarketStat) error {
	if len(stats) == 0 {
		return nil
	}

	// Multi-row VALUES insert to reduce round-trips.
	const chunkSize = 1000
	for start := 0; start < len(stats); start += chunkSize {
		end := start + chunkSize
		if end > len(stats) {
			end = len(stats)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, st := range stats[start:end] {
			if st == nil || st.Keyword == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, statArgs(st)...)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", statsTable, insertColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store stat batch: %w", err)
		}
	}
	return nil
}

func (s *CHStatStore) History(ctx context.Context, keyword string, days int) ([]models.MarketStat, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE keyword = ? AND recorded_at >= now() - INTERVAL ? DAY
        ORDER BY recorded_at ASC
    `, insertColumns, statsTable)

	rows, err := s.db.QueryContext(ctx, q, keyword, days)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error",
				applogger.String("keyword", keyword),
				applogger.Int("days", days),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	out := make([]models.MarketStat, 0, days)
	for rows.Next() {
		st, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse history ok",
			applogger.String("keyword", keyword),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHStatStore) Rates(ctx context.Context, keyword string, days int) ([]float64, error) {
	q := fmt.Sprintf(`
        SELECT sell_through_rate
        FROM %s
        WHERE keyword = ? AND recorded_at >= now() - INTERVAL ? DAY
        ORDER BY recorded_at ASC
    `, statsTable)

	rows, err := s.db.QueryContext(ctx, q, keyword, days)
	if err != nil {
		return nil, fmt.Errorf("get rates: %w", err)
	}
	defer rows.Close()

	out := make([]float64, 0, days)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStatStore) Latest(ctx context.Context, keyword string) (*models.MarketStat, error) {
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE keyword = ?
        ORDER BY recorded_at DESC
        LIMIT 1
    `, insertColumns, statsTable)

	rows, err := s.db.QueryContext(ctx, q, keyword)
	if err != nil {
		return nil, fmt.Errorf("get latest: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		return nil, nil
	}
	st, err := scanStat(rows)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *CHStatStore) Keywords(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT keyword FROM %s ORDER BY keyword ASC", statsTable)

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get keywords: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		out = append(out, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStatStore) MarketDaily(ctx context.Context, days int) ([]models.DailyAggregate, error) {
	q := fmt.Sprintf(`
        SELECT toDate(recorded_at) AS day,
               avg(sell_through_rate) AS avg_str,
               toInt64(sum(volume_sold)) AS total_volume,
               toInt64(count()) AS items_tracked
        FROM %s
        WHERE recorded_at >= now() - INTERVAL ? DAY
        GROUP BY day
        ORDER BY day ASC
    `, statsTable)

	rows, err := s.db.QueryContext(ctx, q, days)
	if err != nil {
		return nil, fmt.Errorf("get market daily: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyAggregate, 0, days)
	for rows.Next() {
		var (
			day    time.Time
			agg    models.DailyAggregate
			volume int64
			items  int64
		)
		if err := rows.Scan(&day, &agg.AvgSTR, &volume, &items); err != nil {
			return nil, fmt.Errorf("scan daily aggregate: %w", err)
		}
		agg.Date = day.Format("2006-01-02")
		agg.TotalVolume = int(volume)
		agg.ItemsTracked = int(items)
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStatStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHStatStore) Close() error {
	return s.ch.Close()
}

func scanStat(rows *sql.Rows) (models.MarketStat, error) {
	var (
		st        models.MarketStat
		volume    uint32
		listings  uint32
		direction string
	)
	if err := rows.Scan(
		&st.Keyword,
		&st.Category,
		&st.Platform,
		&st.SellThroughRate,
		&volume,
		&listings,
		&st.AvgPrice,
		&st.Momentum7,
		&st.MovingAvg7,
		&st.OpportunityScore,
		&direction,
		&st.MarketStatus,
		&st.RecordedAt,
	); err != nil {
		return models.MarketStat{}, fmt.Errorf("scan stat: %w", err)
	}
	st.VolumeSold = int(volume)
	st.ActiveListings = int(listings)
	st.TrendDirection = models.TrendDirection(direction)
	return st, nil
}

var _ domrepo.StatStore = (*CHStatStore)(nil)
