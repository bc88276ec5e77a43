package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/lumenlytics/creator-insights/internal/models"
)

// InfluencerTotals is a warehouse rollup of attributed volume per influencer.
type InfluencerTotals struct {
	InfluencerID string  `json:"influencer_id"`
	Orders       int64   `json:"orders"`
	Revenue      float64 `json:"revenue"`
	Events       uint64  `json:"events"`
}

// ClickHouseTrackingSink mirrors ingested tracking records into an append-only
// ClickHouse table for warehouse-scale analytics. It is a sink, not a source
// of truth: the entity repos remain authoritative for snapshots.
type ClickHouseTrackingSink struct {
	conn driver.Conn
}

func NewClickHouseTrackingSink(conn driver.Conn) *ClickHouseTrackingSink {
	return &ClickHouseTrackingSink{conn: conn}
}

// EnsureTable creates the tracking_events table if it does not exist.
func (s *ClickHouseTrackingSink) EnsureTable(ctx context.Context) error {
	err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tracking_events (
			id            String,
			source        String,
			campaign      String,
			influencer_id String,
			user_id       String,
			product       String,
			order_date    DateTime,
			orders        Int64,
			revenue       Float64
		) ENGINE = MergeTree()
		ORDER BY (influencer_id, order_date)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tracking_events table: %w", err)
	}
	return nil
}

// AppendRecords batch-inserts tracking records.
func (s *ClickHouseTrackingSink) AppendRecords(ctx context.Context, records []*models.TrackingRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO tracking_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, t := range records {
		if err := batch.Append(
			t.ID,
			t.Source,
			t.Campaign,
			t.InfluencerID,
			t.UserID,
			t.Product,
			t.OrderDate,
			t.Orders,
			t.Revenue,
		); err != nil {
			return fmt.Errorf("failed to append tracking event: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

// TotalsByInfluencer returns per-influencer order/revenue totals from the
// warehouse table.
func (s *ClickHouseTrackingSink) TotalsByInfluencer(ctx context.Context) ([]InfluencerTotals, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT influencer_id, sum(orders), sum(revenue), count()
		FROM tracking_events
		GROUP BY influencer_id
		ORDER BY sum(revenue) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking totals: %w", err)
	}
	defer rows.Close()

	var totals []InfluencerTotals
	for rows.Next() {
		var t InfluencerTotals
		if err := rows.Scan(&t.InfluencerID, &t.Orders, &t.Revenue, &t.Events); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, nil
}
