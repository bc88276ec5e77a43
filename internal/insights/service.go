package insights

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lumenlytics/creator-insights/internal/metrics"
	"github.com/lumenlytics/creator-insights/internal/storage"
	"go.uber.org/zap"
)

// SnapshotService owns the snapshot lifecycle: it loads the four entity sets
// from the store, validates them, and swaps the served snapshot atomically.
// Entities written through the repos become visible to queries only at the
// next rebuild.
type SnapshotService struct {
	store   *storage.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	current atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewSnapshotService creates a snapshot service over a store.
func NewSnapshotService(store *storage.Store, logger *zap.Logger, m *metrics.Metrics) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// Current returns the served snapshot, or nil before the first rebuild.
func (s *SnapshotService) Current() *Snapshot {
	return s.current.Load()
}

// Rebuild loads all entities, validates referential integrity and payout
// bases, and atomically swaps the served snapshot. On failure the previous
// snapshot stays in place.
func (s *SnapshotService) Rebuild(ctx context.Context) (*Snapshot, error) {
	influencers, err := s.store.Influencers.ListInfluencers()
	if err != nil {
		s.metrics.RecordSnapshotFailure("load")
		return nil, fmt.Errorf("failed to load influencers: %w", err)
	}
	posts, err := s.store.Posts.ListPosts()
	if err != nil {
		s.metrics.RecordSnapshotFailure("load")
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	tracking, err := s.store.Tracking.ListTrackingRecords()
	if err != nil {
		s.metrics.RecordSnapshotFailure("load")
		return nil, fmt.Errorf("failed to load tracking records: %w", err)
	}
	contracts, err := s.store.Payouts.ListPayoutContracts()
	if err != nil {
		s.metrics.RecordSnapshotFailure("load")
		return nil, fmt.Errorf("failed to load payout contracts: %w", err)
	}

	snap, err := BuildSnapshot(influencers, posts, tracking, contracts, s.logger)
	if err != nil {
		s.metrics.RecordSnapshotFailure("validate")
		return nil, err
	}

	snap.Version = s.version.Add(1)
	s.current.Store(snap)

	s.logger.Info("snapshot rebuilt",
		zap.Int64("version", snap.Version),
		zap.Int("influencers", len(influencers)),
		zap.Int("posts", len(posts)),
		zap.Int("tracking_records", len(tracking)),
		zap.Int("payout_contracts", len(contracts)),
	)
	s.metrics.RecordSnapshot(snap.Version, len(influencers), len(posts), len(tracking), len(contracts))

	return snap, nil
}
