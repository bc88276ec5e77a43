package insights

import (
	"context"

	"github.com/google/uuid"
	"github.com/lumenlytics/creator-insights/internal/metrics"
	"github.com/lumenlytics/creator-insights/internal/models"
	"github.com/lumenlytics/creator-insights/internal/storage"
	"go.uber.org/zap"
)

// IngestService validates and writes entities through the store. Child
// entities get server-generated IDs when none is provided; influencer IDs are
// the natural key and must be supplied by the caller.
type IngestService struct {
	store   *storage.Store
	sink    *storage.ClickHouseTrackingSink
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewIngestService creates an ingest service. sink may be nil.
func NewIngestService(store *storage.Store, sink *storage.ClickHouseTrackingSink, logger *zap.Logger, m *metrics.Metrics) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		store:   store,
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// AddInfluencer validates and upserts an influencer.
func (s *IngestService) AddInfluencer(i *models.Influencer) error {
	if err := i.Validate(); err != nil {
		return err
	}
	if err := s.store.Influencers.UpsertInfluencer(i); err != nil {
		return err
	}
	s.metrics.RecordIngest("influencer")
	return nil
}

// AddPost validates and upserts a post, assigning an ID when absent.
func (s *IngestService) AddPost(p *models.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := s.store.Posts.UpsertPost(p); err != nil {
		return err
	}
	s.metrics.RecordIngest("post")
	return nil
}

// AddTrackingRecord validates and upserts a tracking record, mirroring it to
// the warehouse sink when one is configured. Sink failures are logged and do
// not fail the ingest: the entity repo stays the source of truth.
func (s *IngestService) AddTrackingRecord(ctx context.Context, t *models.TrackingRecord) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if err := s.store.Tracking.UpsertTrackingRecord(t); err != nil {
		return err
	}
	s.metrics.RecordIngest("tracking_record")

	if s.sink != nil {
		if err := s.sink.AppendRecords(ctx, []*models.TrackingRecord{t}); err != nil {
			s.logger.Warn("failed to mirror tracking record to warehouse",
				zap.String("record_id", t.ID),
				zap.Error(err),
			)
		} else {
			s.metrics.RecordWarehouseEvents(1)
		}
	}
	return nil
}

// AddPayoutContract validates and upserts a payout contract, assigning an ID
// when absent.
func (s *IngestService) AddPayoutContract(c *models.PayoutContract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := s.store.Payouts.UpsertPayoutContract(c); err != nil {
		return err
	}
	s.metrics.RecordIngest("payout_contract")
	return nil
}
