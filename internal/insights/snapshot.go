package insights

import (
	"math"
	"time"

	"github.com/lumenlytics/creator-insights/internal/models"
	"go.uber.org/zap"
)

// Snapshot is an immutable joined view of the four entity sets for one
// reporting session. It is built once, validated, and passed explicitly to
// the query layer; concurrent reads need no locking.
type Snapshot struct {
	Version int64     `json:"version"`
	BuiltAt time.Time `json:"built_at"`

	Influencers []*models.Influencer     `json:"-"`
	Posts       []*models.Post           `json:"-"`
	Tracking    []*models.TrackingRecord `json:"-"`
	Contracts   []*models.PayoutContract `json:"-"`

	influencerByID       map[string]*models.Influencer
	postsByInfluencer    map[string][]*models.Post
	trackingByInfluencer map[string][]*models.TrackingRecord
	payoutByInfluencer   map[string]float64
	hasContract          map[string]bool
}

// SnapshotCounts summarizes snapshot contents for the /snapshot endpoint.
type SnapshotCounts struct {
	Version     int64     `json:"version"`
	BuiltAt     time.Time `json:"built_at"`
	Influencers int       `json:"influencers"`
	Posts       int       `json:"posts"`
	Tracking    int       `json:"tracking_records"`
	Contracts   int       `json:"payout_contracts"`
}

// BuildSnapshot indexes and validates the four entity sets. Any child row
// referencing an unknown influencer fails the build with a DataIntegrityError
// listing every dangling reference; an unrecognized payout basis fails with
// an InvalidBasisError. Total payouts are derived here — a stored figure that
// disagrees with the derivation is logged and overridden.
func BuildSnapshot(
	influencers []*models.Influencer,
	posts []*models.Post,
	tracking []*models.TrackingRecord,
	contracts []*models.PayoutContract,
	logger *zap.Logger,
) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Snapshot{
		BuiltAt:              time.Now(),
		Influencers:          influencers,
		Posts:                posts,
		Tracking:             tracking,
		Contracts:            contracts,
		influencerByID:       make(map[string]*models.Influencer, len(influencers)),
		postsByInfluencer:    make(map[string][]*models.Post),
		trackingByInfluencer: make(map[string][]*models.TrackingRecord),
		payoutByInfluencer:   make(map[string]float64),
		hasContract:          make(map[string]bool),
	}

	for _, i := range influencers {
		s.influencerByID[i.ID] = i
	}

	var dangling []models.DanglingRef
	for _, p := range posts {
		if _, ok := s.influencerByID[p.InfluencerID]; !ok {
			dangling = append(dangling, models.DanglingRef{Entity: "post", ID: p.ID, InfluencerID: p.InfluencerID})
			continue
		}
		s.postsByInfluencer[p.InfluencerID] = append(s.postsByInfluencer[p.InfluencerID], p)
	}
	for _, t := range tracking {
		if _, ok := s.influencerByID[t.InfluencerID]; !ok {
			dangling = append(dangling, models.DanglingRef{Entity: "tracking_record", ID: t.ID, InfluencerID: t.InfluencerID})
			continue
		}
		s.trackingByInfluencer[t.InfluencerID] = append(s.trackingByInfluencer[t.InfluencerID], t)
	}
	for _, c := range contracts {
		if _, ok := s.influencerByID[c.InfluencerID]; !ok {
			dangling = append(dangling, models.DanglingRef{Entity: "payout_contract", ID: c.ID, InfluencerID: c.InfluencerID})
		}
	}
	if len(dangling) > 0 {
		return nil, &models.DataIntegrityError{Refs: dangling}
	}

	for _, c := range contracts {
		postCount := int64(len(s.postsByInfluencer[c.InfluencerID]))
		derived, err := ContractPayout(c, postCount)
		if err != nil {
			return nil, err
		}
		if c.TotalPayout != 0 && math.Abs(c.TotalPayout-derived) > 1e-9 {
			logger.Warn("stored total_payout disagrees with derivation, using derived value",
				zap.String("contract_id", c.ID),
				zap.String("influencer_id", c.InfluencerID),
				zap.Float64("stored", c.TotalPayout),
				zap.Float64("derived", derived),
			)
		}
		s.payoutByInfluencer[c.InfluencerID] += derived
		s.hasContract[c.InfluencerID] = true
	}

	return s, nil
}

// Influencer returns the influencer for an ID, or nil.
func (s *Snapshot) Influencer(id string) *models.Influencer {
	return s.influencerByID[id]
}

// PostsFor returns the posts attributed to an influencer.
func (s *Snapshot) PostsFor(influencerID string) []*models.Post {
	return s.postsByInfluencer[influencerID]
}

// TrackingFor returns the tracking records attributed to an influencer.
func (s *Snapshot) TrackingFor(influencerID string) []*models.TrackingRecord {
	return s.trackingByInfluencer[influencerID]
}

// TotalPayoutFor returns the derived payout sum for an influencer; zero when
// the influencer has no contracts.
func (s *Snapshot) TotalPayoutFor(influencerID string) float64 {
	return s.payoutByInfluencer[influencerID]
}

// HasContract reports whether an influencer has at least one payout contract.
func (s *Snapshot) HasContract(influencerID string) bool {
	return s.hasContract[influencerID]
}

// HasTracking reports whether an influencer has at least one tracking record.
func (s *Snapshot) HasTracking(influencerID string) bool {
	return len(s.trackingByInfluencer[influencerID]) > 0
}

// Counts returns entity counts for inspection endpoints.
func (s *Snapshot) Counts() SnapshotCounts {
	return SnapshotCounts{
		Version:     s.Version,
		BuiltAt:     s.BuiltAt,
		Influencers: len(s.Influencers),
		Posts:       len(s.Posts),
		Tracking:    len(s.Tracking),
		Contracts:   len(s.Contracts),
	}
}
