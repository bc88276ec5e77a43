package storage

import "github.com/lumenlytics/creator-insights/internal/models"

// InfluencerRepo defines operations for influencers.
type InfluencerRepo interface {
	GetInfluencer(id string) (*models.Influencer, error)
	ListInfluencers() ([]*models.Influencer, error)
	UpsertInfluencer(i *models.Influencer) error
}

// PostRepo defines operations for posts.
type PostRepo interface {
	GetPost(id string) (*models.Post, error)
	ListPosts() ([]*models.Post, error)
	ListPostsByInfluencer(influencerID string) ([]*models.Post, error)
	UpsertPost(p *models.Post) error
}

// TrackingRepo defines operations for attributed conversion records.
type TrackingRepo interface {
	GetTrackingRecord(id string) (*models.TrackingRecord, error)
	ListTrackingRecords() ([]*models.TrackingRecord, error)
	ListTrackingByInfluencer(influencerID string) ([]*models.TrackingRecord, error)
	UpsertTrackingRecord(t *models.TrackingRecord) error
}

// PayoutRepo defines operations for payout contracts.
type PayoutRepo interface {
	GetPayoutContract(id string) (*models.PayoutContract, error)
	ListPayoutContracts() ([]*models.PayoutContract, error)
	UpsertPayoutContract(c *models.PayoutContract) error
}

// Store bundles the four entity repositories behind one handle.
type Store struct {
	Influencers InfluencerRepo
	Posts       PostRepo
	Tracking    TrackingRepo
	Payouts     PayoutRepo
}

// NewInMemoryStore returns a Store backed entirely by in-memory repositories.
func NewInMemoryStore() *Store {
	return &Store{
		Influencers: NewInMemoryInfluencerRepo(),
		Posts:       NewInMemoryPostRepo(),
		Tracking:    NewInMemoryTrackingRepo(),
		Payouts:     NewInMemoryPayoutRepo(),
	}
}
