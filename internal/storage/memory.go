package storage

import (
	"sync"

	"github.com/lumenlytics/creator-insights/internal/models"
)

// In-memory implementations. Writes copy the value so callers cannot mutate
// stored entities after the fact.

// InMemoryInfluencerRepo stores influencers in memory.
type InMemoryInfluencerRepo struct {
	mu          sync.RWMutex
	influencers map[string]*models.Influencer
}

func NewInMemoryInfluencerRepo() *InMemoryInfluencerRepo {
	return &InMemoryInfluencerRepo{
		influencers: make(map[string]*models.Influencer),
	}
}

func (r *InMemoryInfluencerRepo) GetInfluencer(id string) (*models.Influencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.influencers[id]; ok {
		return i, nil
	}
	return nil, nil
}

func (r *InMemoryInfluencerRepo) ListInfluencers() ([]*models.Influencer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Influencer, 0, len(r.influencers))
	for _, i := range r.influencers {
		res = append(res, i)
	}
	return res, nil
}

func (r *InMemoryInfluencerRepo) UpsertInfluencer(i *models.Influencer) error {
	if i == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.influencers[i.ID] = &cp
	return nil
}

// InMemoryPostRepo stores posts in memory.
type InMemoryPostRepo struct {
	mu    sync.RWMutex
	posts map[string]*models.Post

	// influencer_id -> []post_id
	byInfluencer map[string][]string
}

func NewInMemoryPostRepo() *InMemoryPostRepo {
	return &InMemoryPostRepo{
		posts:        make(map[string]*models.Post),
		byInfluencer: make(map[string][]string),
	}
}

func (r *InMemoryPostRepo) GetPost(id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.posts[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (r *InMemoryPostRepo) ListPosts() ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		res = append(res, p)
	}
	return res, nil
}

func (r *InMemoryPostRepo) ListPostsByInfluencer(influencerID string) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byInfluencer[influencerID]
	res := make([]*models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.posts[id]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *InMemoryPostRepo) UpsertPost(p *models.Post) error {
	if p == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.posts[p.ID]; ok && prev.InfluencerID != p.InfluencerID {
		r.byInfluencer[prev.InfluencerID] = removeID(r.byInfluencer[prev.InfluencerID], p.ID)
		r.byInfluencer[p.InfluencerID] = append(r.byInfluencer[p.InfluencerID], p.ID)
	} else if !ok {
		r.byInfluencer[p.InfluencerID] = append(r.byInfluencer[p.InfluencerID], p.ID)
	}
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

// InMemoryTrackingRepo stores tracking records in memory.
type InMemoryTrackingRepo struct {
	mu      sync.RWMutex
	records map[string]*models.TrackingRecord

	byInfluencer map[string][]string
}

func NewInMemoryTrackingRepo() *InMemoryTrackingRepo {
	return &InMemoryTrackingRepo{
		records:      make(map[string]*models.TrackingRecord),
		byInfluencer: make(map[string][]string),
	}
}

func (r *InMemoryTrackingRepo) GetTrackingRecord(id string) (*models.TrackingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.records[id]; ok {
		return t, nil
	}
	return nil, nil
}

func (r *InMemoryTrackingRepo) ListTrackingRecords() ([]*models.TrackingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.TrackingRecord, 0, len(r.records))
	for _, t := range r.records {
		res = append(res, t)
	}
	return res, nil
}

func (r *InMemoryTrackingRepo) ListTrackingByInfluencer(influencerID string) ([]*models.TrackingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byInfluencer[influencerID]
	res := make([]*models.TrackingRecord, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.records[id]; ok {
			res = append(res, t)
		}
	}
	return res, nil
}

func (r *InMemoryTrackingRepo) UpsertTrackingRecord(t *models.TrackingRecord) error {
	if t == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.records[t.ID]; ok && prev.InfluencerID != t.InfluencerID {
		r.byInfluencer[prev.InfluencerID] = removeID(r.byInfluencer[prev.InfluencerID], t.ID)
		r.byInfluencer[t.InfluencerID] = append(r.byInfluencer[t.InfluencerID], t.ID)
	} else if !ok {
		r.byInfluencer[t.InfluencerID] = append(r.byInfluencer[t.InfluencerID], t.ID)
	}
	cp := *t
	r.records[t.ID] = &cp
	return nil
}

// InMemoryPayoutRepo stores payout contracts in memory.
type InMemoryPayoutRepo struct {
	mu        sync.RWMutex
	contracts map[string]*models.PayoutContract
}

func NewInMemoryPayoutRepo() *InMemoryPayoutRepo {
	return &InMemoryPayoutRepo{
		contracts: make(map[string]*models.PayoutContract),
	}
}

func (r *InMemoryPayoutRepo) GetPayoutContract(id string) (*models.PayoutContract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.contracts[id]; ok {
		return c, nil
	}
	return nil, nil
}

func (r *InMemoryPayoutRepo) ListPayoutContracts() ([]*models.PayoutContract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.PayoutContract, 0, len(r.contracts))
	for _, c := range r.contracts {
		res = append(res, c)
	}
	return res, nil
}

func (r *InMemoryPayoutRepo) UpsertPayoutContract(c *models.PayoutContract) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.contracts[c.ID] = &cp
	return nil
}

func removeID(ids []string, id string) []string {
	res := ids[:0]
	for _, v := range ids {
		if v != id {
			res = append(res, v)
		}
	}
	return res
}
