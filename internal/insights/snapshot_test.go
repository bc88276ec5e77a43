package insights

import (
	"errors"
	"testing"
	"time"

	"github.com/lumenlytics/creator-insights/internal/models"
	"go.uber.org/zap"
)

func testInfluencer(id, name, category string, platform models.Platform) *models.Influencer {
	return &models.Influencer{
		ID:            id,
		Name:          name,
		Category:      category,
		FollowerCount: 10000,
		Platform:      platform,
	}
}

func TestBuildSnapshot_IndexesEntities(t *testing.T) {
	influencers := []*models.Influencer{
		testInfluencer("i1", "Ana", "fitness", models.PlatformInstagram),
		testInfluencer("i2", "Bo", "tech", models.PlatformYouTube),
	}
	posts := []*models.Post{
		{ID: "p1", InfluencerID: "i1", Platform: models.PlatformInstagram, PostDate: time.Now(), Reach: 1000, Likes: 50, Comments: 10},
		{ID: "p2", InfluencerID: "i1", Platform: models.PlatformInstagram, PostDate: time.Now(), Reach: 500, Likes: 20, Comments: 5},
	}
	tracking := []*models.TrackingRecord{
		{ID: "t1", InfluencerID: "i1", Orders: 3, Revenue: 300},
	}
	contracts := []*models.PayoutContract{
		{ID: "c1", InfluencerID: "i1", Basis: models.BasisPost, Rate: 100},
	}

	snap, err := BuildSnapshot(influencers, posts, tracking, contracts, zap.NewNop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := snap.Influencer("i1"); got == nil || got.Name != "Ana" {
		t.Errorf("Expected influencer i1 Ana, got %v", got)
	}
	if got := len(snap.PostsFor("i1")); got != 2 {
		t.Errorf("Expected 2 posts for i1, got %d", got)
	}
	if got := len(snap.PostsFor("i2")); got != 0 {
		t.Errorf("Expected 0 posts for i2, got %d", got)
	}
	if !snap.HasTracking("i1") || snap.HasTracking("i2") {
		t.Error("Tracking index wrong")
	}
	if !snap.HasContract("i1") || snap.HasContract("i2") {
		t.Error("Contract index wrong")
	}

	counts := snap.Counts()
	if counts.Influencers != 2 || counts.Posts != 2 || counts.Tracking != 1 || counts.Contracts != 1 {
		t.Errorf("Unexpected counts: %+v", counts)
	}
}

func TestBuildSnapshot_DanglingRefs_CollectedAndFatal(t *testing.T) {
	influencers := []*models.Influencer{
		testInfluencer("i1", "Ana", "fitness", models.PlatformInstagram),
	}
	posts := []*models.Post{
		{ID: "p1", InfluencerID: "ghost-1", Platform: models.PlatformInstagram, Reach: 100},
	}
	tracking := []*models.TrackingRecord{
		{ID: "t1", InfluencerID: "ghost-2", Orders: 1, Revenue: 10},
	}
	contracts := []*models.PayoutContract{
		{ID: "c1", InfluencerID: "ghost-3", Basis: models.BasisPost, Rate: 50},
	}

	_, err := BuildSnapshot(influencers, posts, tracking, contracts, zap.NewNop())
	if err == nil {
		t.Fatal("Expected error for dangling references")
	}
	var integrityErr *models.DataIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Expected DataIntegrityError, got %T", err)
	}
	// All dangling references are reported at once, not just the first.
	if len(integrityErr.Refs) != 3 {
		t.Errorf("Expected 3 dangling refs, got %d: %+v", len(integrityErr.Refs), integrityErr.Refs)
	}
}

func TestBuildSnapshot_InvalidBasis_FailsBuild(t *testing.T) {
	influencers := []*models.Influencer{
		testInfluencer("i1", "Ana", "fitness", models.PlatformInstagram),
	}
	contracts := []*models.PayoutContract{
		{ID: "c1", InfluencerID: "i1", Basis: "click", Rate: 50},
	}

	_, err := BuildSnapshot(influencers, nil, nil, contracts, zap.NewNop())
	if err == nil {
		t.Fatal("Expected error for unknown basis")
	}
	var basisErr *models.InvalidBasisError
	if !errors.As(err, &basisErr) {
		t.Fatalf("Expected InvalidBasisError, got %T", err)
	}
}

func TestBuildSnapshot_DerivesPayouts(t *testing.T) {
	influencers := []*models.Influencer{
		testInfluencer("i1", "Ana", "fitness", models.PlatformInstagram),
		testInfluencer("i2", "Bo", "tech", models.PlatformYouTube),
	}
	posts := []*models.Post{
		{ID: "p1", InfluencerID: "i1", Platform: models.PlatformInstagram, Reach: 100},
		{ID: "p2", InfluencerID: "i1", Platform: models.PlatformInstagram, Reach: 200},
		{ID: "p3", InfluencerID: "i1", Platform: models.PlatformInstagram, Reach: 300},
	}
	contracts := []*models.PayoutContract{
		// basis=post: 250 * 3 posts = 750, stored figure ignored
		{ID: "c1", InfluencerID: "i1", Basis: models.BasisPost, Rate: 250, TotalPayout: 999},
		// basis=order: 100 * 10 orders = 1000
		{ID: "c2", InfluencerID: "i2", Basis: models.BasisOrder, Rate: 100, Orders: 10},
	}

	snap, err := BuildSnapshot(influencers, posts, nil, contracts, zap.NewNop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := snap.TotalPayoutFor("i1"); got != 750 {
		t.Errorf("Expected derived payout 750 for i1, got %v", got)
	}
	if got := snap.TotalPayoutFor("i2"); got != 1000 {
		t.Errorf("Expected derived payout 1000 for i2, got %v", got)
	}
	if got := snap.TotalPayoutFor("unknown"); got != 0 {
		t.Errorf("Expected 0 payout for unknown influencer, got %v", got)
	}
}

func TestBuildSnapshot_MultipleContractsSum(t *testing.T) {
	influencers := []*models.Influencer{
		testInfluencer("i1", "Ana", "fitness", models.PlatformInstagram),
	}
	contracts := []*models.PayoutContract{
		{ID: "c1", InfluencerID: "i1", Basis: models.BasisOrder, Rate: 100, Orders: 5},
		{ID: "c2", InfluencerID: "i1", Basis: models.BasisOrder, Rate: 50, Orders: 2},
	}

	snap, err := BuildSnapshot(influencers, nil, nil, contracts, zap.NewNop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := snap.TotalPayoutFor("i1"); got != 600 {
		t.Errorf("Expected summed payout 600, got %v", got)
	}
}
