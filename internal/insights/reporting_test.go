package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumenlytics/creator-insights/internal/models"
	"go.uber.org/zap"
)

type staticProvider struct {
	snap *Snapshot
}

func (p *staticProvider) Current() *Snapshot {
	return p.snap
}

// setupReporting builds a reporting service over a small fixed dataset.
//
//	i1 Ana   fitness instagram: posts 1000/50/10 and 0/5/2, revenue 5000, payout 1000 (order basis)
//	i2 Bo    tech    youtube:   post 2000/100/0, revenue 800, payout 200 (post basis)
//	i3 Cy    fitness instagram: tracking only, no contract
//	i4 Didi  beauty  twitter:   no child data at all
func setupReporting(t *testing.T) *ReportingService {
	t.Helper()

	influencers := []*models.Influencer{
		testInfluencer("i1", "Ana", "fitness", models.PlatformInstagram),
		testInfluencer("i2", "Bo", "tech", models.PlatformYouTube),
		testInfluencer("i3", "Cy", "fitness", models.PlatformInstagram),
		testInfluencer("i4", "Didi", "beauty", models.PlatformTwitter),
	}
	posts := []*models.Post{
		{ID: "p1", InfluencerID: "i1", Platform: models.PlatformInstagram, PostDate: time.Now(), Reach: 1000, Likes: 50, Comments: 10},
		{ID: "p2", InfluencerID: "i1", Platform: models.PlatformInstagram, PostDate: time.Now(), Reach: 0, Likes: 5, Comments: 2},
		{ID: "p3", InfluencerID: "i2", Platform: models.PlatformYouTube, PostDate: time.Now(), Reach: 2000, Likes: 100, Comments: 0},
	}
	tracking := []*models.TrackingRecord{
		{ID: "t1", InfluencerID: "i1", Product: "serum", Orders: 10, Revenue: 5000},
		{ID: "t2", InfluencerID: "i2", Product: "gadget", Orders: 2, Revenue: 800},
		{ID: "t3", InfluencerID: "i3", Product: "serum", Orders: 1, Revenue: 100},
	}
	contracts := []*models.PayoutContract{
		{ID: "c1", InfluencerID: "i1", Basis: models.BasisOrder, Rate: 100, Orders: 10},
		{ID: "c2", InfluencerID: "i2", Basis: models.BasisPost, Rate: 200},
	}

	snap, err := BuildSnapshot(influencers, posts, tracking, contracts, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to build snapshot: %v", err)
	}
	snap.Version = 1

	return NewReportingService(&staticProvider{snap: snap}, nil, 0, nil, zap.NewNop())
}

func TestReports_NoSnapshot(t *testing.T) {
	r := NewReportingService(&staticProvider{}, nil, 0, nil, zap.NewNop())

	if _, err := r.PostPerformance(context.Background(), PostFilter{}); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}
	if _, err := r.ROIView(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}
	if _, err := r.PersonaROI(context.Background(), PersonaParams{}); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}
}

func TestPostPerformance_SortedByReachDesc(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.PostPerformance(context.Background(), PostFilter{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Reach > rows[i-1].Reach {
			t.Fatalf("Rows not sorted by reach desc: %d before %d", rows[i-1].Reach, rows[i].Reach)
		}
	}
	if rows[0].PostID != "p3" || rows[0].InfluencerName != "Bo" {
		t.Errorf("Expected p3/Bo first, got %s/%s", rows[0].PostID, rows[0].InfluencerName)
	}
}

func TestPostPerformance_NullRateForZeroReach(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.PostPerformance(context.Background(), PostFilter{InfluencerID: "i1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for i1, got %d", len(rows))
	}
	// p1: 60/1000 = 6.00; p2: zero reach, rate stays null
	if rows[0].PostID != "p1" || rows[0].EngagementRatePct == nil || *rows[0].EngagementRatePct != 6.00 {
		t.Errorf("Expected p1 with rate 6.00, got %+v", rows[0])
	}
	if rows[1].PostID != "p2" || rows[1].EngagementRatePct != nil {
		t.Errorf("Expected p2 with null rate, got %+v", rows[1])
	}
}

func TestPostPerformance_PlatformFilterAndLimit(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.PostPerformance(context.Background(), PostFilter{Platform: "Instagram"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 instagram rows, got %d", len(rows))
	}

	rows, err = r.PostPerformance(context.Background(), PostFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].PostID != "p3" {
		t.Fatalf("Expected only p3 with limit 1, got %+v", rows)
	}
}

func TestPostPerformance_InvalidPlatform(t *testing.T) {
	r := setupReporting(t)

	_, err := r.PostPerformance(context.Background(), PostFilter{Platform: "myspace"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if vErr.Field != "platform" {
		t.Errorf("Expected platform field in error, got %s", vErr.Field)
	}
}

func TestInfluencerPerformance_OuterJoin(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.InfluencerPerformance(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Every influencer is listed, even i4 with no child data.
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}
	// Sorted by revenue desc: Ana 5000, Bo 800, Cy 100, Didi 0.
	wantOrder := []string{"i1", "i2", "i3", "i4"}
	for i, want := range wantOrder {
		if rows[i].InfluencerID != want {
			t.Fatalf("Expected %s at position %d, got %s", want, i, rows[i].InfluencerID)
		}
	}

	ana := rows[0]
	if ana.PostCount != 2 || ana.TotalReach != 1000 || ana.TotalEngagements != 67 {
		t.Errorf("Unexpected Ana aggregates: %+v", ana)
	}
	// Aggregate-grain rate: 67/1000 = 6.70, not an average of per-post rates.
	if ana.AvgEngagementRatePct == nil || *ana.AvgEngagementRatePct != 6.70 {
		t.Errorf("Expected aggregate rate 6.70, got %v", ana.AvgEngagementRatePct)
	}

	didi := rows[3]
	if didi.TotalRevenue != 0 || didi.TotalPayout != 0 || didi.PostCount != 0 {
		t.Errorf("Expected zero defaults for Didi, got %+v", didi)
	}
	if didi.AvgEngagementRatePct != nil {
		t.Errorf("Expected null rate for Didi with zero reach, got %v", *didi.AvgEngagementRatePct)
	}
}

func TestROIView_NullsSortLast(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.ROIView(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}

	// Ana 4.00, Bo 3.00, then null-ROI rows in input order.
	if rows[0].InfluencerID != "i1" || rows[0].ROI == nil || *rows[0].ROI != 4.00 {
		t.Errorf("Expected Ana with ROI 4.00 first, got %+v", rows[0])
	}
	if rows[1].InfluencerID != "i2" || rows[1].ROI == nil || *rows[1].ROI != 3.00 {
		t.Errorf("Expected Bo with ROI 3.00 second, got %+v", rows[1])
	}
	if rows[2].ROI != nil || rows[3].ROI != nil {
		t.Error("Expected null-ROI rows last")
	}
	// i3 has revenue but no contract: listed with payout 0 and null ROI,
	// never a fabricated zero.
	if rows[2].InfluencerID != "i3" || rows[2].TotalRevenue != 100 || rows[2].TotalPayout != 0 {
		t.Errorf("Expected Cy with revenue 100 and payout 0, got %+v", rows[2])
	}
}

func TestROASView_IncrementalMirrorsROAS(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.ROASView(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rows[0].InfluencerID != "i1" || rows[0].ROAS == nil || *rows[0].ROAS != 5.00 {
		t.Errorf("Expected Ana with ROAS 5.00 first, got %+v", rows[0])
	}
	for _, row := range rows {
		if (row.ROAS == nil) != (row.IncrementalROAS == nil) {
			t.Fatalf("ROAS/incremental nil mismatch for %s", row.InfluencerID)
		}
		if row.ROAS != nil && *row.ROAS != *row.IncrementalROAS {
			t.Errorf("Expected incremental to mirror ROAS for %s", row.InfluencerID)
		}
	}
}

func TestConversions_SortedAndFiltered(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.Conversions(context.Background(), ConversionFilter{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].RecordID != "t1" || rows[1].RecordID != "t2" || rows[2].RecordID != "t3" {
		t.Errorf("Expected revenue-desc order t1,t2,t3, got %+v", rows)
	}

	// Membership filters are case-insensitive.
	rows, err = r.Conversions(context.Background(), ConversionFilter{Products: []string{"SERUM"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 serum rows, got %d", len(rows))
	}

	rows, err = r.Conversions(context.Background(), ConversionFilter{Categories: []string{"tech"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].RecordID != "t2" {
		t.Fatalf("Expected only t2 for tech, got %+v", rows)
	}

	rows, err = r.Conversions(context.Background(), ConversionFilter{Platforms: []string{"instagram"}, Products: []string{"serum"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows for instagram+serum, got %d", len(rows))
	}
}

func TestConversions_InvalidPlatform(t *testing.T) {
	r := setupReporting(t)

	_, err := r.Conversions(context.Background(), ConversionFilter{Platforms: []string{"tiktok"}})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestTopInfluencers_ByRevenueAndOrders(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.TopInfluencers(context.Background(), TopParams{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 grouped rows, got %d", len(rows))
	}
	if rows[0].Name != "Ana" || rows[0].TotalRevenue != 5000 {
		t.Errorf("Expected Ana first by revenue, got %+v", rows[0])
	}

	rows, err = r.TopInfluencers(context.Background(), TopParams{By: "orders"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rows[0].Name != "Ana" || rows[0].TotalOrders != 10 {
		t.Errorf("Expected Ana first by orders, got %+v", rows[0])
	}
	if rows[1].Name != "Bo" || rows[1].TotalOrders != 2 {
		t.Errorf("Expected Bo second by orders, got %+v", rows[1])
	}
}

func TestTopInfluencers_TruncationIsPrefix(t *testing.T) {
	r := setupReporting(t)

	full, err := r.TopInfluencers(context.Background(), TopParams{N: 10})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	top2, err := r.TopInfluencers(context.Background(), TopParams{N: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(top2) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(top2))
	}
	for i := range top2 {
		if top2[i] != full[i] {
			t.Errorf("Top-2 is not a prefix of the full view at position %d", i)
		}
	}
}

func TestTopInfluencers_InvalidSortKey(t *testing.T) {
	r := setupReporting(t)

	_, err := r.TopInfluencers(context.Background(), TopParams{By: "followers"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if vErr.Field != "by" {
		t.Errorf("Expected by field in error, got %s", vErr.Field)
	}
}

func TestPersonaROI_InnerJoin(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.PersonaROI(context.Background(), PersonaParams{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Only i1 (fitness) and i2 (tech) have both tracking and payout data;
	// i3's revenue must not leak into the fitness persona.
	if len(rows) != 2 {
		t.Fatalf("Expected 2 personas, got %d", len(rows))
	}
	if rows[0].Category != "fitness" || rows[0].ROI == nil || *rows[0].ROI != 4.00 {
		t.Errorf("Expected fitness with ROI 4.00 first, got %+v", rows[0])
	}
	if rows[0].TotalRevenue != 5000 || rows[0].Influencers != 1 {
		t.Errorf("Cy leaked into fitness persona: %+v", rows[0])
	}
	if rows[1].Category != "tech" || rows[1].ROI == nil || *rows[1].ROI != 3.00 {
		t.Errorf("Expected tech with ROI 3.00 second, got %+v", rows[1])
	}
}

func TestPersonaROI_WorstOrder(t *testing.T) {
	r := setupReporting(t)

	rows, err := r.PersonaROI(context.Background(), PersonaParams{Order: "worst"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 personas, got %d", len(rows))
	}
	if rows[0].Category != "tech" || rows[1].Category != "fitness" {
		t.Errorf("Expected ascending ROI order tech,fitness, got %+v", rows)
	}
}

func TestPersonaROI_InvalidOrder(t *testing.T) {
	r := setupReporting(t)

	_, err := r.PersonaROI(context.Background(), PersonaParams{Order: "median"})
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}
