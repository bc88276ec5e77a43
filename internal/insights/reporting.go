package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lumenlytics/creator-insights/internal/metrics"
	"github.com/lumenlytics/creator-insights/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNoSnapshot is returned when no dataset snapshot has been loaded yet.
var ErrNoSnapshot = errors.New("no snapshot loaded")

// SnapshotProvider hands out the snapshot a query should run against.
type SnapshotProvider interface {
	Current() *Snapshot
}

// ReportingService composes the snapshot and the metric engine into report
// views. Computed views are cached in Redis keyed by snapshot version, so a
// rebuild invalidates every cached view at once. Redis being unavailable
// degrades to uncached computation.
type ReportingService struct {
	provider SnapshotProvider
	redis    *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewReportingService creates a new reporting service. redis may be nil.
func NewReportingService(provider SnapshotProvider, rdb *redis.Client, cacheTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{
		provider: provider,
		redis:    rdb,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
	}
}

// ---- Report rows ----

// PostPerformanceRow is one post joined to its influencer.
type PostPerformanceRow struct {
	PostID            string          `json:"post_id"`
	InfluencerID      string          `json:"influencer_id"`
	InfluencerName    string          `json:"influencer_name"`
	Category          string          `json:"category"`
	Platform          models.Platform `json:"platform"`
	PostDate          time.Time       `json:"post_date"`
	URL               string          `json:"url,omitempty"`
	Reach             int64           `json:"reach"`
	Likes             int64           `json:"likes"`
	Comments          int64           `json:"comments"`
	EngagementRatePct *float64        `json:"engagement_rate_pct"`
}

// InfluencerPerformanceRow aggregates posts and tracking per influencer.
type InfluencerPerformanceRow struct {
	InfluencerID         string          `json:"influencer_id"`
	Name                 string          `json:"name"`
	Category             string          `json:"category"`
	Platform             models.Platform `json:"platform"`
	FollowerCount        int64           `json:"follower_count"`
	PostCount            int64           `json:"post_count"`
	TotalReach           int64           `json:"total_reach"`
	TotalEngagements     int64           `json:"total_engagements"`
	TotalOrders          int64           `json:"total_orders"`
	TotalRevenue         float64         `json:"total_revenue"`
	TotalPayout          float64         `json:"total_payout"`
	AvgEngagementRatePct *float64        `json:"avg_engagement_rate_pct"`
}

// ROIRow is the influencer-grain return-on-investment view.
type ROIRow struct {
	InfluencerID string   `json:"influencer_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	TotalRevenue float64  `json:"total_revenue"`
	TotalPayout  float64  `json:"total_payout"`
	ROI          *float64 `json:"roi"`
}

// ROASRow is the influencer-grain return-on-ad-spend view. IncrementalROAS
// equals ROAS by definition in this system.
type ROASRow struct {
	InfluencerID    string   `json:"influencer_id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	TotalRevenue    float64  `json:"total_revenue"`
	TotalPayout     float64  `json:"total_payout"`
	ROAS            *float64 `json:"roas"`
	IncrementalROAS *float64 `json:"incremental_roas"`
}

// ConversionRow is one tracking record joined to its influencer, no
// aggregation.
type ConversionRow struct {
	RecordID       string          `json:"record_id"`
	InfluencerID   string          `json:"influencer_id"`
	InfluencerName string          `json:"influencer_name"`
	Category       string          `json:"category"`
	Platform       models.Platform `json:"platform"`
	Source         string          `json:"source,omitempty"`
	Campaign       string          `json:"campaign,omitempty"`
	Product        string          `json:"product,omitempty"`
	OrderDate      time.Time       `json:"order_date"`
	Orders         int64           `json:"orders"`
	Revenue        float64         `json:"revenue"`
}

// TopRow is influencer performance regrouped at (name, platform, category)
// grain.
type TopRow struct {
	Name         string          `json:"name"`
	Platform     models.Platform `json:"platform"`
	Category     string          `json:"category"`
	TotalRevenue float64         `json:"total_revenue"`
	TotalOrders  int64           `json:"total_orders"`
}

// PersonaRow is ROI grouped by influencer category.
type PersonaRow struct {
	Category     string   `json:"category"`
	Influencers  int      `json:"influencers"`
	TotalRevenue float64  `json:"total_revenue"`
	TotalPayout  float64  `json:"total_payout"`
	ROI          *float64 `json:"roi"`
}

// ---- Filters ----

// PostFilter narrows the post performance view.
type PostFilter struct {
	Platform     string `json:"platform,omitempty"`
	InfluencerID string `json:"influencer_id,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// ConversionFilter is a membership predicate over tracking rows. Empty slices
// match everything.
type ConversionFilter struct {
	Products   []string `json:"products,omitempty"`
	Platforms  []string `json:"platforms,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// TopParams selects the sort key and size of the top-N view.
type TopParams struct {
	By string `json:"by,omitempty"` // "revenue" (default) or "orders"
	N  int    `json:"n,omitempty"`
}

// PersonaParams selects best/worst ordering and size of the persona view.
type PersonaParams struct {
	Order string `json:"order,omitempty"` // "best" (default) or "worst"
	N     int    `json:"n,omitempty"`
}

const (
	defaultTopN     = 10
	defaultPersonaN = 5
)

// ---- Views ----

// PostPerformance returns one row per post joined to its influencer, with a
// per-row engagement rate, sorted by reach descending.
func (r *ReportingService) PostPerformance(ctx context.Context, f PostFilter) ([]PostPerformanceRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	var platform models.Platform
	if f.Platform != "" {
		p, err := models.ParsePlatform(f.Platform)
		if err != nil {
			return nil, &models.ValidationError{Field: "platform", Reason: err.Error()}
		}
		platform = p
	}
	if f.Limit < 0 {
		return nil, &models.ValidationError{Field: "limit", Reason: "must be >= 0"}
	}

	key := r.cacheKey(snap, "posts", string(platform), f.InfluencerID, fmt.Sprint(f.Limit))
	var rows []PostPerformanceRow
	if r.cacheGet(ctx, "posts", key, &rows) {
		return rows, nil
	}

	rows = make([]PostPerformanceRow, 0, len(snap.Posts))
	for _, p := range snap.Posts {
		if platform != "" && p.Platform != platform {
			continue
		}
		if f.InfluencerID != "" && p.InfluencerID != f.InfluencerID {
			continue
		}
		inf := snap.Influencer(p.InfluencerID)
		rows = append(rows, PostPerformanceRow{
			PostID:            p.ID,
			InfluencerID:      inf.ID,
			InfluencerName:    inf.Name,
			Category:          inf.Category,
			Platform:          p.Platform,
			PostDate:          p.PostDate,
			URL:               p.URL,
			Reach:             p.Reach,
			Likes:             p.Likes,
			Comments:          p.Comments,
			EngagementRatePct: EngagementRate(p.Reach, p.Likes, p.Comments),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Reach > rows[j].Reach
	})
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// InfluencerPerformance groups posts and tracking records per influencer.
// Outer-join semantics: every influencer is listed, and sums default to zero
// when post or tracking data is missing. Sorted by total revenue descending.
func (r *ReportingService) InfluencerPerformance(ctx context.Context) ([]InfluencerPerformanceRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	key := r.cacheKey(snap, "influencers")
	var rows []InfluencerPerformanceRow
	if r.cacheGet(ctx, "influencers", key, &rows) {
		return rows, nil
	}

	rows = aggregateInfluencers(snap)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalRevenue > rows[j].TotalRevenue
	})

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// ROIView returns influencer-grain ROI. Outer-join semantics as in
// InfluencerPerformance; ROI is null when the derived payout is zero, and
// null rows sort last.
func (r *ReportingService) ROIView(ctx context.Context) ([]ROIRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	key := r.cacheKey(snap, "roi")
	var rows []ROIRow
	if r.cacheGet(ctx, "roi", key, &rows) {
		return rows, nil
	}

	rows = make([]ROIRow, 0, len(snap.Influencers))
	for _, inf := range snap.Influencers {
		revenue := sumRevenue(snap.TrackingFor(inf.ID))
		payout := snap.TotalPayoutFor(inf.ID)
		rows = append(rows, ROIRow{
			InfluencerID: inf.ID,
			Name:         inf.Name,
			Category:     inf.Category,
			TotalRevenue: revenue,
			TotalPayout:  payout,
			ROI:          ROI(revenue, payout),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return lessDescNullsLast(rows[i].ROI, rows[j].ROI)
	})

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// ROASView returns influencer-grain ROAS with the same grain and null
// ordering as ROIView. The incremental_roas field repeats roas; the system
// has no control-group model.
func (r *ReportingService) ROASView(ctx context.Context) ([]ROASRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	key := r.cacheKey(snap, "roas")
	var rows []ROASRow
	if r.cacheGet(ctx, "roas", key, &rows) {
		return rows, nil
	}

	rows = make([]ROASRow, 0, len(snap.Influencers))
	for _, inf := range snap.Influencers {
		revenue := sumRevenue(snap.TrackingFor(inf.ID))
		payout := snap.TotalPayoutFor(inf.ID)
		rows = append(rows, ROASRow{
			InfluencerID:    inf.ID,
			Name:            inf.Name,
			Category:        inf.Category,
			TotalRevenue:    revenue,
			TotalPayout:     payout,
			ROAS:            ROAS(revenue, payout),
			IncrementalROAS: IncrementalROAS(revenue, payout),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return lessDescNullsLast(rows[i].ROAS, rows[j].ROAS)
	})

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// Conversions is the row-level TrackingRecord × Influencer view with
// membership predicates over product, platform and category, sorted by
// revenue descending.
func (r *ReportingService) Conversions(ctx context.Context, f ConversionFilter) ([]ConversionRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	platforms := make([]string, 0, len(f.Platforms))
	for _, raw := range f.Platforms {
		p, err := models.ParsePlatform(raw)
		if err != nil {
			return nil, &models.ValidationError{Field: "platform", Reason: err.Error()}
		}
		platforms = append(platforms, string(p))
	}

	key := r.cacheKey(snap, "conversions",
		strings.Join(f.Products, ","),
		strings.Join(platforms, ","),
		strings.Join(f.Categories, ","),
	)
	var rows []ConversionRow
	if r.cacheGet(ctx, "conversions", key, &rows) {
		return rows, nil
	}

	rows = make([]ConversionRow, 0, len(snap.Tracking))
	for _, t := range snap.Tracking {
		inf := snap.Influencer(t.InfluencerID)
		if !matchesMembership(t.Product, f.Products) {
			continue
		}
		if !matchesMembership(string(inf.Platform), platforms) {
			continue
		}
		if !matchesMembership(inf.Category, f.Categories) {
			continue
		}
		rows = append(rows, ConversionRow{
			RecordID:       t.ID,
			InfluencerID:   inf.ID,
			InfluencerName: inf.Name,
			Category:       inf.Category,
			Platform:       inf.Platform,
			Source:         t.Source,
			Campaign:       t.Campaign,
			Product:        t.Product,
			OrderDate:      t.OrderDate,
			Orders:         t.Orders,
			Revenue:        t.Revenue,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// TopInfluencers regroups the influencer performance view at the
// (name, platform, category) grain, sorts by the caller-selected key and
// truncates to N. The result is a prefix of the unbounded sorted view.
func (r *ReportingService) TopInfluencers(ctx context.Context, p TopParams) ([]TopRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	by := p.By
	if by == "" {
		by = "revenue"
	}
	if by != "revenue" && by != "orders" {
		return nil, &models.ValidationError{Field: "by", Reason: `must be "revenue" or "orders"`}
	}
	n := p.N
	if n == 0 {
		n = defaultTopN
	}
	if n < 0 {
		return nil, &models.ValidationError{Field: "n", Reason: "must be > 0"}
	}

	key := r.cacheKey(snap, "top", by, fmt.Sprint(n))
	var rows []TopRow
	if r.cacheGet(ctx, "top", key, &rows) {
		return rows, nil
	}

	type grain struct {
		name     string
		platform models.Platform
		category string
	}
	grouped := make(map[grain]*TopRow)
	var order []grain
	for _, row := range aggregateInfluencers(snap) {
		g := grain{name: row.Name, platform: row.Platform, category: row.Category}
		tr, ok := grouped[g]
		if !ok {
			tr = &TopRow{Name: g.name, Platform: g.platform, Category: g.category}
			grouped[g] = tr
			order = append(order, g)
		}
		tr.TotalRevenue += row.TotalRevenue
		tr.TotalOrders += row.TotalOrders
	}

	rows = make([]TopRow, 0, len(order))
	for _, g := range order {
		rows = append(rows, *grouped[g])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if by == "orders" {
			return rows[i].TotalOrders > rows[j].TotalOrders
		}
		return rows[i].TotalRevenue > rows[j].TotalRevenue
	})
	if len(rows) > n {
		rows = rows[:n]
	}

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// PersonaROI groups ROI by influencer category. Inner-join semantics, unlike
// the influencer-grain views: only influencers with both tracking and payout
// data contribute. order=best sorts descending with nulls last; order=worst
// drops null-ROI personas and sorts ascending.
func (r *ReportingService) PersonaROI(ctx context.Context, p PersonaParams) ([]PersonaRow, error) {
	snap := r.provider.Current()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	order := p.Order
	if order == "" {
		order = "best"
	}
	if order != "best" && order != "worst" {
		return nil, &models.ValidationError{Field: "order", Reason: `must be "best" or "worst"`}
	}
	n := p.N
	if n == 0 {
		n = defaultPersonaN
	}
	if n < 0 {
		return nil, &models.ValidationError{Field: "n", Reason: "must be > 0"}
	}

	key := r.cacheKey(snap, "personas", order, fmt.Sprint(n))
	var rows []PersonaRow
	if r.cacheGet(ctx, "personas", key, &rows) {
		return rows, nil
	}

	grouped := make(map[string]*PersonaRow)
	var categories []string
	for _, inf := range snap.Influencers {
		if !snap.HasTracking(inf.ID) || !snap.HasContract(inf.ID) {
			continue
		}
		pr, ok := grouped[inf.Category]
		if !ok {
			pr = &PersonaRow{Category: inf.Category}
			grouped[inf.Category] = pr
			categories = append(categories, inf.Category)
		}
		pr.Influencers++
		pr.TotalRevenue += sumRevenue(snap.TrackingFor(inf.ID))
		pr.TotalPayout += snap.TotalPayoutFor(inf.ID)
	}

	rows = make([]PersonaRow, 0, len(categories))
	for _, cat := range categories {
		pr := grouped[cat]
		pr.ROI = ROI(pr.TotalRevenue, pr.TotalPayout)
		rows = append(rows, *pr)
	}

	if order == "worst" {
		nonNull := rows[:0]
		for _, row := range rows {
			if row.ROI != nil {
				nonNull = append(nonNull, row)
			}
		}
		rows = nonNull
		sort.SliceStable(rows, func(i, j int) bool {
			return *rows[i].ROI < *rows[j].ROI
		})
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			return lessDescNullsLast(rows[i].ROI, rows[j].ROI)
		})
	}
	if len(rows) > n {
		rows = rows[:n]
	}

	r.cacheSet(ctx, key, rows)
	return rows, nil
}

// ---- Helpers ----

// aggregateInfluencers builds the influencer-grain aggregation every grouped
// view shares: outer join, zero defaults, aggregate-grain engagement rate.
func aggregateInfluencers(snap *Snapshot) []InfluencerPerformanceRow {
	rows := make([]InfluencerPerformanceRow, 0, len(snap.Influencers))
	for _, inf := range snap.Influencers {
		row := InfluencerPerformanceRow{
			InfluencerID:  inf.ID,
			Name:          inf.Name,
			Category:      inf.Category,
			Platform:      inf.Platform,
			FollowerCount: inf.FollowerCount,
			TotalPayout:   snap.TotalPayoutFor(inf.ID),
		}
		for _, p := range snap.PostsFor(inf.ID) {
			row.PostCount++
			row.TotalReach += p.Reach
			row.TotalEngagements += p.Likes + p.Comments
		}
		for _, t := range snap.TrackingFor(inf.ID) {
			row.TotalOrders += t.Orders
			row.TotalRevenue += t.Revenue
		}
		// Aggregate-grain rate: sum(likes+comments)/sum(reach), not an
		// average of per-post rates.
		row.AvgEngagementRatePct = EngagementRate(row.TotalReach, row.TotalEngagements, 0)
		rows = append(rows, row)
	}
	return rows
}

func sumRevenue(records []*models.TrackingRecord) float64 {
	var total float64
	for _, t := range records {
		total += t.Revenue
	}
	return total
}

// lessDescNullsLast orders non-null values descending and nulls after every
// non-null value.
func lessDescNullsLast(a, b *float64) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a > *b
}

func matchesMembership(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, v := range allowed {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// ---- Cache ----

func (r *ReportingService) cacheKey(snap *Snapshot, view string, params ...string) string {
	if len(params) == 0 {
		return fmt.Sprintf("report:%s:v%d", view, snap.Version)
	}
	return fmt.Sprintf("report:%s:%s:v%d", view, strings.Join(params, ":"), snap.Version)
}

func (r *ReportingService) cacheGet(ctx context.Context, view, key string, dest interface{}) bool {
	if r.redis == nil {
		return false
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		r.metrics.RecordCache(view, false)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn("failed to decode cached report", zap.String("key", key), zap.Error(err))
		r.metrics.RecordCache(view, false)
		return false
	}
	r.metrics.RecordCache(view, true)
	return true
}

func (r *ReportingService) cacheSet(ctx context.Context, key string, rows interface{}) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
		r.logger.Debug("failed to cache report", zap.String("key", key), zap.Error(err))
	}
}
