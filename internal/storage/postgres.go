package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlytics/creator-insights/internal/models"
)

// NewPostgresStore returns a Store backed by PostgreSQL repositories.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Influencers: NewPostgresInfluencerRepo(pool),
		Posts:       NewPostgresPostRepo(pool),
		Tracking:    NewPostgresTrackingRepo(pool),
		Payouts:     NewPostgresPayoutRepo(pool),
	}
}

// PostgresInfluencerRepo implements InfluencerRepo using PostgreSQL.
type PostgresInfluencerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresInfluencerRepo(pool *pgxpool.Pool) *PostgresInfluencerRepo {
	return &PostgresInfluencerRepo{pool: pool}
}

func (r *PostgresInfluencerRepo) GetInfluencer(id string) (*models.Influencer, error) {
	ctx := context.Background()

	var i models.Influencer
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, category, gender, follower_count, platform
		FROM influencers WHERE id = $1
	`, id).Scan(&i.ID, &i.Name, &i.Category, &i.Gender, &i.FollowerCount, &i.Platform)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}

	return &i, nil
}

func (r *PostgresInfluencerRepo) ListInfluencers() ([]*models.Influencer, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, category, gender, follower_count, platform
		FROM influencers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list influencers: %w", err)
	}
	defer rows.Close()

	var influencers []*models.Influencer
	for rows.Next() {
		var i models.Influencer
		if err := rows.Scan(&i.ID, &i.Name, &i.Category, &i.Gender, &i.FollowerCount, &i.Platform); err != nil {
			return nil, err
		}
		influencers = append(influencers, &i)
	}

	return influencers, nil
}

func (r *PostgresInfluencerRepo) UpsertInfluencer(i *models.Influencer) error {
	ctx := context.Background()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO influencers (id, name, category, gender, follower_count, platform)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			gender = EXCLUDED.gender,
			follower_count = EXCLUDED.follower_count,
			platform = EXCLUDED.platform
	`, i.ID, i.Name, i.Category, i.Gender, i.FollowerCount, i.Platform)

	if err != nil {
		return fmt.Errorf("failed to upsert influencer: %w", err)
	}

	return nil
}

// PostgresPostRepo implements PostRepo using PostgreSQL.
type PostgresPostRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPostRepo(pool *pgxpool.Pool) *PostgresPostRepo {
	return &PostgresPostRepo{pool: pool}
}

func (r *PostgresPostRepo) GetPost(id string) (*models.Post, error) {
	ctx := context.Background()

	var p models.Post
	err := r.pool.QueryRow(ctx, `
		SELECT id, influencer_id, platform, post_date, url, caption, reach, likes, comments
		FROM posts WHERE id = $1
	`, id).Scan(&p.ID, &p.InfluencerID, &p.Platform, &p.PostDate, &p.URL, &p.Caption, &p.Reach, &p.Likes, &p.Comments)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &p, nil
}

func (r *PostgresPostRepo) ListPosts() ([]*models.Post, error) {
	return r.listPosts(`
		SELECT id, influencer_id, platform, post_date, url, caption, reach, likes, comments
		FROM posts ORDER BY post_date DESC
	`)
}

func (r *PostgresPostRepo) ListPostsByInfluencer(influencerID string) ([]*models.Post, error) {
	return r.listPosts(`
		SELECT id, influencer_id, platform, post_date, url, caption, reach, likes, comments
		FROM posts WHERE influencer_id = $1 ORDER BY post_date DESC
	`, influencerID)
}

func (r *PostgresPostRepo) listPosts(query string, args ...interface{}) ([]*models.Post, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.InfluencerID, &p.Platform, &p.PostDate, &p.URL, &p.Caption, &p.Reach, &p.Likes, &p.Comments); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}

	return posts, nil
}

func (r *PostgresPostRepo) UpsertPost(p *models.Post) error {
	ctx := context.Background()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (id, influencer_id, platform, post_date, url, caption, reach, likes, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			influencer_id = EXCLUDED.influencer_id,
			platform = EXCLUDED.platform,
			post_date = EXCLUDED.post_date,
			url = EXCLUDED.url,
			caption = EXCLUDED.caption,
			reach = EXCLUDED.reach,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments
	`, p.ID, p.InfluencerID, p.Platform, p.PostDate, p.URL, p.Caption, p.Reach, p.Likes, p.Comments)

	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

// PostgresTrackingRepo implements TrackingRepo using PostgreSQL.
type PostgresTrackingRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTrackingRepo(pool *pgxpool.Pool) *PostgresTrackingRepo {
	return &PostgresTrackingRepo{pool: pool}
}

func (r *PostgresTrackingRepo) GetTrackingRecord(id string) (*models.TrackingRecord, error) {
	ctx := context.Background()

	var t models.TrackingRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, source, campaign, influencer_id, user_id, product, order_date, orders, revenue
		FROM tracking_records WHERE id = $1
	`, id).Scan(&t.ID, &t.Source, &t.Campaign, &t.InfluencerID, &t.UserID, &t.Product, &t.OrderDate, &t.Orders, &t.Revenue)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tracking record: %w", err)
	}

	return &t, nil
}

func (r *PostgresTrackingRepo) ListTrackingRecords() ([]*models.TrackingRecord, error) {
	return r.listTracking(`
		SELECT id, source, campaign, influencer_id, user_id, product, order_date, orders, revenue
		FROM tracking_records ORDER BY order_date DESC
	`)
}

func (r *PostgresTrackingRepo) ListTrackingByInfluencer(influencerID string) ([]*models.TrackingRecord, error) {
	return r.listTracking(`
		SELECT id, source, campaign, influencer_id, user_id, product, order_date, orders, revenue
		FROM tracking_records WHERE influencer_id = $1 ORDER BY order_date DESC
	`, influencerID)
}

func (r *PostgresTrackingRepo) listTracking(query string, args ...interface{}) ([]*models.TrackingRecord, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking records: %w", err)
	}
	defer rows.Close()

	var records []*models.TrackingRecord
	for rows.Next() {
		var t models.TrackingRecord
		if err := rows.Scan(&t.ID, &t.Source, &t.Campaign, &t.InfluencerID, &t.UserID, &t.Product, &t.OrderDate, &t.Orders, &t.Revenue); err != nil {
			return nil, err
		}
		records = append(records, &t)
	}

	return records, nil
}

func (r *PostgresTrackingRepo) UpsertTrackingRecord(t *models.TrackingRecord) error {
	ctx := context.Background()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO tracking_records (id, source, campaign, influencer_id, user_id, product, order_date, orders, revenue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			campaign = EXCLUDED.campaign,
			influencer_id = EXCLUDED.influencer_id,
			user_id = EXCLUDED.user_id,
			product = EXCLUDED.product,
			order_date = EXCLUDED.order_date,
			orders = EXCLUDED.orders,
			revenue = EXCLUDED.revenue
	`, t.ID, t.Source, t.Campaign, t.InfluencerID, t.UserID, t.Product, t.OrderDate, t.Orders, t.Revenue)

	if err != nil {
		return fmt.Errorf("failed to upsert tracking record: %w", err)
	}

	return nil
}

// PostgresPayoutRepo implements PayoutRepo using PostgreSQL.
type PostgresPayoutRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPayoutRepo(pool *pgxpool.Pool) *PostgresPayoutRepo {
	return &PostgresPayoutRepo{pool: pool}
}

func (r *PostgresPayoutRepo) GetPayoutContract(id string) (*models.PayoutContract, error) {
	ctx := context.Background()

	var c models.PayoutContract
	err := r.pool.QueryRow(ctx, `
		SELECT id, influencer_id, basis, rate, orders, total_payout
		FROM payout_contracts WHERE id = $1
	`, id).Scan(&c.ID, &c.InfluencerID, &c.Basis, &c.Rate, &c.Orders, &c.TotalPayout)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout contract: %w", err)
	}

	return &c, nil
}

func (r *PostgresPayoutRepo) ListPayoutContracts() ([]*models.PayoutContract, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT id, influencer_id, basis, rate, orders, total_payout
		FROM payout_contracts ORDER BY influencer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*models.PayoutContract
	for rows.Next() {
		var c models.PayoutContract
		if err := rows.Scan(&c.ID, &c.InfluencerID, &c.Basis, &c.Rate, &c.Orders, &c.TotalPayout); err != nil {
			return nil, err
		}
		contracts = append(contracts, &c)
	}

	return contracts, nil
}

func (r *PostgresPayoutRepo) UpsertPayoutContract(c *models.PayoutContract) error {
	ctx := context.Background()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO payout_contracts (id, influencer_id, basis, rate, orders, total_payout)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			influencer_id = EXCLUDED.influencer_id,
			basis = EXCLUDED.basis,
			rate = EXCLUDED.rate,
			orders = EXCLUDED.orders,
			total_payout = EXCLUDED.total_payout
	`, c.ID, c.InfluencerID, c.Basis, c.Rate, c.Orders, c.TotalPayout)

	if err != nil {
		return fmt.Errorf("failed to upsert payout contract: %w", err)
	}

	return nil
}
