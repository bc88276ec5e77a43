package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lumenlytics/creator-insights/internal/config"
	"github.com/lumenlytics/creator-insights/internal/database"
	"github.com/lumenlytics/creator-insights/internal/insights"
	"github.com/lumenlytics/creator-insights/internal/metrics"
	"github.com/lumenlytics/creator-insights/internal/models"
	"github.com/lumenlytics/creator-insights/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB         *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Server wraps HTTP handlers and reporting services.
type Server struct {
	snapshots *insights.SnapshotService
	ingest    *insights.IngestService
	reporting *insights.ReportingService
	store     *storage.Store
	sink      *storage.ClickHouseTrackingSink
	logger    *zap.Logger
	config    *config.Config
	metrics   *metrics.Metrics
	mux       *http.ServeMux
}

// NewServer constructs the server with all routes registered.
func NewServer(deps *Dependencies) *Server {
	var store *storage.Store
	if deps.DB != nil {
		store = storage.NewPostgresStore(deps.DB.Pool)
	} else {
		store = storage.NewInMemoryStore()
	}

	var sink *storage.ClickHouseTrackingSink
	if deps.ClickHouse != nil {
		sink = storage.NewClickHouseTrackingSink(deps.ClickHouse.Conn)
	}

	snapshots := insights.NewSnapshotService(store, deps.Logger, deps.Metrics)

	var rdb *redis.Client
	var cacheTTL time.Duration
	if deps.Redis != nil && deps.Config.Cache.Enabled {
		rdb = deps.Redis.Client
		cacheTTL = deps.Config.Cache.TTL
	}
	reporting := insights.NewReportingService(snapshots, rdb, cacheTTL, deps.Metrics, deps.Logger)

	s := &Server{
		snapshots: snapshots,
		ingest:    insights.NewIngestService(store, sink, deps.Logger, deps.Metrics),
		reporting: reporting,
		store:     store,
		sink:      sink,
		logger:    deps.Logger,
		config:    deps.Config,
		metrics:   deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Entity ingestion and inspection
	mux.HandleFunc("/influencers", s.handleInfluencers)
	mux.HandleFunc("/influencers/", s.handleInfluencerByID)
	mux.HandleFunc("/posts", s.handlePosts)
	mux.HandleFunc("/tracking", s.handleTracking)
	mux.HandleFunc("/payouts", s.handlePayouts)

	// Snapshot lifecycle
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/snapshot/rebuild", s.handleSnapshotRebuild)

	// Report views
	mux.HandleFunc("/reports/posts", s.handlePostReport)
	mux.HandleFunc("/reports/influencers", s.handleInfluencerReport)
	mux.HandleFunc("/reports/roi", s.handleROIReport)
	mux.HandleFunc("/reports/roas", s.handleROASReport)
	mux.HandleFunc("/reports/conversions", s.handleConversionReport)
	mux.HandleFunc("/reports/top", s.handleTopReport)
	mux.HandleFunc("/reports/personas", s.handlePersonaReport)

	// Warehouse rollup
	mux.HandleFunc("/warehouse/tracking-totals", s.handleWarehouseTotals)

	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Snapshots exposes the snapshot service for startup wiring.
func (s *Server) Snapshots() *insights.SnapshotService {
	return s.snapshots
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Entity ingestion ----

func (s *Server) handleInfluencers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.store.Influencers.ListInfluencers()
		if err != nil {
			s.logger.Error("failed to list influencers", zap.Error(err))
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var i models.Influencer
		if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.ingest.AddInfluencer(&i); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, i)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleInfluencerByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/influencers/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		i, err := s.store.Influencers.GetInfluencer(id)
		if err != nil {
			s.logger.Error("failed to get influencer", zap.Error(err))
			s.errorResponse(w, "error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if i == nil {
			http.NotFound(w, r)
			return
		}
		s.jsonResponse(w, i)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		influencerID := r.URL.Query().Get("influencer_id")
		var list []*models.Post
		var err error
		if influencerID != "" {
			list, err = s.store.Posts.ListPostsByInfluencer(influencerID)
		} else {
			list, err = s.store.Posts.ListPosts()
		}
		if err != nil {
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var p models.Post
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.ingest.AddPost(&p); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, p)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		influencerID := r.URL.Query().Get("influencer_id")
		var list []*models.TrackingRecord
		var err error
		if influencerID != "" {
			list, err = s.store.Tracking.ListTrackingByInfluencer(influencerID)
		} else {
			list, err = s.store.Tracking.ListTrackingRecords()
		}
		if err != nil {
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var t models.TrackingRecord
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.ingest.AddTrackingRecord(r.Context(), &t); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, t)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePayouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.store.Payouts.ListPayoutContracts()
		if err != nil {
			s.errorResponse(w, "failed to list", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, list)

	case http.MethodPost:
		var c models.PayoutContract
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			s.errorResponse(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.ingest.AddPayoutContract(&c); err != nil {
			s.errorResponse(w, "failed to save: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.jsonResponse(w, c)

	default:
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ---- Snapshot lifecycle ----

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.snapshots.Current()
	if snap == nil {
		s.errorResponse(w, "no snapshot loaded", http.StatusServiceUnavailable)
		return
	}
	s.jsonResponse(w, snap.Counts())
}

func (s *Server) handleSnapshotRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.snapshots.Rebuild(r.Context())
	if err != nil {
		var integrityErr *models.DataIntegrityError
		var basisErr *models.InvalidBasisError
		if errors.As(err, &integrityErr) || errors.As(err, &basisErr) {
			s.logger.Warn("snapshot rejected", zap.Error(err))
			s.errorResponse(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("snapshot rebuild failed", zap.Error(err))
		s.errorResponse(w, "failed to rebuild snapshot", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, snap.Counts())
}

// ---- Report views ----

func (s *Server) handlePostReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit, ok := s.intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	filter := insights.PostFilter{
		Platform:     q.Get("platform"),
		InfluencerID: q.Get("influencer_id"),
		Limit:        limit,
	}

	start := time.Now()
	rows, err := s.reporting.PostPerformance(r.Context(), filter)
	s.finishReport(w, "posts", start, len(rows), err, rows)
}

func (s *Server) handleInfluencerReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	rows, err := s.reporting.InfluencerPerformance(r.Context())
	s.finishReport(w, "influencers", start, len(rows), err, rows)
}

func (s *Server) handleROIReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	rows, err := s.reporting.ROIView(r.Context())
	s.finishReport(w, "roi", start, len(rows), err, rows)
}

func (s *Server) handleROASReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	rows, err := s.reporting.ROASView(r.Context())
	s.finishReport(w, "roas", start, len(rows), err, rows)
}

func (s *Server) handleConversionReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := insights.ConversionFilter{
		Products:   csvParam(q.Get("product")),
		Platforms:  csvParam(q.Get("platform")),
		Categories: csvParam(q.Get("category")),
	}

	start := time.Now()
	rows, err := s.reporting.Conversions(r.Context(), filter)
	s.finishReport(w, "conversions", start, len(rows), err, rows)
}

func (s *Server) handleTopReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	n, ok := s.intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	params := insights.TopParams{
		By: q.Get("by"),
		N:  n,
	}

	start := time.Now()
	rows, err := s.reporting.TopInfluencers(r.Context(), params)
	s.finishReport(w, "top", start, len(rows), err, rows)
}

func (s *Server) handlePersonaReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	n, ok := s.intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	params := insights.PersonaParams{
		Order: q.Get("order"),
		N:     n,
	}

	start := time.Now()
	rows, err := s.reporting.PersonaROI(r.Context(), params)
	s.finishReport(w, "personas", start, len(rows), err, rows)
}

// ---- Warehouse ----

func (s *Server) handleWarehouseTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.sink == nil {
		s.errorResponse(w, "warehouse not available", http.StatusServiceUnavailable)
		return
	}

	totals, err := s.sink.TotalsByInfluencer(r.Context())
	if err != nil {
		s.logger.Error("failed to query warehouse totals", zap.Error(err))
		s.errorResponse(w, "failed to query warehouse", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, totals)
}

// ---- Helper Methods ----

// finishReport maps reporting errors to HTTP statuses and records metrics.
func (s *Server) finishReport(w http.ResponseWriter, view string, start time.Time, rowCount int, err error, rows interface{}) {
	elapsed := time.Since(start).Seconds()

	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			s.metrics.RecordReport(view, "invalid", elapsed, 0)
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, insights.ErrNoSnapshot):
			s.metrics.RecordReport(view, "unavailable", elapsed, 0)
			s.errorResponse(w, err.Error(), http.StatusServiceUnavailable)
		default:
			s.logger.Error("report failed", zap.String("view", view), zap.Error(err))
			s.metrics.RecordReport(view, "error", elapsed, 0)
			s.errorResponse(w, "failed to compute report", http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordReport(view, "ok", elapsed, rowCount)
	s.jsonResponse(w, rows)
}

func (s *Server) intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.errorResponse(w, "invalid "+name+": must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func csvParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
