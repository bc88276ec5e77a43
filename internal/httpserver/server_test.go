package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumenlytics/creator-insights/internal/config"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Cache.Enabled = false
	cfg.Metrics.Enabled = false
	return NewServer(&Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func seedDataset(t *testing.T, s *Server) {
	t.Helper()
	entities := []struct {
		path string
		body map[string]interface{}
	}{
		{"/influencers", map[string]interface{}{"id": "i1", "name": "Ana", "category": "fitness", "follower_count": 100000, "platform": "instagram"}},
		{"/influencers", map[string]interface{}{"id": "i2", "name": "Bo", "category": "tech", "follower_count": 50000, "platform": "youtube"}},
		{"/posts", map[string]interface{}{"id": "p1", "influencer_id": "i1", "platform": "instagram", "reach": 1000, "likes": 50, "comments": 10}},
		{"/tracking", map[string]interface{}{"id": "t1", "influencer_id": "i1", "product": "serum", "orders": 10, "revenue": 5000}},
		{"/tracking", map[string]interface{}{"id": "t2", "influencer_id": "i2", "product": "gadget", "orders": 2, "revenue": 800}},
		{"/payouts", map[string]interface{}{"id": "c1", "influencer_id": "i1", "basis": "order", "rate": 100, "orders": 10}},
	}
	for _, e := range entities {
		rec := doJSON(t, s, http.MethodPost, e.path, e.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("Failed to seed %s: status %d, body %s", e.path, rec.Code, rec.Body.String())
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", body["status"])
	}
}

func TestReports_BeforeFirstSnapshot_Unavailable(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/reports/roi", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before first snapshot, got %d", rec.Code)
	}
}

func TestIngest_InvalidEntity_Rejected(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/influencers", map[string]interface{}{
		"id": "i1", "name": "Ana", "platform": "myspace",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown platform, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/posts", map[string]interface{}{
		"influencer_id": "i1", "platform": "instagram", "reach": -5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative reach, got %d", rec.Code)
	}
}

func TestSnapshotRebuild_ThenReports(t *testing.T) {
	s := newTestServer(t)
	seedDataset(t, s)

	rec := doJSON(t, s, http.MethodPost, "/snapshot/rebuild", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from rebuild, got %d: %s", rec.Code, rec.Body.String())
	}
	var counts map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("Failed to decode counts: %v", err)
	}
	if counts["influencers"].(float64) != 2 {
		t.Errorf("Expected 2 influencers in snapshot, got %v", counts["influencers"])
	}

	rec = doJSON(t, s, http.MethodGet, "/reports/roi", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from roi report, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to decode rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 roi rows, got %d", len(rows))
	}
	// i1: (5000-1000)/1000 = 4.00 on top; i2 has no contract so roi is null.
	if rows[0]["influencer_id"] != "i1" || rows[0]["roi"].(float64) != 4.00 {
		t.Errorf("Expected i1 with roi 4.00 first, got %+v", rows[0])
	}
	if rows[1]["influencer_id"] != "i2" || rows[1]["roi"] != nil {
		t.Errorf("Expected i2 with null roi, got %+v", rows[1])
	}
}

func TestSnapshotRebuild_DanglingRef_Unprocessable(t *testing.T) {
	s := newTestServer(t)
	seedDataset(t, s)

	// Tracking record pointing at an influencer that was never loaded.
	rec := doJSON(t, s, http.MethodPost, "/tracking", map[string]interface{}{
		"id": "t-bad", "influencer_id": "ghost", "orders": 1, "revenue": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Ingest itself should accept the record, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/snapshot/rebuild", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for dangling reference, got %d: %s", rec.Code, rec.Body.String())
	}

	// The previous snapshot, if any, stays in place; here there was none.
	rec = doJSON(t, s, http.MethodGet, "/snapshot", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with no snapshot, got %d", rec.Code)
	}
}

func TestReport_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	seedDataset(t, s)
	if rec := doJSON(t, s, http.MethodPost, "/snapshot/rebuild", nil); rec.Code != http.StatusOK {
		t.Fatalf("Rebuild failed: %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/reports/top?by=followers", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad sort key, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/reports/posts?platform=myspace", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad platform, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/reports/posts?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-integer limit, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/reports/personas?order=median", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad order, got %d", rec.Code)
	}
}

func TestReport_ConversionFilters(t *testing.T) {
	s := newTestServer(t)
	seedDataset(t, s)
	if rec := doJSON(t, s, http.MethodPost, "/snapshot/rebuild", nil); rec.Code != http.StatusOK {
		t.Fatalf("Rebuild failed: %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/reports/conversions?product=serum", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("Failed to decode rows: %v", err)
	}
	if len(rows) != 1 || rows[0]["record_id"] != "t1" {
		t.Errorf("Expected only t1 for product serum, got %+v", rows)
	}
}

func TestInfluencerByID(t *testing.T) {
	s := newTestServer(t)
	seedDataset(t, s)

	rec := doJSON(t, s, http.MethodGet, "/influencers/i1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["name"] != "Ana" {
		t.Errorf("Expected Ana, got %v", body["name"])
	}

	rec = doJSON(t, s, http.MethodGet, "/influencers/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown influencer, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodDelete, "/influencers", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/reports/roi", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/snapshot/rebuild", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestWarehouseTotals_DisabledSink(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/warehouse/tracking-totals", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 with no warehouse configured, got %d", rec.Code)
	}
}
