package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"adlink-platform/internal/database"
	"adlink-platform/internal/database/dbtest"
	"adlink-platform/internal/logger"
	"adlink-platform/internal/models"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const adminToken = "test-token"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, database.SeedDatabase(context.Background(), db))
	srv := NewServer(db, logger.Discard(), Options{AdminToken: adminToken})
	return srv.Router(), db
}

type header map[string]string

var (
	consent = header{"X-Ads-Consent": "1"}
	staff   = header{"Authorization": "Bearer " + adminToken}
)

func perform(r http.Handler, method, path string, body io.Reader, h header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range h {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return strings.NewReader(string(b))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func countEvents(t *testing.T, db *gorm.DB, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Event{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestFillAd_ServesAndRecordsImpression(t *testing.T) {
	r, db := newTestServer(t)

	w := perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar&page_url=https://blog.example/post&page_context=blog_detail", nil, consent)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	creative := body["creative"].(map[string]interface{})
	assert.Equal(t, "sidebar", creative["placement"])
	assert.Equal(t, "https://blog.example/post", creative["page_url"])
	assert.Contains(t, []float64{1, 2}, creative["creative"])

	assert.Equal(t, int64(1), countEvents(t, db, models.EventTypeImpression))

	var event models.Event
	require.NoError(t, db.First(&event).Error)
	require.NotNil(t, event.PlacementID)
	assert.Equal(t, uint(2), *event.PlacementID)
	assert.Equal(t, "https://blog.example/post", event.PageURL)
}

func TestFillAd_Rejections(t *testing.T) {
	r, db := newTestServer(t)

	tests := []struct {
		name    string
		query   string
		headers header
		status  int
		want    map[string]interface{}
	}{
		{"no consent", "placement=sidebar", nil, http.StatusOK, map[string]interface{}{"ok": true, "skipped": "no_consent"}},
		{"relative page url", "placement=sidebar&page_url=/post", consent, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "bad_payload"}},
		{"missing placement", "", consent, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "missing_placement"}},
		{"unknown placement", "placement=footer", consent, http.StatusNotFound, map[string]interface{}{"ok": false, "error": "placement_not_found"}},
		{"targeting excludes every campaign", "placement=sidebar&page_context=contact", consent, http.StatusNotFound, map[string]interface{}{"ok": false, "error": "no_creative"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, http.MethodGet, "/api/v1/ads/fill?"+tt.query, nil, tt.headers)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.want, decode(t, w))
		})
	}

	assert.Zero(t, countEvents(t, db, models.EventTypeImpression))
}

func TestAdsDisabled(t *testing.T) {
	r, db := newTestServer(t)

	w := perform(r, http.MethodPatch, "/api/v1/admin/settings", jsonBody(t, map[string]interface{}{"ads_enabled": false}), staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["ads_enabled"])

	w = perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar", nil, consent)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ads_disabled", decode(t, w)["error"])

	form := url.Values{"creative": {"1"}, "placement": {"sidebar"}}
	w = perform(r, http.MethodPost, "/api/v1/ads/click", strings.NewReader(form.Encode()),
		header{"X-Ads-Consent": "1", "Content-Type": "application/x-www-form-urlencoded"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/ads/placements", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["items"])

	assert.Zero(t, countEvents(t, db, models.EventTypeClick))
}

func TestPatchSettings_InvalidLevel(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodPatch, "/api/v1/admin/settings", jsonBody(t, map[string]interface{}{"ad_aggressiveness_level": "turbo"}), staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_patch", decode(t, w)["error"])
}

func TestPostClick(t *testing.T) {
	r, db := newTestServer(t)

	form := url.Values{"creative": {"1"}, "placement": {"sidebar"}, "page_url": {"https://blog.example/"}, "session_id": {"abc"}}
	w := perform(r, http.MethodPost, "/api/v1/ads/click", strings.NewReader(form.Encode()),
		header{"X-Ads-Consent": "1", "Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "recorded", decode(t, w)["status"])

	var event models.Event
	require.NoError(t, db.Where("event_type = ?", models.EventTypeClick).First(&event).Error)
	require.NotNil(t, event.CreativeID)
	require.NotNil(t, event.CampaignID)
	assert.Equal(t, uint(1), *event.CreativeID)
	assert.Equal(t, uint(1), *event.CampaignID)
	assert.Equal(t, "abc", event.SessionID)

	// Missing creative is a bad payload.
	form = url.Values{"placement": {"sidebar"}}
	w = perform(r, http.MethodPost, "/api/v1/ads/click", strings.NewReader(form.Encode()),
		header{"X-Ads-Consent": "1", "Content-Type": "application/x-www-form-urlencoded"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostClick_LogsStorageErrorsAndStillRecords(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, database.SeedDatabase(context.Background(), db))
	log, hook := logtest.NewNullLogger()
	r := NewServer(db, log, Options{AdminToken: adminToken}).Router()

	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("fail_creative_reads", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "Creative" {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	}))

	form := url.Values{"creative": {"1"}, "placement": {"sidebar"}, "page_url": {"https://blog.example/"}}
	w := perform(r, http.MethodPost, "/api/v1/ads/click", strings.NewReader(form.Encode()),
		header{"X-Ads-Consent": "1", "Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "recorded", decode(t, w)["status"])

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Failed to load creative" {
			logged = true
			assert.ErrorContains(t, entry.Data["error"].(error), "disk I/O error")
		}
	}
	assert.True(t, logged)

	var event models.Event
	require.NoError(t, db.Where("event_type = ?", models.EventTypeClick).First(&event).Error)
	assert.Nil(t, event.CreativeID)
	require.NotNil(t, event.PlacementID)
	assert.Equal(t, uint(2), *event.PlacementID)

	// Unknown ids are not worth a log line.
	hook.Reset()
	form = url.Values{"creative": {"999"}, "placement": {"nowhere"}, "page_url": {"https://blog.example/"}}
	perform(r, http.MethodPost, "/api/v1/ads/click", strings.NewReader(form.Encode()),
		header{"X-Ads-Consent": "1", "Content-Type": "application/x-www-form-urlencoded"})
	for _, entry := range hook.AllEntries() {
		assert.NotContains(t, entry.Message, "Failed to load")
	}
}

func TestPostEvent(t *testing.T) {
	r, db := newTestServer(t)
	h := header{"X-Ads-Consent": "1", "Content-Type": "application/json"}

	w := perform(r, http.MethodPost, "/api/v1/ads/events", jsonBody(t, map[string]interface{}{
		"event_type": "impression", "placement": "header-banner", "campaign": 1,
	}), h)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), countEvents(t, db, models.EventTypeImpression))

	w = perform(r, http.MethodPost, "/api/v1/ads/events", jsonBody(t, map[string]interface{}{
		"event_type": "hover", "placement": "header-banner",
	}), h)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_payload", decode(t, w)["error"])
}

func TestAdminRequiresToken(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodGet, "/api/v1/admin/settings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/ads/analytics", nil, header{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPlacementToggles(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodPost, "/api/v1/admin/placements/2/disable", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["is_enabled"])

	w = perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar", nil, consent)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/placements/2/lock", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["locked"])

	w = perform(r, http.MethodPost, "/api/v1/admin/placements/2/enable", nil, staff)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "locked", decode(t, w)["error"])

	w = perform(r, http.MethodPost, "/api/v1/admin/placements/99/enable", nil, staff)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/placements/abc/enable", nil, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignToggles(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodPost, "/api/v1/admin/campaigns/1/disable", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// An inactive, unlocked campaign drops out of rotation.
	w = perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar", nil, consent)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no_creative", decode(t, w)["error"])

	// Locking it brings it back regardless of liveness.
	w = perform(r, http.MethodPost, "/api/v1/admin/campaigns/1/lock", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	w = perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar", nil, consent)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/campaigns/1/enable", nil, staff)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPlacementPool(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodGet, "/api/v1/admin/placements/2/pool", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "balanced", body["aggressiveness"])
	// Seeded weights 1 and 2, doubled under balanced.
	assert.Equal(t, float64(6), body["total"])
	entries := body["entries"].([]interface{})
	require.Len(t, entries, 2)
	assert.InDelta(t, 2.0/6.0, entries[0].(map[string]interface{})["share"], 1e-9)
}

func TestCreateEntities(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodPost, "/api/v1/admin/placements", jsonBody(t, map[string]interface{}{"name": "In Article"}), staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placement := decode(t, w)
	assert.Equal(t, "in-article", placement["slug"])
	assert.Equal(t, "in-article", placement["code"])

	w = perform(r, http.MethodPost, "/api/v1/admin/placements", jsonBody(t, map[string]interface{}{"name": "In Article"}), staff)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/campaigns", jsonBody(t, map[string]interface{}{
		"name":            "Spring sale",
		"type":            "direct",
		"budget":          "250.50",
		"weight":          2,
		"targeting_rules": map[string]interface{}{"tags": []string{"go"}},
	}), staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	campaignID := decode(t, w)["id"].(float64)

	w = perform(r, http.MethodPost, "/api/v1/admin/campaigns", jsonBody(t, map[string]interface{}{"name": "Bad", "type": "billboard"}), staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/creatives", jsonBody(t, map[string]interface{}{
		"campaign_id": campaignID, "name": "Go banner", "creative_type": "banner", "click_url": "https://example.com/go",
	}), staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	creativeID := decode(t, w)["id"].(float64)

	w = perform(r, http.MethodPost, "/api/v1/admin/creatives", jsonBody(t, map[string]interface{}{
		"campaign_id": 999, "name": "Orphan", "creative_type": "banner",
	}), staff)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/assignments", jsonBody(t, map[string]interface{}{
		"placement_id": placement["id"], "creative_id": creativeID, "weight": 3074457345618258602,
	}), staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/admin/assignments", jsonBody(t, map[string]interface{}{
		"placement_id": placement["id"], "creative_id": creativeID,
	}), staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = perform(r, http.MethodGet, "/api/v1/ads/fill?placement=in-article&tags=go", nil, consent)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, creativeID, decode(t, w)["creative"].(map[string]interface{})["creative"])

	w = perform(r, http.MethodGet, "/api/v1/ads/fill?placement=in-article&tags=python", nil, consent)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsDashboard(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar", nil, consent)
	require.Equal(t, http.StatusOK, w.Code)
	form := url.Values{"creative": {"1"}, "placement": {"sidebar"}}
	w = perform(r, http.MethodPost, "/api/v1/ads/click", strings.NewReader(form.Encode()),
		header{"X-Ads-Consent": "1", "Content-Type": "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/ads/analytics", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dashboard models.DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.True(t, dashboard.AdsEnabled)
	assert.Equal(t, "balanced", dashboard.AdAggressivenessLevel)
	assert.Equal(t, models.AnalyticsResponse{Impressions: 1, Clicks: 1, CTR: 100}, dashboard.Totals)
	require.NotEmpty(t, dashboard.Placements)
	assert.Equal(t, "Sidebar", dashboard.Placements[0].Name)
}

func TestResolveAffiliate_DisabledByDefault(t *testing.T) {
	r, _ := newTestServer(t)

	w := perform(r, http.MethodGet, "/api/v1/affiliates/resolve?link=kindle&source=amazon", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSEOSuggestions(t *testing.T) {
	r, _ := newTestServer(t)

	entities := []map[string]interface{}{
		{"content_type": "blog.post", "object_id": 1, "title": "Flashing router firmware", "url": "https://blog.example/firmware", "keywords": "router, firmware"},
		{"content_type": "blog.post", "object_id": 2, "title": "Router firmware recovery", "url": "https://blog.example/recovery", "keywords": "router, firmware, recovery"},
		{"content_type": "blog.post", "object_id": 3, "title": "Sourdough basics", "url": "https://blog.example/bread", "keywords": "bread"},
	}
	var ids []float64
	for _, e := range entities {
		w := perform(r, http.MethodPost, "/api/v1/admin/seo/linkable", jsonBody(t, e), staff)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		ids = append(ids, decode(t, w)["id"].(float64))
	}

	for _, limit := range []string{"0", "-2", "many"} {
		w := perform(r, http.MethodPost, "/api/v1/admin/seo/suggestions/1/refresh?limit="+limit, nil, staff)
		assert.Equal(t, http.StatusBadRequest, w.Code, limit)
	}

	w := perform(r, http.MethodPost, "/api/v1/admin/seo/suggestions/1/refresh?limit=1", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["written"])

	w = perform(r, http.MethodGet, "/api/v1/seo/suggestions/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	suggestions := decode(t, w)["suggestions"].([]interface{})
	require.Len(t, suggestions, 1)
	first := suggestions[0].(map[string]interface{})
	assert.Equal(t, ids[1], first["target_id"])

	w = perform(r, http.MethodPatch, "/api/v1/admin/seo/suggestions/1", jsonBody(t, map[string]interface{}{"locked": true}), staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["locked"])

	w = perform(r, http.MethodPost, "/api/v1/admin/seo/linkable", jsonBody(t, map[string]interface{}{"content_type": "blog.post"}), staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestServer(t)

	perform(r, http.MethodGet, "/api/v1/ads/fill?placement=sidebar&page_context=blog_detail", nil, consent)

	w := perform(r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ads_rotation_selections_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
