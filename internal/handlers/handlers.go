package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/targeting"
	"adlink-platform/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	consentCookie = "consent_ads"
	consentHeader = "X-Ads-Consent"
	statsLimit    = 50
)

// hasAdsConsent reports whether the visitor granted the ads consent category.
func hasAdsConsent(c *gin.Context) bool {
	if v, err := c.Cookie(consentCookie); err == nil && truthy(v) {
		return true
	}
	return truthy(c.GetHeader(consentHeader))
}

func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}

func validPageURL(u string) bool {
	return u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func (s *Server) requestMeta(c *gin.Context, pageURL, referrer, sessionID string) tracking.RequestMeta {
	return tracking.RequestMeta{
		PageURL:   pageURL,
		Referrer:  referrer,
		UserAgent: c.GetHeader("User-Agent"),
		SessionID: sessionID,
		Site:      c.Request.Host,
		IP:        c.ClientIP(),
	}
}

func (s *Server) GetPlacements(c *gin.Context) {
	cfg := s.settings.Config(c.Request.Context())
	if !cfg.AdsEnabled {
		c.JSON(http.StatusOK, gin.H{"items": []models.Placement{}})
		return
	}

	placements, err := s.ads.ListPlacements(c.Request.Context(), true)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": placements})
}

// FillAd picks a creative for the requested placement and records the impression.
func (s *Server) FillAd(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := s.settings.Config(ctx)
	if !cfg.AdsEnabled {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "ads_disabled"})
		return
	}
	if !hasAdsConsent(c) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": "no_consent"})
		return
	}

	var req models.FillRequest
	if err := c.ShouldBindQuery(&req); err != nil || !validPageURL(req.PageURL) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_payload"})
		return
	}
	if req.Placement == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_placement"})
		return
	}

	placement, err := s.ads.FindPlacement(ctx, req.Placement)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.WithError(err).WithField("placement", req.Placement).Error("Failed to load placement")
	}
	if err != nil || !targeting.PlacementAllowed(placement) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "placement_not_found"})
		return
	}

	result, err := s.engine.ChooseFor(ctx, placement, cfg, targeting.NewContext(req.PageContext, req.Tags))
	if err != nil {
		s.logger.WithError(err).WithField("placement", placement.Slug).Error("Rotation failed")
	}
	if err != nil || !result.Selected() {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no_creative"})
		return
	}
	creative := result.Creative

	s.logger.WithFields(logrus.Fields{
		"event":      "ads.fill",
		"request_id": c.GetString("request_id"),
		"placement":  placement.Slug,
		"creative":   creative.ID,
		"campaign":   creative.CampaignID,
	}).Info("Filled placement")

	s.recorder.Record(ctx, cfg, tracking.EventInput{
		Type:      models.EventTypeImpression,
		Placement: placement,
		Creative:  creative,
		Campaign:  creative.Campaign,
		Meta:      s.requestMeta(c, req.PageURL, c.GetHeader("Referer"), ""),
	})

	c.JSON(http.StatusOK, gin.H{"ok": true, "creative": models.CreativePayload{
		Type:      creative.CreativeType,
		HTML:      creative.HTML,
		ImageURL:  creative.ImageURL,
		ClickURL:  creative.ClickURL,
		Campaign:  creative.CampaignID,
		Placement: placement.Slug,
		Creative:  creative.ID,
		PageURL:   req.PageURL,
	}})
}

func (s *Server) PostClick(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := s.settings.Config(ctx)
	if !cfg.AdsEnabled {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "ads_disabled"})
		return
	}
	if !hasAdsConsent(c) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": "no_consent"})
		return
	}

	var req models.ClickRequest
	if err := c.ShouldBind(&req); err != nil || !validPageURL(req.PageURL) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_payload"})
		return
	}

	// Unknown ids still record the click, just without the reference.
	var campaign *models.Campaign
	creative, err := s.ads.GetCreative(ctx, req.CreativeID)
	if s.lookupFailed(err, "creative", req.CreativeID) {
		creative = nil
	}
	if creative != nil {
		campaign = creative.Campaign
	}
	placement, err := s.ads.FindPlacement(ctx, req.Placement)
	if s.lookupFailed(err, "placement", req.Placement) {
		placement = nil
	}

	outcome := s.recorder.Record(ctx, cfg, tracking.EventInput{
		Type:      models.EventTypeClick,
		Placement: placement,
		Creative:  creative,
		Campaign:  campaign,
		Meta:      s.requestMeta(c, req.PageURL, req.Referrer, req.SessionID),
	})
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": outcome.String()})
}

func (s *Server) PostEvent(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := s.settings.Config(ctx)
	if !cfg.AdsEnabled {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "ads_disabled"})
		return
	}
	if !hasAdsConsent(c) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": "no_consent"})
		return
	}

	var req models.EventRequest
	if err := c.ShouldBind(&req); err != nil || !validPageURL(req.PageURL) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_payload"})
		return
	}

	placement, err := s.ads.PlacementBySlug(ctx, req.Placement)
	if s.lookupFailed(err, "placement", req.Placement) {
		placement = nil
	}
	var campaign *models.Campaign
	if req.CampaignID != nil {
		found, err := s.ads.GetCampaign(ctx, *req.CampaignID)
		if !s.lookupFailed(err, "campaign", *req.CampaignID) {
			campaign = found
		}
	}

	outcome := s.recorder.Record(ctx, cfg, tracking.EventInput{
		Type:      req.EventType,
		Placement: placement,
		Campaign:  campaign,
		Meta:      s.requestMeta(c, req.PageURL, req.Referrer, req.SessionID),
	})
	if outcome == tracking.OutcomeFailed {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) GetAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	var since time.Time
	switch c.DefaultQuery("timeframe", "all") {
	case "1h":
		since = time.Now().Add(-time.Hour)
	case "24h":
		since = time.Now().Add(-24 * time.Hour)
	case "7d":
		since = time.Now().Add(-7 * 24 * time.Hour)
	case "30d":
		since = time.Now().Add(-30 * 24 * time.Hour)
	}

	totals, err := s.analytics.Totals(ctx, since)
	if err != nil {
		s.respondError(c, err)
		return
	}
	placements, err := s.analytics.PlacementStats(ctx, since, statsLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	creatives, err := s.analytics.CreativeStats(ctx, since, statsLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	// rollups only exist when event mirroring is enabled
	daily, err := s.analytics.DailyRollups(ctx, since)
	if err != nil {
		s.respondError(c, err)
		return
	}

	cfg := s.settings.Config(ctx)
	c.JSON(http.StatusOK, models.DashboardResponse{
		AdsEnabled:            cfg.AdsEnabled,
		AdNetworksEnabled:     cfg.AdNetworksEnabled,
		AffiliateEnabled:      cfg.AffiliateEnabled,
		AdAggressivenessLevel: cfg.Aggressiveness,
		Totals:                totals,
		Placements:            placements,
		Creatives:             creatives,
		Daily:                 daily,
	})
}

func (s *Server) ResolveAffiliate(c *gin.Context) {
	ctx := c.Request.Context()
	url, ok, err := s.affiliates.Resolve(ctx, s.settings.Config(ctx), c.Query("link"), c.Query("source"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if truthy(c.Query("redirect")) {
		c.Redirect(http.StatusFound, url)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	})
}

// lookupFailed reports whether an optional reference could not be loaded. Storage
// errors are logged; a missing record is expected and stays quiet.
func (s *Server) lookupFailed(err error, kind string, key interface{}) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.WithError(err).WithField(kind, key).Errorf("Failed to load %s", kind)
	}
	return true
}
