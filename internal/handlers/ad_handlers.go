package handlers

import (
	"net/http"

	"adlink-platform/internal/models"
	"adlink-platform/internal/slug"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

func (s *Server) GetSettings(c *gin.Context) {
	row, err := s.settings.Settings(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) PatchSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := s.settings.Update(c.Request.Context(), patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) ResetSettingsCache(c *gin.Context) {
	s.settings.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) ListPlacements(c *gin.Context) {
	placements, err := s.ads.ListPlacements(c.Request.Context(), false)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"placements": placements})
}

func (s *Server) CreatePlacement(c *gin.Context) {
	var req models.PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := req.Slug
	if key == "" {
		key = slug.Make(req.Name)
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name does not produce a slug"})
		return
	}
	code := req.Code
	if code == "" {
		code = key
	}
	types := req.AllowedTypes
	if types == "" {
		types = "banner,native,html"
	}

	placement := &models.Placement{
		Name:              req.Name,
		Code:              code,
		Slug:              key,
		Description:       req.Description,
		AllowedTypes:      types,
		AllowedSizes:      req.AllowedSizes,
		PageContext:       req.PageContext,
		TemplateReference: req.TemplateReference,
		IsEnabled:         true,
		IsActive:          true,
	}
	if err := s.ads.CreatePlacement(c.Request.Context(), placement); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, placement)
}

// GetPlacementPool previews the rotation odds a placement currently serves with.
func (s *Server) GetPlacementPool(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	placement, err := s.ads.GetPlacement(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	cfg := s.settings.Config(ctx)
	pool, err := s.engine.Pool(ctx, placement, cfg)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"placement":      placement.Slug,
		"aggressiveness": cfg.Aggressiveness,
		"total":          pool.Total(),
		"entries":        pool.Shares(),
	})
}

func (s *Server) SetPlacementEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		placement, err := s.ads.SetPlacementEnabled(c.Request.Context(), id, enabled)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, placement)
	}
}

func (s *Server) TogglePlacementLock(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	placement, err := s.ads.TogglePlacementLock(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, placement)
}

func (s *Server) ListCampaigns(c *gin.Context) {
	campaigns, err := s.ads.ListCampaigns(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

func (s *Server) CreateCampaign(c *gin.Context) {
	var req models.CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_at is before start_at"})
		return
	}

	campaign := &models.Campaign{
		Name:           req.Name,
		IsActive:       req.IsActive == nil || *req.IsActive,
		Type:           req.Type,
		AdNetwork:      req.AdNetwork,
		Budget:         req.Budget,
		DailyCap:       req.DailyCap,
		TotalCap:       req.TotalCap,
		Priority:       req.Priority,
		Weight:         weightOrDefault(req.Weight),
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		TargetingRules: datatypes.NewJSONType(req.TargetingRules),
	}
	if err := s.ads.CreateCampaign(c.Request.Context(), campaign); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

func (s *Server) SetCampaignActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			s.respondError(c, err)
			return
		}
		campaign, err := s.ads.SetCampaignActive(c.Request.Context(), id, active)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func (s *Server) ToggleCampaignLock(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	campaign, err := s.ads.ToggleCampaignLock(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (s *Server) ListCreatives(c *gin.Context) {
	creatives, err := s.ads.ListCreatives(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"creatives": creatives})
}

func (s *Server) CreateCreative(c *gin.Context) {
	var req models.CreativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creative := &models.Creative{
		CampaignID:   req.CampaignID,
		Name:         req.Name,
		CreativeType: req.CreativeType,
		HTML:         req.HTML,
		ImageURL:     req.ImageURL,
		ClickURL:     req.ClickURL,
		Weight:       weightOrDefault(req.Weight),
		IsEnabled:    req.IsEnabled == nil || *req.IsEnabled,
		IsActive:     true,
	}
	if err := s.ads.CreateCreative(c.Request.Context(), creative); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, creative)
}

func (s *Server) CreateAssignment(c *gin.Context) {
	var req models.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment := &models.Assignment{
		PlacementID: req.PlacementID,
		CreativeID:  req.CreativeID,
		Weight:      weightOrDefault(req.Weight),
		IsEnabled:   req.IsEnabled == nil || *req.IsEnabled,
		IsActive:    true,
	}
	if err := s.ads.CreateAssignment(c.Request.Context(), assignment); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func weightOrDefault(w *int) int {
	if w == nil {
		return 1
	}
	return *w
}
