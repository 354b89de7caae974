package handlers

import (
	"time"

	"adlink-platform/internal/affiliates"
	"adlink-platform/internal/linking"
	"adlink-platform/internal/middleware"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/rotation"
	"adlink-platform/internal/settings"
	"adlink-platform/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Options struct {
	AdminToken  string
	CORSOrigins []string
	SettingsTTL time.Duration
	// Publisher mirrors recorded events; nil disables mirroring.
	Publisher tracking.EventPublisher
}

type Server struct {
	logger     *logrus.Logger
	validate   *validator.Validate
	adminToken string
	cors       []string

	ads        *repository.AdRepository
	analytics  *repository.AnalyticsRepository
	links      *repository.LinkRepository
	settings   *settings.Store
	engine     *rotation.Engine
	recorder   *tracking.Recorder
	refresher  *linking.Refresher
	affiliates *affiliates.Resolver
}

func NewServer(db *gorm.DB, logger *logrus.Logger, opts Options) *Server {
	adRepo := repository.NewAdRepository(db, logger)
	analyticsRepo := repository.NewAnalyticsRepository(db, logger)
	linkRepo := repository.NewLinkRepository(db, logger)

	return &Server{
		logger:     logger,
		validate:   validator.New(),
		adminToken: opts.AdminToken,
		cors:       opts.CORSOrigins,
		ads:        adRepo,
		analytics:  analyticsRepo,
		links:      linkRepo,
		settings:   settings.NewStore(repository.NewSettingsRepository(db), logger, opts.SettingsTTL),
		engine:     rotation.NewEngine(adRepo, logger),
		recorder:   tracking.NewRecorder(analyticsRepo, opts.Publisher, logger),
		refresher:  linking.NewRefresher(linkRepo, logger),
		affiliates: affiliates.NewResolver(repository.NewAffiliateRepository(db), logger),
	}
}

func (s *Server) Settings() *settings.Store {
	return s.settings
}

func (s *Server) Refresher() *linking.Refresher {
	return s.refresher
}

// Router wires every route onto a fresh gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggingMiddleware(s.logger))
	r.Use(middleware.CORSMiddleware(s.cors))

	admin := middleware.AdminAuth(s.adminToken)

	api := r.Group("/api/v1")
	{
		api.GET("/ads/placements", s.GetPlacements)
		api.GET("/ads/fill", s.FillAd)
		api.POST("/ads/click", s.PostClick)
		api.POST("/ads/events", s.PostEvent)
		api.GET("/ads/analytics", admin, s.GetAnalytics)
		api.GET("/affiliates/resolve", s.ResolveAffiliate)
		api.GET("/seo/suggestions/:sourceId", s.ListSuggestions)
	}

	staff := api.Group("/admin", admin)
	{
		staff.GET("/settings", s.GetSettings)
		staff.PATCH("/settings", s.PatchSettings)
		staff.POST("/settings/reset-cache", s.ResetSettingsCache)

		staff.GET("/placements", s.ListPlacements)
		staff.POST("/placements", s.CreatePlacement)
		staff.GET("/placements/:id/pool", s.GetPlacementPool)
		staff.POST("/placements/:id/enable", s.SetPlacementEnabled(true))
		staff.POST("/placements/:id/disable", s.SetPlacementEnabled(false))
		staff.POST("/placements/:id/lock", s.TogglePlacementLock)

		staff.GET("/campaigns", s.ListCampaigns)
		staff.POST("/campaigns", s.CreateCampaign)
		staff.POST("/campaigns/:id/enable", s.SetCampaignActive(true))
		staff.POST("/campaigns/:id/disable", s.SetCampaignActive(false))
		staff.POST("/campaigns/:id/lock", s.ToggleCampaignLock)

		staff.GET("/creatives", s.ListCreatives)
		staff.POST("/creatives", s.CreateCreative)
		staff.POST("/assignments", s.CreateAssignment)

		staff.POST("/seo/linkable", s.UpsertLinkable)
		staff.POST("/seo/suggestions/:sourceId/refresh", s.RefreshSuggestions)
		staff.PATCH("/seo/suggestions/:id", s.PatchSuggestion)
	}

	r.GET("/health", s.Health)
	r.GET("/metrics", s.Metrics())

	return r
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down server...")
	s.settings.Reset()
	s.logger.Info("Server shutdown complete")
}
