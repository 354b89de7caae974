package handlers

import (
	"net/http"
	"strconv"

	"adlink-platform/internal/linking"
	"adlink-platform/internal/models"

	"github.com/gin-gonic/gin"
)

func (s *Server) UpsertLinkable(c *gin.Context) {
	var req models.LinkableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	entity, err := s.refresher.RefreshLinkableEntity(ctx, s.settings.Config(ctx),
		linking.ContentRef{Type: req.ContentType, ID: req.ObjectID}, req.Title, req.URL, req.Keywords)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if entity == nil {
		c.JSON(http.StatusOK, gin.H{"skipped": "seo_disabled"})
		return
	}
	c.JSON(http.StatusOK, entity)
}

// RefreshSuggestions regenerates the suggestions of one source against every active entity.
func (s *Server) RefreshSuggestions(c *gin.Context) {
	id, err := paramID(c, "sourceId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	limit := linking.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
	}

	ctx := c.Request.Context()
	source, err := s.links.GetLinkable(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	candidates, err := s.links.ListLinkables(ctx, true)
	if err != nil {
		s.respondError(c, err)
		return
	}

	written, err := s.refresher.SuggestLinks(ctx, s.settings.Config(ctx), source, candidates, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": source.ID, "written": written})
}

func (s *Server) ListSuggestions(c *gin.Context) {
	id, err := paramID(c, "sourceId")
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if !s.settings.Config(ctx).SEOEnabled {
		c.JSON(http.StatusOK, gin.H{"suggestions": []models.LinkSuggestion{}})
		return
	}
	suggestions, err := s.links.Suggestions(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (s *Server) PatchSuggestion(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var patch models.SuggestionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	suggestion, err := s.links.UpdateSuggestion(c.Request.Context(), id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}
