package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"adlink-platform/internal/repository"
	"adlink-platform/internal/settings"

	"github.com/gin-gonic/gin"
)

var errInvalidID = errors.New("invalid id")

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, repository.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "locked"})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, settings.ErrInvalidPatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_patch", "details": err.Error()})
	default:
		_ = c.Error(err)
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}
