package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"curator/config"
	"curator/store"
)

// RegisterSettingsRoutes registers tenant configuration endpoints:
// curation settings and feed sources.
func RegisterSettingsRoutes(r *gin.Engine, db *store.DB) {
	ctrl := &settingsController{db: db}
	r.GET("/api/settings", ctrl.handleGet)
	r.PUT("/api/settings", ctrl.handlePut)
	r.GET("/api/sources", ctrl.handleListSources)
	r.POST("/api/sources", ctrl.handleAddSource)
}

type settingsController struct {
	db *store.DB
}

// handleGet returns the tenant's saved settings, or the system defaults
// when none have been saved yet.
func (ctrl *settingsController) handleGet(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	settings, err := ctrl.db.Tenant(org).LoadSettings(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"settings": config.Defaults(), "defaults": true})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings, "defaults": false})
}

func (ctrl *settingsController) handlePut(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	var settings config.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if settings.RelevanceThreshold < 0 || settings.RelevanceThreshold > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "relevance_threshold must be in [0, 10]"})
		return
	}
	if settings.SimilarityThreshold < 0 || settings.SimilarityThreshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "similarity_threshold must be in [0, 1]"})
		return
	}

	if err := ctrl.db.Tenant(org).SaveSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (ctrl *settingsController) handleListSources(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	sources, err := ctrl.db.Tenant(org).ListSources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// AddSourceRequest registers one feed source for the tenant.
type AddSourceRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required,url"`
}

func (ctrl *settingsController) handleAddSource(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	var req AddSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src := &store.Source{Name: req.Name, URL: req.URL, IsActive: true}
	if err := ctrl.db.Tenant(org).AddSource(c.Request.Context(), src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, src)
}
