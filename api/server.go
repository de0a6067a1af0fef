// Package api exposes the curation pipeline and job query surface
// over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"curator/curation"
	"curator/store"
)

const orgHeader = "X-Org-ID"

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(factory *curation.Factory, db *store.DB) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterCurationRoutes(r, factory)
	RegisterJobRoutes(r, db)
	RegisterArticleRoutes(r, db)
	RegisterSettingsRoutes(r, db)
	return r
}

// RegisterHealthRoutes registers health check endpoints.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", handleHealth)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// orgID extracts the tenant identifier from the request, aborting
// with 400 when missing. Authentication happens upstream; this service
// trusts the header it is handed.
func orgID(c *gin.Context) (string, bool) {
	org := c.GetHeader(orgHeader)
	if org == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": orgHeader + " header is required"})
		return "", false
	}
	return org, true
}
