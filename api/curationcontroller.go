package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"curator/curation"
	"curator/types"
)

// RegisterCurationRoutes registers pipeline trigger endpoints.
func RegisterCurationRoutes(r *gin.Engine, factory *curation.Factory) {
	ctrl := &curationController{factory: factory}
	g := r.Group("/api/curation")
	g.POST("/run", ctrl.handleRun)
	g.POST("/items", ctrl.handleCurateOne)
}

type curationController struct {
	factory *curation.Factory
}

// RunRequest optionally restricts a pass to named sources.
type RunRequest struct {
	Sources []string `json:"sources,omitempty"`
}

// handleRun starts a pipeline pass asynchronously and returns the job
// ID immediately. A second run for the same tenant is refused while
// one is in flight.
func (ctrl *curationController) handleRun(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ts := ctrl.factory.DB.Tenant(org)
	if _, running, err := ts.RunningJob(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	} else if running {
		c.JSON(http.StatusConflict, gin.H{"error": curation.ErrJobAlreadyRunning.Error()})
		return
	}

	job, err := ts.CreateJob(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	curator := ctrl.factory.ForTenant(org)
	go func() {
		opts := curation.RunOptions{JobID: job.ID, Sources: req.Sources}
		_, err := curator.Run(context.Background(), opts, nil)
		if err != nil && !errors.Is(err, curation.ErrCancelled) {
			log.Printf("curation run %s failed: %v", job.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": string(types.JobRunning)})
}

// CurateItemRequest is one manually submitted item.
type CurateItemRequest struct {
	Link  string `json:"link" binding:"required"`
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// handleCurateOne runs the dedup/score/annotate decision for a single
// externally supplied item, synchronously and without job tracking.
func (ctrl *curationController) handleCurateOne(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	var req CurateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	curator := ctrl.factory.ForTenant(org)
	outcome, err := curator.CurateOne(c.Request.Context(), req.Link, req.Title, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outcome)
}
