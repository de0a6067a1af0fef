package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"curator/store"
	"curator/types"
)

// RegisterJobRoutes registers the job query surface.
func RegisterJobRoutes(r *gin.Engine, db *store.DB) {
	ctrl := &jobsController{db: db}
	g := r.Group("/api/jobs")
	g.GET("", ctrl.handleList)
	g.GET("/:id", ctrl.handleGet)
	g.POST("/:id/cancel", ctrl.handleCancel)
	g.DELETE("/:id", ctrl.handleDelete)
	g.DELETE("", ctrl.handleDeleteOld)
}

type jobsController struct {
	db *store.DB
}

func (ctrl *jobsController) handleList(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := types.JobStatus(c.Query("status"))

	jobs, total, err := ctrl.db.Tenant(org).ListJobs(c.Request.Context(), status, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": total, "page": page, "page_size": pageSize})
}

func (ctrl *jobsController) handleGet(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	job, err := ctrl.db.Tenant(org).GetJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleCancel requests cooperative cancellation of a running job.
// Cancelling an already-terminal job is a no-op, not an error.
func (ctrl *jobsController) handleCancel(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	err := ctrl.db.Tenant(org).CancelJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancellation requested"})
}

func (ctrl *jobsController) handleDelete(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	err := ctrl.db.Tenant(org).DeleteJob(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// handleDeleteOld is the retention cleanup: removes terminal jobs
// older than the given number of days. Running jobs are never touched.
func (ctrl *jobsController) handleDeleteOld(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("older_than_days", "30"))
	if err != nil || days < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "older_than_days must be a positive integer"})
		return
	}

	deleted, err := ctrl.db.Tenant(org).DeleteJobsOlderThan(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
