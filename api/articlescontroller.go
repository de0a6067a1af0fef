package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"curator/store"
	"curator/types"
)

// RegisterArticleRoutes registers the review surface over persisted
// articles.
func RegisterArticleRoutes(r *gin.Engine, db *store.DB) {
	ctrl := &articlesController{db: db}
	g := r.Group("/api/articles")
	g.GET("", ctrl.handleList)
	g.GET("/:id", ctrl.handleGet)
	g.POST("/:id/status", ctrl.handleUpdateStatus)
}

type articlesController struct {
	db *store.DB
}

func (ctrl *articlesController) handleList(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := types.ArticleStatus(c.Query("status"))

	articles, total, err := ctrl.db.Tenant(org).ListArticles(c.Request.Context(), status, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "total": total, "page": page, "page_size": pageSize})
}

func (ctrl *articlesController) handleGet(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	article, err := ctrl.db.Tenant(org).GetArticle(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, article)
}

// UpdateStatusRequest moves an article through review.
type UpdateStatusRequest struct {
	Status types.ArticleStatus `json:"status" binding:"required"`
}

func (ctrl *articlesController) handleUpdateStatus(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Status {
	case types.StatusApproved, types.StatusRejected, types.StatusPendingReview:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	err := ctrl.db.Tenant(org).UpdateArticleStatus(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(req.Status)})
}
