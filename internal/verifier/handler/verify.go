// Package handler exposes the verifier's HTTP API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/indenture-io/indenture/internal/verifier/model"
	"github.com/indenture-io/indenture/internal/verifier/repository"
	"github.com/indenture-io/indenture/internal/verifier/service"
)

// VerifyHandler handles transaction verification and verdict lookup routes.
type VerifyHandler struct {
	svc    *service.VerifyService
	logger *zap.Logger
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(svc *service.VerifyService, logger *zap.Logger) *VerifyHandler {
	return &VerifyHandler{svc: svc, logger: logger}
}

// Register registers all verification routes on the given router group.
func (h *VerifyHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/verify", h.Verify)

	verdicts := rg.Group("/verdicts")
	{
		verdicts.GET("", h.ListVerdicts)
		verdicts.GET("/:id", h.GetVerdict)
	}

	rg.GET("/stats", h.Stats)
}

// Verify handles POST /verify — runs contract verification and returns the verdict.
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req model.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := h.svc.Verify(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrMalformed) || errors.Is(err, service.ErrUnknownContract) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("verify transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, verdict)
}

// GetVerdict handles GET /verdicts/:id — returns a stored verdict.
func (h *VerifyHandler) GetVerdict(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verdict ID"})
		return
	}

	verdict, err := h.svc.GetVerdict(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "verdict not found"})
			return
		}
		h.logger.Error("get verdict", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load verdict"})
		return
	}

	c.JSON(http.StatusOK, verdict)
}

// ListVerdicts handles GET /verdicts — lists verdicts newest first.
// Query params: digest (exact match), outcome (accepted|rejected), limit, offset.
func (h *VerifyHandler) ListVerdicts(c *gin.Context) {
	if digest := c.Query("digest"); digest != "" {
		verdict, err := h.svc.GetVerdictByDigest(c.Request.Context(), digest)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "verdict not found"})
				return
			}
			h.logger.Error("get verdict by digest", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load verdict"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"verdicts": []*model.Verdict{verdict}, "count": 1})
		return
	}

	outcome := c.Query("outcome")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	verdicts, err := h.svc.ListVerdicts(c.Request.Context(), outcome, limit, offset)
	if err != nil {
		h.logger.Error("list verdicts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list verdicts"})
		return
	}
	if verdicts == nil {
		verdicts = []*model.Verdict{}
	}

	c.JSON(http.StatusOK, gin.H{"verdicts": verdicts, "count": len(verdicts)})
}

// Stats handles GET /stats — returns verdict counts by outcome.
func (h *VerifyHandler) Stats(c *gin.Context) {
	counts, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("verdict stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcomes": counts})
}
