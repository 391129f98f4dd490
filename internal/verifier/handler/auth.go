package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/indenture-io/indenture/internal/identity"
)

// AuthHandler exchanges the static admin secret for session tokens.
type AuthHandler struct {
	tokens      *identity.TokenIssuer
	adminSecret string
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler. adminSecret empty disables issuance.
func NewAuthHandler(tokens *identity.TokenIssuer, adminSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, adminSecret: adminSecret, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/token", h.IssueToken)
}

type tokenRequest struct {
	Secret  string `json:"secret" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Role    string `json:"role" binding:"required"`
}

// IssueToken handles POST /auth/token — exchanges the admin secret for a
// session token carrying the requested role.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.adminSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token issuance is not configured"})
		return
	}

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.adminSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	switch req.Role {
	case identity.RoleOperator, identity.RoleAuditor, identity.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	token, err := h.tokens.Issue(req.Subject, req.Role)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"role":       req.Role,
		"expires_in": int(h.tokens.TTL().Seconds()),
	})
}
