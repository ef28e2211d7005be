package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loangraph/microlend/internal/auth"
	"github.com/loangraph/microlend/internal/http/middleware"
)

type AuthHandler struct {
	jwt       *auth.JWTManager
	cookieCfg auth.CookieConfig
	accessTTL time.Duration
}

type devTokenRequest struct {
	Principal string `json:"principal" binding:"required"`
	Role      string `json:"role"`
}

func NewAuthHandler(jwt *auth.JWTManager, cookieCfg auth.CookieConfig, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{jwt: jwt, cookieCfg: cookieCfg, accessTTL: accessTTL}
}

// DevToken issues an access token for any principal. Only routed outside
// production; real deployments mint tokens from their identity provider.
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	principal := strings.TrimSpace(req.Principal)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != "" && role != auth.RoleUser && role != auth.RoleOperator {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		return
	}

	token, err := h.jwt.Mint(principal, role, h.accessTTL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_principal"})
		return
	}
	auth.SetAccessCookie(c.Writer, h.cookieCfg, token, h.accessTTL)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.accessTTL.Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	auth.ClearAccessCookie(c.Writer, h.cookieCfg)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"principal": middleware.Principal(c),
		"role":      c.GetString(middleware.RoleKey),
	})
}
