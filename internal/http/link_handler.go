package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/service"
)

// LinkHandler mantiene dependencias para la configuracion de proveedores
// de autenticacion de una cuenta.
type LinkHandler struct {
	logger  *zap.Logger
	linking *service.LinkingService
}

func NewLinkHandler(logger *zap.Logger, linking *service.LinkingService) *LinkHandler {
	return &LinkHandler{
		logger:  logger,
		linking: linking,
	}
}

// ListProviders maneja GET /users/auth/providers.
func (h *LinkHandler) ListProviders(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	bindings, available, err := h.linking.ListLinked(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list providers failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list providers"})
		return
	}
	if bindings == nil {
		bindings = []domain.AuthBinding{}
	}
	c.JSON(http.StatusOK, gin.H{"providers": bindings, "available": available})
}

// InitiateLink maneja POST /users/auth/link.
func (h *LinkHandler) InitiateLink(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		Provider string `json:"provider" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid link request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user := domain.User{ID: claims.UserID, Email: claims.Email, DisplayName: claims.DisplayName}
	instruction, err := h.linking.InitiateLink(c.Request.Context(), user, domain.ProviderKind(req.Provider))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported provider"})
			return
		case errors.Is(err, service.ErrAlreadyLinked):
			c.JSON(http.StatusConflict, gin.H{"error": "provider already linked"})
			return
		default:
			h.logger.Error("initiate link failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start linking"})
			return
		}
	}
	c.JSON(http.StatusOK, instruction)
}

// GoogleCallback maneja GET /users/auth/callback/google.
func (h *LinkHandler) GoogleCallback(c *gin.Context) {
	h.completeOAuth(c, domain.ProviderGoogle)
}

// LinkedInCallback maneja GET /users/auth/callback/linkedin.
func (h *LinkHandler) LinkedInCallback(c *gin.Context) {
	h.completeOAuth(c, domain.ProviderLinkedIn)
}

// completeOAuth procesa el redirect del proveedor. Llega sin sesion: el token
// de vinculacion embebido en el state autoriza la operacion.
func (h *LinkHandler) completeOAuth(c *gin.Context, kind domain.ProviderKind) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback"})
		return
	}

	binding, err := h.linking.CompleteOAuthLink(c.Request.Context(), kind, code, state)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkTokenInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid linking token"})
			return
		case errors.Is(err, service.ErrLinkTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "linking token expired"})
			return
		default:
			h.logger.Error("oauth link failed", zap.Error(err), zap.String("provider", string(kind)))
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not complete linking"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"linked": binding})
}

// SetPassword maneja POST /users/auth/password.
func (h *LinkHandler) SetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.linking.SetPasswordForLink(c.Request.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrLinkTokenInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid linking token"})
			return
		case errors.Is(err, service.ErrLinkTokenExpired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "linking token expired"})
			return
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
			return
		default:
			h.logger.Error("set password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not set password"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_set"})
}

// Unlink maneja DELETE /users/auth/link/:provider.
func (h *LinkHandler) Unlink(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	kind := domain.ProviderKind(c.Param("provider"))
	if err := h.linking.Unlink(c.Request.Context(), claims.UserID, kind); err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported provider"})
			return
		case errors.Is(err, service.ErrLastAuthMethod):
			c.JSON(http.StatusConflict, gin.H{"error": "cannot remove your only sign-in method"})
			return
		default:
			h.logger.Error("unlink failed", zap.Error(err), zap.String("provider", string(kind)))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unlink provider"})
			return
		}
	}
	c.Status(http.StatusNoContent)
}
