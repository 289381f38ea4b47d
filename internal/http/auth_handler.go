package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindflow/internal/domain"
	"mindflow/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger     *zap.Logger
	reconciler *service.AuthReconciler
	magicLinks *service.MagicLinkService
	jwtServ    *service.JWTService
	captcha    service.CaptchaVerifier
	limiter    service.RateLimiter
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(
	logger *zap.Logger,
	reconciler *service.AuthReconciler,
	magicLinks *service.MagicLinkService,
	jwtServ *service.JWTService,
	captcha service.CaptchaVerifier,
	limiter service.RateLimiter,
) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		reconciler: reconciler,
		magicLinks: magicLinks,
		jwtServ:    jwtServ,
		captcha:    captcha,
		limiter:    limiter,
	}
}

// SignUp maneja POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		DisplayName  string `json:"display_name"`
		Password     string `json:"password" binding:"required"`
		CaptchaToken string `json:"captcha_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if !h.allowAndVerify(c, req.CaptchaToken) {
		return
	}

	user, err := h.reconciler.SignUp(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		if errors.Is(err, service.ErrInvalidEmail) || errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("signup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign up"})
		return
	}

	tokens, err := h.issueTokens(c, user, domain.ProviderEmail)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "tokens": tokens})
}

// SignIn maneja POST /auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required"`
		CaptchaToken string `json:"captcha_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signin request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if !h.allowAndVerify(c, req.CaptchaToken) {
		return
	}

	user, err := h.reconciler.SignInPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotLinked) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("signin failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
		return
	}

	tokens, err := h.issueTokens(c, user, domain.ProviderEmail)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": tokens})
}

// RequestMagicLink maneja POST /auth/magic/request.
// La respuesta es la misma exista o no la cuenta.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid magic link request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	_ = h.magicLinks.Request(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, gin.H{"status": "magic_link_sent"})
}

// VerifyMagicLink maneja GET /auth/magic/verify.
func (h *AuthHandler) VerifyMagicLink(c *gin.Context) {
	token := c.Query("token")

	user, created, err := h.magicLinks.Consume(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotLinked) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrMagicLinkInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired link"})
			return
		}
		h.logger.Error("magic link verify failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify link"})
		return
	}

	tokens, err := h.issueTokens(c, user, domain.ProviderMagicLink)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "created": created, "tokens": tokens})
}

// RefreshToken maneja POST /auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	tokens, err := h.jwtServ.RefreshPair(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid logout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	_ = h.jwtServ.RevokeRefresh(c.Request.Context(), req.RefreshToken)
	c.Status(http.StatusNoContent)
}

// allowAndVerify corre el rate limiter por IP y el CAPTCHA. Escribe la
// respuesta de error y devuelve false cuando el request no debe continuar.
func (h *AuthHandler) allowAndVerify(c *gin.Context, captchaToken string) bool {
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return false
	}
	if h.captcha != nil && !h.captcha.Verify(c.Request.Context(), captchaToken, c.ClientIP()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "captcha verification failed"})
		return false
	}
	return true
}

func (h *AuthHandler) issueTokens(c *gin.Context, user domain.User, provider domain.ProviderKind) (service.TokenPair, error) {
	if h.jwtServ == nil {
		return service.TokenPair{}, errors.New("jwt not configured")
	}
	return h.jwtServ.GeneratePair(c.Request.Context(), user, provider)
}
