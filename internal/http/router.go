package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mindflow/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	linkH *LinkHandler,
	noteH *NoteHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	auth := r.Group("/auth")
	auth.POST("/signup", authH.SignUp)
	auth.POST("/signin", authH.SignIn)
	auth.POST("/magic/request", authH.RequestMagicLink)
	auth.GET("/magic/verify", authH.VerifyMagicLink)
	auth.POST("/refresh", authH.RefreshToken)
	auth.POST("/logout", authH.Logout)

	// Los callbacks OAuth llegan del navegador sin sesion; el token de
	// vinculacion dentro del state autoriza. Lo mismo con set-password.
	callbacks := r.Group("/users/auth/callback")
	callbacks.GET("/google", linkH.GoogleCallback)
	callbacks.GET("/linkedin", linkH.LinkedInCallback)
	r.POST("/users/auth/password", linkH.SetPassword)

	authed := r.Group("", JWTAuthMiddleware(jwtSvc))

	settings := authed.Group("/users/auth")
	settings.GET("/providers", linkH.ListProviders)
	settings.POST("/link", linkH.InitiateLink)
	settings.DELETE("/link/:provider", linkH.Unlink)

	notes := authed.Group("/notes")
	notes.POST("", noteH.CreateNote)
	notes.POST("/:id/process", noteH.ProcessNote)
	notes.GET("/similar", noteH.SimilarNotes)

	authed.POST("/plans", noteH.CreatePlan)

	support := authed.Group("/support")
	support.GET("/break", noteH.BreakSuggestion)
	support.GET("/celebrate", noteH.Celebration)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
