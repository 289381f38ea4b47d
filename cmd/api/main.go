package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"mindflow/internal/config"
	"mindflow/internal/db"
	"mindflow/internal/email"
	apihttp "mindflow/internal/http"
	"mindflow/internal/llm"
	"mindflow/internal/oauth"
	"mindflow/internal/repository"
	"mindflow/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	bindingRepo := repository.NewPgAuthBindingRepository(pool)
	tokenRepo := repository.NewPgLinkingTokenRepository(pool)
	noteRepo := repository.NewPgNoteRepository(pool)
	embeddingRepo := repository.NewPgNoteEmbeddingRepository(pool)
	planRepo := repository.NewPgPlanRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		authLimiter  service.RateLimiter
		magicLimiter service.RateLimiter
		tokenStore   service.RefreshTokenStore
		magicStore   service.MagicLinkStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			authLimiter = service.NewRedisRateLimiter(redisClient, time.Minute, 20, "auth:rate:ip:")
			magicLimiter = service.NewRedisRateLimiter(redisClient, 10*time.Minute, 3, "auth:rate:magic:")
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			magicStore = service.NewRedisMagicLinkStore(redisClient)
		}
		cancel()
	}
	if authLimiter == nil {
		authLimiter = service.NewRateLimiter(time.Minute, 20)
	}
	if magicLimiter == nil {
		magicLimiter = service.NewRateLimiter(10*time.Minute, 3)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbedModel, logger)
	exchanger := oauth.NewHTTPExchanger(cfg.AppBaseURL, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.LinkedInClientID, cfg.LinkedInClientSecret)
	captcha := service.NewTurnstileVerifier(cfg.TurnstileSecretKey, cfg.IsProduction(), logger)

	reconciler := service.NewAuthReconciler(logger, userRepo, bindingRepo)
	linkingSvc := service.NewLinkingService(logger, userRepo, bindingRepo, tokenRepo, reconciler, exchanger, emailSender)
	magicSvc := service.NewMagicLinkService(logger, reconciler, magicStore, emailSender, magicLimiter, cfg.AppBaseURL)
	gateway := service.NewAIGateway(logger, llmClient, embeddingRepo)
	noteSvc := service.NewNoteService(logger, noteRepo, planRepo, gateway)

	authHandler := apihttp.NewAuthHandler(logger, reconciler, magicSvc, jwtSvc, captcha, authLimiter)
	linkHandler := apihttp.NewLinkHandler(logger, linkingSvc)
	noteHandler := apihttp.NewNoteHandler(logger, noteSvc)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, linkHandler, noteHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
