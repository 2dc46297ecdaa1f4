package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"family-chat/internal/config"
	"family-chat/internal/db"
	apihttp "family-chat/internal/http"
	"family-chat/internal/llm"
	"family-chat/internal/repository"
	"family-chat/internal/service"
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

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	var (
		tokenStore  service.RefreshTokenStore
		chatLimiter service.RateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			chatLimiter = service.NewRedisRateLimiter(redisClient, time.Duration(cfg.ChatRateWindowSecs)*time.Second, cfg.ChatRateMax)
		}
		cancel()
	}
	if chatLimiter == nil {
		chatLimiter = service.NewMemoryRateLimiter(time.Duration(cfg.ChatRateWindowSecs)*time.Second, cfg.ChatRateMax)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.AuthSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	gate := service.NewFamilyGate(cfg.AllowedEmails())
	if len(cfg.AllowedEmails()) == 0 {
		logger.Warn("family allow-list is empty; the room will reject everyone")
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)

	userSvc := service.NewUserService(logger, userRepo)
	roomSvc := service.NewRoomService(logger, sessionRepo, messageRepo)
	chatSvc := service.NewChatService(logger, sessionRepo, messageRepo)

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc, cfg.OAuthProviders())
	roomHandler := apihttp.NewRoomHandler(logger, roomSvc)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc, llmClient, chatLimiter)

	router := apihttp.NewRouter(logger, jwtSvc, gate, userHandler, roomHandler, chatHandler)

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
