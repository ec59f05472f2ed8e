package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/casus-belli/api/internal/agent"
	"github.com/freeeve/casus-belli/api/internal/auth"
	"github.com/freeeve/casus-belli/api/internal/config"
	"github.com/freeeve/casus-belli/api/internal/handler"
	"github.com/freeeve/casus-belli/api/internal/logger"
	"github.com/freeeve/casus-belli/api/internal/middleware"
	"github.com/freeeve/casus-belli/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/casus-belli/api/internal/repository/redis"
	"github.com/freeeve/casus-belli/api/internal/service"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	userRepo := postgres.NewUserRepo(db)
	gameRepo := postgres.NewGameRepo(db)
	playerRepo := postgres.NewPlayerRepo(db)
	territoryRepo := postgres.NewTerritoryRepo(db)
	logRepo := postgres.NewGameLogRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := service.NewEngineService(gameRepo, playerRepo, territoryRepo, logRepo, wsHub, rng)
	gameSvc := service.NewGameService(gameRepo, playerRepo, territoryRepo, logRepo, redisClient, rng)

	// Model gateway and the optional knowledge archive
	gateway := agent.NewHTTPGateway(agent.GatewayConfig{
		BaseURL: cfg.ModelBaseURL,
		APIKey:  cfg.ModelAPIKey,
		Timeout: cfg.ModelTimeout,
	})
	var knowledge agent.KnowledgeService
	if cfg.KnowledgeBaseURL != "" {
		knowledge = agent.NewHTTPKnowledge(agent.KnowledgeConfig{
			BaseURL: cfg.KnowledgeBaseURL,
			APIKey:  cfg.KnowledgeAPIKey,
			Timeout: cfg.KnowledgeTimeout,
		})
	}

	// Agent turn loop
	orch := agent.NewOrchestrator(engine, gateway, knowledge, redisClient, logRepo)
	runner := agent.NewTurnRunner(gameRepo, orch, cfg.TurnPollInterval)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo)
	gameHandler := handler.NewGameHandler(gameSvc, engine, redisClient)
	actionHandler := handler.NewActionHandler(engine, playerRepo, knowledge)
	logHandler := handler.NewLogHandler(logRepo)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /me", authHandler.Me)
	api.HandleFunc("GET /scenarios", gameHandler.ListScenarios)
	api.HandleFunc("POST /games", gameHandler.CreateGame)
	api.HandleFunc("GET /games", gameHandler.ListGames)
	api.HandleFunc("GET /games/{id}", gameHandler.GetGame)
	api.HandleFunc("POST /games/{id}/join", gameHandler.JoinGame)
	api.HandleFunc("POST /games/{id}/start", gameHandler.StartGame)
	api.HandleFunc("POST /games/{id}/stop", gameHandler.StopGame)
	api.HandleFunc("DELETE /games/{id}", gameHandler.DeleteGame)
	api.HandleFunc("GET /games/{id}/turn-status", gameHandler.TurnStatus)
	api.HandleFunc("GET /games/{id}/snapshot", gameHandler.Snapshot)
	api.HandleFunc("POST /games/{id}/actions", actionHandler.SubmitAction)
	api.HandleFunc("GET /games/{id}/actions", actionHandler.AdmissibleActions)
	api.HandleFunc("GET /games/{id}/log", logHandler.ListLog)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS(cfg.AllowedOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the agent turn runner
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
