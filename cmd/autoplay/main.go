// Command autoplay runs a model-only game from creation to victory,
// driving every seat through the agent turn loop. Useful for watching
// models play each other and for smoke-testing the full stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/casus-belli/api/internal/agent"
	"github.com/freeeve/casus-belli/api/internal/config"
	"github.com/freeeve/casus-belli/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/casus-belli/api/internal/repository/redis"
	"github.com/freeeve/casus-belli/api/internal/service"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		name     string
		scen     string
		model    string
		maxTurns int
		seed     int64
	)
	flag.StringVar(&name, "name", "autoplay", "Game name")
	flag.StringVar(&scen, "scenario", "classic-europe-1805", "Scenario name")
	flag.StringVar(&model, "model", "", "Model for every seat (default from service)")
	flag.IntVar(&maxTurns, "max-turns", 200, "Stop after this many turns")
	flag.Int64Var(&seed, "seed", 0, "Dice seed (0 = random)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepo(db)
	gameRepo := postgres.NewGameRepo(db)
	playerRepo := postgres.NewPlayerRepo(db)
	territoryRepo := postgres.NewTerritoryRepo(db)
	logRepo := postgres.NewGameLogRepo(db)

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	engine := service.NewEngineService(gameRepo, playerRepo, territoryRepo, logRepo, nil, rng)
	gameSvc := service.NewGameService(gameRepo, playerRepo, territoryRepo, logRepo, redisClient, rng)

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
	orch := agent.NewOrchestrator(engine, gateway, knowledge, redisClient, logRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// A synthetic user owns the game so lifecycle checks pass.
	owner, err := userRepo.Upsert(ctx, "autoplay", "autoplay", "Autoplay", "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create autoplay user")
	}

	game, err := gameSvc.CreateGame(ctx, service.CreateGameParams{
		Name:      fmt.Sprintf("%s %s", name, time.Now().Format("2006-01-02 15:04")),
		Scenario:  scen,
		CreatorID: owner.ID,
		ModelOnly: true,
		Model:     model,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create game")
	}
	if _, err := gameSvc.StartGame(ctx, game.ID, owner.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to start game")
	}
	log.Info().Str("gameId", game.ID).Str("scenario", scen).Int64("seed", seed).Msg("Game started")

	for ctx.Err() == nil {
		state, err := engine.State(ctx, game.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load game state")
		}
		if state.Game.Status == risk.StatusFinished {
			log.Info().Str("winnerId", state.Game.WinnerID).Int("turns", state.Game.CurrentTurn).Msg("Game over")
			return
		}
		if state.Game.CurrentTurn > maxTurns {
			log.Warn().Int("maxTurns", maxTurns).Msg("Turn limit reached, stopping")
			return
		}
		if state.Game.CurrentPlayerID == "" {
			log.Fatal().Msg("Active game has no current player")
		}

		if err := orch.RunTurn(ctx, game.ID, state.Game.CurrentPlayerID); err != nil {
			log.Error().Err(err).Str("playerId", state.Game.CurrentPlayerID).Msg("Turn failed, retrying after pause")
			select {
			case <-time.After(10 * time.Second):
			case <-ctx.Done():
			}
		}
	}
}
