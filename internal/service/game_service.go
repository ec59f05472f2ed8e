package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/internal/repository"
	"github.com/freeeve/casus-belli/api/internal/scenario"
	"github.com/freeeve/casus-belli/api/pkg/risk"
)

// DefaultSeatModel is the model identifier assigned to seats nobody claims.
const DefaultSeatModel = "gpt-4o-mini"

// GameService handles the game lifecycle outside of play: creation,
// seating, starting, and teardown. Every seat exists from creation; humans
// join by claiming a model-held seat before the game starts.
type GameService struct {
	games       repository.GameRepository
	players     repository.PlayerRepository
	territories repository.TerritoryRepository
	log         repository.GameLogRepository
	cache       repository.TurnStatusCache

	dealMu sync.Mutex
	deal   *rand.Rand
}

// NewGameService creates a GameService. rng shuffles the initial territory
// deal; tests inject a seeded source.
func NewGameService(
	games repository.GameRepository,
	players repository.PlayerRepository,
	territories repository.TerritoryRepository,
	log repository.GameLogRepository,
	cache repository.TurnStatusCache,
	rng *rand.Rand,
) *GameService {
	return &GameService{
		games:       games,
		players:     players,
		territories: territories,
		log:         log,
		cache:       cache,
		deal:        rng,
	}
}

// CreateGameParams describes a new game. Nation picks the creator's seat;
// empty means the scenario's first nation. Model names the generative
// model backing unclaimed seats.
type CreateGameParams struct {
	Name      string
	Scenario  string
	CreatorID string
	Nation    string
	ModelOnly bool
	Model     string
}

// CreateGame creates a game in waiting status with a full roster of seats.
// The creator takes one seat as a human unless ModelOnly is set; every
// other nation gets a model seat.
func (s *GameService) CreateGame(ctx context.Context, params CreateGameParams) (*model.Game, error) {
	scen, err := scenario.Load(params.Scenario)
	if err != nil {
		return nil, err
	}
	if params.Model == "" {
		params.Model = DefaultSeatModel
	}
	creatorNation := params.Nation
	if creatorNation == "" {
		creatorNation = scen.Nations[0]
	}
	if !containsName(scen.Nations, creatorNation) {
		return nil, ruleErrorf(
			fmt.Sprintf("available nations: %s", joinNames(scen.Nations)),
			"nation %q is not part of scenario %s", creatorNation, scen.Name)
	}

	game, err := s.games.Create(ctx, &model.Game{
		Name:        params.Name,
		CreatorID:   params.CreatorID,
		Scenario:    scen.Name,
		CurrentDate: scen.StartDate,
	})
	if err != nil {
		return nil, err
	}

	for _, nation := range scen.Nations {
		seat := &model.Player{
			GameID: game.ID,
			Nation: nation,
			Model:  params.Model,
		}
		if nation == creatorNation && !params.ModelOnly {
			seat.UserID = params.CreatorID
			seat.IsHuman = true
			seat.Model = ""
		}
		created, err := s.players.Create(ctx, seat)
		if err != nil {
			return nil, err
		}
		game.Players = append(game.Players, *created)
	}
	return game, nil
}

// JoinGame claims a model-held seat for a user before the game starts.
// Empty nation means the first unclaimed seat.
func (s *GameService) JoinGame(ctx context.Context, gameID, userID, nation string) (*model.Player, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.Status != risk.StatusWaiting {
		return nil, ErrGameNotWaiting
	}

	existing, err := s.players.FindByGameAndUser(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}

	var seat *model.Player
	for i := range game.Players {
		p := &game.Players[i]
		if p.IsHuman {
			if nation != "" && p.Nation == nation {
				return nil, ErrNationTaken
			}
			continue
		}
		if nation == "" || p.Nation == nation {
			seat = p
			break
		}
	}
	if seat == nil {
		return nil, ErrNoOpenSeat
	}

	if err := s.players.AssignUser(ctx, seat.ID, userID); err != nil {
		return nil, err
	}
	seat.UserID = userID
	seat.IsHuman = true
	seat.Model = ""
	return seat, nil
}

// StartGame deals territories and opens the setup phase. Creator only.
func (s *GameService) StartGame(ctx context.Context, gameID, userID string) (*model.Game, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.CreatorID != userID {
		return nil, ErrNotCreator
	}
	if game.Status != risk.StatusWaiting {
		return nil, ErrGameNotWaiting
	}
	scen, err := scenario.Load(game.Scenario)
	if err != nil {
		return nil, err
	}

	players := game.Players
	if len(players) < 2 {
		return nil, ruleErrorf("", "game %s has %d seats, need at least 2", game.ID, len(players))
	}

	// Shuffle the map and deal round-robin, one troop per territory.
	dealt := make([]scenario.Territory, len(scen.Territories))
	copy(dealt, scen.Territories)
	s.dealMu.Lock()
	s.deal.Shuffle(len(dealt), func(i, j int) { dealt[i], dealt[j] = dealt[j], dealt[i] })
	s.dealMu.Unlock()

	ownedCount := make(map[string]int, len(players))
	territories := make([]model.Territory, 0, len(dealt))
	for i, t := range dealt {
		owner := players[i%len(players)]
		ownedCount[owner.ID]++
		territories = append(territories, model.Territory{
			GameID:      game.ID,
			Name:        t.Name,
			DisplayName: t.DisplayName,
			OwnerID:     owner.ID,
			Troops:      1,
			AdjacentTo:  t.AdjacentTo,
			Region:      t.Region,
		})
	}
	if err := s.territories.BulkCreate(ctx, territories); err != nil {
		return nil, err
	}

	allotment := scen.SetupTroopsFor(len(players))
	for _, p := range players {
		remaining := allotment - ownedCount[p.ID]
		if remaining < 0 {
			remaining = 0
		}
		if err := s.players.UpdateSetupTroops(ctx, p.ID, remaining); err != nil {
			return nil, err
		}
	}

	if err := s.games.SetActive(ctx, gameID); err != nil {
		return nil, err
	}
	game.Status = risk.StatusActive
	game.Phase = risk.PhaseSetup
	game.CurrentTurn = 0
	game.CurrentPlayerID = players[0].ID
	game.CurrentDate = scen.StartDate
	if err := s.games.SaveTurnState(ctx, game); err != nil {
		return nil, err
	}

	if err := s.log.Append(ctx, game.ID, 0, "", "game_started", map[string]any{
		"scenario":     scen.Name,
		"players":      len(players),
		"setup_troops": allotment,
	}); err != nil {
		logWarn(err, "append game log", game.ID, "game_started")
	}
	return s.games.FindByID(ctx, gameID)
}

// GetGame returns a game with its players.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// ListOpenGames returns joinable games.
func (s *GameService) ListOpenGames(ctx context.Context) ([]model.Game, error) {
	return s.games.ListOpen(ctx)
}

// ListUserGames returns games a user created or holds a seat in.
func (s *GameService) ListUserGames(ctx context.Context, userID string) ([]model.Game, error) {
	return s.games.ListByUser(ctx, userID)
}

// StopGame finishes a game early with no winner. Creator only.
func (s *GameService) StopGame(ctx context.Context, gameID, userID string) error {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if game.CreatorID != userID {
		return ErrNotCreator
	}
	if game.Status == risk.StatusFinished {
		return nil
	}
	if err := s.games.SetFinished(ctx, gameID, ""); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.ClearGameData(ctx, gameID); err != nil {
			logWarn(err, "clear game cache", gameID, "stop_game")
		}
	}
	return nil
}

// DeleteGame removes a game and all its records. Creator only.
func (s *GameService) DeleteGame(ctx context.Context, gameID, userID string) error {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if game.CreatorID != userID {
		return ErrNotCreator
	}
	if err := s.games.Delete(ctx, gameID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.ClearGameData(ctx, gameID); err != nil {
			logWarn(err, "clear game cache", gameID, "delete_game")
		}
	}
	return nil
}
