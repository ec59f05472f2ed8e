package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/freeeve/casus-belli/api/pkg/risk"
)

func newGameService(f *fixture, seed int64) *GameService {
	return NewGameService(f.games, f.players, f.territories, f.logs, nil, rand.New(rand.NewSource(seed)))
}

func TestCreateGameSeatsAllNations(t *testing.T) {
	f := newFixture(10)
	svc := newGameService(f, 10)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameParams{
		Name:      "war of the third coalition",
		Scenario:  "classic-europe-1805",
		CreatorID: "user-1",
		Nation:    "france",
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if game.Status != risk.StatusWaiting {
		t.Errorf("expected waiting status, got %s", game.Status)
	}
	if len(game.Players) != 6 {
		t.Fatalf("expected 6 seats, got %d", len(game.Players))
	}

	humans, models := 0, 0
	for _, p := range game.Players {
		if p.IsHuman {
			humans++
			if p.Nation != "france" || p.UserID != "user-1" {
				t.Errorf("expected creator seated as france, got %+v", p)
			}
		} else {
			models++
			if p.Model != DefaultSeatModel {
				t.Errorf("expected default model seat, got %q", p.Model)
			}
		}
	}
	if humans != 1 || models != 5 {
		t.Errorf("expected 1 human and 5 model seats, got %d/%d", humans, models)
	}
}

func TestCreateGameModelOnly(t *testing.T) {
	f := newFixture(11)
	svc := newGameService(f, 11)

	game, err := svc.CreateGame(context.Background(), CreateGameParams{
		Name:      "spectator match",
		Scenario:  "classic-europe-1805",
		CreatorID: "user-1",
		ModelOnly: true,
		Model:     "gpt-4o",
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for _, p := range game.Players {
		if p.IsHuman || p.Model != "gpt-4o" {
			t.Errorf("expected every seat model-driven, got %+v", p)
		}
	}
}

func TestCreateGameRejectsUnknownNation(t *testing.T) {
	f := newFixture(12)
	svc := newGameService(f, 12)

	_, err := svc.CreateGame(context.Background(), CreateGameParams{
		Name: "bad", Scenario: "classic-europe-1805", CreatorID: "u", Nation: "atlantis",
	})
	if _, ok := AsRuleError(err); !ok {
		t.Fatalf("expected rule error for unknown nation, got %v", err)
	}
}

func TestJoinGameClaimsSeat(t *testing.T) {
	f := newFixture(13)
	svc := newGameService(f, 13)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameParams{
		Name: "open table", Scenario: "classic-europe-1805", CreatorID: "user-1", Nation: "france",
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	seat, err := svc.JoinGame(ctx, game.ID, "user-2", "russia")
	if err != nil {
		t.Fatalf("join game: %v", err)
	}
	if !seat.IsHuman || seat.UserID != "user-2" || seat.Nation != "russia" {
		t.Errorf("expected russia claimed by user-2, got %+v", seat)
	}
	if got := f.player(t, seat.ID); got.Model != "" {
		t.Errorf("expected model cleared on claimed seat, got %q", got.Model)
	}

	if _, err := svc.JoinGame(ctx, game.ID, "user-2", "austria"); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("expected ErrAlreadyJoined, got %v", err)
	}
	if _, err := svc.JoinGame(ctx, game.ID, "user-3", "france"); !errors.Is(err, ErrNationTaken) {
		t.Errorf("expected ErrNationTaken, got %v", err)
	}

	// Empty nation claims the first open seat.
	seat, err = svc.JoinGame(ctx, game.ID, "user-3", "")
	if err != nil {
		t.Fatalf("join any: %v", err)
	}
	if !seat.IsHuman {
		t.Errorf("expected a human seat, got %+v", seat)
	}
}

func TestStartGameDealsTerritories(t *testing.T) {
	f := newFixture(14)
	svc := newGameService(f, 14)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameParams{
		Name: "the deal", Scenario: "classic-europe-1805", CreatorID: "user-1",
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	if _, err := svc.StartGame(ctx, game.ID, "someone-else"); !errors.Is(err, ErrNotCreator) {
		t.Errorf("expected ErrNotCreator, got %v", err)
	}

	started, err := svc.StartGame(ctx, game.ID, "user-1")
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if started.Status != risk.StatusActive {
		t.Errorf("expected active status, got %s", started.Status)
	}
	if started.Phase != risk.PhaseSetup {
		t.Errorf("expected setup phase, got %s", started.Phase)
	}
	if started.CurrentPlayerID != started.Players[0].ID {
		t.Errorf("expected first seat to open setup")
	}

	territories, err := f.territories.ListByGame(ctx, game.ID)
	if err != nil {
		t.Fatalf("list territories: %v", err)
	}
	if len(territories) != 24 {
		t.Fatalf("expected 24 territories dealt, got %d", len(territories))
	}
	perOwner := make(map[string]int)
	for _, terr := range territories {
		if terr.OwnerID == "" {
			t.Errorf("territory %s dealt without an owner", terr.Name)
		}
		if terr.Troops != 1 {
			t.Errorf("territory %s dealt with %d troops", terr.Name, terr.Troops)
		}
		perOwner[terr.OwnerID]++
	}
	for owner, count := range perOwner {
		if count != 4 {
			t.Errorf("expected an even 4-territory deal, owner %s got %d", owner, count)
		}
	}

	// 20 troops per seat at 6 players, minus the 4 already on the map.
	for _, p := range started.Players {
		if got := f.player(t, p.ID).SetupTroopsRemaining; got != 16 {
			t.Errorf("expected 16 setup troops for %s, got %d", p.Nation, got)
		}
	}

	if _, err := svc.StartGame(ctx, game.ID, "user-1"); !errors.Is(err, ErrGameNotWaiting) {
		t.Errorf("expected ErrGameNotWaiting on double start, got %v", err)
	}
	if _, err := svc.JoinGame(ctx, game.ID, "user-2", ""); !errors.Is(err, ErrGameNotWaiting) {
		t.Errorf("expected ErrGameNotWaiting joining a started game, got %v", err)
	}
}

func TestStopAndDeleteGame(t *testing.T) {
	f := newFixture(15)
	svc := newGameService(f, 15)
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameParams{
		Name: "short lived", Scenario: "classic-europe-1805", CreatorID: "user-1",
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	if err := svc.StopGame(ctx, game.ID, "intruder"); !errors.Is(err, ErrNotCreator) {
		t.Errorf("expected ErrNotCreator, got %v", err)
	}
	if err := svc.StopGame(ctx, game.ID, "user-1"); err != nil {
		t.Fatalf("stop game: %v", err)
	}
	stopped, err := svc.GetGame(ctx, game.ID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if stopped.Status != risk.StatusFinished || stopped.WinnerID != "" {
		t.Errorf("expected finished with no winner, got %s/%q", stopped.Status, stopped.WinnerID)
	}

	if err := svc.DeleteGame(ctx, game.ID, "user-1"); err != nil {
		t.Fatalf("delete game: %v", err)
	}
	if err := svc.DeleteGame(ctx, game.ID, "user-1"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound after delete, got %v", err)
	}
}
