package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/casus-belli/api/internal/model"
)

// TerritoryRepo handles territory database operations.
type TerritoryRepo struct {
	db *sql.DB
}

// NewTerritoryRepo creates a TerritoryRepo.
func NewTerritoryRepo(db *sql.DB) *TerritoryRepo {
	return &TerritoryRepo{db: db}
}

const territoryColumns = `id, game_id, name, display_name, owner_id, troops, adjacent_to, region`

// BulkCreate inserts all territories for a game in one transaction. Called
// once at game start from scenario data.
func (r *TerritoryRepo) BulkCreate(ctx context.Context, territories []model.Territory) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range territories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO territories (game_id, name, display_name, owner_id, troops, adjacent_to, region)
			 VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7)`,
			t.GameID, t.Name, t.DisplayName, t.OwnerID, t.Troops, pq.Array(t.AdjacentTo), t.Region,
		)
		if err != nil {
			return fmt.Errorf("insert territory %s: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// FindByName returns a territory by its stable name or display alias,
// case-insensitively, or (nil, nil) if absent.
func (r *TerritoryRepo) FindByName(ctx context.Context, gameID, name string) (*model.Territory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+territoryColumns+` FROM territories
		 WHERE game_id = $1 AND (lower(name) = lower($2) OR lower(display_name) = lower($2))`,
		gameID, name)
	territory, err := scanTerritory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find territory: %w", err)
	}
	return territory, nil
}

// ListByGame returns every territory in a game, ordered by name.
func (r *TerritoryRepo) ListByGame(ctx context.Context, gameID string) ([]model.Territory, error) {
	return r.list(ctx, `SELECT `+territoryColumns+` FROM territories WHERE game_id = $1 ORDER BY name`, gameID)
}

// ListByOwner returns a player's territories, ordered by name.
func (r *TerritoryRepo) ListByOwner(ctx context.Context, gameID, ownerID string) ([]model.Territory, error) {
	return r.list(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE game_id = $1 AND owner_id = $2 ORDER BY name`,
		gameID, ownerID)
}

// CountByOwner returns how many territories a player owns.
func (r *TerritoryRepo) CountByOwner(ctx context.Context, gameID, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM territories WHERE game_id = $1 AND owner_id = $2`,
		gameID, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count territories: %w", err)
	}
	return count, nil
}

// UpdateTroops sets one territory's troop count.
func (r *TerritoryRepo) UpdateTroops(ctx context.Context, territoryID string, troops int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE territories SET troops = $1 WHERE id = $2`, troops, territoryID)
	if err != nil {
		return fmt.Errorf("update troops: %w", err)
	}
	return nil
}

// UpdateTroopsPair sets two territories' troop counts in one transaction,
// so combat losses and fortify moves never half-apply.
func (r *TerritoryRepo) UpdateTroopsPair(ctx context.Context, aID string, aTroops int, bID string, bTroops int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE territories SET troops = $1 WHERE id = $2`, aTroops, aID); err != nil {
		return fmt.Errorf("update troops %s: %w", aID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE territories SET troops = $1 WHERE id = $2`, bTroops, bID); err != nil {
		return fmt.Errorf("update troops %s: %w", bID, err)
	}
	return tx.Commit()
}

// Transfer reassigns a territory's owner and troop count atomically.
func (r *TerritoryRepo) Transfer(ctx context.Context, territoryID, newOwnerID string, troops int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE territories SET owner_id = NULLIF($1, '')::uuid, troops = $2 WHERE id = $3`,
		newOwnerID, troops, territoryID)
	if err != nil {
		return fmt.Errorf("transfer territory: %w", err)
	}
	return nil
}

func (r *TerritoryRepo) list(ctx context.Context, query string, args ...any) ([]model.Territory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	defer rows.Close()

	var territories []model.Territory
	for rows.Next() {
		territory, err := scanTerritory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		territories = append(territories, *territory)
	}
	return territories, rows.Err()
}

func scanTerritory(s scanner) (*model.Territory, error) {
	var t model.Territory
	var ownerID sql.NullString
	err := s.Scan(&t.ID, &t.GameID, &t.Name, &t.DisplayName, &ownerID, &t.Troops,
		pq.Array(&t.AdjacentTo), &t.Region)
	if err != nil {
		return nil, err
	}
	t.OwnerID = ownerID.String
	return &t, nil
}
