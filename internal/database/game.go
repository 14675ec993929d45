// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/scoresheet/internal/models"
)

// Game status values stored in games.status.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusDiscarded  = "discarded"
	StatusAbandoned  = "abandoned"
)

// CreateGame records a newly started game. Re-sending it is harmless.
func CreateGame(ctx context.Context, db Execer, id uuid.UUID, ownerID string, players []string, startedAt time.Time) error {
	q := `
		INSERT INTO games (id, owner_id, players, status, start_time)
		VALUES ($1, $2, $3, 'in_progress', $4)
		ON CONFLICT (id) DO UPDATE SET players = EXCLUDED.players
	`
	if _, err := db.Exec(ctx, q, id, ownerID, players, startedAt); err != nil {
		return fmt.Errorf("create game %s: %w", id, err)
	}
	return nil
}

// UpsertRoundScores writes one row per player for a closed round. A round that is persisted
// again overwrites the earlier rows.
func UpsertRoundScores(ctx context.Context, db Execer, rs models.RoundScores) error {
	// The games row normally exists already; this covers a game_started record that was lost.
	ensureGame := `
		INSERT INTO games (id, owner_id, status)
		VALUES ($1, $2, 'in_progress')
		ON CONFLICT (id) DO UPDATE SET
			status = CASE WHEN games.status = 'abandoned' THEN 'in_progress' ELSE games.status END,
			rounds_played = GREATEST(games.rounds_played, $3)
	`
	if _, err := db.Exec(ctx, ensureGame, rs.GameID, rs.OwnerID, rs.RoundNumber); err != nil {
		return fmt.Errorf("upsert game %s: %w", rs.GameID, err)
	}

	q := `
		INSERT INTO round_scores (game_id, round_number, player_name, bid, tricks_taken, final_score, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, round_number, player_name)
		DO UPDATE SET bid = $4, tricks_taken = $5, final_score = $6, closed_at = $7
	`
	closedAt := rs.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	for _, name := range sortedNames(rs.Scores) {
		_, err := db.Exec(ctx, q,
			rs.GameID, rs.RoundNumber, name, rs.Bids[name], rs.TricksTaken[name], rs.Scores[name], closedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert round %d for %q: %w", rs.RoundNumber, name, err)
		}
	}
	return nil
}

// CompleteGame stores the final totals and winner.
func CompleteGame(ctx context.Context, db Execer, out models.GameOutcome) error {
	q := `
		INSERT INTO games (id, owner_id, players, status, totals, winner, winner_score, rounds_played, end_time)
		VALUES ($1, $2, $3, 'completed', $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			players = $3, status = 'completed', totals = $4, winner = $5,
			winner_score = $6, rounds_played = $7, end_time = $8
	`
	_, err := db.Exec(ctx, q,
		out.GameID, out.OwnerID, out.Players, out.Totals, out.Winner, out.WinnerScore, out.Rounds, out.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("complete game %s: %w", out.GameID, err)
	}
	return nil
}

// DiscardGame marks a reset game so it no longer shows as in progress.
func DiscardGame(ctx context.Context, db Execer, id uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'discarded', end_time = NOW()
		WHERE id = $1 AND status <> 'completed'
	`
	if _, err := db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("discard game %s: %w", id, err)
	}
	return nil
}

// MarkAbandoned flags an in-progress game that has gone quiet.
func MarkAbandoned(ctx context.Context, db Execer, id uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", id, err)
	}
	return nil
}

// ListCompletedGames returns the owner's finished games, newest first.
func ListCompletedGames(ctx context.Context, ownerID string, limit int) ([]models.GameOutcome, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not connected")
	}
	q := `
		SELECT id, owner_id, players, COALESCE(totals, '{}'), COALESCE(winner, ''),
		       COALESCE(winner_score, 0), rounds_played, end_time
		FROM games
		WHERE owner_id = $1 AND status = 'completed'
		ORDER BY end_time DESC
		LIMIT $2
	`
	rows, err := DB.Query(ctx, q, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GameOutcome, error) {
		var g models.GameOutcome
		err := row.Scan(&g.GameID, &g.OwnerID, &g.Players, &g.Totals, &g.Winner, &g.WinnerScore, &g.Rounds, &g.CompletedAt)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
