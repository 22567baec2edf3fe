package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/svanlaere/schaakclub-portal/models"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameRoundInvalid  = errors.New("game round conflict or invalid")
	ErrGamePlayerInvalid = errors.New("game player conflict or invalid")
	// ErrGameNotPostponable: the guarded postponement update matched no
	// row, either because the game is gone or already postponed.
	ErrGameNotPostponable = errors.New("game not found or already postponed")
)

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, id int) (*models.Game, error)
	// GetByIDWithRound loads a game together with its owning round, so
	// callers learn the tournament in one query.
	GetByIDWithRound(ctx context.Context, id int) (*models.Game, *models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Game, error)
	MarkPostponed(ctx context.Context, exec SQLExecutor, gameID int, at time.Time) error
	ResetPostponement(ctx context.Context, exec SQLExecutor, gameID int) error
	Delete(ctx context.Context, exec SQLExecutor, gameID int) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const gameColumns = `id, round_id, speler1_id, speler2_id, winnaar_id, status, result, uitgestelde_datum, original_game_id, created_at`

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	query := `
		INSERT INTO games
			(round_id, speler1_id, speler2_id, winnaar_id, status, result, uitgestelde_datum, original_game_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		game.RoundID,
		game.Speler1ID,
		game.Speler2ID,
		game.WinnaarID,
		game.Status,
		game.Result,
		game.PostponedAt,
		game.OriginalGameID,
	).Scan(&game.ID, &game.CreatedAt)

	return r.handleGameError(err)
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game := &models.Game{}
	err := r.scanGame(r.db.QueryRowContext(ctx, query, id), game)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan game by id %d: %w", id, err)
	}
	return game, nil
}

func (r *postgresGameRepository) GetByIDWithRound(ctx context.Context, id int) (*models.Game, *models.Round, error) {
	query := `
		SELECT g.id, g.round_id, g.speler1_id, g.speler2_id, g.winnaar_id, g.status, g.result,
		       g.uitgestelde_datum, g.original_game_id, g.created_at,
		       r.id, r.tournament_id, r.ronde_nummer, r.ronde_datum, r.startuur, r.type, r.label,
		       r.calendar_event_id, r.created_at
		FROM games g
		JOIN rounds r ON r.id = g.round_id
		WHERE g.id = $1`

	game := &models.Game{}
	round := &models.Round{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&game.ID, &game.RoundID, &game.Speler1ID, &game.Speler2ID, &game.WinnaarID,
		&game.Status, &game.Result, &game.PostponedAt, &game.OriginalGameID, &game.CreatedAt,
		&round.ID, &round.TournamentID, &round.Nummer, &round.Datum, &round.Startuur,
		&round.Type, &round.Label, &round.CalendarEventID, &round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrGameNotFound
		}
		return nil, nil, fmt.Errorf("failed to scan game %d with round: %w", id, err)
	}
	return game, round, nil
}

func (r *postgresGameRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Game, error) {
	query := `
		SELECT g.id, g.round_id, g.speler1_id, g.speler2_id, g.winnaar_id, g.status, g.result,
		       g.uitgestelde_datum, g.original_game_id, g.created_at
		FROM games g
		JOIN rounds r ON r.id = g.round_id
		WHERE r.tournament_id = $1
		ORDER BY g.round_id ASC, g.id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query games for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		var game models.Game
		if scanErr := rows.Scan(
			&game.ID, &game.RoundID, &game.Speler1ID, &game.Speler2ID, &game.WinnaarID,
			&game.Status, &game.Result, &game.PostponedAt, &game.OriginalGameID, &game.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", scanErr)
		}
		games = append(games, &game)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during game rows iteration: %w", err)
	}
	return games, nil
}

// MarkPostponed flips a game to postponed. The status guard in the WHERE
// clause makes a second postponement of the same game a no-op that
// surfaces as ErrGameNotPostponable instead of silently overwriting
// uitgestelde_datum.
func (r *postgresGameRepository) MarkPostponed(ctx context.Context, exec SQLExecutor, gameID int, at time.Time) error {
	query := `
		UPDATE games
		SET status = $1, uitgestelde_datum = $2
		WHERE id = $3 AND status <> $1`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.GameStatusPostponed, at, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotPostponable)
}

// ResetPostponement reverses MarkPostponed. A game that already carries
// an outcome goes back to played, one without goes back to scheduled.
func (r *postgresGameRepository) ResetPostponement(ctx context.Context, exec SQLExecutor, gameID int) error {
	query := `
		UPDATE games
		SET status = CASE WHEN result IS NULL THEN $1 ELSE $2 END,
		    uitgestelde_datum = NULL
		WHERE id = $3`

	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.GameStatusScheduled, models.GameStatusPlayed, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) Delete(ctx context.Context, exec SQLExecutor, gameID int) error {
	query := `DELETE FROM games WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) scanGame(row *sql.Row, game *models.Game) error {
	return row.Scan(
		&game.ID, &game.RoundID, &game.Speler1ID, &game.Speler2ID, &game.WinnaarID,
		&game.Status, &game.Result, &game.PostponedAt, &game.OriginalGameID, &game.CreatedAt,
	)
}

func (r *postgresGameRepository) handleGameError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "games_round_id_fkey":
			return ErrGameRoundInvalid
		case "games_speler1_id_fkey", "games_speler2_id_fkey", "games_winnaar_id_fkey":
			return ErrGamePlayerInvalid
		case "games_original_game_id_fkey":
			return ErrGameNotFound
		}
	}
	return err
}
