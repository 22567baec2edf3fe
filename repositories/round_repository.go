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
	ErrRoundNotFound          = errors.New("round not found")
	ErrRoundNumberTaken       = errors.New("round number already taken in this tournament")
	ErrRoundTournamentInvalid = errors.New("round tournament conflict or invalid")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, id int) (*models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error)
	UpdateNumber(ctx context.Context, exec SQLExecutor, roundID, newNumber int) error
	UpdateSchedule(ctx context.Context, roundID int, datum time.Time, startuur string) error
	SetCalendarEventID(ctx context.Context, roundID int, eventID *string) error
	Delete(ctx context.Context, exec SQLExecutor, roundID int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roundColumns = `id, tournament_id, ronde_nummer, ronde_datum, startuur, type, label, calendar_event_id, created_at`

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	query := `
		INSERT INTO rounds
			(tournament_id, ronde_nummer, ronde_datum, startuur, type, label, calendar_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		round.TournamentID,
		round.Nummer,
		round.Datum,
		round.Startuur,
		round.Type,
		round.Label,
		round.CalendarEventID,
	).Scan(&round.ID, &round.CreatedAt)

	return r.handleRoundError(err)
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, id int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`

	round := &models.Round{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&round.ID,
		&round.TournamentID,
		&round.Nummer,
		&round.Datum,
		&round.Startuur,
		&round.Type,
		&round.Label,
		&round.CalendarEventID,
		&round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round by id %d: %w", id, err)
	}
	return round, nil
}

// ListByTournament returns the rounds in display order: date ascending,
// round number as tie-break. Pass an executor to read inside a
// transaction snapshot, nil for a plain read.
func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE tournament_id = $1
		ORDER BY ronde_datum ASC, ronde_nummer ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		var round models.Round
		if scanErr := rows.Scan(
			&round.ID,
			&round.TournamentID,
			&round.Nummer,
			&round.Datum,
			&round.Startuur,
			&round.Type,
			&round.Label,
			&round.CalendarEventID,
			&round.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", scanErr)
		}
		rounds = append(rounds, &round)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during round rows iteration: %w", err)
	}
	return rounds, nil
}

func (r *postgresRoundRepository) UpdateNumber(ctx context.Context, exec SQLExecutor, roundID, newNumber int) error {
	query := `UPDATE rounds SET ronde_nummer = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, newNumber, roundID)
	if err != nil {
		return r.handleRoundError(err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) UpdateSchedule(ctx context.Context, roundID int, datum time.Time, startuur string) error {
	query := `UPDATE rounds SET ronde_datum = $1, startuur = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, datum, startuur, roundID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) SetCalendarEventID(ctx context.Context, roundID int, eventID *string) error {
	query := `UPDATE rounds SET calendar_event_id = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, eventID, roundID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

// Delete removes the round; its games go with it through the
// ON DELETE CASCADE on games.round_id.
func (r *postgresRoundRepository) Delete(ctx context.Context, exec SQLExecutor, roundID int) error {
	query := `DELETE FROM rounds WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, roundID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) handleRoundError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "rounds_tournament_id_ronde_nummer_key":
			// unique_violation (23505) on the per-tournament number
			return ErrRoundNumberTaken
		case "rounds_tournament_id_fkey":
			return ErrRoundTournamentInvalid
		}
	}
	return err
}
