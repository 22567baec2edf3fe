package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/svanlaere/schaakclub-portal/calendar"
	"github.com/svanlaere/schaakclub-portal/models"
	"github.com/svanlaere/schaakclub-portal/repositories"
)

type CreateMakeupRoundInput struct {
	TournamentID     int
	AfterRoundNumber int
	Datum            time.Time
	Startuur         string
	Label            *string
}

// RoundService is the lifecycle manager for makeup rounds (inhaaldagen).
// Regular rounds come from the Sevilla import and are read-only here.
type RoundService interface {
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	ListRounds(ctx context.Context, tournamentID int) ([]*models.Round, error)
	CreateMakeupRound(ctx context.Context, input CreateMakeupRoundInput) (*models.Round, error)
	UpdateMakeupRoundDate(ctx context.Context, roundID int, datum time.Time, startuur *string) (*models.Round, error)
	DeleteMakeupRound(ctx context.Context, roundID int) error
}

type roundService struct {
	tx             repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	gameRepo       repositories.GameRepository
	policy         RoundNumberingPolicy
	calendarSync   calendar.Sync
	hub            ScheduleBroadcaster
	logger         *slog.Logger
}

func NewRoundService(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	gameRepo repositories.GameRepository,
	calendarSync calendar.Sync,
	hub ScheduleBroadcaster,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		gameRepo:       gameRepo,
		calendarSync:   calendarSync,
		hub:            hub,
		logger:         logger,
	}
}

// ListTournaments feeds the tournament picker on the kalender page.
func (s *roundService) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *roundService) ListRounds(ctx context.Context, tournamentID int) ([]*models.Round, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	rounds, err := s.roundRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds for tournament %d: %w", tournamentID, err)
	}

	games, err := s.gameRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for tournament %d: %w", tournamentID, err)
	}

	byRound := make(map[int][]models.Game, len(rounds))
	for _, g := range games {
		byRound[g.RoundID] = append(byRound[g.RoundID], *g)
	}
	for _, r := range rounds {
		if grouped, ok := byRound[r.ID]; ok {
			r.Games = grouped
		} else {
			r.Games = []models.Game{}
		}
	}
	return rounds, nil
}

// CreateMakeupRound inserts an inhaaldag after the given round number.
// The shift + insert runs in one transaction behind the tournament row
// lock; the calendar event is created afterwards, best-effort.
func (s *roundService) CreateMakeupRound(ctx context.Context, input CreateMakeupRoundInput) (*models.Round, error) {
	if err := validateSchedule(input.Datum, input.Startuur); err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", input.TournamentID, err)
	}

	round := &models.Round{
		TournamentID: input.TournamentID,
		Nummer:       s.policy.ComputeMakeupRoundNumber(input.AfterRoundNumber),
		Datum:        input.Datum,
		Startuur:     input.Startuur,
		Type:         models.RoundTypeMakeup,
	}

	txErr := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.LockForUpdate(ctx, exec, input.TournamentID); err != nil {
			return err
		}

		rounds, err := s.roundRepo.ListByTournament(ctx, exec, input.TournamentID)
		if err != nil {
			return err
		}

		// Make room at the computed slot. Because of the offset scheme
		// this only ever moves later makeup rounds; the Sevilla numbering
		// of regular rounds is deliberately left untouched.
		for _, shift := range s.policy.ShiftPlanAfter(rounds, round.Nummer, +1) {
			if err := s.roundRepo.UpdateNumber(ctx, exec, shift.RoundID, shift.NewNumber); err != nil {
				return err
			}
		}

		if input.Label != nil && *input.Label != "" {
			round.Label = input.Label
		} else {
			label := s.policy.NextMakeupDayLabel(rounds)
			round.Label = &label
		}

		return s.roundRepo.Create(ctx, exec, round)
	})
	if txErr != nil {
		if errors.Is(txErr, repositories.ErrRoundNumberTaken) {
			return nil, ErrRoundNumberConflict
		}
		return nil, fmt.Errorf("failed to create makeup round for tournament %d: %w", input.TournamentID, txErr)
	}

	round.Games = []models.Game{}

	// Calendar visibility is a convenience, not a scheduling correctness
	// requirement: a failure leaves the round without an event id.
	s.createCalendarEvent(ctx, tournament, round)

	s.hub.BroadcastSchedule(round.TournamentID, EventRoundCreated, round)
	return round, nil
}

func (s *roundService) UpdateMakeupRoundDate(ctx context.Context, roundID int, datum time.Time, startuur *string) (*models.Round, error) {
	round, err := s.getMakeupRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	uur := round.Startuur
	if startuur != nil {
		uur = *startuur
	}
	if err := validateSchedule(datum, uur); err != nil {
		return nil, err
	}

	if err := s.roundRepo.UpdateSchedule(ctx, roundID, datum, uur); err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to reschedule round %d: %w", roundID, err)
	}
	round.Datum = datum
	round.Startuur = uur

	if round.CalendarEventID != nil {
		s.updateCalendarEvent(ctx, round)
	}

	s.hub.BroadcastSchedule(round.TournamentID, EventRoundRescheduled, round)
	return round, nil
}

// DeleteMakeupRound removes an inhaaldag and its games, deletes the
// attached calendar entry first (tolerating its absence) and closes the
// numbering gap among the remaining makeup rounds.
func (s *roundService) DeleteMakeupRound(ctx context.Context, roundID int) error {
	round, err := s.getMakeupRound(ctx, roundID)
	if err != nil {
		return err
	}

	if round.CalendarEventID != nil {
		if err := s.calendarSync.DeleteEvent(ctx, *round.CalendarEventID); err != nil {
			s.logger.Error("failed to delete calendar event for makeup round",
				slog.Int("round_id", round.ID),
				slog.String("event_id", *round.CalendarEventID),
				slog.Any("error", err))
		}
	}

	txErr := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.LockForUpdate(ctx, exec, round.TournamentID); err != nil {
			return err
		}

		if err := s.roundRepo.Delete(ctx, exec, roundID); err != nil {
			return err
		}

		remaining, err := s.roundRepo.ListByTournament(ctx, exec, round.TournamentID)
		if err != nil {
			return err
		}
		for _, shift := range s.policy.ShiftPlanAfter(remaining, round.Nummer, -1) {
			if err := s.roundRepo.UpdateNumber(ctx, exec, shift.RoundID, shift.NewNumber); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, repositories.ErrRoundNotFound) {
			return ErrRoundNotFound
		}
		if errors.Is(txErr, repositories.ErrRoundNumberTaken) {
			return ErrRoundNumberConflict
		}
		return fmt.Errorf("failed to delete makeup round %d: %w", roundID, txErr)
	}

	s.hub.BroadcastSchedule(round.TournamentID, EventRoundDeleted, map[string]int{"round_id": roundID})
	return nil
}

func (s *roundService) getMakeupRound(ctx context.Context, roundID int) (*models.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", roundID, err)
	}
	if !round.IsMakeup() {
		return nil, ErrRoundNotMakeup
	}
	return round, nil
}

func (s *roundService) createCalendarEvent(ctx context.Context, tournament *models.Tournament, round *models.Round) {
	eventID, err := s.calendarSync.CreateEvent(ctx, calendar.EventInput{
		Title:        makeupEventTitle(tournament.Naam, round.Label),
		Description:  fmt.Sprintf("Inhaaldag voor %s", tournament.Naam),
		Type:         calendar.EventTypeMakeupDay,
		Datum:        round.Datum,
		Startuur:     round.Startuur,
		TournamentID: tournament.ID,
	})
	if err != nil {
		s.logger.Error("failed to create calendar event for makeup round",
			slog.Int("round_id", round.ID),
			slog.Any("error", err))
		return
	}

	if err := s.roundRepo.SetCalendarEventID(ctx, round.ID, &eventID); err != nil {
		s.logger.Error("failed to store calendar event id on makeup round",
			slog.Int("round_id", round.ID),
			slog.String("event_id", eventID),
			slog.Any("error", err))
		return
	}
	round.CalendarEventID = &eventID
}

func (s *roundService) updateCalendarEvent(ctx context.Context, round *models.Round) {
	title := ""
	if tournament, err := s.tournamentRepo.GetByID(ctx, round.TournamentID); err == nil {
		title = makeupEventTitle(tournament.Naam, round.Label)
	}

	patch := calendar.EventPatch{Datum: &round.Datum, Startuur: &round.Startuur}
	if title != "" {
		patch.Title = &title
	}
	if err := s.calendarSync.UpdateEvent(ctx, *round.CalendarEventID, patch); err != nil {
		s.logger.Error("failed to update calendar event for makeup round",
			slog.Int("round_id", round.ID),
			slog.String("event_id", *round.CalendarEventID),
			slog.Any("error", err))
	}
}

func makeupEventTitle(tournamentNaam string, label *string) string {
	if label != nil && *label != "" {
		return fmt.Sprintf("%s - %s", tournamentNaam, *label)
	}
	return fmt.Sprintf("%s - inhaaldag", tournamentNaam)
}

func validateSchedule(datum time.Time, startuur string) error {
	if datum.IsZero() {
		return fmt.Errorf("%w: ronde_datum is required", ErrInvalidSchedule)
	}
	if _, err := time.Parse("15:04", startuur); err != nil {
		return fmt.Errorf("%w: startuur must be HH:MM, got %q", ErrInvalidSchedule, startuur)
	}
	return nil
}
