package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/svanlaere/schaakclub-portal/models"
	"github.com/svanlaere/schaakclub-portal/repositories"
)

// PostponementResult identifies the rows touched by a postponement, so
// the caller can render or later undo it.
type PostponementResult struct {
	OriginalGameID int `json:"original_game_id"`
	NewGameID      int `json:"new_game_id"`
	NewRoundID     int `json:"new_round_id"`
}

type AddGameInput struct {
	RoundID   int
	Speler1ID int
	Speler2ID *int
	Result    *string
}

// PostponementService moves a single game into a makeup round while
// preserving the original as an immutable historical record.
type PostponementService interface {
	PostponeGame(ctx context.Context, gameID, makeupRoundID int) (*PostponementResult, error)
	UndoPostponement(ctx context.Context, originalGameID, newGameID int) error
	AddGameToMakeupRound(ctx context.Context, input AddGameInput) (*models.Game, error)
}

type postponementService struct {
	tx         repositories.TxRunner
	roundRepo  repositories.RoundRepository
	gameRepo   repositories.GameRepository
	userRepo   repositories.UserRepository
	notifier   NotificationDispatcher
	hub        ScheduleBroadcaster
	adminEmail string
	logger     *slog.Logger
}

func NewPostponementService(
	tx repositories.TxRunner,
	roundRepo repositories.RoundRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	notifier NotificationDispatcher,
	hub ScheduleBroadcaster,
	adminEmail string,
	logger *slog.Logger,
) PostponementService {
	return &postponementService{
		tx:         tx,
		roundRepo:  roundRepo,
		gameRepo:   gameRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		hub:        hub,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// PostponeGame marks the original game as postponed and clones it into
// the makeup round in one transaction. Whether the original was already
// played is deliberately not checked: the tornooileider may move a
// completed game.
func (s *postponementService) PostponeGame(ctx context.Context, gameID, makeupRoundID int) (*PostponementResult, error) {
	game, originalRound, err := s.gameRepo.GetByIDWithRound(ctx, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}
	if game.IsPostponed() {
		return nil, ErrGameAlreadyPostponed
	}

	target, err := s.roundRepo.GetByID(ctx, makeupRoundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", makeupRoundID, err)
	}
	if !target.IsMakeup() {
		return nil, ErrRoundNotMakeup
	}
	if target.TournamentID != originalRound.TournamentID {
		return nil, ErrCrossTournament
	}

	successor := &models.Game{
		RoundID:        makeupRoundID,
		Speler1ID:      game.Speler1ID,
		Speler2ID:      game.Speler2ID,
		Status:         models.GameStatusScheduled,
		OriginalGameID: &game.ID,
	}

	now := time.Now()
	txErr := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// The status guard inside MarkPostponed protects against a
		// concurrent postponement of the same game.
		if err := s.gameRepo.MarkPostponed(ctx, exec, game.ID, now); err != nil {
			return err
		}
		return s.gameRepo.Create(ctx, exec, successor)
	})
	if txErr != nil {
		if errors.Is(txErr, repositories.ErrGameNotPostponable) {
			return nil, ErrGameAlreadyPostponed
		}
		return nil, fmt.Errorf("failed to postpone game %d: %w", gameID, txErr)
	}

	s.notifyPostponement(ctx, game, originalRound, target)
	s.hub.BroadcastSchedule(target.TournamentID, EventGamePostponed, PostponementResult{
		OriginalGameID: game.ID,
		NewGameID:      successor.ID,
		NewRoundID:     makeupRoundID,
	})

	return &PostponementResult{
		OriginalGameID: game.ID,
		NewGameID:      successor.ID,
		NewRoundID:     makeupRoundID,
	}, nil
}

// UndoPostponement deletes the successor game and restores the original
// to its pre-postponement state. The makeup round itself is untouched,
// so there is no calendar interaction.
func (s *postponementService) UndoPostponement(ctx context.Context, originalGameID, newGameID int) error {
	original, round, err := s.gameRepo.GetByIDWithRound(ctx, originalGameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to get game %d: %w", originalGameID, err)
	}

	successor, err := s.gameRepo.GetByID(ctx, newGameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to get game %d: %w", newGameID, err)
	}
	if successor.OriginalGameID == nil || *successor.OriginalGameID != original.ID {
		return ErrGameLinkMismatch
	}

	txErr := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.gameRepo.Delete(ctx, exec, successor.ID); err != nil {
			return err
		}
		return s.gameRepo.ResetPostponement(ctx, exec, original.ID)
	})
	if txErr != nil {
		if errors.Is(txErr, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to undo postponement of game %d: %w", originalGameID, txErr)
	}

	s.hub.BroadcastSchedule(round.TournamentID, EventPostponementUndone, map[string]int{
		"original_game_id": originalGameID,
		"deleted_game_id":  newGameID,
	})
	return nil
}

// AddGameToMakeupRound creates an ad-hoc pairing in a makeup round, not
// linked to any original game.
func (s *postponementService) AddGameToMakeupRound(ctx context.Context, input AddGameInput) (*models.Game, error) {
	round, err := s.roundRepo.GetByID(ctx, input.RoundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", input.RoundID, err)
	}
	if !round.IsMakeup() {
		return nil, ErrRoundNotMakeup
	}
	if input.Speler1ID == 0 {
		return nil, ErrPlayerRequired
	}
	if input.Result != nil && !isValidResult(*input.Result) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResult, *input.Result)
	}

	speler1 := input.Speler1ID
	game := &models.Game{
		RoundID:   input.RoundID,
		Speler1ID: &speler1,
		Speler2ID: input.Speler2ID,
		Status:    models.GameStatusScheduled,
		Result:    input.Result,
	}
	if input.Result != nil {
		game.Status = models.GameStatusPlayed
		game.WinnaarID = models.DeriveWinner(input.Result, game.Speler1ID, game.Speler2ID)
	}

	if err := s.gameRepo.Create(ctx, nil, game); err != nil {
		if errors.Is(err, repositories.ErrGamePlayerInvalid) {
			return nil, fmt.Errorf("%w: unknown player", ErrValidationFailed)
		}
		return nil, fmt.Errorf("failed to add game to round %d: %w", input.RoundID, err)
	}

	s.hub.BroadcastSchedule(round.TournamentID, EventGameAdded, game)
	return game, nil
}

func isValidResult(result string) bool {
	switch result {
	case models.ResultWhiteWins, models.ResultBlackWins, models.ResultDraw:
		return true
	}
	return false
}

var postponementMailTemplate = template.Must(template.New("postponement").Parse(`
<p>Beste {{.Naam}},</p>
<p>De partij <strong>{{.Partij}}</strong> uit ronde {{.OudeRonde}} van {{.OudeDatum}}
is uitgesteld naar <strong>{{.NieuweLabel}}</strong> op {{.NieuweDatum}} om {{.Startuur}}.</p>
<p>Met sportieve groeten,<br>het bestuur</p>
`))

type postponementMailData struct {
	Naam        string
	Partij      string
	OudeRonde   int
	OudeDatum   string
	NieuweLabel string
	NieuweDatum string
	Startuur    string
}

// notifyPostponement mails both players and the tournament admin. Every
// send is individually wrapped: one failing recipient never blocks the
// others, and no failure ever reaches the caller.
func (s *postponementService) notifyPostponement(ctx context.Context, game *models.Game, from, to *models.Round) {
	recipients := s.collectRecipients(ctx, game)
	if len(recipients) == 0 {
		return
	}

	pairing := s.describePairing(ctx, game)

	var g errgroup.Group
	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			msg, err := s.buildPostponementMail(recipient, pairing, game, from, to)
			if err == nil {
				err = s.notifier.SendCustomEmail(ctx, msg)
			}
			if err != nil {
				s.logger.Error("failed to send postponement notification",
					slog.String("to", recipient.Email),
					slog.Int("game_id", game.ID),
					slog.Any("error", err))
			}
			// Best effort: never propagate.
			return nil
		})
	}
	_ = g.Wait()
}

func (s *postponementService) collectRecipients(ctx context.Context, game *models.Game) []*models.User {
	recipients := make([]*models.User, 0, 3)
	for _, playerID := range []*int{game.Speler1ID, game.Speler2ID} {
		if playerID == nil {
			continue
		}
		user, err := s.userRepo.GetByID(ctx, *playerID)
		if err != nil {
			s.logger.Error("failed to look up player for notification",
				slog.Int("player_id", *playerID),
				slog.Any("error", err))
			continue
		}
		recipients = append(recipients, user)
	}
	if s.adminEmail != "" {
		recipients = append(recipients, &models.User{Naam: "tornooileider", Email: s.adminEmail})
	}
	return recipients
}

func (s *postponementService) buildPostponementMail(recipient *models.User, pairing string, game *models.Game, from, to *models.Round) (EmailMessage, error) {
	data := postponementMailData{
		Naam:        recipient.Naam,
		Partij:      pairing,
		OudeRonde:   from.Nummer,
		OudeDatum:   from.Datum.Format("02-01-2006"),
		NieuweLabel: "inhaaldag",
		NieuweDatum: to.Datum.Format("02-01-2006"),
		Startuur:    to.Startuur,
	}
	if to.Label != nil && *to.Label != "" {
		data.NieuweLabel = *to.Label
	}

	var html bytes.Buffer
	if err := postponementMailTemplate.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("failed to render postponement mail: %w", err)
	}

	text := fmt.Sprintf("De partij %s uit ronde %d (%s) is uitgesteld naar %s op %s om %s.",
		data.Partij, data.OudeRonde, data.OudeDatum, data.NieuweLabel, data.NieuweDatum, data.Startuur)

	return EmailMessage{
		To:      recipient.Email,
		Subject: "Partij uitgesteld",
		HTML:    html.String(),
		Text:    text,
	}, nil
}

func (s *postponementService) describePairing(ctx context.Context, game *models.Game) string {
	names := make([]string, 0, 2)
	for _, playerID := range []*int{game.Speler1ID, game.Speler2ID} {
		if playerID == nil {
			names = append(names, "bye")
			continue
		}
		if user, err := s.userRepo.GetByID(ctx, *playerID); err == nil {
			names = append(names, user.Naam)
		} else {
			names = append(names, fmt.Sprintf("speler %d", *playerID))
		}
	}
	if len(names) != 2 {
		return "onbekende paring"
	}
	return names[0] + " - " + names[1]
}
