package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanlaere/schaakclub-portal/models"
)

type postponementFixture struct {
	store    *fakeStore
	notifier *fakeNotifier
	hub      *fakeHub
	service  PostponementService
}

func newPostponementFixture() *postponementFixture {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	hub := &fakeHub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewPostponementService(
		fakeTxRunner{},
		&fakeRoundRepo{store: store},
		&fakeGameRepo{store: store},
		&fakeUserRepo{store: store},
		notifier,
		hub,
		"tornooileider@schaakclub.be",
		logger,
	)
	return &postponementFixture{store: store, notifier: notifier, hub: hub, service: service}
}

// seedPostponable sets up a regular round with one game between two
// known players and an empty makeup round in the same tournament.
func (fx *postponementFixture) seedPostponable(t *testing.T) (*models.Game, *models.Round, *models.Round) {
	t.Helper()
	tournament := fx.store.addTournament("Clubkampioenschap")
	regular := fx.store.addRound(tournament.ID, 3,
		time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC), models.RoundTypeRegular)
	makeup := fx.store.addRound(tournament.ID, 1003,
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), models.RoundTypeMakeup)

	jan := fx.store.addUser("Jan Peeters", "jan@schaakclub.be")
	mieke := fx.store.addUser("Mieke Claes", "mieke@schaakclub.be")
	game := fx.store.addGame(regular.ID, &jan.ID, &mieke.ID)
	return game, regular, makeup
}

func TestPostponeGame(t *testing.T) {
	fx := newPostponementFixture()
	game, _, makeup := fx.seedPostponable(t)

	result, err := fx.service.PostponeGame(context.Background(), game.ID, makeup.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, game.ID, result.OriginalGameID)
	assert.Equal(t, makeup.ID, result.NewRoundID)

	// The original survives as a historical record.
	fx.store.mu.Lock()
	original := fx.store.games[game.ID]
	successor := fx.store.games[result.NewGameID]
	fx.store.mu.Unlock()

	require.NotNil(t, original)
	assert.Equal(t, models.GameStatusPostponed, original.Status)
	assert.NotNil(t, original.PostponedAt)

	require.NotNil(t, successor)
	assert.Equal(t, makeup.ID, successor.RoundID)
	assert.Equal(t, models.GameStatusScheduled, successor.Status)
	assert.Equal(t, original.Speler1ID, successor.Speler1ID)
	assert.Equal(t, original.Speler2ID, successor.Speler2ID)
	require.NotNil(t, successor.OriginalGameID)
	assert.Equal(t, original.ID, *successor.OriginalGameID)

	assert.Equal(t, []string{EventGamePostponed}, fx.hub.eventTypes())
}

func TestPostponeGameNotifiesPlayersAndAdmin(t *testing.T) {
	fx := newPostponementFixture()
	game, _, makeup := fx.seedPostponable(t)

	_, err := fx.service.PostponeGame(context.Background(), game.ID, makeup.ID)
	require.NoError(t, err)

	sent := fx.notifier.messages()
	require.Len(t, sent, 3)

	recipients := map[string]bool{}
	for _, msg := range sent {
		recipients[msg.To] = true
		assert.Equal(t, "Partij uitgesteld", msg.Subject)
		assert.Contains(t, msg.HTML, "Jan Peeters - Mieke Claes")
		assert.Contains(t, msg.Text, "10-03-2024")
	}
	assert.True(t, recipients["jan@schaakclub.be"])
	assert.True(t, recipients["mieke@schaakclub.be"])
	assert.True(t, recipients["tornooileider@schaakclub.be"])
}

func TestPostponeGameNotifierFailureIsSwallowed(t *testing.T) {
	fx := newPostponementFixture()
	fx.notifier.sendErr = errors.New("smtp down")
	game, _, makeup := fx.seedPostponable(t)

	_, err := fx.service.PostponeGame(context.Background(), game.ID, makeup.ID)
	require.NoError(t, err, "mail failure must not fail the postponement")
}

func TestPostponeGameTwiceRejected(t *testing.T) {
	fx := newPostponementFixture()
	game, _, makeup := fx.seedPostponable(t)
	ctx := context.Background()

	_, err := fx.service.PostponeGame(ctx, game.ID, makeup.ID)
	require.NoError(t, err)

	fx.store.mu.Lock()
	countBefore := len(fx.store.games)
	fx.store.mu.Unlock()

	_, err = fx.service.PostponeGame(ctx, game.ID, makeup.ID)
	assert.ErrorIs(t, err, ErrGameAlreadyPostponed)
	assert.ErrorIs(t, err, ErrValidationFailed)

	fx.store.mu.Lock()
	countAfter := len(fx.store.games)
	fx.store.mu.Unlock()
	assert.Equal(t, countBefore, countAfter, "rejected postponement must not create games")
}

func TestPostponeGameTargetValidation(t *testing.T) {
	fx := newPostponementFixture()
	game, regular, _ := fx.seedPostponable(t)
	ctx := context.Background()

	// Regular round is not a valid destination.
	_, err := fx.service.PostponeGame(ctx, game.ID, regular.ID)
	assert.ErrorIs(t, err, ErrRoundNotMakeup)

	// Neither is a makeup round of another tournament.
	other := fx.store.addTournament("Zomertornooi")
	foreign := fx.store.addRound(other.ID, 1001,
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), models.RoundTypeMakeup)
	_, err = fx.service.PostponeGame(ctx, game.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrCrossTournament)

	_, err = fx.service.PostponeGame(ctx, 9999, foreign.ID)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestUndoPostponement(t *testing.T) {
	fx := newPostponementFixture()
	game, _, makeup := fx.seedPostponable(t)
	ctx := context.Background()

	result, err := fx.service.PostponeGame(ctx, game.ID, makeup.ID)
	require.NoError(t, err)

	require.NoError(t, fx.service.UndoPostponement(ctx, result.OriginalGameID, result.NewGameID))

	fx.store.mu.Lock()
	original := fx.store.games[result.OriginalGameID]
	_, successorExists := fx.store.games[result.NewGameID]
	fx.store.mu.Unlock()

	require.NotNil(t, original)
	assert.Equal(t, models.GameStatusScheduled, original.Status)
	assert.Nil(t, original.PostponedAt)
	assert.False(t, successorExists, "successor game must be deleted")

	assert.Equal(t, []string{EventGamePostponed, EventPostponementUndone}, fx.hub.eventTypes())
}

func TestPostponePlayedGameAndUndo(t *testing.T) {
	fx := newPostponementFixture()
	game, _, makeup := fx.seedPostponable(t)
	ctx := context.Background()

	// The tornooileider may move a game that already has an outcome.
	outcome := models.ResultWhiteWins
	fx.store.mu.Lock()
	game.Status = models.GameStatusPlayed
	game.Result = &outcome
	game.WinnaarID = game.Speler1ID
	fx.store.mu.Unlock()

	result, err := fx.service.PostponeGame(ctx, game.ID, makeup.ID)
	require.NoError(t, err)

	fx.store.mu.Lock()
	original := fx.store.games[game.ID]
	fx.store.mu.Unlock()
	assert.Equal(t, models.GameStatusPostponed, original.Status)
	require.NotNil(t, original.Result)
	assert.Equal(t, models.ResultWhiteWins, *original.Result, "postponement must not erase the outcome")

	require.NoError(t, fx.service.UndoPostponement(ctx, result.OriginalGameID, result.NewGameID))

	fx.store.mu.Lock()
	restored := fx.store.games[game.ID]
	fx.store.mu.Unlock()
	assert.Equal(t, models.GameStatusPlayed, restored.Status, "undo must restore the played status, not scheduled")
	require.NotNil(t, restored.Result)
	assert.Equal(t, models.ResultWhiteWins, *restored.Result)
	assert.Equal(t, restored.Speler1ID, restored.WinnaarID)
	assert.Nil(t, restored.PostponedAt)
}

func TestUndoPostponementLinkMismatch(t *testing.T) {
	fx := newPostponementFixture()
	game, _, makeup := fx.seedPostponable(t)
	ctx := context.Background()

	result, err := fx.service.PostponeGame(ctx, game.ID, makeup.ID)
	require.NoError(t, err)

	// An unrelated game in the makeup round is not the successor.
	unrelated := fx.store.addGame(makeup.ID, game.Speler1ID, game.Speler2ID)
	err = fx.service.UndoPostponement(ctx, result.OriginalGameID, unrelated.ID)
	assert.ErrorIs(t, err, ErrGameLinkMismatch)

	fx.store.mu.Lock()
	original := fx.store.games[result.OriginalGameID]
	fx.store.mu.Unlock()
	assert.Equal(t, models.GameStatusPostponed, original.Status, "failed undo must not touch the original")
}

func TestAddGameToMakeupRound(t *testing.T) {
	fx := newPostponementFixture()
	_, _, makeup := fx.seedPostponable(t)
	ctx := context.Background()

	speler2 := 42
	result := models.ResultWhiteWins
	game, err := fx.service.AddGameToMakeupRound(ctx, AddGameInput{
		RoundID:   makeup.ID,
		Speler1ID: 41,
		Speler2ID: &speler2,
		Result:    &result,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusPlayed, game.Status)
	require.NotNil(t, game.WinnaarID)
	assert.Equal(t, 41, *game.WinnaarID)
	assert.Nil(t, game.OriginalGameID)

	// Without a result the pairing is merely scheduled.
	open, err := fx.service.AddGameToMakeupRound(ctx, AddGameInput{
		RoundID:   makeup.ID,
		Speler1ID: 41,
		Speler2ID: &speler2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusScheduled, open.Status)
	assert.Nil(t, open.WinnaarID)
}

func TestAddGameToMakeupRoundValidation(t *testing.T) {
	fx := newPostponementFixture()
	_, regular, makeup := fx.seedPostponable(t)
	ctx := context.Background()

	_, err := fx.service.AddGameToMakeupRound(ctx, AddGameInput{RoundID: regular.ID, Speler1ID: 41})
	assert.ErrorIs(t, err, ErrRoundNotMakeup)

	_, err = fx.service.AddGameToMakeupRound(ctx, AddGameInput{RoundID: makeup.ID})
	assert.ErrorIs(t, err, ErrPlayerRequired)

	bogus := "2-0"
	_, err = fx.service.AddGameToMakeupRound(ctx, AddGameInput{
		RoundID:   makeup.ID,
		Speler1ID: 41,
		Result:    &bogus,
	})
	assert.ErrorIs(t, err, ErrInvalidResult)
	if err != nil {
		assert.True(t, strings.Contains(err.Error(), "2-0"))
	}
}
