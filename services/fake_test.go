package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/svanlaere/schaakclub-portal/calendar"
	"github.com/svanlaere/schaakclub-portal/models"
	"github.com/svanlaere/schaakclub-portal/repositories"
)

// In-memory store shared by the fake repositories. It mimics the
// constraints the real schema enforces: per-tournament round number
// uniqueness (checked on every single write, like a DB constraint) and
// cascade deletion of a round's games.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	tournaments map[int]*models.Tournament
	rounds      map[int]*models.Round
	games       map[int]*models.Game
	users       map[int]*models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      1,
		tournaments: make(map[int]*models.Tournament),
		rounds:      make(map[int]*models.Round),
		games:       make(map[int]*models.Game),
		users:       make(map[int]*models.User),
	}
}

func (s *fakeStore) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *fakeStore) addTournament(naam string) *models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &models.Tournament{ID: s.id(), Naam: naam, Seizoen: "2024-2025", CreatedAt: time.Now()}
	s.tournaments[t.ID] = t
	return t
}

func (s *fakeStore) addRound(tournamentID, nummer int, datum time.Time, roundType models.RoundType) *models.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &models.Round{
		ID:           s.id(),
		TournamentID: tournamentID,
		Nummer:       nummer,
		Datum:        datum,
		Startuur:     "20:00",
		Type:         roundType,
		CreatedAt:    time.Now(),
	}
	s.rounds[r.ID] = r
	return r
}

func (s *fakeStore) addGame(roundID int, speler1, speler2 *int) *models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &models.Game{
		ID:        s.id(),
		RoundID:   roundID,
		Speler1ID: speler1,
		Speler2ID: speler2,
		Status:    models.GameStatusScheduled,
		CreatedAt: time.Now(),
	}
	s.games[g.ID] = g
	return g
}

func (s *fakeStore) addUser(naam, email string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: s.id(), Naam: naam, Email: email, Rol: models.RoleLid, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

func (s *fakeStore) numberTaken(tournamentID, nummer, excludeRoundID int) bool {
	for _, r := range s.rounds {
		if r.TournamentID == tournamentID && r.Nummer == nummer && r.ID != excludeRoundID {
			return true
		}
	}
	return false
}

// --- TxRunner ---

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// --- TournamentRepository ---

type fakeTournamentRepo struct {
	store *fakeStore
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	t, ok := f.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTournamentRepo) List(ctx context.Context) ([]models.Tournament, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := make([]models.Tournament, 0, len(f.store.tournaments))
	for _, t := range f.store.tournaments {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTournamentRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	return nil
}

// --- RoundRepository ---

type fakeRoundRepo struct {
	store *fakeStore
}

func (f *fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.store.numberTaken(round.TournamentID, round.Nummer, 0) {
		return repositories.ErrRoundNumberTaken
	}
	round.ID = f.store.id()
	round.CreatedAt = time.Now()
	cp := *round
	f.store.rounds[round.ID] = &cp
	return nil
}

func (f *fakeRoundRepo) GetByID(ctx context.Context, id int) (*models.Round, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoundRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Round, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := make([]*models.Round, 0)
	for _, r := range f.store.rounds {
		if r.TournamentID == tournamentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Datum.Equal(out[j].Datum) {
			return out[i].Datum.Before(out[j].Datum)
		}
		return out[i].Nummer < out[j].Nummer
	})
	return out, nil
}

func (f *fakeRoundRepo) UpdateNumber(ctx context.Context, exec repositories.SQLExecutor, roundID, newNumber int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.rounds[roundID]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	// Enforced per statement, exactly like the unique constraint the
	// shift ordering exists to satisfy.
	if f.store.numberTaken(r.TournamentID, newNumber, roundID) {
		return repositories.ErrRoundNumberTaken
	}
	r.Nummer = newNumber
	return nil
}

func (f *fakeRoundRepo) UpdateSchedule(ctx context.Context, roundID int, datum time.Time, startuur string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.rounds[roundID]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	r.Datum = datum
	r.Startuur = startuur
	return nil
}

func (f *fakeRoundRepo) SetCalendarEventID(ctx context.Context, roundID int, eventID *string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	r, ok := f.store.rounds[roundID]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	r.CalendarEventID = eventID
	return nil
}

func (f *fakeRoundRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, roundID int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.rounds[roundID]; !ok {
		return repositories.ErrRoundNotFound
	}
	delete(f.store.rounds, roundID)
	for id, g := range f.store.games {
		if g.RoundID == roundID {
			delete(f.store.games, id)
		}
	}
	return nil
}

// --- GameRepository ---

type fakeGameRepo struct {
	store *fakeStore
}

func (f *fakeGameRepo) Create(ctx context.Context, exec repositories.SQLExecutor, game *models.Game) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.rounds[game.RoundID]; !ok {
		return repositories.ErrGameRoundInvalid
	}
	game.ID = f.store.id()
	game.CreatedAt = time.Now()
	cp := *game
	f.store.games[game.ID] = &cp
	return nil
}

func (f *fakeGameRepo) GetByID(ctx context.Context, id int) (*models.Game, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g, ok := f.store.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGameRepo) GetByIDWithRound(ctx context.Context, id int) (*models.Game, *models.Round, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g, ok := f.store.games[id]
	if !ok {
		return nil, nil, repositories.ErrGameNotFound
	}
	r, ok := f.store.rounds[g.RoundID]
	if !ok {
		return nil, nil, repositories.ErrGameNotFound
	}
	gcp := *g
	rcp := *r
	return &gcp, &rcp, nil
}

func (f *fakeGameRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Game, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := make([]*models.Game, 0)
	for _, g := range f.store.games {
		r, ok := f.store.rounds[g.RoundID]
		if ok && r.TournamentID == tournamentID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGameRepo) MarkPostponed(ctx context.Context, exec repositories.SQLExecutor, gameID int, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g, ok := f.store.games[gameID]
	if !ok || g.Status == models.GameStatusPostponed {
		return repositories.ErrGameNotPostponable
	}
	g.Status = models.GameStatusPostponed
	g.PostponedAt = &at
	return nil
}

func (f *fakeGameRepo) ResetPostponement(ctx context.Context, exec repositories.SQLExecutor, gameID int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	g, ok := f.store.games[gameID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	if g.Result != nil {
		g.Status = models.GameStatusPlayed
	} else {
		g.Status = models.GameStatusScheduled
	}
	g.PostponedAt = nil
	return nil
}

func (f *fakeGameRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, gameID int) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if _, ok := f.store.games[gameID]; !ok {
		return repositories.ErrGameNotFound
	}
	delete(f.store.games, gameID)
	return nil
}

// --- UserRepository ---

type fakeUserRepo struct {
	store *fakeStore
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	u, ok := f.store.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, u := range f.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// --- CalendarSync ---

type calendarCall struct {
	op      string
	eventID string
	input   calendar.EventInput
	patch   calendar.EventPatch
}

type fakeCalendar struct {
	mu        sync.Mutex
	calls     []calendarCall
	nextID    string
	createErr error
	updateErr error
	deleteErr error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, input calendar.EventInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, calendarCall{op: "create", input: input})
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.nextID == "" {
		f.nextID = "evt-1"
	}
	return f.nextID, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, eventID string, patch calendar.EventPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, calendarCall{op: "update", eventID: eventID, patch: patch})
	return f.updateErr
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, calendarCall{op: "delete", eventID: eventID})
	return f.deleteErr
}

func (f *fakeCalendar) callsFor(op string) []calendarCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]calendarCall, 0)
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// --- NotificationDispatcher ---

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []EmailMessage
	sendErr error
}

func (f *fakeNotifier) SendCustomEmail(ctx context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.sendErr
}

func (f *fakeNotifier) messages() []EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmailMessage(nil), f.sent...)
}

// --- ScheduleBroadcaster ---

type broadcastEvent struct {
	tournamentID int
	eventType    string
}

type fakeHub struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (f *fakeHub) BroadcastSchedule(tournamentID int, eventType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{tournamentID: tournamentID, eventType: eventType})
}

func (f *fakeHub) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.eventType)
	}
	return out
}
