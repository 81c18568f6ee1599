package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

// GameStore is an in-memory implementation of app.GameStore. Transactions are
// fully serialized. Writes go straight to the state and are recorded in an undo
// log that is replayed when the transaction fails, so a failed transaction
// leaves nothing behind.
type GameStore struct {
	mu    sync.Mutex
	state *storeState
}

type storeState struct {
	games     map[string]gameRecord
	sessions  map[string]sessionRecord
	answers   map[string][]domain.Answer
	questions map[string][]domain.Question
	// open maps a player id to its AWAITING_OPPONENT or ACTIVE game.
	open    map[string]string
	waiting string
}

type gameRecord struct {
	id            string
	status        domain.GameStatus
	firstID       string
	secondID      string
	pairCreatedAt time.Time
	startedAt     *time.Time
	finishedAt    *time.Time
}

type sessionRecord struct {
	id     string
	player domain.Player
	score  int
	bonus  bool
}

func NewGameStore() *GameStore {
	return &GameStore{state: &storeState{
		games:     make(map[string]gameRecord),
		sessions:  make(map[string]sessionRecord),
		answers:   make(map[string][]domain.Answer),
		questions: make(map[string][]domain.Question),
		open:      make(map[string]string),
	}}
}

func (s *GameStore) InTx(ctx context.Context, fn func(ctx context.Context, tx app.GameTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &gameTx{state: s.state}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *GameStore) GameByID(_ context.Context, gameID string) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.game(gameID)
}

func (s *GameStore) OpenGameForPlayer(_ context.Context, playerID string) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.openGame(playerID)
}

func (st *storeState) openGame(playerID string) (domain.Game, error) {
	id, ok := st.open[playerID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return st.game(id)
}

func (st *storeState) game(gameID string) (domain.Game, error) {
	rec, ok := st.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	game := domain.Game{
		ID:            rec.id,
		Status:        rec.status,
		First:         st.session(rec.firstID),
		PairCreatedAt: rec.pairCreatedAt,
		StartedAt:     rec.startedAt,
		FinishedAt:    rec.finishedAt,
		Questions:     slices.Clone(st.questions[rec.id]),
	}
	if rec.secondID != "" {
		game.Second = st.session(rec.secondID)
	}
	return game, nil
}

func (st *storeState) session(sessionID string) *domain.PlayerSession {
	rec := st.sessions[sessionID]
	return &domain.PlayerSession{
		ID:           rec.id,
		Player:       rec.player,
		Score:        rec.score,
		BonusAwarded: rec.bonus,
		Answers:      slices.Clone(st.answers[sessionID]),
	}
}

type gameTx struct {
	state *storeState
	undo  []func()
}

// remember records how to restore key k of m before it is overwritten or deleted.
func remember[K comparable, V any](t *gameTx, m map[K]V, k K) {
	prev, ok := m[k]
	t.undo = append(t.undo, func() {
		if ok {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func (t *gameTx) setWaiting(gameID string) {
	prev := t.state.waiting
	t.undo = append(t.undo, func() { t.state.waiting = prev })
	t.state.waiting = gameID
}

func (t *gameTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// LockWaitingRoom is a no-op: InTx already holds the store lock.
func (t *gameTx) LockWaitingRoom(context.Context) error {
	return nil
}

func (t *gameTx) OpenGameForPlayer(_ context.Context, playerID string) (domain.Game, error) {
	return t.state.openGame(playerID)
}

func (t *gameTx) WaitingGame(context.Context) (domain.Game, error) {
	if t.state.waiting == "" {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return t.state.game(t.state.waiting)
}

func (t *gameTx) ActiveGameForPlayer(_ context.Context, playerID string) (domain.Game, error) {
	game, err := t.state.openGame(playerID)
	if err != nil {
		return domain.Game{}, err
	}
	if game.Status != domain.GameActive {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return game, nil
}

func (t *gameTx) Game(_ context.Context, gameID string) (domain.Game, error) {
	return t.state.game(gameID)
}

func (t *gameTx) CreateGame(_ context.Context, game domain.Game) error {
	if game.First == nil {
		return fmt.Errorf("create game %s: first session missing", game.ID)
	}
	if t.state.waiting != "" {
		return fmt.Errorf("%w: waiting room occupied", domain.ErrTransient)
	}
	if _, ok := t.state.games[game.ID]; ok {
		return fmt.Errorf("create game %s: duplicate id", game.ID)
	}
	t.putSession(game.First)
	remember(t, t.state.games, game.ID)
	t.state.games[game.ID] = gameRecord{
		id:            game.ID,
		status:        domain.GameAwaitingOpponent,
		firstID:       game.First.ID,
		pairCreatedAt: game.PairCreatedAt,
	}
	remember(t, t.state.open, game.First.Player.ID)
	t.state.open[game.First.Player.ID] = game.ID
	t.setWaiting(game.ID)
	return nil
}

func (t *gameTx) ActivateGame(_ context.Context, game domain.Game) error {
	rec, ok := t.state.games[game.ID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if rec.status != domain.GameAwaitingOpponent {
		return domain.ErrPairingConflict
	}
	if game.Second == nil || len(game.Questions) != domain.QuestionsPerGame {
		return fmt.Errorf("activate game %s: second session and %d questions required", game.ID, domain.QuestionsPerGame)
	}
	t.putSession(game.Second)
	rec.secondID = game.Second.ID
	rec.status = domain.GameActive
	rec.startedAt = game.StartedAt
	remember(t, t.state.games, game.ID)
	t.state.games[game.ID] = rec
	remember(t, t.state.questions, game.ID)
	t.state.questions[game.ID] = slices.Clone(game.Questions)
	remember(t, t.state.open, game.Second.Player.ID)
	t.state.open[game.Second.Player.ID] = game.ID
	t.setWaiting("")
	return nil
}

func (t *gameTx) AppendAnswer(_ context.Context, answer domain.Answer, position int) error {
	rec, ok := t.state.sessions[answer.SessionID]
	if !ok {
		return fmt.Errorf("append answer: session %s not found", answer.SessionID)
	}
	existing := t.state.answers[answer.SessionID]
	if position != len(existing) || position >= domain.QuestionsPerGame {
		return fmt.Errorf("%w: answer position %d taken", domain.ErrTransient, position)
	}
	// clipping keeps the previous slice valid for rollback and for readers
	remember(t, t.state.answers, answer.SessionID)
	t.state.answers[answer.SessionID] = append(slices.Clip(existing), answer)
	if answer.Status == domain.AnswerCorrect {
		rec.score++
		remember(t, t.state.sessions, rec.id)
		t.state.sessions[rec.id] = rec
	}
	return nil
}

func (t *gameTx) FinishGame(_ context.Context, gameID, bonusSessionID string, finishedAt time.Time) error {
	rec, ok := t.state.games[gameID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if rec.status != domain.GameActive {
		return fmt.Errorf("finish game %s: status %s", gameID, rec.status)
	}
	if bonusSessionID != rec.firstID && bonusSessionID != rec.secondID {
		return fmt.Errorf("finish game %s: session %s not in game", gameID, bonusSessionID)
	}
	bonus := t.state.sessions[bonusSessionID]
	bonus.score++
	bonus.bonus = true
	remember(t, t.state.sessions, bonusSessionID)
	t.state.sessions[bonusSessionID] = bonus

	rec.status = domain.GameFinished
	rec.finishedAt = &finishedAt
	remember(t, t.state.games, gameID)
	t.state.games[gameID] = rec
	for _, sessionID := range []string{rec.firstID, rec.secondID} {
		playerID := t.state.sessions[sessionID].player.ID
		remember(t, t.state.open, playerID)
		delete(t.state.open, playerID)
	}
	return nil
}

func (t *gameTx) putSession(s *domain.PlayerSession) {
	remember(t, t.state.sessions, s.ID)
	t.state.sessions[s.ID] = sessionRecord{id: s.ID, player: s.Player, score: s.Score, bonus: s.BonusAwarded}
}
