package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"

	"github.com/uptrace/bun"
)

// waitingRoomLockKey is the advisory lock taken by every pairing transaction.
const waitingRoomLockKey int64 = 0x5155495a

// GameStore is a bun-backed app.GameStore. Transactions run at READ COMMITTED
// and serialize on row locks: pairing takes a transaction-scoped advisory lock
// for the waiting room, answer submission locks the game row.
type GameStore struct {
	db *bun.DB
}

func NewGameStore(db *bun.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) InTx(ctx context.Context, fn func(ctx context.Context, tx app.GameTx) error) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &gameTx{db: tx})
	})
	return classify(err)
}

func (s *GameStore) GameByID(ctx context.Context, gameID string) (domain.Game, error) {
	return gameByID(ctx, s.db, gameID)
}

func (s *GameStore) OpenGameForPlayer(ctx context.Context, playerID string) (domain.Game, error) {
	return gameForPlayer(ctx, s.db, playerID, openStatuses, false)
}

var (
	openStatuses   = []string{string(domain.GameAwaitingOpponent), string(domain.GameActive)}
	activeStatuses = []string{string(domain.GameActive)}
)

type gameTx struct {
	db bun.IDB
}

func (t *gameTx) LockWaitingRoom(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", waitingRoomLockKey); err != nil {
		return fmt.Errorf("lock waiting room: %w", err)
	}
	return nil
}

func (t *gameTx) OpenGameForPlayer(ctx context.Context, playerID string) (domain.Game, error) {
	return gameForPlayer(ctx, t.db, playerID, openStatuses, false)
}

func (t *gameTx) WaitingGame(ctx context.Context) (domain.Game, error) {
	var gm gameModel
	err := t.db.NewSelect().Model(&gm).
		Where("g.status = ?", string(domain.GameAwaitingOpponent)).
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("select waiting game: %w", err)
	}
	return loadGame(ctx, t.db, gm)
}

func (t *gameTx) ActiveGameForPlayer(ctx context.Context, playerID string) (domain.Game, error) {
	return gameForPlayer(ctx, t.db, playerID, activeStatuses, true)
}

func (t *gameTx) Game(ctx context.Context, gameID string) (domain.Game, error) {
	return gameByID(ctx, t.db, gameID)
}

func (t *gameTx) CreateGame(ctx context.Context, game domain.Game) error {
	if game.First == nil {
		return fmt.Errorf("create game %s: first session missing", game.ID)
	}
	if _, err := t.db.NewInsert().Model(newSessionModel(game.First)).Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	gm := &gameModel{
		ID:             game.ID,
		Status:         string(domain.GameAwaitingOpponent),
		FirstSessionID: game.First.ID,
		PairCreatedAt:  game.PairCreatedAt,
	}
	if _, err := t.db.NewInsert().Model(gm).Exec(ctx); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (t *gameTx) ActivateGame(ctx context.Context, game domain.Game) error {
	if game.Second == nil || game.StartedAt == nil || len(game.Questions) != domain.QuestionsPerGame {
		return fmt.Errorf("activate game %s: second session, start date and %d questions required", game.ID, domain.QuestionsPerGame)
	}
	if _, err := t.db.NewInsert().Model(newSessionModel(game.Second)).Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	res, err := t.db.NewUpdate().Model((*gameModel)(nil)).
		Set("second_session_id = ?", game.Second.ID).
		Set("status = ?", string(domain.GameActive)).
		Set("started_at = ?", *game.StartedAt).
		Where("id = ?", game.ID).
		Where("status = ?", string(domain.GameAwaitingOpponent)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("activate game: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.ErrPairingConflict
	}

	rows := make([]gameQuestionModel, 0, len(game.Questions))
	for i, q := range game.Questions {
		rows = append(rows, gameQuestionModel{
			GameID:          game.ID,
			Position:        i,
			QuestionID:      q.ID,
			Body:            q.Body,
			AcceptedAnswers: q.AcceptedAnswers,
		})
	}
	if _, err := t.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("assign questions: %w", err)
	}
	return nil
}

func (t *gameTx) AppendAnswer(ctx context.Context, answer domain.Answer, position int) error {
	am := &answerModel{
		ID:         answer.ID,
		SessionID:  answer.SessionID,
		QuestionID: answer.QuestionID,
		Body:       answer.Body,
		Status:     string(answer.Status),
		Position:   position,
		AddedAt:    answer.AddedAt,
	}
	if _, err := t.db.NewInsert().Model(am).Exec(ctx); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	if answer.Status != domain.AnswerCorrect {
		return nil
	}
	if _, err := t.db.NewUpdate().Model((*sessionModel)(nil)).
		Set("score = score + 1").
		Where("id = ?", answer.SessionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

func (t *gameTx) FinishGame(ctx context.Context, gameID, bonusSessionID string, finishedAt time.Time) error {
	res, err := t.db.NewUpdate().Model((*gameModel)(nil)).
		Set("status = ?", string(domain.GameFinished)).
		Set("finished_at = ?", finishedAt).
		Where("id = ?", gameID).
		Where("status = ?", string(domain.GameActive)).
		Where("? IN (first_session_id, second_session_id)", bonusSessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("finish game %s: not active or session %s not in game", gameID, bonusSessionID)
	}

	if _, err := t.db.NewUpdate().Model((*sessionModel)(nil)).
		Set("score = score + 1").
		Set("bonus_awarded = TRUE").
		Where("id = ?", bonusSessionID).
		Exec(ctx); err != nil {
		return fmt.Errorf("award bonus: %w", err)
	}
	return nil
}

func gameByID(ctx context.Context, db bun.IDB, gameID string) (domain.Game, error) {
	var gm gameModel
	err := db.NewSelect().Model(&gm).Where("g.id = ?", gameID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	} else if err != nil {
		return domain.Game{}, fmt.Errorf("select game: %w", err)
	}
	return loadGame(ctx, db, gm)
}

func gameForPlayer(ctx context.Context, db bun.IDB, playerID string, statuses []string, lock bool) (domain.Game, error) {
	var gm gameModel
	q := db.NewSelect().Model(&gm).
		Join("JOIN player_sessions AS s ON s.id = g.first_session_id OR s.id = g.second_session_id").
		Where("s.player_id = ?", playerID).
		Where("g.status IN (?)", bun.In(statuses)).
		Limit(1)
	if lock {
		q = q.For("UPDATE OF g")
	}
	if err := q.Scan(ctx); errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	} else if err != nil {
		return domain.Game{}, fmt.Errorf("select game for player: %w", err)
	}
	return loadGame(ctx, db, gm)
}

// loadGame assembles the aggregate from its sessions, answers and question list.
func loadGame(ctx context.Context, db bun.IDB, gm gameModel) (domain.Game, error) {
	sessionIDs := []string{gm.FirstSessionID}
	if gm.SecondSessionID != nil {
		sessionIDs = append(sessionIDs, *gm.SecondSessionID)
	}

	var sessions []sessionModel
	if err := db.NewSelect().Model(&sessions).Where("s.id IN (?)", bun.In(sessionIDs)).Scan(ctx); err != nil {
		return domain.Game{}, fmt.Errorf("select sessions: %w", err)
	}
	var answers []answerModel
	if err := db.NewSelect().Model(&answers).
		Where("a.session_id IN (?)", bun.In(sessionIDs)).
		Order("a.position ASC").
		Scan(ctx); err != nil {
		return domain.Game{}, fmt.Errorf("select answers: %w", err)
	}
	var questions []gameQuestionModel
	if err := db.NewSelect().Model(&questions).
		Where("gq.game_id = ?", gm.ID).
		Order("gq.position ASC").
		Scan(ctx); err != nil {
		return domain.Game{}, fmt.Errorf("select game questions: %w", err)
	}

	bySession := make(map[string][]answerModel, len(sessionIDs))
	for _, a := range answers {
		bySession[a.SessionID] = append(bySession[a.SessionID], a)
	}
	sessionByID := make(map[string]*domain.PlayerSession, len(sessions))
	for _, s := range sessions {
		session, err := s.toDomain(bySession[s.ID])
		if err != nil {
			return domain.Game{}, fmt.Errorf("game %s: %w", gm.ID, err)
		}
		sessionByID[s.ID] = session
	}

	status := domain.GameStatus(gm.Status)
	if !status.Valid() {
		return domain.Game{}, fmt.Errorf("game %s: unknown status %q", gm.ID, gm.Status)
	}
	game := domain.Game{
		ID:            gm.ID,
		Status:        status,
		First:         sessionByID[gm.FirstSessionID],
		PairCreatedAt: gm.PairCreatedAt.UTC(),
		StartedAt:     utcPtr(gm.StartedAt),
		FinishedAt:    utcPtr(gm.FinishedAt),
		Questions:     make([]domain.Question, 0, len(questions)),
	}
	if game.First == nil {
		return domain.Game{}, fmt.Errorf("game %s: first session %s missing", gm.ID, gm.FirstSessionID)
	}
	if gm.SecondSessionID != nil {
		game.Second = sessionByID[*gm.SecondSessionID]
	}
	for _, q := range questions {
		game.Questions = append(game.Questions, domain.Question{
			ID:              q.QuestionID,
			Body:            q.Body,
			AcceptedAnswers: q.AcceptedAnswers,
		})
	}
	return game, nil
}
