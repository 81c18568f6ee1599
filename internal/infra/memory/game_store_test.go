package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

func TestGameStoreRollsBackFailedTx(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		if err := tx.CreateGame(ctx, waitingGame("g1", "s1", "u1")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.GameByID(ctx, "g1"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected rolled back game, got %v", err)
	}
	if _, err := store.OpenGameForPlayer(ctx, "u1"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected no open game for u1, got %v", err)
	}
}

func TestGameStoreSingleWaitingGame(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()

	mustTx(t, store, func(ctx context.Context, tx app.GameTx) error {
		return tx.CreateGame(ctx, waitingGame("g1", "s1", "u1"))
	})
	err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		return tx.CreateGame(ctx, waitingGame("g2", "s2", "u2"))
	})
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected second waiting game to be rejected, got %v", err)
	}
}

func TestGameStoreActivateAndAnswer(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	mustTx(t, store, func(ctx context.Context, tx app.GameTx) error {
		return tx.CreateGame(ctx, waitingGame("g1", "s1", "u1"))
	})

	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mustTx(t, store, func(ctx context.Context, tx app.GameTx) error {
		game, err := tx.WaitingGame(ctx)
		if err != nil {
			return err
		}
		game.Second = &domain.PlayerSession{ID: "s2", Player: domain.Player{ID: "u2"}}
		game.Status = domain.GameActive
		game.StartedAt = &started
		game.Questions = fiveQuestions()
		return tx.ActivateGame(ctx, game)
	})

	err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		game, _ := tx.Game(ctx, "g1")
		return tx.ActivateGame(ctx, game)
	})
	if !errors.Is(err, domain.ErrPairingConflict) {
		t.Fatalf("expected pairing conflict on second activation, got %v", err)
	}

	mustTx(t, store, func(ctx context.Context, tx app.GameTx) error {
		game, err := tx.ActiveGameForPlayer(ctx, "u2")
		if err != nil {
			return err
		}
		return tx.AppendAnswer(ctx, domain.Answer{
			ID: "a1", SessionID: game.Second.ID, QuestionID: game.Questions[0].ID,
			Status: domain.AnswerCorrect, AddedAt: started.Add(time.Second),
		}, 0)
	})

	game, err := store.GameByID(ctx, "g1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Second.Score != 1 || len(game.Second.Answers) != 1 {
		t.Fatalf("expected one correct answer for s2, got %+v", game.Second)
	}
	if len(game.Questions) != domain.QuestionsPerGame {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerGame, len(game.Questions))
	}

	err = store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		return tx.AppendAnswer(ctx, domain.Answer{ID: "a2", SessionID: "s2", Status: domain.AnswerIncorrect}, 0)
	})
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected duplicate position to be rejected, got %v", err)
	}
}

func TestGameStoreRollsBackFailedActivation(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	mustTx(t, store, func(ctx context.Context, tx app.GameTx) error {
		return tx.CreateGame(ctx, waitingGame("g1", "s1", "u1"))
	})

	boom := errors.New("boom")
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	activate := func(ctx context.Context, tx app.GameTx) error {
		game, err := tx.WaitingGame(ctx)
		if err != nil {
			return err
		}
		game.Second = &domain.PlayerSession{ID: "s2", Player: domain.Player{ID: "u2"}}
		game.Status = domain.GameActive
		game.StartedAt = &started
		game.Questions = fiveQuestions()
		return tx.ActivateGame(ctx, game)
	}
	err := store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
		if err := activate(ctx, tx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	game, err := store.GameByID(ctx, "g1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if game.Status != domain.GameAwaitingOpponent || game.Second != nil || len(game.Questions) != 0 {
		t.Fatalf("expected game to be waiting again, got %+v", game)
	}
	if _, err := store.OpenGameForPlayer(ctx, "u2"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected u2 without game, got %v", err)
	}
	// the waiting room was restored, so the next pairing succeeds
	mustTx(t, store, activate)
}

func TestGameStoreRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	func() {
		defer func() { _ = recover() }()
		_ = store.InTx(ctx, func(ctx context.Context, tx app.GameTx) error {
			_ = tx.CreateGame(ctx, waitingGame("g1", "s1", "u1"))
			panic("boom")
		})
	}()
	if _, err := store.GameByID(ctx, "g1"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected rolled back game after panic, got %v", err)
	}
	mustTx(t, store, func(ctx context.Context, tx app.GameTx) error {
		return tx.CreateGame(ctx, waitingGame("g2", "s2", "u2"))
	})
}

func mustTx(t *testing.T, store *GameStore, fn func(ctx context.Context, tx app.GameTx) error) {
	t.Helper()
	if err := store.InTx(context.Background(), fn); err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func waitingGame(gameID, sessionID, playerID string) domain.Game {
	return domain.Game{
		ID:            gameID,
		Status:        domain.GameAwaitingOpponent,
		First:         &domain.PlayerSession{ID: sessionID, Player: domain.Player{ID: playerID}},
		PairCreatedAt: time.Date(2024, 1, 1, 11, 59, 0, 0, time.UTC),
	}
}

func fiveQuestions() []domain.Question {
	pool := sampleQuestions(domain.QuestionsPerGame)
	out := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		out = append(out, q.Question)
	}
	return out
}
