package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/monitoring"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTxRetries = 3

// GameService pairs players, records answers and serves game views.
type GameService struct {
	games     GameStore
	players   PlayerDirectory
	questions QuestionBank
	picker    *QuestionPicker
	feed      *Feed
	log       *zap.Logger
	metrics   *monitoring.Metrics

	now       func() time.Time
	newID     func() string
	retries   uint64
	baseDelay time.Duration
}

// Option customizes a GameService.
type Option func(*GameService)

// WithClock replaces the wall clock, mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

// WithIDGenerator replaces the uuid source for game, session and answer ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *GameService) { s.newID = newID }
}

// WithRandom seeds question selection.
func WithRandom(rnd *rand.Rand) Option {
	return func(s *GameService) { s.picker = NewQuestionPicker(rnd) }
}

// WithRetries bounds how often a transaction is retried after a transient conflict.
func WithRetries(n int, baseDelay time.Duration) Option {
	return func(s *GameService) {
		if n < 0 {
			n = 0
		}
		s.retries = uint64(n)
		if baseDelay > 0 {
			s.baseDelay = baseDelay
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *GameService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *GameService) { s.metrics = m }
}

// WithFeed publishes committed game views to feed.
func WithFeed(feed *Feed) Option {
	return func(s *GameService) { s.feed = feed }
}

func NewGameService(games GameStore, players PlayerDirectory, questions QuestionBank, opts ...Option) *GameService {
	s := &GameService{
		games:     games,
		players:   players,
		questions: questions,
		picker:    NewQuestionPicker(nil),
		feed:      NewFeed(),
		log:       zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		retries:   defaultTxRetries,
		baseDelay: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feed returns the live update feed the service publishes to.
func (s *GameService) Feed() *Feed {
	return s.feed
}

// JoinOrCreate places playerID into the waiting game, or opens a new one when
// the waiting room is empty.
func (s *GameService) JoinOrCreate(ctx context.Context, playerID string) (domain.GameView, error) {
	if playerID == "" {
		return domain.GameView{}, fmt.Errorf("%w: player id is required", domain.ErrInvalidArgument)
	}
	player, err := s.players.Resolve(ctx, playerID)
	if err != nil {
		return domain.GameView{}, err
	}

	var game domain.Game
	err = s.inTx(ctx, "join", func(ctx context.Context, tx GameTx) error {
		if err := tx.LockWaitingRoom(ctx); err != nil {
			return err
		}
		if _, err := tx.OpenGameForPlayer(ctx, player.ID); err == nil {
			return domain.ErrAlreadyPaired
		} else if !errors.Is(err, domain.ErrGameNotFound) {
			return err
		}

		session := &domain.PlayerSession{ID: s.newID(), Player: player}
		waiting, err := tx.WaitingGame(ctx)
		switch {
		case errors.Is(err, domain.ErrGameNotFound):
			game = domain.Game{
				ID:            s.newID(),
				Status:        domain.GameAwaitingOpponent,
				First:         session,
				PairCreatedAt: s.clock(),
			}
			return tx.CreateGame(ctx, game)
		case err != nil:
			return err
		}

		questions, err := s.pickQuestions(ctx)
		if err != nil {
			return err
		}
		startedAt := s.clock()
		waiting.Second = session
		waiting.Questions = questions
		waiting.Status = domain.GameActive
		waiting.StartedAt = &startedAt
		if err := tx.ActivateGame(ctx, waiting); err != nil {
			return err
		}
		game = waiting
		return nil
	})
	if err != nil {
		return domain.GameView{}, err
	}

	if game.Status == domain.GameActive {
		s.metrics.GameActivated()
		s.log.Info("game activated",
			zap.String("game_id", game.ID),
			zap.String("first_player", game.First.Player.ID),
			zap.String("second_player", game.Second.Player.ID))
	} else {
		s.metrics.GameCreated()
		s.log.Info("game awaiting opponent", zap.String("game_id", game.ID), zap.String("player", player.ID))
	}
	view := domain.NewGameView(game)
	s.feed.Publish(view)
	return view, nil
}

// SubmitAnswer records answerText against the player's current question.
func (s *GameService) SubmitAnswer(ctx context.Context, playerID, answerText string) (domain.AnswerResult, error) {
	if playerID == "" {
		return domain.AnswerResult{}, fmt.Errorf("%w: player id is required", domain.ErrInvalidArgument)
	}

	var (
		result   domain.AnswerResult
		final    domain.Game
		finished bool
	)
	err := s.inTx(ctx, "answer", func(ctx context.Context, tx GameTx) error {
		finished = false
		game, err := tx.ActiveGameForPlayer(ctx, playerID)
		if errors.Is(err, domain.ErrGameNotFound) {
			return domain.ErrNoActiveGame
		}
		if err != nil {
			return err
		}
		session, ok := game.SessionFor(playerID)
		if !ok {
			return domain.ErrNoActiveGame
		}
		position := len(session.Answers)
		if session.Done() || position >= len(game.Questions) {
			return domain.ErrAllQuestionsAnswered
		}

		question := game.Questions[position]
		answer := domain.Answer{
			ID:         s.newID(),
			SessionID:  session.ID,
			QuestionID: question.ID,
			Body:       answerText,
			Status:     domain.AnswerIncorrect,
			AddedAt:    s.clock(),
		}
		if question.Accepts(answerText) {
			answer.Status = domain.AnswerCorrect
		}
		if err := tx.AppendAnswer(ctx, answer, position); err != nil {
			return err
		}
		result = domain.AnswerResult{QuestionID: answer.QuestionID, Status: answer.Status, AddedAt: answer.AddedAt}

		// completion is decided from what the store holds after the write
		final, err = tx.Game(ctx, game.ID)
		if err != nil {
			return err
		}
		if !readyToFinish(final) {
			return nil
		}
		bonus := bonusRecipient(final.First, final.Second)
		if err := tx.FinishGame(ctx, final.ID, bonus.ID, s.clock()); err != nil {
			return err
		}
		finished = true
		final, err = tx.Game(ctx, game.ID)
		return err
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}

	s.metrics.AnswerRecorded(string(result.Status))
	s.log.Debug("answer recorded",
		zap.String("game_id", final.ID),
		zap.String("player", playerID),
		zap.String("question_id", result.QuestionID),
		zap.String("status", string(result.Status)))
	if finished {
		s.metrics.GameFinished()
		s.log.Info("game finished",
			zap.String("game_id", final.ID),
			zap.Int("first_score", final.First.Score),
			zap.Int("second_score", final.Second.Score))
	}
	s.feed.Publish(domain.NewGameView(final))
	return result, nil
}

// GetByID returns the view of any game, finished or not.
func (s *GameService) GetByID(ctx context.Context, gameID string) (domain.GameView, error) {
	if gameID == "" {
		return domain.GameView{}, fmt.Errorf("%w: game id is required", domain.ErrInvalidArgument)
	}
	game, err := s.games.GameByID(ctx, gameID)
	if err != nil {
		return domain.GameView{}, err
	}
	return domain.NewGameView(game), nil
}

// GetCurrentForPlayer returns the waiting or active game of playerID.
func (s *GameService) GetCurrentForPlayer(ctx context.Context, playerID string) (domain.GameView, error) {
	if playerID == "" {
		return domain.GameView{}, fmt.Errorf("%w: player id is required", domain.ErrInvalidArgument)
	}
	game, err := s.games.OpenGameForPlayer(ctx, playerID)
	if err != nil {
		return domain.GameView{}, err
	}
	return domain.NewGameView(game), nil
}

func (s *GameService) pickQuestions(ctx context.Context) ([]domain.Question, error) {
	pool, err := s.questions.PublishedQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load published questions: %w", err)
	}
	return s.picker.PickFive(pool)
}

// clock returns the current time at the precision the stores keep.
func (s *GameService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// inTx runs fn in a store transaction, retrying transient conflicts with
// exponential backoff.
func (s *GameService) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx GameTx) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.baseDelay
	policy.MaxInterval = 20 * s.baseDelay

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := s.games.InTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		if uint64(attempt) <= s.retries {
			s.metrics.TxRetried(op)
			s.log.Warn("retrying transaction", zap.String("operation", op), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, s.retries), ctx))
	if err != nil && retryable(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, domain.ErrPairingConflict)
}
