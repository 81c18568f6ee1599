package postgres

import (
	"errors"
	"fmt"

	"quiz-duel-service/internal/domain"

	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// classify wraps retryable Postgres failures into domain.ErrTransient.
// A unique violation means a concurrent transaction won a race on the waiting
// room or an answer slot, so it is retried as well.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Field('C') {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeUniqueViolation:
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}
