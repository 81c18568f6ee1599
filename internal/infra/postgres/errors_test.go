package postgres

import (
	"errors"
	"fmt"
	"testing"

	"quiz-duel-service/internal/domain"
)

func TestClassifyLeavesOtherErrorsAlone(t *testing.T) {
	if classify(nil) != nil {
		t.Fatalf("expected nil to stay nil")
	}
	wrapped := fmt.Errorf("tx: %w", domain.ErrAlreadyPaired)
	if got := classify(wrapped); !errors.Is(got, domain.ErrAlreadyPaired) || errors.Is(got, domain.ErrTransient) {
		t.Fatalf("expected domain error to pass through, got %v", got)
	}
	plain := errors.New("connection reset")
	if got := classify(plain); got != plain {
		t.Fatalf("expected plain error untouched, got %v", got)
	}
}
