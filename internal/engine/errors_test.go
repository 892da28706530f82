package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/marup-app/marup-server/internal/storage"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrInvalidAmount, KindValidation},
		{ErrNotOwner, KindValidation},
		{fmt.Errorf("wrapped: %w", ErrRoundClosed), KindConflict},
		{ErrDuplicateContribution, KindConflict},
		{storage.ErrConflict, KindConflict},
		{ErrGroupFull, KindCapacity},
		{ErrDurationExhausted, KindCapacity},
		{ErrConsistency, KindConsistency},
		{storage.ErrNotFound, KindNotFound},
		{errors.New("disk I/O error"), KindStorage},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(ErrRoundClosed) {
		t.Error("Business conflicts must not be retryable")
	}
	if Retryable(ErrGroupFull) {
		t.Error("Capacity errors must not be retryable")
	}
	if !Retryable(errors.New("database is locked")) {
		t.Error("Storage faults must be retryable")
	}
}
