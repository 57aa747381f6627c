package errs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{name: "no copies", err: errs.ErrNoCopiesAvailable, kind: errs.ErrConflict},
		{name: "already returned wrapped", err: fmt.Errorf("return 5: %w", errs.ErrAlreadyReturned), kind: errs.ErrConflict},
		{name: "book not found", err: errs.ErrBookNotFound, kind: errs.ErrNotFound},
		{name: "integrity", err: errs.Integrity("books_isbn_key", errors.New("dup")), kind: errs.ErrIntegrity},
		{name: "store", err: errs.Store("commit", context.DeadlineExceeded), kind: errs.ErrStore},
		{name: "plain", err: errors.New("boom"), kind: errs.ErrStore},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.kind, errs.Kind(tt.err))
		})
	}
}

func TestConflictsAreDistinguishable(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, errs.ErrNoCopiesAvailable, errs.ErrConflict)
	require.NotErrorIs(t, errs.ErrNoCopiesAvailable, errs.ErrAlreadyReturned)
	require.ErrorIs(t, errs.Store("commit", context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestMessage(t *testing.T) {
	t.Parallel()
	err := errs.Integrity("books_isbn_key", errors.New(`duplicate key value violates unique constraint "books_isbn_key"`))
	require.Equal(t, "constraint books_isbn_key violated", errs.Message(err))
	require.Equal(t, "no copies available", errs.Message(errs.ErrNoCopiesAvailable))
}
