package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/repository"
	"github.com/Astemirdum/lending-service/lending/internal/repository/memory"
)

func seed(t *testing.T, s *memory.Store) (model.Book, model.Borrower) {
	t.Helper()
	ctx := context.Background()
	book, err := s.CreateBook(ctx, model.CreateBookRequest{Title: "Dune", Author: "Herbert", ISBN: "9780441013593", Quantity: 2})
	require.NoError(t, err)
	bo, err := s.CreateBorrower(ctx, model.CreateBorrowerRequest{Name: "Paul", Email: "paul@arrakis.org"})
	require.NoError(t, err)
	return book, bo
}

func TestStore_RollbackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	book, bo := seed(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.LedgerTx) error {
		require.NoError(t, tx.DecrementAvailable(ctx, book.ID))
		_, err := tx.InsertBorrowing(ctx, model.NewBorrowing{
			BorrowerID:   bo.ID,
			BookID:       book.ID,
			CheckoutDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			DueDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AvailableQuantity)
	items, err := s.ListBorrowings(ctx, model.BorrowingFilter{})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestStore_RollbackOnPanic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	book, _ := seed(t, s)

	require.Panics(t, func() {
		_ = s.InTx(ctx, func(tx repository.LedgerTx) error {
			_, err := tx.AddCopies(ctx, book.ID, 3)
			require.NoError(t, err)
			panic("unexpected")
		})
	})

	got, err := s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalQuantity)
	require.Equal(t, 2, got.AvailableQuantity)

	// the row lock was released by the rollback
	err = s.InTx(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.LockBookForUpdate(ctx, book.ID)
		return err
	})
	require.NoError(t, err)
}

func TestStore_RowLockBlocksUntilTxEnds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	book, _ := seed(t, s)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.InTx(ctx, func(tx repository.LedgerTx) error {
			if _, err := tx.LockBookForUpdate(ctx, book.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := s.InTx(waitCtx, func(tx repository.LedgerTx) error {
		_, err := tx.LockBookForUpdate(waitCtx, book.ID)
		return err
	})
	require.ErrorIs(t, err, errs.ErrStore)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)

	err = s.InTx(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.LockBookForUpdate(ctx, book.ID)
		return err
	})
	require.NoError(t, err)
}

func TestStore_Constraints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	book, bo := seed(t, s)

	_, err := s.CreateBook(ctx, model.CreateBookRequest{Title: "Copy", Author: "X", ISBN: book.ISBN, Quantity: 1})
	require.ErrorIs(t, err, errs.ErrIntegrity)

	_, err = s.CreateBorrower(ctx, model.CreateBorrowerRequest{Name: "Dup", Email: bo.Email})
	require.ErrorIs(t, err, errs.ErrIntegrity)

	err = s.InTx(ctx, func(tx repository.LedgerTx) error {
		return tx.IncrementAvailable(ctx, book.ID)
	})
	require.ErrorIs(t, err, errs.ErrIntegrity)

	err = s.InTx(ctx, func(tx repository.LedgerTx) error {
		_, err := tx.InsertBorrowing(ctx, model.NewBorrowing{
			BorrowerID:   bo.ID,
			BookID:       book.ID,
			CheckoutDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			DueDate:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		})
		return err
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(tx repository.LedgerTx) error {
		return tx.DeleteBook(ctx, book.ID)
	})
	require.ErrorIs(t, err, errs.ErrIntegrity)

	_, err = s.GetBook(ctx, 100)
	require.ErrorIs(t, err, errs.ErrBookNotFound)
}

func TestStore_SearchBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.New()
	dune, _ := seed(t, s)
	_, err := s.CreateBook(ctx, model.CreateBookRequest{Title: "Children of Dune", Author: "Frank Herbert", ISBN: "9780441104024", Quantity: 1})
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, model.CreateBookRequest{Title: "Neuromancer", Author: "Gibson", ISBN: "9780441569595", Quantity: 1})
	require.NoError(t, err)

	books, err := s.SearchBooks(ctx, model.BookSearch{Title: "dune"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	require.Equal(t, dune.ID, books[0].ID)

	books, err = s.SearchBooks(ctx, model.BookSearch{Author: "HERBERT", ISBN: "9780441104024"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "Children of Dune", books[0].Title)
}
