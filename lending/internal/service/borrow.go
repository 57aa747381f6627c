package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/repository"
	"github.com/Astemirdum/lending-service/pkg/kafka"
)

func (s *Service) loanPeriod(days int) (int, error) {
	switch {
	case days == 0:
		return s.loanDays, nil
	case days < 0 || days > s.maxLoanDays:
		return 0, errs.ErrInvalidLoanDays
	}
	return days, nil
}

// Checkout lends one copy of a book. The book row stays locked from the
// availability check until commit, so concurrent checkouts never oversell.
func (s *Service) Checkout(ctx context.Context, req model.CheckoutRequest) (model.Borrowing, error) {
	days, err := s.loanPeriod(req.LoanDays)
	if err != nil {
		return model.Borrowing{}, err
	}
	today := s.Today()

	var rec model.Borrowing
	err = s.repo.InTx(ctx, func(tx repository.LedgerTx) error {
		if _, err := tx.GetBorrower(ctx, req.BorrowerID); err != nil {
			return err
		}
		book, err := tx.LockBookForUpdate(ctx, req.BookID)
		if err != nil {
			return err
		}
		if book.AvailableQuantity <= 0 {
			return errs.ErrNoCopiesAvailable
		}
		if err := tx.DecrementAvailable(ctx, book.ID); err != nil {
			return err
		}
		rec, err = tx.InsertBorrowing(ctx, model.NewBorrowing{
			BorrowerID:   req.BorrowerID,
			BookID:       book.ID,
			CheckoutDate: today,
			DueDate:      model.AddDays(today, days),
		})
		return err
	})
	if err != nil {
		return model.Borrowing{}, err
	}

	s.emit(ctx, kafka.EventBookCheckedOut, rec)
	return rec, nil
}

// ReturnItem closes an active borrowing and puts the copy back on the shelf.
func (s *Service) ReturnItem(ctx context.Context, borrowingID int64) (model.BorrowingView, error) {
	today := s.Today()

	var view model.BorrowingView
	err := s.repo.InTx(ctx, func(tx repository.LedgerTx) error {
		rec, err := tx.LockBorrowing(ctx, borrowingID)
		if err != nil {
			return err
		}
		if !rec.Active() {
			return errs.ErrAlreadyReturned
		}
		if _, err := tx.MarkReturned(ctx, rec.ID, today); err != nil {
			return err
		}
		if err := tx.IncrementAvailable(ctx, rec.BookID); err != nil {
			return err
		}
		view, err = tx.GetBorrowingView(ctx, rec.ID)
		return err
	})
	if err != nil {
		return model.BorrowingView{}, err
	}

	s.emit(ctx, kafka.EventBookReturned, view.Borrowing)
	return view, nil
}

func (s *Service) ListActive(ctx context.Context, borrowerID int64) ([]model.BorrowingView, error) {
	return s.repo.ListBorrowings(ctx, model.BorrowingFilter{
		BorrowerID: &borrowerID,
		ActiveOnly: true,
		Order:      model.OrderByDueDate,
	})
}

func (s *Service) ListOverdue(ctx context.Context) ([]model.BorrowingView, error) {
	today := s.Today()
	return s.repo.ListBorrowings(ctx, model.BorrowingFilter{
		ActiveOnly: true,
		DueBefore:  &today,
		Order:      model.OrderByDueDate,
	})
}

// ListInRange returns every borrowing checked out between start and end, both inclusive.
func (s *Service) ListInRange(ctx context.Context, start, end time.Time) ([]model.BorrowingView, error) {
	if start.After(end) {
		return nil, errs.ErrInvalidDateRange
	}
	return s.repo.ListBorrowings(ctx, model.BorrowingFilter{
		CheckoutFrom: &start,
		CheckoutTo:   &end,
		Order:        model.OrderByCheckoutDate,
	})
}

// ListOverdueInWindow returns overdue borrowings whose due date falls in w.
func (s *Service) ListOverdueInWindow(ctx context.Context, w model.DateWindow) ([]model.BorrowingView, error) {
	if w.Start.After(w.End) {
		return nil, errs.ErrInvalidDateRange
	}
	today := s.Today()
	return s.repo.ListBorrowings(ctx, model.BorrowingFilter{
		ActiveOnly: true,
		DueBefore:  &today,
		DueWindow:  &w,
		Order:      model.OrderByDueDate,
	})
}

func (s *Service) ListCheckedOutInWindow(ctx context.Context, w model.DateWindow) ([]model.BorrowingView, error) {
	if w.Start.After(w.End) {
		return nil, errs.ErrInvalidDateRange
	}
	return s.repo.ListBorrowings(ctx, model.BorrowingFilter{
		CheckoutWindow: &w,
		Order:          model.OrderByCheckoutDate,
	})
}

// Summary collects both window reports concurrently.
func (s *Service) Summary(ctx context.Context, w model.DateWindow) (model.Summary, error) {
	sum := model.Summary{Window: w}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.ListOverdueInWindow(gCtx, w)
		sum.Overdue = items
		return err
	})
	g.Go(func() error {
		items, err := s.ListCheckedOutInWindow(gCtx, w)
		sum.CheckedOut = items
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Summary{}, err
	}
	return sum, nil
}

func (s *Service) emit(ctx context.Context, typ kafka.EventType, rec model.Borrowing) {
	if s.events == nil {
		return
	}
	ev := kafka.EventBorrowing{
		EventID:      uuid.NewString(),
		EventType:    typ,
		EventVersion: 1,
		OccurredAt:   s.now().UTC(),
		Producer:     "lending",
		BorrowingID:  rec.ID,
		BorrowerID:   rec.BorrowerID,
		BookID:       rec.BookID,
		CheckoutDate: rec.CheckoutDate,
		DueDate:      rec.DueDate,
		ReturnDate:   rec.ReturnDate,
	}
	if err := s.events.Log(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("event log",
			zap.String("type", string(typ)),
			zap.Int64("borrowing_id", rec.ID),
			zap.Error(err))
	}
}
