package service

import (
	"context"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/repository"
)

func (s *Service) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	if req.Quantity < 0 {
		return model.Book{}, errs.ErrInvalidQuantity
	}
	return s.repo.CreateBook(ctx, req)
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) SearchBooks(ctx context.Context, search model.BookSearch) ([]model.Book, error) {
	return s.repo.SearchBooks(ctx, search)
}

func (s *Service) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	if req.Empty() {
		return model.Book{}, errs.ErrNothingToUpdate
	}
	return s.repo.UpdateBook(ctx, id, req)
}

// ProvisionCopies adds n copies to both the total and the available count.
func (s *Service) ProvisionCopies(ctx context.Context, bookID int64, n int) (model.Book, error) {
	if n <= 0 {
		return model.Book{}, errs.ErrInvalidQuantity
	}
	var book model.Book
	err := s.repo.InTx(ctx, func(tx repository.LedgerTx) error {
		if _, err := tx.LockBookForUpdate(ctx, bookID); err != nil {
			return err
		}
		var err error
		book, err = tx.AddCopies(ctx, bookID, n)
		return err
	})
	return book, err
}

// DeleteBook refuses while copies are lent out. A book with closed history is
// still referenced by the ledger and the store rejects the delete.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(tx repository.LedgerTx) error {
		if _, err := tx.LockBookForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountActive(ctx, model.BorrowingFilter{BookID: &id})
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrHasActiveBorrowings
		}
		return tx.DeleteBook(ctx, id)
	})
}

func (s *Service) CreateBorrower(ctx context.Context, req model.CreateBorrowerRequest) (model.Borrower, error) {
	return s.repo.CreateBorrower(ctx, req)
}

func (s *Service) GetBorrower(ctx context.Context, id int64) (model.Borrower, error) {
	return s.repo.GetBorrower(ctx, id)
}

func (s *Service) ListBorrowers(ctx context.Context) ([]model.Borrower, error) {
	return s.repo.ListBorrowers(ctx)
}

func (s *Service) UpdateBorrower(ctx context.Context, id int64, req model.UpdateBorrowerRequest) (model.Borrower, error) {
	if req.Empty() {
		return model.Borrower{}, errs.ErrNothingToUpdate
	}
	return s.repo.UpdateBorrower(ctx, id, req)
}

func (s *Service) DeleteBorrower(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(tx repository.LedgerTx) error {
		if _, err := tx.LockBorrowerForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountActive(ctx, model.BorrowingFilter{BorrowerID: &id})
		if err != nil {
			return err
		}
		if n > 0 {
			return errs.ErrHasActiveBorrowings
		}
		return tx.DeleteBorrower(ctx, id)
	})
}
