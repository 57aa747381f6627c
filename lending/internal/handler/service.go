package handler

import (
	"context"
	"time"

	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/lending/internal/service"
	"github.com/Astemirdum/lending-service/pkg/redisx"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type BorrowingService interface {
	Checkout(ctx context.Context, req model.CheckoutRequest) (model.Borrowing, error)
	ReturnItem(ctx context.Context, borrowingID int64) (model.BorrowingView, error)
	ListActive(ctx context.Context, borrowerID int64) ([]model.BorrowingView, error)
	ListOverdue(ctx context.Context) ([]model.BorrowingView, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]model.BorrowingView, error)
	ListOverdueInWindow(ctx context.Context, w model.DateWindow) ([]model.BorrowingView, error)
	ListCheckedOutInWindow(ctx context.Context, w model.DateWindow) ([]model.BorrowingView, error)
	Summary(ctx context.Context, w model.DateWindow) (model.Summary, error)
	LastMonth() model.DateWindow
}

type CatalogService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	SearchBooks(ctx context.Context, search model.BookSearch) ([]model.Book, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)
	ProvisionCopies(ctx context.Context, bookID int64, n int) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	CreateBorrower(ctx context.Context, req model.CreateBorrowerRequest) (model.Borrower, error)
	GetBorrower(ctx context.Context, id int64) (model.Borrower, error)
	ListBorrowers(ctx context.Context) ([]model.Borrower, error)
	UpdateBorrower(ctx context.Context, id int64, req model.UpdateBorrowerRequest) (model.Borrower, error)
	DeleteBorrower(ctx context.Context, id int64) error
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string) (stored []byte, reserved bool, err error)
	Complete(ctx context.Context, key, fingerprint string, response []byte) error
	Release(ctx context.Context, key string) error
}

var (
	_ BorrowingService = (*service.Service)(nil)
	_ CatalogService   = (*service.Service)(nil)
	_ IdempotencyStore = (*redisx.IdempotencyStore)(nil)
)
