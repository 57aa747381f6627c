package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/model"
)

// LedgerTx is the transactional view of the inventory store and the borrowing ledger.
// Lock methods take row locks that are held until the transaction ends.
type LedgerTx interface {
	// GetBorrower share-locks the borrower so it cannot be deleted under a running checkout.
	GetBorrower(ctx context.Context, id int64) (model.Borrower, error)
	LockBorrowerForUpdate(ctx context.Context, id int64) (model.Borrower, error)
	DeleteBorrower(ctx context.Context, id int64) error

	LockBookForUpdate(ctx context.Context, id int64) (model.Book, error)
	DecrementAvailable(ctx context.Context, bookID int64) error
	IncrementAvailable(ctx context.Context, bookID int64) error
	AddCopies(ctx context.Context, bookID int64, n int) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error

	InsertBorrowing(ctx context.Context, nb model.NewBorrowing) (model.Borrowing, error)
	LockBorrowing(ctx context.Context, id int64) (model.Borrowing, error)
	MarkReturned(ctx context.Context, id int64, returnDate time.Time) (model.Borrowing, error)
	GetBorrowingView(ctx context.Context, id int64) (model.BorrowingView, error)
	CountActive(ctx context.Context, filter model.BorrowingFilter) (int, error)
}

type Repository interface {
	// InTx runs fn in one transaction. Any error from fn, a panic, or a failed
	// commit rolls everything back; fn's error is returned unchanged.
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
	ListBorrowings(ctx context.Context, filter model.BorrowingFilter) ([]model.BorrowingView, error)

	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	SearchBooks(ctx context.Context, search model.BookSearch) ([]model.Book, error)
	UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error)

	CreateBorrower(ctx context.Context, req model.CreateBorrowerRequest) (model.Borrower, error)
	GetBorrower(ctx context.Context, id int64) (model.Borrower, error)
	ListBorrowers(ctx context.Context) ([]model.Borrower, error)
	UpdateBorrower(ctx context.Context, id int64, req model.UpdateBorrowerRequest) (model.Borrower, error)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewRepository(db *pgxpool.Pool, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

var _ Repository = (*repository)(nil)

const (
	booksTableName      = `books`
	borrowersTableName  = `borrowers`
	borrowingsTableName = `borrowings`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	bookColumns      = []string{"id", "title", "author", "isbn", "shelf_location", "total_quantity", "available_quantity", "created_at", "updated_at"}
	borrowerColumns  = []string{"id", "name", "email", "created_at", "updated_at"}
	borrowingColumns = []string{"id", "borrower_id", "book_id", "checkout_date", "due_date", "return_date"}
)
