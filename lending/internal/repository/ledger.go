package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
)

type ledgerTx struct {
	q   querier
	log *zap.Logger
}

func (t *ledgerTx) GetBorrower(ctx context.Context, id int64) (model.Borrower, error) {
	return t.selectBorrower(ctx, id, "FOR SHARE")
}

func (t *ledgerTx) LockBorrowerForUpdate(ctx context.Context, id int64) (model.Borrower, error) {
	return t.selectBorrower(ctx, id, "FOR UPDATE")
}

func (t *ledgerTx) selectBorrower(ctx context.Context, id int64, lock string) (model.Borrower, error) {
	query, args, err := qb.Select(borrowerColumns...).
		From(borrowersTableName).
		Where(sq.Eq{"id": id}).
		Suffix(lock).
		ToSql()
	if err != nil {
		return model.Borrower{}, err
	}
	return collectOne[model.Borrower](ctx, t.q, errs.ErrBorrowerNotFound, "select borrower", query, args...)
}

func (t *ledgerTx) DeleteBorrower(ctx context.Context, id int64) error {
	return t.deleteByID(ctx, borrowersTableName, id, errs.ErrBorrowerNotFound)
}

func (t *ledgerTx) LockBookForUpdate(ctx context.Context, id int64) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return collectOne[model.Book](ctx, t.q, errs.ErrBookNotFound, "lock book", query, args...)
}

func (t *ledgerTx) DecrementAvailable(ctx context.Context, bookID int64) error {
	return t.adjustAvailable(ctx, bookID, -1)
}

func (t *ledgerTx) IncrementAvailable(ctx context.Context, bookID int64) error {
	return t.adjustAvailable(ctx, bookID, 1)
}

func (t *ledgerTx) adjustAvailable(ctx context.Context, bookID int64, delta int) error {
	const q = `
update books
    set available_quantity = available_quantity + @delta, updated_at = now()
where id = @book_id`
	tag, err := t.q.Exec(ctx, q, pgx.NamedArgs{
		"book_id": bookID,
		"delta":   delta,
	})
	if err != nil {
		return classify("adjust available", err)
	}
	if tag.RowsAffected() != 1 {
		return errs.ErrBookNotFound
	}
	return nil
}

func (t *ledgerTx) AddCopies(ctx context.Context, bookID int64, n int) (model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		Set("total_quantity", sq.Expr("total_quantity + ?", n)).
		Set("available_quantity", sq.Expr("available_quantity + ?", n)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": bookID}).
		Suffix("RETURNING " + joinColumns(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return collectOne[model.Book](ctx, t.q, errs.ErrBookNotFound, "add copies", query, args...)
}

func (t *ledgerTx) DeleteBook(ctx context.Context, id int64) error {
	return t.deleteByID(ctx, booksTableName, id, errs.ErrBookNotFound)
}

func (t *ledgerTx) deleteByID(ctx context.Context, table string, id int64, notFoundErr error) error {
	query, args, err := qb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		return classify("delete "+table, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr
	}
	return nil
}

func (t *ledgerTx) InsertBorrowing(ctx context.Context, nb model.NewBorrowing) (model.Borrowing, error) {
	query, args, err := qb.Insert(borrowingsTableName).
		Columns("borrower_id", "book_id", "checkout_date", "due_date").
		Values(nb.BorrowerID, nb.BookID, nb.CheckoutDate, nb.DueDate).
		Suffix("RETURNING " + joinColumns(borrowingColumns)).
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	rec, err := collectOne[model.Borrowing](ctx, t.q, errs.ErrBorrowingNotFound, "insert borrowing", query, args...)
	if err != nil {
		t.log.Debug("InsertBorrowing", zap.String("query", query), zap.Any("args", args), zap.Error(err))
		return model.Borrowing{}, err
	}
	return rec, nil
}

func (t *ledgerTx) LockBorrowing(ctx context.Context, id int64) (model.Borrowing, error) {
	query, args, err := qb.Select(borrowingColumns...).
		From(borrowingsTableName).
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	return collectOne[model.Borrowing](ctx, t.q, errs.ErrBorrowingNotFound, "lock borrowing", query, args...)
}

func (t *ledgerTx) MarkReturned(ctx context.Context, id int64, returnDate time.Time) (model.Borrowing, error) {
	query, args, err := qb.Update(borrowingsTableName).
		Set("return_date", returnDate).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"return_date": nil}).
		Suffix("RETURNING " + joinColumns(borrowingColumns)).
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}
	// the row is locked by LockBorrowing, so no rows here means it was already returned
	return collectOne[model.Borrowing](ctx, t.q, errs.ErrAlreadyReturned, "mark returned", query, args...)
}

func (t *ledgerTx) GetBorrowingView(ctx context.Context, id int64) (model.BorrowingView, error) {
	query, args, err := borrowingViewSelect().
		Where(sq.Eq{"br.id": id}).
		ToSql()
	if err != nil {
		return model.BorrowingView{}, err
	}
	return collectOne[model.BorrowingView](ctx, t.q, errs.ErrBorrowingNotFound, "select borrowing", query, args...)
}

func (t *ledgerTx) CountActive(ctx context.Context, filter model.BorrowingFilter) (int, error) {
	filter.ActiveOnly = true
	query, args, err := applyFilter(qb.Select("count(*)").From(borrowingsTableName+" br"), filter).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := t.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count active", err)
	}
	return n, nil
}

func collectOne[T any](ctx context.Context, q querier, notFoundErr error, op, query string, args ...any) (T, error) {
	var zero T
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return zero, classify(op, err)
	}
	defer rows.Close()

	v, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return zero, notFound(err, notFoundErr, op)
	}
	return v, nil
}
