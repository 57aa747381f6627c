package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/model"
)

func borrowingViewSelect() sq.SelectBuilder {
	return qb.Select(
		"br.id", "br.borrower_id", "br.book_id", "br.checkout_date", "br.due_date", "br.return_date",
		"bo.name AS borrower_name",
		"b.title AS book_title", "b.author AS book_author", "b.isbn AS book_isbn", "b.shelf_location",
	).
		From(borrowingsTableName + " br").
		Join(fmt.Sprintf("%s b on b.id = br.book_id", booksTableName)).
		Join(fmt.Sprintf("%s bo on bo.id = br.borrower_id", borrowersTableName))
}

func applyFilter(q sq.SelectBuilder, f model.BorrowingFilter) sq.SelectBuilder {
	if f.BorrowerID != nil {
		q = q.Where(sq.Eq{"br.borrower_id": *f.BorrowerID})
	}
	if f.BookID != nil {
		q = q.Where(sq.Eq{"br.book_id": *f.BookID})
	}
	if f.ActiveOnly {
		q = q.Where(sq.Eq{"br.return_date": nil})
	}
	if f.DueBefore != nil {
		q = q.Where(sq.Lt{"br.due_date": *f.DueBefore})
	}
	if f.CheckoutFrom != nil {
		q = q.Where(sq.GtOrEq{"br.checkout_date": *f.CheckoutFrom})
	}
	if f.CheckoutTo != nil {
		q = q.Where(sq.LtOrEq{"br.checkout_date": *f.CheckoutTo})
	}
	if w := f.DueWindow; w != nil {
		q = q.Where(sq.GtOrEq{"br.due_date": w.Start}).Where(sq.Lt{"br.due_date": w.End})
	}
	if w := f.CheckoutWindow; w != nil {
		q = q.Where(sq.GtOrEq{"br.checkout_date": w.Start}).Where(sq.Lt{"br.checkout_date": w.End})
	}
	return q
}

func orderBy(o model.BorrowingOrder) string {
	if o == model.OrderByCheckoutDate {
		return "br.checkout_date ASC, br.id ASC"
	}
	return "br.due_date ASC, br.id ASC"
}

func (r *repository) ListBorrowings(ctx context.Context, filter model.BorrowingFilter) ([]model.BorrowingView, error) {
	query, args, err := applyFilter(borrowingViewSelect(), filter).
		OrderBy(orderBy(filter.Order)).
		ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListBorrowings", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list borrowings", err)
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.BorrowingView])
	if err != nil {
		return nil, classify("pgx.CollectRows", err)
	}
	return items, nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
