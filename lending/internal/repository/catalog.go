package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
	"github.com/Astemirdum/lending-service/lending/internal/model"
)

func (r *repository) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns("title", "author", "isbn", "shelf_location", "total_quantity", "available_quantity").
		Values(req.Title, req.Author, req.ISBN, req.ShelfLocation, req.Quantity, req.Quantity).
		Suffix("RETURNING " + joinColumns(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return collectOne[model.Book](ctx, r.db, errs.ErrBookNotFound, "insert book", query, args...)
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return collectOne[model.Book](ctx, r.db, errs.ErrBookNotFound, "select book", query, args...)
}

func (r *repository) SearchBooks(ctx context.Context, search model.BookSearch) ([]model.Book, error) {
	q := qb.Select(bookColumns...).From(booksTableName)
	if search.Title != "" {
		q = q.Where(sq.ILike{"title": "%" + search.Title + "%"})
	}
	if search.Author != "" {
		q = q.Where(sq.ILike{"author": "%" + search.Author + "%"})
	}
	if search.ISBN != "" {
		q = q.Where(sq.Eq{"isbn": search.ISBN})
	}
	query, args, err := q.OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("search books", err)
	}
	defer rows.Close()

	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return nil, classify("pgx.CollectRows", err)
	}
	return books, nil
}

func (r *repository) UpdateBook(ctx context.Context, id int64, req model.UpdateBookRequest) (model.Book, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("now()")}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Author != nil {
		set["author"] = *req.Author
	}
	if req.ISBN != nil {
		set["isbn"] = *req.ISBN
	}
	if req.ShelfLocation != nil {
		set["shelf_location"] = *req.ShelfLocation
	}
	query, args, err := qb.Update(booksTableName).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(bookColumns)).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	return collectOne[model.Book](ctx, r.db, errs.ErrBookNotFound, "update book", query, args...)
}

func (r *repository) CreateBorrower(ctx context.Context, req model.CreateBorrowerRequest) (model.Borrower, error) {
	query, args, err := qb.Insert(borrowersTableName).
		Columns("name", "email").
		Values(req.Name, req.Email).
		Suffix("RETURNING " + joinColumns(borrowerColumns)).
		ToSql()
	if err != nil {
		return model.Borrower{}, err
	}
	return collectOne[model.Borrower](ctx, r.db, errs.ErrBorrowerNotFound, "insert borrower", query, args...)
}

func (r *repository) GetBorrower(ctx context.Context, id int64) (model.Borrower, error) {
	query, args, err := qb.Select(borrowerColumns...).
		From(borrowersTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Borrower{}, err
	}
	return collectOne[model.Borrower](ctx, r.db, errs.ErrBorrowerNotFound, "select borrower", query, args...)
}

func (r *repository) ListBorrowers(ctx context.Context) ([]model.Borrower, error) {
	query, args, err := qb.Select(borrowerColumns...).
		From(borrowersTableName).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list borrowers", err)
	}
	defer rows.Close()

	borrowers, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Borrower])
	if err != nil {
		return nil, classify("pgx.CollectRows", err)
	}
	return borrowers, nil
}

func (r *repository) UpdateBorrower(ctx context.Context, id int64, req model.UpdateBorrowerRequest) (model.Borrower, error) {
	set := map[string]interface{}{"updated_at": sq.Expr("now()")}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Email != nil {
		set["email"] = *req.Email
	}
	query, args, err := qb.Update(borrowersTableName).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(borrowerColumns)).
		ToSql()
	if err != nil {
		return model.Borrower{}, err
	}
	return collectOne[model.Borrower](ctx, r.db, errs.ErrBorrowerNotFound, "update borrower", query, args...)
}
