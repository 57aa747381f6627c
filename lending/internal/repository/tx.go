package repository

import (
	"context"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/errs"
)

func (r *repository) InTx(ctx context.Context, fn func(tx LedgerTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin tx", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// the caller's ctx may already be cancelled; the rollback must still reach the server
		rbCtx := context.WithoutCancel(ctx)
		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.log.Error("rollback", zap.Error(rbErr), zap.NamedError("cause", err))
		}
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(&ledgerTx{q: tx, log: r.log}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return classify("commit", err)
	}
	committed = true
	return nil
}

// classify maps driver errors onto error kinds: constraint violations become
// integrity errors, everything else a store failure.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation,
			pgerrcode.ForeignKeyViolation,
			pgerrcode.CheckViolation,
			pgerrcode.NotNullViolation:
			return errs.Integrity(pgErr.ConstraintName, err)
		}
	}
	return errs.Store(op, err)
}

func notFound(err error, notFoundErr error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundErr
	}
	return classify(op, err)
}
