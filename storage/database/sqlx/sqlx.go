package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
)

// orderByClause renders the orderings as an SQL ORDER BY list on the columns of alias, falling back to def.
func orderByClause(ordering []core.DBOrdering, alias, def string) string {
	if len(ordering) == 0 {
		return def
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		ord.Field = alias + "." + ord.Field
		orderList = append(orderList, ord.String())
	}
	return strings.Join(orderList, ", ")
}

// inTx runs fn in a transaction, committing if it succeeds and rolling back otherwise.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// affectedOrNotFound returns notFound if the statement did not change any row.
func affectedOrNotFound(res interface{ RowsAffected() (int64, error) }, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
