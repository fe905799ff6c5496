// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exec, dest, query, args...)
}

func getRow(ctx context.Context, exec core.DBExecutor, dest interface{}, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exec, dest, query, args...)
}

// execStmt runs an INSERT, UPDATE or DELETE and returns the number of affected rows.
func execStmt(ctx context.Context, exec core.DBExecutor, b sq.Sqlizer) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building statement")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func orderBy(b sq.SelectBuilder, ordering []core.DBOrdering) sq.SelectBuilder {
	for _, ord := range ordering {
		b = b.OrderBy(ord.String())
	}
	return b
}

// trapNoRowsErr maps psql "no rows" err to the repository's not found error
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validIDs drops the IDs postgres would reject as malformed uuids.
func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

func jsonText(v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json column")
	}
	return types.JSONText(b), nil
}

// anyFold matches rows whose text array column contains val, ignoring case.
func anyFold(column, val string) sq.Sqlizer {
	return sq.Expr("EXISTS (SELECT 1 FROM unnest("+column+") v WHERE lower(v) = lower(?))", val)
}

func contains(val string) string {
	return "%" + val + "%"
}

// inTx runs fn in a transaction, rolling back when it fails.
func inTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
