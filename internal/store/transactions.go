package store

import (
	"context"

	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/models"

	sq "github.com/Masterminds/squirrel"
)

// RecordTransaction appends a ledger entry and sets its assigned ID
func (s *Store) RecordTransaction(ctx context.Context, t *models.Transaction) error {
	query, args, err := s.qb.Insert(transactionsTable).
		Columns("action", "book", "quantity", "total", "timestamp").
		Values(t.Action, t.Book, t.Quantity, t.Total, t.Timestamp).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	if err := s.db.GetContext(ctx, &t.ID, query, args...); err != nil {
		return errs.Storage("insert transaction", err)
	}
	return nil
}

// DeleteTransactionByID removes one ledger entry. Deleting an ID that does
// not exist is not an error; the bool reports whether a row was removed.
// Stock is never restored.
func (s *Store) DeleteTransactionByID(ctx context.Context, id int64) (bool, error) {
	query, args, err := s.qb.Delete(transactionsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errs.Storage("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Storage("delete transaction rows affected", err)
	}
	return n > 0, nil
}
