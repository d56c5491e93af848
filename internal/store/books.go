package store

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/models"

	sq "github.com/Masterminds/squirrel"
)

// UpsertBookQuantity atomically applies delta to the stock of title,
// creating the book when it does not exist yet. The read, check and write
// happen inside one transaction so concurrent sales of the same title can
// never drive the quantity below zero unless allowNegative is set.
// The returned bool reports whether a new book row was created.
func (s *Store) UpsertBookQuantity(ctx context.Context, title string, price, delta int64, allowNegative bool) (*models.Book, bool, error) {
	if delta == math.MinInt64 {
		return nil, false, errs.Validation("quantity out of range")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, errs.Storage("begin upsert", err)
	}
	defer tx.Rollback()

	query, args, err := s.forUpdate(
		s.qb.Select(bookColumns...).
			From(booksTable).
			Where(sq.Eq{"title": title}).
			OrderBy("id").
			Limit(1),
	).ToSql()
	if err != nil {
		return nil, false, err
	}

	var (
		book    models.Book
		created bool
	)
	err = tx.GetContext(ctx, &book, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if delta < 0 && !allowNegative {
			return nil, false, &errs.StockViolationError{Title: title, Available: 0, Requested: -delta}
		}

		query, args, err = s.qb.Insert(booksTable).
			Columns("title", "price", "quantity").
			Values(title, price, delta).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return nil, false, err
		}
		book = models.Book{Title: title, Price: price, Quantity: delta}
		if err := tx.GetContext(ctx, &book.ID, query, args...); err != nil {
			return nil, false, errs.Storage("insert book", err)
		}
		created = true

	case err != nil:
		return nil, false, errs.Storage("select book for update", err)

	default:
		next, ok := addQuantity(book.Quantity, delta)
		if !ok {
			return nil, false, errs.Validation("quantity out of range")
		}
		if next < 0 && !allowNegative {
			return nil, false, &errs.StockViolationError{Title: title, Available: book.Quantity, Requested: -delta}
		}

		query, args, err = s.qb.Update(booksTable).
			Set("quantity", sq.Expr("quantity + ?", delta)).
			Where(sq.Eq{"id": book.ID}).
			ToSql()
		if err != nil {
			return nil, false, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, false, errs.Storage("update book quantity", err)
		}
		book.Quantity = next
	}

	if err := tx.Commit(); err != nil {
		return nil, false, errs.Storage("commit upsert", err)
	}

	return &book, created, nil
}

// addQuantity returns a+b and false when the sum does not fit in an int64
func addQuantity(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// SetBookQuantityByID overwrites the quantity of one book
func (s *Store) SetBookQuantityByID(ctx context.Context, id, quantity int64) (*models.Book, error) {
	query, args, err := s.qb.Update(booksTable).
		Set("quantity", quantity).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, title, price, quantity").
		ToSql()
	if err != nil {
		return nil, err
	}

	var book models.Book
	err = s.db.GetContext(ctx, &book, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Storage("set book quantity", err)
	}

	return &book, nil
}

// GetBookByTitle returns the first book row with the given title
func (s *Store) GetBookByTitle(ctx context.Context, title string) (*models.Book, error) {
	query, args, err := s.qb.Select(bookColumns...).
		From(booksTable).
		Where(sq.Eq{"title": title}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var book models.Book
	err = s.db.GetContext(ctx, &book, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, errs.Storage("get book", err)
	}

	return &book, nil
}
