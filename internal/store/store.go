package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookshop-pos/internal/catalog"
	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	booksTable        = "books"
	transactionsTable = "transactions"
)

var (
	bookColumns        = []string{"id", "title", "price", "quantity"}
	transactionColumns = []string{"id", "action", "book", "quantity", "total", "timestamp"}
)

type Store struct {
	db     *sqlx.DB
	driver string
	qb     sq.StatementBuilderType
}

// Open connects to the database without touching the schema
func Open(driver, databaseURL string) (*Store, error) {
	var (
		dsn         string
		placeholder sq.PlaceholderFormat
	)
	switch driver {
	case DriverSQLite:
		dsn = databaseURL
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)"
		}
		placeholder = sq.Question
	case DriverPostgres:
		dsn = databaseURL
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// a single connection keeps :memory: alive and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &Store{
		db:     db,
		driver: driver,
		qb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}

// NewStore opens the database and applies pending migrations
func NewStore(driver, databaseURL string) (*Store, error) {
	s, err := Open(driver, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the configured driver name
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return errs.Storage("ping", s.db.PingContext(ctx))
}

// Seed inserts every catalog title with zero stock when the books table is empty
func (s *Store) Seed(ctx context.Context, entries []catalog.Entry) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errs.Storage("begin seed", err)
	}
	defer tx.Rollback()

	query, args, err := s.qb.Select("COUNT(*)").From(booksTable).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errs.Storage("count books", err)
	}
	if count > 0 {
		return 0, nil
	}

	insert := s.qb.Insert(booksTable).Columns("title", "price", "quantity")
	for _, e := range entries {
		insert = insert.Values(e.Title, e.Price, 0)
	}
	query, args, err = insert.ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, errs.Storage("seed books", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errs.Storage("commit seed", err)
	}
	return len(entries), nil
}

// ListAll retrieves every book and every transaction in insertion order
func (s *Store) ListAll(ctx context.Context) (*models.Snapshot, error) {
	books := []models.Book{}
	query, args, err := s.qb.Select(bookColumns...).From(booksTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, errs.Storage("select books", err)
	}

	transactions := []models.Transaction{}
	query, args, err = s.qb.Select(transactionColumns...).From(transactionsTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, errs.Storage("select transactions", err)
	}

	return &models.Snapshot{Books: books, Transactions: transactions}, nil
}

// forUpdate adds a row lock where the driver supports one. SQLite
// serializes writers on its single connection instead.
func (s *Store) forUpdate(b sq.SelectBuilder) sq.SelectBuilder {
	if s.driver == DriverPostgres {
		return b.Suffix("FOR UPDATE")
	}
	return b
}
