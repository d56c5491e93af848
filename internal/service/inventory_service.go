package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshop-pos/internal/broker"
	"bookshop-pos/internal/catalog"
	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/models"
	"bookshop-pos/internal/store"
	"bookshop-pos/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// InventoryService handles stock and ledger business logic
type InventoryService struct {
	store          *store.Store
	locker         TitleLocker
	eventPublisher *broker.EventPublisher
	allowNegative  bool
	now            func() time.Time
	logger         *zap.Logger
}

// NewInventoryService creates a new inventory service. A nil locker falls
// back to an in-process one.
func NewInventoryService(
	store *store.Store,
	locker TitleLocker,
	eventPublisher *broker.EventPublisher,
	allowNegative bool,
) *InventoryService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if eventPublisher == nil {
		eventPublisher = broker.NewEventPublisher(nil)
	}
	return &InventoryService{
		store:          store,
		locker:         locker,
		eventPublisher: eventPublisher,
		allowNegative:  allowNegative,
		now:            time.Now,
		logger:         util.GetLogger(),
	}
}

// AdjustStockRequest represents a stock change for one title.
// Quantity is a signed delta; negative values are sales.
type AdjustStockRequest struct {
	Title    string `json:"title" binding:"notblank"`
	Price    *int64 `json:"price"`
	Quantity *int64 `json:"quantity" binding:"required"`
}

// AdjustStockResponse reports the book after the change
type AdjustStockResponse struct {
	Book    *models.Book
	Created bool
}

// RecordTransactionRequest represents a ledger entry to append
type RecordTransactionRequest struct {
	Action    string `json:"action" binding:"notblank"`
	Book      string `json:"book" binding:"notblank"`
	Quantity  int64  `json:"quantity"`
	Total     int64  `json:"total"`
	Timestamp string `json:"timestamp"`
}

// SetQuantityRequest represents an administrative quantity overwrite
type SetQuantityRequest struct {
	Quantity *int64 `json:"quantity" binding:"required"`
}

// Snapshot returns every book and transaction
func (s *InventoryService) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.Snapshot")
	defer span.End()

	snap, err := s.store.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return snap, nil
}

// Catalog returns the fixed title/price table
func (s *InventoryService) Catalog() []catalog.Entry {
	return catalog.Entries()
}

// Seed loads the catalog titles into an empty books table
func (s *InventoryService) Seed(ctx context.Context) error {
	n, err := s.store.Seed(ctx, catalog.Entries())
	if err != nil {
		return fmt.Errorf("failed to seed books: %w", err)
	}
	if n > 0 {
		s.logger.Info("Seeded books from catalog", zap.Int("count", n))
	}
	return nil
}

// Ping checks the backing store
func (s *InventoryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// AdjustStock applies a signed quantity change to a title, creating the
// book on first use. Oversells are rejected unless negative stock is allowed.
func (s *InventoryService) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*AdjustStockResponse, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock",
		attribute.String("book.title", req.Title))
	defer span.End()

	if req.Title == "" {
		return nil, errs.Validation("title is required")
	}
	if req.Quantity == nil {
		return nil, errs.Validation("quantity is required")
	}
	delta := *req.Quantity
	price := catalog.PriceOf(req.Title)
	if req.Price != nil {
		price = *req.Price
	}

	start := time.Now()
	defer func() {
		util.StockAdjustLatency.Observe(time.Since(start).Seconds())
	}()

	unlock, err := s.locker.Lock(ctx, titleLockKey(req.Title))
	if err != nil {
		util.TitleLockFailuresTotal.Inc()
		return nil, errs.Lock("title", err)
	}
	defer unlock()

	book, created, err := s.store.UpsertBookQuantity(ctx, req.Title, price, delta, s.allowNegative)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "adjust stock failed")
		if errors.Is(err, errs.ErrStockViolation) {
			util.StockViolationsTotal.Inc()
			s.logger.Info("Stock adjustment rejected",
				zap.String("title", req.Title),
				zap.Int64("delta", delta),
				zap.Error(err))
		}
		return nil, err
	}

	util.StockAdjustmentsTotal.WithLabelValues(direction(delta)).Inc()
	if created {
		util.BooksCreatedTotal.Inc()
	}

	s.logger.Info("Stock adjusted",
		zap.Int64("book_id", book.ID),
		zap.String("title", book.Title),
		zap.Int64("delta", delta),
		zap.Int64("quantity", book.Quantity),
		zap.Bool("created", created))

	if err := s.eventPublisher.PublishStockAdjusted(ctx, book.Title, delta, book.Quantity); err != nil {
		s.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
	}

	return &AdjustStockResponse{Book: book, Created: created}, nil
}

// RecordTransaction appends a ledger entry. The book title is not checked
// against existing books. An empty timestamp is filled with the current time.
func (s *InventoryService) RecordTransaction(ctx context.Context, req *RecordTransactionRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.RecordTransaction",
		attribute.String("transaction.action", req.Action),
		attribute.String("book.title", req.Book))
	defer span.End()

	if req.Action == "" {
		return nil, errs.Validation("action is required")
	}
	if req.Book == "" {
		return nil, errs.Validation("book is required")
	}

	tx := &models.Transaction{
		Action:    req.Action,
		Book:      req.Book,
		Quantity:  req.Quantity,
		Total:     req.Total,
		Timestamp: req.Timestamp,
	}
	if tx.Timestamp == "" {
		tx.Timestamp = s.now().Format(models.TimestampLayout)
	}

	unlock, err := s.locker.Lock(ctx, titleLockKey(req.Book))
	if err != nil {
		util.TitleLockFailuresTotal.Inc()
		return nil, errs.Lock("title", err)
	}
	defer unlock()

	if err := s.store.RecordTransaction(ctx, tx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	util.TransactionsRecordedTotal.WithLabelValues(tx.Action).Inc()
	s.logger.Info("Transaction recorded",
		zap.Int64("transaction_id", tx.ID),
		zap.String("action", tx.Action),
		zap.String("book", tx.Book),
		zap.Int64("quantity", tx.Quantity),
		zap.Int64("total", tx.Total))

	if err := s.eventPublisher.PublishTransactionRecorded(ctx, tx); err != nil {
		s.logger.Error("Failed to publish TransactionRecorded event", zap.Error(err))
	}

	return tx, nil
}

// SetQuantity overwrites the quantity of the book with the given id
func (s *InventoryService) SetQuantity(ctx context.Context, id int64, req *SetQuantityRequest) (*models.Book, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.SetQuantity",
		attribute.Int64("book.id", id))
	defer span.End()

	if req.Quantity == nil {
		return nil, errs.Validation("quantity is required")
	}
	if *req.Quantity < 0 && !s.allowNegative {
		return nil, errs.Validation("quantity must not be negative")
	}

	unlock, err := s.locker.Lock(ctx, ledgerLockKey)
	if err != nil {
		util.TitleLockFailuresTotal.Inc()
		return nil, errs.Lock("ledger", err)
	}
	defer unlock()

	book, err := s.store.SetBookQuantityByID(ctx, id, *req.Quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	util.BookQuantitySetTotal.Inc()
	s.logger.Info("Book quantity set",
		zap.Int64("book_id", book.ID),
		zap.String("title", book.Title),
		zap.Int64("quantity", book.Quantity))

	if err := s.eventPublisher.PublishBookQuantitySet(ctx, book); err != nil {
		s.logger.Error("Failed to publish BookQuantitySet event", zap.Error(err))
	}

	return book, nil
}

// DeleteTransaction removes a ledger entry. Stock is not restored and a
// missing id is not an error.
func (s *InventoryService) DeleteTransaction(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.DeleteTransaction",
		attribute.Int64("transaction.id", id))
	defer span.End()

	unlock, err := s.locker.Lock(ctx, ledgerLockKey)
	if err != nil {
		util.TitleLockFailuresTotal.Inc()
		return errs.Lock("ledger", err)
	}
	defer unlock()

	deleted, err := s.store.DeleteTransactionByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !deleted {
		s.logger.Debug("Transaction already absent", zap.Int64("transaction_id", id))
		return nil
	}

	util.TransactionsDeletedTotal.Inc()
	s.logger.Info("Transaction deleted", zap.Int64("transaction_id", id))

	if err := s.eventPublisher.PublishTransactionDeleted(ctx, id); err != nil {
		s.logger.Error("Failed to publish TransactionDeleted event", zap.Error(err))
	}

	return nil
}

func direction(delta int64) string {
	if delta < 0 {
		return "out"
	}
	return "in"
}
