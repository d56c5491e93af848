package worker

import (
	"context"

	"bookshop-pos/internal/broker"
	"bookshop-pos/internal/models"
	"bookshop-pos/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LedgerAuditWorker consumes ledger events and writes an audit log line for each
type LedgerAuditWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewLedgerAuditWorker creates a new audit worker. consumer may be nil when
// only HandleMessage is needed.
func NewLedgerAuditWorker(consumer *broker.Consumer) *LedgerAuditWorker {
	w := &LedgerAuditWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		logger:       util.GetLogger().Named("ledger-audit"),
	}

	w.eventHandler.OnStockAdjusted(w.onStockAdjusted)
	w.eventHandler.OnBookQuantitySet(w.onBookQuantitySet)
	w.eventHandler.OnTransactionRecorded(w.onTransactionRecorded)
	w.eventHandler.OnTransactionDeleted(w.onTransactionDeleted)

	return w
}

// Start blocks consuming events until ctx is cancelled
func (w *LedgerAuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting ledger audit worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *LedgerAuditWorker) Stop() error {
	w.logger.Info("Stopping ledger audit worker")
	return w.consumer.Close()
}

// HandleMessage audits a single message
func (w *LedgerAuditWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.eventHandler.HandleMessage(ctx, msg)
}

func (w *LedgerAuditWorker) onStockAdjusted(_ context.Context, e *models.StockAdjustedEvent) error {
	util.LedgerEventsConsumedTotal.WithLabelValues(e.EventType).Inc()
	w.logger.Info("Stock adjusted",
		zap.String("event_id", e.EventID),
		zap.String("title", e.Title),
		zap.Int64("delta", e.Delta),
		zap.Int64("quantity", e.Quantity))
	return nil
}

func (w *LedgerAuditWorker) onBookQuantitySet(_ context.Context, e *models.BookQuantitySetEvent) error {
	util.LedgerEventsConsumedTotal.WithLabelValues(e.EventType).Inc()
	w.logger.Info("Book quantity set",
		zap.String("event_id", e.EventID),
		zap.Int64("book_id", e.BookID),
		zap.String("title", e.Title),
		zap.Int64("quantity", e.Quantity))
	return nil
}

func (w *LedgerAuditWorker) onTransactionRecorded(_ context.Context, e *models.TransactionRecordedEvent) error {
	util.LedgerEventsConsumedTotal.WithLabelValues(e.EventType).Inc()
	w.logger.Info("Transaction recorded",
		zap.String("event_id", e.EventID),
		zap.Int64("transaction_id", e.TransactionID),
		zap.String("action", e.Action),
		zap.String("book", e.Book),
		zap.Int64("quantity", e.Quantity),
		zap.Int64("total", e.Total))
	return nil
}

func (w *LedgerAuditWorker) onTransactionDeleted(_ context.Context, e *models.TransactionDeletedEvent) error {
	util.LedgerEventsConsumedTotal.WithLabelValues(e.EventType).Inc()
	w.logger.Warn("Transaction deleted",
		zap.String("event_id", e.EventID),
		zap.Int64("transaction_id", e.TransactionID))
	return nil
}
