package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookshop-pos/internal/models"
	"bookshop-pos/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing ledger events
type EventPublisher struct {
	producer Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Producer) *EventPublisher {
	if producer == nil {
		producer = NopProducer{}
	}
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func (ep *EventPublisher) publish(ctx context.Context, eventType, key string, event interface{}) error {
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		util.LedgerEventsFailedTotal.WithLabelValues(eventType).Inc()
		return err
	}
	util.LedgerEventsPublishedTotal.WithLabelValues(eventType).Inc()
	return nil
}

// PublishStockAdjusted publishes StockAdjusted event keyed by title
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, title string, delta, quantity int64) error {
	event := &models.StockAdjustedEvent{
		BaseEvent: newBaseEvent(models.EventTypeStockAdjusted),
		Title:     title,
		Delta:     delta,
		Quantity:  quantity,
	}
	return ep.publish(ctx, models.EventTypeStockAdjusted, "title-"+title, event)
}

// PublishBookQuantitySet publishes BookQuantitySet event keyed by title
func (ep *EventPublisher) PublishBookQuantitySet(ctx context.Context, book *models.Book) error {
	event := &models.BookQuantitySetEvent{
		BaseEvent: newBaseEvent(models.EventTypeBookQuantitySet),
		BookID:    book.ID,
		Title:     book.Title,
		Quantity:  book.Quantity,
	}
	return ep.publish(ctx, models.EventTypeBookQuantitySet, "title-"+book.Title, event)
}

// PublishTransactionRecorded publishes TransactionRecorded event
func (ep *EventPublisher) PublishTransactionRecorded(ctx context.Context, tx *models.Transaction) error {
	event := &models.TransactionRecordedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeTransactionRecorded),
		TransactionID: tx.ID,
		Action:        tx.Action,
		Book:          tx.Book,
		Quantity:      tx.Quantity,
		Total:         tx.Total,
		TxTimestamp:   tx.Timestamp,
	}
	return ep.publish(ctx, models.EventTypeTransactionRecorded, fmt.Sprintf("transaction-%d", tx.ID), event)
}

// PublishTransactionDeleted publishes TransactionDeleted event
func (ep *EventPublisher) PublishTransactionDeleted(ctx context.Context, id int64) error {
	event := &models.TransactionDeletedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeTransactionDeleted),
		TransactionID: id,
	}
	return ep.publish(ctx, models.EventTypeTransactionDeleted, fmt.Sprintf("transaction-%d", id), event)
}

// Close closes the underlying producer
func (ep *EventPublisher) Close() error {
	return ep.producer.Close()
}

// EventHandler routes incoming ledger events by type
type EventHandler struct {
	handlers map[string]func(context.Context, []byte) error
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		handlers: make(map[string]func(context.Context, []byte) error),
		logger:   util.GetLogger(),
	}
}

// On registers a raw handler for one event type, replacing any earlier one
func (eh *EventHandler) On(eventType string, handler func(context.Context, []byte) error) {
	eh.handlers[eventType] = handler
}

// OnStockAdjusted registers a handler for StockAdjusted events
func (eh *EventHandler) OnStockAdjusted(handler func(context.Context, *models.StockAdjustedEvent) error) {
	eh.On(models.EventTypeStockAdjusted, decodeInto(handler))
}

// OnBookQuantitySet registers a handler for BookQuantitySet events
func (eh *EventHandler) OnBookQuantitySet(handler func(context.Context, *models.BookQuantitySetEvent) error) {
	eh.On(models.EventTypeBookQuantitySet, decodeInto(handler))
}

// OnTransactionRecorded registers a handler for TransactionRecorded events
func (eh *EventHandler) OnTransactionRecorded(handler func(context.Context, *models.TransactionRecordedEvent) error) {
	eh.On(models.EventTypeTransactionRecorded, decodeInto(handler))
}

// OnTransactionDeleted registers a handler for TransactionDeleted events
func (eh *EventHandler) OnTransactionDeleted(handler func(context.Context, *models.TransactionDeletedEvent) error) {
	eh.On(models.EventTypeTransactionDeleted, decodeInto(handler))
}

func decodeInto[T any](handler func(context.Context, *T) error) func(context.Context, []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var event T
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal %T: %w", event, err)
		}
		return handler(ctx, &event)
	}
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	handler, ok := eh.handlers[baseEvent.EventType]
	if !ok {
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
		return nil
	}
	return handler(ctx, msg.Value)
}
