package models

import "time"

// Event types
const (
	EventTypeStockAdjusted       = "STOCK_ADJUSTED"
	EventTypeBookQuantitySet     = "BOOK_QUANTITY_SET"
	EventTypeTransactionRecorded = "TRANSACTION_RECORDED"
	EventTypeTransactionDeleted  = "TRANSACTION_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockAdjustedEvent published when a title's quantity is changed by a delta
type StockAdjustedEvent struct {
	BaseEvent
	Title    string `json:"title"`
	Delta    int64  `json:"delta"`
	Quantity int64  `json:"quantity"`
}

// BookQuantitySetEvent published on a manual quantity correction
type BookQuantitySetEvent struct {
	BaseEvent
	BookID   int64  `json:"book_id"`
	Title    string `json:"title"`
	Quantity int64  `json:"quantity"`
}

// TransactionRecordedEvent published when a ledger entry is appended
type TransactionRecordedEvent struct {
	BaseEvent
	TransactionID int64  `json:"transaction_id"`
	Action        string `json:"action"`
	Book          string `json:"book"`
	Quantity      int64  `json:"quantity"`
	Total         int64  `json:"total"`
	TxTimestamp   string `json:"tx_timestamp"`
}

// TransactionDeletedEvent published when a ledger entry is removed
type TransactionDeletedEvent struct {
	BaseEvent
	TransactionID int64 `json:"transaction_id"`
}
