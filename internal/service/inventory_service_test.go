package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bookshop-pos/internal/broker"
	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/models"
	"bookshop-pos/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingProducer struct {
	mu   sync.Mutex
	keys []string
	seen []string
}

func (p *capturingProducer) PublishEvent(_ context.Context, key string, event interface{}) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	var base models.BaseEvent
	if err := json.Unmarshal(raw, &base); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.seen = append(p.seen, base.EventType)
	return nil
}

func (p *capturingProducer) Close() error { return nil }

func (p *capturingProducer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func newTestService(t *testing.T, allowNegative bool) (*InventoryService, *capturingProducer) {
	t.Helper()

	st, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	producer := &capturingProducer{}
	svc := NewInventoryService(st, NewLocalLocker(), broker.NewEventPublisher(producer), allowNegative)
	require.NoError(t, svc.Seed(context.Background()))
	return svc, producer
}

func int64Ptr(v int64) *int64 { return &v }

func TestAdjustStockAddThenSell(t *testing.T) {
	svc, producer := newTestService(t, false)
	ctx := context.Background()

	resp, err := svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Beginner", Price: int64Ptr(85000), Quantity: int64Ptr(5)})
	require.NoError(t, err)
	assert.False(t, resp.Created)
	assert.Equal(t, int64(5), resp.Book.Quantity)

	resp, err = svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Beginner", Price: int64Ptr(85000), Quantity: int64Ptr(-3)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Book.Quantity)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(170000), snap.InventoryValue())

	assert.Equal(t, []string{models.EventTypeStockAdjusted, models.EventTypeStockAdjusted}, producer.types())
}

func TestAdjustStockUnknownTitleZeroPrice(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()

	resp, err := svc.AdjustStock(ctx, &AdjustStockRequest{Title: "New Course", Quantity: int64Ptr(1)})
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Zero(t, resp.Book.Price)
}

func TestAdjustStockRejectsOversell(t *testing.T) {
	svc, producer := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Kids Level 2", Quantity: int64Ptr(-1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStockViolation))
	assert.Empty(t, producer.types())
}

func TestAdjustStockAllowsNegativeWhenConfigured(t *testing.T) {
	svc, _ := newTestService(t, true)

	resp, err := svc.AdjustStock(context.Background(), &AdjustStockRequest{Title: "Kids Level 2", Quantity: int64Ptr(-1)})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), resp.Book.Quantity)
}

func TestAdjustStockValidation(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, &AdjustStockRequest{Quantity: int64Ptr(1)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Beginner"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestAdjustStockLockWaitTimesOut(t *testing.T) {
	svc, producer := newTestService(t, false)

	unlock, err := svc.locker.Lock(context.Background(), titleLockKey("Beginner"))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Beginner", Quantity: int64Ptr(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, errs.ErrStorage))
	assert.Empty(t, producer.types())
}

func TestConcurrentSellsOneSucceeds(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Beginner", Quantity: int64Ptr(5)})
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustStock(ctx, &AdjustStockRequest{Title: "Beginner", Quantity: int64Ptr(-5)})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, violations int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errs.ErrStockViolation):
			violations++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, violations)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Books[0].Quantity)
}

func TestRecordTransactionFillsTimestamp(t *testing.T) {
	svc, producer := newTestService(t, false)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

	tx, err := svc.RecordTransaction(context.Background(), &RecordTransactionRequest{
		Action: models.ActionSold, Book: "Beginner", Quantity: 1, Total: 85000,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.Equal(t, "3/5/2024, 2:07:09 PM", tx.Timestamp)
	assert.Equal(t, []string{models.EventTypeTransactionRecorded}, producer.types())
}

func TestRecordTransactionKeepsClientTimestamp(t *testing.T) {
	svc, _ := newTestService(t, false)

	tx, err := svc.RecordTransaction(context.Background(), &RecordTransactionRequest{
		Action: models.ActionAdded, Book: "Unknown Title", Quantity: 2, Total: 0, Timestamp: "12/31/2023, 11:59:59 PM",
	})
	require.NoError(t, err)
	assert.Equal(t, "12/31/2023, 11:59:59 PM", tx.Timestamp)
	assert.Equal(t, "Unknown Title", tx.Book)
}

func TestRecordTransactionValidation(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()

	_, err := svc.RecordTransaction(ctx, &RecordTransactionRequest{Book: "Beginner"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.RecordTransaction(ctx, &RecordTransactionRequest{Action: models.ActionSold})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSetQuantity(t *testing.T) {
	svc, producer := newTestService(t, false)
	ctx := context.Background()

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	id := snap.Books[3].ID

	book, err := svc.SetQuantity(ctx, id, &SetQuantityRequest{Quantity: int64Ptr(12)})
	require.NoError(t, err)
	assert.Equal(t, int64(12), book.Quantity)
	assert.Equal(t, snap.Books[3].Title, book.Title)
	assert.Equal(t, []string{models.EventTypeBookQuantitySet}, producer.types())

	_, err = svc.SetQuantity(ctx, id+1000, &SetQuantityRequest{Quantity: int64Ptr(1)})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.SetQuantity(ctx, id, &SetQuantityRequest{Quantity: int64Ptr(-1)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.SetQuantity(ctx, id, &SetQuantityRequest{})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDeleteTransaction(t *testing.T) {
	svc, producer := newTestService(t, false)
	ctx := context.Background()

	tx, err := svc.RecordTransaction(ctx, &RecordTransactionRequest{Action: models.ActionAdded, Book: "Beginner", Quantity: 1, Total: 85000})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))
	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Transactions)

	assert.Equal(t, []string{models.EventTypeTransactionRecorded, models.EventTypeTransactionDeleted}, producer.types())
}

func TestCatalogHasSixteenTitles(t *testing.T) {
	svc, _ := newTestService(t, false)
	assert.Len(t, svc.Catalog(), 16)
}
