package models

// Book represents a stocked title with its quantity on hand
type Book struct {
	ID       int64  `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Price    int64  `db:"price" json:"price"`
	Quantity int64  `db:"quantity" json:"quantity"`
}

// Transaction represents an immutable ledger entry for an addition or a sale
type Transaction struct {
	ID        int64  `db:"id" json:"id"`
	Action    string `db:"action" json:"action"`
	Book      string `db:"book" json:"book"`
	Quantity  int64  `db:"quantity" json:"quantity"`
	Total     int64  `db:"total" json:"total"`
	Timestamp string `db:"timestamp" json:"timestamp"`
}

// Snapshot is the full data set returned to the client
type Snapshot struct {
	Books        []Book        `json:"books"`
	Transactions []Transaction `json:"transactions"`
}

// InventoryValue sums price*quantity over all books
func (s Snapshot) InventoryValue() int64 {
	var total int64
	for _, b := range s.Books {
		total += b.Price * b.Quantity
	}
	return total
}

// LedgerTotal sums the frozen totals of all transactions
func (s Snapshot) LedgerTotal() int64 {
	var total int64
	for _, t := range s.Transactions {
		total += t.Total
	}
	return total
}

// Transaction actions produced by the client
const (
	ActionAdded = "Added"
	ActionSold  = "Sold"
)

// TimestampLayout matches the en-US Date.toLocaleString format used by the client
const TimestampLayout = "1/2/2006, 3:04:05 PM"
