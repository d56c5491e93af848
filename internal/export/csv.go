// Package export renders books and transactions as CSV snapshots.
//
// The format is deliberately simple: the first line lists the field names,
// each following line holds one record. String values are JSON-quoted and
// numbers are written bare, matching what the browser client produces.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bookshop-pos/internal/models"
)

// BookHeader and TransactionHeader follow the JSON field order of the models
var (
	BookHeader        = []string{"id", "title", "price", "quantity"}
	TransactionHeader = []string{"id", "action", "book", "quantity", "total", "timestamp"}
)

// Write renders header plus one line per row. Zero rows produce no output.
// Lines are separated by "\n" without a trailing newline.
func Write(w io.Writer, header []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(header, ","))
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(header))
		}
		fields := make([]string, len(row))
		for j, v := range row {
			field, err := formatValue(v)
			if err != nil {
				return fmt.Errorf("row %d field %q: %w", i, header[j], err)
			}
			fields[j] = field
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func formatValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return quote(val)
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// quote produces a JSON string literal without HTML escaping
func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Books writes the book list
func Books(w io.Writer, books []models.Book) error {
	rows := make([][]interface{}, len(books))
	for i, b := range books {
		rows[i] = []interface{}{b.ID, b.Title, b.Price, b.Quantity}
	}
	return Write(w, BookHeader, rows)
}

// Transactions writes the ledger
func Transactions(w io.Writer, txs []models.Transaction) error {
	rows := make([][]interface{}, len(txs))
	for i, t := range txs {
		rows[i] = []interface{}{t.ID, t.Action, t.Book, t.Quantity, t.Total, t.Timestamp}
	}
	return Write(w, TransactionHeader, rows)
}
