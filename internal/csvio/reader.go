// Package csvio reads the order and product sources and writes every
// comma-separated artifact of a run.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"orderetl/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrSourceNotFound  = errors.New("source not found")
	ErrMalformedRecord = errors.New("malformed record")
)

// RecordError points at the offending cell of a source file
type RecordError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: line %d: column %q: %v", e.Path, e.Line, e.Column, e.Err)
}

func (e *RecordError) Unwrap() []error { return []error{ErrMalformedRecord, e.Err} }

// table is a parsed CSV file with its header resolved to column positions
type table struct {
	path  string
	index map[string]int
	rows  [][]string
	lines []int
}

func (t *table) get(row int, column string) string {
	return strings.TrimSpace(t.rows[row][t.index[column]])
}

func (t *table) fail(row int, column string, err error) error {
	return &RecordError{Path: t.path, Line: t.lines[row], Column: column, Err: err}
}

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &RecordError{Path: path, Line: 1, Err: errors.New("missing header row")}
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &table{path: path, index: make(map[string]int, len(header))}
	for i, h := range header {
		t.index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, &RecordError{Path: path, Line: 1, Column: col, Err: errors.New("required column missing from header")}
		}
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &RecordError{Path: path, Line: perr.Line, Err: perr.Err}
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		if len(rec) < len(header) {
			return nil, &RecordError{Path: path, Line: line, Err: fmt.Errorf("expected %d fields, got %d", len(header), len(rec))}
		}
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

// ReadProducts loads the products source. Prices must be numeric; the sign
// is left for the cleaner to judge.
func ReadProducts(path string) ([]model.Product, error) {
	t, err := readTable(path, model.ProductColumns)
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(t.rows))
	for i := range t.rows {
		id, err := strconv.ParseInt(t.get(i, "id"), 10, 64)
		if err != nil {
			return nil, t.fail(i, "id", err)
		}

		price, err := decimal.NewFromString(t.get(i, "price"))
		if err != nil {
			return nil, t.fail(i, "price", err)
		}
		products = append(products, model.Product{
			ID:       id,
			Name:     t.get(i, "name"),
			Category: t.get(i, "category"),
			Price:    price,
		})
	}

	slog.Info("loaded source", "dataset", "products", "path", path, "rows", len(products))
	return products, nil
}

// ReadOrders loads the orders source. Quantities must be integers and dates
// parseable; the quantity sign is left for the cleaner to judge.
func ReadOrders(path string) ([]model.Order, error) {
	t, err := readTable(path, model.OrderColumns)
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(t.rows))
	for i := range t.rows {
		id, err := strconv.ParseInt(t.get(i, "id"), 10, 64)
		if err != nil {
			return nil, t.fail(i, "id", err)
		}

		productID, err := strconv.ParseInt(t.get(i, "product_id"), 10, 64)
		if err != nil {
			return nil, t.fail(i, "product_id", err)
		}
		qty, err := strconv.Atoi(t.get(i, "quantity"))
		if err != nil {
			return nil, t.fail(i, "quantity", err)
		}
		created, err := model.ParseDate(t.get(i, "created_date"))
		if err != nil {
			return nil, t.fail(i, "created_date", err)
		}
		orders = append(orders, model.Order{
			ID:          id,
			ProductID:   productID,
			Quantity:    qty,
			CreatedDate: created,
		})
	}

	slog.Info("loaded source", "dataset", "orders", "path", path, "rows", len(orders))
	return orders, nil
}
