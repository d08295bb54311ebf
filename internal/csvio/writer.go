package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"orderetl/internal/model"

	"github.com/shopspring/decimal"
)

// WriteFileAtomic writes to a temp file next to path and renames it over
// path, so readers never see a half-written artifact.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func productRow(p model.Product) []string {
	return []string{strconv.FormatInt(p.ID, 10), p.Name, p.Category, p.Price.String()}
}

func orderRow(o model.Order) []string {
	return []string{
		strconv.FormatInt(o.ID, 10),
		strconv.FormatInt(o.ProductID, 10),
		strconv.Itoa(o.Quantity),
		model.FormatDate(o.CreatedDate),
	}
}

// WriteEnriched writes the joined records before conversion
func WriteEnriched(path string, records []model.EnrichedOrder) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			model.FormatDate(r.OrderCreatedDate),
			strconv.FormatInt(r.OrderID, 10),
			r.ProductName,
			strconv.Itoa(r.Quantity),
			nullString(r.TotalPrice),
		})
	}
	return writeCSV(path, model.EnrichedColumns, rows)
}

// WriteConverted writes the enriched records with BRL and USD totals
func WriteConverted(path string, records []model.ConvertedOrder) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			model.FormatDate(r.OrderCreatedDate),
			strconv.FormatInt(r.OrderID, 10),
			r.ProductName,
			strconv.Itoa(r.Quantity),
			nullString(r.TotalPriceBR),
			nullString(r.TotalPriceUS),
		})
	}
	return writeCSV(path, model.ConvertedColumns, rows)
}

// WriteKPIs replaces the KPI file with exactly the given records
func WriteKPIs(path string, kpis []model.KPIRecord) error {
	rows := make([][]string, 0, len(kpis))
	for _, k := range kpis {
		rows = append(rows, []string{k.Name, k.Value})
	}
	return writeCSV(path, model.KPIColumns, rows)
}

// ReadKPIs loads the KPI file of the latest run
func ReadKPIs(path string) ([]model.KPIRecord, error) {
	t, err := readTable(path, model.KPIColumns)
	if err != nil {
		return nil, err
	}
	kpis := make([]model.KPIRecord, 0, len(t.rows))
	for i := range t.rows {
		kpis = append(kpis, model.KPIRecord{Name: t.get(i, "kpi_name"), Value: t.get(i, "value")})
	}
	return kpis, nil
}

// QuarantineFile is a quarantine sink that keeps the rejects of one run in a
// file with the source layout. Every call rewrites the file with all rows
// received so far.
type QuarantineFile[T any] struct {
	mu     sync.Mutex
	path   string
	header []string
	encode func(T) []string
	rows   [][]string
}

// NewProductQuarantine returns a sink for rejected products
func NewProductQuarantine(path string) *QuarantineFile[model.Product] {
	return &QuarantineFile[model.Product]{path: path, header: model.ProductColumns, encode: productRow}
}

// NewOrderQuarantine returns a sink for rejected orders
func NewOrderQuarantine(path string) *QuarantineFile[model.Order] {
	return &QuarantineFile[model.Order]{path: path, header: model.OrderColumns, encode: orderRow}
}

func (q *QuarantineFile[T]) Quarantine(rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range rows {
		q.rows = append(q.rows, q.encode(r))
	}
	return writeCSV(q.path, q.header, q.rows)
}

func (q *QuarantineFile[T]) Path() string { return q.path }

// Reset replaces a quarantine file left by a previous run with a header-only
// file, so a run without rejects still leaves an empty quarantine behind.
func (q *QuarantineFile[T]) Reset() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows = nil
	return writeCSV(q.path, q.header, nil)
}
