package csvio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"orderetl/internal/model"
	"orderetl/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadProducts(t *testing.T) {
	path := writeFile(t, "products.csv", "id,name,category,price\n1,Notebook,Office,10.50\n2, Mouse ,Electronics,-3\n")

	products, err := ReadProducts(path)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "10.5", products[0].Price.String())
	assert.Equal(t, "Mouse", products[1].Name)
	assert.True(t, products[1].Price.IsNegative())
}

func TestReadProducts_ColumnOrderDoesNotMatter(t *testing.T) {
	path := writeFile(t, "products.csv", "price,category,name,id\n4.2,Toys,Ball,9\n")

	products, err := ReadProducts(path)

	require.NoError(t, err)
	assert.Equal(t, model.Product{ID: 9, Name: "Ball", Category: "Toys", Price: decimal.RequireFromString("4.2")}, products[0])
}

func TestReadOrders(t *testing.T) {
	path := writeFile(t, "orders.csv", "id,product_id,quantity,created_date\n10,1,3,2024-01-01 13:45:00\n11,2,0,2024-01-02\n")

	orders, err := ReadOrders(path)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), orders[0].CreatedDate)
	assert.Equal(t, 0, orders[1].Quantity)
}

func TestRead_SourceNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.csv")

	_, err := ReadOrders(missing)

	require.ErrorIs(t, err, ErrSourceNotFound)
	assert.Contains(t, err.Error(), missing)
}

func TestRead_MalformedNumbersAreFatal(t *testing.T) {
	tests := []struct {
		name    string
		content string
		column  string
		orders  bool
	}{
		{"price text", "id,name,category,price\n1,A,B,abc\n", "price", false},
		{"price empty", "id,name,category,price\n1,A,B,\n", "price", false},
		{"quantity text", "id,product_id,quantity,created_date\n1,1,many,2024-01-01\n", "quantity", true},
		{"bad date", "id,product_id,quantity,created_date\n1,1,1,yesterday\n", "created_date", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "src.csv", tt.content)
			var err error
			if tt.orders {
				_, err = ReadOrders(path)
			} else {
				_, err = ReadProducts(path)
			}

			require.ErrorIs(t, err, ErrMalformedRecord)
			var rerr *RecordError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, 2, rerr.Line)
			assert.Equal(t, tt.column, rerr.Column)
		})
	}
}

func TestRead_MissingColumn(t *testing.T) {
	path := writeFile(t, "orders.csv", "id,product_id,created_date\n1,1,2024-01-01\n")

	_, err := ReadOrders(path)

	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "quantity")
}

func TestWriteConverted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "fixed.csv")
	records := []model.ConvertedOrder{
		{
			OrderCreatedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			OrderID:          1, ProductName: "Notebook", HasProduct: true, Quantity: 3,
			TotalPriceBR: decimal.NewNullDecimal(decimal.RequireFromString("31.5")),
			TotalPriceUS: decimal.NewNullDecimal(decimal.RequireFromString("6.3")),
		},
		{OrderCreatedDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), OrderID: 2, Quantity: 1},
	}

	require.NoError(t, WriteConverted(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "order_created_date,order_id,product_name,quantity,total_price_br,total_price_us\n"+
		"2024-01-01,1,Notebook,3,31.5,6.3\n"+
		"2024-01-02,2,,1,,\n", string(data))
}

func TestWriteKPIs_OverwritesAndReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kpi.csv")
	require.NoError(t, WriteKPIs(path, []model.KPIRecord{{Name: "old", Value: "1"}, {Name: "older", Value: "2"}}))

	kpis := []model.KPIRecord{
		{Name: model.KPIMaxOrderDate, Value: "2024-01-01"},
		{Name: model.KPIMostDemandedProduct, Value: "A"},
		{Name: model.KPIMostDemandedProductSales, Value: "150.01"},
		{Name: model.KPITopCategories, Value: "Toys > Books"},
	}
	require.NoError(t, WriteKPIs(path, kpis))

	got, err := ReadKPIs(path)
	require.NoError(t, err)
	assert.Equal(t, kpis, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestQuarantineFile_SourceLayout(t *testing.T) {
	dir := t.TempDir()
	sink := NewOrderQuarantine(filepath.Join(dir, "orders_quarantine.csv"))
	orders := []model.Order{
		{ID: 1, ProductID: 1, Quantity: 2, CreatedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, ProductID: 1, Quantity: 0, CreatedDate: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
	}

	accepted, rejected, err := pipeline.Clean[model.Order](orders, pipeline.OrderQuantityRule, sink)
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
	assert.Len(t, rejected, 1)

	back, err := ReadOrders(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, rejected, back)

	require.NoError(t, sink.Reset())
	back, err = ReadOrders(sink.Path())
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestQuarantineFile_ResetLeavesHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "products_quarantine.csv")
	sink := NewProductQuarantine(path)

	require.NoError(t, sink.Reset())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,name,category,price\n", string(raw))

	require.NoError(t, sink.Quarantine(nil))
	back, err := ReadProducts(path)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestProductQuarantine_RoundTrip(t *testing.T) {
	sink := NewProductQuarantine(filepath.Join(t.TempDir(), "products_quarantine.csv"))
	bad := []model.Product{{ID: 7, Name: "Broken, Inc", Category: "Misc", Price: decimal.RequireFromString("-0.01")}}

	require.NoError(t, sink.Quarantine(bad))

	back, err := ReadProducts(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, "Broken, Inc", back[0].Name)
	assert.Equal(t, "-0.01", back[0].Price.String())
}
