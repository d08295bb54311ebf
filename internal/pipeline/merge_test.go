package pipeline

import (
	"testing"
	"time"

	"orderetl/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleProducts() []model.Product {
	return []model.Product{
		{ID: 1, Name: "Notebook", Category: "Office", Price: price("10.50")},
		{ID: 2, Name: "Mouse", Category: "Electronics", Price: price("25")},
		{ID: 3, Name: "Chair", Category: "Furniture", Price: price("0")},
	}
}

func TestMerge_LeftJoinComputesTotals(t *testing.T) {
	orders := []model.Order{
		{ID: 100, ProductID: 1, Quantity: 3, CreatedDate: day("2024-01-01")},
		{ID: 101, ProductID: 2, Quantity: 2, CreatedDate: day("2024-01-02")},
		{ID: 102, ProductID: 3, Quantity: 7, CreatedDate: day("2024-01-02")},
	}

	got := Merge(orders, sampleProducts())

	require.Len(t, got, len(orders))
	for i, e := range got {
		assert.Equal(t, orders[i].ID, e.OrderID)
		assert.True(t, e.HasProduct)
		require.True(t, e.TotalPrice.Valid)
	}
	assert.Equal(t, "31.5", got[0].TotalPrice.Decimal.String())
	assert.Equal(t, "Notebook", got[0].ProductName)
	assert.Equal(t, "50", got[1].TotalPrice.Decimal.String())
	assert.True(t, got[2].TotalPrice.Decimal.IsZero())
}

func TestMerge_UnknownProductKeepsOrder(t *testing.T) {
	orders := []model.Order{
		{ID: 1, ProductID: 99, Quantity: 4, CreatedDate: day("2024-02-10")},
	}

	got := Merge(orders, sampleProducts())

	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].OrderID)
	assert.Equal(t, 4, got[0].Quantity)
	assert.False(t, got[0].HasProduct)
	assert.Empty(t, got[0].ProductName)
	assert.False(t, got[0].TotalPrice.Valid)
}

func TestMerge_NormalizesDates(t *testing.T) {
	orders := []model.Order{
		{ID: 1, ProductID: 1, Quantity: 1, CreatedDate: time.Date(2024, 3, 5, 17, 45, 12, 0, time.UTC)},
	}

	got := Merge(orders, sampleProducts())

	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got[0].OrderCreatedDate)
}

func TestJoin_KeepsBothSidesDistinct(t *testing.T) {
	orders := []model.Order{{ID: 2, ProductID: 1, Quantity: 1}}

	rows := Join(orders, sampleProducts())

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Product)
	assert.Equal(t, int64(2), rows[0].Order.ID)
	assert.Equal(t, int64(1), rows[0].Product.ID)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	products := sampleProducts()
	orders := []model.Order{{ID: 1, ProductID: 1, Quantity: 2, CreatedDate: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}}
	before := orders[0]

	_ = Merge(orders, products)

	assert.Equal(t, before, orders[0])
	assert.Equal(t, sampleProducts(), products)
}
