// Package pipeline holds the pure transformation stages of the order ETL:
// joining, currency conversion, cleaning and KPI derivation. Nothing in here
// performs I/O except through the Sink handed to Clean.
package pipeline

import (
	"orderetl/internal/model"

	"github.com/shopspring/decimal"
)

// JoinedRow keeps order-side and product-side values apart until projection.
// Product is nil when the order references an unknown product.
type JoinedRow struct {
	Order   model.Order
	Product *model.Product
}

// Join left-joins orders to products on product_id = id, one row per order,
// preserving order input order. The first product loaded for an id wins.
func Join(orders []model.Order, products []model.Product) []JoinedRow {
	byID := make(map[int64]*model.Product, len(products))
	for i := range products {
		if _, dup := byID[products[i].ID]; !dup {
			byID[products[i].ID] = &products[i]
		}
	}

	rows := make([]JoinedRow, 0, len(orders))
	for _, o := range orders {
		row := JoinedRow{Order: o}
		if p, ok := byID[o.ProductID]; ok {
			cp := *p
			row.Product = &cp
		}
		rows = append(rows, row)
	}
	return rows
}

// Project renames a joined row to the enriched record layout and computes
// total_price = quantity * price when a product matched.
func (r JoinedRow) Project() model.EnrichedOrder {
	e := model.EnrichedOrder{
		OrderCreatedDate: model.TruncateDate(r.Order.CreatedDate),
		OrderID:          r.Order.ID,
		Quantity:         r.Order.Quantity,
	}
	if r.Product != nil {
		e.HasProduct = true
		e.ProductName = r.Product.Name
		e.TotalPrice = decimal.NewNullDecimal(decimal.NewFromInt(int64(r.Order.Quantity)).Mul(r.Product.Price))
	}
	return e
}

// Merge joins and projects in one step.
func Merge(orders []model.Order, products []model.Product) []model.EnrichedOrder {
	joined := Join(orders, products)
	out := make([]model.EnrichedOrder, 0, len(joined))
	for _, row := range joined {
		out = append(out, row.Project())
	}
	return out
}
