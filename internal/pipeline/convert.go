package pipeline

import (
	"orderetl/internal/model"

	"github.com/shopspring/decimal"
)

// Convert applies one rate to the whole batch. The original total is kept as
// total_price_br and total_price_us = total_price_br * rate. Rows without a
// total stay without one.
func Convert(records []model.EnrichedOrder, rate decimal.Decimal) []model.ConvertedOrder {
	out := make([]model.ConvertedOrder, 0, len(records))
	for _, r := range records {
		c := model.ConvertedOrder{
			OrderCreatedDate: r.OrderCreatedDate,
			OrderID:          r.OrderID,
			ProductName:      r.ProductName,
			HasProduct:       r.HasProduct,
			Quantity:         r.Quantity,
			TotalPriceBR:     r.TotalPrice,
		}
		if r.TotalPrice.Valid {
			c.TotalPriceUS = decimal.NewNullDecimal(r.TotalPrice.Decimal.Mul(rate))
		}
		out = append(out, c)
	}
	return out
}
