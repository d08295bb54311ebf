package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single order row. CreatedDate never carries a time of day.
type Order struct {
	ID          int64     `gorm:"column:order_id;primaryKey;autoIncrement:false" json:"id"`
	ProductID   int64     `gorm:"column:product_id" json:"product_id"`
	Quantity    int       `gorm:"column:quantity" json:"quantity"`
	CreatedDate time.Time `gorm:"column:created_date;type:date" json:"created_date"`
}

func (Order) TableName() string { return "orders" }

// OrderColumns is the header of the orders source and its quarantine file
var OrderColumns = []string{"id", "product_id", "quantity", "created_date"}

// EnrichedOrder is an order joined with its product.
// When no product matched, HasProduct is false and TotalPrice is not valid.
type EnrichedOrder struct {
	OrderCreatedDate time.Time
	OrderID          int64
	ProductName      string
	HasProduct       bool
	Quantity         int
	TotalPrice       decimal.NullDecimal
}

// EnrichedColumns is the header of the unconverted enriched file
var EnrichedColumns = []string{"order_created_date", "order_id", "product_name", "quantity", "total_price"}

// ConvertedOrder replaces the ambiguous total with explicit BRL and USD amounts
type ConvertedOrder struct {
	OrderCreatedDate time.Time
	OrderID          int64
	ProductName      string
	HasProduct       bool
	Quantity         int
	TotalPriceBR     decimal.NullDecimal
	TotalPriceUS     decimal.NullDecimal
}

// ConvertedColumns is the header of the converted enriched file
var ConvertedColumns = []string{"order_created_date", "order_id", "product_name", "quantity", "total_price_br", "total_price_us"}
