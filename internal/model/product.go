package model

import (
	"github.com/shopspring/decimal"
)

// Product is immutable reference data read from the products source
type Product struct {
	ID       int64           `gorm:"column:product_id;primaryKey;autoIncrement:false" json:"id"`
	Name     string          `gorm:"column:name;type:text;not null" json:"name"`
	Category string          `gorm:"column:category;type:text" json:"category"`
	Price    decimal.Decimal `gorm:"column:price;type:numeric" json:"price"`
}

func (Product) TableName() string { return "products" }

// ProductColumns is the header of the products source and its quarantine file
var ProductColumns = []string{"id", "name", "category", "price"}
