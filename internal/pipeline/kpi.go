package pipeline

import (
	"errors"
	"sort"
	"strings"
	"time"

	"orderetl/internal/model"

	"github.com/shopspring/decimal"
)

// ErrNoData is returned when there is nothing to derive KPIs from.
var ErrNoData = errors.New("no orders with a known product to compute KPIs from")

// CategorySeparator joins the top category names.
const CategorySeparator = " > "

const (
	topCategoryCount = 3
	salesPlaces      = 2
)

// ProductDemand is the per-product aggregate behind the demand KPIs
type ProductDemand struct {
	Name     string
	Quantity int64
	SalesUSD decimal.Decimal
}

// CategoryDemand is the per-category quantity behind top_categories
type CategoryDemand struct {
	Category string
	Quantity int64
}

// ComputeKPIs derives the four run KPIs in their fixed output order.
func ComputeKPIs(orders []model.ConvertedOrder, products []model.Product) ([]model.KPIRecord, error) {
	if len(orders) == 0 {
		return nil, ErrNoData
	}

	busiest := MaxOrderDate(orders)

	demand := RankProducts(orders)
	if len(demand) == 0 {
		return nil, ErrNoData
	}
	top := demand[0]

	categories := RankCategories(orders, products)
	names := make([]string, 0, topCategoryCount)
	for i := 0; i < len(categories) && i < topCategoryCount; i++ {
		names = append(names, categories[i].Category)
	}

	return []model.KPIRecord{
		{Name: model.KPIMaxOrderDate, Value: model.FormatDate(busiest)},
		{Name: model.KPIMostDemandedProduct, Value: top.Name},
		{Name: model.KPIMostDemandedProductSales, Value: RoundSales(top.SalesUSD).StringFixed(salesPlaces)},
		{Name: model.KPITopCategories, Value: strings.Join(names, CategorySeparator)},
	}, nil
}

// MaxOrderDate returns the date with the most orders. Ties go to the earliest
// date. orders must not be empty.
func MaxOrderDate(orders []model.ConvertedOrder) time.Time {
	counts := make(map[time.Time]int)
	for _, o := range orders {
		counts[model.TruncateDate(o.OrderCreatedDate)]++
	}

	dates := make([]time.Time, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	best := dates[0]
	for _, d := range dates[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// RankProducts sums quantity and USD sales per product name, most demanded
// first. Equal quantities are ordered by name. Orders without a product are
// left out.
func RankProducts(orders []model.ConvertedOrder) []ProductDemand {
	byName := make(map[string]*ProductDemand)
	for _, o := range orders {
		if !o.HasProduct {
			continue
		}
		d, ok := byName[o.ProductName]
		if !ok {
			d = &ProductDemand{Name: o.ProductName}
			byName[o.ProductName] = d
		}
		d.Quantity += int64(o.Quantity)
		if o.TotalPriceUS.Valid {
			d.SalesUSD = d.SalesUSD.Add(o.TotalPriceUS.Decimal)
		}
	}

	ranked := make([]ProductDemand, 0, len(byName))
	for _, d := range byName {
		ranked = append(ranked, *d)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// RankCategories joins orders back to products by product name and sums
// quantity per category, highest first, ties ordered by category name.
// A product name shared by several products counts once per product.
func RankCategories(orders []model.ConvertedOrder, products []model.Product) []CategoryDemand {
	categoriesByName := make(map[string][]string)
	for _, p := range products {
		categoriesByName[p.Name] = append(categoriesByName[p.Name], p.Category)
	}

	totals := make(map[string]int64)
	for _, o := range orders {
		if !o.HasProduct {
			continue
		}
		for _, c := range categoriesByName[o.ProductName] {
			if c == "" {
				continue
			}
			totals[c] += int64(o.Quantity)
		}
	}

	ranked := make([]CategoryDemand, 0, len(totals))
	for c, q := range totals {
		ranked = append(ranked, CategoryDemand{Category: c, Quantity: q})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Category < ranked[j].Category
	})
	return ranked
}

// RoundSales rounds half away from zero to cents: 150.005 becomes 150.01.
func RoundSales(v decimal.Decimal) decimal.Decimal {
	return v.Round(salesPlaces)
}
