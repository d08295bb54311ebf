package model

// KPI names, in the order they are written
const (
	KPIMaxOrderDate             = "max_order_date"
	KPIMostDemandedProduct      = "most_demanded_product"
	KPIMostDemandedProductSales = "most_demanded_product_sales"
	KPITopCategories            = "top_categories"
)

// KPIColumns is the header of the KPI file
var KPIColumns = []string{"kpi_name", "value"}

// KPIRecord is one derived metric of a pipeline run
type KPIRecord struct {
	Name  string `json:"kpi_name"`
	Value string `json:"value"`
}
