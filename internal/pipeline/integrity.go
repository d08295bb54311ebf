package pipeline

import (
	"sort"

	"orderetl/internal/model"
)

// IntegrityReport lists orders that reference a product missing from the
// cleaned product set. It is a warning: orphans are kept, not removed.
type IntegrityReport struct {
	Orphans           []model.Order
	MissingProductIDs []int64
}

func (r IntegrityReport) OK() bool { return len(r.Orphans) == 0 }

// CheckReferences reports orders whose product_id has no matching product.
func CheckReferences(orders []model.Order, products []model.Product) IntegrityReport {
	known := make(map[int64]struct{}, len(products))
	for _, p := range products {
		known[p.ID] = struct{}{}
	}

	var report IntegrityReport
	missing := make(map[int64]struct{})
	for _, o := range orders {
		if _, ok := known[o.ProductID]; ok {
			continue
		}
		report.Orphans = append(report.Orphans, o)
		if _, seen := missing[o.ProductID]; !seen {
			missing[o.ProductID] = struct{}{}
			report.MissingProductIDs = append(report.MissingProductIDs, o.ProductID)
		}
	}
	sort.Slice(report.MissingProductIDs, func(i, j int) bool {
		return report.MissingProductIDs[i] < report.MissingProductIDs[j]
	})
	return report
}
