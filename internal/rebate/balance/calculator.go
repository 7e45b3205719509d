// Package balance computes per-SKU rebate amounts, running balances and the
// multi-level check-balance aggregate.
package balance

import (
	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

// Calculate is the full recompute: for every customer it merges defaults and
// persisted values per SKU, derives the rebate amount and the strictly
// decreasing running balance, and accumulates the DM / non-DM buckets.
//
// It is pure and idempotent; inputs are never mutated. This is the baseline
// every incremental path must agree with.
func Calculate(catalog field.Catalog, groups []domain.CustomerGroup, persisted domain.ArtifactValues) (domain.ArtifactValues, domain.CheckBalanceAll) {
	result := persisted.Clone()
	if result == nil {
		result = domain.ArtifactValues{}
	}
	defaults := catalog.SavableDefaults()
	all := domain.CheckBalanceAll{domain.AllCustomersKey: {}}

	for _, group := range groups {
		entry := result[group.Customer]
		if entry.Value == nil {
			entry.Value = domain.CustomerArtifactValues{}
		}

		var each domain.CheckBalanceEach
		running := group.Entitlement

		for idx, sku := range group.SkuRecords {
			recommended := domain.AsFloat(sku.FieldsData[field.HostRecommendedAmt].Value)
			splitTotal := domain.AsFloat(sku.FieldsData[field.HostOutstandingSplit].Value)
			grandTotal := domain.AsFloat(sku.FieldsData[field.HostOutstandingAll].Value)
			isDM := domain.AsString(sku.FieldsData[field.HostCategory].Value) == field.CategoryDM

			values := make(map[string]any, len(defaults)+3)
			for k, v := range defaults {
				values[k] = v
			}
			for k, v := range entry.Value[sku.UIDKey] {
				values[k] = v
			}

			amount := rebateAmount(values, recommended, idx, catalog.Limits.MaxRatedSKUs)
			values[field.RebateAmt] = amount

			// Bucket totals are pre-aggregated upstream: assigned, not summed.
			if isDM {
				each.DM.Total = splitTotal
				each.DM.Used += amount
			} else {
				each.NonDM.Total = splitTotal
				each.NonDM.Used += amount
			}
			each.Total.Total = grandTotal

			running -= amount
			values[field.Balance] = running
			if group.Entitlement == 0 {
				values[field.BalancePct] = float64(0)
			} else {
				values[field.BalancePct] = running / group.Entitlement * 100
			}
			entry.Value[sku.UIDKey] = values
		}

		result[group.Customer] = entry
		all[group.Customer] = each
	}

	return result, Finalize(all)
}

// rebateAmount applies the rebate-type mode, the negative-value fallback and
// the per-customer position cap.
func rebateAmount(values map[string]any, recommended float64, idx, maxRated int) float64 {
	if idx >= maxRated {
		return 0
	}
	amount := domain.AsFloat(values[field.QtyOrAmt])
	if domain.AsString(values[field.RebateType]) == field.RebateTypeFreeGoods {
		amount = domain.AsFloat(values[field.QtyOrAmt]) * domain.AsFloat(values[field.SellingPrice])
	}
	if amount < 0 {
		amount = recommended
	}
	return amount
}
