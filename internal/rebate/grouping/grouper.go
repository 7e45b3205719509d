// Package grouping turns a flat query result into the customer -> category
// -> SKU hierarchy the planning table renders.
package grouping

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

// spanFields are the cells that visually cover a run of adjacent rows.
var spanFields = []string{field.HostCustomer, field.HostEntitlement, field.HostCategory}

// Group sorts rows into their canonical order and builds one CustomerGroup
// per customer, with row-span annotations on the grouping cells.
//
// The sort key is customer_category_sku under locale-aware collation; ties
// keep input order. Everything downstream (running balances, persisted
// record order) relies on this ordering, so groups must never be re-sorted
// after construction.
func Group(rows []domain.QueryRow, hostFields []field.Field) []domain.CustomerGroup {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]domain.QueryRow, len(rows))
	copy(sorted, rows)
	coll := collate.New(language.Und)
	sort.SliceStable(sorted, func(i, j int) bool {
		return coll.CompareString(compositeKey(sorted[i]), compositeKey(sorted[j])) < 0
	})

	groups := buildGroups(sorted, hostFields)
	assignSpans(groups)
	return groups
}

func compositeKey(row domain.QueryRow) string {
	return groupValue(row, field.HostCustomer) + "_" +
		groupValue(row, field.HostCategory) + "_" +
		groupValue(row, field.HostSKU)
}

// groupValue reads a grouping cell as a string. Blank or missing values
// collapse into the sentinel bucket rather than becoming empty keys.
func groupValue(row domain.QueryRow, name string) string {
	cell, ok := row[name]
	if !ok {
		return domain.UnknownGroupKey
	}
	v := strings.TrimSpace(domain.AsString(cell.Value))
	if v == "" {
		return domain.UnknownGroupKey
	}
	return v
}

// buildGroups is phase one: the flat ordered SKU sequence, grouped by
// customer, with every span cell initialized to zero.
func buildGroups(sorted []domain.QueryRow, hostFields []field.Field) []domain.CustomerGroup {
	var groups []domain.CustomerGroup
	lastCustomer := ""

	for _, row := range sorted {
		customer := groupValue(row, field.HostCustomer)
		if len(groups) == 0 || customer != lastCustomer {
			groups = append(groups, domain.CustomerGroup{
				Customer:    customer,
				Entitlement: domain.AsFloat(cellValue(row, field.HostEntitlement)),
			})
			lastCustomer = customer
		}

		group := &groups[len(groups)-1]
		skuName := groupValue(row, field.HostSKU)
		group.SkuRecords = append(group.SkuRecords, domain.SkuRecord{
			SkuName:    skuName,
			UIDKey:     UIDKey(skuName, group.SkuRecords),
			FieldsData: buildFieldsData(row, hostFields),
		})
	}
	return groups
}

// assignSpans is phase two: walk each group and rewrite the span cells.
// Customer and entitlement cells span the whole group from its first row;
// category cells span each contiguous run of equal category values.
func assignSpans(groups []domain.CustomerGroup) {
	for gi := range groups {
		records := groups[gi].SkuRecords
		if len(records) == 0 {
			continue
		}
		setSpan(records, 0, field.HostCustomer, len(records))
		setSpan(records, 0, field.HostEntitlement, len(records))

		runStart := 0
		runCategory := categoryOf(records[0])
		for i := 1; i <= len(records); i++ {
			if i < len(records) && categoryOf(records[i]) == runCategory {
				continue
			}
			setSpan(records, runStart, field.HostCategory, i-runStart)
			if i < len(records) {
				runStart = i
				runCategory = categoryOf(records[i])
			}
		}
	}
}

func categoryOf(rec domain.SkuRecord) string {
	return domain.AsString(rec.FieldsData[field.HostCategory].Value)
}

func setSpan(records []domain.SkuRecord, idx int, name string, span int) {
	fd, ok := records[idx].FieldsData[name]
	if !ok {
		return
	}
	fd.RowSpan = span
	records[idx].FieldsData[name] = fd
}

func buildFieldsData(row domain.QueryRow, hostFields []field.Field) map[string]domain.FieldData {
	data := make(map[string]domain.FieldData, len(hostFields))
	for _, f := range hostFields {
		hidden := f.Hidden || field.IsHiddenHostField(f.Name)

		var value, rendered any
		if cell, ok := row[f.Name]; ok {
			value = cell.Value
			if cell.Rendered != "" {
				rendered = cell.Rendered
			} else {
				rendered = cell.Value
			}
		} else {
			value = f.DefaultValue
			rendered = f.DefaultValue
		}

		span := 1
		verticalAlign := "middle"
		if isSpanField(f.Name) {
			span = 0
			verticalAlign = "top"
		}
		if hidden {
			span = 0
		}

		data[f.Name] = domain.FieldData{
			Name:          f.Name,
			Label:         f.Label,
			Value:         value,
			Rendered:      rendered,
			RowSpan:       span,
			Align:         f.Align,
			VerticalAlign: verticalAlign,
			Hidden:        hidden,
		}
	}
	return data
}

func isSpanField(name string) bool {
	for _, s := range spanFields {
		if s == name {
			return true
		}
	}
	return false
}

func cellValue(row domain.QueryRow, name string) any {
	if cell, ok := row[name]; ok {
		return cell.Value
	}
	return nil
}

// UIDKey derives the dedup key for a SKU about to be appended: the label
// plus a zero-padded count of earlier records with the same label.
func UIDKey(skuName string, existing []domain.SkuRecord) string {
	count := 0
	for _, rec := range existing {
		if rec.SkuName == skuName {
			count++
		}
	}
	return fmt.Sprintf("%s_%02d", skuName, count)
}
