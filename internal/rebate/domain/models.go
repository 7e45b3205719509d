// Package domain contains the data model of the rebate planning engine.
package domain

// CellValue is one raw cell of a host query row. Rendered carries the
// host-formatted text when it differs from the raw value.
type CellValue struct {
	Value    any    `json:"value"`
	Rendered string `json:"rendered,omitempty"`
}

// QueryRow maps dotted host field names to cell values. Read-only.
type QueryRow map[string]CellValue

// FieldData is a display-ready cell: resolved value, rendered text and the
// row-span assigned by grouping.
type FieldData struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	Value         any    `json:"value"`
	Rendered      any    `json:"rendered"`
	RowSpan       int    `json:"row_span"`
	Align         string `json:"align,omitempty"`
	VerticalAlign string `json:"vertical_align,omitempty"`
	Hidden        bool   `json:"hidden,omitempty"`
}

// SkuRecord is one planning row. UIDKey is unique within its customer even
// when the same SKU label repeats.
type SkuRecord struct {
	SkuName    string               `json:"sku_name"`
	UIDKey     string               `json:"uid_key"`
	FieldsData map[string]FieldData `json:"fields_data"`
}

// CustomerGroup is one customer's ordered planning rows. The SKU order is
// fixed at build time; running balances depend on it.
type CustomerGroup struct {
	Customer    string      `json:"customer"`
	Entitlement float64     `json:"entitlement"`
	SkuRecords  []SkuRecord `json:"sku_records"`
}

// CustomerArtifactValues maps uidKey -> editable field name -> value.
type CustomerArtifactValues map[string]map[string]any

// ArtifactEntry is one customer's persisted values plus the store version
// used for optimistic concurrency.
type ArtifactEntry struct {
	Value   CustomerArtifactValues `json:"value"`
	Version int64                  `json:"version"`
}

// ArtifactValues maps customer name to that customer's artifact entry.
type ArtifactValues map[string]ArtifactEntry

// Clone returns a deep copy; engine operations never mutate their inputs.
func (a ArtifactValues) Clone() ArtifactValues {
	if a == nil {
		return nil
	}
	out := make(ArtifactValues, len(a))
	for customer, entry := range a {
		value := make(CustomerArtifactValues, len(entry.Value))
		for uid, fields := range entry.Value {
			copied := make(map[string]any, len(fields))
			for name, v := range fields {
				copied[name] = v
			}
			value[uid] = copied
		}
		out[customer] = ArtifactEntry{Value: value, Version: entry.Version}
	}
	return out
}

// Bucket is one side of a balance check: allotted, consumed, left.
type Bucket struct {
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
}

// CheckBalanceEach is the balance snapshot for one customer, split into the
// DM and non-DM category buckets plus their combination.
type CheckBalanceEach struct {
	Total Bucket `json:"total"`
	DM    Bucket `json:"dm"`
	NonDM Bucket `json:"non_dm"`
}

// AllCustomersKey indexes the grand-total row of CheckBalanceAll.
const AllCustomersKey = "_all"

// CheckBalanceAll maps customer name to balance snapshot; the AllCustomersKey
// entry holds the sum over all customers. Derived state only.
type CheckBalanceAll map[string]CheckBalanceEach

// Clone returns a copy safe to patch incrementally.
func (b CheckBalanceAll) Clone() CheckBalanceAll {
	out := make(CheckBalanceAll, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// UnknownGroupKey buckets rows whose grouping fields are blank. Grouping
// under a sentinel keeps such rows visible instead of silently merging them
// into stringified missing values.
const UnknownGroupKey = "(unknown)"
