// Package field describes the columns of the rebate planning table: the
// host-supplied query fields and the user-editable planning fields.
package field

// Kind tags the input widget and value type of an editable field.
type Kind string

const (
	KindSelect Kind = "select"
	KindNumber Kind = "number"
	KindText   Kind = "text"
)

// Option is a selectable value for a KindSelect field.
type Option struct {
	Label string `json:"label" mapstructure:"label"`
	Value string `json:"value" mapstructure:"value"`
}

// Field is a single table column. Host fields carry only Name/Label/Align
// and an optional Hidden flag; editable fields additionally declare a kind,
// a default value and whether the value is persisted.
type Field struct {
	Name         string   `json:"name" mapstructure:"name"`
	Label        string   `json:"label" mapstructure:"label"`
	Kind         Kind     `json:"kind,omitempty" mapstructure:"kind"`
	DefaultValue any      `json:"default_value,omitempty" mapstructure:"defaultValue"`
	Options      []Option `json:"options,omitempty" mapstructure:"options"`
	Align        string   `json:"align,omitempty" mapstructure:"align"`
	Savable      bool     `json:"savable,omitempty" mapstructure:"savable"`
	Hidden       bool     `json:"hidden,omitempty" mapstructure:"hidden"`
}

// Host query field names, as emitted by the upstream consolidation view.
const (
	HostContractGroup    = "rebate_plan.contract_group"
	HostCustomer         = "rebate_plan.rebate_to_customer"
	HostCategory         = "rebate_plan.rebate_to_category"
	HostSKU              = "rebate_plan.rebate_to_sku"
	HostEntitlement      = "rebate_plan.weighted_outstanding_rebate"
	HostRecommendedAmt   = "rebate_plan.recommended_rebate_amt"
	HostCdPercentTotal   = "rebate_plan.cd_percent_total"
	HostOutstandingAll   = "rebate_plan.sum_outstanding_rebate"
	HostOutstandingSplit = "rebate_plan.sum_outstanding_rebate_dm_non"
)

// SKULabel is the display label of HostSKU. Persisted records embed it and
// the codec recomputes dedup keys from it.
const SKULabel = "Rebate to SKU"

// Editable field names. These double as the keys of persisted artifact
// values, so changing them invalidates previously saved plans.
const (
	RebateType   = "FG/CD"
	QtyOrAmt     = "FG: Rebate Qty (box) CD: Rebate Amt"
	SellingPrice = "FG: Selling Price (box)"
	RebateAmt    = "Rebate Amt"
	Balance      = "Balance"
	BalancePct   = "Balance %"
)

// Rebate type select values.
const (
	RebateTypeFreeGoods    = "Free Goods (FG)"
	RebateTypeCashDiscount = "Cash Discount (CD)"
)

// CategoryDM is the category value that routes a SKU into the DM bucket.
const CategoryDM = "DM"
