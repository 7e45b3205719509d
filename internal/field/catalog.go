package field

import "time"

// Limits are the engine guardrails, overridable from rebateplan.yml.
type Limits struct {
	MaxRatedSKUs      int `mapstructure:"maxRatedSkus"`
	SaveDebounceMs    int `mapstructure:"saveDebounceMs"`
	FetchChunkSize    int `mapstructure:"fetchChunkSize"`
	SavedStateResetMs int `mapstructure:"savedStateResetMs"`
}

// SaveDebounce returns the display-recompute debounce window.
func (l Limits) SaveDebounce() time.Duration {
	return time.Duration(l.SaveDebounceMs) * time.Millisecond
}

// SavedStateReset returns how long the "saved" indicator lingers.
func (l Limits) SavedStateReset() time.Duration {
	return time.Duration(l.SavedStateResetMs) * time.Millisecond
}

// Catalog holds the editable field definitions and the engine limits.
// It is immutable once built; hot reloads swap the whole value.
type Catalog struct {
	Editable []Field
	Limits   Limits
}

// DefaultLimits returns the stock guardrails.
func DefaultLimits() Limits {
	return Limits{
		MaxRatedSKUs:      15,
		SaveDebounceMs:    500,
		FetchChunkSize:    10,
		SavedStateResetMs: 3000,
	}
}

// DefaultCatalog returns the built-in planning columns.
func DefaultCatalog() Catalog {
	return Catalog{
		Editable: []Field{
			{
				Name:         RebateType,
				Label:        "FG/CD",
				Kind:         KindSelect,
				DefaultValue: RebateTypeCashDiscount,
				Align:        "left",
				Options: []Option{
					{Label: RebateTypeFreeGoods, Value: RebateTypeFreeGoods},
					{Label: RebateTypeCashDiscount, Value: RebateTypeCashDiscount},
				},
				Savable: true,
			},
			{
				Name:         QtyOrAmt,
				Label:        "FG: Rebate Qty\n(box)\nCD: Rebate Amt",
				Kind:         KindNumber,
				DefaultValue: float64(-1),
				Align:        "right",
				Savable:      true,
			},
			{
				Name:         SellingPrice,
				Label:        "FG: Selling Price (box)",
				Kind:         KindNumber,
				DefaultValue: float64(0),
				Align:        "right",
				Savable:      true,
			},
			{
				Name:         RebateAmt,
				Label:        "Rebate Amt",
				Kind:         KindText,
				DefaultValue: float64(0),
				Align:        "right",
				Savable:      true,
			},
			{
				Name:         Balance,
				Label:        "Balance",
				Kind:         KindText,
				DefaultValue: float64(0),
				Align:        "right",
			},
			{
				Name:         BalancePct,
				Label:        "Balance %",
				Kind:         KindText,
				DefaultValue: float64(0),
				Align:        "right",
			},
		},
		Limits: DefaultLimits(),
	}
}

// SavableNames lists editable fields that are written to the store,
// in declaration order.
func (c Catalog) SavableNames() []string {
	names := make([]string, 0, len(c.Editable))
	for _, f := range c.Editable {
		if f.Savable {
			names = append(names, f.Name)
		}
	}
	return names
}

// SavableDefaults returns the all-defaults baseline for persisted fields.
func (c Catalog) SavableDefaults() map[string]any {
	defaults := make(map[string]any)
	for _, f := range c.Editable {
		if f.Savable {
			defaults[f.Name] = f.DefaultValue
		}
	}
	return defaults
}

// EditableByName looks up an editable field definition.
func (c Catalog) EditableByName(name string) (Field, bool) {
	for _, f := range c.Editable {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HiddenHostFields lists host fields that feed the engine but never render.
func HiddenHostFields() []string {
	return []string{HostContractGroup, HostOutstandingAll, HostOutstandingSplit}
}

// IdentityHostFields lists the read-only host fields re-attached to every
// persisted record so a saved plan stays legible without the live query.
func IdentityHostFields() []string {
	return []string{
		HostContractGroup,
		HostCustomer,
		HostCategory,
		HostSKU,
		HostCdPercentTotal,
	}
}

// IsHiddenHostField reports whether a host field is engine-only.
func IsHiddenHostField(name string) bool {
	for _, hidden := range HiddenHostFields() {
		if hidden == name {
			return true
		}
	}
	return false
}
