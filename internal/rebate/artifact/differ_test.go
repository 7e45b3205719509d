package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

func testDiffer() *Differ {
	return NewDiffer(testCodec())
}

func diffGroups() []domain.CustomerGroup {
	return []domain.CustomerGroup{
		{
			Customer: "A",
			SkuRecords: []domain.SkuRecord{
				{
					SkuName: "S1",
					UIDKey:  "S1_00",
					FieldsData: map[string]domain.FieldData{
						field.HostCustomer:      {Name: field.HostCustomer, Label: "Customer", Value: "A"},
						field.HostCategory:      {Name: field.HostCategory, Label: "Category", Value: "DM"},
						field.HostSKU:           {Name: field.HostSKU, Label: field.SKULabel, Value: "S1"},
						field.HostContractGroup: {Name: field.HostContractGroup, Label: "Contract Group", Value: "CG-1"},
					},
				},
			},
		},
	}
}

func savedSnapshot(version int64) domain.ArtifactValues {
	return domain.ArtifactValues{
		"A": {
			Value: domain.CustomerArtifactValues{
				"S1_00": {
					field.RebateType:   field.RebateTypeCashDiscount,
					field.QtyOrAmt:     float64(-1),
					field.SellingPrice: float64(0),
					field.RebateAmt:    float64(0),
				},
			},
			Version: version,
		},
	}
}

func TestDiffEmitsEditedCustomer(t *testing.T) {
	differ := testDiffer()
	edits := domain.ArtifactValues{
		"A": {Value: domain.CustomerArtifactValues{
			"S1_00": {field.QtyOrAmt: float64(150)},
		}},
	}

	requests, err := differ.Diff(field.DefaultCatalog(), edits, savedSnapshot(4), diffGroups(), map[string]any{"Region": "EU"})
	assert.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, "A", requests[0].Key)
	assert.Equal(t, int64(4), requests[0].Version)

	decoded := testCodec().Decode(requests[0].Value)
	record := decoded["S1_00"]
	assert.Equal(t, float64(150), domain.AsFloat(record[field.QtyOrAmt]))
	// Defaults backfilled for untouched savable fields.
	assert.Equal(t, field.RebateTypeCashDiscount, record[field.RebateType])
	// Identity fields re-attached by display label.
	assert.Equal(t, "A", record["Customer"])
	assert.Equal(t, "S1", record[field.SKULabel])
	assert.Equal(t, "CG-1", record["Contract Group"])
}

func TestDiffNoEditsProducesNothing(t *testing.T) {
	requests, err := testDiffer().Diff(field.DefaultCatalog(), nil, savedSnapshot(1), diffGroups(), nil)
	assert.NoError(t, err)
	assert.Empty(t, requests)
}

func TestDiffSuppressesAllDefaultsCustomer(t *testing.T) {
	// The staged edit restores the defaults, so nothing should be written.
	edits := domain.ArtifactValues{
		"A": {Value: domain.CustomerArtifactValues{
			"S1_00": {field.QtyOrAmt: float64(-1)},
		}},
	}

	requests, err := testDiffer().Diff(field.DefaultCatalog(), edits, savedSnapshot(2), diffGroups(), nil)
	assert.NoError(t, err)
	assert.Empty(t, requests)
}

func TestDiffIgnoresUntouchedCustomers(t *testing.T) {
	saved := savedSnapshot(1)
	saved["B"] = domain.ArtifactEntry{
		Value: domain.CustomerArtifactValues{
			"S9_00": {field.QtyOrAmt: float64(42), field.RebateType: field.RebateTypeCashDiscount},
		},
		Version: 7,
	}
	edits := domain.ArtifactValues{
		"A": {Value: domain.CustomerArtifactValues{
			"S1_00": {field.QtyOrAmt: float64(10)},
		}},
	}

	requests, err := testDiffer().Diff(field.DefaultCatalog(), edits, saved, diffGroups(), nil)
	assert.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, "A", requests[0].Key)
}

func TestDiffDropsNonSavableFields(t *testing.T) {
	saved := savedSnapshot(1)
	saved["A"].Value["S1_00"][field.Balance] = float64(700)
	saved["A"].Value["S1_00"][field.BalancePct] = float64(70)
	edits := domain.ArtifactValues{
		"A": {Value: domain.CustomerArtifactValues{
			"S1_00": {field.QtyOrAmt: float64(10)},
		}},
	}

	requests, err := testDiffer().Diff(field.DefaultCatalog(), edits, saved, diffGroups(), nil)
	assert.NoError(t, err)
	assert.Len(t, requests, 1)

	record := testCodec().Decode(requests[0].Value)["S1_00"]
	assert.NotContains(t, record, field.Balance)
	assert.NotContains(t, record, field.BalancePct)
}

func TestDiffSkusOutsideSnapshotAreIgnored(t *testing.T) {
	// Only uids present in the saved snapshot participate in a save.
	edits := domain.ArtifactValues{
		"A": {Value: domain.CustomerArtifactValues{
			"GHOST_00": {field.QtyOrAmt: float64(10)},
		}},
	}

	requests, err := testDiffer().Diff(field.DefaultCatalog(), edits, savedSnapshot(1), diffGroups(), nil)
	assert.NoError(t, err)
	assert.Empty(t, requests)
}
