package artifact

import (
	"sort"

	storedomain "github.com/smallbiznis/rebateplan/internal/artifactstore/domain"
	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

// Differ turns staged edits into the minimal batch of store writes.
type Differ struct {
	codec *Codec
}

func NewDiffer(codec *Codec) *Differ {
	return &Differ{codec: codec}
}

// Diff walks the customers touched by edits, merges each staged SKU over the
// saved snapshot, restricts the result to the savable fields and emits one
// write per customer that still differs from the all-defaults baseline.
// Identity fields from the live grouping are re-attached by display label so
// a decoded record is self describing.
func (d *Differ) Diff(
	catalog field.Catalog,
	edits domain.ArtifactValues,
	saved domain.ArtifactValues,
	groups []domain.CustomerGroup,
	filters map[string]any,
) ([]storedomain.WriteRequest, error) {
	if len(edits) == 0 {
		return nil, nil
	}

	savable := catalog.SavableNames()
	defaults := catalog.SavableDefaults()

	customers := make([]string, 0, len(edits))
	for customer := range edits {
		customers = append(customers, customer)
	}
	sort.Strings(customers)

	requests := make([]storedomain.WriteRequest, 0, len(customers))
	for _, customer := range customers {
		savedEntry := saved[customer]
		group := findGroup(groups, customer)

		toSave := domain.CustomerArtifactValues{}
		for _, uid := range sortedUIDs(savedEntry.Value) {
			record := d.savableRecord(savedEntry.Value[uid], edits[customer].Value[uid], savable, defaults)
			if record == nil {
				continue
			}
			attachIdentity(record, group, uid)
			toSave[uid] = record
		}
		if len(toSave) == 0 {
			continue
		}

		value, err := d.codec.Encode(toSave, filters)
		if err != nil {
			return nil, err
		}
		requests = append(requests, storedomain.WriteRequest{
			Key:     customer,
			Value:   value,
			Version: savedEntry.Version,
		})
	}
	return requests, nil
}

// savableRecord merges the staged values over the saved ones, keeps only the
// savable fields and backfills defaults. Returns nil when the record carries
// nothing beyond the defaults.
func (d *Differ) savableRecord(savedValues, editValues map[string]any, savable []string, defaults map[string]any) map[string]any {
	record := map[string]any{}
	for _, name := range savable {
		if v, ok := editValues[name]; ok {
			record[name] = v
			continue
		}
		if v, ok := savedValues[name]; ok {
			record[name] = v
		}
	}
	if len(record) == 0 {
		return nil
	}

	allDefault := true
	for _, name := range savable {
		v, ok := record[name]
		if !ok {
			record[name] = defaults[name]
			v = defaults[name]
		}
		if !domain.ValuesEqual(v, defaults[name]) {
			allDefault = false
		}
	}
	if allDefault {
		return nil
	}
	return record
}

func attachIdentity(record map[string]any, group *domain.CustomerGroup, uid string) {
	if group == nil {
		return
	}
	for i := range group.SkuRecords {
		sku := &group.SkuRecords[i]
		if sku.UIDKey != uid {
			continue
		}
		for _, name := range field.IdentityHostFields() {
			fd, ok := sku.FieldsData[name]
			if !ok {
				continue
			}
			label := fd.Label
			if label == "" {
				label = fd.Name
			}
			record[label] = fd.Value
		}
		return
	}
}

func findGroup(groups []domain.CustomerGroup, customer string) *domain.CustomerGroup {
	for i := range groups {
		if groups[i].Customer == customer {
			return &groups[i]
		}
	}
	return nil
}

func sortedUIDs(values domain.CustomerArtifactValues) []string {
	uids := make([]string, 0, len(values))
	for uid := range values {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}
