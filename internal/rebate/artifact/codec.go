// Package artifact encodes, decodes and diffs the persisted per-customer
// planning values.
package artifact

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/smallbiznis/rebateplan/internal/field"
	"github.com/smallbiznis/rebateplan/internal/observability/metrics"
	"github.com/smallbiznis/rebateplan/internal/rebate/domain"
)

// envelope is the stored JSON shape. Data carries one object per rated SKU;
// Filters records the filter context the values were saved under.
type envelope struct {
	Data    []map[string]any `json:"data"`
	Filters map[string]any   `json:"filters,omitempty"`
}

// Codec turns a customer's per-SKU value map into a percent-escaped JSON
// string and back.
type Codec struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewCodec(log *zap.Logger, m *metrics.Metrics) *Codec {
	return &Codec{log: log.Named("rebate.codec"), metrics: m}
}

// Encode serializes values in ascending uid order so Decode can rebuild the
// same uids from duplicate SKU labels.
func (c *Codec) Encode(values domain.CustomerArtifactValues, filters map[string]any) (string, error) {
	uids := make([]string, 0, len(values))
	for uid := range values {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	data := make([]map[string]any, 0, len(uids))
	for _, uid := range uids {
		data = append(data, values[uid])
	}

	b, err := json.Marshal(envelope{Data: data, Filters: filters})
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(b)), nil
}

// Decode is tolerant: any malformed payload yields an empty map so a single
// corrupt record never poisons the plan.
func (c *Codec) Decode(raw string) domain.CustomerArtifactValues {
	values := domain.CustomerArtifactValues{}
	if strings.TrimSpace(raw) == "" {
		return values
	}

	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		c.decodeFailed(raw, err)
		return values
	}

	var env envelope
	if err := json.Unmarshal([]byte(unescaped), &env); err != nil {
		c.decodeFailed(raw, err)
		return values
	}

	seen := map[string]int{}
	for _, record := range env.Data {
		if record == nil {
			continue
		}
		label := domain.AsString(record[field.SKULabel])
		uid := fmt.Sprintf("%s_%02d", label, seen[label])
		seen[label]++
		values[uid] = record
	}
	return values
}

func (c *Codec) decodeFailed(raw string, err error) {
	c.log.Warn("failed to decode artifact value", zap.Int("len", len(raw)), zap.Error(err))
	c.metrics.IncDecodeFailure()
}
