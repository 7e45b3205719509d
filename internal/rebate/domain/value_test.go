package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{float64(1.5), 1.5},
		{int(3), 3},
		{int64(-7), -7},
		{json.Number("2.25"), 2.25},
		{"1,000", 1000},
		{"1,000.50", 1000.5},
		{"42.", 42},
		{"  12  ", 12},
		{"abc", 0},
		{true, 1},
		{false, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AsFloat(tc.in), "in=%v", tc.in)
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(float64(1), int(1)))
	assert.True(t, ValuesEqual("1000", float64(1000)))
	assert.True(t, ValuesEqual("abc", "abc"))
	assert.False(t, ValuesEqual("abc", "abd"))
	assert.False(t, ValuesEqual(float64(1), float64(2)))
	assert.True(t, ValuesEqual(nil, nil))
}

func TestArtifactValuesClone(t *testing.T) {
	original := ArtifactValues{
		"A": {Value: CustomerArtifactValues{"S1_00": {"k": "v"}}, Version: 2},
	}

	clone := original.Clone()
	clone["A"].Value["S1_00"]["k"] = "changed"

	assert.Equal(t, "v", original["A"].Value["S1_00"]["k"])
}
