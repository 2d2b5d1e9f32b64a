package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{true, 1, true},
		{"5", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%v", tt.in)
	}
}

func TestSliceAnyToInt64(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, SliceAnyToInt64([]any{1, 2.0, int64(3), "x"}))
	assert.Nil(t, SliceAnyToInt64("1,2"))
	assert.Nil(t, SliceAnyToInt64(nil))
}

func TestConfigGet(t *testing.T) {
	cfg := map[string]any{"seed": false, "key": "bl", "n": 5, "f": 7.0}

	assert.False(t, ConfigGet(cfg, "seed", true))
	assert.True(t, ConfigGet(cfg, "missing", true))
	assert.Equal(t, "bl", ConfigGet(cfg, "key", ""))
	assert.Equal(t, "", ConfigGet(cfg, "n", ""))
	assert.True(t, ConfigGet[bool](nil, "seed", true))

	assert.Equal(t, int64(5), ConfigGetInt64(cfg, "n", 0))
	assert.Equal(t, int64(7), ConfigGetInt64(cfg, "f", 0))
	assert.Equal(t, int64(9), ConfigGetInt64(cfg, "key", 9))
}
