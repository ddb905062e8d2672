package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceCeiling(t *testing.T) {
	tests := []struct {
		name    string
		ceiling PriceCeiling
		valid   bool
		label   string
		cents   int64
	}{
		{"zero value", PriceCeiling{}, false, "unset", 0},
		{"unlimited", UnlimitedCeiling(), true, "unlimited", math.MaxInt64},
		{"free only", FreeOnlyCeiling(), true, "0", 0},
		{"bounded", BoundedCeiling(150), true, "150", 15000},
		{"saturates", BoundedCeiling(math.MaxInt64 / 10), true, "922337203685477580", math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, tt.ceiling.Valid())
			require.Equal(t, tt.label, tt.ceiling.Label())
			require.Equal(t, tt.cents, tt.ceiling.MinorUnits())
		})
	}
}
