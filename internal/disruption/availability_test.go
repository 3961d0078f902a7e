package disruption

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

func TestBinary(t *testing.T) {
	assert.Equal(t, 1.0, Binary(0))
	assert.Equal(t, 0.0, Binary(0.01))
}

func TestDefaultFlood(t *testing.T) {
	tests := []struct {
		unit     string
		exposure float64
		want     float64
	}{
		{"feet", 0, 1},
		{"ft", 0.5, 1 - 0.5*304.8/300},
		{"Yards", 0.1, 1 - 0.1*914.4/300},
		{"m", 0.15, 0.5},
		{"meters", 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			f, err := DefaultFlood(tt.unit)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, f(tt.exposure), 1e-9)
		})
	}

	_, err := DefaultFlood("inches")
	assert.Error(t, err)
}

func TestManual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "availability.csv")
	require.NoError(t, os.WriteFile(path, []byte("min,max,link_available\n0,1,0.8\n1,100,0\n"), 0o644))

	ranges, err := ReadRanges(path)
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	f := Manual(ranges)
	assert.Equal(t, 0.8, f(0))
	assert.Equal(t, 0.8, f(0.5))
	assert.Equal(t, 0.0, f(1), "maximum is exclusive")
	assert.Equal(t, 1.0, f(100))
	assert.Equal(t, 1.0, f(-1))
}

func TestManual_LaterRangeWins(t *testing.T) {
	f := Manual([]Range{{Min: 0, Max: 10, Value: 0.5}, {Min: 2, Max: 3, Value: 0.1}})
	assert.Equal(t, 0.1, f(2.5))
	assert.Equal(t, 0.5, f(5))
}

func TestReadRanges_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadRanges(filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "link availability file not found")

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("min,max,value\n0,deep,1\n"), 0o644))
	_, err = ReadRanges(bad)
	assert.ErrorContains(t, err, `row 2 column "max"`)

	narrow := filepath.Join(dir, "narrow.csv")
	require.NoError(t, os.WriteFile(narrow, []byte("min,max\n0,1\n"), 0o644))
	_, err = ReadRanges(narrow)
	assert.Error(t, err)
}

func TestBetaCDF(t *testing.T) {
	lower, err := BetaCDF(2, 2, 0, 1, core.BetaLowerCumulative)
	require.NoError(t, err)
	upper, err := BetaCDF(2, 2, 0, 1, core.BetaUpperCumulative)
	require.NoError(t, err)

	assert.Equal(t, 0.0, lower(-0.5))
	assert.Equal(t, 1.0, lower(1.5))
	assert.InDelta(t, 0.5, lower(0.5), 1e-9)
	assert.InDelta(t, 0.15625, lower(0.25), 1e-9)

	assert.Equal(t, 1.0, upper(-0.5))
	assert.Equal(t, 0.0, upper(1.5))
	assert.InDelta(t, 0.84375, upper(0.25), 1e-9)

	shifted, err := BetaCDF(2, 2, 2, 4, "Lower Cumulative")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, shifted(3), 1e-9)
}

func TestBetaCDF_Errors(t *testing.T) {
	_, err := BetaCDF(0, 2, 0, 1, core.BetaLowerCumulative)
	assert.Error(t, err)
	_, err = BetaCDF(2, 2, 1, 1, core.BetaLowerCumulative)
	assert.ErrorContains(t, err, "must be less than")
	_, err = BetaCDF(2, 2, 0, 1, "middle")
	assert.ErrorContains(t, err, "beta_method")
}

func TestNewFunc(t *testing.T) {
	f, err := NewFunc(Settings{Approach: core.AvailabilityBinary})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f(1))

	_, err = NewFunc(Settings{Approach: "Cubic"})
	assert.ErrorContains(t, err, "unknown link availability approach")
}
