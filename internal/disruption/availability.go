package disruption

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/leapstack-labs/rdrkit/internal/tabular"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Func converts a recovered exposure value to a link availability in [0, 1].
type Func func(exposure float64) float64

// Binary closes any link with remaining exposure.
func Binary(exposure float64) float64 {
	if exposure > 0 {
		return 0
	}
	return 1
}

// unitToMillimeters converts exposure units to millimeters of water.
var unitToMillimeters = map[string]float64{
	"feet": 304.8, "ft": 304.8, "foot": 304.8,
	"yards": 914.4, "yard": 914.4,
	"meters": 1000, "m": 1000,
}

// floodStopDepth is the depth in millimeters at which vehicles can no longer pass.
const floodStopDepth = 300.0

// DefaultFlood returns the linear depth-disruption function: availability
// falls from 1 at no water to 0 at 300 millimeters.
func DefaultFlood(unit string) (Func, error) {
	factor, ok := unitToMillimeters[strings.ToLower(unit)]
	if !ok {
		return nil, fmt.Errorf("unsupported exposure unit %q", unit)
	}
	return func(exposure float64) float64 {
		return math.Max(1-exposure*factor/floodStopDepth, 0)
	}, nil
}

// Range maps exposures in [Min, Max) to an availability.
type Range struct {
	Min   float64
	Max   float64
	Value float64
}

// ReadRanges reads the user-defined availability table. Columns are taken
// by position: minimum, maximum, availability.
func ReadRanges(path string) ([]Range, error) {
	t, err := tabular.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("link availability file not found: %s", path)
		}
		return nil, err
	}
	if len(t.Header) < 3 {
		return nil, fmt.Errorf("%s needs minimum, maximum and availability columns", path)
	}

	ranges := make([]Range, 0, t.Len())
	for i, row := range t.Rows {
		var r Range
		for j, dst := range []*float64{&r.Min, &r.Max, &r.Value} {
			v, err := parseFloat(row[j])
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %q: %w", path, i+2, t.Header[j], err)
			}
			*dst = v
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// Manual looks exposures up in ranges. Later ranges win when ranges
// overlap; exposures outside every range stay fully available.
func Manual(ranges []Range) Func {
	return func(exposure float64) float64 {
		v := 1.0
		for _, r := range ranges {
			if exposure >= r.Min && exposure < r.Max {
				v = r.Value
			}
		}
		return v
	}
}

// BetaCDF maps exposure through the cumulative beta distribution spread over
// [lower, upper]. The lower cumulative method gives the CDF itself, the upper
// cumulative method its complement.
func BetaCDF(alpha, beta, lower, upper float64, method core.BetaMethod) (Func, error) {
	if alpha <= 0 || beta <= 0 {
		return nil, fmt.Errorf("beta distribution shape parameters must be positive, got alpha=%g beta=%g", alpha, beta)
	}
	if lower >= upper {
		return nil, fmt.Errorf("lower_bound (%g) must be less than upper_bound (%g)", lower, upper)
	}
	dist := distuv.Beta{Alpha: alpha, Beta: beta}
	cdf := func(x float64) float64 {
		switch {
		case x < lower:
			return 0
		case x > upper:
			return 1
		}
		return dist.CDF((x - lower) / (upper - lower))
	}

	switch core.BetaMethod(strings.ToLower(string(method))) {
	case core.BetaLowerCumulative:
		return cdf, nil
	case core.BetaUpperCumulative:
		return func(x float64) float64 { return 1 - cdf(x) }, nil
	}
	return nil, fmt.Errorf("beta_method must be %q or %q, got %q", core.BetaLowerCumulative, core.BetaUpperCumulative, method)
}

// NewFunc builds the availability function selected by the settings.
func NewFunc(s Settings) (Func, error) {
	switch s.Approach {
	case core.AvailabilityBinary:
		return Binary, nil
	case core.AvailabilityDefaultFlood:
		return DefaultFlood(s.ExposureUnit)
	case core.AvailabilityManual:
		ranges, err := ReadRanges(s.ManualCSV)
		if err != nil {
			return nil, err
		}
		return Manual(ranges), nil
	case core.AvailabilityBeta:
		return BetaCDF(s.Alpha, s.Beta, s.LowerBound, s.UpperBound, s.BetaMethod)
	}
	return nil, fmt.Errorf("unknown link availability approach %q", s.Approach)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
