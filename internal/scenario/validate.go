package scenario

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Validate checks every schema key in k and returns all problems found.
// Enum values are rewritten to their canonical spelling and keys holding
// invalid values are removed so that decoding falls back to zero values.
func Validate(k *koanf.Koanf) Problems {
	var ps Problems
	parsed := make(map[string]float64)

	for _, f := range Schema {
		name := f.Name()
		raw := strings.TrimSpace(k.String(name))
		if raw == "" {
			if f.IsRequired(k) {
				ps.errorf(f.Section, f.Key, "is required")
			}
			switch {
			case f.Default != "":
				_ = k.Set(name, f.Default)
			case k.Exists(name):
				k.Delete(name)
			}
			continue
		}

		before := len(ps)
		switch f.Kind {
		case KindInt:
			v, err := strconv.Atoi(raw)
			if err != nil {
				ps.errorf(f.Section, f.Key, "must be an integer, got %q", raw)
				break
			}
			checkBounds(&ps, f, float64(v))
			parsed[name] = float64(v)
		case KindFloat:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				ps.errorf(f.Section, f.Key, "must be a number, got %q", raw)
				break
			}
			checkBounds(&ps, f, v)
			parsed[name] = v
		case KindBool:
			if _, err := parseBool(raw); err != nil {
				ps.errorf(f.Section, f.Key, "%v", err)
			}
		case KindEnum:
			canonical, ok := matchOption(f.Options, raw)
			if !ok {
				ps.errorf(f.Section, f.Key, "must be one of %s, got %q", quoteAll(f.Options), raw)
				break
			}
			if canonical != raw {
				_ = k.Set(name, canonical)
			}
		}
		if len(ps) > before {
			k.Delete(name)
		}
	}

	crossCheck(&ps, k, parsed)
	unknownKeys(&ps, k)
	return ps
}

func checkBounds(ps *Problems, f Field, v float64) {
	if f.Min != nil && f.Min.below(v) {
		ps.errorf(f.Section, f.Key, "must be %s, got %s", f.Min.describe(">"), formatNumber(v))
	}
	if f.Max != nil && f.Max.above(v) {
		ps.errorf(f.Section, f.Key, "must be %s, got %s", f.Max.describe("<"), formatNumber(v))
	}
}

// ordering is a pair of keys where the first must not exceed the second.
// A nil when applies the pair to every configuration.
type ordering struct {
	low, high string
	strict    bool
	when      func(k *koanf.Koanf) bool
}

var orderings = []ordering{
	{low: "common.start_year", high: "common.end_year"},
	{low: "common.base_year", high: "common.future_year"},
	{low: "recovery.min_duration", high: "recovery.max_duration"},
	{
		low: "disruption.lower_bound", high: "disruption.upper_bound", strict: true,
		when: optionIs("disruption.link_availability_approach", string(core.AvailabilityBeta)),
	},
}

func crossCheck(ps *Problems, k *koanf.Koanf, parsed map[string]float64) {
	for _, o := range orderings {
		if o.when != nil && !o.when(k) {
			continue
		}
		lo, okLo := parsed[o.low]
		hi, okHi := parsed[o.high]
		if !okLo || !okHi {
			continue
		}
		section, lowKey, _ := strings.Cut(o.low, ".")
		_, highKey, _ := strings.Cut(o.high, ".")
		switch {
		case o.strict && lo >= hi:
			ps.errorf(section, lowKey, "must be less than %s (%s >= %s)", highKey, formatNumber(lo), formatNumber(hi))
		case !o.strict && lo > hi:
			ps.errorf(section, lowKey, "must not exceed %s (%s > %s)", highKey, formatNumber(lo), formatNumber(hi))
		}
	}
}

func unknownKeys(ps *Problems, k *koanf.Koanf) {
	keys := k.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := Lookup(key); ok {
			continue
		}
		section, name, found := strings.Cut(key, ".")
		if !found {
			section, name = "default", section
		}
		if section == "default" {
			ps.warnf("default", name, "value outside any section is ignored")
			continue
		}
		ps.warnf(section, name, "unknown key is ignored")
	}
}

// matchOption returns the canonical option equal to raw, ignoring case.
func matchOption(options []string, raw string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(o, raw) {
			return o, true
		}
	}
	return "", false
}

// parseBool accepts the boolean spellings of INI files.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1", "t", "y":
		return true, nil
	case "false", "no", "off", "0", "f", "n":
		return false, nil
	}
	return false, fmt.Errorf("must be a boolean (true/false, yes/no, 1/0), got %q", s)
}

func quoteAll(options []string) string {
	q := make([]string, len(options))
	for i, o := range options {
		q[i] = strconv.Quote(o)
	}
	return strings.Join(q, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
