package scenario

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Problem is one issue found in a scenario configuration.
type Problem struct {
	Section  string        `json:"section"`
	Key      string        `json:"key,omitempty"`
	Severity core.Severity `json:"severity"`
	Message  string        `json:"message"`
}

func (p Problem) String() string {
	if p.Key == "" {
		return fmt.Sprintf("[%s] %s", p.Section, p.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", p.Section, p.Key, p.Message)
}

// Problems collects every issue found while loading a configuration.
// It implements error so callers can return the errors directly.
type Problems []Problem

func (ps Problems) Error() string {
	errs := ps.Errors()
	if len(errs) == 0 {
		return "no configuration errors"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d configuration error(s)", len(errs))
	for _, p := range errs {
		b.WriteString("\n  ")
		b.WriteString(p.String())
	}
	return b.String()
}

// Errors returns the problems with error severity.
func (ps Problems) Errors() Problems {
	return ps.filter(core.SeverityError)
}

// Warnings returns the problems with warning severity.
func (ps Problems) Warnings() Problems {
	return ps.filter(core.SeverityWarning)
}

// HasErrors reports whether any problem is breaking.
func (ps Problems) HasErrors() bool {
	for _, p := range ps {
		if p.Severity == core.SeverityError {
			return true
		}
	}
	return false
}

// Err returns the breaking problems as an error, or nil if there are none.
func (ps Problems) Err() error {
	if !ps.HasErrors() {
		return nil
	}
	return ps.Errors()
}

func (ps Problems) filter(sev core.Severity) Problems {
	var out Problems
	for _, p := range ps {
		if p.Severity == sev {
			out = append(out, p)
		}
	}
	return out
}

func (ps *Problems) errorf(section, key, format string, args ...any) {
	*ps = append(*ps, Problem{Section: section, Key: key, Severity: core.SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (ps *Problems) warnf(section, key, format string, args ...any) {
	*ps = append(*ps, Problem{Section: section, Key: key, Severity: core.SeverityWarning, Message: fmt.Sprintf(format, args...)})
}
