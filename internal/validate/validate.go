// Package validate checks every input file an RDR scenario needs before the
// engine runs. All checks run; problems are collected into a Report instead
// of stopping at the first one.
package validate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/rdrkit/internal/omx"
	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/internal/workbook"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Category groups findings by the input they concern.
type Category string

// Categories in the order they are checked.
const (
	CategoryModelParameters    Category = "MODEL PARAMETERS"
	CategoryUserInputs         Category = "USER INPUTS"
	CategoryExposure           Category = "EXPOSURE ANALYSIS"
	CategoryNetwork            Category = "NETWORK"
	CategoryDemand             Category = "DEMAND"
	CategoryDatabase           Category = "DATABASE"
	CategoryBaseYear           Category = "BASE YEAR"
	CategoryResilienceProjects Category = "RESILIENCE PROJECTS"
)

// Categories lists every category in check order.
var Categories = []Category{
	CategoryModelParameters, CategoryUserInputs, CategoryExposure, CategoryNetwork,
	CategoryDemand, CategoryDatabase, CategoryBaseYear, CategoryResilienceProjects,
}

// Finding is one validation result.
type Finding struct {
	Category Category      `json:"category"`
	Severity core.Severity `json:"severity"`
	Message  string        `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s", f.Category, f.Severity, f.Message)
}

// Report is the outcome of a validation run.
type Report struct {
	Findings []Finding `json:"findings"`
}

// Errors returns the breaking findings.
func (r *Report) Errors() []Finding {
	return r.filter(core.SeverityError)
}

// Warnings returns findings that do not block a run.
func (r *Report) Warnings() []Finding {
	return r.filter(core.SeverityWarning)
}

// InCategory returns the findings of one category.
func (r *Report) InCategory(c Category) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}

// Err returns an error counting the breaking findings, or nil when there are none.
func (r *Report) Err() error {
	if n := len(r.Errors()); n > 0 {
		return fmt.Errorf("%d breaking errors found", n)
	}
	return nil
}

func (r *Report) filter(s core.Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Validator checks the inputs of one scenario.
type Validator struct {
	cfg       *scenario.Config
	inspector omx.Inspector
	logger    *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithInspector sets the OMX inspector used for demand files.
func WithInspector(i omx.Inspector) Option {
	return func(v *Validator) { v.inspector = i }
}

// WithLogger sets the logger findings are written to.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New creates a Validator for cfg.
func New(cfg *scenario.Config, opts ...Option) *Validator {
	v := &Validator{
		cfg:       cfg,
		inspector: omx.HDF5Inspector{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run performs every check and returns the report.
func (v *Validator) Run(ctx context.Context) *Report {
	r := &run{
		Validator: v,
		ctx:       ctx,
		inputDir:  v.cfg.Common.InputDir,
		report:    &Report{},
		demand:    make(map[string]*demandInfo),
	}
	v.logger.Info("starting input validation", "input_dir", r.inputDir)

	r.checkModelParameters()
	r.checkUserInputs()
	r.checkExposure()
	r.checkNetwork()
	r.checkDemand()
	r.checkDatabase()
	r.checkBaseYear()
	r.checkResilienceProjects()

	if n := len(r.report.Errors()); n > 0 {
		v.logger.Error("input validation failed", "errors", n, "warnings", len(r.report.Warnings()))
	} else {
		v.logger.Info("all input validation checks passed", "warnings", len(r.report.Warnings()))
	}
	return r.report
}

// run holds the state shared between the checks of one validation.
type run struct {
	*Validator
	ctx      context.Context
	inputDir string
	report   *Report

	// Values listed in Model_Parameters.xlsx.
	uncertainty *workbook.Uncertainty
	groups      []workbook.ProjectGroup
	hazards     []workbook.Hazard
	resil       []string

	modelParamsBroken bool
	projectsBroken    bool
	hazardsBroken     bool

	demand map[string]*demandInfo
}

func (r *run) errorf(c Category, format string, args ...any) {
	r.add(Finding{Category: c, Severity: core.SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (r *run) warnf(c Category, format string, args ...any) {
	r.add(Finding{Category: c, Severity: core.SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

func (r *run) add(f Finding) {
	r.report.Findings = append(r.report.Findings, f)
	if f.Severity == core.SeverityError {
		r.logger.Error(f.Message, "category", string(f.Category))
	} else {
		r.logger.Warn(f.Message, "category", string(f.Category))
	}
}
