package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/rdrkit/internal/cli/output"
	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/internal/validate"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// maxDetails is the number of findings shown per category in text output.
const maxDetails = 10

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Check every input file of a scenario before running the engine",
		Long: `Check the scenario input directory: the Model_Parameters.xlsx and
UserInputs.xlsx workbooks, hazard exposure tables, networks, demand matrices,
the AequilibraE project database, base year results and resilience projects.

Every check runs; findings are grouped by input. Warnings do not fail the
command, errors do. With --watch the checks run again whenever the config
file or an input file changes, until interrupted.`,
		Example: `  rdr validate scenarios/flood.config
  rdr validate scenarios/flood.config -o markdown > validation.md
  rdr validate scenarios/flood.config --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runValidateWatch(cmd, args[0])
			}
			return runValidate(cmd, args[0])
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Validate again whenever inputs change")
	return cmd
}

// ValidateOutput is the structured output of the validate command.
type ValidateOutput struct {
	Config     string          `json:"config" yaml:"config"`
	InputDir   string          `json:"input_dir" yaml:"input_dir"`
	Errors     int             `json:"errors" yaml:"errors"`
	Warnings   int             `json:"warnings" yaml:"warnings"`
	Categories []CategoryCheck `json:"categories" yaml:"categories"`
}

// CategoryCheck is the outcome of one category of checks.
type CategoryCheck struct {
	Name     string   `json:"name" yaml:"name"`
	Status   string   `json:"status" yaml:"status"` // "pass", "warn", "error"
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func runValidate(cmd *cobra.Command, path string) error {
	cc, cleanup, err := NewCommandContext(cmd, path)
	if err != nil {
		return err
	}
	defer cleanup()

	report := validate.New(cc.Scenario, validate.WithLogger(cc.Logger)).Run(cmd.Context())
	out := buildValidateOutput(cc.Scenario.Path, cc.Scenario.Common.InputDir, report)

	if err := renderValidate(cc.Renderer, out); err != nil {
		return err
	}
	if cc.LogFile != "" {
		cc.Logger.Info("validation log written", "file", cc.LogFile)
	}
	return report.Err()
}

func runValidateWatch(cmd *cobra.Command, path string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cc, cleanup, err := NewCommandContext(cmd, path)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cc.Renderer

	check := func() {
		sc, err := scenario.Load(path)
		if err != nil {
			r.Error(err.Error())
			return
		}
		cc.Scenario = sc
		report := validate.New(sc, validate.WithLogger(cc.Logger)).Run(ctx)
		if err := renderValidate(r, buildValidateOutput(sc.Path, sc.Common.InputDir, report)); err != nil {
			r.Error(err.Error())
		}
	}

	check()
	cc.Logger.Info("watching for changes, press Ctrl+C to stop", "input_dir", cc.Scenario.Common.InputDir)
	err = validate.Watch(ctx, cc.Scenario, validate.DefaultDebounce, func(name string) {
		cc.Logger.Info("change detected", "file", filepath.Base(name))
		check()
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func renderValidate(r *output.Renderer, out *ValidateOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON, output.ModeYAML:
		_, err := r.Structured(out)
		return err
	case output.ModeMarkdown:
		renderValidateMarkdown(r, out)
	default:
		renderValidateText(r, out)
	}
	return nil
}

func buildValidateOutput(config, inputDir string, report *validate.Report) *ValidateOutput {
	out := &ValidateOutput{
		Config:     config,
		InputDir:   inputDir,
		Errors:     len(report.Errors()),
		Warnings:   len(report.Warnings()),
		Categories: make([]CategoryCheck, 0, len(validate.Categories)),
	}
	for _, c := range validate.Categories {
		check := CategoryCheck{Name: string(c), Status: "pass"}
		for _, f := range report.InCategory(c) {
			if f.Severity == core.SeverityError {
				check.Errors = append(check.Errors, f.Message)
			} else {
				check.Warnings = append(check.Warnings, f.Message)
			}
		}
		switch {
		case len(check.Errors) > 0:
			check.Status = "error"
		case len(check.Warnings) > 0:
			check.Status = "warn"
		}
		out.Categories = append(out.Categories, check)
	}
	return out
}

func renderValidateText(r *output.Renderer, out *ValidateOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("RDR Input Validation"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println(styles.Muted.Render("   " + out.InputDir))
	r.Println("")

	titleCaser := cases.Title(language.English)
	for _, c := range out.Categories {
		icon := styles.StatusSuccess.String()
		switch c.Status {
		case "warn":
			icon = styles.StatusWarn.String()
		case "error":
			icon = styles.StatusFailed.String()
		}
		line := fmt.Sprintf("%s %s", icon, titleCaser.String(c.Name))
		if n := len(c.Errors); n > 0 {
			line += fmt.Sprintf(" (%d errors)", n)
		}
		r.Println("   " + line)

		details := make([]string, 0, len(c.Errors)+len(c.Warnings))
		for _, e := range c.Errors {
			details = append(details, styles.Error.Render("       - "+e))
		}
		for _, w := range c.Warnings {
			details = append(details, styles.Warning.Render("       - "+w))
		}
		for i, d := range details {
			if i >= maxDetails {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(details)-maxDetails)))
				break
			}
			r.Println(d)
		}
	}
	r.Println("")
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))

	summary := fmt.Sprintf("%d errors, %d warnings", out.Errors, out.Warnings)
	switch {
	case out.Errors > 0:
		r.Printf("   %s\n", styles.Error.Render(summary+": fix the errors before running the engine"))
	case out.Warnings > 0:
		r.Printf("   %s\n", styles.Warning.Render(summary))
	default:
		r.Printf("   %s\n", styles.Success.Render("all input validation checks passed"))
	}
	r.Println("")
}

func renderValidateMarkdown(r *output.Renderer, out *ValidateOutput) {
	r.Println("# RDR Input Validation")
	r.Println("")
	r.Printf("- **Config**: %s\n", out.Config)
	r.Printf("- **Input directory**: %s\n", out.InputDir)
	r.Printf("- **Errors**: %d\n", out.Errors)
	r.Printf("- **Warnings**: %d\n", out.Warnings)
	r.Println("")

	titleCaser := cases.Title(language.English)
	for _, c := range out.Categories {
		r.Printf("## %s (%s)\n", titleCaser.String(c.Name), strings.ToUpper(c.Status))
		r.Println("")
		if len(c.Errors) == 0 && len(c.Warnings) == 0 {
			r.Println("No issues found.")
			r.Println("")
			continue
		}
		for _, e := range c.Errors {
			r.Printf("- **Error**: %s\n", e)
		}
		for _, w := range c.Warnings {
			r.Printf("- Warning: %s\n", w)
		}
		r.Println("")
	}
}
