package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rdrkit/internal/cli/output"
	"github.com/leapstack-labs/rdrkit/internal/scenario"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect scenario configuration files",
	}
	cmd.AddCommand(newConfigCheckCommand(), newConfigShowCommand())
	return cmd
}

func newConfigCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config>",
		Short: "Check a scenario configuration against the schema",
		Long: `Check every key of a scenario .config file: required keys, types,
enumerated options, bounds and cross-field rules. All problems are reported,
not just the first. Unknown keys are warnings.`,
		Example: `  rdr config check scenarios/flood.config
  rdr config check scenarios/flood.config -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(cmd, args[0])
		},
	}
}

// ConfigCheckOutput is the structured output of config check.
type ConfigCheckOutput struct {
	Config   string             `json:"config" yaml:"config"`
	Errors   int                `json:"errors" yaml:"errors"`
	Warnings int                `json:"warnings" yaml:"warnings"`
	Problems []scenario.Problem `json:"problems" yaml:"problems"`
}

func runConfigCheck(cmd *cobra.Command, path string) error {
	cc := NewCommandContextWithoutScenario(cmd)
	r := cc.Renderer

	doc, err := scenario.Read(path)
	if err != nil {
		return err
	}
	out := ConfigCheckOutput{
		Config:   doc.Path,
		Errors:   len(doc.Problems.Errors()),
		Warnings: len(doc.Problems.Warnings()),
		Problems: doc.Problems,
	}
	if out.Problems == nil {
		out.Problems = scenario.Problems{}
	}

	structured, err := r.Structured(out)
	if err != nil {
		return err
	}
	if !structured {
		r.Header(1, "Configuration check: "+doc.Path)
		for _, p := range doc.Problems {
			status := "warn"
			if p.Severity == core.SeverityError {
				status = "failed"
			}
			r.StatusLine(status, p.String())
		}
		if out.Errors == 0 {
			r.Success(fmt.Sprintf("configuration is valid (%d warnings)", out.Warnings))
		}
	}

	if out.Errors > 0 {
		return fmt.Errorf("%d configuration error(s) found in %s", out.Errors, doc.Path)
	}
	return nil
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <config>",
		Short: "Show the resolved scenario configuration",
		Long: `Show every key of a scenario after defaults, the file and RDR_<SECTION>__<KEY>
environment overrides have been applied. Relative paths are shown resolved.`,
		Example: `  rdr config show scenarios/flood.config
  rdr config show scenarios/flood.config -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command, path string) error {
	cc := NewCommandContextWithoutScenario(cmd)
	r := cc.Renderer

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	flat, err := scenario.Flatten(sc)
	if err != nil {
		return err
	}
	keys := scenario.SortedKeys(flat)

	if r.EffectiveMode() == output.ModeJSON || r.EffectiveMode() == output.ModeYAML {
		nested := make(map[string]map[string]any)
		for _, key := range keys {
			section, name, _ := strings.Cut(key, ".")
			if nested[section] == nil {
				nested[section] = make(map[string]any)
			}
			nested[section][name] = flat[key]
		}
		_, err := r.Structured(nested)
		return err
	}

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		section, name, _ := strings.Cut(key, ".")
		rows = append(rows, []string{section, name, fmt.Sprint(flat[key])})
	}
	r.Header(1, sc.Path)
	r.Table([]string{"Section", "Key", "Value"}, rows)
	return nil
}
