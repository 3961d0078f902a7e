package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rdrkit/internal/cli/config"
	"github.com/leapstack-labs/rdrkit/internal/cli/output"
	"github.com/leapstack-labs/rdrkit/internal/logging"
	"github.com/leapstack-labs/rdrkit/internal/scenario"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Scenario *scenario.Config

	// LogFile is the log file of this command, empty when file logging is off.
	LogFile string
}

// NewCommandContext loads the scenario configuration at path and opens the
// command's log file under the scenario output directory.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, path string) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutScenario(cmd)

	sc, err := scenario.Load(path)
	if err != nil {
		return nil, nil, err
	}
	cc.Scenario = sc

	cleanup := func() {}
	if cc.Cfg.LogFile {
		level, _ := logging.ParseLevel(cc.Cfg.LogLevel)
		if cc.Cfg.Verbose {
			level = slog.LevelDebug
		}
		l, err := logging.New(cmd.ErrOrStderr(), logging.Options{
			Level:  level,
			Format: cc.Cfg.LogFormat,
			LogDir: sc.LogDir(),
			Name:   cmd.Name(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cc.Logger = l.Logger
		cc.LogFile = l.File
		cleanup = func() { _ = l.Close() }
	}

	cc.Logger.Log(cmd.Context(), logging.LevelConfig, "scenario loaded",
		"config", sc.Path, "input_dir", sc.Common.InputDir, "output_dir", sc.Common.OutputDir, "run_id", sc.Common.RunID)
	return cc, cleanup, nil
}

// NewCommandContextWithoutScenario creates a CommandContext without loading a scenario.
func NewCommandContextWithoutScenario(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or defaults when the root
// command did not load one (commands run on their own in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
		LogFormat:    config.DefaultLogFormat,
		Workers:      config.DefaultWorkers,
		Engine:       config.EngineConfig{Command: config.DefaultEngine},
	}
}
