// Package config loads the settings of the rdr command line tool.
//
// These are tool settings (output mode, logging, the assignment engine
// command), not scenario settings: a scenario is always described by its
// own .config file passed as the positional argument.
package config

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool         `koanf:"verbose"`
	OutputFormat string       `koanf:"output"`
	LogLevel     string       `koanf:"log_level"`
	LogFormat    string       `koanf:"log_format"`
	LogFile      bool         `koanf:"log_file"`
	Workers      int          `koanf:"workers"`
	Engine       EngineConfig `koanf:"engine"`

	// ProjectRoot is the directory relative settings resolve against.
	ProjectRoot string `koanf:"-"`
}

// EngineConfig describes the external assignment process.
type EngineConfig struct {
	// Command is split on whitespace; the run request is appended as flags.
	Command string            `koanf:"command"`
	Env     map[string]string `koanf:"env"`
}

// Default configuration values.
const (
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultWorkers   = 1
	DefaultEngine    = "python rdr_AESingleRun.py"
)

// FileNames are the settings files searched for, in order.
var FileNames = []string{"rdr.yaml", "rdr.yml"}
