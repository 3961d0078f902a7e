// Package assign hands a prepared run folder to the external traffic
// assignment engine.
package assign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/rdrkit/pkg/core"
)

// Kind is the assignment to run in a folder.
type Kind string

// Assignment kinds.
const (
	KindBase    Kind = "base"
	KindDisrupt Kind = "disrupt"
)

// Request describes one assignment.
type Request struct {
	Kind      Kind
	RunFolder string
	Config    string
	Params    core.RunParams
}

// Args encodes the request as command line flags.
func (r Request) Args() []string {
	p := r.Params
	args := []string{
		"--kind", string(r.Kind),
		"--run-folder", r.RunFolder,
	}
	if r.Config != "" {
		args = append(args, "--config", r.Config)
	}
	return append(args,
		"--socio", p.Socio,
		"--projgroup", p.ProjGroup,
		"--resil", p.Resil,
		"--elasticity", strconv.FormatFloat(p.Elasticity, 'f', -1, 64),
		"--hazard", p.Hazard,
		"--recovery", p.Recovery,
		"--run-minieq", strconv.FormatBool(p.RunMiniEq),
		"--matrix-name", p.MatrixName,
	)
}

// Assigner runs traffic assignment for a prepared run folder.
type Assigner interface {
	Assign(ctx context.Context, req Request) error
}

// Func adapts a function to the Assigner interface.
type Func func(ctx context.Context, req Request) error

// Assign calls f.
func (f Func) Assign(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// ExitError reports a non-zero exit of the assignment process.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("assignment process exited with code %d", e.Code)
}

// ExecAssigner runs an external command for every request.
type ExecAssigner struct {
	// Command is the program and its leading arguments.
	Command []string
	// Env is added to the inherited environment.
	Env    map[string]string
	Logger *slog.Logger
}

// NewExecAssigner parses a command line into an ExecAssigner.
func NewExecAssigner(command string, env map[string]string, logger *slog.Logger) (*ExecAssigner, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("assignment command is empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecAssigner{Command: fields, Env: env, Logger: logger}, nil
}

// Assign runs the command in the run folder and waits for it.
func (a *ExecAssigner) Assign(ctx context.Context, req Request) error {
	if len(a.Command) == 0 {
		return errors.New("assignment command is empty")
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	log := logger.With("kind", req.Kind, "folder", req.RunFolder)

	args := append(append([]string{}, a.Command[1:]...), req.Args()...)
	cmd := exec.CommandContext(ctx, a.Command[0], args...)
	cmd.Dir = req.RunFolder
	cmd.Env = append(os.Environ(), a.environ(req)...)
	cmd.WaitDelay = waitDelay

	out := &lineLogger{log: log}
	cmd.Stdout = out
	cmd.Stderr = out

	log.Info("starting assignment", "command", a.Command[0])
	err := cmd.Run()
	out.flush()

	if err == nil {
		log.Debug("assignment finished")
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("assignment cancelled: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Output: out.tail()}
	}
	return fmt.Errorf("failed to start assignment process: %w", err)
}

func (a *ExecAssigner) environ(req Request) []string {
	env := make([]string, 0, len(a.Env)+2)
	keys := make([]string, 0, len(a.Env))
	for k := range a.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+a.Env[k])
	}
	env = append(env, "RDR_RUN_FOLDER="+req.RunFolder, "RDR_RUN_KIND="+string(req.Kind))
	if req.Config != "" {
		env = append(env, "RDR_CONFIG="+req.Config)
	}
	return env
}

// waitDelay bounds how long output from orphaned children is drained after cancellation.
const waitDelay = 2 * time.Second

// maxTailLines is how much process output an ExitError keeps.
const maxTailLines = 20

// lineLogger logs process output line by line and keeps the last lines.
type lineLogger struct {
	mu    sync.Mutex
	log   *slog.Logger
	buf   bytes.Buffer
	lines []string
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(l.buf.Next(i+1)), "\r\n")
		l.emit(line)
	}
	return len(p), nil
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	l.log.Debug(line)
	l.lines = append(l.lines, line)
	if len(l.lines) > maxTailLines {
		l.lines = l.lines[len(l.lines)-maxTailLines:]
	}
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(strings.TrimRight(l.buf.String(), "\r\n"))
		l.buf.Reset()
	}
}

func (l *lineLogger) tail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}
