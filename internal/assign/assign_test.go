package assign

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/internal/testutil"
	"github.com/leapstack-labs/rdrkit/pkg/core"
)

func sampleRequest(folder string) Request {
	return Request{
		Kind:      KindDisrupt,
		RunFolder: folder,
		Params: core.RunParams{
			Socio: "base", ProjGroup: "01", Resil: "P1", Elasticity: -0.5,
			Hazard: "100yr", Recovery: "2", RunMiniEq: true, MatrixName: core.MatrixCar,
		},
	}
}

func TestRequest_Args(t *testing.T) {
	req := sampleRequest("/runs/x")
	req.Config = "/cfg/test.config"
	assert.Equal(t, []string{
		"--kind", "disrupt",
		"--run-folder", "/runs/x",
		"--config", "/cfg/test.config",
		"--socio", "base",
		"--projgroup", "01",
		"--resil", "P1",
		"--elasticity", "-0.5",
		"--hazard", "100yr",
		"--recovery", "2",
		"--run-minieq", "true",
		"--matrix-name", "matrix",
	}, req.Args())
}

func TestNewExecAssigner(t *testing.T) {
	a, err := NewExecAssigner("python -m rdr_engine", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "-m", "rdr_engine"}, a.Command)

	_, err = NewExecAssigner("   ", nil, nil)
	assert.Error(t, err)
}

func shellOnly(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestExecAssigner_Success(t *testing.T) {
	shellOnly(t)
	dir := t.TempDir()

	a := &ExecAssigner{
		Command: []string{"sh", "-c", `echo "$RDR_RUN_KIND $ENGINE_MODE $2 $4" > done.txt`, "engine"},
		Env:     map[string]string{"ENGINE_MODE": "fast"},
		Logger:  testutil.NewTestLogger(t),
	}
	require.NoError(t, a.Assign(context.Background(), sampleRequest(dir)))

	data, err := os.ReadFile(filepath.Join(dir, "done.txt"))
	require.NoError(t, err)
	assert.Equal(t, "disrupt fast disrupt "+dir+"\n", string(data))
}

func TestExecAssigner_ExitCode(t *testing.T) {
	shellOnly(t)

	a := &ExecAssigner{Command: []string{"sh", "-c", "echo first; echo 'no skims' >&2; exit 3"}}
	err := a.Assign(context.Background(), sampleRequest(t.TempDir()))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "assignment process exited with code 3", err.Error())
	assert.Contains(t, exitErr.Output, "no skims")
}

func TestExecAssigner_Cancelled(t *testing.T) {
	shellOnly(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	a := &ExecAssigner{Command: []string{"sh", "-c", "sleep 5"}}
	err := a.Assign(ctx, sampleRequest(t.TempDir()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecAssigner_MissingProgram(t *testing.T) {
	a := &ExecAssigner{Command: []string{"rdr-engine-that-does-not-exist"}}
	err := a.Assign(context.Background(), sampleRequest(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start assignment process")
}

func TestFunc(t *testing.T) {
	var got Request
	var a Assigner = Func(func(_ context.Context, req Request) error {
		got = req
		return nil
	})
	require.NoError(t, a.Assign(context.Background(), sampleRequest("x")))
	assert.Equal(t, "x", got.RunFolder)
}

func TestLineLogger_KeepsTail(t *testing.T) {
	l := &lineLogger{log: testutil.NewTestLogger(t)}
	for i := 0; i < maxTailLines+5; i++ {
		_, _ = l.Write([]byte("line\n"))
	}
	_, _ = l.Write([]byte("partial"))
	l.flush()

	assert.Len(t, l.lines, maxTailLines)
	assert.Equal(t, "partial", l.lines[len(l.lines)-1])
}
