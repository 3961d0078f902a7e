package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTest(mode OutputMode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode OutputMode
		tty  bool
		want OutputMode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeText, false, ModeText},
		{ModeJSON, true, ModeJSON},
		{ModeYAML, true, ModeYAML},
		{"bogus", true, ModeText},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTest(tt.mode, tt.tty)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestMarkdownOutputHasNoANSI(t *testing.T) {
	r, out, errOut := newTest(ModeMarkdown, false)

	r.Header(1, "Runs")
	r.StatusLine("ok", "base01 done")
	r.StatusLine("failed", "base01_P1 failed")
	r.Error("boom")
	r.Warning("careful")

	assert.False(t, ansi.MatchString(out.String()))
	assert.Contains(t, out.String(), "# Runs")
	assert.Contains(t, out.String(), "- **[OK]** base01 done")
	assert.Contains(t, out.String(), "- **[FAILED]** base01_P1 failed")
	assert.Contains(t, errOut.String(), "Error: boom")
	assert.Contains(t, errOut.String(), "Warning: careful")
}

func TestTable(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)
	r.Table([]string{"Scenario", "Status"}, [][]string{{"base01", "completed"}})

	assert.Contains(t, out.String(), "| Scenario | Status |")
	assert.Contains(t, out.String(), "| base01 | completed |")

	r, out, _ = newTest(ModeText, false)
	r.Table([]string{"Scenario", "Status"}, [][]string{{"base01", "completed"}})
	assert.Contains(t, out.String(), "base01")
	assert.Contains(t, out.String(), "│")
}

func TestStructured(t *testing.T) {
	v := map[string]any{"run_id": "TestRun", "workers": 2}

	r, out, _ := newTest(ModeJSON, false)
	ok, err := r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "TestRun", got["run_id"])

	r, out, _ = newTest(ModeYAML, false)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "run_id: TestRun")

	r, _, _ = newTest(ModeText, true)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Demand", FormatHeader(2, "Demand"))
	assert.Equal(t, "# Demand", FormatHeader(0, "Demand"))
	assert.Equal(t, "- **Workers**: 4", FormatKeyValue("Workers", "4"))
}
