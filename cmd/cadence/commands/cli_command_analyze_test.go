package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/cadence/cmd/cadence/internal/clierr"
	"github.com/bartekus/cadence/internal/pipeline"
)

// execute runs the root command with a private state dir and returns stdout.
func execute(t *testing.T, stateDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CADENCE_PIPELINE_STATE_DIR", stateDir)
	t.Setenv("CADENCE_LOG_LEVEL", "error")

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze_Synthetic(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	stateDir := filepath.Join(dir, "state")

	stdout, err := execute(t, stateDir, "analyze", "--synthetic", "80", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "80 tasks")
	assert.Contains(t, stdout, "DORA metrics")
	assert.Contains(t, stdout, "Deployment frequency")

	for _, name := range []string{"metrics.csv", "bottlenecks.json", "recommendations.json", "dora_metrics.json", "summary.md"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	data, err := os.ReadFile(filepath.Join(outDir, "bottlenecks.json"))
	require.NoError(t, err)
	var b struct {
		Reports []map[string]any `json:"reports"`
		Summary map[string]any   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &b))
	assert.Len(t, b.Reports, 80)
	assert.Contains(t, b.Summary, "by_stage")

	last, err := pipeline.NewStateStore(stateDir).ReadLastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "pass", last.Status)
	assert.Equal(t, 80, last.Tasks)
	assert.Equal(t, outDir, last.OutputDir)

	report, err := execute(t, stateDir, "report")
	require.NoError(t, err)
	assert.Contains(t, report, "Status: pass")
	assert.Contains(t, report, "derive")
	assert.Contains(t, report, "recommend")
}

func TestAnalyze_YAMLFromGeneratedFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tasks.csv")
	outDir := filepath.Join(dir, "out")

	stdout, err := execute(t, filepath.Join(dir, "state"), "generate", "--count", "30", "--seed", "7", "--out", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote 30 tasks")

	_, err = execute(t, filepath.Join(dir, "state"), "analyze", "--input", input, "--out", outDir, "--format", "yaml")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "bottlenecks.yaml"))
	assert.FileExists(t, filepath.Join(outDir, "dora_metrics.yaml"))
}

func TestAnalyze_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state")

	_, err := execute(t, state, "analyze")
	assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))

	_, err = execute(t, state, "analyze", "--synthetic", "5", "--format", "xml")
	assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))

	_, err = execute(t, state, "analyze", "--input", filepath.Join(dir, "missing.json"))
	assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))

	_, err = execute(t, state, "analyze", "--bogus")
	assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))

	garbled := filepath.Join(dir, "garbled.json")
	require.NoError(t, os.WriteFile(garbled, []byte("{not json"), 0o600))
	_, err = execute(t, state, "analyze", "--input", garbled)
	assert.Equal(t, clierr.ExitMalformed, clierr.ExitCodeOf(err))

	// Out-of-order timestamps fail metric derivation.
	bad := filepath.Join(dir, "bad.json")
	task := `[{"ticket_id":"T-1","developer":"a","team":"t",
	  "created_at":"2025-07-02T09:00:00Z","in_progress_at":"2025-07-01T10:00:00Z",
	  "first_commit_at":"2025-07-01T12:00:00Z","pr_created_at":"2025-07-01T14:00:00Z",
	  "pr_merged_at":"2025-07-02T14:00:00Z","build_started_at":"2025-07-02T14:10:00Z",
	  "deployed_at":"2025-07-01T08:00:00Z"}]`
	require.NoError(t, os.WriteFile(bad, []byte(task), 0o600))
	_, err = execute(t, state, "analyze", "--input", bad, "--out", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Equal(t, clierr.ExitMalformed, clierr.ExitCodeOf(err))
	assert.True(t, strings.Contains(err.Error(), "T-1"))
}

func TestAnalyze_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "cadence.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("detection:\n  policy: median\n"), 0o600))

	_, err := execute(t, filepath.Join(dir, "state"), "analyze", "--synthetic", "5", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))
}

func TestReport_NoState(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "none"), "report")
	require.NoError(t, err)
	assert.Contains(t, out, "No run state found.")
}

func TestGenerate_UnknownExtension(t *testing.T) {
	_, err := execute(t, t.TempDir(), "generate", "--out", filepath.Join(t.TempDir(), "tasks.txt"))
	assert.Equal(t, clierr.ExitUsage, clierr.ExitCodeOf(err))
}
