package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/hgboost/gbdt"
)

func writeStepData(t *testing.T, dir string) string {
	t.Helper()
	return writeStepFile(t, dir, "train.svm", false)
}

// writeStepFile writes the 100-row step problem; inverted flips every label.
func writeStepFile(t *testing.T, dir, name string, inverted bool) string {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		label := 0
		if (i >= 50) != inverted {
			label = 1
		}
		fmt.Fprintf(&sb, "%d 0:%g 1:%d\n", label, float64(i)/100, i%7)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func trainModel(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	data := writeStepData(t, dir)
	model := filepath.Join(dir, "model.json")
	args := append([]string{"train",
		"--data", data,
		"--eval", "valid=" + data,
		"--model", model,
		"--log-level", "error",
		"--set", "objective=binary:logistic",
		"--set", "num_boost_round=5",
		"--set", "max_depth=2",
	}, extra...)
	stdout, stderr, code := runCmd(t, args...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "trained 5 rounds")
	return model
}

func TestTrainPredict(t *testing.T) {
	dir := t.TempDir()
	curve := filepath.Join(dir, "curve.png")
	model := trainModel(t, dir, "--curve", curve)

	e, err := gbdt.LoadModel(model)
	require.NoError(t, err)
	assert.Equal(t, gbdt.ObjectiveLogistic, e.Objective)
	assert.Len(t, e.Trees, 5)
	_, err = os.Stat(curve)
	assert.NoError(t, err)

	stdout, stderr, code := runCmd(t, "predict", "--model", model, "--data", filepath.Join(dir, "train.svm"), "--log-level", "error")
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 100)
	assert.NotContains(t, lines[0], "\t")

	stdout, _, code = runCmd(t, "predict", "--model", model, "--data", filepath.Join(dir, "train.svm"), "--leaf", "--log-level", "error")
	require.Equal(t, 0, code)
	assert.Len(t, strings.Split(strings.Split(stdout, "\n")[0], "\t"), 5)

	_, _, code = runCmd(t, "predict", "--model", model, "--data", filepath.Join(dir, "train.svm"), "--leaf", "--raw")
	assert.Equal(t, 1, code)
}

func TestTrainFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	data := writeStepData(t, dir)
	model := filepath.Join(dir, "model.gob")
	config := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("data: %s\nmodel: %s\nparams:\n  objective: binary:logistic\n  num_boost_round: 3\n  eta: 0.5\n", data, model)
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0o644))
	t.Setenv("HGBOOST_LOG_LEVEL", "error")

	stdout, stderr, code := runCmd(t, "train", "--config", config, "--set", "num_boost_round=4")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "trained 4 rounds")

	e, err := gbdt.LoadModel(model)
	require.NoError(t, err)
	assert.Equal(t, 0.5, e.Shrinkage[0])
}

func TestConfigEvalSetsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	data := writeStepData(t, dir)
	inverted := writeStepFile(t, dir, "inverted.svm", true)
	config := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`data: %s
model: %s
log-level: error
eval:
  aaa: %s
  bbb: %s
  ccc: %s
params:
  objective: binary:logistic
  num_boost_round: 10
  max_depth: 2
  early_stopping_rounds: 2
`, data, filepath.Join(dir, "model.json"), inverted, data, data)
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0o644))

	// ccc sorts last and improves every round, so training never stops early.
	for i := 0; i < 10; i++ {
		stdout, stderr, code := runCmd(t, "train", "--config", config)
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stdout, "trained 10 rounds (best iteration 9)", "run %d", i)
	}
}

func TestDumpAndImportance(t *testing.T) {
	dir := t.TempDir()
	model := trainModel(t, dir)

	stdout, _, code := runCmd(t, "dump", "--model", model, "--tree", "1", "--log-level", "error")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "booster[1]:\n0:[f0<="), stdout)

	stdout, _, code = runCmd(t, "dump", "--model", model, "--format", "dot", "--log-level", "error")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "digraph")

	_, _, code = runCmd(t, "dump", "--model", model, "--tree", "99", "--log-level", "error")
	assert.Equal(t, 1, code)

	stdout, _, code = runCmd(t, "importance", "--model", model, "--type", "weight", "--log-level", "error")
	require.Equal(t, 0, code)
	assert.Contains(t, strings.ToUpper(stdout), "FEATURE IMPORTANCE (WEIGHT)")
	assert.Contains(t, stdout, "f0")
}

func TestRunErrors(t *testing.T) {
	_, stderr, code := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: hgboost")

	_, stderr, code = runCmd(t, "fly")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "fly"`)

	_, stderr, code = runCmd(t, "train", "--log-level", "error")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "data")

	_, _, code = runCmd(t, "train", "--log-format", "xml", "--data", "x.svm")
	assert.Equal(t, 1, code)

	_, _, code = runCmd(t, "importance", "--model", filepath.Join(t.TempDir(), "none.json"), "--log-level", "error")
	assert.Equal(t, 1, code)
}
