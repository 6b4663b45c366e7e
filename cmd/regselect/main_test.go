package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePlane は y = 3*x1 + 2*x2 の CSV を書き出す。withTarget が false なら特徴量だけ
func writePlane(t *testing.T, dir, name string, n, offset int, withTarget bool) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x1,x2")
	if withTarget {
		b.WriteString(",y")
	}
	b.WriteString("\n")
	for i := 0; i < n; i++ {
		x1 := float64((i*7+offset)%23) / 2
		x2 := float64((i*5+offset)%17) / 3
		if withTarget {
			fmt.Fprintf(&b, "%g,%g,%g\n", x1, x2, 3*x1+2*x2)
		} else {
			fmt.Fprintf(&b, "%g,%g\n", x1, x2)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainAndPredict(t *testing.T) {
	dir := t.TempDir()
	train := writePlane(t, dir, "train.csv", 80, 0, true)
	test := writePlane(t, dir, "test.csv", 25, 3, true)
	artifact := filepath.Join(dir, "model.gob")

	out, err := run(t, "train",
		"--train", train, "--test", test, "--header",
		"--artifact", artifact, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "best: Linear Regression")
	assert.Contains(t, out, "artifact: "+artifact)
	assert.FileExists(t, artifact)

	input := writePlane(t, dir, "input.csv", 4, 1, false)
	out, err = run(t, "predict", "--model", artifact, "--input", input, "--header", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	// 1行目は x1=0.5, x2=1/3
	got, err := strconv.ParseFloat(lines[0], 64)
	require.NoError(t, err)
	assert.InDelta(t, 3*0.5+2*(1.0/3), got, 1e-6)
}

func TestPredict_WritesFile(t *testing.T) {
	dir := t.TempDir()
	train := writePlane(t, dir, "train.csv", 60, 0, true)
	test := writePlane(t, dir, "test.csv", 20, 2, true)
	artifact := filepath.Join(dir, "model.gob")
	_, err := run(t, "train", "--train", train, "--test", test, "--header", "-o", artifact, "--log-level", "error")
	require.NoError(t, err)

	input := writePlane(t, dir, "input.csv", 3, 0, false)
	output := filepath.Join(dir, "pred.csv")
	_, err = run(t, "predict", "-m", artifact, "--input", input, "--header", "-o", output, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestTrain_Errors(t *testing.T) {
	dir := t.TempDir()
	train := writePlane(t, dir, "train.csv", 10, 0, true)

	_, err := run(t, "train", "--train", train)
	assert.Error(t, err, "--test is required")

	_, err = run(t, "train", "--train", train, "--test", filepath.Join(dir, "missing.csv"), "--header", "--log-level", "error")
	assert.Error(t, err)

	_, err = run(t, "train", "--train", train, "--test", train, "--header", "--cv", "1", "--log-level", "error")
	assert.Error(t, err)
}

func TestPredict_FeatureMismatch(t *testing.T) {
	dir := t.TempDir()
	train := writePlane(t, dir, "train.csv", 60, 0, true)
	test := writePlane(t, dir, "test.csv", 20, 2, true)
	artifact := filepath.Join(dir, "model.gob")
	_, err := run(t, "train", "--train", train, "--test", test, "--header", "-o", artifact, "--log-level", "error")
	require.NoError(t, err)

	// 目的変数の列まで渡すと特徴量の数が合わない
	_, err = run(t, "predict", "-m", artifact, "--input", test, "--header", "--log-level", "error")
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	m, err := parseCSV(strings.NewReader("a,b\n1, 2\n3,4.5\n"), true)
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.5, m.At(1, 1))

	_, err = parseCSV(strings.NewReader("1,x\n"), false)
	assert.Error(t, err)

	_, err = parseCSV(strings.NewReader("a,b\n"), true)
	assert.Error(t, err)
}
