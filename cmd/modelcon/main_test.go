package main

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/modelcon/config"
	"github.com/rushteam/modelcon/store"
)

func writeInputs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestRun_FileSink(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir, map[string]string{
		config.UsersIndexFile: "1\tu1\n",
		config.ItemsIndexFile: "10\ti10\ttypeA\t0\t100\n20\ti20\ttypeB\t0\t100\n",
		config.PredictedFile:  "1\t[10:3.0,20:5.0]\n",
	})
	out := filepath.Join(dir, "out.jsonl")
	prom := filepath.Join(dir, "modelcon.prom")

	code := run([]string{
		"--input_dir=" + dir,
		"--app_id=1",
		"--algo_id=2",
		"--eval_id=9",
		"--num_recommendations=1",
		"--sink.type=file",
		"--sink.file.path=" + out,
		"--logging.level=error",
		"--metrics.textfile=" + prom,
	})
	require.Equal(t, 0, code)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	rec, err := store.DecodeRecommendation(sc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, 9, rec.AppID)
	assert.True(t, rec.Training)
	assert.Equal(t, []string{"i20"}, rec.ItemIDs())
	assert.False(t, sc.Scan())

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "modelcon_records_written_total")
}

func TestRun_FatalErrorExitCode(t *testing.T) {
	dir := t.TempDir()
	writeInputs(t, dir, map[string]string{
		config.UsersIndexFile: "1\tu1\n",
		config.ItemsIndexFile: "10\ti10\ttypeA\t0\t100\n",
		config.PredictedFile:  "5\t[10:3.0]\n",
	})
	code := run([]string{"--input_dir=" + dir, "--logging.level=error"})
	assert.Equal(t, 1, code)
}

func TestRun_InvalidConfig(t *testing.T) {
	assert.Equal(t, 2, run([]string{"--workers=0"}))
}
