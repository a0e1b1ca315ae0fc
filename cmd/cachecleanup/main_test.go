package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cache-cleanup/internal/database"
	"cache-cleanup/internal/exitcodes"
)

const cliConfig = `
rootDir: .
jobs:
  bytic:
    delete: [/cache/routes]
    empty: [/cache/db]
beforeTest: bytic
afterTest: bytic, ghost
historyDB: var/history.db
`

func setupProject(t *testing.T, body string) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	for _, f := range []string{"cache/routes", "cache/db/x.tmp", "cache/db/y.tmp"} {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	cfgPath = filepath.Join(root, "cachecleanup.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return root, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunHook(t *testing.T) {
	root, cfgPath := setupProject(t, cliConfig)

	_, err := execute(t, "run", "beforeTest", "--config", cfgPath, "--root", root)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "cache", "routes"))
	assert.NoFileExists(t, filepath.Join(root, "cache", "db", "x.tmp"))
	assert.DirExists(t, filepath.Join(root, "cache", "db"))

	// Idempotent
	_, err = execute(t, "run", "beforeTest", "afterTest", "-c", cfgPath)
	require.NoError(t, err)
}

func TestRunExitCodes(t *testing.T) {
	_, cfgPath := setupProject(t, cliConfig)

	_, err := execute(t, "run", "afterStep", "-c", cfgPath)
	assert.Equal(t, exitcodes.InvalidConfig, exitcodes.For(err))

	_, err = execute(t, "run", "-c", cfgPath)
	assert.Equal(t, exitcodes.InvalidConfig, exitcodes.For(err))

	_, err = execute(t, "run", "beforeTest", "-c", filepath.Join(t.TempDir(), "missing.yml"))
	assert.Equal(t, exitcodes.InvalidConfig, exitcodes.For(err))

	_, err = execute(t, "run", "beforeTest", "-c", cfgPath, "--no-such-flag")
	assert.Equal(t, exitcodes.InvalidConfig, exitcodes.For(err))

	_, unsafe := setupProject(t, "rootDir: .\njobs:\n  bad:\n    delete: [../../etc]\nbeforeTest: bad\n")
	_, err = execute(t, "run", "beforeTest", "-c", unsafe)
	assert.Equal(t, exitcodes.SafetyViolation, exitcodes.For(err))
}

func TestCheck(t *testing.T) {
	root, cfgPath := setupProject(t, cliConfig)

	out, err := execute(t, "check", "-c", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Configuration OK")
	assert.Contains(t, out, "beforeSuite: not bound")
	assert.Contains(t, out, filepath.Join(root, "cache", "routes"))
	assert.Contains(t, out, `job "ghost" is not defined`)

	// check never removes anything
	assert.FileExists(t, filepath.Join(root, "cache", "routes"))
}

func TestHistory(t *testing.T) {
	root, cfgPath := setupProject(t, cliConfig)
	_, err := execute(t, "run", "beforeTest", "-c", cfgPath)
	require.NoError(t, err)

	out, err := execute(t, "history", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "beforeTest")
	assert.Contains(t, out, filepath.Join(root, "cache", "db", "x.tmp"))

	out, err = execute(t, "history", "--db", filepath.Join(root, "var", "history.db"), "--json")
	require.NoError(t, err)
	var records []database.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 3)

	out, err = execute(t, "history", "-c", cfgPath, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Removed:  3")

	out, err = execute(t, "history", "-c", cfgPath, "--errors")
	require.NoError(t, err)
	assert.Contains(t, out, "No records found")

	out, err = execute(t, "history", "-c", cfgPath, "--prune", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 records")
}

func TestHistoryNeedsDatabase(t *testing.T) {
	_, cfgPath := setupProject(t, "rootDir: .\njobs: {}\n")
	_, err := execute(t, "history", "-c", cfgPath)
	assert.Equal(t, exitcodes.InvalidConfig, exitcodes.For(err))
}
