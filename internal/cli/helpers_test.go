package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rshade/sqlbatch/internal/cli"
	"github.com/rshade/sqlbatch/internal/config"
)

const cityDump = `-- cities
INSERT INTO "city" VALUES
(1,'A'),
(2,'B'),
(3,'C')
);

SELECT 1;`

// setupCLITest isolates a test from the user's config, environment and
// working directory, and resets global state afterwards. It returns the
// temporary working directory.
func setupCLITest(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvLogFormat, "")
	t.Setenv(config.EnvLogFile, "")
	t.Setenv(config.EnvBatchSize, "")
	t.Setenv(config.EnvDatabaseURL, "")

	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(config.ResetGlobalConfigForTest)
	return dir
}

// executeCmd runs the root command with args and returns stdout and stderr.
func executeCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
