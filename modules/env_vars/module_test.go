package env_vars

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunEnvVars(t *testing.T) {
	t.Setenv("HOOKGRID_TEST_SHARED", "from-process")
	t.Setenv("HOOKGRID_TEST_ONLY_PROCESS", "p")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOOKGRID_TEST_SHARED=from-file\nHOOKGRID_TEST_ONLY_FILE=f\n"), 0o600))

	t.Run("process environment wins over files", func(t *testing.T) {
		out, err := OnRunEnvVars(context.Background(), &Input{Files: []string{path}})
		require.NoError(t, err)
		assert.Equal(t, "from-process", out.All["HOOKGRID_TEST_SHARED"])
		assert.Equal(t, "f", out.All["HOOKGRID_TEST_ONLY_FILE"])
		assert.Equal(t, "p", out.All["HOOKGRID_TEST_ONLY_PROCESS"])
	})

	t.Run("prefix filter", func(t *testing.T) {
		out, err := OnRunEnvVars(context.Background(), &Input{Files: []string{path}, Prefix: "HOOKGRID_TEST_ONLY_"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"HOOKGRID_TEST_ONLY_FILE":    "f",
			"HOOKGRID_TEST_ONLY_PROCESS": "p",
		}, out.All)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OnRunEnvVars(context.Background(), &Input{Files: []string{filepath.Join(t.TempDir(), "nope.env")}})
		assert.ErrorContains(t, err, "failed to read env files")
	})
}
