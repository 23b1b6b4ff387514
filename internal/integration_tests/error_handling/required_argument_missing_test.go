package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hookgrid/internal/app"
	hclgrid "github.com/vk/hookgrid/internal/hcl"
	"github.com/vk/hookgrid/internal/testutil"
)

// Test for: a node missing a required argument fails at compute time and the
// summary names the argument.
func TestErrorHandling_RequiredArgumentMissing_FailsNode(t *testing.T) {
	// --- Arrange ---
	mod := &mockFlakyModule{}
	grid := `
		node "flaky" "nameless" {
		  arguments {
		    # The required 'name' argument is omitted here.
		  }
		}
	`

	// --- Act ---
	out, err := runGrid(t, app.Config{}, grid, mod)

	// --- Assert ---
	require.Error(t, err)
	assert.Regexp(t, `flaky\.nameless\s+compute`, out)
	assert.Contains(t, out, `missing required argument "name"`)
}

// Test for: a grid with invalid syntax is rejected when the app is built.
func TestErrorHandling_InvalidHCLIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`node "flaky" "broken" {`), 0o600))

	cfg, err := app.NewConfig(app.Config{GridPath: path})
	require.NoError(t, err)

	assert.Panics(t, func() {
		app.NewApp(&testutil.SafeBuffer{}, cfg, hclgrid.NewLoader(), &mockFlakyModule{})
	})
}
