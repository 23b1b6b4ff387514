package integration_tests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/hookgrid/internal/app"
	hclgrid "github.com/vk/hookgrid/internal/hcl"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/registry"
	"github.com/vk/hookgrid/internal/testutil"
)

type echoInput struct {
	Value  string `arg:"value,optional"`
	Tokens int64  `arg:"tokens,optional"`
	Fail   bool   `arg:"fail,optional"`
}

// mockEchoModule registers an "echo" runner that returns its value and
// remembers which nodes it actually computed.
type mockEchoModule struct {
	mu       sync.Mutex
	computed []string
}

func (m *mockEchoModule) Register(r *registry.Registry) {
	r.RegisterRunner("echo", &registry.RegisteredRunner{
		NewInput: func() any { return new(echoInput) },
		Fn: func(_ context.Context, in *echoInput) (node.Output, error) {
			m.mu.Lock()
			m.computed = append(m.computed, in.Value)
			m.mu.Unlock()
			if in.Fail {
				return node.Output{}, errors.New("echo failed")
			}
			return node.Output{Value: map[string]any{"value": in.Value}, TokensUsed: in.Tokens}, nil
		},
	})
}

func (m *mockEchoModule) Computed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.computed...)
}

// newApp writes grid to a temp dir and builds an app around it.
func newApp(t *testing.T, cfg app.Config, grid string, mod *mockEchoModule) (*app.App, *testutil.SafeBuffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(grid), 0o600))
	cfg.GridPath = path

	c, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("HOOKGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return app.NewApp(out, c, hclgrid.NewLoader(), mod), out
}
