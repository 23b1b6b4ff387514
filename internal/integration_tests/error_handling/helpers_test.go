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
	"github.com/vk/hookgrid/internal/registry"
	"github.com/vk/hookgrid/internal/testutil"
)

type flakyInput struct {
	Name string `arg:"name"`
	Fail bool   `arg:"fail,optional"`
}

// mockFlakyModule registers a "flaky" runner that fails on demand.
type mockFlakyModule struct {
	mu  sync.Mutex
	ran map[string]bool
}

func (m *mockFlakyModule) Register(r *registry.Registry) {
	r.RegisterRunner("flaky", &registry.RegisteredRunner{
		NewInput: func() any { return new(flakyInput) },
		Fn: func(_ context.Context, in *flakyInput) (map[string]any, error) {
			m.mu.Lock()
			if m.ran == nil {
				m.ran = make(map[string]bool)
			}
			m.ran[in.Name] = true
			m.mu.Unlock()
			if in.Fail {
				return nil, errors.New(in.Name + " broke")
			}
			return map[string]any{"name": in.Name}, nil
		},
	})
}

func (m *mockFlakyModule) Ran(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ran[name]
}

func runGrid(t *testing.T, cfg app.Config, grid string, mod *mockFlakyModule) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(grid), 0o600))
	cfg.GridPath = path

	c, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	a := app.NewApp(out, c, hclgrid.NewLoader(), mod)
	err = a.Run(context.Background())
	return out.String(), err
}
