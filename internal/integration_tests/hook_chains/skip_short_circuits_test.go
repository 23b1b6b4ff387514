package integration_tests

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hookgrid/internal/app"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/testutil"
)

// Test for: a pre-hook Skip replaces the computation and its result flows to
// dependents as if the node had computed it.
func TestHookChains_SkipShortCircuits(t *testing.T) {
	// --- Arrange ---
	mod := &mockEchoModule{}
	a, out := newApp(t, app.Config{}, `
		node "echo" "source" {
		  arguments { value = "computed" }
		}
		node "echo" "sink" {
		  arguments { value = upper(node.echo.source.output.value) }
		}
	`, mod)

	rec := testutil.NewRecorder()
	a.Executor().AddPreExecutionHook(rec.Pre("stub", func(id string) hooks.Decision {
		if id == "echo.source" {
			return hooks.Skip(node.Succeeded(map[string]any{"value": "stubbed"}))
		}
		return hooks.Proceed()
	}))
	a.Executor().AddPostExecutionHook(rec.Post("observe", nil))

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"STUBBED"}, mod.Computed()); diff != "" {
		t.Errorf("computed values mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"stub", "observe"}, rec.EventsFor("echo.source"), "post-hooks still see skipped nodes")
	assert.Regexp(t, `echo\.source\s+ok`, out.String())
}

// Test for: a pre-hook Fail settles the node without computing it or running
// the remaining hooks.
func TestHookChains_FailStopsChain(t *testing.T) {
	// --- Arrange ---
	mod := &mockEchoModule{}
	a, out := newApp(t, app.Config{}, `
		node "echo" "guarded" {
		  arguments { value = "x" }
		}
	`, mod)

	rec := testutil.NewRecorder()
	a.Executor().AddPreExecutionHook(rec.Pre("deny", func(string) hooks.Decision { return hooks.Fail("denied") }))
	a.Executor().AddPreExecutionHook(rec.Pre("never", nil))
	a.Executor().AddPostExecutionHook(rec.Post("observe", nil))

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.Empty(t, mod.Computed())
	assert.Equal(t, []string{"deny"}, rec.EventsFor("echo.guarded"), "later pre-hooks and post-hooks are not invoked")
	assert.Regexp(t, `echo\.guarded\s+pre_hook`, out.String())
}
