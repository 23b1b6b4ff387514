package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hookgrid/internal/executor"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/observe"
)

func counted(calls *atomic.Int32, out node.Output) node.Computation {
	return node.ComputeFunc(func(context.Context, node.Inputs) (node.Output, error) {
		calls.Add(1)
		return out, nil
	})
}

func TestKey(t *testing.T) {
	a, err := Key("llm.summary", "", node.Inputs{
		"x": node.Succeeded(map[string]any{"b": 2, "a": 1}),
		"y": node.Succeeded("text"),
	})
	require.NoError(t, err)
	b, err := Key("llm.summary", "", node.Inputs{
		"y": node.Succeeded("text"),
		"x": node.Succeeded(map[string]any{"a": 1, "b": 2}),
	})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^llm\.summary:[0-9a-f]{64}$`, a)

	c, err := Key("llm.summary", "", node.Inputs{"x": node.Succeeded("other")})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := Key("llm.other", "", node.Inputs{
		"x": node.Succeeded(map[string]any{"a": 1, "b": 2}),
		"y": node.Succeeded("text"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, a, d, "node ID is part of the key")

	e, err := Key("llm.summary", "v2", node.Inputs{
		"x": node.Succeeded(map[string]any{"a": 1, "b": 2}),
		"y": node.Succeeded("text"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, a, e, "computation fingerprint is part of the key")

	_, err = Key("bad", "", node.Inputs{"x": node.Succeeded(make(chan int))})
	assert.Error(t, err)
}

// versioned is a computation whose fingerprint stands for its arguments.
type versioned struct {
	node.ComputeFunc
	version string
}

func (v versioned) Fingerprint() string { return v.version }

func TestCache_ChangedArgumentsMiss(t *testing.T) {
	store := NewMemoryStore()
	var calls atomic.Int32
	fetch := func(version string) []node.Spec {
		return []node.Spec{{
			ID:   "http_request.fetch",
			Type: "http_request",
			Compute: versioned{
				version: version,
				ComputeFunc: func(context.Context, node.Inputs) (node.Output, error) {
					calls.Add(1)
					return node.Output{Value: "from-" + version}, nil
				},
			},
		}}
	}

	run := func(version string) node.Result {
		c := New(store)
		exec := executor.New(executor.WithSink(observe.Nop{}))
		exec.AddPreExecutionHook(c)
		exec.AddPostExecutionHook(c)
		state, err := exec.Run(context.Background(), fetch(version))
		require.NoError(t, err)
		return state.Results["http_request.fetch"]
	}

	assert.Equal(t, "from-v1", run("v1").Output)
	assert.Equal(t, "from-v2", run("v2").Output)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "from-v1", run("v1").Output)
	assert.Equal(t, int32(2), calls.Load(), "unchanged arguments are still served from the store")
	assert.Equal(t, 2, store.Len())
}

func TestCache_SecondRunIsServedFromStore(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)

	var rootCalls, leafCalls atomic.Int32
	specs := func() []node.Spec {
		return []node.Spec{
			{ID: "root", Compute: counted(&rootCalls, node.Output{Value: "r", TokensUsed: 10})},
			{ID: "leaf", DependsOn: []string{"root"}, Compute: counted(&leafCalls, node.Output{Value: "l", TokensUsed: 5})},
		}
	}

	var postSaw []node.Result
	exec := executor.New(executor.WithSink(observe.Nop{}))
	exec.AddPreExecutionHook(c)
	exec.AddPostExecutionHook(c)
	exec.AddPostExecutionHook(hooks.PostHookFunc(func(_ context.Context, id string, _ *node.Spec, _ node.Inputs, r node.Result) error {
		if id == "leaf" {
			postSaw = append(postSaw, r)
		}
		return nil
	}))

	first, err := exec.Run(context.Background(), specs())
	require.NoError(t, err)
	assert.Equal(t, int64(10), first.Results["root"].TokensUsed)
	assert.Equal(t, 2, store.Len())

	second, err := exec.Run(context.Background(), specs())
	require.NoError(t, err)

	assert.Equal(t, int32(1), rootCalls.Load())
	assert.Equal(t, int32(1), leafCalls.Load())
	assert.Equal(t, "r", second.Results["root"].Output)
	assert.Equal(t, "l", second.Results["leaf"].Output)
	assert.Zero(t, second.Results["root"].TokensUsed)

	require.Len(t, postSaw, 2)
	assert.Equal(t, "l", postSaw[1].Output, "post-hooks observe the cached result")

	assert.Equal(t, Stats{Hits: 2, Misses: 2, Stores: 2}, c.Stats())
}

func TestCache_DoesNotStoreFailures(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	err := c.AfterNode(context.Background(), "a", &node.Spec{ID: "a"}, nil, node.Failed(&node.Failure{Kind: node.FailureCompute, Message: "x"}))
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestCache_WithTypes(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, WithTypes("llm"))

	require.NoError(t, c.AfterNode(context.Background(), "print.a", &node.Spec{ID: "print.a", Type: "print"}, nil, node.Succeeded(1)))
	require.NoError(t, c.AfterNode(context.Background(), "llm.a", &node.Spec{ID: "llm.a", Type: "llm"}, nil, node.Succeeded(2)))
	assert.Equal(t, 1, store.Len())

	d := c.BeforeNode(context.Background(), "llm.a", &node.Spec{ID: "llm.a", Type: "llm"}, nil)
	assert.Equal(t, hooks.ActionSkip, d.Action)
	assert.Equal(t, 2, d.Result.Output)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, errors.New("db down")
}

func (brokenStore) Put(context.Context, string, Entry) error { return errors.New("db down") }

func TestCache_StoreErrors(t *testing.T) {
	c := New(brokenStore{})
	spec := &node.Spec{ID: "a"}

	d := c.BeforeNode(context.Background(), "a", spec, nil)
	assert.Equal(t, hooks.ActionProceed, d.Action, "lookup errors never fail the node")

	err := c.AfterNode(context.Background(), "a", spec, nil, node.Succeeded(1))
	assert.EqualError(t, err, "db down")
	assert.Equal(t, int64(2), c.Stats().Errors)
}
