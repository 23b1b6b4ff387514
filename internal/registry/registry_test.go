package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hookgrid/internal/node"
)

type echoInput struct {
	Text string `arg:"text"`
	Loud bool   `arg:"loud,optional"`
}

func echo(_ context.Context, in *echoInput) (map[string]any, error) {
	if in.Text == "" {
		return nil, errors.New("empty text")
	}
	return map[string]any{"text": in.Text}, nil
}

type echoModule struct{}

func (echoModule) Register(r *Registry) {
	r.RegisterRunner("echo", &RegisteredRunner{
		NewInput: func() any { return new(echoInput) },
		Fn:       echo,
	})
}

func TestRegistry(t *testing.T) {
	r := New()
	r.Load(context.Background(), echoModule{})

	rn, ok := r.Runner("echo")
	require.True(t, ok)
	assert.Equal(t, []string{"echo"}, r.Types())
	require.NoError(t, r.Validate(context.Background()))

	out, err := rn.Call(context.Background(), &echoInput{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "hi"}, out.Value)
	assert.Zero(t, out.TokensUsed)

	_, err = rn.Call(context.Background(), &echoInput{})
	assert.EqualError(t, err, "empty text")

	_, ok = r.Runner("missing")
	assert.False(t, ok)

	assert.Panics(t, func() { echoModule{}.Register(r) })
}

func TestRegisteredRunner_CallOutputs(t *testing.T) {
	type in struct{}

	t.Run("node.Output is passed through", func(t *testing.T) {
		rn := &RegisteredRunner{
			NewInput: func() any { return new(in) },
			Fn: func(context.Context, *in) (node.Output, error) {
				return node.Output{Value: "text", TokensUsed: 12}, nil
			},
		}
		out, err := rn.Call(context.Background(), &in{})
		require.NoError(t, err)
		assert.Equal(t, node.Output{Value: "text", TokensUsed: 12}, out)
	})

	t.Run("nil pointer output is a nil value", func(t *testing.T) {
		rn := &RegisteredRunner{
			NewInput: func() any { return new(in) },
			Fn:       func(context.Context, *in) (*struct{}, error) { return nil, nil },
		}
		out, err := rn.Call(context.Background(), &in{})
		require.NoError(t, err)
		assert.Nil(t, out.Value)
	})
}

func TestRegistry_Validate(t *testing.T) {
	type good struct {
		A string `arg:"a"`
	}
	type dupTags struct {
		A string `arg:"a"`
		B string `arg:"a,optional"`
	}
	type badOption struct {
		A string `arg:"a,required"`
	}

	testCases := []struct {
		name    string
		runner  *RegisteredRunner
		wantErr string
	}{
		{
			name:    "nil constructor",
			runner:  &RegisteredRunner{Fn: func(context.Context, *good) (any, error) { return nil, nil }},
			wantErr: "NewInput is nil",
		},
		{
			name: "input is not a struct pointer",
			runner: &RegisteredRunner{
				NewInput: func() any { return good{} },
				Fn:       func(context.Context, good) (any, error) { return nil, nil },
			},
			wantErr: "pointer to a struct",
		},
		{
			name: "wrong input parameter",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(good) },
				Fn:       func(context.Context, *dupTags) (any, error) { return nil, nil },
			},
			wantErr: "Fn must have signature",
		},
		{
			name: "missing error result",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(good) },
				Fn:       func(context.Context, *good) any { return nil },
			},
			wantErr: "Fn must return (T, error)",
		},
		{
			name: "duplicate argument",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(dupTags) },
				Fn:       func(context.Context, *dupTags) (any, error) { return nil, nil },
			},
			wantErr: "argument 'a' is bound to both A and B",
		},
		{
			name: "unknown tag option",
			runner: &RegisteredRunner{
				NewInput: func() any { return new(badOption) },
				Fn:       func(context.Context, *badOption) (any, error) { return nil, nil },
			},
			wantErr: `unknown tag option "required"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New()
			r.RegisterRunner("broken", tc.runner)
			err := r.Validate(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Contains(t, err.Error(), "node type 'broken'")
		})
	}
}
