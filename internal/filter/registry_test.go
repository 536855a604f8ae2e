package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func upper() Func {
	return Func{Meta: Metadata{Name: "Upper", Aliases: []string{"up"}}, Fn: func(s string) (string, error) {
		return strings.ToUpper(s), nil
	}}
}

func suffix(tag string) Func {
	return Func{Meta: Metadata{Name: tag}, Fn: func(s string) (string, error) {
		return s + tag, nil
	}}
}

func TestParseChain(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"syntax_highlight, markdown", []string{"syntax_highlight", "markdown"}},
		{"  markdown  ", []string{"markdown"}},
		{"none", nil},
		{"NONE, markdown", []string{"markdown"}},
		{",,", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseChain(tt.in))
		})
	}
}

func TestRegistry_ResolveAliasesAndLists(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("upper", upper()))
	require.NoError(t, r.Register("a", suffix("-a")))

	ids, err := r.Resolve("up, a, None")
	require.NoError(t, err)
	assert.Equal(t, []string{"upper", "a"}, ids)

	ids, err = r.Resolve([]any{"a", "upper"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "upper"}, ids)

	ids, err = r.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegistry_UnknownFilterIsConfigError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("missing")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Contains(t, err.Error(), "missing")

	_, err = r.Apply([]string{"missing"}, "x")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRegistry_ApplyThreadsOutput(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", suffix("-a")))
	require.NoError(t, r.Register("b", suffix("-b")))

	out, err := r.Apply([]string{"a", "b", "a"}, "x")
	require.NoError(t, err)
	assert.Equal(t, "x-a-b-a", out)

	out, err = r.Apply(nil, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestRegistry_AliasCollision(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("upper", upper()))
	err := r.Register("other", Func{Meta: Metadata{Aliases: []string{"up"}}, Fn: nil})
	require.Error(t, err)

	require.NoError(t, r.Register("upper", upper()), "re-registering the same id is allowed")
	assert.Equal(t, []string{"upper"}, r.IDs())
}

type recordingFilter struct {
	Func
	env *Env
}

func (f *recordingFilter) Init(_ context.Context, env *Env) error {
	f.env = env
	return nil
}

func TestRegistry_InitAll(t *testing.T) {
	r := NewRegistry()
	rec := &recordingFilter{Func: suffix("x")}
	require.NoError(t, r.Register("rec", rec))
	require.NoError(t, r.Register("plain", suffix("y")))

	require.NoError(t, r.InitAll(context.Background(), Env{StagingDir: "/tmp/stage"}, nil))
	require.NotNil(t, rec.env)
	assert.Equal(t, "/tmp/stage", rec.env.StagingDir)
}
