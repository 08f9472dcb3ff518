package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requireBin(t *testing.T, bin string) {
	t.Helper()
	if _, err := exec.LookPath(bin); err != nil {
		t.Skipf("%s not found: %s", bin, err)
	}
}

func TestRun(t *testing.T) {
	requireBin(t, "sh")
	ctx := context.Background()
	r := NewRunner("sh", t.TempDir(), zap.NewNop())

	cases := []struct {
		name      string
		script    string
		opts      RunOptions
		expStdout string
		expValue  any
	}{
		{
			name:      "text output",
			script:    "echo hello",
			expStdout: "hello",
			expValue:  "hello",
		},
		{
			name:      "JSON output is decoded",
			script:    `printf '{"a":[1,2]}'`,
			expStdout: `{"a":[1,2]}`,
			expValue:  map[string]any{"a": []any{1.0, 2.0}},
		},
		{
			name:      "working directory",
			script:    "basename $(pwd)",
			opts:      RunOptions{Dir: "/"},
			expStdout: "/",
			expValue:  "/",
		},
		{
			name:      "environment",
			script:    `echo "$GREETING"`,
			opts:      RunOptions{Env: []string{"GREETING=hi"}},
			expStdout: "hi",
			expValue:  "hi",
		},
		{
			name:      "stdin",
			script:    "cat",
			opts:      RunOptions{Stdin: strings.NewReader("from stdin")},
			expStdout: "from stdin",
			expValue:  "from stdin",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := r.Run(ctx, []string{"-c", c.script}, c.opts)
			require.NoError(t, err)
			assert.Equal(t, c.expStdout, res.Stdout)
			assert.Equal(t, c.expValue, res.Value)
			assert.False(t, res.DryRun)
		})
	}
}

func TestRunPipe(t *testing.T) {
	requireBin(t, "sh")
	piped := &bytes.Buffer{}
	r := NewRunner("sh", "", nil)
	r.Stdout = piped

	res, err := r.Run(context.Background(), []string{"-c", "echo piped"}, RunOptions{Pipe: true})
	require.NoError(t, err)
	assert.Equal(t, "piped", res.Stdout)
	assert.Equal(t, "piped\n", piped.String())
}

func TestRunExitError(t *testing.T) {
	requireBin(t, "sh")
	r := NewRunner("sh", "", nil)
	_, err := r.Run(context.Background(), []string{"-c", "echo oops 1>&2; exit 3"}, RunOptions{})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, "oops\n", exitErr.Stderr)
	assert.Contains(t, err.Error(), "oops")
}

func TestRunMissingBinary(t *testing.T) {
	r := NewRunner("definitely-not-a-real-binary", "", nil)
	_, err := r.Run(context.Background(), nil, RunOptions{})
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestDryRun(t *testing.T) {
	r := NewRunner("git", "", nil)
	res, err := r.Run(context.Background(), []string{"filter-repo", "--path", "a dir/it's", "--force"}, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, `git filter-repo --path 'a dir/it'\''s' --force`, res.CommandLine)
	assert.Equal(t, res.CommandLine, res.Value)
}

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"":            "''",
		"plain":       "plain",
		"a/b.c-d_e=f": "a/b.c-d_e=f",
		"two words":   "'two words'",
		"it's":        `'it'\''s'`,
		"$HOME":       "'$HOME'",
		"line\nbreak": "'line\nbreak'",
	}
	for in, exp := range cases {
		assert.Equal(t, exp, Quote(in), in)
	}
}
