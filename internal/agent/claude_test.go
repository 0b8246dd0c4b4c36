package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	workDir string
	name    string
	args    []string
}

type stubRunner struct {
	calls   []recordedCall
	outputs []string
	errs    []error
}

func (s *stubRunner) Run(ctx context.Context, workDir, name string, args ...string) (string, error) {
	s.calls = append(s.calls, recordedCall{workDir: workDir, name: name, args: args})
	i := len(s.calls) - 1
	var out string
	var err error
	if i < len(s.outputs) {
		out = s.outputs[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

func TestClaudeCreateTask(t *testing.T) {
	c := NewClaude()

	d, err := c.CreateTask(context.Background(), "Fix login", "null deref in session", "high", "development")
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "Fix login", d.Title)
	assert.Equal(t, "development", d.Role)

	_, err = c.CreateTask(context.Background(), "", "", "low", "development")
	assert.Error(t, err)
}

func TestClaudeExecuteChainInvocation(t *testing.T) {
	r := &stubRunner{outputs: []string{`{"is_error":false,"result":"done"}`}}
	c := NewClaude(
		WithRunner(r),
		WithModel("sonnet"),
		WithWorkDir("/wt/task-1"),
		WithBinary("/usr/local/bin/claude"),
	)

	d, _ := c.CreateTask(context.Background(), "Fix login", "", "high", "development")
	results, err := c.ExecuteChain(context.Background(), []TaskDescriptor{d})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	require.Len(t, r.calls, 1)
	call := r.calls[0]
	assert.Equal(t, "/usr/local/bin/claude", call.name)
	assert.Equal(t, "/wt/task-1", call.workDir)
	assert.Contains(t, call.args, "--output-format")
	assert.Contains(t, call.args, "--model")
	assert.Contains(t, call.args[1], "Fix login")
	assert.Contains(t, call.args[1], "development")
}

func TestParseResultSuccessWithFiles(t *testing.T) {
	out := `{"is_error":false,"result":"Updated the handler.\n{\"files_modified\":[\"internal/auth/session.go\",\"internal/auth/session_test.go\"]}"}`

	res := parseResult(out)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"internal/auth/session.go", "internal/auth/session_test.go"}, res.FilesModified)
	assert.Contains(t, res.Output, "Updated the handler")
}

func TestParseResultError(t *testing.T) {
	res := parseResult(`{"is_error":true,"result":"rate limit exceeded"}`)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"rate limit exceeded"}, res.Errors)
}

func TestParseResultNonJSON(t *testing.T) {
	res := parseResult("plain text output")
	assert.True(t, res.Success)
	assert.Equal(t, "plain text output", res.Output)
	assert.Empty(t, res.FilesModified)
}

func TestExecuteChainRunnerFailureIsPerDescriptor(t *testing.T) {
	r := &stubRunner{
		outputs: []string{"", `{"is_error":false,"result":"ok"}`},
		errs:    []error{errors.New("claude: binary not found"), nil},
	}
	c := NewClaude(WithRunner(r))

	ds := []TaskDescriptor{{Title: "a", Role: "development"}, {Title: "b", Role: "research"}}
	results, err := c.ExecuteChain(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Errors[0], "not found")
	assert.True(t, results[1].Success)
}

func TestExecuteChainHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClaude(WithRunner(&stubRunner{}))
	_, err := c.ExecuteChain(ctx, []TaskDescriptor{{Title: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeScripting(t *testing.T) {
	f := NewFake()
	f.Script("broken", Result{Success: false, Errors: []string{"compile error"}})

	d1, err := f.CreateTask(context.Background(), "broken", "", "high", "development")
	require.NoError(t, err)
	d2, err := f.CreateTask(context.Background(), "fine", "", "low", "research")
	require.NoError(t, err)

	results, err := f.ExecuteChain(context.Background(), []TaskDescriptor{d1, d2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)

	assert.Len(t, f.Created(), 2)
	require.Len(t, f.Executed(), 1)
	assert.Equal(t, "broken", f.Executed()[0][0].Title)
}
