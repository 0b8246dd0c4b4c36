package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// CommandRunner executes the agent CLI. The interface exists so the adapter
// can be tested without a claude binary on PATH.
type CommandRunner interface {
	Run(ctx context.Context, workDir, name string, args ...string) (stdout string, err error)
}

// ExecRunner is the default CommandRunner using exec.CommandContext.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, workDir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return strings.TrimSpace(stdout.String()), fmt.Errorf("%s: %s", name, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Claude runs tasks through the claude CLI in headless mode. Each descriptor
// becomes one `claude -p` invocation with JSON output.
type Claude struct {
	binary  string
	model   string
	workDir string
	runner  CommandRunner
	newID   func() string
}

// ClaudeOption configures the adapter.
type ClaudeOption func(*Claude)

// WithBinary sets the path to the claude binary.
func WithBinary(path string) ClaudeOption {
	return func(c *Claude) { c.binary = path }
}

// WithModel sets the model passed to the CLI.
func WithModel(model string) ClaudeOption {
	return func(c *Claude) { c.model = model }
}

// WithWorkDir sets the directory the CLI runs in, typically the task's
// worktree path.
func WithWorkDir(dir string) ClaudeOption {
	return func(c *Claude) { c.workDir = dir }
}

// WithRunner overrides the command runner.
func WithRunner(r CommandRunner) ClaudeOption {
	return func(c *Claude) { c.runner = r }
}

// NewClaude creates a Claude adapter.
func NewClaude(opts ...ClaudeOption) *Claude {
	c := &Claude{
		binary: "claude",
		runner: ExecRunner{},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateTask builds a descriptor. The descriptor carries everything the
// execution call needs; no backend round trip happens here.
func (c *Claude) CreateTask(ctx context.Context, title, description, priority, role string) (TaskDescriptor, error) {
	if title == "" {
		return TaskDescriptor{}, fmt.Errorf("task title is required")
	}
	return TaskDescriptor{
		ID:          c.newID(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Role:        role,
	}, nil
}

// resultInstructions asks the agent to close with a machine-readable
// summary that parseResult can pick out of the response.
const resultInstructions = `When finished, output a JSON object on the last line: {"files_modified": [paths you changed]}.`

func (c *Claude) prompt(d TaskDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are acting as a %s agent.\n\n", d.Role)
	fmt.Fprintf(&b, "Task: %s\n", d.Title)
	if d.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", d.Description)
	}
	fmt.Fprintf(&b, "Priority: %s\n\n", d.Priority)
	b.WriteString(resultInstructions)
	return b.String()
}

// ExecuteChain runs the descriptors sequentially. A failed invocation
// produces a failed Result; only a context error aborts the chain.
func (c *Claude) ExecuteChain(ctx context.Context, descriptors []TaskDescriptor) ([]Result, error) {
	results := make([]Result, 0, len(descriptors))
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		args := []string{"-p", c.prompt(d), "--output-format", "json"}
		if c.model != "" {
			args = append(args, "--model", c.model)
		}

		out, err := c.runner.Run(ctx, c.workDir, c.binary, args...)
		if err != nil {
			results = append(results, Result{
				Success: false,
				Output:  out,
				Errors:  []string{err.Error()},
			})
			continue
		}
		results = append(results, parseResult(out))
	}
	return results, nil
}

// parseResult reads the CLI's JSON envelope: is_error flags failure, result
// holds the agent's text, and the trailing summary object (if the agent
// emitted one) lists modified files. gjson tolerates missing fields.
func parseResult(out string) Result {
	isErr := gjson.Get(out, "is_error").Bool()
	text := gjson.Get(out, "result").String()
	if text == "" {
		text = out
	}

	res := Result{Success: !isErr, Output: text}
	if isErr {
		res.Errors = []string{text}
		return res
	}

	for _, f := range gjson.Get(summaryLine(text), "files_modified").Array() {
		if p := f.String(); p != "" {
			res.FilesModified = append(res.FilesModified, p)
		}
	}
	return res
}

// summaryLine returns the last non-empty line of the agent's response,
// where the summary object is expected.
func summaryLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
