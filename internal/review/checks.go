package review

import (
	"context"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool in a working directory and returns
// its output and exit code. A non-nil error means the tool could not be run
// at all; tool failures surface through the exit code.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, code int, err error)

// runTool is the default CommandRunner backed by os/exec.
func runTool(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
		err = nil
	}
	return outBuf.String(), errBuf.String(), code, err
}

// Checker runs the static-analysis tools over changed Python files. Files
// without a .py suffix are ignored by every check.
type Checker struct {
	run CommandRunner
}

// NewChecker builds a checker; a nil runner means real tool execution.
func NewChecker(run CommandRunner) *Checker {
	if run == nil {
		run = runTool
	}
	return &Checker{run: run}
}

func pythonFiles(files []string) []string {
	var py []string
	for _, f := range files {
		if strings.HasSuffix(f, ".py") {
			py = append(py, f)
		}
	}
	return py
}

// Lint runs flake8 on each changed Python file and returns one event per file.
func (c *Checker) Lint(ctx context.Context, dir string, files []string) []Event {
	var events []Event
	for _, f := range pythonFiles(files) {
		out, _, code, err := c.run(ctx, dir, "flake8", f)
		if err != nil {
			events = append(events, warningEvent("Could not run flake8 on "+f+": "+err.Error()))
			continue
		}
		events = append(events, Event{
			Kind:       KindLint,
			File:       f,
			Output:     strings.TrimSpace(out),
			ReturnCode: intPtr(code),
		})
	}
	return events
}

// BugCheck runs pylint with refactor and convention messages disabled,
// leaving errors and warnings.
func (c *Checker) BugCheck(ctx context.Context, dir string, files []string) []Event {
	var events []Event
	for _, f := range pythonFiles(files) {
		out, _, code, err := c.run(ctx, dir, "pylint", "--disable=R,C", f)
		if err != nil {
			events = append(events, warningEvent("Could not run pylint on "+f+": "+err.Error()))
			continue
		}
		events = append(events, Event{
			Kind:       KindBugCheck,
			File:       f,
			Output:     strings.TrimSpace(out),
			ReturnCode: intPtr(code),
		})
	}
	return events
}

// AutoFix rewrites each changed Python file in place with autopep8. A file's
// event reports Fixed=true on success; on failure it carries the tool's
// stderr and exit code instead.
func (c *Checker) AutoFix(ctx context.Context, dir string, files []string) []Event {
	var events []Event
	for _, f := range pythonFiles(files) {
		out, errOut, code, err := c.run(ctx, dir, "autopep8", "--in-place", "--aggressive", "--aggressive", f)
		if err != nil {
			events = append(events, warningEvent("Could not run autopep8 on "+f+": "+err.Error()))
			continue
		}
		if code == 0 {
			events = append(events, Event{
				Kind:   KindAutoFix,
				File:   f,
				Fixed:  boolPtr(true),
				Output: strings.TrimSpace(out),
			})
		} else {
			events = append(events, Event{
				Kind:       KindAutoFix,
				File:       f,
				Fixed:      boolPtr(false),
				Output:     strings.TrimSpace(errOut),
				ReturnCode: intPtr(code),
			})
		}
	}
	return events
}
