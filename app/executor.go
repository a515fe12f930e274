package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"lumen/domain/stage"
	"lumen/internal/errors"
)

// Executor runs one stage to completion and returns its captured console output
type Executor interface {
	Execute(ctx context.Context, name stage.StageName) (string, error)
}

// ProcessExecutor runs each stage as a separate process of the given binary
// invoked as `<binary> stage <name>`
type ProcessExecutor struct {
	Binary string
	Dir    string
	Env    []string
}

// NewProcessExecutor re-invokes the running executable
func NewProcessExecutor() (*ProcessExecutor, error) {
	binary, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "failed to locate the running executable")
	}
	return &ProcessExecutor{Binary: binary}, nil
}

// Execute starts the stage process and waits for it. A non-zero exit is an error.
func (e *ProcessExecutor) Execute(ctx context.Context, name stage.StageName) (string, error) {
	cmd := exec.CommandContext(ctx, e.Binary, "stage", string(name))
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(output), fmt.Errorf("stage %s exited with code %d", name, exitErr.ExitCode())
		}
		return string(output), errors.Wrapf(err, "failed to run stage %s", name)
	}
	return string(output), nil
}

// InProcessExecutor calls the registered stage functions directly
type InProcessExecutor struct {
	registry Registry
}

// NewInProcessExecutor creates an executor over the registry
func NewInProcessExecutor(registry Registry) *InProcessExecutor {
	return &InProcessExecutor{registry: registry}
}

// Execute runs the stage with its output captured
func (e *InProcessExecutor) Execute(ctx context.Context, name stage.StageName) (string, error) {
	var buf bytes.Buffer
	err := e.registry.Run(ctx, name, &buf)
	return buf.String(), err
}
