// Package supervisor runs the external analyzer process under a hard
// deadline with captured output streams.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Sentinel errors for supervised execution.
var (
	// ErrSpawn indicates the executable is missing or unrunnable.
	ErrSpawn = errors.New("failed to spawn analyzer")
	// ErrTimeout indicates the deadline elapsed and the child was killed.
	ErrTimeout = errors.New("analyzer timed out")
)

// drainGrace bounds how long a killed child's surviving descendants may
// hold the inherited pipes open before they are forced shut.
const drainGrace = 100 * time.Millisecond

// ExitError reports a child that ran and exited non-zero. The message is the
// captured error-stream text.
type ExitError struct {
	Code   int
	Stderr string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("analyzer exited with code %d: %s", e.Code, e.Stderr)
}

// Command describes one deadline-bounded analyzer invocation.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Output holds the fully drained standard streams of a completed child.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Run spawns the command and waits for completion, the deadline, or context
// cancellation, whichever comes first. Streams are drained concurrently with
// the wait so a chatty child can never deadlock on a full pipe. On deadline
// expiry the child is killed and its exit status is never consulted.
func Run(ctx context.Context, command Command) (Output, error) {
	cmd := exec.Command(command.Path, command.Args...)
	cmd.Dir = command.Dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	startErr := cmd.Start()
	if startErr != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrSpawn, startErr)
	}

	var (
		stdoutBuf bytes.Buffer
		stderrBuf bytes.Buffer
		drains    sync.WaitGroup
	)

	drains.Add(2)

	go drain(&drains, &stdoutBuf, stdoutPipe)
	go drain(&drains, &stderrBuf, stderrPipe)

	// Completion channel replaces poll-and-sleep: Wait must run after the
	// drains so it never closes the pipes under an active reader.
	done := make(chan error, 1)

	go func() {
		drains.Wait()
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(command.Timeout)
	defer timer.Stop()

	pipes := []io.Closer{stdoutPipe, stderrPipe}

	select {
	case waitErr := <-done:
		return finish(waitErr, &stdoutBuf, &stderrBuf)
	case <-timer.C:
		kill(cmd, done, pipes)

		return Output{}, fmt.Errorf("%w after %s", ErrTimeout, command.Timeout)
	case <-ctx.Done():
		kill(cmd, done, pipes)

		return Output{}, fmt.Errorf("analyzer canceled: %w", ctx.Err())
	}
}

func drain(drains *sync.WaitGroup, buf *bytes.Buffer, pipe io.Reader) {
	defer drains.Done()

	_, _ = io.Copy(buf, pipe)
}

// kill terminates the child and reaps it without inspecting the status.
// A killed child's descendants can inherit the pipes and keep them open
// past the child's death, so the drain wait is bounded: once the grace
// elapses the read ends are closed, which unblocks the drains and lets
// the reap proceed.
func kill(cmd *exec.Cmd, done <-chan error, pipes []io.Closer) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-done:
		return
	case <-time.After(drainGrace):
	}

	for _, pipe := range pipes {
		_ = pipe.Close()
	}

	<-done
}

func finish(waitErr error, stdoutBuf, stderrBuf *bytes.Buffer) (Output, error) {
	output := Output{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
	}

	if waitErr == nil {
		return output, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return output, &ExitError{
			Code:   exitErr.ExitCode(),
			Stderr: string(output.Stderr),
		}
	}

	return output, fmt.Errorf("wait for analyzer: %w", waitErr)
}
