// Package runner executes a target's build commands to completion and
// spawns its service command as a supervised background process.
package runner

import (
	"context"
	"os"
	"os/exec"

	"github.com/conneroisu/runloop/internal/rlerror"
)

// RunBuild runs each command in sequence via the shell, inheriting
// stdio, stopping at the first failure. Commands are opaque shell
// strings (e.g. "go build ./..." or "npm run build"), not parsed into
// argv, so shell features (pipes, globs, env expansion) work as the
// author of runloop.yml expects.
func RunBuild(ctx context.Context, dir string, commands []string) error {
	for _, command := range commands {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = dir
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			return rlerror.Wrap(rlerror.KindBuild, "", "command failed: "+command, err)
		}
	}
	return nil
}

// Service is a handle to a spawned, still-running service process.
type Service struct {
	cmd     *exec.Cmd
	command string
}

// Command returns the shell command this service was spawned with.
func (s *Service) Command() string {
	return s.command
}

// Pid returns the process ID of the spawned process.
func (s *Service) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Wait blocks until the service process exits and returns its result.
func (s *Service) Wait() error {
	return s.cmd.Wait()
}

// SpawnService starts command in its own process group on Unix, so
// Terminate can reach any children it forks (on Windows only the
// immediate process is signaled), and returns immediately without
// waiting for it to exit.
func SpawnService(dir, command string) (*Service, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	setupProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, rlerror.Wrap(rlerror.KindServiceSpawn, "", "start service: "+command, err)
	}

	return &Service{cmd: cmd, command: command}, nil
}

// Terminate stops the service, sending SIGTERM (or the platform
// equivalent) and escalating to a kill if it has not exited by the
// time the caller's context is done.
func (s *Service) Terminate(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	if err := terminateProcessGroup(s.cmd); err != nil {
		killProcessGroup(s.cmd)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		killProcessGroup(s.cmd)
		<-done
		return ctx.Err()
	}
}
