package health

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// ProcessHandle tracks a worker running as an OS process.
type ProcessHandle struct {
	PID int32
}

func (h ProcessHandle) IsAlive() bool {
	if h.PID <= 0 {
		return false
	}
	exists, err := process.PidExists(h.PID)
	if err != nil {
		logrus.Debugf("Unable to check process %d: %v", h.PID, err)
		return false
	}
	return exists
}

// FuncHandle adapts a plain function to the Handle interface.
type FuncHandle func() bool

func (f FuncHandle) IsAlive() bool { return f() }

// CommandHandle is the handle of a child process started by CommandLauncher. It stops
// reporting alive as soon as the child has been reaped.
type CommandHandle struct {
	ProcessHandle
	exited atomic.Bool
}

func (h *CommandHandle) IsAlive() bool {
	return !h.exited.Load() && h.ProcessHandle.IsAlive()
}

var ErrEmptyCommand = errors.New("empty command")

// CommandLauncher returns a Launcher that starts name with args as a child process.
// The child outlives the launch context; it is reaped in the background.
func CommandLauncher(name string, args ...string) Launcher {
	return func(ctx context.Context) (Handle, error) {
		if name == "" {
			return nil, ErrEmptyCommand
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("error starting %s: %w", name, err)
		}

		h := &CommandHandle{ProcessHandle: ProcessHandle{PID: int32(cmd.Process.Pid)}}
		go func() {
			err := cmd.Wait()
			h.exited.Store(true)
			logrus.Debugf("Process %s (pid %d) exited: %v", name, h.PID, err)
		}()

		logrus.Infof("Started %s with pid %d", name, h.PID)
		return h, nil
	}
}
