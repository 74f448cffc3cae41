//go:build unix

package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killGroup signals the whole process group led by pid: SIGTERM, then SIGKILL after grace.
// done must close when the leader has been reaped.
func killGroup(pid int, done <-chan struct{}, grace, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		_ = syscall.Kill(pid, syscall.SIGTERM)
	}

	select {
	case <-done:
		// Reap stragglers that ignored SIGTERM after the leader exited.
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		return nil
	case <-time.After(grace):
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrKillFailed
	}
}
