//go:build !unix

package supervisor

import (
	"os"
	"os/exec"
	"time"
)

func setProcessGroup(_ *exec.Cmd) {}

// killGroup kills the single process; process groups are not available on this platform.
func killGroup(pid int, done <-chan struct{}, _, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	_ = proc.Kill()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrKillFailed
	}
}
