package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"app-host/core/logger"

	"go.uber.org/zap"
)

var (
	ErrKillFailed     = errors.New("instance did not exit after SIGKILL")
	ErrExited         = errors.New("instance exited before becoming ready")
	ErrStartTimeout   = errors.New("instance did not accept connections before the start timeout")
	ErrAlreadyStarted = errors.New("instance already started")
)

// State is the lifecycle state of an instance.
type State string

const (
	StateNew      State = "new"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateStopping State = "stopping"
	StateExited   State = "exited"
)

// Spec describes the process to run.
type Spec struct {
	// Command is the entrypoint, run through Shell -c.
	Command string
	// Env is added to the host environment.
	Env map[string]string
	// Dir is the working directory (the application root).
	Dir string
	// Shell defaults to /bin/sh.
	Shell string
}

// Options tune instance lifecycle timing.
type Options struct {
	StartTimeout  time.Duration
	StopGrace     time.Duration
	ProbeInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.StartTimeout <= 0 {
		o.StartTimeout = 30 * time.Second
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 10 * time.Second
	}
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 100 * time.Millisecond
	}
	return o
}

// Instance is one supervised application process.
type Instance struct {
	port   int
	spec   Spec
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	cmd       *exec.Cmd
	startedAt time.Time
	exitErr   error
	done      chan struct{}
}

// New creates an instance bound to port. It does not start the process.
func New(port int, spec Spec, opts Options, l *zap.Logger) *Instance {
	return &Instance{
		port:   port,
		spec:   spec,
		opts:   opts.withDefaults(),
		logger: l.With(zap.Int("instance_port", port)),
		state:  StateNew,
		done:   make(chan struct{}),
	}
}

// Port returns the port the instance binds.
func (i *Instance) Port() int {
	return i.port
}

// Addr returns the loopback address of the instance.
func (i *Instance) Addr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(i.port))
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// StartedAt returns when the process was launched.
func (i *Instance) StartedAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.startedAt
}

// Done is closed once the process has exited.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Err returns the exit error after Done is closed.
func (i *Instance) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitErr
}

// Start launches the process and blocks until it accepts connections on its port.
// On failure the process is stopped before returning.
func (i *Instance) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.state != StateNew {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}

	shell := i.spec.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	// #nosec G204 -- the entrypoint is the operator's own deployment command
	cmd := exec.Command(shell, "-c", i.spec.Command)
	cmd.Dir = i.spec.Dir
	cmd.Env = i.environ()
	cmd.WaitDelay = i.opts.StopGrace
	setProcessGroup(cmd)

	stdout, stdoutW := io.Pipe()
	stderr, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	go logger.Pipe(i.logger, stdout, "stdout")
	go logger.Pipe(i.logger, stderr, "stderr")

	if err := cmd.Start(); err != nil {
		i.state = StateExited
		i.exitErr = err
		close(i.done)
		i.mu.Unlock()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return fmt.Errorf("start instance on port %d: %w", i.port, err)
	}

	i.cmd = cmd
	i.state = StateStarting
	i.startedAt = time.Now()
	i.mu.Unlock()

	i.logger.Info("Instance starting", zap.Int("pid", cmd.Process.Pid), zap.String("command", i.spec.Command))

	go func() {
		err := cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()

		i.mu.Lock()
		i.state = StateExited
		i.exitErr = err
		i.mu.Unlock()
		close(i.done)

		if err != nil {
			i.logger.Warn("Instance exited", zap.Error(err))
		} else {
			i.logger.Info("Instance exited")
		}
	}()

	if err := i.waitReady(ctx); err != nil {
		_ = i.Stop()
		return err
	}

	i.mu.Lock()
	if i.state == StateStarting {
		i.state = StateReady
	}
	i.mu.Unlock()

	i.logger.Info("Instance ready", zap.Duration("startup", time.Since(i.StartedAt())))
	return nil
}

func (i *Instance) waitReady(ctx context.Context) error {
	deadline := time.NewTimer(i.opts.StartTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(i.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", i.Addr(), i.opts.ProbeInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-i.done:
			if exitErr := i.Err(); exitErr != nil {
				return fmt.Errorf("%w: %v", ErrExited, exitErr)
			}
			return ErrExited
		case <-deadline.C:
			return ErrStartTimeout
		case <-ticker.C:
		}
	}
}

// Stop terminates the process group and waits for the process to exit.
func (i *Instance) Stop() error {
	i.mu.Lock()
	switch i.state {
	case StateNew:
		i.state = StateExited
		close(i.done)
		i.mu.Unlock()
		return nil
	case StateExited:
		i.mu.Unlock()
		return nil
	}
	i.state = StateStopping
	pid := i.cmd.Process.Pid
	i.mu.Unlock()

	i.logger.Info("Stopping instance", zap.Int("pid", pid))
	return killGroup(pid, i.done, i.opts.StopGrace, i.opts.StopGrace)
}

func (i *Instance) environ() []string {
	env := os.Environ()
	for k, v := range i.spec.Env {
		env = append(env, k+"="+v)
	}
	return append(env, "PORT="+strconv.Itoa(i.port))
}
