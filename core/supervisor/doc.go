// Package supervisor runs application instances.
//
// An Instance is one process started from the descriptor entrypoint through the shell, with
// PORT set to the instance port and the descriptor env_variables exported. The process is
// placed in its own process group so that stopping an instance also stops the workers it
// forked (gunicorn, for example, forks one process per worker).
//
// Start returns once the port accepts TCP connections or fails after the start timeout.
// Stop sends SIGTERM to the group and SIGKILL once the grace period runs out.
//
// Process output is streamed line by line into the logger with the instance port attached.
package supervisor
