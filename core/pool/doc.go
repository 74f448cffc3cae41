// Package pool manages the set of running application instances and the request slots on them.
//
// Every instance accepts at most max_concurrent_requests requests at a time. Acquire takes a
// slot on the least loaded ready instance; when every instance is full the caller waits in a
// FIFO pending queue until a slot is released, a new instance becomes ready, or its context
// ends. The age of the oldest pending request is the pending latency signal the autoscaler
// compares with min_pending_latency.
//
// Resize grows the pool by starting instances on the lowest free ports from BasePort and
// shrinks it by stopping idle instances only; busy instances are never interrupted.
// Instances that exit unexpectedly are removed and, while the pool is below its target,
// replaced after RestartDelay.
package pool
