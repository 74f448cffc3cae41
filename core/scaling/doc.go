// Package scaling turns the descriptor's automatic_scaling block into instance counts.
//
// Decide is a pure function from a pool snapshot to a desired instance count:
//   - utilization above target_cpu_utilization grows the pool to the size that brings it
//     back under the target
//   - a request pending for at least min_pending_latency adds an instance; one pending for
//     max_pending_latency adds enough instances for the whole queue
//   - idle instances beyond max_idle_instances are released, idle instances below
//     min_idle_instances are added
//   - the result is clamped to [min_instances, max_instances]
//
// A local host cannot observe per-instance CPU, so utilization is measured as in-flight
// requests over ready capacity (instances * max_concurrent_requests).
//
// The Autoscaler applies Decide on a ticker and holds scale-downs for a cooldown after the
// last scale-up.
package scaling
