// Package releases records the history of descriptor versions served by the host.
//
// Every distinct descriptor digest becomes a Release row; recording the same digest twice
// is a no-op, so restarts and no-op reloads do not add entries. The newest release is
// active and earlier ones are marked superseded.
package releases
