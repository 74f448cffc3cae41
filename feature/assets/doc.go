// Package assets publishes the files served by static handlers to object storage.
//
// The local application root is the source of truth. Publish uploads files that are
// missing or differ in size, and with prune removes objects that no static handler serves.
// Once published, the gateway can serve static handlers from the bucket instead of the
// local disk (static.source=bucket).
//
// # Routes
//
//   - GET  /assets          difference between local files and the bucket
//   - GET  /assets/plan     planned actions (?prune=true)
//   - POST /assets/publish  execute the plan (?prune=true&dry_run=true)
package assets
