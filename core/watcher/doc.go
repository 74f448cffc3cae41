// Package watcher keeps the active descriptor and its compiled router.
//
// A Holder loads app.yaml, validates it against the application root and swaps it in
// atomically. Reloads that fail to parse or validate leave the previous version serving.
// Start watches the file with fsnotify and debounces bursts of events before reloading.
// Runtime and entrypoint changes are applied to routing and scaling only; running
// instances keep their original command until the host restarts.
package watcher
