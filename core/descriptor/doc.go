// Package descriptor models the App Engine style deployment descriptor (app.yaml).
//
// A descriptor declares the runtime, the entrypoint command the platform launches, the
// automatic scaling parameters and an ordered list of URL handlers. Handlers are evaluated
// in file order and the first match wins, so more specific static paths come before the
// catch-all `.*` script route.
//
// # Parsing
//
// Parse and Load decode YAML strictly: unknown keys and trailing documents are rejected, so a
// typo in a key never silently falls back to a default.
//
// # Validation
//
// Validate performs the packaging checks a platform validator runs at deploy time:
//   - every handler url compiles as a regular expression
//   - the catch-all route is last (handlers after it are unreachable)
//   - target_cpu_utilization lies in (0,1]
//   - every static_dir and upload pattern resolves to files under the application root
//   - the entrypoint binds to $PORT
//
// Issues are returned as values in a Report; Report.Err folds error-severity issues into an error.
//
// # Usage
//
//	d, raw, err := descriptor.Load("app.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := d.Validate(".").Err(); err != nil {
//	    return err
//	}
//	fmt.Println(descriptor.Digest(raw))
package descriptor
