// Package loader registers HTTP features on a fiber router.
//
// A Feature names itself, reports whether its dependencies are present, and mounts its routes.
// Manager.LoadAll mounts enabled features in registration order and skips the rest, so
// optional parts (release history without a database, asset publishing without storage)
// disappear instead of failing. Order matters: the gateway's catch-all is registered last.
package loader
