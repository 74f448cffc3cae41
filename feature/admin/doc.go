// Package admin exposes operational endpoints for the host.
//
// Public routes, mounted under the admin prefix:
//
//	GET  /_ah/health     200 when the application can serve, 503 otherwise
//	GET  /_ah/metrics    Prometheus metrics
//
// Authenticated routes (X-API-Key when server.api_key is set):
//
//	GET  /_ah/admin/routes      route table, or ?path= to resolve one path
//	GET  /_ah/admin/validate    validate app.yaml on disk (?strict=true)
//	POST /_ah/admin/reload      activate app.yaml on disk
//	GET  /_ah/admin/instances   pool statistics and scaling decision
//	POST /_ah/admin/scale       resize the pool (?instances=N)
//
// Sub-features (releases, assets) are loaded into the same authenticated group.
package admin
