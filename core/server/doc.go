// Package server holds the HTTP front server configuration.
//
// The front server is the public entry point: it applies the descriptor's handler list,
// serves static content and proxies script routes to application instances. Admin and
// health routes are mounted under AdminPrefix (default /_ah, the platform-reserved path).
//
// # Configuration
//
// The Config struct defines the listen port (falling back to $PORT), the admin API key and
// request/proxy timeouts.
package server
