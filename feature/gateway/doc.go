// Package gateway is the public HTTP surface of the hosted application.
//
// Every request is matched against the descriptor handlers in order. Static handlers are
// served from the configured static source with cache headers derived from expiration.
// Script handlers are reverse proxied to a running instance once a request slot is free.
// Handlers with secure: always redirect plain HTTP requests to HTTPS first.
package gateway
