// Package middleware groups the fiber middleware shared by every route.
//
//   - rayid tags each request with an X-Ray-ID (kept from the client when present). The id is
//     echoed in the response, stored in locals for logger.WithRayID and forwarded to instances.
//   - auth guards the admin group with the X-API-Key header. An empty key leaves the group open,
//     which is the local development default.
//
// rayid is registered first on the app; auth only on the admin group.
package middleware
