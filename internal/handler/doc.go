// Package handler implements the HTTP API for coursebook.
//
// # Routes
//
//	GET    /api/courses          list (query: order, columns)
//	POST   /api/courses          create
//	DELETE /api/courses          delete every course
//	GET    /api/courses/:id      fetch one
//	PUT    /api/courses/:id      partial update with a column/value object
//	DELETE /api/courses/:id      delete one
//	GET    /api/type             resource type of ?uri=
//	GET    /api/export           export (query: format)
//	POST   /api/import           import the body (query: format, strategy)
//	GET    /events               server-sent change notifications (query: uri, descendants)
//	GET    /healthz              liveness and subscriber counts
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure. Unmatched
// identifiers and missing courses are 404, rejected arguments are 400 and
// store failures are 500.
package handler
