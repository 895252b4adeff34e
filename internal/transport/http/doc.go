// Package http provides the HTTP handlers for the query API.
//
// Handlers are thin: they validate query parameters, call the injected
// service, and render either a JSON success envelope or an RFC 7807
// problem response via the shared error handler. Routes are assembled
// with chi sub-routers, one Routes() tree per handler.
package http
