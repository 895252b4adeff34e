// Package app wires the query server: configuration, logging, telemetry,
// services, middleware, and routes, plus graceful start and stop.
package app
