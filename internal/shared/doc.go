// Package shared holds cross-cutting utilities that belong to no single
// domain layer. Today that is the testutil subpackage: slog capture
// helpers and domain fixture builders used by tests across the module.
//
// Keep it free of business logic and of dependencies on other internal
// packages beyond the domain contracts; anything domain-shaped belongs
// next to the code it serves.
package shared
