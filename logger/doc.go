// Package logger provides structured logging for meshkit services on top of
// zerolog. Services obtain a *Logger tagged with their name, derive
// component-scoped children via WithComponent, and enrich entries with
// request/trace identifiers carried in the context.
package logger
