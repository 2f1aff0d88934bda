// Package logging defines a minimal structured-logging interface used
// across the service. The executor and the HTTP layer take a Logger rather
// than reaching for a package-level global, so tests can
// inject a discard logger or assert on emitted fields.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "transfer succeeded", "transaction_id", id, "amount", amount)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value
	// pairs.
	With(args ...any) Logger
}
