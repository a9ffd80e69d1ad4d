// Package log provides a wrapped zap logger for the cross process engine.
//
// The global logger is a nop logger until one of the Init* functions is
// called, so libraries embedding this engine stay silent by default.
//
// Header decoding failures are routine (untrusted peers, stale encoding keys),
// so this module logs them at debug level with structured pairs:
//
//	log.Debugw("Dropping inbound header", "header", name, "err", err)
//
// When a context object carrying a transaction is available, use the logger
// attached to it instead:
//
//	log.C(ctx).Debugw("Dropping inbound header", "err", err)
package log
