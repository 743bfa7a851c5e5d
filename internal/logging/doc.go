// Package logging wraps Zap for thoughtd.
//
// Console output always goes to stderr because stdout carries the MCP
// stdio transport. Entries can also be forwarded to an OpenTelemetry
// LoggerProvider through the otelzap bridge.
//
// Context helpers attach correlation fields that every context-aware
// method emits automatically:
//
//	ctx = logging.WithProjectID(ctx, "api")
//	ctx = logging.WithTool(ctx, "process_thought")
//	logger.Info(ctx, "thought recorded", zap.Int("number", 3))
//
// yields "project", "tool", and the active span's trace_id and span_id.
//
// Sampling is per level (Trace, Debug, Info, Warn by default); Error and
// above are never sampled. Fields named like credentials and values that
// look like bearer tokens are redacted by the encoder.
//
// TestLogger records entries in memory for assertions in tests.
package logging
