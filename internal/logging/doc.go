// Package logging provides structured logging for scenariod on top of zap.
//
// Output goes to stdout (json or console encoding) and optionally to an
// OpenTelemetry log provider through the otelzap bridge. A custom trace
// level below debug exists for oracle payloads and other ultra-verbose
// detail. Context-aware methods pull run correlation fields (run id,
// scenario id, request id) out of the context so every log line of a run
// can be stitched together.
package logging
