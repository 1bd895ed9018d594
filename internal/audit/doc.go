// Package audit relays security events to a sink off the request path.
//
// [NewEvent] stamps each event with a ULID and a UTC timestamp so sinks can
// order and deduplicate them. [Dispatcher] buffers events on a channel and
// either drops or blocks when the buffer is full.
//
// Which events to emit is the engine's decision, not this package's.
package audit
