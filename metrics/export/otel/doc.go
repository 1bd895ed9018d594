// Package otel publishes engine metrics as OpenTelemetry observable
// instruments. Values are read from the engine's snapshot at collection
// time; nothing is pushed.
package otel
