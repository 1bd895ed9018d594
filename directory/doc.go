// Package directory holds user directory implementations for the engine.
//
// [Memory] keeps users in process and is meant for development and tests.
// Package directory/sqlite persists them in SQLite.
package directory
