// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration, metrics and debug introspection for dispatchers.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads, typed getters and merged updates
//   - Dotenv loading into the config store
//   - Synchronous reload listeners
//   - Counter and gauge registry
//   - Debug probe registration and state export
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
