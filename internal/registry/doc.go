// File: internal/registry/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Index-stable registries backing the dispatcher: an insertion-ordered set
// for descriptor callbacks and a keyed binary heap for deadline- and
// priority-ordered callbacks. Members are addressed by a never-reused key,
// so lookups after arbitrary insertion/removal stay valid; callers that run
// user code while walking a registry iterate over a Snapshot.
//
// Registries are not safe for concurrent use.
package registry

// Keyed is implemented by registry members.
type Keyed interface {
	Key() uint64
}
