package registry

import "errors"

// ErrConcurrentUpdate is returned when a catalog or ledger write
// detects that another invocation modified the blob since it was
// loaded. The caller's in-memory working copy is stale and must be
// discarded, not retried blindly.
var ErrConcurrentUpdate = errors.New("shared registry state modified concurrently")
