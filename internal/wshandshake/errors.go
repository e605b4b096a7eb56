package wshandshake

import "github.com/pkg/errors"

// ErrNoHandler is the sentinel for a dispatch failure: no handler was
// registered for the requested resource. wsserver does not return it; it
// answers a request for an unregistered resource with a 404 directly.
var ErrNoHandler = errors.New("wshandshake: no handler for resource")
