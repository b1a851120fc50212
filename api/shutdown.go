// File: api/shutdown.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that release sockets on stop.
type GracefulShutdown interface {
	// Shutdown stops the component and releases its resources.
	Shutdown() error
}
