// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics and debug introspection for the tick server.
//
// Provides:
//   - named counters mirrored into the process-wide go-counter registry
//   - rolling tick-duration statistics
//   - probe registration and state export
package control
