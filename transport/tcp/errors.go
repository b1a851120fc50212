// File: transport/tcp/errors.go
// Author: momentics <momentics@gmail.com>

package tcp

import "github.com/pkg/errors"

// cause strips wrapping added by this package.
func cause(err error) error {
	return errors.Cause(err)
}
