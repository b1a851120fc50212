// File: api/codes.go
// Author: momentics <momentics@gmail.com>
//
// Process-visible error codes of the point-to-point client.

package api

// ErrorCode is a numeric status returned by the legacy client API.
// Some values are shared between operations: -1 means NOT_CONNECTED for
// send/receive and ALREADY_DISCONNECTED for disconnect.
type ErrorCode int

const (
	NoError            ErrorCode = 0
	UnableToOpenSocket ErrorCode = 1
	UnableToGetHost    ErrorCode = 2
	UnableToConnect    ErrorCode = 3

	NotConnected   ErrorCode = -1
	ConnectionLost ErrorCode = -2

	AlreadyDisconnected ErrorCode = -1
	CannotCloseSocket   ErrorCode = -2
)

// String names c as a connect, send or receive result. Use
// DisconnectString for values returned by Disconnect.
func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case UnableToOpenSocket:
		return "UNABLE_TO_OPEN_SOCKET"
	case UnableToGetHost:
		return "UNABLE_TO_GET_HOST"
	case UnableToConnect:
		return "UNABLE_TO_CONNECT"
	case NotConnected:
		return "NOT_CONNECTED"
	case ConnectionLost:
		return "CONNECTION_LOST"
	default:
		return "UNKNOWN"
	}
}

// DisconnectString names c as a Disconnect result, where -1 and -2 mean
// ALREADY_DISCONNECTED and CANNOT_CLOSE_SOCKET.
func (c ErrorCode) DisconnectString() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case AlreadyDisconnected:
		return "ALREADY_DISCONNECTED"
	case CannotCloseSocket:
		return "CANNOT_CLOSE_SOCKET"
	default:
		return "UNKNOWN"
	}
}
