// Package pool
// Author: momentics <momentics@gmail.com>
//
// Scratch memory for the receive path. Connections borrow a read buffer
// for the duration of one read and return it once the bytes have been
// copied into their framer.
package pool
