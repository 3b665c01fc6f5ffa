// Package listener serves relay requests on a TCP socket.
//
// Connections are handled one at a time: the request is read, handed to the
// Handler, its response written back and the connection closed before the
// next connection is accepted. A request ends when the bytes read so far
// form a complete JSON value, the client closes its side, the size limit is
// reached or the read timeout expires.
//
// Usage:
//
//	l, err := listener.Listen(cfg.Socket, dispatcher, logger)
//	if err != nil {
//	    return err // bind failures are fatal
//	}
//	defer l.Close()
//	err = l.Serve(ctx) // returns when ctx is cancelled
package listener
