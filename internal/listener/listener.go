package listener

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/logging"
)

const (
	// acceptPollInterval is how often Serve wakes from Accept to check for shutdown.
	acceptPollInterval = time.Second

	// defaultReadTimeout applies when the config leaves read_timeout at zero.
	defaultReadTimeout = 5 * time.Second

	// tlsMinVersion is the minimum TLS version offered to clients.
	tlsMinVersion = tls.VersionTLS12
)

// Handler produces the response for one request. Implemented by *relay.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, raw []byte) string
}

// Listener accepts client connections and serves them sequentially.
type Listener struct {
	ln          *net.TCPListener
	tlsConfig   *tls.Config
	handler     Handler
	maxRequest  int
	readTimeout time.Duration
	logger      *logging.Logger
}

// Listen binds the client socket.
//
// Binding happens here, once, so a failure is reported before any request
// is served. There are no retries.
//
// Parameters:
//   - cfg: Socket settings (address, TLS, limits)
//   - handler: Receives every request
//   - logger: Component logger (nil discards)
//
// Returns:
//   - *Listener: Bound listener, not yet accepting
//   - error: Wrapping ErrTLSConfig or ErrBindFailed
func Listen(cfg config.SocketConfig, handler Handler, logger *logging.Logger) (*Listener, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: loading key pair: %w", ErrTLSConfig, err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tlsMinVersion,
		}
	}

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBindFailed, cfg.Address(), err)
	}

	readTimeout := cfg.GetReadTimeout()
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	return &Listener{
		ln:          ln.(*net.TCPListener),
		tlsConfig:   tlsConfig,
		handler:     handler,
		maxRequest:  cfg.MaxRequestSize,
		readTimeout: readTimeout,
		logger:      logger.With("component", "listener"),
	}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close releases the socket. Serve returns once it notices.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Serve accepts and handles connections until ctx is cancelled.
//
// A per-connection failure is logged and the loop carries on; only
// cancellation or a closed socket ends it.
//
// Returns:
//   - error: nil after cancellation or Close
func (l *Listener) Serve(ctx context.Context) error {
	l.logger.Info("listening for clients",
		"address", l.Addr().String(),
		"tls", l.tlsConfig != nil,
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("listener stopping")
			return nil
		default:
		}

		// Wake periodically so cancellation is noticed without a connection.
		if err := l.ln.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			return fmt.Errorf("setting accept deadline: %w", err)
		}

		conn, err := l.ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				l.logger.Info("listener closed")
				return nil
			}
			l.logger.Warn("accept failed", "error", err)
			continue
		}

		l.serveConn(ctx, conn)
	}
}

// serveConn handles exactly one request on conn and closes it.
func (l *Listener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if l.tlsConfig != nil {
		conn = tls.Server(conn, l.tlsConfig)
	}

	remote := conn.RemoteAddr().String()

	raw, err := l.readRequest(conn)
	if err != nil {
		l.logger.Warn("reading request failed", "remote", remote, "error", err)
		return
	}

	response := l.handler.Handle(ctx, raw)

	if err := conn.SetWriteDeadline(time.Now().Add(l.readTimeout)); err != nil {
		l.logger.Warn("setting write deadline failed", "remote", remote, "error", err)
	}
	if _, err := io.WriteString(conn, response); err != nil {
		l.logger.Warn("writing response failed", "remote", remote, "error", err)
	}
}

// readRequest reads until the data is a complete JSON value, the peer
// closes, the size limit is reached or the read deadline passes.
//
// A timeout or close with partial data still yields that data, so the
// client gets a parse error rather than silence. An error is returned only
// when nothing could be read at all for a reason other than timeout or EOF.
func (l *Listener) readRequest(conn net.Conn) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(l.readTimeout)); err != nil {
		return nil, fmt.Errorf("setting read deadline: %w", err)
	}

	buf := make([]byte, l.maxRequest)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if m > 0 && json.Valid(buf[:n]) {
			break
		}
		if err == nil {
			continue
		}

		var netErr net.Error
		switch {
		case errors.Is(err, io.EOF):
		case errors.As(err, &netErr) && netErr.Timeout():
		case n == 0:
			return nil, err
		}
		break
	}

	return buf[:n], nil
}
