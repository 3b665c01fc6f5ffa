package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/nerrad567/gray-logic-relay/internal/auth"
	"github.com/nerrad567/gray-logic-relay/internal/relay"
)

// maxResponseSize bounds how much of a reply is read.
const maxResponseSize = 64 * 1024

// ErrNoSalt is returned when the relay has no salt for the user.
var ErrNoSalt = errors.New("relay returned no salt for user")

// ClientOptions configures a Client.
type ClientOptions struct {
	Addr    string
	TLS     bool
	CAFile  string
	Timeout time.Duration
}

// Client sends single requests to a relay. Each call opens its own connection.
type Client struct {
	opts ClientOptions
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{opts: opts}
}

// Salt returns the salt prefix for user, or "" for an unknown user.
func (c *Client) Salt(ctx context.Context, user string) (string, error) {
	return c.send(ctx, map[string]string{
		"message": relay.MessageGetSalt,
		"user":    user,
	})
}

// Check verifies a password by deriving the digest from the relay's salt.
func (c *Client) Check(ctx context.Context, user, password string) (string, error) {
	digest, err := c.digest(ctx, user, password)
	if err != nil {
		return "", err
	}
	return c.send(ctx, map[string]string{
		"message":  relay.MessageCheckAuth,
		"user":     user,
		"password": digest,
	})
}

// Publish sends message to topic and returns the relay's response, which is
// the device reply for request topics.
func (c *Client) Publish(ctx context.Context, user, password, topic, message string) (string, error) {
	digest, err := c.digest(ctx, user, password)
	if err != nil {
		return "", err
	}
	return c.send(ctx, map[string]string{
		"topic":    topic,
		"message":  message,
		"user":     user,
		"password": digest,
	})
}

func (c *Client) digest(ctx context.Context, user, password string) (string, error) {
	salt, err := c.Salt(ctx, user)
	if err != nil {
		return "", fmt.Errorf("fetching salt: %w", err)
	}
	if salt == "" {
		return "", ErrNoSalt
	}
	return auth.DeriveDigest(password, salt), nil
}

// send writes one JSON request and reads the response until the relay closes.
func (c *Client) send(ctx context.Context, req map[string]string) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", fmt.Errorf("setting deadline: %w", err)
		}
	}

	if _, err := conn.Write(body); err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}

	resp, err := io.ReadAll(io.LimitReader(conn, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(resp), nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	if !c.opts.TLS {
		conn, err := d.DialContext(ctx, "tcp", c.opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to relay: %w", err)
		}
		return conn, nil
	}

	tlsCfg, err := c.tlsConfig()
	if err != nil {
		return nil, err
	}
	td := tls.Dialer{NetDialer: &d, Config: tlsCfg}
	conn, err := td.DialContext(ctx, "tcp", c.opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to relay: %w", err)
	}
	return conn, nil
}

func (c *Client) tlsConfig() (*tls.Config, error) {
	host, _, err := net.SplitHostPort(c.opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
	}
	if c.opts.CAFile != "" {
		pem, err := os.ReadFile(c.opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.opts.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
