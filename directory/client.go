// Package directory implements the sasl collaborator interfaces on top of an
// LDAP directory using github.com/go-ldap/ldap/v3: the directory client, the
// identity mappers and a directory-backed authentication engine.
package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/smnsjas/go-extauth/sasl"
)

// Classified bind failures. The sasl layer surfaces both as a bind error;
// callers that care can distinguish them with errors.Is.
var (
	// ErrInvalidCredentials means the directory rejected the DN/password
	// pair.
	ErrInvalidCredentials = errors.New("directory rejected the credentials")

	// ErrUnreachable means the directory could not be reached or the
	// connection broke mid-operation.
	ErrUnreachable = errors.New("directory unreachable")
)

// Conn abstracts the subset of *ldap.Conn this package uses, mostly for
// testing.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

var _ Conn = &ldap.Conn{}

// DialFunc opens a connection to one directory server URL. It exists to
// enable testing; when nil, Client uses ldap.DialURL.
type DialFunc func(ctx context.Context, addr string) (Conn, error)

// Client opens directory connections. It implements sasl.DirectoryClient.
//
// A Client is safe for concurrent use; each call to Connect returns an
// independent connection owned by the caller.
type Client struct {
	tlsConfig *tls.Config
	timeout   time.Duration
	dial      DialFunc
}

var _ sasl.DirectoryClient = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithDialTimeout bounds connection establishment. Defaults to 10s; a
// context deadline shorter than this wins.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithDialFunc replaces the dialer, for tests.
func WithDialFunc(dial DialFunc) ClientOption {
	return func(c *Client) { c.dial = dial }
}

// NewClient creates a directory client. tlsConfig applies to ldaps URLs and
// may be nil for library defaults.
func NewClient(tlsConfig *tls.Config, opts ...ClientOption) *Client {
	c := &Client{
		tlsConfig: tlsConfig,
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect tries each server URL in order and returns the first connection
// that opens. The returned connection is exclusively owned by the caller and
// must be closed exactly once.
func (c *Client) Connect(ctx context.Context, servers []string) (sasl.DirectoryConn, error) {
	conn, err := c.dialFirst(ctx, servers)
	if err != nil {
		return nil, err
	}
	return &directoryConn{conn: conn}, nil
}

// dialFirst walks the server list and keeps the last error when every
// server fails.
func (c *Client) dialFirst(ctx context.Context, servers []string) (Conn, error) {
	if len(servers) == 0 {
		return nil, errors.New("no directory servers configured")
	}

	var lastErr error
	for _, addr := range servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		conn, err := c.dialOne(ctx, addr)
		if err != nil {
			lastErr = fmt.Errorf("dial %s: %w", addr, err)
			continue
		}
		return conn, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnreachable, lastErr)
}

func (c *Client) dialOne(ctx context.Context, addr string) (Conn, error) {
	if c.dial != nil {
		return c.dial(ctx, addr)
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if c.tlsConfig != nil {
		opts = append(opts, ldap.DialWithTLSConfig(c.tlsConfig))
	}
	return ldap.DialURL(addr, opts...)
}

// directoryConn wraps an open connection and classifies bind failures.
type directoryConn struct {
	conn   Conn
	closed bool
}

var _ sasl.DirectoryConn = (*directoryConn)(nil)

func (d *directoryConn) Bind(ctx context.Context, dn, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classifyBindError(d.conn.Bind(dn, password))
}

// classifyBindError tags bind failures with the sentinel that matches the
// directory's result code, preserving the original error detail.
func classifyBindError(err error) error {
	switch {
	case err == nil:
		return nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	case ldap.IsErrorWithCode(err, ldap.ErrorNetwork):
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	default:
		return err
	}
}

func (d *directoryConn) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.conn.Close()
}
