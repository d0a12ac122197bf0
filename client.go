package redwire

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"redwire/internal/executor"
	"redwire/internal/logger"
	"redwire/internal/resp"
	"redwire/internal/transport"
)

// Options configures Connect. Host/Port identify the server; the rest are
// optional connection-lifecycle steps run once per dial (including every
// reconnect dial), in this order: TLS handshake, AUTH, SELECT, CLIENT
// SETNAME — mirroring the teacher's createCLIConnection /
// authenticateCLI / selectDBCLI sequencing in internal/cli/cli.go.
type Options struct {
	Host     string
	Port     int // defaults to 6379
	TLS      bool
	Password string
	DB       int
	Name     string

	DialTimeout      time.Duration
	MaxRetryCount    int // reconnect attempts on a failed exchange; 0 (default) disables retry, failing fast with a TransportError
	ReconnectBackoff time.Duration
}

// Client is a connected handle to a RESP2 server. All methods are safe
// for concurrent use by multiple goroutines; the executor underneath
// serializes access to the single socket.
type Client struct {
	exec *executor.Executor
	opts Options
}

// Connect dials, authenticates, selects the database and names the
// connection per opts, then returns a ready-to-use Client. A bad port
// returns InvalidArgument before dialing. Any later failure closes the
// socket and returns TransportError (dial or write failure), ProtocolError
// (a handshake reply could not be read) or ServerError (the server
// rejected AUTH, SELECT or CLIENT SETNAME).
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, &InvalidArgument{Message: fmt.Sprintf("invalid port %d", opts.Port)}
	}

	dialer := func(ctx context.Context) (*transport.Conn, error) {
		return dialAndHandshake(ctx, opts)
	}

	e, err := executor.New(ctx, dialer, executor.Options{
		MaxRetryCount:    opts.MaxRetryCount,
		ReconnectBackoff: opts.ReconnectBackoff,
	})
	if err != nil {
		return nil, err
	}
	return &Client{exec: e, opts: opts}, nil
}

func dialAndHandshake(ctx context.Context, opts Options) (*transport.Conn, error) {
	conn, err := transport.Dial(transport.DialOptions{
		Host:    opts.Host,
		Port:    opts.Port,
		TLS:     opts.TLS,
		Timeout: opts.DialTimeout,
	})
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if opts.Password != "" {
		if err := handshakeCommand(conn, resp.Args("AUTH", opts.Password)); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if opts.DB != 0 {
		if err := handshakeCommand(conn, resp.Args("SELECT", strconv.Itoa(opts.DB))); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if opts.Name != "" {
		if err := handshakeCommand(conn, resp.Args("CLIENT", "SETNAME", opts.Name)); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	logger.Debugf("redwire: connected to %s", conn.RemoteAddr())
	return conn, nil
}

func handshakeCommand(conn *transport.Conn, tokens [][]byte) error {
	if err := conn.WriteRequest(tokens); err != nil {
		return &TransportError{Err: err}
	}
	if err := conn.Flush(); err != nil {
		return &TransportError{Err: err}
	}
	r, err := conn.ReadReply()
	if err != nil {
		return &ProtocolError{Err: err}
	}
	if r.Type == resp.Error {
		return &ServerError{Message: r.Str}
	}
	return nil
}

// Exec sends one command and waits for its reply.
func (c *Client) Exec(ctx context.Context, name string, args ...any) (Reply, error) {
	return c.execTokens(ctx, resp.Args(name, args...))
}

func (c *Client) execTokens(ctx context.Context, tokens [][]byte) (Reply, error) {
	r, err := c.exec.Exec(ctx, tokens)
	if err != nil {
		return Reply{}, translateExecError(err)
	}
	if r.Type == resp.Error {
		return r, &ServerError{Message: r.Str}
	}
	return r, nil
}

func translateExecError(err error) error {
	var tf *executor.TransportFailure
	if errors.As(err, &tf) {
		return &TransportError{Err: err}
	}
	var pf *executor.ProtocolFailure
	if errors.As(err, &pf) {
		return &ProtocolError{Err: err}
	}
	if executor.IsModeError(err) {
		return &ModeError{Message: err.Error()}
	}
	if executor.IsClosedError(err) {
		return &TransportError{Err: err}
	}
	return err
}

// Close releases the underlying connection. Idempotent.
func (c *Client) Close() error {
	return c.exec.Close()
}

// IsConnected reports whether the client currently holds a live connection.
func (c *Client) IsConnected() bool {
	return c.exec.IsConnected()
}

// IsClosed reports whether Close has been called.
func (c *Client) IsClosed() bool {
	return c.exec.IsClosed()
}

// Pipeline returns a new, empty Pipeline bound to this client.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{client: c}
}

// Tx returns a new, empty Transaction bound to this client.
func (c *Client) Tx() *Transaction {
	return &Transaction{client: c}
}
