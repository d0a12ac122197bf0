// Package executor implements the request multiplexer: it serializes
// concurrent command submissions from many goroutines onto one connection,
// pairs replies back to their submitter in FIFO order, and owns the
// reconnect-on-failure and pub/sub mode-switch logic. Architecture is
// adapted from a single-dispatch-goroutine channel design (queue in,
// decode loop out) rather than the request-per-goroutine model a naive
// port would produce.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"redwire/internal/logger"
	"redwire/internal/resp"
	"redwire/internal/transport"
)

// Mode is the executor's command-admission state.
type Mode int

const (
	ModeNormal Mode = iota
	ModePubSub
	ModeClosed
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModePubSub:
		return "pubsub"
	case ModeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one asynchronous push delivered while in pub/sub mode.
type Event struct {
	Kind    string // message, pmessage, subscribe, unsubscribe, psubscribe, punsubscribe
	Channel string
	Pattern string
	Payload string
	Count   int64
}

// Dialer establishes a fresh, fully-authenticated connection: dial, TLS,
// AUTH, SELECT, CLIENT SETNAME are all its responsibility. The executor
// calls it once at construction and again on every reconnect.
type Dialer func(ctx context.Context) (*transport.Conn, error)

// Options configures reconnect behavior.
type Options struct {
	// MaxRetryCount bounds the number of reconnect-and-retry attempts made
	// after a transport failure. Zero (the default) disables the
	// reconnect path entirely: a failed exchange is surfaced to the
	// caller immediately as a TransportFailure instead of being retried.
	MaxRetryCount int
	// ReconnectBackoff is the fixed delay between bounded retry attempts.
	ReconnectBackoff time.Duration
}

type submission struct {
	ctx     context.Context
	cmds    [][][]byte // one entry per logical command, each its own token list
	results chan batchResult
}

type batchResult struct {
	replies []resp.Reply
	err     error
}

// Executor owns one connection and the single goroutine that reads and
// writes it. All public methods are safe for concurrent use.
type Executor struct {
	dial Dialer
	opts Options

	submissions chan *submission
	quit        chan struct{}
	closeOnce   sync.Once

	mu       sync.RWMutex
	mode     Mode
	conn     *transport.Conn
	connected bool

	events   chan Event
	subs     map[string]struct{}
	patterns map[string]struct{}
}

// New constructs an Executor and starts its dispatch goroutine. The first
// connection attempt happens synchronously so Connect-time failures surface
// to the caller immediately, matching the teacher's dial-then-handshake
// ordering in internal/repl/slave.go.
func New(ctx context.Context, dial Dialer, opts Options) (*Executor, error) {
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = 1200 * time.Millisecond
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	e := &Executor{
		dial:        dial,
		opts:        opts,
		submissions: make(chan *submission, 64),
		quit:        make(chan struct{}),
		conn:        conn,
		connected:   true,
		subs:        make(map[string]struct{}),
		patterns:    make(map[string]struct{}),
	}
	go e.run()
	return e, nil
}

// IsConnected reports whether the executor currently holds a live
// connection (best-effort: state can change immediately after the read).
func (e *Executor) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected && e.mode != ModeClosed
}

// IsClosed reports whether Close has been called.
func (e *Executor) IsClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode == ModeClosed
}

// Close stops the dispatch goroutine and closes the connection. Idempotent.
func (e *Executor) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.mode = ModeClosed
		conn := e.conn
		e.mu.Unlock()
		close(e.quit)
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// Exec submits a single command and waits for its reply.
func (e *Executor) Exec(ctx context.Context, tokens [][]byte) (resp.Reply, error) {
	replies, err := e.ExecBatch(ctx, [][][]byte{tokens})
	if err != nil {
		return resp.Reply{}, err
	}
	return replies[0], nil
}

// ExecBatch submits a batch of commands to be written together and read
// together — the wire shape a pipeline or transaction needs — and is
// admitted or rejected as a single unit with respect to pub/sub mode.
func (e *Executor) ExecBatch(ctx context.Context, cmds [][][]byte) ([]resp.Reply, error) {
	e.mu.RLock()
	mode := e.mode
	e.mu.RUnlock()
	if mode == ModeClosed {
		return nil, &closedError{}
	}
	if mode == ModePubSub {
		for _, tokens := range cmds {
			if !isPubSubAdmissible(tokens) {
				return nil, &modeError{fmt.Sprintf("command %q not allowed while subscribed", string(tokens[0]))}
			}
		}
	}

	sub := &submission{ctx: ctx, cmds: cmds, results: make(chan batchResult, 1)}

	select {
	case e.submissions <- sub:
	case <-e.quit:
		return nil, &closedError{}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-sub.results:
		return res.replies, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe sends a SUBSCRIBE/PSUBSCRIBE-shaped command, puts the executor
// into pub/sub mode on success, and returns the channel future pushes
// arrive on.
func (e *Executor) Subscribe(ctx context.Context, tokens [][]byte, channels, patterns []string) (<-chan Event, error) {
	sub := &submission{ctx: ctx, cmds: [][][]byte{tokens}, results: make(chan batchResult, 1)}
	select {
	case e.submissions <- sub:
	case <-e.quit:
		return nil, &closedError{}
	}

	e.mu.Lock()
	if e.events == nil {
		e.events = make(chan Event, 64)
	}
	for _, c := range channels {
		e.subs[c] = struct{}{}
	}
	for _, p := range patterns {
		e.patterns[p] = struct{}{}
	}
	e.mode = ModePubSub
	events := e.events
	e.mu.Unlock()

	select {
	case res := <-sub.results:
		if res.err != nil {
			return nil, res.err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return events, nil
}

// Unsubscribe removes channels/patterns from the membership set; once both
// sets are empty the next dispatch loop iteration returns to normal mode.
// Reconnecting while subscribed does NOT restore membership automatically
// — callers must re-subscribe explicitly after a reconnect.
func (e *Executor) Unsubscribe(ctx context.Context, tokens [][]byte, channels, patterns []string) error {
	sub := &submission{ctx: ctx, cmds: [][][]byte{tokens}, results: make(chan batchResult, 1)}
	select {
	case e.submissions <- sub:
	case <-e.quit:
		return &closedError{}
	}

	select {
	case res := <-sub.results:
		if res.err != nil {
			return res.err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	e.mu.Lock()
	// A bare UNSUBSCRIBE/PUNSUBSCRIBE (no names given) means "drop every
	// channel" / "drop every pattern" respectively, same as the server-side
	// semantics of the wire command it sent — clear the whole matching map
	// instead of deleting only the (empty) set the caller passed in.
	switch strings.ToUpper(string(tokens[0])) {
	case "PUNSUBSCRIBE":
		if len(patterns) == 0 {
			e.patterns = make(map[string]struct{})
		} else {
			for _, p := range patterns {
				delete(e.patterns, p)
			}
		}
	default: // UNSUBSCRIBE
		if len(channels) == 0 {
			e.subs = make(map[string]struct{})
		} else {
			for _, c := range channels {
				delete(e.subs, c)
			}
		}
	}
	if len(e.subs) == 0 && len(e.patterns) == 0 {
		e.mode = ModeNormal
	}
	e.mu.Unlock()
	return nil
}

var pubSubCommands = map[string]bool{
	"SUBSCRIBE": true, "UNSUBSCRIBE": true,
	"PSUBSCRIBE": true, "PUNSUBSCRIBE": true,
	"PING": true, "QUIT": true,
}

func isPubSubAdmissible(tokens [][]byte) bool {
	if len(tokens) == 0 {
		return false
	}
	return pubSubCommands[string(tokens[0])]
}

type closedError struct{}

func (e *closedError) Error() string { return "redwire: executor closed" }

// IsClosedError reports whether err is the sentinel returned once the
// executor has been closed.
func IsClosedError(err error) bool {
	var ce *closedError
	return errors.As(err, &ce)
}

type modeError struct{ msg string }

func (e *modeError) Error() string { return e.msg }

// IsModeError reports whether err was raised locally because a command
// isn't admissible in the connection's current mode (e.g. a normal
// command issued while subscribed).
func IsModeError(err error) bool {
	var me *modeError
	return errors.As(err, &me)
}

// run is the single dispatch goroutine: it owns conn and is the only
// goroutine that ever reads or writes it.
func (e *Executor) run() {
	for {
		e.mu.RLock()
		mode := e.mode
		e.mu.RUnlock()
		if mode == ModeClosed {
			return
		}

		if mode == ModePubSub {
			e.runPubSub()
			continue
		}

		select {
		case <-e.quit:
			return
		case sub := <-e.submissions:
			e.serve(sub)
		}
	}
}

// serve writes sub's batch and reads back exactly nCmds replies. A
// transport-level failure is retried exactly once, across a single
// reconnect, only when opts.MaxRetryCount > 0; with the default of zero
// the failure is surfaced to the caller immediately. A protocol failure
// closes the connection before it is surfaced.
func (e *Executor) serve(sub *submission) {
	replies, err := e.exchange(sub)
	if err != nil && isTransportFailure(err) && e.opts.MaxRetryCount > 0 {
		logger.Warnf("executor: exchange failed (%v), reconnecting", err)
		if rerr := e.reconnect(); rerr != nil {
			sub.results <- batchResult{err: rerr}
			return
		}
		replies, err = e.exchange(sub)
	}
	var pf *ProtocolFailure
	if errors.As(err, &pf) {
		e.mu.Lock()
		if e.conn != nil {
			_ = e.conn.Close()
		}
		e.connected = false
		e.mu.Unlock()
	}
	sub.results <- batchResult{replies: replies, err: err}
}

func (e *Executor) exchange(sub *submission) ([]resp.Reply, error) {
	e.mu.RLock()
	conn := e.conn
	e.mu.RUnlock()
	if conn == nil {
		return nil, &TransportFailure{errors.New("no connection")}
	}

	// Write every command in the batch before reading any reply — the
	// write-N-then-read-N shape a pipeline or MULTI/EXEC batch requires.
	for _, tokens := range sub.cmds {
		if err := conn.WriteRequest(tokens); err != nil {
			return nil, &TransportFailure{err}
		}
	}
	if err := conn.Flush(); err != nil {
		return nil, &TransportFailure{err}
	}

	replies := make([]resp.Reply, len(sub.cmds))
	for i := range sub.cmds {
		r, err := conn.ReadReply()
		if err != nil {
			return nil, classifyReadError(err)
		}
		replies[i] = r
	}
	return replies, nil
}

// TransportFailure marks an error as having happened at the socket layer,
// which is what makes it eligible for the single reconnect-and-retry.
type TransportFailure struct{ Err error }

func (e *TransportFailure) Error() string { return fmt.Sprintf("executor: transport failure: %v", e.Err) }
func (e *TransportFailure) Unwrap() error { return e.Err }

func isTransportFailure(err error) bool {
	var tf *TransportFailure
	return errors.As(err, &tf)
}

func classifyReadError(err error) error {
	switch {
	case errors.Is(err, resp.ErrBadLineEnding), errors.Is(err, resp.ErrUnknownPrefix),
		errors.Is(err, resp.ErrInvalidArrayLen), errors.Is(err, resp.ErrInvalidBulkLen),
		errors.Is(err, resp.ErrTooLarge), errors.Is(err, resp.ErrTooDeep):
		return &ProtocolFailure{err}
	default:
		return &TransportFailure{err}
	}
}

// ProtocolFailure marks a RESP framing violation. Unlike TransportFailure
// it is never retried — the stream is no longer trustworthy even after a
// fresh connection, so we surface it straight to the caller.
type ProtocolFailure struct{ Err error }

func (e *ProtocolFailure) Error() string { return fmt.Sprintf("executor: protocol failure: %v", e.Err) }
func (e *ProtocolFailure) Unwrap() error { return e.Err }

// reconnect closes the current socket and redials through e.dial, waiting
// opts.ReconnectBackoff between failed attempts. It does not probe the old
// socket with PING first; every call redials. With MaxRetryCount > 0 it
// gives up after that many failed dials; with zero it keeps redialing
// until a dial succeeds or the executor is closed. The attempt counter is
// local to each call, so every reconnect starts with the full budget.
func (e *Executor) reconnect() error {
	e.mu.Lock()
	if old := e.conn; old != nil {
		_ = old.Close()
	}
	e.connected = false
	e.mu.Unlock()

	attempt := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		conn, err := e.dial(ctx)
		cancel()
		if err == nil {
			e.mu.Lock()
			e.conn = conn
			e.connected = true
			e.mu.Unlock()
			logger.Infof("executor: reconnected after %d attempt(s)", attempt+1)
			return nil
		}

		attempt++
		logger.Warnf("executor: reconnect attempt %d failed: %v", attempt, err)
		if e.opts.MaxRetryCount > 0 && attempt >= e.opts.MaxRetryCount {
			return &TransportFailure{fmt.Errorf("exhausted %d reconnect attempts: %w", attempt, err)}
		}

		select {
		case <-time.After(e.opts.ReconnectBackoff):
		case <-e.quit:
			return &closedError{}
		}
	}
}

// runPubSub reads pushes off the connection and routes them to the events
// channel while still draining the submission queue for (p)subscribe and
// (p)unsubscribe acks, which the server delivers as push-shaped arrays
// indistinguishable on the wire from async messages.
func (e *Executor) runPubSub() {
	e.mu.RLock()
	conn := e.conn
	events := e.events
	e.mu.RUnlock()
	if conn == nil {
		return
	}

	for {
		e.mu.RLock()
		mode := e.mode
		e.mu.RUnlock()
		if mode != ModePubSub {
			return
		}

		select {
		case sub := <-e.submissions:
			// The ack for (p)subscribe/(p)unsubscribe arrives later as an
			// ordinary push (see decodeEvent); this just confirms the
			// write succeeded, it is not the server's ack.
			if err := conn.WriteRequest(sub.cmds[0]); err != nil {
				sub.results <- batchResult{err: &TransportFailure{err}}
				continue
			}
			if err := conn.Flush(); err != nil {
				sub.results <- batchResult{err: &TransportFailure{err}}
				continue
			}
			sub.results <- batchResult{replies: []resp.Reply{{Type: resp.Status, Str: "OK"}}}
			continue
		case <-e.quit:
			return
		default:
		}

		// Bound the read so a quiet channel doesn't starve a newly
		// queued (p)subscribe/(p)unsubscribe submission — poll instead
		// of blocking forever.
		_ = conn.SetDeadline(time.Now().Add(200 * time.Millisecond))
		r, err := conn.ReadReply()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			logger.Warnf("executor: pubsub read failed (%v), reconnecting", err)
			if rerr := e.reconnect(); rerr != nil {
				return
			}
			e.mu.RLock()
			conn = e.conn
			e.mu.RUnlock()
			continue
		}
		_ = conn.SetDeadline(time.Time{})
		ev, ok := decodeEvent(r)
		if ok && events != nil {
			select {
			case events <- ev:
			case <-e.quit:
				return
			}
		}
	}
}

func decodeEvent(r resp.Reply) (Event, bool) {
	if r.Type != resp.Array || len(r.Elems) < 3 {
		return Event{}, false
	}
	kind := r.Elems[0].String()
	switch kind {
	case "message":
		return Event{Kind: kind, Channel: r.Elems[1].String(), Payload: r.Elems[2].String()}, true
	case "pmessage":
		if len(r.Elems) < 4 {
			return Event{}, false
		}
		return Event{Kind: kind, Pattern: r.Elems[1].String(), Channel: r.Elems[2].String(), Payload: r.Elems[3].String()}, true
	case "subscribe", "unsubscribe":
		return Event{Kind: kind, Channel: r.Elems[1].String(), Count: r.Elems[2].Int}, true
	case "psubscribe", "punsubscribe":
		return Event{Kind: kind, Pattern: r.Elems[1].String(), Count: r.Elems[2].Int}, true
	default:
		return Event{}, false
	}
}
