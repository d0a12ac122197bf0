package redwire

import (
	"context"
	"errors"
	"sync"

	"redwire/internal/executor"
	"redwire/internal/resp"
)

// Event is an asynchronous pub/sub notification: a subscribe/unsubscribe
// acknowledgment or an incoming message/pmessage push.
type Event = executor.Event

var errSessionClosed = errors.New("pub/sub session closed")

// PubSubSession holds a client in pub/sub mode. While a session is open,
// the underlying connection only accepts SUBSCRIBE, UNSUBSCRIBE,
// PSUBSCRIBE, PUNSUBSCRIBE, PING and QUIT — any other command on the same
// Client fails with ModeError until every channel and pattern has been
// unsubscribed.
type PubSubSession struct {
	client *Client
	events <-chan Event

	mu       sync.Mutex
	channels map[string]struct{}
	patterns map[string]struct{}
}

// Subscribe puts client into pub/sub mode (or extends an existing
// session) listening on the given channels, and returns a session for
// reading the resulting events.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*PubSubSession, error) {
	tokens := resp.Args("SUBSCRIBE", toAnySlice(channels)...)
	events, err := c.exec.Subscribe(ctx, tokens, channels, nil)
	if err != nil {
		return nil, translateExecError(err)
	}
	s := newPubSubSession(c, events)
	s.track(channels, nil)
	return s, nil
}

// PSubscribe puts client into pub/sub mode listening on the given glob
// patterns, and returns a session for reading the resulting events.
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) (*PubSubSession, error) {
	tokens := resp.Args("PSUBSCRIBE", toAnySlice(patterns)...)
	events, err := c.exec.Subscribe(ctx, tokens, nil, patterns)
	if err != nil {
		return nil, translateExecError(err)
	}
	s := newPubSubSession(c, events)
	s.track(nil, patterns)
	return s, nil
}

func newPubSubSession(c *Client, events <-chan Event) *PubSubSession {
	return &PubSubSession{
		client:   c,
		events:   events,
		channels: make(map[string]struct{}),
		patterns: make(map[string]struct{}),
	}
}

func (s *PubSubSession) track(channels, patterns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range channels {
		s.channels[c] = struct{}{}
	}
	for _, p := range patterns {
		s.patterns[p] = struct{}{}
	}
}

func (s *PubSubSession) untrack(channels, patterns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range channels {
		delete(s.channels, c)
	}
	for _, p := range patterns {
		delete(s.patterns, p)
	}
}

// Subscribe adds more channels to an already-open session.
func (s *PubSubSession) Subscribe(ctx context.Context, channels ...string) error {
	tokens := resp.Args("SUBSCRIBE", toAnySlice(channels)...)
	_, err := s.client.exec.Subscribe(ctx, tokens, channels, nil)
	if err != nil {
		return translateExecError(err)
	}
	s.track(channels, nil)
	return nil
}

// PSubscribe adds more patterns to an already-open session.
func (s *PubSubSession) PSubscribe(ctx context.Context, patterns ...string) error {
	tokens := resp.Args("PSUBSCRIBE", toAnySlice(patterns)...)
	_, err := s.client.exec.Subscribe(ctx, tokens, nil, patterns)
	if err != nil {
		return translateExecError(err)
	}
	s.track(nil, patterns)
	return nil
}

// Unsubscribe drops channels from the session. Once every channel and
// pattern has been unsubscribed, the connection leaves pub/sub mode and
// ordinary commands become admissible again on client.
func (s *PubSubSession) Unsubscribe(ctx context.Context, channels ...string) error {
	tokens := resp.Args("UNSUBSCRIBE", toAnySlice(channels)...)
	err := s.client.exec.Unsubscribe(ctx, tokens, channels, nil)
	if err != nil {
		return translateExecError(err)
	}
	s.untrack(channels, nil)
	return nil
}

// PUnsubscribe drops patterns from the session.
func (s *PubSubSession) PUnsubscribe(ctx context.Context, patterns ...string) error {
	tokens := resp.Args("PUNSUBSCRIBE", toAnySlice(patterns)...)
	err := s.client.exec.Unsubscribe(ctx, tokens, nil, patterns)
	if err != nil {
		return translateExecError(err)
	}
	s.untrack(nil, patterns)
	return nil
}

// NextEvent blocks until the next push arrives or ctx is done. The event
// channel is never closed, so closing the Client does not end a pending
// NextEvent.
func (s *PubSubSession) NextEvent(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, &TransportError{Err: errSessionClosed}
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close unsubscribes from everything this session holds, returning the
// client to normal mode. The client itself remains open and usable.
func (s *PubSubSession) Close(ctx context.Context) error {
	s.mu.Lock()
	channels := make([]string, 0, len(s.channels))
	for c := range s.channels {
		channels = append(channels, c)
	}
	patterns := make([]string, 0, len(s.patterns))
	for p := range s.patterns {
		patterns = append(patterns, p)
	}
	s.mu.Unlock()

	if len(channels) > 0 {
		if err := s.Unsubscribe(ctx, channels...); err != nil {
			return err
		}
	}
	if len(patterns) > 0 {
		if err := s.PUnsubscribe(ctx, patterns...); err != nil {
			return err
		}
	}
	return nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
