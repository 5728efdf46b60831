package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Stream is one open call connection to the gateway.
type Stream interface {
	// Send writes one JSON-encodable message.
	Send(ctx context.Context, msg any) error
	// Recv blocks for the next gateway message as raw JSON. It returns io.EOF
	// when the gateway closes the call cleanly.
	Recv() (json.RawMessage, error)
	Close() error
}

// Dialer opens gateway streams. Implementations carry the credential.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(context.Context) (Stream, error)

func (f DialerFunc) Dial(ctx context.Context) (Stream, error) {
	return f(ctx)
}

const eventBuffer = 32

// call tracks one start/stop cycle on a dedicated stream.
type call struct {
	stream  Stream
	started bool
	ended   bool
	stopped bool
}

// Session is the call-session handle for one screen activation. Events are
// delivered in gateway order on the channel returned by Events.
type Session struct {
	dialer Dialer
	logger *slog.Logger

	events  chan Event
	closing chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	current *call
	closed  bool
}

// NewSession constructs a handle that dials through dialer.
func NewSession(dialer Dialer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		dialer:  dialer,
		logger:  logger,
		events:  make(chan Event, eventBuffer),
		closing: make(chan struct{}),
	}
}

// Events returns the subscription channel. It is closed by Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Active reports whether a call has started and not yet ended.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.started && !s.current.ended
}

// Start dials the gateway and asks it to begin a call with assistant.
// Call progress arrives as events; a nil return only means the request was
// accepted for delivery.
func (s *Session) Start(ctx context.Context, assistant AssistantConfig) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.current != nil {
		s.mu.Unlock()
		return ErrCallInProgress
	}
	if s.dialer == nil {
		s.mu.Unlock()
		return &ServiceError{Category: CategoryOther, Message: "voice gateway is not configured"}
	}
	s.mu.Unlock()

	stream, err := s.dialer.Dial(ctx)
	if err != nil {
		return Wrap(err)
	}
	if err := stream.Send(ctx, outbound{Type: wireStart, Assistant: &assistant}); err != nil {
		_ = stream.Close()
		return Wrap(err)
	}

	s.mu.Lock()
	if s.closed || s.current != nil {
		s.mu.Unlock()
		_ = stream.Close()
		if s.closed {
			return ErrClosed
		}
		return ErrCallInProgress
	}
	c := &call{stream: stream}
	s.current = c
	s.wg.Add(1)
	s.mu.Unlock()

	go s.recvLoop(c)
	return nil
}

// Stop asks the gateway to end the current call. It is a no-op when no call
// stream is open. The call-ended event follows asynchronously.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.current
	if c == nil || c.stopped {
		s.mu.Unlock()
		return nil
	}
	c.stopped = true
	s.mu.Unlock()

	if err := c.stream.Send(ctx, outbound{Type: wireStop}); err != nil {
		s.logger.Warn("voice stop send failed; closing stream", "error", err.Error())
		_ = c.stream.Close()
		return Wrap(err)
	}
	return nil
}

// Close tears down any open call and ends the event subscription.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closing)
	c := s.current
	s.mu.Unlock()

	var err error
	if c != nil {
		err = c.stream.Close()
	}
	s.wg.Wait()
	close(s.events)
	return err
}

func (s *Session) recvLoop(c *call) {
	defer s.wg.Done()
	defer s.finish(c)

	for {
		data, err := c.stream.Recv()
		if err != nil {
			s.streamEnded(c, err)
			return
		}

		ev, ok, err := decodeEvent(data)
		if err != nil {
			s.logger.Warn("voice gateway message ignored", "error", err.Error())
			continue
		}
		if !ok {
			s.logger.Debug("voice gateway message without session meaning", "payload_bytes", len(data))
			continue
		}

		s.mu.Lock()
		switch ev.Kind {
		case EventCallStarted:
			c.started = true
		case EventCallEnded:
			c.ended = true
		}
		s.mu.Unlock()

		if !s.emit(ev) {
			return
		}
		if ev.Kind == EventCallEnded {
			return
		}
	}
}

// streamEnded makes sure the orchestrator always learns how the call ended.
func (s *Session) streamEnded(c *call, err error) {
	s.mu.Lock()
	started, ended, stopped, closed := c.started, c.ended, c.stopped, s.closed
	c.ended = true
	s.mu.Unlock()

	if closed || ended {
		return
	}

	clean := errors.Is(err, io.EOF)
	if !clean && !stopped {
		s.logger.Warn("voice stream failed", "error", err.Error(), "call_started", started)
	}

	if !started {
		failure := err
		if clean {
			failure = errors.New("gateway closed the call before it started")
		}
		s.emit(Event{Kind: EventCallFailed, Err: Wrap(failure)})
		return
	}
	s.emit(Event{Kind: EventCallEnded, Synthetic: true})
}

func (s *Session) finish(c *call) {
	_ = c.stream.Close()
	s.mu.Lock()
	if s.current == c {
		s.current = nil
	}
	s.mu.Unlock()
}

func (s *Session) emit(ev Event) bool {
	select {
	case <-s.closing:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.closing:
		return false
	}
}
