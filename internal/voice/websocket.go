package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer opens gateway calls over a WebSocket carrying JSON text frames.
type WebSocketDialer struct {
	URL              string
	Credential       string
	HandshakeTimeout time.Duration
}

// Dial performs the handshake with the credential in the Authorization header.
func (d WebSocketDialer) Dial(ctx context.Context) (Stream, error) {
	url := strings.TrimSpace(d.URL)
	if url == "" {
		return nil, errors.New("voice gateway url is empty")
	}
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	header := http.Header{}
	if cred := strings.TrimSpace(d.Credential); cred != "" {
		header.Set("Authorization", "Bearer "+cred)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, handshakeError(resp, err)
		}
		return nil, fmt.Errorf("dial voice gateway %q: %w", url, err)
	}
	return &wsStream{conn: conn}, nil
}

func handshakeError(resp *http.Response, err error) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &ServiceError{Category: categoryForAuth(message), Message: message, Err: err}
	case http.StatusForbidden:
		return &ServiceError{Category: CategoryPermission, Message: message, Err: err}
	default:
		return &ServiceError{Category: ClassifyMessage(message), Message: message, Err: err}
	}
}

type wsStream struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *wsStream) Send(ctx context.Context, msg any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer func() { _ = s.conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send gateway message: %w", err)
	}
	return nil
}

func (s *wsStream) Recv() (json.RawMessage, error) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read gateway message: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
