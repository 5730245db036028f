package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/phrazzld/bubbletasks/internal/events"
)

// maxFrameBytes bounds one event frame; tasks may carry inline icons.
const maxFrameBytes = 8 << 20

// Stream receives task change events pushed by the server.
type Stream struct {
	conn *websocket.Conn
}

// Subscribe opens the task change stream.
func (c *Client) Subscribe(ctx context.Context) (*Stream, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/tasks/stream"

	// The stream outlives any request timeout; bound only the handshake.
	hc := *c.httpClient
	dialCtx := ctx
	if hc.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, hc.Timeout)
		defer cancel()
	}
	hc.Timeout = 0

	conn, _, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{
		HTTPClient: &hc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open task stream: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)
	return &Stream{conn: conn}, nil
}

// Next blocks until the next event arrives, ctx is done, or the stream
// closes.
func (s *Stream) Next(ctx context.Context) (*events.TaskEvent, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageText {
			continue
		}
		var event events.TaskEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to decode task event: %w", err)
		}
		return &event, nil
	}
}

// Follow applies every event to board until ctx is done or the stream fails.
func (s *Stream) Follow(ctx context.Context, board *Board) error {
	for {
		event, err := s.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		board.ApplyEvent(event)
	}
}

// Close closes the stream.
func (s *Stream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
