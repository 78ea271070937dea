package bragerone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/brager-bridge/internal/infrastructure/logging"
)

// Stream connection tuning.
const (
	// streamHandshakeTimeout is the maximum time for the websocket upgrade.
	streamHandshakeTimeout = 10 * time.Second

	// streamReadTimeout is the read deadline; the server pings well inside it.
	streamReadTimeout = 90 * time.Second

	// streamWriteTimeout is the deadline for control and subscribe writes.
	streamWriteTimeout = 10 * time.Second

	// reconnectInitialDelay is the first backoff step after a dropped
	// connection; each failure doubles it up to reconnectMaxDelay.
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 60 * time.Second

	// updateBufferSize bounds the update channel. When full, sends block
	// the read loop so the stream applies backpressure instead of
	// dropping updates.
	updateBufferSize = 256
)

// TokenSource supplies a current access token for the stream handshake.
// Implemented by *Client.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Stream is the live parameter event feed.
//
// It maintains a websocket connection to the vendor event endpoint,
// re-subscribing and replaying the subscription after every reconnect,
// and delivers decoded ParamUpdate events on Updates().
//
// Thread Safety:
//   - Start and Close are safe to call from any goroutine.
//   - Updates() is a single-consumer channel.
type Stream struct {
	url      string
	objectID int
	modules  []string
	tokens   TokenSource
	logger   *logging.Logger

	updates chan ParamUpdate

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// streamFrame is one inbound websocket message.
type streamFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// subscribeFrame is the outbound subscription request sent after connect.
type subscribeFrame struct {
	Event    string   `json:"event"`
	ObjectID int      `json:"objectId"`
	Modules  []string `json:"modules,omitempty"`
}

// NewStream creates an event stream for one object's modules.
//
// Parameters:
//   - wsURL: Websocket endpoint (config bragerone.ws_url)
//   - objectID: Installation to subscribe to
//   - modules: Optional devid filter, nil subscribes to all modules
//   - tokens: Access token source (the API client)
//   - logger: Component logger (may be nil)
func NewStream(wsURL string, objectID int, modules []string, tokens TokenSource, logger *logging.Logger) *Stream {
	return &Stream{
		url:      wsURL,
		objectID: objectID,
		modules:  modules,
		tokens:   tokens,
		logger:   logger,
		updates:  make(chan ParamUpdate, updateBufferSize),
	}
}

// Updates returns the channel live parameter updates are delivered on.
// The channel is closed when the stream shuts down.
func (s *Stream) Updates() <-chan ParamUpdate {
	return s.updates
}

// Start launches the connection loop. It returns immediately; connection
// failures are retried with exponential backoff until ctx is cancelled or
// Close is called.
//
// Returns:
//   - error: ErrStreamClosed if the stream was already started or closed
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return ErrStreamClosed
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
	return nil
}

// Close stops the connection loop and closes the update channel.
// Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	} else {
		close(s.updates)
	}
	return nil
}

// run is the reconnect loop. One iteration is one connection lifetime.
func (s *Stream) run(ctx context.Context) {
	defer close(s.updates)
	defer close(s.done)

	delay := reconnectInitialDelay
	for {
		if ctx.Err() != nil {
			return
		}

		connectedAt := time.Now()
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		// A connection that held for a while was healthy; restart the
		// backoff ladder instead of compounding old failures.
		if time.Since(connectedAt) > reconnectMaxDelay {
			delay = reconnectInitialDelay
		}

		if s.logger != nil {
			s.logger.Warn("event stream disconnected, reconnecting",
				"error", err,
				"retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// connectAndRead dials, subscribes, and pumps frames until the connection
// drops or ctx is cancelled.
func (s *Stream) connectAndRead(ctx context.Context) error {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("stream auth: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: streamHandshakeTimeout,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: dial %s: status %d: %w", ErrRequestFailed, s.url, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: dial %s: %w", ErrRequestFailed, s.url, err)
	}
	defer conn.Close()

	// Close the socket when ctx is cancelled so ReadMessage unblocks.
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readerDone:
		}
	}()

	if err := s.subscribe(conn); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("event stream connected",
			"object_id", s.objectID,
			"modules", len(s.modules))
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			return fmt.Errorf("stream deadline: %w", err)
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("stream read: %w", err)
		}
		s.handleFrame(ctx, payload)
	}
}

// subscribe sends the subscription request for this stream's object.
func (s *Stream) subscribe(conn *websocket.Conn) error {
	frame := subscribeFrame{
		Event:    "modules:subscribe",
		ObjectID: s.objectID,
		Modules:  s.modules,
	}
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return fmt.Errorf("stream deadline: %w", err)
	}
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("stream subscribe: %w", err)
	}
	return nil
}

// handleFrame decodes one inbound frame and forwards parameter updates.
// Unknown events are ignored so vendor-side additions stay harmless.
func (s *Stream) handleFrame(ctx context.Context, payload []byte) {
	var frame streamFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		if s.logger != nil {
			s.logger.Warn("undecodable stream frame", "error", err)
		}
		return
	}
	if frame.Event != "params:update" {
		return
	}

	var update ParamUpdate
	if err := json.Unmarshal(frame.Data, &update); err != nil {
		if s.logger != nil {
			s.logger.Warn("undecodable param update", "error", err)
		}
		return
	}
	update.Source = "ws"

	select {
	case s.updates <- update:
	case <-ctx.Done():
	}
}
