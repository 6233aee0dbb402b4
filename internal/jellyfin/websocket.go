// JellyWatch - Jellyfin Monitoring Dashboard
// Copyright 2026 JellyWatch contributors
// SPDX-License-Identifier: GPL-3.0-or-later

/*
websocket.go - Realtime transport for Jellyfin session notifications

Maintains a websocket connection to /socket with bounded fixed-delay
reconnects and an application-level keepalive. Received frames are decoded
and handed to the message handler; the receive loop never dies on a
malformed payload.
*/

package jellyfin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/jellywatch/jellywatch/internal/config"
	"github.com/jellywatch/jellywatch/internal/logging"
	"github.com/jellywatch/jellywatch/internal/metrics"
	"github.com/jellywatch/jellywatch/internal/models"
)

const (
	// keepaliveInterval is how long the transport waits for a pong before
	// counting a keepalive failure and re-sending the subscribe message.
	keepaliveInterval = 30 * time.Second

	// sessionsStartData subscribes to session updates at 0ms initial delay
	// and 1000ms intervals.
	sessionsStartData = "0,1000"

	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// ErrTransportGaveUp is returned from Run when the reconnect budget or the
// keepalive failure budget is exhausted. The transport will not retry on its
// own afterwards.
var ErrTransportGaveUp = errors.New("websocket transport gave up")

// MessageHandler consumes decoded websocket messages. Implementations must
// not let a panic escape; the dispatcher provides that boundary.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *models.JellyfinWebSocketMessage)
}

// WebSocket is the realtime transport. One Run call covers one full
// connection lifecycle: initial connect, receive loop, bounded reconnects,
// and the terminal disconnect callback.
type WebSocket struct {
	cfg     config.JellyfinConfig
	api     API
	handler MessageHandler

	dialer *websocket.Dialer

	// keepaliveEvery is the pong deadline between pings.
	keepaliveEvery time.Duration

	connMu sync.Mutex
	conn   *websocket.Conn

	// pongCh belongs to the current connection and is replaced on every
	// connect, so a stale keepalive actor never consumes a fresh
	// connection's pong. Guarded by connMu.
	pongCh chan struct{}

	state connState

	// shutdownFlag is set before the force-close so the receive loop can
	// distinguish an orderly stop from a dropped connection.
	shutdownFlag atomic.Bool

	// keepaliveExhausted marks a forced close caused by missed pongs; the
	// receive loop must not reconnect after it.
	keepaliveExhausted atomic.Bool

	mu         sync.Mutex
	running    bool
	stopChan   chan struct{}
	stopClosed bool
	runDone    chan struct{}

	wg sync.WaitGroup

	onConnect    func()
	onDisconnect func()
}

// NewWebSocket builds the transport. handler receives every decoded frame.
func NewWebSocket(cfg config.JellyfinConfig, api API, handler MessageHandler) *WebSocket {
	return &WebSocket{
		cfg:     cfg,
		api:     api,
		handler: handler,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		keepaliveEvery: keepaliveInterval,
		stopChan:       make(chan struct{}),
	}
}

// SetCallbacks registers the connect/disconnect hooks. onDisconnect fires
// only on a terminal disconnect, never during an orderly shutdown.
func (w *WebSocket) SetCallbacks(onConnect, onDisconnect func()) {
	w.onConnect = onConnect
	w.onDisconnect = onDisconnect
}

// State returns a snapshot of the connection state.
func (w *WebSocket) State() ConnectionState {
	return w.state.Snapshot()
}

// Start launches the transport in the background. Use Run directly when the
// transport is driven by a supervisor.
func (w *WebSocket) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("websocket transport already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.stopClosed = false
	w.shutdownFlag.Store(false)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Msg("Websocket transport exited")
		}
	}()
	return nil
}

// Stop shuts the transport down. It works the same whether the transport was
// launched with Start or driven through Run directly: the shutdown flag is
// set before the force-close, and Stop returns only after any active run loop
// has exited, so no further connect can happen after it returns.
func (w *WebSocket) Stop() {
	w.shutdownFlag.Store(true)

	w.mu.Lock()
	w.running = false
	if !w.stopClosed {
		w.stopClosed = true
		close(w.stopChan)
	}
	runDone := w.runDone
	w.mu.Unlock()

	w.closeConnection()

	if runDone != nil {
		<-runDone
	}
	w.wg.Wait()
}

// Run executes one connection lifecycle and blocks until shutdown, context
// cancellation, or the transport gives up.
func (w *WebSocket) Run(ctx context.Context) error {
	runDone := make(chan struct{})
	defer close(runDone)

	w.mu.Lock()
	stop := w.stopChan
	w.runDone = runDone
	w.mu.Unlock()

	w.keepaliveExhausted.Store(false)

	go func() {
		select {
		case <-ctx.Done():
			w.shutdownFlag.Store(true)
			w.closeConnection()
		case <-stop:
		case <-runDone:
		}
	}()

	if err := w.connect(); err != nil {
		logging.Error().Err(err).Msg("Websocket connection failed")
	} else {
		w.handleConnect(runDone)
	}

	err := w.receiveLoop(ctx, stop, runDone)

	if w.shutdownFlag.Load() {
		logging.Debug().Msg("Websocket transport leaving receive loop")
		return ctx.Err()
	}

	w.handleDisconnect()
	return err
}

// connect dials the websocket endpoint with the MediaBrowser authorization
// header and marks the transport connected on success.
func (w *WebSocket) connect() error {
	wsURL, err := w.api.GetWebSocketURL()
	if err != nil {
		return fmt.Errorf("failed to build websocket URL: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", w.api.AuthorizationHeader())

	logging.Info().Str("url", redactURL(wsURL)).Msg("Opening websocket")
	conn, resp, err := w.dialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	w.connMu.Lock()
	w.conn = conn
	w.pongCh = pong
	w.connMu.Unlock()

	w.state.setConnected(true)
	metrics.SetWSConnected(true)
	logging.Info().Msg("Websocket connection successful")
	return nil
}

// receiveLoop reads one frame per iteration until shutdown, reconnect
// exhaustion, or a fatal error.
func (w *WebSocket) receiveLoop(ctx context.Context, stop, runDone chan struct{}) error {
	reconnects := 0

	for w.state.Snapshot().Connected {
		data, err := w.readFrame()
		if err == nil {
			// successfully received data, reset the reconnect counter
			reconnects = 0
			w.state.resetReconnectCount()
			w.processFrame(ctx, data)
			continue
		}

		w.markDisconnected()

		if w.shutdownFlag.Load() {
			return nil
		}
		if w.keepaliveExhausted.Load() {
			return ErrTransportGaveUp
		}

		if !isClosedError(err) {
			logging.Error().Err(err).Msg("Websocket receive failed")
			w.closeConnection()
			return err
		}

		if reconnects == 0 {
			logging.Warn().Msg("Websocket connection has closed")
		}

		for reconnects < w.cfg.ConnectionAttempts {
			if w.shutdownFlag.Load() {
				return nil
			}

			reconnects++
			w.state.incReconnectCount()
			metrics.WSReconnects.Inc()

			// Fixed delay between attempts, the first is immediate.
			if reconnects > 1 {
				select {
				case <-stop:
					return nil
				case <-time.After(w.cfg.ConnectionTimeout):
				}
			}

			logging.Warn().Int("attempt", reconnects).Msg("Websocket reconnection attempt")
			if err := w.connect(); err != nil {
				logging.Error().Err(err).Msg("Websocket reconnection failed")
				continue
			}
			w.handleConnect(runDone)
			break
		}

		if !w.state.Snapshot().Connected {
			logging.Warn().Int("attempts", reconnects).Msg("Websocket reconnect budget exhausted")
			return ErrTransportGaveUp
		}
	}

	return nil
}

func (w *WebSocket) readFrame() ([]byte, error) {
	w.connMu.Lock()
	conn := w.conn
	w.connMu.Unlock()
	if conn == nil {
		return nil, websocket.ErrCloseSent
	}

	_, data, err := conn.ReadMessage()
	return data, err
}

// processFrame decodes and hands off one frame. Malformed payloads are
// logged and skipped, the loop always continues.
func (w *WebSocket) processFrame(ctx context.Context, data []byte) {
	if len(data) == 0 {
		return
	}

	var msg models.JellyfinWebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("Error decoding message from websocket")
		return
	}
	if msg.MessageType == "" {
		return
	}

	metrics.RecordEvent(msg.MessageType)

	if msg.MessageType == models.WSMessageForceKeepAlive {
		if err := w.sendMessage(models.WSMessageKeepAlive, ""); err != nil {
			logging.Warn().Err(err).Msg("Failed to send KeepAlive response")
		}
	}

	if w.handler != nil {
		w.handler.HandleMessage(ctx, &msg)
	}
}

// handleConnect performs post-connect work: server-up bookkeeping, the
// sessions subscription, and arming the keepalive.
func (w *WebSocket) handleConnect(runDone chan struct{}) {
	prev := w.state.Snapshot().ServerUp
	w.state.setServerUp(ServerStatusUp)

	if prev == ServerStatusDown {
		logging.Info().Msg("The Jellyfin server is back up")
	}

	if err := w.sendMessage(models.WSMessageSessions+"Start", sessionsStartData); err != nil {
		logging.Warn().Err(err).Msg("Failed to subscribe to session updates")
	}

	if w.cfg.KeepalivePingPong {
		w.startKeepalive(runDone)
	}

	if w.onConnect != nil {
		w.onConnect()
	}
}

// handleDisconnect runs once per Run on terminal disconnect.
func (w *WebSocket) handleDisconnect() {
	prev := w.state.Snapshot().ServerUp
	w.state.setServerUp(ServerStatusDown)

	if prev != ServerStatusDown {
		logging.Warn().Msg("Unable to get a response from the server, Jellyfin server is down")
	}

	if w.onDisconnect != nil {
		w.onDisconnect()
	}
}

// startKeepalive runs the keepalive actor for the current connection. All
// pong bookkeeping happens on this one goroutine.
func (w *WebSocket) startKeepalive(runDone chan struct{}) {
	w.connMu.Lock()
	conn := w.conn
	pong := w.pongCh
	w.connMu.Unlock()
	if conn == nil {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		failures := 0
		timer := time.NewTimer(w.keepaliveEvery)
		defer timer.Stop()

		w.sendPing(conn)

		for {
			select {
			case <-runDone:
				return

			case <-pong:
				if !w.isCurrentConn(conn) {
					return
				}
				failures = 0
				w.state.setPendingPong(false)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.keepaliveEvery)

			case <-timer.C:
				if !w.isCurrentConn(conn) {
					return
				}

				failures++
				metrics.WSKeepaliveFailures.Inc()
				w.state.setPendingPong(true)
				logging.Warn().Int("attempt", failures).Msg("Failed to receive pong from websocket")

				if failures >= w.cfg.ConnectionAttempts {
					w.keepaliveExhausted.Store(true)
					logging.Warn().Msg("Keepalive failure budget exhausted, closing websocket")
					w.closeConnection()
					return
				}

				if err := w.sendMessage(models.WSMessageSessions+"Start", sessionsStartData); err != nil {
					logging.Warn().Err(err).Msg("Failed to send keepalive message")
				}
				w.sendPing(conn)
				timer.Reset(w.keepaliveEvery)
			}
		}
	}()
}

func (w *WebSocket) sendPing(conn *websocket.Conn) {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn != conn || conn == nil {
		return
	}
	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
		logging.Debug().Err(err).Msg("Failed to send ping frame")
	}
}

func (w *WebSocket) isCurrentConn(conn *websocket.Conn) bool {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	return w.conn == conn
}

func (w *WebSocket) sendMessage(messageType, data string) error {
	payload, err := json.Marshal(models.JellyfinOutboundMessage{
		MessageType: messageType,
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", messageType, err)
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return errors.New("websocket not connected")
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *WebSocket) markDisconnected() {
	w.state.setConnected(false)
	metrics.SetWSConnected(false)
}

// closeConnection force-closes the socket after attempting a close frame.
func (w *WebSocket) closeConnection() {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn == nil {
		return
	}

	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	_ = w.conn.Close()
	w.conn = nil

	w.state.setConnected(false)
	metrics.SetWSConnected(false)
}

func isClosedError(err error) bool {
	if err == nil {
		return false
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
		return true
	}
	// Force-closed and dead TCP connections surface as generic read errors.
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "EOF")
}

func redactURL(wsURL string) string {
	if idx := strings.Index(wsURL, "api_key="); idx != -1 {
		return wsURL[:idx] + "api_key=***"
	}
	return wsURL
}
