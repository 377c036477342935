package api

import (
	"net/http"
	"time"

	"omniscient/internal/usecase"
	xlogger "omniscient/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	livePushInterval = 5 * time.Second
	liveSignalLimit  = 10
	liveWriteTimeout = 10 * time.Second
)

// LiveHandler streams the market pulse and recent signals over a websocket.
type LiveHandler struct {
	logger   *xlogger.Logger
	scan     *usecase.MarketScanUseCase
	feed     *usecase.SignalFeed
	upgrader websocket.Upgrader
}

func NewLiveHandler(logger *xlogger.Logger, scan *usecase.MarketScanUseCase, feed *usecase.SignalFeed) *LiveHandler {
	return &LiveHandler{
		logger: logger,
		scan:   scan,
		feed:   feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *LiveHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ws/live", h.Live)
}

type livePayload struct {
	Type    string      `json:"type"`
	Pulse   interface{} `json:"pulse"`
	Signals interface{} `json:"signals"`
	SentAt  string      `json:"sent_at"`
}

// Live pushes a pulse frame immediately on connect, then one per interval
// until the client goes away.
func (h *LiveHandler) Live(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return err
	}
	defer conn.Close()

	// Drain incoming frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePushInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		if err := h.push(conn); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-ticker.C:
		}
	}
}

func (h *LiveHandler) push(conn *websocket.Conn) error {
	frame := livePayload{
		Type:    "pulse",
		Pulse:   h.scan.Pulse(),
		Signals: h.feed.Recent(liveSignalLimit),
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}
