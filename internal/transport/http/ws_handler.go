package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limit exceeded")

// WSHandler serves a per-player websocket that accepts join/answer commands
// and pushes the player's game whenever it changes.
type WSHandler struct {
	service  *app.GameService
	log      *zap.Logger
	upgrader websocket.Upgrader

	// per-connection inbound message budget
	msgRate  rate.Limit
	msgBurst int
}

func NewWSHandler(service *app.GameService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		msgRate:  rate.Limit(20),
		msgBurst: 40,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// wsConn tracks the game feed a connection follows. follow is only called from
// the read loop. done is closed when the writer stops draining send.
type wsConn struct {
	feed   *app.Feed
	send   chan outboundMessage[any]
	closed chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	gameID string
	cancel func()
}

func (c *wsConn) follow(gameID string) {
	if gameID == c.gameID {
		return
	}
	c.unfollow()
	updates, cancel := c.feed.Subscribe(gameID)
	c.gameID, c.cancel = gameID, cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case c.send <- outboundMessage[any]{Type: "game", Payload: view}:
				case <-c.closed:
					return
				case <-c.done:
					return
				}
			case <-c.closed:
				return
			case <-c.done:
				return
			}
		}
	}()
}

// push queues msg for the writer and reports false once the writer is gone.
func (c *wsConn) push(msg outboundMessage[any]) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *wsConn) unfollow() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gameID = ""
}

// ServeWS upgrades HTTP requests to websockets and wires them into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &wsConn{
		feed:   h.service.Feed(),
		send:   make(chan outboundMessage[any], 16),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("player", playerID), zap.Error(err))
				return
			}
		}
	}()

	ctx := r.Context()
	limiter := rate.NewLimiter(h.msgRate, h.msgBurst)
	sendError := func(err error) bool {
		return c.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}
	sendGame := func(view domain.GameView) bool {
		c.follow(view.ID)
		return c.push(outboundMessage[any]{Type: "game", Payload: view})
	}

	alive := true
	if view, err := h.service.GetCurrentForPlayer(ctx, playerID); err == nil {
		alive = sendGame(view)
	}

	for alive {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			alive = sendError(errRateLimited)
			continue
		}
		switch inbound.Type {
		case "join":
			view, err := h.service.JoinOrCreate(ctx, playerID)
			if err != nil {
				alive = sendError(err)
				continue
			}
			alive = sendGame(view)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				alive = sendError(errors.New("invalid answer payload"))
				continue
			}
			result, err := h.service.SubmitAnswer(ctx, playerID, payload.Answer)
			if err != nil {
				alive = sendError(err)
				continue
			}
			alive = c.push(outboundMessage[any]{Type: "answerResult", Payload: result})
		case "game":
			view, err := h.service.GetCurrentForPlayer(ctx, playerID)
			if err != nil {
				alive = sendError(err)
				continue
			}
			alive = sendGame(view)
		default:
			alive = sendError(errors.New("unsupported message type"))
		}
	}

	close(c.closed)
	c.unfollow()
	c.wg.Wait()
	close(c.send)
	<-c.done
}
