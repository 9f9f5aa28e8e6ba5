package webchat

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tutorhub/tutor-gateway/internal/channel"
	"github.com/tutorhub/tutor-gateway/internal/logging"
)

// Adapter serves a websocket endpoint speaking JSON frames. Each connected
// browser is one user; the chat id equals the user id. Media arrives base64
// encoded inside the frame.
type Adapter struct {
	port     int
	incoming chan *channel.Event
	upgrader websocket.Upgrader
	clients  map[string]*client
	mu       sync.RWMutex
	server   *http.Server
	stopCh   chan struct{}
	wg       sync.WaitGroup
	nextID   atomic.Int64
	logger   *slog.Logger
}

// client wraps a connection with a write lock; gorilla conns do not allow
// concurrent writers.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Frame is the wire format in both directions.
type Frame struct {
	Type      string       `json:"type"`
	MessageID string       `json:"message_id,omitempty"`
	Content   string       `json:"content,omitempty"`
	Data      string       `json:"data,omitempty"` // base64 media payload
	Action    string       `json:"action,omitempty"`
	Payload   string       `json:"payload,omitempty"`
	Buttons   [][]WSButton `json:"buttons,omitempty"`
}

type WSButton struct {
	Label   string `json:"label"`
	Action  string `json:"action"`
	Payload string `json:"payload,omitempty"`
}

func New(port int) *Adapter {
	return &Adapter{
		port:     port,
		incoming: make(chan *channel.Event, 100),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		stopCh:  make(chan struct{}),
		logger:  logging.WithComponent("webchat"),
	}
}

func (w *Adapter) Name() string {
	return "webchat"
}

func (w *Adapter) IsEnabled() bool {
	return w.port > 0
}

func (w *Adapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.wsHandler)
	w.server = &http.Server{Addr: ":" + strconv.Itoa(w.port), Handler: mux}

	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Error("webchat server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		w.server.Shutdown(context.Background())
	}()
	return nil
}

// Stop disconnects every client so their read loops end, waits for in-flight
// deliveries and only then closes the incoming channel.
func (w *Adapter) Stop() error {
	close(w.stopCh)
	w.mu.Lock()
	for _, c := range w.clients {
		c.conn.Close()
	}
	w.mu.Unlock()
	if w.server != nil {
		w.server.Shutdown(context.Background())
	}
	w.wg.Wait()
	close(w.incoming)
	return nil
}

// deliver hands an event to the consumer unless shutdown has begun
func (w *Adapter) deliver(ev *channel.Event) {
	select {
	case w.incoming <- ev:
	case <-w.stopCh:
	}
}

func (w *Adapter) Incoming() <-chan *channel.Event {
	return w.incoming
}

func (w *Adapter) SendMessage(chatID string, reply *channel.Reply) (string, error) {
	c := w.lookup(chatID)
	if c == nil {
		return "", fmt.Errorf("no connection for user %s", chatID)
	}
	id := "web-" + strconv.FormatInt(w.nextID.Add(1), 10)
	err := c.write(Frame{
		Type:      "reply",
		MessageID: id,
		Content:   reply.Text,
		Buttons:   toWSButtons(reply.Buttons),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (w *Adapter) EditMessage(chatID, messageID string, reply *channel.Reply) error {
	c := w.lookup(chatID)
	if c == nil {
		return fmt.Errorf("no connection for user %s", chatID)
	}
	return c.write(Frame{
		Type:      "edit",
		MessageID: messageID,
		Content:   reply.Text,
		Buttons:   toWSButtons(reply.Buttons),
	})
}

// SendTyping tells the client an answer is being prepared
func (w *Adapter) SendTyping(chatID string) error {
	c := w.lookup(chatID)
	if c == nil {
		return fmt.Errorf("no connection for user %s", chatID)
	}
	return c.write(Frame{Type: "typing"})
}

func (w *Adapter) lookup(userID string) *client {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clients[userID]
}

func (w *Adapter) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	c := &client{conn: conn}
	w.mu.Lock()
	w.clients[userID] = c
	w.mu.Unlock()

	w.wg.Add(1)
	defer w.wg.Done()

	defer func() {
		w.mu.Lock()
		delete(w.clients, userID)
		w.mu.Unlock()
		conn.Close()
	}()

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		ev, err := w.toEvent(userID, &frame)
		if err != nil {
			w.logger.Warn("dropping malformed frame", "type", frame.Type, "error", err)
			continue
		}
		if ev != nil {
			w.deliver(ev)
		}
	}
}

func (w *Adapter) toEvent(userID string, frame *Frame) (*channel.Event, error) {
	ev := &channel.Event{
		ID:        "web-" + strconv.FormatInt(w.nextID.Add(1), 10),
		Channel:   "webchat",
		UserID:    userID,
		ChatID:    userID,
		Timestamp: time.Now().Unix(),
	}

	switch frame.Type {
	case "message":
		ev.Kind = channel.KindText
		ev.Text = frame.Content
	case "photo":
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return nil, fmt.Errorf("bad photo payload: %w", err)
		}
		ev.Kind = channel.KindPhoto
		ev.Image = data
		ev.Text = frame.Content
	case "voice":
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return nil, fmt.Errorf("bad voice payload: %w", err)
		}
		ev.Kind = channel.KindVoice
		ev.Audio = data
	case "button":
		ev.Kind = channel.KindButton
		ev.Action = channel.ButtonAction(frame.Action)
		ev.Payload = frame.Payload
	case "command":
		ev.Kind = channel.KindCommand
		ev.Command = frame.Content
	default:
		return nil, nil
	}
	return ev, nil
}

func (c *client) write(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

func toWSButtons(rows [][]channel.Button) [][]WSButton {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]WSButton, len(rows))
	for i, row := range rows {
		out[i] = make([]WSButton, len(row))
		for j, b := range row {
			out[i][j] = WSButton{Label: b.Label, Action: string(b.Action), Payload: b.Payload}
		}
	}
	return out
}
