package oracle

import (
	"net/http"
	"sync"
	"time"

	log "github.com/InjectiveLabs/suplog"
	"github.com/gorilla/websocket"
	uuid "github.com/satori/go.uuid"
)

// Event is one contract event line as delivered to stream subscribers.
type Event struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	Line string    `json:"line"`
}

// EventHub implements the host event sink: contract events are fanned out
// to websocket subscribers. Delivery is fire-and-forget, a subscriber that
// cannot keep up misses events.
type EventHub struct {
	mu   sync.Mutex
	subs map[*eventSubscriber]struct{}

	upgrader websocket.Upgrader
	logger   log.Logger
}

type eventSubscriber struct {
	conn  *websocket.Conn
	sendC chan Event
}

const subscriberBuffer = 64

func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[*eventSubscriber]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.WithField("svc", "events"),
	}
}

// Emit publishes a contract event line to all connected subscribers.
func (h *EventHub) Emit(line string) {
	evt := Event{
		ID:   uuid.NewV4().String(),
		Time: time.Now().UTC(),
		Line: line,
	}

	h.logger.WithField("event", line).Debugln("contract event")

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.sendC <- evt:
		default:
			// slow subscriber, drop the event
		}
	}
}

// HandleSubscribe upgrades the request to a websocket connection and
// streams contract events until the client goes away.
func (h *EventHub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warningln("websocket upgrade failed")
		return
	}

	sub := &eventSubscriber{
		conn:  conn,
		sendC: make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debugln("event stream subscriber connected")

	go h.writePump(sub)
	go h.readPump(sub)
}

func (h *EventHub) writePump(sub *eventSubscriber) {
	for evt := range sub.sendC {
		if err := sub.conn.WriteJSON(evt); err != nil {
			h.drop(sub)
			return
		}
	}
}

// readPump discards inbound frames, its only purpose is to notice the
// peer closing the connection.
func (h *EventHub) readPump(sub *eventSubscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub)
			return
		}
	}
}

func (h *EventHub) drop(sub *eventSubscriber) {
	h.mu.Lock()
	_, registered := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()

	if registered {
		close(sub.sendC)
		_ = sub.conn.Close()
	}
}

// Close disconnects all subscribers.
func (h *EventHub) Close() {
	h.mu.Lock()
	subs := make([]*eventSubscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*eventSubscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		close(sub.sendC)
		_ = sub.conn.Close()
	}
}
