package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans leaderboard updates out to the subscribers of each contest.
// The run goroutine is the only one touching the subscriber map.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	count     chan countRequest
	done      chan struct{}
	closeOnce sync.Once
}

type message struct {
	contestID string
	payload   []byte
}

type subscription struct {
	contestID string
	client    Subscriber
}

type countRequest struct {
	contestID string
	reply     chan int
}

// NewHub creates a running Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, 16),
		count:     make(chan countRequest),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.contestID]; !ok {
				h.clients[sub.contestID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.contestID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.contestID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.contestID)
				}
			}
		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.contestID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.contestID)
				}
			}
		case req := <-h.count:
			req.reply <- len(h.clients[req.contestID])
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = nil
			return
		}
	}
}

// Register adds a client to a contest stream.
func (h *Hub) Register(contestID string, client Subscriber) {
	select {
	case h.register <- subscription{contestID: contestID, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(contestID string, client Subscriber) {
	select {
	case h.unreg <- subscription{contestID: contestID, client: client}:
	case <-h.done:
	}
}

// Broadcast sends payload to every subscriber of contestID.
func (h *Hub) Broadcast(contestID string, payload []byte) {
	select {
	case h.broadcast <- message{contestID: contestID, payload: payload}:
	case <-h.done:
	}
}

// Subscribers reports how many clients follow contestID.
func (h *Hub) Subscribers(contestID string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{contestID: contestID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Close stops the hub and closes every subscriber. Later calls are no-ops.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Done is closed once the hub stops.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
