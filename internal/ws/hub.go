package ws

import "sync"

// Hub fans payloads out to clients by channel name.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: map[string]map[*Client]struct{}{}}
}

func (h *Hub) Subscribe(channel string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[channel]; !ok {
		h.subscribers[channel] = map[*Client]struct{}{}
	}
	h.subscribers[channel][client] = struct{}{}
	client.addChannel(channel)
}

func (h *Hub) Unsubscribe(channel string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(channel, client)
	client.removeChannel(channel)
}

func (h *Hub) UnsubscribeAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channel := range client.listChannels() {
		h.dropLocked(channel, client)
		client.removeChannel(channel)
	}
}

func (h *Hub) dropLocked(channel string, client *Client) {
	if subs, ok := h.subscribers[channel]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscribers, channel)
		}
	}
}

// Publish never blocks; a client whose buffer is full is disconnected.
func (h *Hub) Publish(channel string, payload []byte) int {
	h.mu.RLock()
	subs := make([]*Client, 0, len(h.subscribers[channel]))
	for c := range h.subscribers[channel] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		c.send(payload)
	}
	return len(subs)
}

func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}
