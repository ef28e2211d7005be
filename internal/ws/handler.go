package ws

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

type subscribeMessage struct {
	Action    string `json:"action"`
	Channel   string `json:"channel"`
	AssetID   string `json:"assetId"`
	LoanID    string `json:"loanId"`
	Principal string `json:"principal"`
}

type ackMessage struct {
	Event   string `json:"event"`
	Channel string `json:"channel,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	websocket.Handler(func(conn *websocket.Conn) {
		client := NewClient(conn)
		go h.writer(client)
		h.reader(client)
	}).ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) reader(client *Client) {
	defer func() {
		h.hub.UnsubscribeAll(client)
		client.close()
		_ = client.conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(client.conn, &raw); err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			client.send(ack("error", "", "invalid_message"))
			continue
		}
		topic := subscriptionTopic(msg)
		if topic == "" {
			client.send(ack("error", "", "invalid_channel"))
			continue
		}
		switch strings.ToLower(strings.TrimSpace(msg.Action)) {
		case "subscribe":
			h.hub.Subscribe(topic, client)
			client.send(ack("subscribed", topic, ""))
		case "unsubscribe":
			h.hub.Unsubscribe(topic, client)
			client.send(ack("unsubscribed", topic, ""))
		default:
			client.send(ack("error", topic, "invalid_action"))
		}
	}
}

func (h *Handler) writer(client *Client) {
	for payload := range client.out {
		if err := websocket.Message.Send(client.conn, string(payload)); err != nil {
			return
		}
	}
}

func ack(event, channel, errMsg string) []byte {
	payload, _ := json.Marshal(ackMessage{Event: event, Channel: channel, Error: errMsg})
	return payload
}

func subscriptionTopic(msg subscribeMessage) string {
	channel := strings.ToLower(strings.TrimSpace(msg.Channel))
	switch channel {
	case "asset":
		id := strings.TrimSpace(msg.AssetID)
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return ""
		}
		return AssetChannel(id)
	case "loan":
		id := strings.TrimSpace(msg.LoanID)
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return ""
		}
		return LoanChannel(id)
	case "account":
		p := strings.TrimSpace(msg.Principal)
		if p == "" {
			return ""
		}
		return AccountChannel(p)
	case "events":
		return AllEventsChannel
	default:
		return ""
	}
}
