package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Subscriber delivers payloads published on a channel.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub relays one channel of asset events to WebSocket clients.
type Hub struct {
	pubsub  Subscriber
	channel string
	accept  *websocket.AcceptOptions
}

// NewHub creates a hub for channel. originPatterns lists the host patterns
// allowed to connect cross-origin; nil allows same-origin only.
func NewHub(pubsub Subscriber, channel string, originPatterns []string) *Hub {
	return &Hub{
		pubsub:  pubsub,
		channel: channel,
		accept:  &websocket.AcceptOptions{OriginPatterns: originPatterns},
	}
}

// ServeAssets handles WebSocket connections for asset reload events.
// Every payload published on the hub's channel is forwarded as a text
// message until the client goes away.
func (h *Hub) ServeAssets(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Reads are never expected; CloseRead cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.pubsub.Subscribe(ctx, h.channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
