package stream

import (
	"encoding/json"
	"time"
)

// Frame type markers used on the wire.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameUpdate       = "update"
	FrameError        = "error"
	FramePing         = "ping"
	FramePong         = "pong"
)

// Frame is the JSON wire format exchanged with the venue's streaming
// endpoint. Subscribe and unsubscribe frames carry a client-chosen
// subscription id that the venue echoes back in data frames for that
// channel.
type Frame struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// SubscriptionIntent describes one desired subscription. The set of all
// current intents forms the session's durable subscription table: it
// survives reconnects and changes only through Subscribe and Unsubscribe.
type SubscriptionIntent struct {
	// ID is the client-assigned subscription id. Subscribe assigns one
	// when left empty.
	ID string
	// Channel is the venue channel name, e.g. "orderbook" or "trades".
	Channel string
	// Params are channel-specific parameters, e.g. symbol and depth.
	Params map[string]any
}

func (i SubscriptionIntent) subscribeFrame() (Frame, error) {
	var data json.RawMessage
	if i.Params != nil {
		encoded, err := json.Marshal(i.Params)
		if err != nil {
			return Frame{}, err
		}
		data = encoded
	}
	return Frame{
		ID:        i.ID,
		Type:      FrameSubscribe,
		Channel:   i.Channel,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Event is a decoded inbound data frame delivered to the consumer.
type Event struct {
	// SubscriptionID is the client-assigned id the frame was tagged with.
	SubscriptionID string
	// Channel is the venue channel that produced the event.
	Channel string
	// Data is the raw event payload for the caller to decode.
	Data json.RawMessage
	// Timestamp is the venue's frame timestamp.
	Timestamp time.Time
}
