// Package web streams the controller state to browsers over a websocket.
package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gwillem/gesturearm/internal/log"
	"github.com/gwillem/gesturearm/pkg/status"
	"github.com/gwillem/gesturearm/pkg/teleop"
)

// Axis is one axis command in a Message.
type Axis struct {
	Speed     int    `json:"speed"`
	Direction string `json:"direction"`
}

// Message is the JSON form of a teleop.State.
type Message struct {
	Time       string  `json:"t"`
	Mode       string  `json:"mode"`
	Connected  bool    `json:"connected"`
	Roll       float64 `json:"roll"`
	Pitch      float64 `json:"pitch"`
	Yaw        float64 `json:"yaw"`
	Arm        string  `json:"arm"`
	Pose       string  `json:"pose,omitempty"`
	Ambient    float64 `json:"ambient"`
	Touch      float64 `json:"touch"`
	Horizontal Axis    `json:"horizontal"`
	Vertical   Axis    `json:"vertical"`
	Line       string  `json:"line"`
	Error      string  `json:"error,omitempty"`
	Closing    bool    `json:"closing,omitempty"`
}

// NewMessage converts s for the wire.
func NewMessage(s teleop.State) Message {
	m := Message{
		Time:       s.Timestamp.Format(time.RFC3339Nano),
		Mode:       s.Mode.String(),
		Connected:  s.Connected,
		Roll:       s.Angles.Roll,
		Pitch:      s.Angles.Pitch,
		Yaw:        s.Angles.Yaw,
		Arm:        s.Arm.String(),
		Ambient:    s.Ambient,
		Touch:      s.Touch,
		Horizontal: Axis{Speed: s.Horizontal.Speed, Direction: s.Horizontal.Direction.String()},
		Vertical:   Axis{Speed: s.Vertical.Speed, Direction: s.Vertical.Direction.String()},
		Line:       status.Line(s.Status()),
		Closing:    s.Closing,
	}
	if s.HasPose {
		m.Pose = s.Pose.String()
	}
	if s.Error != nil {
		m.Error = s.Error.Error()
	}
	return m
}

// Broadcaster distributes state messages to websocket clients. It keeps the
// latest message so new clients start with the current state.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	latest  []byte
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *Broadcaster) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	if b.latest != nil {
		ch <- b.latest
	}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Publish sends s to all subscribed clients. Slow clients miss messages.
func (b *Broadcaster) Publish(s teleop.State) {
	data, err := json.Marshal(NewMessage(s))
	if err != nil {
		log.Warn("web: encode state", "err", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = data
	for ch := range b.clients {
		select {
		case ch <- data:
		default:
			// channel full, skip
		}
	}
}

// Latest returns the most recent message, or nil before the first Publish.
func (b *Broadcaster) Latest() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}
