package gesture

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gwillem/gesturearm/internal/log"
	"github.com/gwillem/gesturearm/pkg/orientation"
)

// MQTTConfig configures the armband bridge connection.
type MQTTConfig struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	TopicPrefix string // events on <prefix>/events, commands on <prefix>/command
	Timeout     time.Duration
}

const eventBuffer = 256

// wireEvent is the JSON envelope published by the armband bridge.
type wireEvent struct {
	Type      string                  `json:"type"`
	Timestamp int64                   `json:"ts,omitempty"` // microseconds since epoch
	Rotation  *orientation.Quaternion `json:"rotation,omitempty"`
	Pose      string                  `json:"pose,omitempty"`
	Arm       string                  `json:"arm,omitempty"`
}

// wireCommand is published back to the bridge.
type wireCommand struct {
	Type      string `json:"type"`
	Vibration string `json:"vibration,omitempty"`
	Unlock    string `json:"unlock,omitempty"`
}

// MQTTSource receives armband events from an MQTT bridge.
type MQTTSource struct {
	client  mqtt.Client
	cfg     MQTTConfig
	events  chan Event
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewMQTTSource connects to the broker and subscribes to the event topic.
func NewMQTTSource(cfg MQTTConfig) (*MQTTSource, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("gesture: mqtt broker is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "myo"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "gesturearm"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	s := &MQTTSource{
		cfg:    cfg,
		events: make(chan Event, eventBuffer),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("gesture: mqtt connection lost", "err", err)
			s.deliver(Event{Kind: EventDisconnect, Timestamp: time.Now()})
		})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.WaitTimeout(cfg.Timeout) && token.Error() != nil {
		return nil, fmt.Errorf("gesture: connect %s: %w", cfg.Broker, token.Error())
	} else if !s.client.IsConnected() {
		return nil, fmt.Errorf("gesture: connect %s: timed out", cfg.Broker)
	}
	log.Info("gesture: connected to mqtt broker", "broker", cfg.Broker)

	token := s.client.Subscribe(s.topic("events"), 1, s.handle)
	token.Wait()
	if token.Error() != nil {
		s.client.Disconnect(250)
		return nil, fmt.Errorf("gesture: subscribe %s: %w", s.topic("events"), token.Error())
	}
	log.Info("gesture: subscribed", "topic", s.topic("events"))

	return s, nil
}

func (s *MQTTSource) topic(name string) string {
	return strings.TrimSuffix(s.cfg.TopicPrefix, "/") + "/" + name
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	ev, err := DecodeEvent(msg.Payload())
	if err != nil {
		log.Warn("gesture: bad event", "topic", msg.Topic(), "err", err)
		return
	}
	s.deliver(ev)
}

func (s *MQTTSource) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.dropped++
		log.Warn("gesture: event buffer full, dropping", "kind", ev.Kind, "dropped", s.dropped)
	}
}

// Events implements Source.
func (s *MQTTSource) Events() <-chan Event {
	return s.events
}

// Vibrate implements Source.
func (s *MQTTSource) Vibrate(ctx context.Context, v Vibration) error {
	return s.publish(ctx, wireCommand{Type: "vibrate", Vibration: v.String()})
}

// Unlock implements Source.
func (s *MQTTSource) Unlock(ctx context.Context, u UnlockType) error {
	return s.publish(ctx, wireCommand{Type: "unlock", Unlock: u.String()})
}

func (s *MQTTSource) publish(ctx context.Context, cmd wireCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic("command"), 1, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("gesture: publish %s: %w", cmd.Type, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unsubscribes, disconnects and closes the event stream.
func (s *MQTTSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.client.Unsubscribe(s.topic("events")).WaitTimeout(s.cfg.Timeout)
	s.client.Disconnect(250)
	return nil
}

// DecodeEvent parses one bridge message.
func DecodeEvent(payload []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	kind, err := ParseEventKind(w.Type)
	if err != nil {
		return Event{}, err
	}

	ev := Event{Kind: kind, Timestamp: time.Now()}
	if w.Timestamp > 0 {
		ev.Timestamp = time.UnixMicro(w.Timestamp)
	}

	switch kind {
	case EventOrientation:
		if w.Rotation == nil {
			return Event{}, fmt.Errorf("decode event: orientation without rotation")
		}
		ev.Rotation = *w.Rotation
	case EventPose:
		p, err := ParsePose(w.Pose)
		if err != nil {
			return Event{}, err
		}
		ev.Pose = p
	case EventArmSync:
		ev.Arm = ParseArm(w.Arm)
	}
	return ev, nil
}
