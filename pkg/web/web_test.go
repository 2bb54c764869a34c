package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/gesturearm/internal/log"
	"github.com/gwillem/gesturearm/pkg/actuation"
	"github.com/gwillem/gesturearm/pkg/gesture"
	"github.com/gwillem/gesturearm/pkg/orientation"
	"github.com/gwillem/gesturearm/pkg/teleop"
)

func testState() teleop.State {
	return teleop.State{
		Mode:       teleop.Running,
		Connected:  true,
		Angles:     orientation.Angles{Roll: 7.5, Pitch: 12, Yaw: 3},
		Scale:      20,
		Arm:        gesture.ArmLeft,
		Pose:       gesture.PoseRest,
		HasPose:    true,
		Ambient:    1,
		Horizontal: actuation.Command{Axis: actuation.Horizontal, Speed: -50, Direction: actuation.Forward},
		Vertical:   actuation.Command{Axis: actuation.Vertical, Speed: 58, Direction: actuation.Backward},
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewMessage(t *testing.T) {
	s := testState()
	s.Error = errors.New("vertical motor: backward: timeout")
	m := NewMessage(s)

	if m.Mode != "running" || m.Arm != "left" || m.Pose != "REST" {
		t.Errorf("message = %+v", m)
	}
	if m.Horizontal != (Axis{Speed: -50, Direction: "forward"}) {
		t.Errorf("horizontal = %+v", m.Horizontal)
	}
	if m.Vertical != (Axis{Speed: 58, Direction: "backward"}) {
		t.Errorf("vertical = %+v", m.Vertical)
	}
	if !strings.HasPrefix(m.Line, "Horizontal Speed: [*******") || !strings.Contains(m.Line, "ARM: [L]") {
		t.Errorf("line = %q", m.Line)
	}
	if m.Error == "" {
		t.Error("error not carried")
	}
	if m.Time != "2024-05-01T12:00:00Z" {
		t.Errorf("time = %q", m.Time)
	}

	s.HasPose = false
	if m := NewMessage(s); m.Pose != "" {
		t.Errorf("pose without HasPose = %q", m.Pose)
	}
}

func TestBroadcaster_SubscribeAndReceive(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(testState())

	select {
	case data := <-ch:
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if m.Vertical.Speed != 58 {
			t.Errorf("vertical speed = %d, want 58", m.Vertical.Speed)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
}

func TestBroadcaster_LateSubscriberGetsLatest(t *testing.T) {
	b := NewBroadcaster()
	if b.Latest() != nil {
		t.Fatal("Latest() before publish is not nil")
	}
	b.Publish(testState())

	ch, unsub := b.Subscribe()
	defer unsub()
	select {
	case data := <-ch:
		if string(data) != string(b.Latest()) {
			t.Errorf("got %s, want latest", data)
		}
	default:
		t.Fatal("late subscriber got nothing")
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(testState())
}

func TestBroadcaster_FullChannelDropsMessage(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 100; i++ {
		b.Publish(testState())
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want full (%d)", len(ch), cap(ch))
	}
}

func TestBroadcaster_UnencodableStateLogged(t *testing.T) {
	var buf bytes.Buffer
	log.Init("warn", &buf)
	defer log.Discard()

	b := NewBroadcaster()
	b.Publish(testState())
	good := b.Latest()

	bad := testState()
	bad.Angles.Pitch = math.NaN()
	b.Publish(bad)

	if !bytes.Equal(b.Latest(), good) {
		t.Error("latest message replaced by an unencodable state")
	}
	if !strings.Contains(buf.String(), "encode state") {
		t.Errorf("log = %q, want an encode warning", buf.String())
	}
}

func TestServer_Status(t *testing.T) {
	b := NewBroadcaster()
	srv := NewServer(":0", b)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status before publish = %d, want 204", rec.Code)
	}

	b.Publish(testState())
	rec = httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var m Message
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Mode != "running" {
		t.Errorf("mode = %q", m.Mode)
	}
}

func TestServer_Stream(t *testing.T) {
	b := NewBroadcaster()
	ts := httptest.NewServer(NewServer("", b).Mux())
	defer ts.Close()

	b.Publish(testState())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Arm != "left" || m.Horizontal.Speed != -50 {
		t.Errorf("message = %+v", m)
	}

	s := testState()
	s.Mode = teleop.Sleeping
	b.Publish(s)
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	if m.Mode != "sleeping" {
		t.Errorf("mode = %q, want sleeping", m.Mode)
	}
}
