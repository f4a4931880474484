package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"laptimer-ng/internal/lap"
	"laptimer-ng/internal/session"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	msgs         []published
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{
		topic:    topic,
		retained: retained,
		payload:  append([]byte(nil), payload.([]byte)...),
	})
	t := &mqtt.DummyToken{}
	return t
}

func (f *fakeClient) Disconnect(quiesce uint) { f.disconnected = true }

func newTestService() (*Service, *fakeClient) {
	fc := &fakeClient{}
	return &Service{
		cfg:    Config{TopicPrefix: "laptimer"},
		client: fc,
	}, fc
}

func TestHandleSnapshot(t *testing.T) {
	s, fc := newTestService()

	s.HandleSnapshot(session.Snapshot{Lap: 3, BestLap: 88 * time.Second})
	if len(fc.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(fc.msgs))
	}
	msg := fc.msgs[0]
	if msg.topic != "laptimer/status" {
		t.Fatalf("topic=%q want laptimer/status", msg.topic)
	}
	if msg.retained {
		t.Fatalf("status must not be retained")
	}

	var snap session.Snapshot
	if err := json.Unmarshal(msg.payload, &snap); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if snap.Lap != 3 || snap.BestLap != 88*time.Second {
		t.Fatalf("unexpected payload: %+v", snap)
	}
}

func TestHandleLap(t *testing.T) {
	s, fc := newTestService()

	s.HandleLap(lap.Record{Index: 2, Duration: 88 * time.Second, TopSpeedKmh: 118.4})
	if len(fc.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(fc.msgs))
	}
	msg := fc.msgs[0]
	if msg.topic != "laptimer/lap" {
		t.Fatalf("topic=%q want laptimer/lap", msg.topic)
	}
	if !msg.retained {
		t.Fatalf("lap records must be retained")
	}

	var rec lap.Record
	if err := json.Unmarshal(msg.payload, &rec); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if rec.Index != 2 || rec.TopSpeedKmh != 118.4 {
		t.Fatalf("unexpected payload: %+v", rec)
	}
}

func TestClose(t *testing.T) {
	s, fc := newTestService()
	s.Close()
	if !fc.disconnected {
		t.Fatalf("Close() did not disconnect")
	}
}
