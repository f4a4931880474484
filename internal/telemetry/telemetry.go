// Package telemetry publishes timing state to an MQTT broker so other
// pit tools can subscribe. Publishing is best effort: broker loss never
// affects the timing loop.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"laptimer-ng/internal/lap"
	"laptimer-ng/internal/session"
)

// Config holds the MQTT settings.
type Config struct {
	Enable      bool   `yaml:"enable"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// publisher is the subset of mqtt.Client the service uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Service publishes snapshots to <prefix>/status and lap records to
// <prefix>/lap.
type Service struct {
	cfg    Config
	client publisher
}

// Connect dials the broker and returns a ready service.
func Connect(cfg Config) (*Service, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("telemetry: connected broker=%s client_id=%s", cfg.Broker, cfg.ClientID)
	return &Service{cfg: cfg, client: client}, nil
}

// HandleSnapshot publishes the snapshot on the status topic.
func (s *Service) HandleSnapshot(snap session.Snapshot) {
	s.publish(s.cfg.TopicPrefix+"/status", snap)
}

// HandleLap publishes the completed lap on the lap topic, retained so
// late subscribers see the most recent lap.
func (s *Service) HandleLap(rec lap.Record) {
	s.publishRetained(s.cfg.TopicPrefix+"/lap", rec)
}

func (s *Service) publish(topic string, v any) {
	s.send(topic, false, v)
}

func (s *Service) publishRetained(topic string, v any) {
	s.send(topic, true, v)
}

func (s *Service) send(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("telemetry: marshal: %v", err)
		return
	}
	// QoS 0 fire-and-forget; the next snapshot supersedes a lost one.
	token := s.client.Publish(topic, 0, retained, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("telemetry: publish %s: %v", topic, token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (s *Service) Close() {
	s.client.Disconnect(250)
}
