package events

import (
	"context"
	"testing"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writerRecords != nil || p.writerBridge != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:      true,
		Brokers:      []string{"localhost:9092"},
		TopicRecords: "test.records",
		TopicBridge:  "test.bridge",
	})
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	if p.writerRecords == nil || p.writerRecords.Topic != "test.records" {
		t.Error("expected records writer bound to records topic")
	}
	if p.writerBridge == nil || p.writerBridge.Topic != "test.bridge" {
		t.Error("expected bridge writer bound to bridge topic")
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:      false,
		Brokers:      []string{"localhost:9092"},
		TopicRecords: "test.records",
		TopicBridge:  "test.bridge",
		Principal:    "test-principal",
	})

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicRecords != "test.records" {
		t.Errorf("expected records topic 'test.records', got %s", p.topicRecords)
	}
	if p.topicBridge != "test.bridge" {
		t.Errorf("expected bridge topic 'test.bridge', got %s", p.topicBridge)
	}
}

type testEnvelope struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func TestPublisher_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false, TopicRecords: "r", TopicBridge: "b", Principal: "test-svc"})

	tests := []struct {
		name    string
		publish func() error
		wantErr bool
	}{
		{"record", func() error {
			return p.PublishRecord(context.Background(), "s-1", testEnvelope{SessionID: "s-1", Text: "hello"})
		}, false},
		{"bridge event", func() error {
			return p.PublishBridgeEvent(context.Background(), "tr-1", map[string]string{"text": "hi"})
		}, false},
		{"record unmarshalable", func() error {
			return p.PublishRecord(context.Background(), "s-1", make(chan int))
		}, true},
		{"bridge unmarshalable", func() error {
			return p.PublishBridgeEvent(context.Background(), "tr-1", make(chan int))
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.publish()
			if (err != nil) != tt.wantErr {
				t.Errorf("publish error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilPublisher(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
