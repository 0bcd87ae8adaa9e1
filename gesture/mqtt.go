package gesture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// MQTTPublisher publishes gesture events as JSON to an MQTT topic.
type MQTTPublisher struct {
	opts   MQTTOptions
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

func NewMQTTPublisher(opts MQTTOptions) *MQTTPublisher {
	return &MQTTPublisher{opts: opts}
}

// Connect establishes the broker connection. The client reconnects on its
// own afterwards.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", p.opts.Broker))
	opts.SetClientID(p.opts.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		p.setConnected(true)
		slog.Info("mqtt connection established", "broker", p.opts.Broker, "client_id", p.opts.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		p.setConnected(false)
		slog.Warn("mqtt connection lost, will auto-reconnect", "broker", p.opts.Broker, "error", err)
	}

	p.client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", p.opts.Broker)

	token := p.client.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(connectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	p.setConnected(true)
	return nil
}

func (p *MQTTPublisher) Publish(e Event) error {
	if !p.isConnected() {
		p.countError()
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(e)
	if err != nil {
		p.countError()
		return fmt.Errorf("could not marshal gesture event: %w", err)
	}

	token := p.client.Publish(p.opts.Topic, p.opts.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()

	slog.Debug("gesture published", "topic", p.opts.Topic, "hand", e.Hand, "raised", e.Raised)
	return nil
}

func (p *MQTTPublisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		slog.Info("mqtt disconnected")
	}
	p.setConnected(false)
}

// Stats returns the number of published events and failed publications.
func (p *MQTTPublisher) Stats() (published, errors uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.published, p.errors
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.connected
}

func (p *MQTTPublisher) countError() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
