package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ponytojas/go-parking-monitor/config"
	"github.com/ponytojas/go-parking-monitor/internal/models"
	"github.com/ponytojas/go-parking-monitor/internal/occupancy"
)

const disconnectQuiesce = 250 // milliseconds

// Client exposes an MQTT broker as a realtime store. Each store path maps to
// one topic whose messages are complete JSON snapshots.
type Client struct {
	client mqtt.Client
	config *config.Config
	logger *slog.Logger

	mu            sync.Mutex
	subscriptions map[*subscription]struct{}
}

// NewClient creates a new MQTT client
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	c := &Client{
		config:        cfg,
		logger:        logger,
		subscriptions: make(map[*subscription]struct{}),
	}

	opts := mqtt.NewClientOptions()
	brokerURL := cfg.GetMQTTBrokerURL()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID(cfg.MQTT.ClientID))

	// Configure TLS if using SSL or secure websockets
	if strings.HasPrefix(brokerURL, "ssl://") || strings.HasPrefix(brokerURL, "wss://") {
		logger.Info("configuring TLS for secure connection", "broker", brokerURL)
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info("attempting to reconnect to MQTT broker")
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.resubscribe()
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// clientID generates a unique id when none is configured so that two
// monitors never take over each other's session
func clientID(configured string) string {
	if configured != "" {
		return configured
	}
	return "parking-monitor-" + uuid.NewString()[:8]
}

// Connect connects to the MQTT broker
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	if err := waitToken(ctx, token); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	c.logger.Info("connected to MQTT broker", "broker", c.config.GetMQTTBrokerURL())
	return nil
}

// Disconnect disconnects from the MQTT broker
func (c *Client) Disconnect() {
	c.client.Disconnect(disconnectQuiesce)
	c.logger.Info("disconnected from MQTT broker")
}

// Subscribe registers listener for every snapshot published on path
func (c *Client) Subscribe(ctx context.Context, path string, listener occupancy.Listener) (occupancy.Subscription, error) {
	sub := &subscription{
		client:   c,
		topic:    c.config.Topic(path),
		listener: listener,
	}

	if err := waitToken(ctx, c.client.Subscribe(sub.topic, c.config.MQTT.QoS, sub.handle)); err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", sub.topic, err)
	}

	c.mu.Lock()
	c.subscriptions[sub] = struct{}{}
	c.mu.Unlock()

	c.logger.Info("subscribed to topic", "topic", sub.topic, "path", path)
	return sub, nil
}

// resubscribe restores registrations after the broker dropped the session.
// A failure is reported to the listener; there is no retry.
func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subscriptions))
	for sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		token := c.client.Subscribe(sub.topic, c.config.MQTT.QoS, sub.handle)
		go func(sub *subscription, token mqtt.Token) {
			if err := waitToken(context.Background(), token); err != nil {
				c.logger.Error("failed to resubscribe", "topic", sub.topic, "error", err)
				sub.cancel(fmt.Errorf("failed to resubscribe to topic %s: %w", sub.topic, err))
				return
			}
			c.logger.Info("resubscribed to topic", "topic", sub.topic)
		}(sub, token)
	}
}

func (c *Client) forget(sub *subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subscriptions[sub]; !ok {
		return false
	}
	delete(c.subscriptions, sub)
	return true
}

// subscription is one listener registered on a topic
type subscription struct {
	client   *Client
	topic    string
	listener occupancy.Listener

	mu     sync.Mutex
	closed bool
}

func (s *subscription) handle(_ mqtt.Client, msg mqtt.Message) {
	s.deliver(msg.Payload(), time.Now())
}

// deliver parses one snapshot and hands it to the listener. A payload that
// is not a snapshot is reported as a read failure.
func (s *subscription) deliver(payload []byte, receivedAt time.Time) {
	if s.isClosed() {
		return
	}
	snapshot, err := models.ParseSnapshot(payload, receivedAt)
	if err != nil {
		s.client.logger.Warn("invalid snapshot", "topic", s.topic, "error", err)
		s.listener.OnCancelled(fmt.Errorf("failed to read snapshot on %s: %w", s.topic, err))
		return
	}
	s.listener.OnDataChange(snapshot)
}

func (s *subscription) cancel(err error) {
	if s.isClosed() {
		return
	}
	s.listener.OnCancelled(err)
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close unsubscribes from the broker
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if !s.client.forget(s) || !s.client.client.IsConnectionOpen() {
		return nil
	}
	token := s.client.client.Unsubscribe(s.topic)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := waitToken(ctx, token); err != nil {
		return fmt.Errorf("failed to unsubscribe from topic %s: %w", s.topic, err)
	}
	s.client.logger.Info("unsubscribed from topic", "topic", s.topic)
	return nil
}

// waitToken waits for a paho token to complete or ctx to end
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
