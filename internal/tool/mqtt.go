package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTClient is the subset of the paho client the transport uses. Tests
// substitute a fake via the client factory.
type MQTTClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// DefaultMQTTClient wraps the real paho client.
type DefaultMQTTClient struct {
	client mqtt.Client
}

func (c *DefaultMQTTClient) Connect() mqtt.Token     { return c.client.Connect() }
func (c *DefaultMQTTClient) Disconnect(quiesce uint) { c.client.Disconnect(quiesce) }
func (c *DefaultMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return c.client.Publish(topic, qos, retained, payload)
}
func (c *DefaultMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return c.client.Subscribe(topic, qos, callback)
}

// MQTTConfig holds broker and topic settings for an MQTT tool host.
type MQTTConfig struct {
	Broker       string
	Port         int
	Username     string
	Password     string
	RequestTopic string
	ReplyTopic   string
}

// MQTTTransport sends JSON-RPC requests over an MQTT request topic and
// correlates replies on a reply topic by the embedded request ID.
type MQTTTransport struct {
	cfg    MQTTConfig
	client MQTTClient

	mu      sync.Mutex
	pending map[string]chan json.RawMessage

	clientFactory func(opts *mqtt.ClientOptions) MQTTClient
}

// NewMQTTTransport creates a transport for the given broker and topics.
func NewMQTTTransport(cfg MQTTConfig) *MQTTTransport {
	return &MQTTTransport{
		cfg:     cfg,
		pending: make(map[string]chan json.RawMessage),
		clientFactory: func(opts *mqtt.ClientOptions) MQTTClient {
			return &DefaultMQTTClient{client: mqtt.NewClient(opts)}
		},
	}
}

// NewMQTTTransportWithClient creates a transport with a custom client
// factory (for testing).
func NewMQTTTransportWithClient(cfg MQTTConfig, factory func(*mqtt.ClientOptions) MQTTClient) *MQTTTransport {
	return &MQTTTransport{
		cfg:           cfg,
		pending:       make(map[string]chan json.RawMessage),
		clientFactory: factory,
	}
}

// Connect dials the broker and subscribes to the reply topic.
func (t *MQTTTransport) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", t.cfg.Broker, t.cfg.Port))
	opts.SetClientID(fmt.Sprintf("newshound-%s", uuid.NewString()[:8]))
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	t.client = t.clientFactory(opts)

	token := t.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}

	sub := t.client.Subscribe(t.cfg.ReplyTopic, 1, t.onReply)
	if !sub.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt: subscribe timeout")
	}
	if err := sub.Error(); err != nil {
		return fmt.Errorf("mqtt: subscribe: %w", err)
	}

	return nil
}

// onReply routes an incoming reply to the waiter registered under its ID.
func (t *MQTTTransport) onReply(_ mqtt.Client, msg mqtt.Message) {
	var resp rpcResponse
	if err := json.Unmarshal(msg.Payload(), &resp); err != nil || resp.ID == "" {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if ok {
		ch <- json.RawMessage(msg.Payload())
	}
}

func (t *MQTTTransport) Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error) {
	var req rpcRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("mqtt: bad request: %w", err)
	}
	if req.ID == "" {
		return nil, fmt.Errorf("mqtt: request has no correlation id")
	}

	ch := make(chan json.RawMessage, 1)
	t.mu.Lock()
	t.pending[req.ID] = ch
	t.mu.Unlock()

	pub := t.client.Publish(t.cfg.RequestTopic, 1, false, []byte(msg))
	if !pub.WaitTimeout(10 * time.Second) {
		t.drop(req.ID)
		return nil, fmt.Errorf("mqtt: publish timeout")
	}
	if err := pub.Error(); err != nil {
		t.drop(req.ID)
		return nil, fmt.Errorf("mqtt: publish: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		t.drop(req.ID)
		return nil, ctx.Err()
	}
}

func (t *MQTTTransport) drop(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *MQTTTransport) Close() error {
	if t.client != nil {
		t.client.Disconnect(250)
	}
	return nil
}
