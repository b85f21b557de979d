// Package push delivers job offers to technician devices over MQTT and feeds
// technician responses back into the dispatch flow.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/notify"
	"github.com/fieldserve/dispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT gateway.
type Config struct {
	Broker        string `json:"broker"`
	ClientID      string `json:"client_id"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	ResponseTopic string `json:"response_topic"`
	QoS           byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "fieldserve-dispatch"
	}
	if c.ResponseTopic == "" {
		c.ResponseTopic = "technicians/responses"
	}
}

// ResponseHandler receives technician responses arriving over MQTT. The
// handler is expected to run the atomic record-response flow.
type ResponseHandler func(ctx context.Context, jobID, technicianID string, kind model.ResponseKind, ts time.Time)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Gateway implements notify.Gateway over MQTT. Offers are published to a
// per-technician topic; responses arrive on a shared response topic and are
// handed to the configured ResponseHandler.
type Gateway struct {
	cli     pahoClient
	qos     byte
	handler ResponseHandler
	log     logger.Logger
}

// NewGateway connects to the broker and subscribes to the response topic.
func NewGateway(cfg Config, handler ResponseHandler) (*Gateway, error) {
	cfg.SetDefaults()
	log := logger.New("push_gateway")
	g := &Gateway{qos: cfg.QoS, handler: handler, log: log}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.ResponseTopic, cfg.QoS, g.onResponse); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	g.cli = c
	return g, nil
}

// SendOffer publishes the offer to the technician's topic.
func (g *Gateway) SendOffer(_ context.Context, technicianID string, offer notify.Offer) error {
	payload, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("technicians/%s/offers", technicianID)
	token := g.cli.Publish(topic, g.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", notify.ErrUndeliverable, err)
	}
	g.log.Infof("sent offer for job %s to %s", offer.JobID, technicianID)
	return nil
}

func (g *Gateway) onResponse(_ paho.Client, msg paho.Message) {
	var m struct {
		JobID        string    `json:"jobId"`
		TechnicianID string    `json:"technicianId"`
		Response     string    `json:"response"`
		Timestamp    time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		g.log.Errorf("failed to decode response: %v", err)
		return
	}
	kind := model.ResponseKind(m.Response)
	if !kind.Valid() {
		g.log.Warnf("ignoring response %q from %s", m.Response, m.TechnicianID)
		return
	}
	if g.handler != nil {
		g.handler(context.Background(), m.JobID, m.TechnicianID, kind, m.Timestamp)
	}
}

// Close gracefully disconnects from the broker.
func (g *Gateway) Close() {
	if g.cli != nil && g.cli.IsConnected() {
		g.cli.Disconnect(250)
	}
}
