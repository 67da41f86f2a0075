package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/garminexport/internal/config"
	"github.com/jgoulah/garminexport/pkg/models"
)

const (
	clientID       = "garminexport"
	connectTimeout = 10 * time.Second
	publishTimeout = 10 * time.Second
)

// Publisher announces finished exports on an MQTT broker
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

// New connects to the configured broker
func New(cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(connectTimeout)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Publisher{client: client, topicPrefix: cfg.GetTopicPrefix()}, nil
}

// Topic returns the topic export notifications are published on
func Topic(prefix string) string {
	return prefix + "/export"
}

// Payload encodes an export record as the notification body
func Payload(rec models.ExportRecord) ([]byte, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return body, nil
}

// Publish sends an export record to <prefix>/export
func (p *Publisher) Publish(rec models.ExportRecord) error {
	body, err := Payload(rec)
	if err != nil {
		return err
	}

	token := p.client.Publish(Topic(p.topicPrefix), 1, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out after %s", Topic(p.topicPrefix), publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", Topic(p.topicPrefix), err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
