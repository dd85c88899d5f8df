package backend

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/snarg/cel-engine/internal/cel"
	"github.com/snarg/cel-engine/internal/metrics"
)

// MQTT publishes each record as JSON on a broker topic.
type MQTT struct {
	conn  mqtt.Client
	topic string
	log   zerolog.Logger
}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	Log       zerolog.Logger
}

// NewMQTT connects to the broker. The connection auto-reconnects; publishes
// made while disconnected are dropped and counted.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	m := &MQTT{
		topic: opts.Topic,
		log:   opts.Log.With().Str("component", "mqtt_backend").Logger(),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			m.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
		})

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	m.conn = mqtt.NewClient(clientOpts)
	token := m.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	m.log.Info().Str("broker", opts.BrokerURL).Str("topic", opts.Topic).Msg("mqtt backend connected")
	return m, nil
}

// Write publishes one record. Fire and forget; failures are counted, not
// retried.
func (m *MQTT) Write(rec *cel.Record) {
	payload, err := rec.Encode()
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("mqtt").Inc()
		m.log.Error().Err(err).Msg("record encode failed")
		return
	}

	token := m.conn.Publish(m.topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			metrics.BackendErrorsTotal.WithLabelValues("mqtt").Inc()
			m.log.Error().Err(err).Msg("mqtt publish failed")
		}
	}()
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.log.Info().Msg("disconnecting mqtt backend")
	m.conn.Disconnect(1000)
}
