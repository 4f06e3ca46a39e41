package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/errors"
	"github.com/pulseline/pulseline-go/internal/logging"
)

type client struct {
	cfg  Config
	mqtt paho.Client
	log  *slog.Logger
}

// NewClient builds a paho-backed client from the application settings.
func NewClient(settings *conf.Settings) (Client, error) {
	cfg := DefaultConfig()
	cfg.Broker = settings.Realtime.MQTT.Broker
	cfg.Topic = settings.Realtime.MQTT.Topic
	cfg.Username = settings.Realtime.MQTT.Username
	cfg.Password = settings.Realtime.MQTT.Password
	cfg.Retain = settings.Realtime.MQTT.Retain
	cfg.ClientID = "pulseline-" + strings.Split(uuid.New().String(), "-")[0]

	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker not configured").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &client{
		cfg: cfg,
		log: logging.ForService("mqtt"),
	}, nil
}

func (c *client) Connect(ctx context.Context) error {
	if c.mqtt != nil && c.mqtt.IsConnected() {
		return nil
	}

	// Resolve the broker host up front so an unreachable DNS name fails
	// fast instead of hanging in the paho connect loop.
	if host := brokerHost(c.cfg.Broker); host != "" {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryMQTTConnection).
				Context("broker", c.cfg.Broker).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetConnectTimeout(c.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		c.log.Info("mqtt connected", "broker", c.cfg.Broker)
	})

	c.mqtt = paho.NewClient(opts)

	token := c.mqtt.Connect()
	if err := waitToken(ctx, token); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.cfg.Broker).
			Build()
	}
	return nil
}

func (c *client) Publish(ctx context.Context, topic, payload string) error {
	if c.mqtt == nil || !c.mqtt.IsConnected() {
		return errors.Newf("mqtt client not connected").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	token := c.mqtt.Publish(topic, 0, c.cfg.Retain, payload)
	if err := waitToken(ctx, token); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	return nil
}

func (c *client) IsConnected() bool {
	return c.mqtt != nil && c.mqtt.IsConnected()
}

func (c *client) Disconnect() {
	if c.mqtt == nil {
		return
	}
	c.mqtt.Disconnect(250)
}

// waitToken blocks on a paho token, bailing out when the context expires.
func waitToken(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("mqtt operation: %w", ctx.Err())
	}
}

// brokerHost extracts the host part of a broker URL, tolerating bare
// host:port strings without a scheme.
func brokerHost(broker string) string {
	raw := broker
	if !strings.Contains(raw, "://") {
		raw = "tcp://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
