package config

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewMQTT connects to the broker. onConnect runs on every successful connect,
// including automatic reconnects, and may be nil.
func NewMQTT(cfg *Config, onConnect mqtt.OnConnectHandler) (mqtt.Client, error) {
	client := mqtt.NewClient(mqttOptions(cfg, onConnect))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func mqttOptions(cfg *Config, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}
	return opts
}
