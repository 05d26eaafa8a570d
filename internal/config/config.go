package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/unii2mqtt/unii2mqtt/internal/util"
)

type Config struct {
	UNii    UNiiConfig    `yaml:"unii"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
	Cache   bool          `yaml:"cache"`
}

type UNiiConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	SharedKey    string `yaml:"shared_key"`
	UserCode     string `yaml:"user_code"`
	Variant      string `yaml:"variant"`
	SkipCRCCheck bool   `yaml:"skip_crc_check"`
}

type MQTTConfig struct {
	ClientID  string `yaml:"client_id"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Keepalive int    `yaml:"keepalive"`
	Password  string `yaml:"password"`
	QOS       int    `yaml:"qos"`
	Retain    bool   `yaml:"retain"`
	RetainLog bool   `yaml:"retain_log"`
	Username  string `yaml:"username"`
	Prefix    string `yaml:"prefix"`
	Clean     bool   `yaml:"clean"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	if config.UNii.Host == "" {
		return nil, fmt.Errorf("unii.host is required")
	}

	// Set default values
	if config.UNii.Port == 0 {
		config.UNii.Port = 6502
	}
	if config.UNii.Variant == "" {
		config.UNii.Variant = "standard"
	}
	if !util.Contains([]string{"standard", "legacy"}, config.UNii.Variant) {
		return nil, fmt.Errorf("unii.variant must be standard or legacy, got %q", config.UNii.Variant)
	}
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "unii2mqtt"
	}
	if config.MQTT.Host == "" {
		config.MQTT.Host = "localhost"
	}
	if config.MQTT.Port == 0 {
		config.MQTT.Port = 1883
	}
	if config.MQTT.Keepalive == 0 {
		config.MQTT.Keepalive = 60
	}
	if config.MQTT.Prefix == "" {
		config.MQTT.Prefix = "unii2mqtt"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}

	return &config, nil
}
