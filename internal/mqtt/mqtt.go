package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/unii2mqtt/unii2mqtt/internal/config"
	"github.com/unii2mqtt/unii2mqtt/internal/log"
	"github.com/unii2mqtt/unii2mqtt/internal/panel"
	"github.com/unii2mqtt/unii2mqtt/internal/unii"
)

const (
	offlinePayload = "offline"
	onlinePayload  = "online"

	commandTimeout = 30 * time.Second
)

// bridgePanel is the coordinator surface the bridge drives. It is
// satisfied by *panel.Panel.
type bridgePanel interface {
	Arm(ctx context.Context, section int, code string) error
	Disarm(ctx context.Context, section int, code string) error
	Bypass(ctx context.Context, input int, code string) error
	Unbypass(ctx context.Context, input int, code string) error
	Refresh(ctx context.Context) error
	Sections() []panel.Section
	Inputs() []panel.Input
}

// MQTT bridges the panel state to an MQTT broker: it publishes section
// and input updates on retained topics and accepts operator commands
// on the command topics.
type MQTT struct {
	config *config.MQTTConfig
	panel  bridgePanel
	log    *log.Logger
	client mqtt.Client
	topics *Topics
}

func NewMQTT(cfg *config.MQTTConfig, p bridgePanel, logger *log.Logger) *MQTT {
	return &MQTT{
		config: cfg,
		panel:  p,
		log:    logger,
		topics: NewTopics(cfg.Prefix),
	}
}

func (m *MQTT) Connect() error {
	host := m.config.Host
	port := m.config.Port
	if strings.HasPrefix(host, "mqtt://") {
		host, port = ParseURL(host)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", host, port))
	opts.SetClientID(m.config.ClientID)
	opts.SetUsername(m.config.Username)
	opts.SetPassword(m.config.Password)
	opts.SetCleanSession(m.config.Clean)
	opts.SetKeepAlive(time.Duration(m.config.Keepalive) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onDisconnect)

	opts.SetWill(m.topics.Status(), offlinePayload, byte(m.config.QOS), m.config.Retain)

	m.client = mqtt.NewClient(opts)

	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	m.log.Info("Connected to MQTT broker: %s:%d", host, port)
	return nil
}

func (m *MQTT) onConnect(client mqtt.Client) {
	m.log.Info("MQTT connection established")
	m.publishOnlineStatus()
	m.subscribeTopics()
	m.PublishAll()
}

func (m *MQTT) onDisconnect(client mqtt.Client, err error) {
	m.log.Error("MQTT connection lost: %v", err)
}

func (m *MQTT) subscribeTopics() {
	topics := []string{
		m.topics.SectionCommandPattern(),
		m.topics.InputBypassPattern(),
		m.topics.Refresh(),
	}

	for _, topic := range topics {
		token := m.client.Subscribe(topic, byte(m.config.QOS), m.handleMessage)
		if token.Wait() && token.Error() != nil {
			m.log.Error("Failed to subscribe to topic %s: %v", topic, token.Error())
		} else {
			m.log.Debug("Subscribed to topic: %s", topic)
		}
	}
}

func (m *MQTT) handleMessage(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	payload := msg.Payload()

	m.log.Debug("Received message on topic %s: %s", topic, payload)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if number, ok := m.topics.ParseSectionCommand(topic); ok {
		m.handleSectionCommand(ctx, number, payload)
		return
	}
	if number, ok := m.topics.ParseInputBypass(topic); ok {
		m.handleInputBypass(ctx, number, payload)
		return
	}
	if topic == m.topics.Refresh() {
		m.handleRefresh(ctx)
		return
	}

	m.log.Warning("Received message on unknown topic: %s", topic)
}

func (m *MQTT) handleSectionCommand(ctx context.Context, number int, payload []byte) {
	cmd, err := parseSectionCommand(payload)
	if err != nil {
		m.log.Error("Invalid command for section %d: %v", number, err)
		return
	}

	switch cmd.Action {
	case "arm":
		if err := m.panel.Arm(ctx, number, cmd.Code); err != nil {
			m.log.Error("Arm command for section %d failed: %v", number, err)
		}
	case "disarm":
		if err := m.panel.Disarm(ctx, number, cmd.Code); err != nil {
			m.log.Error("Disarm command for section %d failed: %v", number, err)
		}
	default:
		m.log.Warning("Unknown section command: %s", cmd.Action)
	}
}

func (m *MQTT) handleInputBypass(ctx context.Context, number int, payload []byte) {
	cmd, err := parseBypassCommand(payload)
	if err != nil {
		m.log.Error("Invalid bypass command for input %d: %v", number, err)
		return
	}

	if cmd.On {
		if err := m.panel.Bypass(ctx, number, cmd.Code); err != nil {
			m.log.Error("Bypass command for input %d failed: %v", number, err)
		}
	} else {
		if err := m.panel.Unbypass(ctx, number, cmd.Code); err != nil {
			m.log.Error("Unbypass command for input %d failed: %v", number, err)
		}
	}
}

func (m *MQTT) handleRefresh(ctx context.Context) {
	if err := m.panel.Refresh(ctx); err != nil {
		m.log.Error("Refresh command failed: %v", err)
		return
	}
	m.PublishAll()
}

// sectionCommand is an operator command payload: the bare action word
// or a JSON object carrying an access code alongside it.
type sectionCommand struct {
	Action string `json:"action"`
	Code   string `json:"code"`
}

func parseSectionCommand(payload []byte) (sectionCommand, error) {
	var cmd sectionCommand
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &cmd); err != nil {
			return cmd, fmt.Errorf("bad JSON payload: %v", err)
		}
	} else {
		cmd.Action = string(trimmed)
	}

	cmd.Action = strings.ToLower(cmd.Action)
	if cmd.Action == "" {
		return cmd, fmt.Errorf("empty command")
	}
	return cmd, nil
}

// bypassCommand is an input bypass payload: on/off, or a JSON object
// with a state and an access code.
type bypassCommand struct {
	On   bool
	Code string
}

func parseBypassCommand(payload []byte) (bypassCommand, error) {
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var raw struct {
			State string `json:"state"`
			Code  string `json:"code"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return bypassCommand{}, fmt.Errorf("bad JSON payload: %v", err)
		}
		on, err := parseOnOff(raw.State)
		if err != nil {
			return bypassCommand{}, err
		}
		return bypassCommand{On: on, Code: raw.Code}, nil
	}

	on, err := parseOnOff(string(trimmed))
	if err != nil {
		return bypassCommand{}, err
	}
	return bypassCommand{On: on}, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("unknown bypass state: %q", s)
	}
}

func (m *MQTT) publishOnlineStatus() {
	m.publishRaw(m.topics.Status(), onlinePayload, true)
}

// PublishAll publishes the full section and input view. Used after
// connect and refresh so subscribers converge without waiting for the
// next change.
func (m *MQTT) PublishAll() {
	for _, s := range m.panel.Sections() {
		m.PublishSection(s)
	}
	for _, in := range m.panel.Inputs() {
		m.PublishInput(in)
	}
}

func (m *MQTT) PublishSection(s panel.Section) {
	status := map[string]interface{}{
		"number":  s.Number,
		"state":   s.State.String(),
		"code":    byte(s.State),
		"pending": s.Pending,
	}
	m.publish(m.topics.SectionState(s.Number), status, true)
}

func (m *MQTT) PublishInput(in panel.Input) {
	status := map[string]interface{}{
		"number":      in.Number,
		"name":        in.Name,
		"slug":        in.Slug,
		"sensor_type": in.SensorType.String(),
		"status":      in.Status.String(),
		"open":        in.Status.Open(),
		"tamper":      in.Status.Tamper(),
		"masked":      in.Status.Masked(),
		"bypassed":    in.Status.Bypassed(),
		"low_battery": in.Status.LowBattery(),
	}
	m.publish(m.topics.InputState(in.Number), status, true)
}

func (m *MQTT) PublishEvent(ev unii.Event) {
	event := map[string]interface{}{
		"section": ev.Section,
		"state":   ev.State.String(),
		"source":  ev.Source.String(),
	}
	if ev.Text != "" {
		event["text"] = ev.Text
	}
	m.publish(m.topics.Event(), event, m.config.RetainLog)
}

func (m *MQTT) publish(topic string, message interface{}, retain bool) {
	payload, err := json.Marshal(message)
	if err != nil {
		m.log.Error("Failed to marshal message for topic %s: %v", topic, err)
		return
	}
	m.publishRaw(topic, string(payload), retain)
}

func (m *MQTT) publishRaw(topic, payload string, retain bool) {
	token := m.client.Publish(topic, byte(m.config.QOS), retain, payload)
	if token.Wait() && token.Error() != nil {
		m.log.Error("Failed to publish message to topic %s: %v", topic, token.Error())
	} else {
		m.log.Debug("Published message to topic: %s", topic)
	}
}

func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.publishRaw(m.topics.Status(), offlinePayload, true)
		m.client.Disconnect(250)
	}
}
