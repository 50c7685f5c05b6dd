package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Notifier delivers one "new pending orders" notification outside the
// dashboard itself.
type Notifier interface {
	Notify(ctx context.Context, pending int) error
}

// CommandNotifier shells out to a desktop notifier (notify-send
// style): the configured command gets title and body appended.
type CommandNotifier struct {
	command string
	logger  *zap.Logger
}

func NewCommandNotifier(command string, logger *zap.Logger) *CommandNotifier {
	return &CommandNotifier{command: command, logger: logger}
}

func (n *CommandNotifier) Notify(ctx context.Context, pending int) error {
	if strings.TrimSpace(n.command) == "" {
		return fmt.Errorf("no notify command configured")
	}
	argv := strings.Fields(n.command)
	argv = append(argv,
		"🍽️ มีออเดอร์ใหม่",
		fmt.Sprintf("รอรับออเดอร์ %d รายการ", pending),
	)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run notifier: %w", err)
	}
	return nil
}

// MQTTNotifier publishes pending alerts to a ward display topic.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewMQTTNotifier connects to the broker. The connection is kept for
// the life of the process; Close releases it.
func NewMQTTNotifier(broker, clientID, topic string, qos byte, logger *zap.Logger) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTNotifier{client: client, topic: topic, qos: qos, logger: logger}, nil
}

type pendingAlert struct {
	PendingCount int       `json:"pendingCount"`
	At           time.Time `json:"at"`
}

func (n *MQTTNotifier) Notify(ctx context.Context, pending int) error {
	payload, err := json.Marshal(pendingAlert{PendingCount: pending, At: time.Now()})
	if err != nil {
		return err
	}
	token := n.client.Publish(n.topic, n.qos, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", n.topic, token.Error())
	}
	return nil
}

func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
