package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/pinpad/helpers"
	sink_config "github.com/temoto/pinpad/internal/sink/config"
	"github.com/temoto/pinpad/log2"
)

const mqttQos = 1

// subset of mqtt.Client
type mqttClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Mqtt publishes protobuf Entry to <topic_prefix>/entry with QoS 1
// and waits for broker acknowledgement.
type Mqtt struct {
	mu         sync.Mutex
	log        *log2.Log
	clock      helpers.Clock
	c          mqttClient
	topic      string
	terminalId uint32
}

func NewMqtt(log *log2.Log, config *sink_config.Config, clock helpers.Clock) (*Mqtt, error) {
	c := config.Mqtt
	if c.Broker == "" {
		return nil, errors.NotValidf("sink mqtt broker empty")
	}
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log
	if c.LogDebug {
		mqtt.DEBUG = log
	}

	clientId := c.ClientId
	if clientId == "" {
		clientId = fmt.Sprintf("pinpad%d", config.TerminalId)
	}
	topicPrefix := c.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = clientId
	}
	opt := mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(clientId).
		SetUsername(c.Username).
		SetPassword(c.Password).
		SetCleanSession(true).
		SetKeepAlive(helpers.IntSecondDefault(c.KeepaliveSec, 60*time.Second)).
		SetConnectTimeout(helpers.IntSecondDefault(c.ConnectTimeout, 10*time.Second)).
		// reconnect on demand in Append
		SetAutoReconnect(false).
		SetOnConnectHandler(func(mqtt.Client) { log.Infof("sink mqtt connected broker=%s", c.Broker) }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { log.Errorf("sink mqtt connection lost err=%v", err) })
	return newMqtt(log, mqtt.NewClient(opt), topicPrefix, uint32(config.TerminalId), clock), nil
}

func newMqtt(log *log2.Log, c mqttClient, topicPrefix string, terminalId uint32, clock helpers.Clock) *Mqtt {
	return &Mqtt{
		log:        log,
		clock:      clock,
		c:          c,
		topic:      topicPrefix + "/entry",
		terminalId: terminalId,
	}
}

func (self *Mqtt) Topic() string { return self.topic }

// Connect tries to reach broker once. Failure is not fatal, Append reconnects.
func (self *Mqtt) Connect(ctx context.Context) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.connect(ctx)
}

func (self *Mqtt) Append(ctx context.Context, identifier string) error {
	entry := NewEntry(identifier, self.clock.Now(), self.terminalId)
	payload, err := proto.Marshal(entry)
	if err != nil {
		return errors.Annotate(err, "sink mqtt marshal")
	}

	self.mu.Lock()
	defer self.mu.Unlock()
	if err = self.connect(ctx); err != nil {
		return err
	}
	if err = self.wait(ctx, self.c.Publish(self.topic, mqttQos, false, payload), "publish"); err != nil {
		return err
	}
	self.log.Debugf("sink mqtt published topic=%s entry=%s", self.topic, entry.String())
	return nil
}

func (self *Mqtt) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.c.IsConnected() {
		self.c.Disconnect(250)
	}
	return nil
}

func (self *Mqtt) connect(ctx context.Context) error {
	if self.c.IsConnected() {
		return nil
	}
	return self.wait(ctx, self.c.Connect(), "connect")
}

func (self *Mqtt) wait(ctx context.Context, t mqtt.Token, op string) error {
	if err := ctx.Err(); err != nil {
		return errors.Annotatef(err, "sink mqtt %s", op)
	}
	timeout := remaining(ctx, DefaultTimeout)
	if timeout <= 0 || !t.WaitTimeout(timeout) {
		return errors.Timeoutf("sink mqtt %s", op)
	}
	if err := t.Error(); err != nil {
		return errors.Annotatef(err, "sink mqtt %s", op)
	}
	return nil
}
