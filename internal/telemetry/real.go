package telemetry

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/config"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/logger"
	"github.com/DonHugo/sun-heat-and-ftx-sub004/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	defaultBufferSize = 256
)

// RealPublisher publishes to an MQTT broker. Events and aggregates are
// buffered across broker outages and replayed on reconnect; subscriptions
// registered through SubscribeCommands are restored the same way.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    *logger.Logger

	mu   sync.Mutex
	buf  *ringBuffer
	subs []subscription
}

type subscription struct {
	topic   string
	qos     byte
	handler paho.MessageHandler
}

// NewRealPublisher connects to the configured broker. A broker that is down
// at boot is not fatal: the client keeps retrying in the background and
// buffered messages are replayed once connected.
func NewRealPublisher(cfg config.MQTT, log *logger.Logger) (*RealPublisher, error) {
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	p := &RealPublisher{
		topics: NewTopics(cfg.TopicPrefix),
		log:    log,
		buf:    newRingBuffer(size),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		log.Warnw("mqtt broker unreachable, buffering until connected", "broker", cfg.Broker)
	}
	return p, nil
}

// Topics returns the topic layout the publisher was configured with.
func (p *RealPublisher) Topics() Topics { return p.topics }

// PublishStatus sends the per-tick status record at QoS 0. Stale statuses
// are worthless, so nothing is buffered while disconnected.
func (p *RealPublisher) PublishStatus(rec models.StatusRecord) error {
	if !p.client.IsConnected() {
		return nil
	}
	payload, err := FormatStatus(rec)
	if err != nil {
		return fmt.Errorf("format status: %w", err)
	}
	return p.send(p.topics.Status, 0, payload)
}

// PublishEvent sends a journal event at QoS 1, buffering while disconnected.
func (p *RealPublisher) PublishEvent(ev models.Event) error {
	payload, err := FormatEvent(ev)
	if err != nil {
		return fmt.Errorf("format event: %w", err)
	}
	return p.deliver(p.topics.Events, payload)
}

// PublishAggregate sends a completed period bucket at QoS 1, buffering
// while disconnected.
func (p *RealPublisher) PublishAggregate(agg models.PeriodAggregate) error {
	payload, err := FormatAggregate(agg)
	if err != nil {
		return fmt.Errorf("format aggregate: %w", err)
	}
	topic := p.topics.EnergyHour
	if agg.Period == models.PeriodDay {
		topic = p.topics.EnergyDay
	}
	return p.deliver(topic, payload)
}

// deliver publishes at QoS 1 (at-least-once) or buffers when disconnected.
func (p *RealPublisher) deliver(topic string, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: 1})
		p.mu.Unlock()
		return nil
	}
	return p.send(topic, 1, payload)
}

func (p *RealPublisher) send(topic string, qos byte, payload []byte) error {
	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// subscribe registers a handler and subscribes immediately when connected.
// The subscription list is replayed by onConnect after every reconnect.
func (p *RealPublisher) subscribe(topic string, qos byte, handler paho.MessageHandler) {
	p.mu.Lock()
	p.subs = append(p.subs, subscription{topic: topic, qos: qos, handler: handler})
	p.mu.Unlock()
	if p.client.IsConnected() {
		token := p.client.Subscribe(topic, qos, handler)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			p.log.Warnw("mqtt subscribe failed", "topic", topic, "error", token.Error())
		}
	}
}

// onConnect runs after every successful (re)connect: restore subscriptions,
// then replay whatever was buffered during the outage.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	dropped := p.buf.dropped
	pending := p.buf.drainAll()
	p.mu.Unlock()

	for _, s := range subs {
		token := client.Subscribe(s.topic, s.qos, s.handler)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			p.log.Warnw("mqtt subscribe failed", "topic", s.topic, "error", token.Error())
		}
	}

	if len(pending) == 0 {
		return
	}
	if dropped > 0 {
		p.log.Warnw("telemetry buffer overflowed during outage", "dropped", dropped)
	}
	p.log.Infow("mqtt connected, replaying buffered telemetry", "pending", len(pending))
	for i, msg := range pending {
		token := client.Publish(msg.topic, msg.qos, false, msg.payload)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			p.mu.Lock()
			for _, rest := range pending[i:] {
				p.buf.push(rest)
			}
			p.mu.Unlock()
			p.log.Warnw("replay interrupted, rebuffered remainder", "remaining", len(pending)-i)
			return
		}
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
