package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"

	"vibration-monitor/utils"
	"vibration-monitor/vibration"
)

const DefaultTopic = "vibration/history"

// HistoryPayload is the message published for each accepted history entry.
type HistoryPayload struct {
	vibration.HistoryEntry
	Scenario *string                  `json:"scenario,omitempty"`
	Peaks    []vibration.SpectralPeak `json:"peaks"`
}

// Config describes the broker connection.
type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	// PublishTimeout bounds how long a publish may wait for the broker.
	PublishTimeout time.Duration
}

// Publisher forwards accepted history entries to an MQTT topic. It
// implements vibration.Observer; publishing never blocks the pipeline.
type Publisher struct {
	client mqtt.Client
	cfg    Config
}

func New(cfg Config) (*Publisher, error) {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "vibration-monitor-" + uuid.NewString()[:8]
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("MQTT: Connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT: Connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("MQTT: Publishing history to %s on %s", cfg.Topic, cfg.Broker)
	return &Publisher{client: client, cfg: cfg}, nil
}

func (p *Publisher) OnSample(vibration.StatSnapshot, int) {}

func (p *Publisher) OnClassification(outcome vibration.ClassificationOutcome) {
	if !outcome.Recorded || outcome.Entry == nil {
		return
	}

	payload, err := json.Marshal(HistoryPayload{
		HistoryEntry: *outcome.Entry,
		Scenario:     outcome.Event.Scenario,
		Peaks:        outcome.Peaks,
	})
	if err != nil {
		utils.GetLogger().Error("failed to encode history payload", slog.Any("error", xerrors.New(err)))
		return
	}

	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
	go func() {
		if !token.WaitTimeout(p.cfg.PublishTimeout) {
			utils.GetLogger().Warn("MQTT publish timed out", slog.String("topic", p.cfg.Topic))
			return
		}
		if err := token.Error(); err != nil {
			utils.GetLogger().Error("MQTT publish failed",
				slog.String("topic", p.cfg.Topic),
				slog.Any("error", xerrors.New(err)),
			)
		}
	}()
}

// Close disconnects after giving in-flight messages a moment to drain.
func (p *Publisher) Close(ctx context.Context) {
	quiesce := uint(250)
	if deadline, ok := ctx.Deadline(); ok {
		if ms := time.Until(deadline).Milliseconds(); ms > 0 && ms < int64(quiesce) {
			quiesce = uint(ms)
		}
	}
	p.client.Disconnect(quiesce)
}
