package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"adlink-platform/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// EventMessage is the JSON body of a mirrored ad event.
type EventMessage struct {
	ID          uint      `json:"id"`
	EventType   string    `json:"event_type"`
	PlacementID *uint     `json:"placement_id,omitempty"`
	CreativeID  *uint     `json:"creative_id,omitempty"`
	CampaignID  *uint     `json:"campaign_id,omitempty"`
	SiteDomain  string    `json:"site_domain,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewEventMessage(e *models.Event) EventMessage {
	return EventMessage{
		ID:          e.ID,
		EventType:   e.EventType,
		PlacementID: e.PlacementID,
		CreativeID:  e.CreativeID,
		CampaignID:  e.CampaignID,
		SiteDomain:  e.SiteDomain,
		CreatedAt:   e.CreatedAt,
	}
}

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

func NewKafkaWriter(brokerURL, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokerURL),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// Producer mirrors persisted events to a topic. Writes go through a circuit breaker so a
// dead broker costs one fast failure per request instead of a write timeout.
type Producer struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[interface{}]
	logger  *logrus.Logger
}

func NewProducer(writer MessageWriter, cfg BreakerConfig, logger *logrus.Logger) *Producer {
	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "kafka-event-mirror",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Producer{
		writer:  writer,
		breaker: breaker,
		logger:  logger,
	}
}

func (p *Producer) PublishEvent(ctx context.Context, e *models.Event) error {
	value, err := json.Marshal(NewEventMessage(e))
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", e.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.ID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("write event %d to kafka: %w", e.ID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":   e.ID,
		"event_type": e.EventType,
	}).Debug("Mirrored event to Kafka")
	return nil
}

func (p *Producer) State() string {
	return p.breaker.State().String()
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
