package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads mirrored events back off the topic for the rollup pipeline.
type Consumer struct {
	reader MessageReader
	logger *logrus.Logger
}

func NewKafkaReader(brokerURL, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{brokerURL},
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset, // new groups start from the retained log
	})
}

func NewConsumer(reader MessageReader, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader: reader,
		logger: logger,
	}
}

// ReadEvent blocks until the next decodable event arrives. Undecodable
// messages are logged and skipped so one bad payload cannot stall the group.
func (c *Consumer) ReadEvent(ctx context.Context) (EventMessage, error) {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return EventMessage{}, fmt.Errorf("failed to read message: %w", err)
		}

		event, err := DecodeEvent(message)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"partition": message.Partition,
				"offset":    message.Offset,
			}).Warn("Skipping undecodable event")
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"key":        string(message.Key),
			"event_type": event.EventType,
			"offset":     message.Offset,
		}).Debug("Read event from Kafka")
		return event, nil
	}
}

func DecodeEvent(message kafka.Message) (EventMessage, error) {
	var event EventMessage
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return EventMessage{}, fmt.Errorf("decode event at offset %d: %w", message.Offset, err)
	}
	if event.EventType == "" {
		return EventMessage{}, fmt.Errorf("decode event at offset %d: missing event_type", message.Offset)
	}
	return event, nil
}

func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
