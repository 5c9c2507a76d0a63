// Package feed consumes the raw change-event stream from Kafka and hands
// each record to the ingestor. Delivery is at-least-once and unordered; the
// ingestor's dedup and late-event policy absorbs both.
package feed

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"schooltrack/internal/core/model"
)

type Sink interface {
	Submit(ev model.RawEvent)
}

type Consumer struct {
	reader *kafka.Reader
	sink   Sink
}

func NewConsumer(brokers []string, topic, groupID string, sink Sink) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, sink: sink}
}

// Run reads until the context is cancelled. One undecodable message is
// logged and skipped; the stream keeps flowing.
func (c *Consumer) Run(ctx context.Context) {
	log.Printf("Event feed consuming from %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Event feed stopped")
				return
			}
			log.Printf("Event feed read error: %v", err)
			continue
		}

		var raw model.RawEvent
		if err := json.Unmarshal(msg.Value, &raw); err != nil {
			log.Printf("Event feed: undecodable message at offset %d: %v", msg.Offset, err)
			continue
		}
		c.sink.Submit(raw)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
