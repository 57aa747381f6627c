package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Astemirdum/lending-service/pkg/circuit_breaker"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

type EventLog struct {
	producer sarama.SyncProducer
	topic    string
	cb       circuit_breaker.CircuitBreaker
}

func NewEventLog(producer sarama.SyncProducer, topic string, cb circuit_breaker.CircuitBreaker) *EventLog {
	return &EventLog{
		producer: producer,
		topic:    topic,
		cb:       cb,
	}
}

// Log publishes the event keyed by book id. It fails fast while the breaker is open.
func (l *EventLog) Log(_ context.Context, ev EventBorrowing) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.BookID, 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("x-event-type"), Value: []byte(ev.EventType)},
			{Key: []byte("x-event-version"), Value: []byte(strconv.Itoa(ev.EventVersion))},
		},
	}
	return l.cb.Call(func() error {
		_, _, err := l.producer.SendMessage(msg)
		return err
	})
}

func (l *EventLog) Close() error {
	return l.producer.Close()
}
