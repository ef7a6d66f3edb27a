package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/bibliotec/catalog-service/pkg/circuit_breaker"
	"github.com/bibliotec/catalog-service/pkg/kafka"
)

type Type string

const (
	OrderCreated Type = "ORDER_CREATED"
	OrderIssued  Type = "ORDER_ISSUED"
	LoanCreated  Type = "LOAN_CREATED"
	LoanReturned Type = "LOAN_RETURNED"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	ReaderID   int       `json:"readerId,omitempty"`
	BookID     int       `json:"bookId,omitempty"`
	LoanID     int       `json:"loanId,omitempty"`
	OrderID    int       `json:"orderId,omitempty"`
}

func New(t Type) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher emits audit events. Publishing is best effort: callers log
// failures and move on, the operation itself never depends on it.
type Publisher interface {
	Publish(e Event) error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	cb       circuit_breaker.CircuitBreaker
}

func NewPublisher(producer sarama.SyncProducer) Publisher {
	return &kafkaPublisher{
		producer: producer,
		cb:       circuit_breaker.New(20, 30*time.Second, 0.5, 5),
	}
}

func (p *kafkaPublisher) Publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.cb.Call(func() error {
		msg := &sarama.ProducerMessage{Topic: kafka.AuditTopic, Value: sarama.StringEncoder(data)}
		_, _, err := p.producer.SendMessage(msg)
		return err
	})
}

type nopPublisher struct{}

// NewNopPublisher is used when no brokers are configured.
func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(Event) error { return nil }
