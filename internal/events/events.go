// Package events publishes check-in events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// CheckinEvent is emitted after a check-in is recorded.
type CheckinEvent struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"group_id"`
	MemberID string    `json:"member_id"`
	Day      string    `json:"day"`
	Streak   int       `json:"streak"`
	Total    int       `json:"total"`
	At       time.Time `json:"at"`
}

// Publisher delivers check-in events.
type Publisher interface {
	PublishCheckin(ctx context.Context, ev CheckinEvent) error
	Close() error
}

// NewCheckinEvent fills in a fresh event ID.
func NewCheckinEvent(groupID, memberID, day string, streak, total int, at time.Time) CheckinEvent {
	return CheckinEvent{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		MemberID: memberID,
		Day:      day,
		Streak:   streak,
		Total:    total,
		At:       at,
	}
}

// Encode returns the message key and JSON value for ev. Events are keyed
// by group so a group's events stay ordered within a partition.
func Encode(ev CheckinEvent) (key, value []byte, err error) {
	value, err = json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode checkin event: %w", err)
	}
	return []byte(ev.GroupID), value, nil
}

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates an async writer for topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

// PublishCheckin enqueues ev.
func (p *KafkaPublisher) PublishCheckin(ctx context.Context, ev CheckinEvent) error {
	key, value, err := Encode(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  ev.At,
	})
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishCheckin(context.Context, CheckinEvent) error { return nil }
func (Nop) Close() error                                     { return nil }
