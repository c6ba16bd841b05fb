package repository

import (
	"context"
	"fmt"
	"time"

	"WhaleTrail/internal/domain/models"
	pkgkafka "WhaleTrail/pkg/kafka"
)

// KafkaNotifier publishes accepted signals and terminal order outcomes to
// the notification topics consumed by the alerting front end.
type KafkaNotifier struct {
	producer     *pkgkafka.Producer
	signalsTopic string
	ordersTopic  string
}

func NewKafkaNotifier(producer *pkgkafka.Producer, signalsTopic, ordersTopic string) *KafkaNotifier {
	return &KafkaNotifier{
		producer:     producer,
		signalsTopic: signalsTopic,
		ordersTopic:  ordersTopic,
	}
}

type signalEvent struct {
	Type      string              `json:"type"`
	Signal    *models.TradeSignal `json:"signal"`
	EmittedAt time.Time           `json:"emitted_at"`
}

func (n *KafkaNotifier) SignalAccepted(ctx context.Context, sig *models.TradeSignal) error {
	if sig == nil {
		return fmt.Errorf("signal is nil")
	}
	ev := signalEvent{
		Type:      "signal_accepted",
		Signal:    sig,
		EmittedAt: time.Now().UTC(),
	}
	if err := n.producer.Publish(ctx, n.signalsTopic, []byte(sig.Token), ev); err != nil {
		return fmt.Errorf("publish signal: %w", err)
	}
	return nil
}

type orderEvent struct {
	Type      string              `json:"type"`
	Order     *models.OrderResult `json:"order"`
	EmittedAt time.Time           `json:"emitted_at"`
}

func (n *KafkaNotifier) OrderCompleted(ctx context.Context, res *models.OrderResult) error {
	if res == nil {
		return fmt.Errorf("order result is nil")
	}
	ev := orderEvent{
		Type:      "order_completed",
		Order:     res,
		EmittedAt: time.Now().UTC(),
	}
	key := res.OrderID
	if key == "" {
		key = string(res.Status)
	}
	if err := n.producer.Publish(ctx, n.ordersTopic, []byte(key), ev); err != nil {
		return fmt.Errorf("publish order: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
