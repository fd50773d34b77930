package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"campuspark/pkg/kafka"
)

// Metrics counts publish and consume outcomes for the health endpoint.
type Metrics struct {
	published     atomic.Int64
	publishFailed atomic.Int64
	publishNanos  atomic.Int64
	consumed      atomic.Int64
	consumeFailed atomic.Int64
	consumeNanos  atomic.Int64
}

type Snapshot struct {
	Published        int64   `json:"published"`
	PublishFailed    int64   `json:"publish_failed"`
	AvgPublishMillis float64 `json:"avg_publish_ms"`
	Consumed         int64   `json:"consumed"`
	ConsumeFailed    int64   `json:"consume_failed"`
	AvgConsumeMillis float64 `json:"avg_consume_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() Snapshot {
	published, consumed := m.published.Load(), m.consumed.Load()
	return Snapshot{
		Published:        published,
		PublishFailed:    m.publishFailed.Load(),
		AvgPublishMillis: avgMillis(m.publishNanos.Load(), published),
		Consumed:         consumed,
		ConsumeFailed:    m.consumeFailed.Load(),
		AvgConsumeMillis: avgMillis(m.consumeNanos.Load(), consumed),
	}
}

func avgMillis(totalNanos, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos/count) / float64(time.Millisecond)
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			m.publishFailed.Add(1)
			return err
		}
		m.published.Add(1)
		m.publishNanos.Add(int64(time.Since(start)))
		return nil
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		if err != nil {
			m.consumeFailed.Add(1)
			return err
		}
		m.consumed.Add(1)
		m.consumeNanos.Add(int64(time.Since(start)))
		return nil
	}
}
