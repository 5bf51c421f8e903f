package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishOrderCreated(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(newProducer(w))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:    12,
		UserID:     3,
		TotalPrice: 250,
		Items:      []models.OrderItemData{{ProductID: 1, Quantity: 2, UnitPrice: 100}, {ProductID: 2, Quantity: 1, UnitPrice: 50}},
	}

	require.NoError(t, ep.PublishOrderCreated(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-12", string(w.msgs[0].Key))

	var decoded models.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTypeOrderCreated, decoded.EventType)
	assert.Equal(t, int64(250), decoded.TotalPrice)
	assert.Len(t, decoded.Items, 2)
}

func TestPublishOrderCancelledWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	ep := NewEventPublisher(newProducer(w))

	err := ep.PublishOrderCancelled(context.Background(), &models.OrderCancelledEvent{OrderID: 5, UserID: 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestProducerClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newProducer(w).Close())
	assert.True(t, w.closed)
}
