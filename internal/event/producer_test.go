package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaarage/storefront/internal/domain"
	pkgkafka "github.com/gaarage/storefront/pkg/kafka"
	"github.com/gaarage/storefront/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
	return nil
}

func lines() []domain.CartLine {
	return []domain.CartLine{
		{ProductID: 1, Name: "Thé", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{ProductID: 2, Name: "Pain", UnitPrice: decimal.NewFromInt(3), Quantity: 1},
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "storefront.cart.updated", TopicCartUpdated)
	assert.Equal(t, "storefront.cart.cleared", TopicCartCleared)
	assert.Equal(t, "storefront.order.placed", TopicOrderPlaced)
}

func TestProducer_PublishCartUpdated(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, logger.Discard())

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishCartUpdated(ctx, domain.UserIdentity("42"), lines()))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, TopicCartUpdated, pub.topics[0])
	assert.Equal(t, TopicCartUpdated, ev.Type)
	assert.Equal(t, "user:42", ev.Key)
	assert.Equal(t, SourceStorefront, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)

	var data CartUpdatedData
	require.NoError(t, ev.Decode(&data))
	assert.Equal(t, 3, data.ItemCount)
	assert.True(t, data.Total.Equal(decimal.NewFromInt(28)))
	require.Len(t, data.Items, 2)
	assert.Equal(t, "Thé", data.Items[0].Name)
}

func TestProducer_PublishCartCleared(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, logger.Discard())

	require.NoError(t, p.PublishCartCleared(context.Background(), domain.Guest))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "guest", pub.events[0].Key)
	assert.Empty(t, pub.events[0].CorrelationID)
}

func TestProducer_PublishOrderPlaced(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, logger.Discard())

	err := p.PublishOrderPlaced(context.Background(), OrderPlacedData{
		OrderID:  7,
		Identity: "user:42",
		Total:    decimal.NewFromInt(40),
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicOrderPlaced, pub.events[0].Type)
	assert.Contains(t, Summary(pub.events[0]), "order placed")
	assert.Contains(t, Summary(pub.events[0]), "order=7 total=40.00")
}

func TestProducer_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := NewProducer(pub, logger.Discard())

	err := p.PublishCartCleared(context.Background(), domain.Guest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.cart.cleared event")
	assert.Contains(t, err.Error(), "broker down")
}

func TestProducer_WithoutPublisherIsNoop(t *testing.T) {
	p := NewProducer(nil, logger.Discard())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishCartUpdated(context.Background(), domain.Guest, lines()))

	var nilProducer *Producer
	assert.False(t, nilProducer.Enabled())
	assert.NoError(t, nilProducer.PublishCartCleared(context.Background(), domain.Guest))
}

func TestSummary(t *testing.T) {
	updated, err := pkgkafka.NewEvent(TopicCartUpdated, "guest", SourceStorefront, CartUpdatedData{
		Identity: "guest", ItemCount: 3, Total: decimal.RequireFromString("28"),
	})
	require.NoError(t, err)
	assert.Contains(t, Summary(updated), "cart updated")
	assert.Contains(t, Summary(updated), "items=3 total=28.00")

	cleared, err := pkgkafka.NewEvent(TopicCartCleared, "guest", SourceStorefront, CartClearedData{Identity: "guest"})
	require.NoError(t, err)
	assert.Contains(t, Summary(cleared), "cart cleared  guest")

	other, err := pkgkafka.NewEvent("storefront.misc.thing", "k", SourceStorefront, map[string]int{})
	require.NoError(t, err)
	assert.Contains(t, Summary(other), "storefront.misc.thing key=k")
}
