package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartPayload struct {
	Identity string `json:"identity"`
	Items    int    `json:"items"`
}

func TestNewEvent_Fields(t *testing.T) {
	before := time.Now().UTC()
	event, err := NewEvent("cart.updated", "user:42", "storefront", cartPayload{Identity: "user:42", Items: 3})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "cart.updated", event.Type)
	assert.Equal(t, "user:42", event.Key)
	assert.Equal(t, "storefront", event.Source)
	assert.False(t, event.OccurredAt.Before(before))
	assert.JSONEq(t, `{"identity":"user:42","items":3}`, string(event.Payload))
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent("cart.updated", "guest", "storefront", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart.updated")
}

func TestEvent_ParseRoundTrip(t *testing.T) {
	event, err := NewEvent("order.placed", "991", "storefront", cartPayload{Items: 1})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1").WithMetadata("destination", "Rabat")

	data, err := event.Marshal()
	require.NoError(t, err)

	parsed, err := ParseEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.ID, parsed.ID)
	assert.Equal(t, "corr-1", parsed.CorrelationID)
	assert.Equal(t, "Rabat", parsed.Metadata["destination"])

	var payload cartPayload
	require.NoError(t, parsed.Decode(&payload))
	assert.Equal(t, 1, payload.Items)
}

func TestParseEvent_Invalid(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`{"id":"x"}`))
	assert.Error(t, err)

	_, err = ParseEvent(nil)
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.updated", Topic("cart", "updated"))
	assert.Equal(t, "storefront.cart.cleared", Topic("cart", "cleared"))
	assert.Equal(t, "storefront.order.placed", Topic("order", "placed"))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
}

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

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil)
	topic := Topic("cart", "updated")

	event, err := NewEvent("cart.updated", "user:7", "storefront", cartPayload{Identity: "user:7", Items: 2})
	require.NoError(t, err)
	event.WithCorrelationID("corr-9")

	before := testutil.ToFloat64(ProducerMessagesPublished.WithLabelValues(topic))
	require.NoError(t, p.Publish(context.Background(), topic, event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, "user:7", string(msg.Key))
	assert.Equal(t, "cart.updated", header(msg, "event_type"))
	assert.Equal(t, "storefront", header(msg, "source"))
	assert.Equal(t, "corr-9", header(msg, "correlation_id"))

	parsed, err := ParseEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.ID, parsed.ID)
	assert.Equal(t, before+1, testutil.ToFloat64(ProducerMessagesPublished.WithLabelValues(topic)))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, nil)
	topic := Topic("order", "placed")

	event, err := NewEvent("order.placed", "991", "storefront", cartPayload{Items: 1})
	require.NoError(t, err)

	before := testutil.ToFloat64(ProducerPublishErrors.WithLabelValues(topic))
	err = p.Publish(context.Background(), topic, event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Contains(t, err.Error(), topic)
	assert.Equal(t, before+1, testutil.ToFloat64(ProducerPublishErrors.WithLabelValues(topic)))
}

func TestMessage_NoCorrelationHeader(t *testing.T) {
	event, err := NewEvent("cart.cleared", "guest", "storefront", cartPayload{})
	require.NoError(t, err)

	msg, err := Message(context.Background(), Topic("cart", "cleared"), event)
	require.NoError(t, err)
	assert.Empty(t, header(msg, "correlation_id"))
}

func TestNewProducer_ClosesWithoutBroker(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil)
	require.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestPingBrokers_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := PingBrokers(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brokers unreachable")
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
