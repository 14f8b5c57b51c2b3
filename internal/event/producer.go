// Package event publishes storefront activity to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gaarage/storefront/internal/domain"
	pkgkafka "github.com/gaarage/storefront/pkg/kafka"
	"github.com/gaarage/storefront/pkg/logger"
)

// Topics written by the storefront client.
var (
	TopicCartUpdated = pkgkafka.Topic("cart", "updated")
	TopicCartCleared = pkgkafka.Topic("cart", "cleared")
	TopicOrderPlaced = pkgkafka.Topic("order", "placed")
)

// SourceStorefront identifies events originating from this client.
const SourceStorefront = "storefront-client"

// Publisher writes one event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	Identity  string          `json:"identity"`
	Items     []CartItemData  `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartItemData is one line within cart and order payloads.
type CartItemData struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	Identity string `json:"identity"`
}

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID       int64           `json:"order_id,omitempty"`
	Identity      string          `json:"identity"`
	DestinationID int64           `json:"destination_id"`
	Items         []CartItemData  `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	Total         decimal.Decimal `json:"total"`
}

// Producer publishes storefront events. A Producer without a Publisher drops
// every event.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a Producer; publisher may be nil.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enabled reports whether events leave the process.
func (p *Producer) Enabled() bool {
	return p != nil && p.publisher != nil
}

// ItemsFromLines converts cart lines into event items.
func ItemsFromLines(lines []domain.CartLine) []CartItemData {
	items := make([]CartItemData, len(lines))
	for i, line := range lines {
		items[i] = CartItemData{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		}
	}
	return items
}

// PublishCartUpdated publishes the full cart of identity after a mutation.
func (p *Producer) PublishCartUpdated(ctx context.Context, identity domain.Identity, lines []domain.CartLine) error {
	cart := domain.Cart{Lines: lines}
	data := CartUpdatedData{
		Identity:  identity.String(),
		Items:     ItemsFromLines(lines),
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
	}
	return p.publish(ctx, TopicCartUpdated, identity.String(), data)
}

// PublishCartCleared publishes that the cart of identity was emptied.
func (p *Producer) PublishCartCleared(ctx context.Context, identity domain.Identity) error {
	return p.publish(ctx, TopicCartCleared, identity.String(), CartClearedData{Identity: identity.String()})
}

// PublishOrderPlaced publishes an accepted checkout.
func (p *Producer) PublishOrderPlaced(ctx context.Context, data OrderPlacedData) error {
	return p.publish(ctx, TopicOrderPlaced, data.Identity, data)
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, key, SourceStorefront, payload)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("key", key),
	)
	return nil
}
