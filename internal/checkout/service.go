// Package checkout quotes and places orders for the active cart.
package checkout

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gaarage/storefront/internal/api"
	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/internal/event"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/logger"
	"github.com/gaarage/storefront/pkg/tracing"
	"github.com/gaarage/storefront/pkg/validator"
)

// OrderAPI is the subset of the storefront API used to place orders.
// *api.Client implements it.
type OrderAPI interface {
	Destinations(ctx context.Context) ([]domain.Destination, error)
	Checkout(ctx context.Context, order api.OrderRequest) (api.OrderConfirmation, error)
}

// Cart is the cart being checked out. *cart.Aggregator implements it.
type Cart interface {
	Identity() domain.Identity
	Lines() []domain.CartLine
	Clear(ctx context.Context)
}

// OrderPublisher announces placed orders. *event.Producer implements it.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, data event.OrderPlacedData) error
}

// Quote is the price of the current cart delivered to a destination.
type Quote struct {
	Destination domain.Destination
	ItemCount   int
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Receipt describes an accepted order.
type Receipt struct {
	OrderID int64
	Message string
	Quote   Quote
	Lines   []domain.CartLine
}

// Service places the cart as an order. Destinations are fetched once and
// reused for later quotes.
type Service struct {
	api    OrderAPI
	cart   Cart
	events OrderPublisher
	logger *slog.Logger

	mu           sync.Mutex
	destinations []domain.Destination
}

// New creates a Service. events may be nil.
func New(orderAPI OrderAPI, cart Cart, events OrderPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		api:    orderAPI,
		cart:   cart,
		events: events,
		logger: logger,
	}
}

// Destinations returns the delivery destinations and their fees.
func (s *Service) Destinations(ctx context.Context) ([]domain.Destination, error) {
	s.mu.Lock()
	cached := s.destinations
	s.mu.Unlock()
	if cached != nil {
		return append([]domain.Destination(nil), cached...), nil
	}

	destinations, err := s.api.Destinations(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.destinations = destinations
	s.mu.Unlock()
	return append([]domain.Destination(nil), destinations...), nil
}

// Quote prices the current cart for delivery to destinationID.
func (s *Service) Quote(ctx context.Context, destinationID int64) (Quote, error) {
	return s.quote(ctx, destinationID, s.cart.Lines())
}

func (s *Service) quote(ctx context.Context, destinationID int64, lines []domain.CartLine) (Quote, error) {
	destinations, err := s.Destinations(ctx)
	if err != nil {
		return Quote{}, err
	}

	var destination *domain.Destination
	for i := range destinations {
		if destinations[i].ID == destinationID {
			destination = &destinations[i]
			break
		}
	}
	if destination == nil {
		return Quote{}, apperrors.NotFound("destination", strconv.FormatInt(destinationID, 10))
	}

	cart := domain.Cart{Lines: lines}
	subtotal := cart.Total()
	return Quote{
		Destination: *destination,
		ItemCount:   cart.ItemCount(),
		Subtotal:    subtotal,
		DeliveryFee: destination.Price,
		Total:       subtotal.Add(destination.Price),
	}, nil
}

// Submit validates form and places the current cart as an order. The cart
// is cleared once the server accepts the order.
func (s *Service) Submit(ctx context.Context, form domain.CheckoutForm) (receipt Receipt, err error) {
	if err := validator.Validate(form); err != nil {
		Submissions.WithLabelValues(outcomeInvalid).Inc()
		return Receipt{}, err
	}

	identity := s.cart.Identity()
	lines := s.cart.Lines()
	if len(lines) == 0 {
		Submissions.WithLabelValues(outcomeInvalid).Inc()
		return Receipt{}, apperrors.ValidationFailed(map[string]string{"cart": "is empty"})
	}

	ctx = logger.WithIdentity(ctx, identity.String())
	ctx, span := tracing.Start(ctx, "checkout", "submit",
		attribute.Int64("destination.id", form.DestinationID),
		attribute.Int("cart.lines", len(lines)),
	)
	defer func() { tracing.End(span, err) }()

	quote, err := s.quote(ctx, form.DestinationID, lines)
	if err != nil {
		if apperrors.Code(err) == apperrors.CodeNotFound {
			Submissions.WithLabelValues(outcomeInvalid).Inc()
			return Receipt{}, apperrors.ValidationFailed(map[string]string{"destination": "is not a known destination"})
		}
		return Receipt{}, err
	}

	order := api.OrderRequest{
		FullName:    form.FullName,
		Phone:       form.Phone,
		Address:     form.Address,
		Destination: form.DestinationID,
		Cart:        make([]api.OrderLine, len(lines)),
	}
	for i, line := range lines {
		order.Cart[i] = api.OrderLine{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	confirmation, err := s.api.Checkout(ctx, order)
	if err != nil {
		Submissions.WithLabelValues(outcomeRejected).Inc()
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "checkout rejected",
			slog.String("error", err.Error()),
		)
		return Receipt{}, err
	}
	Submissions.WithLabelValues(outcomePlaced).Inc()
	span.SetAttributes(attribute.Int64("order.id", confirmation.OrderID))

	s.cart.Clear(ctx)
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "order placed",
		slog.Int64("order_id", confirmation.OrderID),
		slog.String("total", quote.Total.StringFixed(2)),
	)

	if s.events != nil {
		err := s.events.PublishOrderPlaced(ctx, event.OrderPlacedData{
			OrderID:       confirmation.OrderID,
			Identity:      identity.String(),
			DestinationID: form.DestinationID,
			Items:         event.ItemsFromLines(lines),
			Subtotal:      quote.Subtotal,
			DeliveryFee:   quote.DeliveryFee,
			Total:         quote.Total,
		})
		if err != nil {
			logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to publish order event",
				slog.String("error", err.Error()),
			)
		}
	}

	return Receipt{
		OrderID: confirmation.OrderID,
		Message: confirmation.Message,
		Quote:   quote,
		Lines:   lines,
	}, nil
}
