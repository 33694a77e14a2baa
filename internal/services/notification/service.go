package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/paygate-io/subscription-gateway/internal/domain"
	"github.com/paygate-io/subscription-gateway/internal/domain/ports"
)

// Service applies vendor payment notifications to orders
type Service struct {
	orders  ports.OrderRepository
	gateway ports.PreapprovalGateway
	site    domain.SiteContext
	logger  ports.Logger
}

// NewService creates a new notification service
func NewService(
	orders ports.OrderRepository,
	gateway ports.PreapprovalGateway,
	site domain.SiteContext,
	logger ports.Logger,
) *Service {
	return &Service{
		orders:  orders,
		gateway: gateway,
		site:    site,
		logger:  logger,
	}
}

// Fetch retrieves the notified resource from the vendor by topic and id
func (s *Service) Fetch(ctx context.Context, topic, id string) (*domain.Notification, error) {
	switch topic {
	case string(domain.NotificationPayment):
		return s.gateway.GetPayment(ctx, id)
	case string(domain.NotificationPreapproval):
		return s.gateway.GetPreapproval(ctx, id)
	default:
		return nil, domain.ErrUnknownTopic
	}
}

// Process applies a fetched notification to its order: metadata first,
// then the status transition. Re-delivery of the same notification is a
// no-op beyond rewriting identical metadata.
func (s *Service) Process(ctx context.Context, n *domain.Notification) error {
	if n == nil || n.ID == "" || n.Status == "" {
		return domain.ErrEmptyNotification
	}

	orderID := strings.TrimPrefix(n.ExternalReference, s.site.StorePrefix)
	if orderID == "" {
		return domain.ErrOrderMismatch
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if s.site.StorePrefix+order.ID != n.ExternalReference {
		return domain.ErrOrderMismatch
	}

	if err := s.writeMetadata(ctx, order, n); err != nil {
		return err
	}

	tr, known := transitions[n.Status]
	if !known {
		s.logger.Warn("notification carried an unknown status",
			ports.String("order_id", order.ID),
			ports.String("status", string(n.Status)),
		)
		return nil
	}

	if tr.NewStatus != "" {
		if err := s.orders.UpdateStatus(ctx, order.ID, tr.NewStatus); err != nil {
			return err
		}
	}
	if err := s.orders.AddNote(ctx, order.ID, tr.Note); err != nil {
		return err
	}

	s.logger.Info("notification processed",
		ports.String("order_id", order.ID),
		ports.String("type", string(n.Type)),
		ports.String("status", string(n.Status)),
	)

	return nil
}

func (s *Service) writeMetadata(ctx context.Context, order *domain.Order, n *domain.Notification) error {
	if n.PayerEmail != "" {
		if err := s.orders.SetMetadata(ctx, order.ID, domain.MetaPayerEmail, n.PayerEmail); err != nil {
			return err
		}
	}
	if n.PaymentTypeID != "" {
		if err := s.orders.SetMetadata(ctx, order.ID, domain.MetaPaymentType, n.PaymentTypeID); err != nil {
			return err
		}
	}

	switch n.Type {
	case domain.NotificationPayment:
		record := fmt.Sprintf("[Date %s] Amount: %s / Paid: %s / Refunded: %s",
			n.DateCreated.UTC().Format("2006-01-02 15:04:05"),
			n.TransactionAmount.String(),
			n.TotalPaid.String(),
			n.TotalRefunded.String(),
		)
		key := fmt.Sprintf("Mercado Pago - Payment %s", n.ID)
		if err := s.orders.SetMetadata(ctx, order.ID, key, record); err != nil {
			return err
		}
		// Appends only ids not seen before.
		if err := s.orders.AppendPaymentID(ctx, order.ID, n.ID); err != nil {
			return err
		}

	case domain.NotificationPreapproval:
		record := domain.PreapprovalRecord(n.DateCreated, string(n.Status), n.ID)
		if err := s.orders.SetMetadata(ctx, order.ID, domain.MetaPreapproval, record); err != nil {
			return err
		}
	}

	return nil
}

// LegacyAction handles the old direct cancel/refund callback carried on
// the IPN endpoint.
func (s *Service) LegacyAction(ctx context.Context, action, paymentID string, amount decimal.Decimal) (*ports.VendorResult, error) {
	switch action {
	case "cancel":
		return s.gateway.CancelPayment(ctx, paymentID)
	case "refund":
		return s.gateway.RefundPayment(ctx, paymentID, amount, "legacy ipn action")
	default:
		return nil, domain.ErrUnknownTopic
	}
}
