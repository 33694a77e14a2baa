package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/paygate-io/subscription-gateway/internal/domain"
)

// OrderRepository implements ports.OrderRepository on PostgreSQL
type OrderRepository struct {
	db *DBExecutor
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *DBExecutor) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID retrieves an order with its line items
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		order       domain.Order
		shipping    string
		shippingTax string
		metaRaw     []byte
		status      string
	)

	err := r.db.GetDB().QueryRow(ctx,
		`SELECT id, status, billing_email, currency,
		        shipping_total::text, shipping_tax::text,
		        metadata, payment_ids, created_at
		 FROM orders WHERE id = $1`,
		orderID,
	).Scan(&order.ID, &status, &order.BillingEmail, &order.Currency,
		&shipping, &shippingTax, &metaRaw, &order.PaymentIDs, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	order.Status = domain.OrderStatus(status)

	if order.ShippingTotal, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping total: %w", err)
	}
	if order.ShippingTax, err = decimal.NewFromString(shippingTax); err != nil {
		return nil, fmt.Errorf("parse shipping tax: %w", err)
	}

	order.Metadata = map[string]string{}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &order.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal order metadata: %w", err)
		}
	}

	items, err := r.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	rows, err := r.db.GetDB().Query(ctx,
		`SELECT product_id, name, quantity,
		        line_total::text, line_tax::text,
		        recur_frequency, recur_frequency_type, recur_start_date, recur_end_date
		 FROM order_items WHERE order_id = $1 ORDER BY position`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var (
			item       domain.LineItem
			total, tax string
			freq       *int
			freqType   *string
			start, end *string
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity,
			&total, &tax, &freq, &freqType, &start, &end); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}

		if item.LineTotal, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse line total: %w", err)
		}
		if item.LineTax, err = decimal.NewFromString(tax); err != nil {
			return nil, fmt.Errorf("parse line tax: %w", err)
		}

		if freq != nil && freqType != nil {
			rec := &domain.Recurrence{
				Frequency:     *freq,
				FrequencyType: *freqType,
			}
			if start != nil {
				rec.StartDate = *start
			}
			if end != nil {
				rec.EndDate = *end
			}
			item.Recurrence = rec
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// SetMetadata sets a single metadata key on an order
func (r *OrderRepository) SetMetadata(ctx context.Context, orderID, key, value string) error {
	tag, err := r.db.GetDB().Exec(ctx,
		`UPDATE orders
		 SET metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text))
		 WHERE id = $1`,
		orderID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set order metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// AppendPaymentID appends a vendor payment id to an order, skipping
// ids that are already recorded.
func (r *OrderRepository) AppendPaymentID(ctx context.Context, orderID, paymentID string) error {
	tag, err := r.db.GetDB().Exec(ctx,
		`UPDATE orders
		 SET payment_ids = array_append(payment_ids, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(payment_ids))`,
		orderID, paymentID,
	)
	if err != nil {
		return fmt.Errorf("append payment id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order is missing or the id was already recorded.
		var exists bool
		if err := r.db.GetDB().QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
	}
	return nil
}

// UpdateStatus moves an order to a new status
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	tag, err := r.db.GetDB().Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// AddNote appends an order note
func (r *OrderRepository) AddNote(ctx context.Context, orderID, note string) error {
	_, err := r.db.GetDB().Exec(ctx,
		`INSERT INTO order_notes (order_id, note, created_at) VALUES ($1, $2, now())`,
		orderID, note,
	)
	if err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	return nil
}
