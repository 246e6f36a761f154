package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rotaplus/driver-billing/internal/models"
)

// CreatePayment вставляет новую запись платежа.
func (s *Storage) CreatePayment(ctx context.Context, payment models.Payment) error {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (id, user_uid, subscription_id, method, provider,
			      provider_id, status, amount_cents, pix_qr_code, pix_qr_code_text,
			      boleto_url, boleto_barcode)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.DB.ExecContext(ctx, query,
		payment.ID, payment.UserUID, payment.SubscriptionID, payment.Method,
		payment.Provider, payment.ProviderID, payment.Status, payment.AmountCents,
		payment.PixQRCode, payment.PixQRCodeText, payment.BoletoURL, payment.BoletoBarcode)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindPaymentByProviderID возвращает платеж по внешнему ID списания,
// nil — если событие относится к неизвестному платежу.
func (s *Storage) FindPaymentByProviderID(ctx context.Context, providerID string) (*models.Payment, error) {
	const op = "storage.FindPaymentByProviderID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, subscription_id, method, provider, provider_id,
			      status, amount_cents, pix_qr_code, pix_qr_code_text,
			      boleto_url, boleto_barcode, created_at
			  FROM payments WHERE provider_id = $1`
	row := s.DB.QueryRowContext(ctx, query, providerID)

	var p models.Payment
	if err := row.Scan(&p.ID, &p.UserUID, &p.SubscriptionID, &p.Method, &p.Provider,
		&p.ProviderID, &p.Status, &p.AmountCents, &p.PixQRCode, &p.PixQRCodeText,
		&p.BoletoURL, &p.BoletoBarcode, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// UpdatePaymentStatus переписывает статус платежа значением из платежной
// сети. Статус — зеркало истины провайдера, последняя запись выигрывает.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	const op = "storage.UpdatePaymentStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments SET status = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
