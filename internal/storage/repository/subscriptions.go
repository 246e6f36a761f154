package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotaplus/driver-billing/internal/models"
)

// CreateSubscription вставляет новую подписку. Подписки создаются только
// в статусе INCOMPLETE, до любого обращения к платежной сети.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (id, user_uid, plan_id, status, provider,
			      provider_sub_id, started_at, current_period_end)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.UserUID, sub.PlanID, sub.Status, sub.Provider,
		sub.ProviderSubID, sub.StartedAt, sub.CurrentPeriodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteSubscription удаляет подписку по ID и возвращает количество
// удалённых строк. Используется только компенсацией неудавшегося
// оформления, до появления платежа.
func (s *Storage) DeleteSubscription(ctx context.Context, id string) (int, error) {
	const op = "storage.DeleteSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM subscriptions WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// GetSubscription возвращает подписку по ID, nil — если не найдена.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, status, provider, provider_sub_id,
			      started_at, current_period_end, created_at
			  FROM subscriptions WHERE id = $1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, id))
}

// GetActiveSubscriptionByUser возвращает активную подписку водителя,
// nil — если её нет.
func (s *Storage) GetActiveSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscriptionByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, status, provider, provider_sub_id,
			      started_at, current_period_end, created_at
			  FROM subscriptions
			  WHERE user_uid = $1 AND status = $2
			  ORDER BY created_at DESC
			  LIMIT 1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, models.SubscriptionStatusActive))
}

// FindSubscriptionByProviderSubID возвращает подписку по ID рекуррентной
// подписки провайдера, nil — если чужое или неизвестное событие.
func (s *Storage) FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error) {
	const op = "storage.FindSubscriptionByProviderSubID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, plan_id, status, provider, provider_sub_id,
			      started_at, current_period_end, created_at
			  FROM subscriptions WHERE provider_sub_id = $1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, providerSubID))
}

func (s *Storage) scanSubscription(row *sql.Row) (*models.Subscription, error) {
	var sub models.Subscription
	var providerSubID sql.NullString
	var startedAt, periodEnd sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.PlanID, &sub.Status, &sub.Provider,
		&providerSubID, &startedAt, &periodEnd, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage.scanSubscription: %w", err)
	}
	if providerSubID.Valid {
		sub.ProviderSubID = &providerSubID.String
	}
	if startedAt.Valid {
		sub.StartedAt = &startedAt.Time
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	return &sub, nil
}

// UpdateSubscriptionStatus переписывает статус подписки. Повторная
// доставка того же статуса безопасна: запись просто подтверждается.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, id, status string) (int, error) {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ActivateSubscription переводит подписку в ACTIVE с началом и концом
// оплаченного периода.
func (s *Storage) ActivateSubscription(ctx context.Context, id string, startedAt, periodEnd time.Time) error {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, started_at = $2, current_period_end = $3
			  WHERE id = $4`
	_, err := s.DB.ExecContext(ctx, query, models.SubscriptionStatusActive, startedAt, periodEnd, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetSubscriptionProviderSubID привязывает подписку к рекуррентной
// подписке провайдера.
func (s *Storage) SetSubscriptionProviderSubID(ctx context.Context, id, providerSubID string) error {
	const op = "storage.SetSubscriptionProviderSubID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET provider_sub_id = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, providerSubID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CancelIfActive отменяет подписку условным обновлением: строка, успевшая
// сменить статус между выборкой и обновлением, пропускается.
func (s *Storage) CancelIfActive(ctx context.Context, id string) (int, error) {
	const op = "storage.CancelIfActive"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE id = $2 AND status = $3`
	result, err := s.DB.ExecContext(ctx, query,
		models.SubscriptionStatusCanceled, id, models.SubscriptionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindExpiredActive возвращает активные подписки с истекшим оплаченным
// периодом вместе с контактами водителей.
func (s *Storage) FindExpiredActive(ctx context.Context, now time.Time) ([]*models.ExpiringSubscription, error) {
	const op = "storage.FindExpiredActive"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_uid, u.email, u.name, p.tier, s.current_period_end
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  JOIN plans p ON p.id = s.plan_id
			  WHERE s.status = $1 AND s.current_period_end <= $2`
	return s.queryExpiring(ctx, op, query, models.SubscriptionStatusActive, now)
}

// FindExpiringBetween возвращает активные подписки, оплаченный период
// которых заканчивается в полуинтервале [from, to).
func (s *Storage) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.ExpiringSubscription, error) {
	const op = "storage.FindExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_uid, u.email, u.name, p.tier, s.current_period_end
			  FROM subscriptions s
			  JOIN users u ON u.uid = s.user_uid
			  JOIN plans p ON p.id = s.plan_id
			  WHERE s.status = $1 AND s.current_period_end >= $2 AND s.current_period_end < $3`
	return s.queryExpiring(ctx, op, query, models.SubscriptionStatusActive, from, to)
}

func (s *Storage) queryExpiring(ctx context.Context, op, query string, args ...any) ([]*models.ExpiringSubscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiringSubscription
	for rows.Next() {
		var item models.ExpiringSubscription
		if err := rows.Scan(&item.SubscriptionID, &item.UserUID, &item.Email,
			&item.Name, &item.PlanTier, &item.CurrentPeriodEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteOrphanIncomplete удаляет подписки, застрявшие в INCOMPLETE без
// единого платежа: след упавшего между созданием и компенсацией процесса.
func (s *Storage) DeleteOrphanIncomplete(ctx context.Context, olderThan time.Time) (int, error) {
	const op = "storage.DeleteOrphanIncomplete"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM subscriptions s
			  WHERE s.status = $1
			    AND s.created_at < $2
			    AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.subscription_id = s.id)`
	result, err := s.DB.ExecContext(ctx, query, models.SubscriptionStatusIncomplete, olderThan)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
