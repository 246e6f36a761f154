package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rotaplus/driver-billing/internal/models"
)

// GetPlan возвращает тарифный план по ID, nil — если план не найден.
func (s *Storage) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, tier, price_cents, is_active, provider_plan_id, created_at
			  FROM plans WHERE id = $1`
	row := s.DB.QueryRowContext(ctx, query, id)

	var plan models.Plan
	var providerPlanID sql.NullString
	if err := row.Scan(&plan.ID, &plan.Tier, &plan.PriceCents, &plan.IsActive,
		&providerPlanID, &plan.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if providerPlanID.Valid {
		plan.ProviderPlanID = &providerPlanID.String
	}
	return &plan, nil
}

// SetPlanProviderID дозаписывает ID рекуррентного плана провайдера.
// Единственное допустимое изменение плана после появления подписок на него.
func (s *Storage) SetPlanProviderID(ctx context.Context, id, providerPlanID string) error {
	const op = "storage.SetPlanProviderID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE plans SET provider_plan_id = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, providerPlanID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
